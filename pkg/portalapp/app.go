// Package portalapp wires the portal service from configuration for the
// server and CLI binaries.
package portalapp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/goliatone/go-users/pkg/types"
	"github.com/rs/zerolog"

	portal "github.com/goliatone/go-insurance/components/portal"
	"github.com/goliatone/go-insurance/components/portal/httpapi"
	"github.com/goliatone/go-insurance/pkg/activity"
	"github.com/goliatone/go-insurance/pkg/activity/usersink"
	"github.com/goliatone/go-insurance/pkg/apiclient"
	"github.com/goliatone/go-insurance/pkg/config"
	"github.com/goliatone/go-insurance/pkg/logger"
	"github.com/goliatone/go-insurance/pkg/storage/sqlitestore"
)

// storageRetention bounds how long idle client namespaces are kept on disk.
const storageRetention = 30 * 24 * time.Hour

// App holds the wired portal components.
type App struct {
	Service   *portal.Service
	API       *httpapi.API
	Renderer  portal.Renderer
	Broadcast *portal.BroadcastHook
	closers   []func()
}

// Close releases the service, storage and mock API in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Build wires the portal service from cfg. With a mock API it also starts
// the in-process fake on a loopback listener.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Broadcast: portal.NewBroadcastHook()}
	fail := func(err error) (*App, error) {
		a.Close()
		return nil, err
	}
	telemetry := logger.Telemetry{Logger: log}

	baseURL, paymentEndpoint := cfg.API.BaseURL, cfg.Payments.Endpoint
	if cfg.API.Mock {
		url, stop, err := startMockAPI(log)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, stop)
		baseURL = url
		if paymentEndpoint == "" {
			paymentEndpoint = apiclient.PaymentEndpoint
		}
	}

	client, err := apiclient.NewClient(apiclient.Config{
		BaseURL: baseURL,
		APIKey:  cfg.API.Key,
		Timeout: cfg.API.Timeout,
		Retry:   apiclient.RetryPolicy{Attempts: cfg.API.RetryAttempts, BaseDelay: 100 * time.Millisecond},
	})
	if err != nil {
		return fail(err)
	}
	clients, err := apiclient.Bind(client, apiclient.BindOptions{
		PaymentEndpoint: paymentEndpoint,
		VerifySessions:  cfg.API.VerifySessions,
	})
	if err != nil {
		return fail(err)
	}

	storage, err := openStorage(ctx, cfg.Storage, log)
	if err != nil {
		return fail(err)
	}
	if closer, ok := storage.(interface{ Close() error }); ok {
		a.closers = append(a.closers, func() { _ = closer.Close() })
	}

	sessions, err := portal.NewSessionManager(portal.SessionOptions{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Issuer: "go-insurance",
	})
	if err != nil {
		return fail(err)
	}

	emitter := activity.NewEmitter(activity.Hooks{
		usersink.Hook{Sink: logSink{log: log}},
	}, activity.Config{Enabled: cfg.Activity.Enabled, Channel: cfg.Activity.Channel})

	a.Service, err = portal.NewService(portal.Options{
		API:               clients,
		Storage:           storage,
		Sessions:          sessions,
		Changes:           a.Broadcast,
		Activity:          emitter,
		Telemetry:         telemetry,
		ChartCache:        portal.NewChartCache(cfg.Chart.CacheTTL),
		ChartTheme:        cfg.Chart.Theme,
		PersistQuoteDraft: cfg.Quote.PersistDraft,
	})
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, a.Service.Close)

	if a.API, err = httpapi.NewAPI(a.Service, telemetry); err != nil {
		return fail(err)
	}
	a.API.Events = a.Broadcast
	if a.Renderer, err = portal.NewTemplateRenderer(); err != nil {
		return fail(fmt.Errorf("portalapp: templates: %w", err))
	}
	return a, nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (portal.StorageProvider, error) {
	if cfg.Driver != config.StorageSQLite {
		return portal.NewInMemoryStorage(), nil
	}
	store, err := sqlitestore.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	removed, err := store.Prune(ctx, time.Now().Add(-storageRetention))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	log.Debug().Str("path", cfg.Path).Int64("pruned", removed).Msg("sqlite storage ready")
	return store, nil
}

// startMockAPI serves the in-memory API on a loopback port and returns its
// base URL.
func startMockAPI(log zerolog.Logger) (string, func(), error) {
	mem := apiclient.NewMemory(apiclient.MemoryOptions{
		Accounts:     DemoAccounts,
		PaymentLimit: DemoPaymentLimit,
	})
	if err := seedDemo(mem); err != nil {
		return "", nil, err
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("portalapp: mock api listener: %w", err)
	}
	srv := &http.Server{Handler: mem, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("mock api stopped")
		}
	}()
	url := "http://" + listener.Addr().String()
	log.Warn().Str("url", url).Msg("using in-process mock API")
	for _, account := range DemoAccounts {
		log.Info().Str("email", account.Email).Str("role", account.Role).Msg("demo account")
	}
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return url, stop, nil
}

// logSink writes go-users activity records to the log.
type logSink struct {
	log zerolog.Logger
}

func (s logSink) Log(_ context.Context, record types.ActivityRecord) error {
	s.log.Info().
		Str("channel", record.Channel).
		Str("verb", record.Verb).
		Str("object_type", record.ObjectType).
		Str("object_id", record.ObjectID).
		Str("actor_id", record.ActorID.String()).
		Fields(record.Data).
		Time("occurred_at", record.OccurredAt).
		Msg("activity")
	return nil
}
