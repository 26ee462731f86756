package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-insurance/components/portal/gorouter"
	"github.com/goliatone/go-insurance/pkg/config"
	"github.com/goliatone/go-insurance/pkg/logger"
	"github.com/goliatone/go-insurance/pkg/portalapp"
)

type cli struct {
	Config  string `type:"path" env:"INSURANCE_CONFIG" help:"Path to the YAML configuration file."`
	Address string `help:"Listen address (overrides the configuration)."`
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Description("Insurance portal server: admin and customer dashboards over the insurance API."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(c.Run(context.Background()))
}

func (c *cli) Run(ctx context.Context) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.Address != "" {
		cfg.Server.Address = c.Address
	}
	log := logger.New(cfg.Env)
	log.Info().Stringer("config", cfg).Msg("starting portal")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := portalapp.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:    server.Router(),
		Service:   app.Service,
		API:       app.API,
		Renderer:  app.Renderer,
		Broadcast: app.Broadcast,
	}); err != nil {
		return fmt.Errorf("portal: register routes: %w", err)
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("portal listening")
		errc <- server.Serve(cfg.Server.Address)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("portal: shutdown: %w", err)
	}
	log.Info().Msg("portal stopped")
	return nil
}
