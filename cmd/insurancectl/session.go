package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"

	portal "github.com/goliatone/go-insurance/components/portal"
	"github.com/goliatone/go-insurance/components/portal/httpapi"
	"github.com/goliatone/go-insurance/pkg/config"
	"github.com/goliatone/go-insurance/pkg/logger"
	"github.com/goliatone/go-insurance/pkg/portalapp"
)

// session is one CLI invocation bound to a client namespace and area.
type session struct {
	app      *portalapp.App
	clientID string
	role     portal.Role
}

// openSession builds the portal from configuration and logs in when
// credentials were given. Without credentials the stored session of the
// client namespace is used, which only survives between runs with sqlite
// storage.
func openSession(ctx context.Context, g *globals) (*session, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	app, err := portalapp.Build(ctx, cfg, cliLogger(cfg.Env, g.Verbose, os.Stderr))
	if err != nil {
		return nil, err
	}
	s := &session{app: app, clientID: g.Client, role: portal.Role(g.Role)}
	if g.Email != "" {
		if err := s.login(ctx, g.Email, g.Password); err != nil {
			app.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *session) Close() { s.app.Close() }

func (s *session) login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(portal.Credentials{Email: email, Password: password})
	if err != nil {
		return err
	}
	_, err = expect(s.app.API.Login(ctx, s.clientID, body), http.StatusOK)
	return err
}

// cliLogger keeps the terminal quiet unless verbose output was requested.
func cliLogger(env string, verbose bool, w io.Writer) zerolog.Logger {
	log := logger.NewWithWriter(env, zerolog.ConsoleWriter{Out: w, NoColor: true})
	if !verbose {
		log = log.Level(zerolog.WarnLevel)
	}
	return log
}

// expect returns the body of r, or an error carrying the user message when
// the status differs from want.
func expect(r httpapi.Reply, want int) (any, error) {
	if r.Status == want {
		return r.Body, nil
	}
	if body, ok := r.Body.(httpapi.ErrorBody); ok && body.Message != "" {
		return nil, fmt.Errorf("insurancectl: %s (%d)", body.Message, r.Status)
	}
	return nil, fmt.Errorf("insurancectl: %s", strings.ToLower(http.StatusText(r.Status)))
}
