package gorouter

import (
	"context"
	"errors"
	"net/http"
	"strings"

	router "github.com/goliatone/go-router"

	portal "github.com/goliatone/go-insurance/components/portal"
	"github.com/goliatone/go-insurance/components/portal/httpapi"
)

// Config wires go-router with the portal service, its JSON API and pages.
type Config[T any] struct {
	Router         router.Router[T]
	Service        *portal.Service
	API            *httpapi.API
	Renderer       portal.Renderer
	Broadcast      *portal.BroadcastHook
	ClientResolver ClientResolver
	Routes         RouteConfig
}

// RouteConfig customizes the mount points that are not part of the page map.
type RouteConfig struct {
	API       string
	WebSocket string
}

// Register mounts the portal pages, the JSON API and the change stream.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Service == nil {
		return errors.New("gorouter: service is required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: api is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	resolver := cfg.ClientResolver
	if resolver == nil {
		resolver = defaultClientResolver
	}

	registerAPI(cfg.Router.Group(routes.API), cfg.API, resolver)

	if cfg.Renderer != nil {
		telemetry := cfg.API.Telemetry
		if telemetry == nil {
			telemetry = noopTelemetry{}
		}
		pageSite := &site{
			service:   cfg.Service,
			api:       cfg.API,
			renderer:  cfg.Renderer,
			resolver:  resolver,
			telemetry: telemetry,
			pages:     make(map[string]resourcePages),
		}
		for _, p := range defaultPages(telemetry) {
			pageSite.pages[p.Name()] = p
		}
		registerPages(cfg.Router, pageSite)
	}

	if cfg.Broadcast != nil {
		registerWebSocket(cfg.Router, cfg.Broadcast, routes.WebSocket)
	}
	return nil
}

func registerAPI[T any](r router.Router[T], api *httpapi.API, resolver ClientResolver) {
	r.Post("/auth/login", router.WrapHandler(func(ctx router.Context) error {
		clientID := ensureClient(ctx, resolver)
		return reply(ctx, api.Login(ctx.Context(), clientID, ctx.Body()))
	}))
	r.Post("/auth/signup", router.WrapHandler(func(ctx router.Context) error {
		return reply(ctx, api.Signup(ctx.Context(), ctx.Body()))
	}))
	r.Post("/auth/logout/:role", router.WrapHandler(func(ctx router.Context) error {
		role, ok := roleParam(ctx.Param("role"))
		if !ok {
			return reply(ctx, unknownArea())
		}
		return reply(ctx, api.Logout(ctx.Context(), resolver(ctx), role))
	}))

	r.Get("/admin/stats", router.WrapHandler(func(ctx router.Context) error {
		return reply(ctx, api.Stats(ctx.Context(), resolver(ctx), ctx.Query("chart") == "true"))
	}))
	r.Post("/admin/payments", router.WrapHandler(func(ctx router.Context) error {
		return reply(ctx, api.Charge(ctx.Context(), resolver(ctx), ctx.Body()))
	}))
	r.Get("/user/profile", router.WrapHandler(func(ctx router.Context) error {
		return reply(ctx, api.Profile(ctx.Context(), resolver(ctx)))
	}))
	r.Put("/user/profile", router.WrapHandler(func(ctx router.Context) error {
		return reply(ctx, api.SaveProfile(ctx.Context(), resolver(ctx), ctx.Body()))
	}))
	r.Get("/user/quote-request", router.WrapHandler(func(ctx router.Context) error {
		return reply(ctx, api.Wizard(ctx.Context(), resolver(ctx), httpapi.WizardState, nil))
	}))
	r.Post("/user/quote-request/:action", router.WrapHandler(func(ctx router.Context) error {
		return reply(ctx, api.Wizard(ctx.Context(), resolver(ctx), ctx.Param("action"), ctx.Body()))
	}))

	records := func(op portal.Operation) router.HandlerFunc {
		return router.WrapHandler(func(ctx router.Context) error {
			role, ok := roleParam(ctx.Param("role"))
			if !ok {
				return reply(ctx, unknownArea())
			}
			var body []byte
			if op == portal.OpCreate || op == portal.OpUpdate {
				body = ctx.Body()
			}
			return reply(ctx, api.Records(ctx.Context(), resolver(ctx), role, ctx.Param("resource"), op, ctx.Param("id"), body))
		})
	}
	r.Get("/:role/:resource", records(portal.OpList))
	r.Post("/:role/:resource", records(portal.OpCreate))
	r.Get("/:role/:resource/:id", records(portal.OpDetail))
	r.Put("/:role/:resource/:id", records(portal.OpUpdate))
	r.Delete("/:role/:resource/:id", records(portal.OpDelete))
}

func registerWebSocket[T any](r router.Router[T], hook *portal.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func reply(ctx router.Context, r httpapi.Reply) error {
	return ctx.JSON(r.Status, r.Body)
}

func unknownArea() httpapi.Reply {
	return httpapi.Reply{Status: http.StatusNotFound, Body: httpapi.ErrorBody{Message: "Unknown area"}}
}

func roleParam(raw string) (portal.Role, bool) {
	switch role := portal.Role(strings.ToLower(strings.TrimSpace(raw))); role {
	case portal.RoleAdmin, portal.RoleUser:
		return role, true
	}
	return "", false
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.API == "" {
		routes.API = "/api"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/ws"
	}
	return routes
}
