package gorouter

import (
	"strings"
	"testing"

	portal "github.com/goliatone/go-insurance/components/portal"
	"github.com/goliatone/go-insurance/components/portal/httpapi"
)

func TestRegisterValidatesConfig(t *testing.T) {
	if err := Register(Config[struct{}]{}); err == nil {
		t.Fatalf("expected error when router/service/api missing")
	}
}

func TestDefaultRouteConfig(t *testing.T) {
	routes := defaultRouteConfig(RouteConfig{})
	if routes.API != "/api" || routes.WebSocket != "/ws" {
		t.Fatalf("unexpected defaults %+v", routes)
	}
	custom := defaultRouteConfig(RouteConfig{API: "/v1", WebSocket: "/events"})
	if custom.API != "/v1" || custom.WebSocket != "/events" {
		t.Fatalf("custom routes overwritten: %+v", custom)
	}
}

func TestCookieValue(t *testing.T) {
	header := "theme=dark; " + httpapi.ClientCookie + "=c-123; other=1"
	if got := cookieValue(header, httpapi.ClientCookie); got != "c-123" {
		t.Fatalf("expected client id, got %q", got)
	}
	if got := cookieValue("", httpapi.ClientCookie); got != "" {
		t.Fatalf("expected empty id for missing header, got %q", got)
	}
	if got := cookieValue("theme=dark", httpapi.ClientCookie); got != "" {
		t.Fatalf("expected empty id when cookie absent, got %q", got)
	}
}

func TestClientCookieAttributes(t *testing.T) {
	raw := clientCookie("c-1").String()
	for _, want := range []string{httpapi.ClientCookie + "=c-1", "Path=/", "HttpOnly", "SameSite=Lax"} {
		if !strings.Contains(raw, want) {
			t.Fatalf("expected %q in %q", want, raw)
		}
	}
}

func TestRoleParam(t *testing.T) {
	cases := map[string]portal.Role{
		"admin":  portal.RoleAdmin,
		"Admin":  portal.RoleAdmin,
		" user ": portal.RoleUser,
	}
	for raw, want := range cases {
		got, ok := roleParam(raw)
		if !ok || got != want {
			t.Fatalf("roleParam(%q) = %q, %v", raw, got, ok)
		}
	}
	if _, ok := roleParam("staff"); ok {
		t.Fatalf("unknown areas must be rejected")
	}
}

func TestDefaultPagesCoverEveryResource(t *testing.T) {
	pages := map[string]bool{}
	for _, p := range defaultPages(noopTelemetry{}) {
		pages[p.Name()] = true
	}
	for _, def := range portal.Resources() {
		if !pages[def.Name] {
			t.Fatalf("resource %s has no pages", def.Name)
		}
	}
}

func TestListPath(t *testing.T) {
	if got := listPath(portal.RoleAdmin, portal.ResourcePolicies); got != "/admin/policies" {
		t.Fatalf("unexpected path %s", got)
	}
}
