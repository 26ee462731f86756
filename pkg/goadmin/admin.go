package goadmin

import (
	"context"
	"errors"
	"fmt"

	portal "github.com/goliatone/go-insurance/components/portal"
)

// MenuBuilder ensures portal entries exist within the host admin navigation.
type MenuBuilder interface {
	EnsureMenuItem(ctx context.Context, menuCode string, item MenuItem) error
}

// MenuItem captures portal link metadata.
type MenuItem struct {
	Label    string
	Route    string
	Icon     string
	Position int
}

// Config wires the portal service into an admin shell.
type Config struct {
	EnablePortal bool
	// MenuCode prefixes the per-area menus, e.g. "portal" seeds
	// "portal.admin" and "portal.user".
	MenuCode    string
	MenuBuilder MenuBuilder
	Service     *portal.Service
	Roles       []portal.Role
	// BasePosition offsets every seeded item within its menu.
	BasePosition int
}

// Admin exposes helpers for go-admin style applications.
type Admin struct {
	cfg Config
}

// New creates an Admin helper that can seed portal menus.
func New(cfg Config) (*Admin, error) {
	if cfg.EnablePortal && cfg.Service == nil {
		return nil, errors.New("goadmin: portal service is required when enabled")
	}
	if cfg.MenuCode == "" {
		cfg.MenuCode = "portal"
	}
	if len(cfg.Roles) == 0 {
		cfg.Roles = []portal.Role{portal.RoleAdmin, portal.RoleUser}
	}
	return &Admin{cfg: cfg}, nil
}

// Portal exposes the configured portal service when enabled.
func (a *Admin) Portal() *portal.Service {
	if !a.cfg.EnablePortal {
		return nil
	}
	return a.cfg.Service
}

// MenuCode names the menu holding role's entries.
func (a *Admin) MenuCode(role portal.Role) string {
	return a.cfg.MenuCode + "." + string(role)
}

// Items lists the menu entries of role's area in navigation order.
func (a *Admin) Items(role portal.Role) []MenuItem {
	nav := portal.Navigation(role, "")
	items := make([]MenuItem, 0, len(nav))
	for i, entry := range nav {
		items = append(items, MenuItem{
			Label:    entry.Label,
			Route:    entry.Href,
			Icon:     iconFor(entry.Href),
			Position: a.cfg.BasePosition + i,
		})
	}
	return items
}

// Bootstrap seeds the navigation of every configured area. Every item is
// attempted; failures are joined.
func (a *Admin) Bootstrap(ctx context.Context) error {
	if !a.cfg.EnablePortal || a.cfg.MenuBuilder == nil {
		return nil
	}
	var errs []error
	for _, role := range a.cfg.Roles {
		code := a.MenuCode(role)
		for _, item := range a.Items(role) {
			if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, code, item); err != nil {
				errs = append(errs, fmt.Errorf("goadmin: menu %s item %s: %w", code, item.Route, err))
			}
		}
	}
	return errors.Join(errs...)
}

var icons = map[string]string{
	portal.ResourceUsers:        "users",
	portal.ResourcePolicies:     "shield",
	portal.ResourceQuotes:       "file-text",
	portal.ResourceTickets:      "life-buoy",
	portal.ResourceTransactions: "credit-card",
	portal.ResourceReports:      "bar-chart",
	"payments":                  "dollar-sign",
	"stats":                     "pie-chart",
	"home":                      "home",
	"request":                   "plus-circle",
	"profile":                   "user",
}

func iconFor(route string) string {
	for i := len(route) - 1; i >= 0; i-- {
		if route[i] == '/' {
			if icon, ok := icons[route[i+1:]]; ok {
				return icon
			}
			break
		}
	}
	return "circle"
}
