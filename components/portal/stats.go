package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"golang.org/x/sync/errgroup"
)

// DashboardStats are the admin overview counters.
type DashboardStats struct {
	Users           int `json:"users"`
	ActiveUsers     int `json:"activeUsers"`
	InactiveUsers   int `json:"inactiveUsers"`
	Quotes          int `json:"quotes"`
	PendingQuotes   int `json:"pendingQuotes"`
	CompletedQuotes int `json:"completedQuotes"`
	Policies        int `json:"policies"`
	Tickets         int `json:"tickets"`
	OpenTickets     int `json:"openTickets"`
}

// StatsOptions wires the StatsService.
type StatsOptions struct {
	Users     ResourceClient[User]
	Quotes    ResourceClient[Quote]
	Policies  ResourceClient[Policy]
	Tickets   ResourceClient[Ticket]
	Cache     RenderCache
	Theme     string
	Telemetry Telemetry
}

// StatsService computes admin statistics from the resource lists.
type StatsService struct {
	users     ResourceClient[User]
	quotes    ResourceClient[Quote]
	policies  ResourceClient[Policy]
	tickets   ResourceClient[Ticket]
	cache     RenderCache
	theme     string
	telemetry Telemetry
}

// NewStatsService validates options and applies defaults.
func NewStatsService(opts StatsOptions) (*StatsService, error) {
	if opts.Users == nil || opts.Quotes == nil || opts.Policies == nil || opts.Tickets == nil {
		return nil, errors.New("portal: stats service requires users, quotes, policies and tickets clients")
	}
	if opts.Theme == "" {
		opts.Theme = types.ThemeWesteros
	}
	return &StatsService{
		users:     opts.Users,
		quotes:    opts.Quotes,
		policies:  opts.Policies,
		tickets:   opts.Tickets,
		cache:     opts.Cache,
		theme:     opts.Theme,
		telemetry: normalizeTelemetry(opts.Telemetry),
	}, nil
}

// Collect fetches the four lists concurrently. The first failure cancels the
// rest and is returned.
func (s *StatsService) Collect(ctx context.Context) (DashboardStats, error) {
	var (
		users    []User
		quotes   []Quote
		policies []Policy
		tickets  []Ticket
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.users.List(gctx)
		return wrapStats(ResourceUsers, err)
	})
	g.Go(func() (err error) {
		quotes, err = s.quotes.List(gctx)
		return wrapStats(ResourceQuotes, err)
	})
	g.Go(func() (err error) {
		policies, err = s.policies.List(gctx)
		return wrapStats(ResourcePolicies, err)
	})
	g.Go(func() (err error) {
		tickets, err = s.tickets.List(gctx)
		return wrapStats(ResourceTickets, err)
	})
	if err := g.Wait(); err != nil {
		s.telemetry.Record(ctx, "portal.stats.failed", map[string]any{"error": err.Error()})
		return DashboardStats{}, err
	}

	stats := DashboardStats{
		Users:    len(users),
		Quotes:   len(quotes),
		Policies: len(policies),
		Tickets:  len(tickets),
	}
	for _, u := range users {
		switch u.Status {
		case UserActive:
			stats.ActiveUsers++
		case UserInactive:
			stats.InactiveUsers++
		}
	}
	for _, q := range quotes {
		switch q.Status {
		case QuoteCompleted:
			stats.CompletedQuotes++
		default:
			stats.PendingQuotes++
		}
	}
	for _, t := range tickets {
		if t.Status == TicketOpen {
			stats.OpenTickets++
		}
	}
	return stats, nil
}

// Chart renders the counters as a bar chart. Identical stats hit the cache.
func (s *StatsService) Chart(stats DashboardStats) (string, error) {
	render := func() (string, error) { return s.renderChart(stats) }
	if s.cache == nil {
		return render()
	}
	return s.cache.GetOrRender("stats:"+s.theme+":"+contentHash(stats), render)
}

func (s *StatsService) renderChart(stats DashboardStats) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Portal overview"}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  s.theme,
			Width:  "100%",
			Height: "360px",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis([]string{"Users", "Quotes", "Policies", "Tickets"})
	bar.AddSeries("Total", []opts.BarData{
		{Name: "Users", Value: stats.Users},
		{Name: "Quotes", Value: stats.Quotes},
		{Name: "Policies", Value: stats.Policies},
		{Name: "Tickets", Value: stats.Tickets},
	})
	bar.AddSeries("Active / Pending / Open", []opts.BarData{
		{Name: "Users", Value: stats.ActiveUsers},
		{Name: "Quotes", Value: stats.PendingQuotes},
		{Name: "Policies", Value: stats.Policies},
		{Name: "Tickets", Value: stats.OpenTickets},
	})
	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return "", fmt.Errorf("portal: render stats chart: %w", err)
	}
	return buf.String(), nil
}

func wrapStats(resource string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("portal: collect %s: %w", resource, err)
}
