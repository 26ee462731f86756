package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	portal "github.com/goliatone/go-insurance/components/portal"
)

type statsService interface {
	Collect(ctx context.Context) (portal.DashboardStats, error)
	Chart(stats portal.DashboardStats) (string, error)
}

// StatsInput selects what the statistics page needs.
type StatsInput struct {
	WithChart bool
}

// StatsReport is the admin statistics page model.
type StatsReport struct {
	Stats portal.DashboardStats `json:"stats"`
	Chart string                `json:"chart,omitempty"`
}

// StatsQuery collects portal counts and optionally renders the chart.
type StatsQuery struct {
	service statsService
}

// NewStatsQuery builds the query.
func NewStatsQuery(service statsService) *StatsQuery {
	return &StatsQuery{service: service}
}

var _ gocommand.Querier[StatsInput, StatsReport] = (*StatsQuery)(nil)

func (q *StatsQuery) Query(ctx context.Context, input StatsInput) (StatsReport, error) {
	if q.service == nil {
		return StatsReport{}, errors.New("stats query requires service")
	}
	stats, err := q.service.Collect(ctx)
	if err != nil {
		return StatsReport{}, err
	}
	report := StatsReport{Stats: stats}
	if input.WithChart {
		if report.Chart, err = q.service.Chart(stats); err != nil {
			return report, err
		}
	}
	return report, nil
}
