package queries

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	portal "github.com/goliatone/go-insurance/components/portal"
	"github.com/goliatone/go-insurance/pkg/apiclient"
)

type stubStatsService struct {
	collectCalls int
	chartCalls   int
	err          error
}

func (s *stubStatsService) Collect(context.Context) (portal.DashboardStats, error) {
	s.collectCalls++
	return portal.DashboardStats{Users: 2, ActiveUsers: 1, InactiveUsers: 1}, s.err
}

func (s *stubStatsService) Chart(portal.DashboardStats) (string, error) {
	s.chartCalls++
	return "<div>chart</div>", nil
}

func newWorkspace(t *testing.T) (*portal.Workspace, *apiclient.Memory) {
	t.Helper()
	memory := apiclient.NewMemory(apiclient.MemoryOptions{})
	server := httptest.NewServer(memory)
	t.Cleanup(server.Close)
	client, err := apiclient.NewClient(apiclient.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	clients, err := apiclient.Bind(client, apiclient.BindOptions{})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	sessions, err := portal.NewSessionManager(portal.SessionOptions{Secret: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	svc, err := portal.NewService(portal.Options{API: clients, Sessions: sessions})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	t.Cleanup(svc.Close)
	ws, err := svc.Workspace(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	return ws, memory
}

func TestListRecordsQuery(t *testing.T) {
	ws, memory := newWorkspace(t)
	if err := memory.Seed(portal.ResourcePolicies, portal.Policy{Provider: "Acme", PolicyNumber: "P-1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	query := NewListRecordsQuery(portal.SelectPolicies)
	state, err := query.Query(context.Background(), ListInput{Workspace: ws, Role: portal.RoleUser})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if !state.Loaded || len(state.Items) != 1 || state.Items[0].Provider != "Acme" {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestListRecordsQueryEnforcesRole(t *testing.T) {
	ws, _ := newWorkspace(t)
	query := NewListRecordsQuery(portal.SelectUsers)
	if _, err := query.Query(context.Background(), ListInput{Workspace: ws, Role: portal.RoleUser}); !errors.Is(err, portal.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestGetRecordQuery(t *testing.T) {
	ws, memory := newWorkspace(t)
	if err := memory.Seed(portal.ResourceQuotes, portal.Quote{ID: "q1", FirstName: "Jane", Status: portal.QuotePending}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	query := NewGetRecordQuery(portal.SelectQuotes)
	quote, err := query.Query(context.Background(), RecordInput{Workspace: ws, Role: portal.RoleUser, ID: "q1"})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if quote.FirstName != "Jane" {
		t.Fatalf("unexpected quote %+v", quote)
	}
	if _, err := query.Query(context.Background(), RecordInput{Workspace: ws, Role: portal.RoleUser}); err == nil {
		t.Fatalf("expected missing id rejected")
	}
	if _, err := query.Query(context.Background(), RecordInput{Workspace: ws, Role: portal.RoleAdmin, ID: "q1"}); !errors.Is(err, portal.ErrForbidden) {
		t.Fatalf("expected admin detail rejected, got %v", err)
	}
}

func TestStatsQuery(t *testing.T) {
	service := &stubStatsService{}
	query := NewStatsQuery(service)
	report, err := query.Query(context.Background(), StatsInput{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if report.Stats.Users != 2 || report.Chart != "" || service.chartCalls != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	report, err = query.Query(context.Background(), StatsInput{WithChart: true})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if report.Chart == "" || service.collectCalls != 2 {
		t.Fatalf("expected chart rendered, got %+v", report)
	}

	service.err = errors.New("boom")
	if _, err := query.Query(context.Background(), StatsInput{}); err == nil {
		t.Fatalf("expected collect error surfaced")
	}
}

func TestProfileAndWizardQueries(t *testing.T) {
	ws, _ := newWorkspace(t)
	profile, err := NewProfileQuery().Query(context.Background(), WorkspaceInput{Workspace: ws})
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile != portal.DefaultProfile() {
		t.Fatalf("expected default profile, got %+v", profile)
	}
	state, err := NewQuoteWizardQuery().Query(context.Background(), QuoteWizardInput{Workspace: ws})
	if err != nil {
		t.Fatalf("wizard: %v", err)
	}
	if state.Step != portal.StepCustomer {
		t.Fatalf("expected first step, got %s", state.Step)
	}
}
