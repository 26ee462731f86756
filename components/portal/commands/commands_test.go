package commands

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	portal "github.com/goliatone/go-insurance/components/portal"
	"github.com/goliatone/go-insurance/pkg/apiclient"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubTelemetry struct {
	events []string
}

func (s *stubTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	s.events = append(s.events, event)
}

func newTestService(t *testing.T) (*portal.Service, *apiclient.Memory) {
	t.Helper()
	memory := apiclient.NewMemory(apiclient.MemoryOptions{Accounts: []apiclient.Account{
		{ID: "a1", Name: "Ann", Email: "ann@x.com", Password: "secret", Role: "Admin"},
		{ID: "u1", Name: "Bob", Email: "bob@x.com", Password: "secret", Role: "User"},
	}})
	server := httptest.NewServer(memory)
	t.Cleanup(server.Close)
	client, err := apiclient.NewClient(apiclient.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	clients, err := apiclient.Bind(client, apiclient.BindOptions{PaymentEndpoint: apiclient.PaymentEndpoint})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	sessions, err := portal.NewSessionManager(portal.SessionOptions{Secret: testSecret})
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	svc, err := portal.NewService(portal.Options{API: clients, Sessions: sessions})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, memory
}

func workspace(t *testing.T, svc *portal.Service) *portal.Workspace {
	t.Helper()
	ws, err := svc.Workspace(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	return ws
}

func TestCreateRecordCommand(t *testing.T) {
	svc, memory := newTestService(t)
	telemetry := &stubTelemetry{}
	cmd := NewCreateRecordCommand(portal.SelectPolicies, telemetry)
	ws := workspace(t, svc)

	var created portal.Policy
	err := cmd.Execute(context.Background(), CreateRecordInput[portal.Policy, portal.PolicyForm]{
		Workspace: ws,
		Role:      portal.RoleAdmin,
		Form:      portal.PolicyForm{Provider: "Acme", PolicyNumber: "P-1", Coverage: "Full", PremiumAmount: "120.50"},
		Result:    &created,
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if created.ID == "" || memory.Len(portal.ResourcePolicies) != 1 {
		t.Fatalf("expected policy created, got %+v", created)
	}
	if items := ws.Policies.State().Items; len(items) != 1 || items[0].ID != created.ID {
		t.Fatalf("expected list view updated, got %+v", items)
	}
	if len(telemetry.events) != 1 || telemetry.events[0] != "portal.record.create" {
		t.Fatalf("unexpected telemetry %v", telemetry.events)
	}
}

func TestCreateRecordCommandEnforcesRole(t *testing.T) {
	svc, memory := newTestService(t)
	cmd := NewCreateRecordCommand(portal.SelectPolicies, nil)
	err := cmd.Execute(context.Background(), CreateRecordInput[portal.Policy, portal.PolicyForm]{
		Workspace: workspace(t, svc),
		Role:      portal.RoleUser,
		Form:      portal.PolicyForm{Provider: "Acme", PolicyNumber: "P-1", Coverage: "Full", PremiumAmount: "1"},
	})
	if !errors.Is(err, portal.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if memory.Len(portal.ResourcePolicies) != 0 {
		t.Fatalf("forbidden create must not reach the API")
	}
}

func TestCreateRecordCommandRefusesQuotes(t *testing.T) {
	svc, memory := newTestService(t)
	cmd := NewCreateRecordCommand(portal.SelectQuotes, nil)
	for _, role := range []portal.Role{portal.RoleAdmin, portal.RoleUser} {
		err := cmd.Execute(context.Background(), CreateRecordInput[portal.Quote, portal.QuoteStatusForm]{
			Workspace: workspace(t, svc),
			Role:      role,
			Form:      portal.QuoteStatusForm{Status: string(portal.QuotePending)},
		})
		if !errors.Is(err, portal.ErrForbidden) {
			t.Fatalf("%s: expected forbidden, got %v", role, err)
		}
	}
	if memory.Len(portal.ResourceQuotes) != 0 {
		t.Fatalf("quotes must only be created by the wizard")
	}
}

func TestUpdateRecordCommand(t *testing.T) {
	svc, memory := newTestService(t)
	if err := memory.Seed(portal.ResourceUsers, portal.User{ID: "u9", Name: "Ann", Code: "A1", Status: portal.UserActive}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ws := workspace(t, svc)
	if err := ws.Users.List(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}
	cmd := NewUpdateRecordCommand(portal.SelectUsers, nil)
	var updated portal.User
	err := cmd.Execute(context.Background(), UpdateRecordInput[portal.User, portal.UserForm]{
		Workspace: ws,
		Role:      portal.RoleAdmin,
		ID:        "u9",
		Form:      portal.UserForm{Name: "Ann", Code: "A1", Status: "Inactive"},
		Result:    &updated,
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if updated.Status != portal.UserInactive {
		t.Fatalf("expected inactive, got %s", updated.Status)
	}
	if err := cmd.Execute(context.Background(), UpdateRecordInput[portal.User, portal.UserForm]{Workspace: ws, Role: portal.RoleAdmin}); err == nil {
		t.Fatalf("expected missing id rejected")
	}
}

func TestDeleteRecordCommand(t *testing.T) {
	svc, memory := newTestService(t)
	if err := memory.Seed(portal.ResourceTickets, portal.Ticket{ID: "t1", Subject: "Claim"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cmd := NewDeleteRecordCommand(portal.SelectTickets, nil)
	if err := cmd.Execute(context.Background(), DeleteRecordInput{Workspace: workspace(t, svc), Role: portal.RoleUser, ID: "t1"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if memory.Len(portal.ResourceTickets) != 0 {
		t.Fatalf("expected ticket removed")
	}
}

func TestQuoteWizardCommands(t *testing.T) {
	svc, memory := newTestService(t)
	ws := workspace(t, svc)
	ctx := context.Background()
	advance := NewAdvanceQuoteCommand(nil)

	if err := advance.Execute(ctx, QuoteStepInput{Workspace: ws, Data: portal.CustomerDetails{FirstName: "Jane", LastName: "Roe", Email: "jane@x.com"}}); err != nil {
		t.Fatalf("customer step: %v", err)
	}
	if err := NewRewindQuoteCommand().Execute(ctx, QuoteWizardInput{Workspace: ws}); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if err := advance.Execute(ctx, QuoteStepInput{Workspace: ws, Data: portal.CustomerDetails{FirstName: "Jane", LastName: "Roe", Email: "jane@x.com"}}); err != nil {
		t.Fatalf("customer step: %v", err)
	}
	if err := advance.Execute(ctx, QuoteStepInput{Workspace: ws, Data: portal.VehicleDetails{Make: "Ford", Model: "Focus", Year: "2020"}}); err != nil {
		t.Fatalf("vehicle step: %v", err)
	}

	submit := NewSubmitQuoteCommand(nil)
	if err := submit.Execute(ctx, SubmitQuoteInput{Workspace: ws, Role: portal.RoleAdmin}); !errors.Is(err, portal.ErrForbidden) {
		t.Fatalf("expected admin submission rejected, got %v", err)
	}
	var quote portal.Quote
	if err := submit.Execute(ctx, SubmitQuoteInput{Workspace: ws, Role: portal.RoleUser, Insurance: portal.InsuranceDetails{Amount: "500"}, Result: &quote}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if quote.ID == "" || quote.Status != portal.QuotePending || memory.Len(portal.ResourceQuotes) != 1 {
		t.Fatalf("unexpected quote %+v", quote)
	}

	if err := NewResetQuoteCommand().Execute(ctx, QuoteWizardInput{Workspace: ws}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	wizard, _ := ws.Wizard(ctx)
	if wizard.State().Step != portal.StepCustomer {
		t.Fatalf("expected wizard reset")
	}
}

func TestAuthCommands(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var redirect string
	login := NewLoginCommand(svc, nil)
	if err := login.Execute(ctx, LoginInput{ClientID: "c1", Credentials: portal.Credentials{Email: "ann@x.com", Password: "secret"}, Redirect: &redirect}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if redirect != portal.PathAdminHome {
		t.Fatalf("expected admin landing, got %s", redirect)
	}
	if _, _, _, err := svc.Authorize(ctx, "c1", portal.RoleAdmin); err != nil {
		t.Fatalf("expected admin session: %v", err)
	}

	logout := NewLogoutCommand(svc, nil)
	if err := logout.Execute(ctx, LogoutInput{ClientID: "c1", Role: portal.RoleAdmin, Redirect: &redirect}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if redirect != portal.PathHome {
		t.Fatalf("expected home, got %s", redirect)
	}
	if _, _, _, err := svc.Authorize(ctx, "c1", portal.RoleAdmin); !errors.Is(err, portal.ErrUnauthenticated) {
		t.Fatalf("expected session removed, got %v", err)
	}

	signup := NewSignupCommand(svc.Auth(), nil)
	if err := signup.Execute(ctx, SignupInput{Form: portal.SignupForm{Name: "Cy", Email: "cy@x.com", Password: "secret1"}, Redirect: &redirect}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if redirect != portal.PathLogin {
		t.Fatalf("expected login redirect, got %s", redirect)
	}
	if err := login.Execute(ctx, LoginInput{ClientID: "c2", Credentials: portal.Credentials{Email: "cy@x.com", Password: "secret1"}}); err != nil {
		t.Fatalf("login after signup: %v", err)
	}
}

func TestChargePaymentCommand(t *testing.T) {
	svc, _ := newTestService(t)
	var result portal.PaymentResult
	cmd := NewChargePaymentCommand(svc.Payments(), nil)
	err := cmd.Execute(context.Background(), ChargePaymentInput{
		Form:   portal.PaymentForm{Email: "ann@x.com", Amount: "75", Method: "card", Token: "tok_1"},
		Result: &result,
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if err := NewChargePaymentCommand(nil, nil).Execute(context.Background(), ChargePaymentInput{}); err == nil {
		t.Fatalf("expected missing gateway rejected")
	}
}

func TestSaveProfileCommand(t *testing.T) {
	svc, _ := newTestService(t)
	ws := workspace(t, svc)
	profile := portal.DefaultProfile()
	profile.Name = "Jane Roe"
	if err := NewSaveProfileCommand().Execute(context.Background(), SaveProfileInput{Workspace: ws, Profile: profile}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if ws.Profile.Current().Name != "Jane Roe" {
		t.Fatalf("expected profile replaced")
	}
	if _, ok, _ := ws.Storage.Get(context.Background(), portal.StorageKeyProfile); ok {
		t.Fatalf("profile must not be persisted")
	}
}
