package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	portal "github.com/goliatone/go-insurance/components/portal"
	"github.com/goliatone/go-insurance/components/portal/commands"
	"github.com/goliatone/go-insurance/pkg/apiclient"
)

type stubCommander[T any] struct {
	last  T
	calls int
	err   error
}

func (s *stubCommander[T]) Execute(ctx context.Context, msg T) error {
	s.last = msg
	s.calls++
	return s.err
}

type testPortal struct {
	memory *apiclient.Memory
	server *httptest.Server
	client *http.Client
}

func newTestPortal(t *testing.T) *testPortal {
	t.Helper()
	memory := apiclient.NewMemory(apiclient.MemoryOptions{
		Accounts: []apiclient.Account{
			{ID: "a1", Name: "Ann", Email: "ann@x.com", Password: "secret", Role: "Admin"},
			{ID: "u1", Name: "Bob", Email: "bob@x.com", Password: "secret", Role: "User"},
		},
		PaymentLimit: 1000,
	})
	upstream := httptest.NewServer(memory)
	t.Cleanup(upstream.Close)
	client, err := apiclient.NewClient(apiclient.Config{BaseURL: upstream.URL})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	clients, err := apiclient.Bind(client, apiclient.BindOptions{PaymentEndpoint: apiclient.PaymentEndpoint})
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
	api, err := NewAPI(svc, nil)
	if err != nil {
		t.Fatalf("api: %v", err)
	}
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)
	jar, _ := cookiejar.New(nil)
	return &testPortal{memory: memory, server: server, client: &http.Client{Jar: jar}}
}

func (p *testPortal) call(t *testing.T, method, path string, payload any) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, p.server.URL+path, body)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func (p *testPortal) login(t *testing.T, email string) string {
	t.Helper()
	status, body := p.call(t, http.MethodPost, "/api/auth/login", portal.Credentials{Email: email, Password: "secret"})
	if status != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, status, body)
	}
	var reply RedirectBody
	_ = json.Unmarshal(body, &reply)
	return reply.Redirect
}

func messageOf(body []byte) string {
	var reply ErrorBody
	_ = json.Unmarshal(body, &reply)
	return reply.Message
}

func TestAPIRequiresSession(t *testing.T) {
	p := newTestPortal(t)
	status, body := p.call(t, http.MethodGet, "/api/admin/policies", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if messageOf(body) == "" {
		t.Fatalf("expected message body")
	}
}

func TestAPIAdminPolicyLifecycle(t *testing.T) {
	p := newTestPortal(t)
	if redirect := p.login(t, "ann@x.com"); redirect != portal.PathAdminHome {
		t.Fatalf("expected admin landing, got %s", redirect)
	}

	status, body := p.call(t, http.MethodPost, "/api/admin/policies", portal.PolicyForm{
		Provider: "Acme", PolicyNumber: "P-1", Coverage: "Full", PremiumAmount: "120.50",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", status, body)
	}
	var created portal.Policy
	if err := json.Unmarshal(body, &created); err != nil || created.ID == "" {
		t.Fatalf("unexpected body %s", body)
	}

	status, body = p.call(t, http.MethodGet, "/api/admin/policies", nil)
	var items []portal.Policy
	if status != http.StatusOK || json.Unmarshal(body, &items) != nil || len(items) != 1 {
		t.Fatalf("unexpected list %d %s", status, body)
	}

	status, body = p.call(t, http.MethodPost, "/api/admin/policies", portal.PolicyForm{
		Provider: "Acme", PolicyNumber: "P-2", Coverage: "Full", PremiumAmount: "abc",
	})
	if status != http.StatusUnprocessableEntity || messageOf(body) != "Premium amount must be a valid positive number." {
		t.Fatalf("expected validation failure, got %d %s", status, body)
	}

	status, _ = p.call(t, http.MethodDelete, "/api/admin/policies/"+created.ID, nil)
	if status != http.StatusOK || p.memory.Len(portal.ResourcePolicies) != 0 {
		t.Fatalf("expected policy deleted, got %d", status)
	}
}

func TestAPIAcceptsNumericAmounts(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "ann@x.com")

	status, body := p.call(t, http.MethodPost, "/api/admin/policies", map[string]any{
		"provider":      "Acme",
		"policyNumber":  "P-9",
		"coverage":      "Full",
		"premiumAmount": 120.50,
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", status, body)
	}
	var created portal.Policy
	if err := json.Unmarshal(body, &created); err != nil || created.PremiumAmount != 120.5 {
		t.Fatalf("unexpected body %s", body)
	}

	status, body = p.call(t, http.MethodPost, "/api/admin/reports", map[string]any{
		"name": "Q1", "survey": "NPS", "employeesCount": 12,
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 for numeric employee count, got %d %s", status, body)
	}

	status, body = p.call(t, http.MethodPost, "/api/admin/policies", map[string]any{
		"provider": "Acme", "policyNumber": "P-10", "coverage": "Full", "premiumAmount": true,
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a boolean premium, got %d %s", status, body)
	}
}

func TestAPIRoleRules(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "bob@x.com")

	status, _ := p.call(t, http.MethodGet, "/api/admin/policies", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("user session must not open the admin area, got %d", status)
	}
	status, _ = p.call(t, http.MethodPost, "/api/user/policies", portal.PolicyForm{Provider: "Acme", PolicyNumber: "P-1", Coverage: "Full", PremiumAmount: "1"})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for user policy create, got %d", status)
	}
	status, _ = p.call(t, http.MethodPost, "/api/user/quotes", map[string]any{"status": "Pending"})
	if status != http.StatusForbidden {
		t.Fatalf("quotes are only created by the wizard, got %d", status)
	}
	if p.memory.Len(portal.ResourceQuotes) != 0 {
		t.Fatalf("rejected quote must not be stored")
	}
	status, _ = p.call(t, http.MethodGet, "/api/user/claims", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown resource, got %d", status)
	}
}

func TestAPIQuoteWizard(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "bob@x.com")

	steps := []map[string]any{
		{"step": 1, "firstName": "Jane", "lastName": "Roe", "email": "jane@x.com"},
		{"step": 2, "make": "Ford", "model": "Focus", "year": "2020"},
	}
	for _, step := range steps {
		if status, body := p.call(t, http.MethodPost, "/api/user/quote-request/next", step); status != http.StatusOK {
			t.Fatalf("next: %d %s", status, body)
		}
	}
	status, body := p.call(t, http.MethodPost, "/api/user/quote-request/submit", portal.InsuranceDetails{
		RequiredPolicy: portal.RequiredPolicy{Comprehensive: true},
		Amount:         "500",
	})
	if status != http.StatusOK {
		t.Fatalf("submit: %d %s", status, body)
	}
	var wizard WizardBody
	if err := json.Unmarshal(body, &wizard); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wizard.Step != portal.StepConfirmation || wizard.Result == nil || wizard.Result.ID == "" {
		t.Fatalf("unexpected wizard %+v", wizard)
	}
	if p.memory.Len(portal.ResourceQuotes) != 1 {
		t.Fatalf("expected one quote stored")
	}
}

func TestAPIPaymentsAndStats(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "ann@x.com")

	status, body := p.call(t, http.MethodPost, "/api/admin/payments", portal.PaymentForm{Email: "ann@x.com", Amount: "5000", Method: "card"})
	if status != http.StatusPaymentRequired || messageOf(body) != "Payment declined: amount exceeds limit" {
		t.Fatalf("expected decline, got %d %s", status, body)
	}
	status, body = p.call(t, http.MethodGet, "/api/admin/stats", nil)
	if status != http.StatusOK {
		t.Fatalf("stats: %d %s", status, body)
	}
}

func TestAPILogoutClosesSession(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "bob@x.com")
	status, body := p.call(t, http.MethodPost, "/api/auth/logout/user", nil)
	if status != http.StatusOK {
		t.Fatalf("logout: %d %s", status, body)
	}
	if status, _ := p.call(t, http.MethodGet, "/api/user/tickets", nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", status)
	}
}

func TestLoginUsesCommander(t *testing.T) {
	login := &stubCommander[commands.LoginInput]{err: portal.NewAPIError("login", http.StatusUnauthorized, "Invalid email or password")}
	api := &API{LoginCommander: login}
	reply := api.Login(context.Background(), "c1", []byte(`{"email":"a@x.com","password":"x"}`))
	if login.calls != 1 || login.last.ClientID != "c1" {
		t.Fatalf("expected login executed for client")
	}
	if reply.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", reply.Status)
	}
	if body, ok := reply.Body.(ErrorBody); !ok || body.Message != "Invalid email or password" {
		t.Fatalf("unexpected body %+v", reply.Body)
	}
	if reply := api.Login(context.Background(), "c1", nil); reply.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected empty body rejected, got %d", reply.Status)
	}
}

func TestErrorReplyFallsBackToStatusText(t *testing.T) {
	reply := errorReply(portal.ErrViewClosed)
	if reply.Status != http.StatusGone {
		t.Fatalf("expected 410, got %d", reply.Status)
	}
	if body := reply.Body.(ErrorBody); body.Message != http.StatusText(http.StatusGone) {
		t.Fatalf("unexpected message %q", body.Message)
	}
}
