package apiclient

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	portal "github.com/goliatone/go-insurance/components/portal"
)

func newMemoryClients(t *testing.T, opts MemoryOptions) (*Memory, portal.APIClients) {
	t.Helper()
	memory := NewMemory(opts)
	client := newTestClient(t, memory)
	clients, err := Bind(client, BindOptions{PaymentEndpoint: PaymentEndpoint, VerifySessions: true})
	require.NoError(t, err)
	return memory, clients
}

func TestMemoryResourceLifecycle(t *testing.T) {
	memory, clients := newMemoryClients(t, MemoryOptions{})
	ctx := context.Background()

	created, err := clients.Policies.Create(ctx, portal.Policy{Provider: "Acme", PolicyNumber: "P-1", Coverage: "Full", PremiumAmount: 120.5})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Acme", created.Provider)

	items, err := clients.Policies.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, created, items[0])

	got, err := clients.Policies.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	require.NoError(t, clients.Policies.Delete(ctx, created.ID))
	assert.Equal(t, 0, memory.Len(portal.ResourcePolicies))

	err = clients.Policies.Delete(ctx, created.ID)
	assert.Equal(t, http.StatusNotFound, portal.StatusCode(err))
}

func TestMemoryQuoteDefaultsAndStatusUpdate(t *testing.T) {
	_, clients := newMemoryClients(t, MemoryOptions{})
	ctx := context.Background()

	quote, err := clients.Quotes.Create(ctx, portal.Quote{FirstName: "Jane", LastName: "Roe", Email: "jane@x.com", Make: "Ford", Model: "Focus", Year: "2020", Amount: "500"})
	require.NoError(t, err)
	assert.Equal(t, portal.QuotePending, quote.Status)
	assert.False(t, quote.CreatedAt.IsZero())

	updated, err := clients.Quotes.Update(ctx, quote.ID, portal.Quote{Status: portal.QuoteCompleted})
	require.NoError(t, err)
	assert.Equal(t, portal.QuoteCompleted, updated.Status)
	assert.Equal(t, "Jane", updated.FirstName, "fields not sent are kept")
}

func TestMemoryAuth(t *testing.T) {
	_, clients := newMemoryClients(t, MemoryOptions{Accounts: []Account{
		{ID: "a1", Name: "Ann", Email: "ann@x.com", Password: "secret", Role: "Admin"},
	}})
	ctx := context.Background()

	result, err := clients.Auth.Login(ctx, portal.Credentials{Email: "ANN@x.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, portal.LoginResult{ID: "a1", Name: "Ann", Role: "Admin"}, result)

	_, err = clients.Auth.Login(ctx, portal.Credentials{Email: "ann@x.com", Password: "nope"})
	assert.Equal(t, "Invalid email or password", portal.UserMessage(err))

	require.NoError(t, clients.Auth.Signup(ctx, portal.SignupForm{Name: "Bob", Email: "bob@x.com", Password: "secret1"}))
	err = clients.Auth.Signup(ctx, portal.SignupForm{Name: "Bob", Email: "bob@x.com", Password: "secret1"})
	assert.Equal(t, "Email already registered", portal.UserMessage(err))

	bob, err := clients.Auth.Login(ctx, portal.Credentials{Email: "bob@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "User", bob.Role)

	assert.NoError(t, clients.Verifier.VerifySession(ctx, portal.Session{Subject: "a1", Role: portal.RoleAdmin}))
	assert.Error(t, clients.Verifier.VerifySession(ctx, portal.Session{Subject: "ghost", Role: portal.RoleUser}))
}

func TestMemoryPayments(t *testing.T) {
	_, clients := newMemoryClients(t, MemoryOptions{PaymentLimit: 1000})
	ctx := context.Background()

	result, err := clients.Payments.Charge(ctx, portal.PaymentRequest{Email: "a@x.com", Amount: 250, Method: portal.PaymentCard})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Payment of $250.00 received", result.Message)

	result, err = clients.Payments.Charge(ctx, portal.PaymentRequest{Email: "a@x.com", Amount: 5000, Method: portal.PaymentCard})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestMemorySeed(t *testing.T) {
	memory, clients := newMemoryClients(t, MemoryOptions{})
	require.NoError(t, memory.Seed(portal.ResourceUsers,
		portal.User{ID: "u1", Name: "Ann", Code: "A1", Status: portal.UserActive},
		portal.User{Name: "Bob", Code: "B1", Status: portal.UserInactive},
	))
	users, err := clients.Users.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
	assert.NotEmpty(t, users[1].ID)

	assert.Error(t, memory.Seed("claims", map[string]any{}))
}
