package portal

import (
	"context"
	"errors"
	"testing"
)

type stubAuthenticator struct {
	result  LoginResult
	err     error
	signups []SignupForm
}

func (s *stubAuthenticator) Login(context.Context, Credentials) (LoginResult, error) {
	return s.result, s.err
}

func (s *stubAuthenticator) Signup(_ context.Context, form SignupForm) error {
	s.signups = append(s.signups, form)
	return s.err
}

func newTestAuth(t *testing.T, api Authenticator) *AuthService {
	t.Helper()
	auth, err := NewAuthService(api, newTestSessions(t, nil), nil)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	return auth
}

func TestLoginAdminStoresAdminSession(t *testing.T) {
	auth := newTestAuth(t, &stubAuthenticator{result: LoginResult{ID: "a1", Name: "Ann", Role: "Admin"}})
	store := NewInMemoryStorage().ForClient("c1")
	ctx := context.Background()

	session, redirect, err := auth.Login(ctx, store, Credentials{Email: "ann@x.com", Password: "secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if redirect != PathAdminHome {
		t.Fatalf("expected %s, got %s", PathAdminHome, redirect)
	}
	if session.Role != RoleAdmin {
		t.Fatalf("expected admin role, got %s", session.Role)
	}
	token, ok, _ := store.Get(ctx, StorageKeyAdminAuthenticated)
	if !ok || token != session.Token {
		t.Fatalf("expected token stored under admin key")
	}
	if _, ok, _ := store.Get(ctx, StorageKeyUserAuthenticated); ok {
		t.Fatalf("user key must stay empty")
	}
	if role, _, _ := store.Get(ctx, StorageKeyRole); role != "Admin" {
		t.Fatalf("expected role stored, got %q", role)
	}
	if _, err := (Gate{Role: RoleAdmin, Sessions: auth.Sessions()}).Check(ctx, store); err != nil {
		t.Fatalf("admin gate should open: %v", err)
	}
}

func TestLoginRegularUser(t *testing.T) {
	auth := newTestAuth(t, &stubAuthenticator{result: LoginResult{Name: "Bob", Role: "customer"}})
	store := NewInMemoryStorage().ForClient("c1")
	_, redirect, err := auth.Login(context.Background(), store, Credentials{Email: "bob@x.com", Password: "secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if redirect != PathUserHome {
		t.Fatalf("expected %s, got %s", PathUserHome, redirect)
	}
	if _, ok, _ := store.Get(context.Background(), StorageKeyUserAuthenticated); !ok {
		t.Fatalf("expected user session stored")
	}
}

func TestLoginFailureStoresNothing(t *testing.T) {
	auth := newTestAuth(t, &stubAuthenticator{err: NewAPIError("login", 401, "Invalid credentials")})
	store := NewInMemoryStorage().ForClient("c1")
	_, _, err := auth.Login(context.Background(), store, Credentials{Email: "bob@x.com", Password: "nope"})
	if UserMessage(err) != "Invalid credentials" {
		t.Fatalf("expected server message, got %v", err)
	}
	if _, ok, _ := store.Get(context.Background(), StorageKeyUserAuthenticated); ok {
		t.Fatalf("no session expected after failed login")
	}
}

func TestLogoutRemovesOnlyThatRole(t *testing.T) {
	auth := newTestAuth(t, &stubAuthenticator{result: LoginResult{Name: "Ann", Role: "Admin"}})
	store := NewInMemoryStorage().ForClient("c1")
	ctx := context.Background()
	if _, _, err := auth.Login(ctx, store, Credentials{Email: "ann@x.com", Password: "secret"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	_ = store.Set(ctx, StorageKeyUserAuthenticated, "user-token")

	redirect, err := auth.Logout(ctx, store, RoleAdmin)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if redirect != PathHome {
		t.Fatalf("expected redirect to /, got %s", redirect)
	}
	if _, ok, _ := store.Get(ctx, StorageKeyAdminAuthenticated); ok {
		t.Fatalf("admin key should be removed")
	}
	if _, ok, _ := store.Get(ctx, StorageKeyUserAuthenticated); !ok {
		t.Fatalf("user key must survive admin logout")
	}
	if _, ok, _ := store.Get(ctx, StorageKeyRole); !ok {
		t.Fatalf("role key kept while another session remains")
	}
	if _, err := auth.Logout(ctx, store, RoleUser); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok, _ := store.Get(ctx, StorageKeyRole); ok {
		t.Fatalf("role key should be removed with the last session")
	}
}

func TestSignupValidatesBeforeCallingAPI(t *testing.T) {
	api := &stubAuthenticator{}
	auth := newTestAuth(t, api)
	_, err := auth.Signup(context.Background(), SignupForm{Name: "Ann", Email: "not-an-email", Password: "secret1"})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(api.signups) != 0 {
		t.Fatalf("signup must not be sent")
	}
	redirect, err := auth.Signup(context.Background(), SignupForm{Name: "Ann", Email: "ann@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if redirect != PathLogin || len(api.signups) != 1 {
		t.Fatalf("expected signup sent and redirect to login")
	}
}
