package portal

import (
	"context"
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestSessions(t *testing.T, now func() time.Time) *SessionManager {
	t.Helper()
	sessions, err := NewSessionManager(SessionOptions{Secret: testSecret, TTL: time.Hour, Now: now})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	return sessions
}

func TestGateRejectsMissingAndLegacyFlags(t *testing.T) {
	sessions := newTestSessions(t, nil)
	store := NewInMemoryStorage().ForClient("c1")
	ctx := context.Background()
	gate := Gate{Role: RoleAdmin, Sessions: sessions}

	if _, err := gate.Check(ctx, store); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated without flag, got %v", err)
	}
	_ = store.Set(ctx, StorageKeyAdminAuthenticated, "true")
	if _, err := gate.Check(ctx, store); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected legacy sentinel rejected, got %v", err)
	}
}

func TestGateAcceptsValidTokenForRole(t *testing.T) {
	sessions := newTestSessions(t, nil)
	store := NewInMemoryStorage().ForClient("c1")
	ctx := context.Background()

	session, err := sessions.Issue("u1", "Ann", RoleAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_ = store.Set(ctx, StorageKeyAdminAuthenticated, session.Token)

	got, err := Gate{Role: RoleAdmin, Sessions: sessions}.Check(ctx, store)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if got.Subject != "u1" || got.Name != "Ann" || got.Role != RoleAdmin {
		t.Fatalf("unexpected session %+v", got)
	}
	if _, err := (Gate{Role: RoleUser, Sessions: sessions}).Check(ctx, store); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("admin session must not open the user area, got %v", err)
	}
}

func TestGateRejectsWrongRoleToken(t *testing.T) {
	sessions := newTestSessions(t, nil)
	store := NewInMemoryStorage().ForClient("c1")
	ctx := context.Background()
	session, _ := sessions.Issue("u1", "Ann", RoleUser)
	_ = store.Set(ctx, StorageKeyAdminAuthenticated, session.Token)

	if _, err := (Gate{Role: RoleAdmin, Sessions: sessions}).Check(ctx, store); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected user token under admin key rejected, got %v", err)
	}
}

func TestGateRejectsExpiredToken(t *testing.T) {
	now := time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	sessions := newTestSessions(t, clock)
	store := NewInMemoryStorage().ForClient("c1")
	ctx := context.Background()
	session, _ := sessions.Issue("u1", "Ann", RoleUser)
	_ = store.Set(ctx, StorageKeyUserAuthenticated, session.Token)

	gate := Gate{Role: RoleUser, Sessions: sessions}
	if _, err := gate.Check(ctx, store); err != nil {
		t.Fatalf("expected fresh token accepted: %v", err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := gate.Check(ctx, store); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}

func TestGateRejectsTamperedAndForeignTokens(t *testing.T) {
	sessions := newTestSessions(t, nil)
	other, err := NewSessionManager(SessionOptions{Secret: "another-secret-of-32-bytes-long!"})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	store := NewInMemoryStorage().ForClient("c1")
	ctx := context.Background()
	gate := Gate{Role: RoleUser, Sessions: sessions}

	foreign, _ := other.Issue("u1", "Ann", RoleUser)
	_ = store.Set(ctx, StorageKeyUserAuthenticated, foreign.Token)
	if _, err := gate.Check(ctx, store); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected foreign token rejected, got %v", err)
	}

	session, _ := sessions.Issue("u1", "Ann", RoleUser)
	tampered := session.Token[:len(session.Token)-2] + "xx"
	_ = store.Set(ctx, StorageKeyUserAuthenticated, tampered)
	if _, err := gate.Check(ctx, store); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected tampered token rejected, got %v", err)
	}
}

type rejectingVerifier struct{}

func (rejectingVerifier) VerifySession(context.Context, Session) error {
	return errors.New("revoked")
}

func TestGateConsultsVerifier(t *testing.T) {
	sessions := newTestSessions(t, nil)
	store := NewInMemoryStorage().ForClient("c1")
	ctx := context.Background()
	session, _ := sessions.Issue("u1", "Ann", RoleUser)
	_ = store.Set(ctx, StorageKeyUserAuthenticated, session.Token)

	gate := Gate{Role: RoleUser, Sessions: sessions, Verifier: rejectingVerifier{}}
	if _, err := gate.Check(ctx, store); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected verifier rejection to fail closed, got %v", err)
	}
}

func TestNewSessionManagerRequiresSecret(t *testing.T) {
	if _, err := NewSessionManager(SessionOptions{Secret: "short"}); err == nil {
		t.Fatalf("expected short secret rejected")
	}
}
