package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Landing pages after auth transitions.
const (
	PathLogin     = "/login"
	PathHome      = "/"
	PathAdminHome = "/admin/users"
	PathUserHome  = "/user/home"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	return requireFields(map[string]string{"email": c.Email, "password": c.Password})
}

// LoginResult is the API's answer to a successful login.
type LoginResult struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type SignupForm struct {
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (f SignupForm) Validate() error {
	if err := requireFields(map[string]string{
		"name":     f.Name,
		"email":    f.Email,
		"password": f.Password,
	}); err != nil {
		return err
	}
	if err := validEmail("email", f.Email); err != nil {
		return err
	}
	if len(f.Password) < 6 {
		return &ValidationError{Field: "password", Message: "Password must be at least 6 characters."}
	}
	return nil
}

// Authenticator is the API's auth surface.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (LoginResult, error)
	Signup(ctx context.Context, form SignupForm) error
}

// AuthService performs login, signup and logout against client storage.
type AuthService struct {
	api       Authenticator
	sessions  *SessionManager
	telemetry Telemetry
}

// NewAuthService wires the auth flow.
func NewAuthService(api Authenticator, sessions *SessionManager, telemetry Telemetry) (*AuthService, error) {
	if api == nil {
		return nil, errors.New("portal: auth service requires an authenticator")
	}
	if sessions == nil {
		return nil, errors.New("portal: auth service requires a session manager")
	}
	return &AuthService{api: api, sessions: sessions, telemetry: normalizeTelemetry(telemetry)}, nil
}

// Sessions exposes the session manager for gates.
func (s *AuthService) Sessions() *SessionManager { return s.sessions }

// Login authenticates creds and stores a session token under the flag key
// for the returned role. It returns the page to redirect to.
func (s *AuthService) Login(ctx context.Context, store Storage, creds Credentials) (Session, string, error) {
	if err := creds.Validate(); err != nil {
		return Session{}, "", err
	}
	creds.Email = strings.TrimSpace(creds.Email)
	result, err := s.api.Login(ctx, creds)
	if err != nil {
		s.telemetry.Record(ctx, "portal.auth.login_failed", map[string]any{"email": creds.Email, "error": err.Error()})
		return Session{}, "", fmt.Errorf("portal: login: %w", err)
	}
	role := ParseRole(result.Role)
	subject := result.ID
	if subject == "" {
		subject = creds.Email
	}
	session, err := s.sessions.Issue(subject, result.Name, role)
	if err != nil {
		return Session{}, "", err
	}
	if err := store.Set(ctx, FlagKey(role), session.Token); err != nil {
		return Session{}, "", fmt.Errorf("portal: store session: %w", err)
	}
	if err := store.Set(ctx, StorageKeyRole, result.Role); err != nil {
		return Session{}, "", fmt.Errorf("portal: store role: %w", err)
	}
	s.telemetry.Record(ctx, "portal.auth.login", map[string]any{"subject": subject, "role": string(role)})
	if role == RoleAdmin {
		return session, PathAdminHome, nil
	}
	return session, PathUserHome, nil
}

// Signup registers a new account and returns the login page.
func (s *AuthService) Signup(ctx context.Context, form SignupForm) (string, error) {
	if err := form.Validate(); err != nil {
		return "", err
	}
	if err := s.api.Signup(ctx, form); err != nil {
		return "", fmt.Errorf("portal: signup: %w", err)
	}
	s.telemetry.Record(ctx, "portal.auth.signup", map[string]any{"email": form.Email})
	return PathLogin, nil
}

// Logout removes role's session. The role key goes once no session remains.
func (s *AuthService) Logout(ctx context.Context, store Storage, role Role) (string, error) {
	if err := store.Delete(ctx, FlagKey(role)); err != nil {
		return "", fmt.Errorf("portal: logout: %w", err)
	}
	other := RoleUser
	if role == RoleUser {
		other = RoleAdmin
	}
	if _, ok, err := store.Get(ctx, FlagKey(other)); err == nil && !ok {
		if err := store.Delete(ctx, StorageKeyRole); err != nil {
			return "", fmt.Errorf("portal: logout: %w", err)
		}
	}
	s.telemetry.Record(ctx, "portal.auth.logout", map[string]any{"role": string(role)})
	return PathHome, nil
}
