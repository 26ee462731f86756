package apiclient

import (
	"context"
	"net/http"
	"net/url"

	portal "github.com/goliatone/go-insurance/components/portal"
)

// Auth calls the API's auth endpoints.
type Auth struct {
	client *Client
}

// NewAuth binds the auth endpoints to client.
func NewAuth(client *Client) *Auth {
	return &Auth{client: client}
}

var (
	_ portal.Authenticator   = (*Auth)(nil)
	_ portal.SessionVerifier = (*Auth)(nil)
)

// Login posts the credentials to /api/auth/login.
func (a *Auth) Login(ctx context.Context, creds portal.Credentials) (portal.LoginResult, error) {
	var result portal.LoginResult
	if err := a.client.do(ctx, "login", http.MethodPost, "/api/auth/login", creds, &result); err != nil {
		return portal.LoginResult{}, err
	}
	if result.Role == "" && result.Name == "" {
		return portal.LoginResult{}, unexpected("login", "empty login result")
	}
	return result, nil
}

// Signup posts the registration form to /api/auth/signup.
func (a *Auth) Signup(ctx context.Context, form portal.SignupForm) error {
	return a.client.do(ctx, "signup", http.MethodPost, "/api/auth/signup", form, nil)
}

// VerifySession asks the API whether the session's subject is still valid.
func (a *Auth) VerifySession(ctx context.Context, session portal.Session) error {
	query := url.Values{}
	query.Set("subject", session.Subject)
	query.Set("role", string(session.Role))
	return a.client.do(ctx, "verify session", http.MethodGet, "/api/auth/verify?"+query.Encode(), nil, nil)
}
