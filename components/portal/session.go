package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role separates the admin console from the customer area.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole maps the API role text onto a portal role. Anything that is not
// "admin" (case-insensitive) is a regular user.
func ParseRole(raw string) Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// FlagKey returns the storage key holding the session token for role.
func FlagKey(role Role) string {
	if role == RoleAdmin {
		return StorageKeyAdminAuthenticated
	}
	return StorageKeyUserAuthenticated
}

// Session is an authenticated identity decoded from a session token.
type Session struct {
	Token     string
	Subject   string
	Name      string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionClaims struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

// SessionOptions configures token signing.
type SessionOptions struct {
	Secret string
	TTL    time.Duration
	Issuer string
	Now    func() time.Time
}

// SessionManager signs and verifies HS256 session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewSessionManager validates options and applies defaults.
func NewSessionManager(opts SessionOptions) (*SessionManager, error) {
	if len(opts.Secret) < 16 {
		return nil, errors.New("portal: session secret must be at least 16 bytes")
	}
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	if opts.Issuer == "" {
		opts.Issuer = "go-insurance"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionManager{
		secret: []byte(opts.Secret),
		ttl:    opts.TTL,
		issuer: opts.Issuer,
		now:    opts.Now,
	}, nil
}

// Issue signs a new session for subject.
func (m *SessionManager) Issue(subject, name string, role Role) (Session, error) {
	now := m.now().Truncate(time.Second)
	claims := sessionClaims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Session{}, fmt.Errorf("portal: sign session: %w", err)
	}
	return Session{
		Token:     token,
		Subject:   subject,
		Name:      name,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}, nil
}

// Parse verifies token and returns its session. Every failure is reported as
// ErrUnauthenticated.
func (m *SessionManager) Parse(token string) (Session, error) {
	if strings.TrimSpace(token) == "" {
		return Session{}, ErrUnauthenticated
	}
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithTimeFunc(m.now),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Session{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || claims.Role == "" {
		return Session{}, fmt.Errorf("%w: invalid claims", ErrUnauthenticated)
	}
	session := Session{
		Token:   token,
		Subject: claims.Subject,
		Name:    claims.Name,
		Role:    claims.Role,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// SessionVerifier optionally confirms a session with the API.
type SessionVerifier interface {
	VerifySession(ctx context.Context, session Session) error
}

// Gate guards one role's area. It fails closed.
type Gate struct {
	Role     Role
	Sessions *SessionManager
	Verifier SessionVerifier
}

// Check returns the session stored for the gate's role, or ErrUnauthenticated.
func (g Gate) Check(ctx context.Context, store Storage) (Session, error) {
	if g.Sessions == nil || store == nil {
		return Session{}, ErrUnauthenticated
	}
	token, ok, err := store.Get(ctx, FlagKey(g.Role))
	if err != nil || !ok {
		return Session{}, ErrUnauthenticated
	}
	session, err := g.Sessions.Parse(token)
	if err != nil {
		return Session{}, err
	}
	if session.Role != g.Role {
		return Session{}, fmt.Errorf("%w: session role %s does not open %s area", ErrUnauthenticated, session.Role, g.Role)
	}
	if g.Verifier != nil {
		if err := g.Verifier.VerifySession(ctx, session); err != nil {
			return Session{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
	}
	return session, nil
}
