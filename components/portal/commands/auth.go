package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	portal "github.com/goliatone/go-insurance/components/portal"
)

type sessionService interface {
	Login(ctx context.Context, clientID string, creds portal.Credentials) (portal.Session, string, error)
	Logout(ctx context.Context, clientID string, role portal.Role) (string, error)
}

type signupService interface {
	Signup(ctx context.Context, form portal.SignupForm) (string, error)
}

// LoginInput authenticates a client. Redirect receives the landing page.
type LoginInput struct {
	ClientID    string
	Credentials portal.Credentials
	Redirect    *string
}

// LogoutInput ends one role's session of a client.
type LogoutInput struct {
	ClientID string
	Role     portal.Role
	Redirect *string
}

// SignupInput registers a new account.
type SignupInput struct {
	Form     portal.SignupForm
	Redirect *string
}

// LoginCommand stores a session for the client on success.
type LoginCommand struct {
	service   sessionService
	telemetry Telemetry
}

// NewLoginCommand creates the command.
func NewLoginCommand(service sessionService, telemetry Telemetry) *LoginCommand {
	return &LoginCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LoginInput] = (*LoginCommand)(nil)

func (c *LoginCommand) Execute(ctx context.Context, msg LoginInput) error {
	if c.service == nil {
		return errors.New("login command requires service")
	}
	session, redirect, err := c.service.Login(ctx, msg.ClientID, msg.Credentials)
	if err != nil {
		return err
	}
	if msg.Redirect != nil {
		*msg.Redirect = redirect
	}
	c.telemetry.Record(ctx, "portal.auth.login", map[string]any{
		"client_id": msg.ClientID,
		"role":      string(session.Role),
	})
	return nil
}

// LogoutCommand removes one role's session.
type LogoutCommand struct {
	service   sessionService
	telemetry Telemetry
}

// NewLogoutCommand creates the command.
func NewLogoutCommand(service sessionService, telemetry Telemetry) *LogoutCommand {
	return &LogoutCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LogoutInput] = (*LogoutCommand)(nil)

func (c *LogoutCommand) Execute(ctx context.Context, msg LogoutInput) error {
	if c.service == nil {
		return errors.New("logout command requires service")
	}
	redirect, err := c.service.Logout(ctx, msg.ClientID, msg.Role)
	if err != nil {
		return err
	}
	if msg.Redirect != nil {
		*msg.Redirect = redirect
	}
	c.telemetry.Record(ctx, "portal.auth.logout", map[string]any{
		"client_id": msg.ClientID,
		"role":      string(msg.Role),
	})
	return nil
}

// SignupCommand registers an account with the API.
type SignupCommand struct {
	service   signupService
	telemetry Telemetry
}

// NewSignupCommand creates the command.
func NewSignupCommand(service signupService, telemetry Telemetry) *SignupCommand {
	return &SignupCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SignupInput] = (*SignupCommand)(nil)

func (c *SignupCommand) Execute(ctx context.Context, msg SignupInput) error {
	if c.service == nil {
		return errors.New("signup command requires service")
	}
	redirect, err := c.service.Signup(ctx, msg.Form)
	if err != nil {
		return err
	}
	if msg.Redirect != nil {
		*msg.Redirect = redirect
	}
	c.telemetry.Record(ctx, "portal.auth.signup", map[string]any{"email": msg.Form.Email})
	return nil
}
