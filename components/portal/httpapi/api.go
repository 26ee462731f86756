package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	gocommand "github.com/goliatone/go-command"
	portal "github.com/goliatone/go-insurance/components/portal"
	"github.com/goliatone/go-insurance/components/portal/commands"
	"github.com/goliatone/go-insurance/components/portal/queries"
)

// Authorizer resolves the session and workspace behind a client id.
type Authorizer interface {
	Authorize(ctx context.Context, clientID string, role portal.Role) (context.Context, portal.Session, *portal.Workspace, error)
}

// Telemetry records API failures.
type Telemetry = commands.Telemetry

// API exposes the portal operations as JSON replies. Transports decode the
// request, call one method and write the Reply.
type API struct {
	Auth      Authorizer
	Endpoints map[string]Endpoint
	Telemetry Telemetry
	// Events streams record changes when set, see portal.BroadcastHook.
	Events http.Handler

	LoginCommander       gocommand.Commander[commands.LoginInput]
	LogoutCommander      gocommand.Commander[commands.LogoutInput]
	SignupCommander      gocommand.Commander[commands.SignupInput]
	AdvanceCommander     gocommand.Commander[commands.QuoteStepInput]
	RewindCommander      gocommand.Commander[commands.QuoteWizardInput]
	ResetCommander       gocommand.Commander[commands.QuoteWizardInput]
	SubmitCommander      gocommand.Commander[commands.SubmitQuoteInput]
	ChargeCommander      gocommand.Commander[commands.ChargePaymentInput]
	SaveProfileCommander gocommand.Commander[commands.SaveProfileInput]
	WizardQuerier        gocommand.Querier[queries.QuoteWizardInput, portal.WizardState]
	StatsQuerier         gocommand.Querier[queries.StatsInput, queries.StatsReport]
	ProfileQuerier       gocommand.Querier[queries.WorkspaceInput, portal.Profile]
}

// NewAPI wires the default commands and queries against svc.
func NewAPI(svc *portal.Service, telemetry Telemetry) (*API, error) {
	if svc == nil {
		return nil, errors.New("httpapi: service is required")
	}
	api := &API{
		Auth:                 svc,
		Endpoints:            make(map[string]Endpoint),
		Telemetry:            telemetry,
		LoginCommander:       commands.NewLoginCommand(svc, telemetry),
		LogoutCommander:      commands.NewLogoutCommand(svc, telemetry),
		SignupCommander:      commands.NewSignupCommand(svc.Auth(), telemetry),
		AdvanceCommander:     commands.NewAdvanceQuoteCommand(telemetry),
		RewindCommander:      commands.NewRewindQuoteCommand(),
		ResetCommander:       commands.NewResetQuoteCommand(),
		SubmitCommander:      commands.NewSubmitQuoteCommand(telemetry),
		SaveProfileCommander: commands.NewSaveProfileCommand(),
		WizardQuerier:        queries.NewQuoteWizardQuery(),
		StatsQuerier:         queries.NewStatsQuery(svc.Stats()),
		ProfileQuerier:       queries.NewProfileQuery(),
	}
	if payments := svc.Payments(); payments != nil {
		api.ChargeCommander = commands.NewChargePaymentCommand(payments, telemetry)
	}
	for _, endpoint := range DefaultEndpoints(telemetry) {
		api.Endpoints[endpoint.Name()] = endpoint
	}
	return api, nil
}

// RedirectBody answers auth transitions.
type RedirectBody struct {
	Redirect string `json:"redirect"`
}

// WizardBody is the JSON view of the quote wizard.
type WizardBody struct {
	Step    portal.WizardStep   `json:"step"`
	Request portal.QuoteRequest `json:"request"`
	Error   string              `json:"error,omitempty"`
	Result  *portal.Quote       `json:"result,omitempty"`
}

// Wizard actions.
const (
	WizardState    = "state"
	WizardNext     = "next"
	WizardPrevious = "previous"
	WizardSubmit   = "submit"
	WizardReset    = "reset"
)

// Login authenticates clientID with the JSON credentials in body.
func (a *API) Login(ctx context.Context, clientID string, body []byte) Reply {
	var creds portal.Credentials
	if err := decodeBody(body, &creds); err != nil {
		return a.fail(ctx, err)
	}
	var redirect string
	if err := a.LoginCommander.Execute(ctx, commands.LoginInput{ClientID: clientID, Credentials: creds, Redirect: &redirect}); err != nil {
		return a.fail(ctx, err)
	}
	return Reply{Status: http.StatusOK, Body: RedirectBody{Redirect: redirect}}
}

// Logout ends role's session of clientID.
func (a *API) Logout(ctx context.Context, clientID string, role portal.Role) Reply {
	var redirect string
	if err := a.LogoutCommander.Execute(ctx, commands.LogoutInput{ClientID: clientID, Role: role, Redirect: &redirect}); err != nil {
		return a.fail(ctx, err)
	}
	return Reply{Status: http.StatusOK, Body: RedirectBody{Redirect: redirect}}
}

// Signup registers the JSON signup form in body.
func (a *API) Signup(ctx context.Context, body []byte) Reply {
	var form portal.SignupForm
	if err := decodeBody(body, &form); err != nil {
		return a.fail(ctx, err)
	}
	var redirect string
	if err := a.SignupCommander.Execute(ctx, commands.SignupInput{Form: form, Redirect: &redirect}); err != nil {
		return a.fail(ctx, err)
	}
	return Reply{Status: http.StatusCreated, Body: RedirectBody{Redirect: redirect}}
}

// Records runs op on resource behind role's gate.
func (a *API) Records(ctx context.Context, clientID string, role portal.Role, resource string, op portal.Operation, id string, body []byte) Reply {
	endpoint, ok := a.Endpoints[resource]
	if !ok {
		return Reply{Status: http.StatusNotFound, Body: ErrorBody{Message: "Unknown resource"}}
	}
	ctx, ws, err := a.authorize(ctx, clientID, role)
	if err != nil {
		return a.fail(ctx, err)
	}
	reply := endpoint.Handle(ctx, ws, role, op, id, body)
	if reply.Status >= http.StatusInternalServerError {
		a.telemetry().Record(ctx, "portal.api.error", map[string]any{"resource": resource, "op": string(op), "status": reply.Status})
	}
	return reply
}

// Wizard runs a quote wizard action for the user area.
func (a *API) Wizard(ctx context.Context, clientID, action string, body []byte) Reply {
	ctx, ws, err := a.authorize(ctx, clientID, portal.RoleUser)
	if err != nil {
		return a.fail(ctx, err)
	}
	switch action {
	case WizardState:
	case WizardNext:
		state, err := a.WizardQuerier.Query(ctx, queries.QuoteWizardInput{Workspace: ws})
		if err != nil {
			return a.fail(ctx, err)
		}
		step := state.Step
		var head struct {
			Step json.Number `json:"step"`
		}
		if len(body) > 0 && json.Unmarshal(body, &head) == nil && head.Step != "" {
			if step, err = portal.ParseStep(head.Step.String()); err != nil {
				return a.fail(ctx, err)
			}
		}
		data, err := portal.StepFromJSON(step, body)
		if err != nil {
			return a.fail(ctx, err)
		}
		if err := a.AdvanceCommander.Execute(ctx, commands.QuoteStepInput{Workspace: ws, Data: data}); err != nil {
			return a.fail(ctx, err)
		}
	case WizardPrevious:
		if err := a.RewindCommander.Execute(ctx, commands.QuoteWizardInput{Workspace: ws}); err != nil {
			return a.fail(ctx, err)
		}
	case WizardReset:
		if err := a.ResetCommander.Execute(ctx, commands.QuoteWizardInput{Workspace: ws}); err != nil {
			return a.fail(ctx, err)
		}
	case WizardSubmit:
		var insurance portal.InsuranceDetails
		if err := decodeBody(body, &insurance); err != nil {
			return a.fail(ctx, err)
		}
		if err := a.SubmitCommander.Execute(ctx, commands.SubmitQuoteInput{Workspace: ws, Role: portal.RoleUser, Insurance: insurance}); err != nil {
			return a.fail(ctx, err)
		}
	default:
		return Reply{Status: http.StatusNotFound, Body: ErrorBody{Message: "Unknown wizard action"}}
	}
	state, err := a.WizardQuerier.Query(ctx, queries.QuoteWizardInput{Workspace: ws})
	if err != nil {
		return a.fail(ctx, err)
	}
	return Reply{Status: http.StatusOK, Body: WizardBody{Step: state.Step, Request: state.Request, Error: state.Error, Result: state.Result}}
}

// Stats answers the admin statistics.
func (a *API) Stats(ctx context.Context, clientID string, withChart bool) Reply {
	ctx, _, err := a.authorize(ctx, clientID, portal.RoleAdmin)
	if err != nil {
		return a.fail(ctx, err)
	}
	report, err := a.StatsQuerier.Query(ctx, queries.StatsInput{WithChart: withChart})
	if err != nil {
		return a.fail(ctx, err)
	}
	return Reply{Status: http.StatusOK, Body: report}
}

// Charge submits the JSON payment form in body from the admin area.
func (a *API) Charge(ctx context.Context, clientID string, body []byte) Reply {
	ctx, _, err := a.authorize(ctx, clientID, portal.RoleAdmin)
	if err != nil {
		return a.fail(ctx, err)
	}
	if a.ChargeCommander == nil {
		return Reply{Status: http.StatusNotImplemented, Body: ErrorBody{Message: "Payments are not configured"}}
	}
	var form portal.PaymentForm
	if err := decodeBody(body, &form); err != nil {
		return a.fail(ctx, err)
	}
	var result portal.PaymentResult
	if err := a.ChargeCommander.Execute(ctx, commands.ChargePaymentInput{Form: form, Result: &result}); err != nil {
		return a.fail(ctx, err)
	}
	return Reply{Status: http.StatusOK, Body: result}
}

// Profile answers the user's profile.
func (a *API) Profile(ctx context.Context, clientID string) Reply {
	ctx, ws, err := a.authorize(ctx, clientID, portal.RoleUser)
	if err != nil {
		return a.fail(ctx, err)
	}
	profile, err := a.ProfileQuerier.Query(ctx, queries.WorkspaceInput{Workspace: ws})
	if err != nil {
		return a.fail(ctx, err)
	}
	return Reply{Status: http.StatusOK, Body: profile}
}

// SaveProfile replaces the user's profile with the JSON profile in body.
func (a *API) SaveProfile(ctx context.Context, clientID string, body []byte) Reply {
	ctx, ws, err := a.authorize(ctx, clientID, portal.RoleUser)
	if err != nil {
		return a.fail(ctx, err)
	}
	var profile portal.Profile
	if err := decodeBody(body, &profile); err != nil {
		return a.fail(ctx, err)
	}
	if err := a.SaveProfileCommander.Execute(ctx, commands.SaveProfileInput{Workspace: ws, Profile: profile}); err != nil {
		return a.fail(ctx, err)
	}
	return Reply{Status: http.StatusOK, Body: profile}
}

func (a *API) authorize(ctx context.Context, clientID string, role portal.Role) (context.Context, *portal.Workspace, error) {
	if a.Auth == nil {
		return ctx, nil, errors.New("httpapi: authorizer is required")
	}
	actx, _, ws, err := a.Auth.Authorize(ctx, clientID, role)
	if err != nil {
		return ctx, nil, err
	}
	return actx, ws, nil
}

func (a *API) fail(ctx context.Context, err error) Reply {
	reply := errorReply(err)
	if reply.Status >= http.StatusInternalServerError {
		a.telemetry().Record(ctx, "portal.api.error", map[string]any{"error": err.Error(), "status": reply.Status})
	}
	return reply
}

func (a *API) telemetry() Telemetry {
	if a.Telemetry == nil {
		return noopTelemetry{}
	}
	return a.Telemetry
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}
