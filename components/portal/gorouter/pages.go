package gorouter

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"

	router "github.com/goliatone/go-router"

	portal "github.com/goliatone/go-insurance/components/portal"
	"github.com/goliatone/go-insurance/components/portal/commands"
	"github.com/goliatone/go-insurance/components/portal/httpapi"
	"github.com/goliatone/go-insurance/components/portal/queries"
)

type site struct {
	service   *portal.Service
	api       *httpapi.API
	renderer  portal.Renderer
	resolver  ClientResolver
	telemetry commands.Telemetry
	pages     map[string]resourcePages
}

// area is the authorized context of a page request.
type area struct {
	ctx       context.Context
	role      portal.Role
	session   portal.Session
	workspace *portal.Workspace
}

type pageHandler func(router.Context, area) error

func registerPages[T any](r router.Router[T], s *site) {
	r.Get(portal.PathHome, router.WrapHandler(func(ctx router.Context) error {
		return s.render(ctx, http.StatusOK, portal.TemplateIndex, map[string]any{"title": "Welcome"})
	}))
	r.Get(portal.PathLogin, router.WrapHandler(func(ctx router.Context) error {
		ensureClient(ctx, s.resolver)
		return s.render(ctx, http.StatusOK, portal.TemplateLogin, map[string]any{"title": "Sign in"})
	}))
	r.Post(portal.PathLogin, router.WrapHandler(s.login))
	r.Get(pathSignup, router.WrapHandler(func(ctx router.Context) error {
		return s.render(ctx, http.StatusOK, portal.TemplateSignup, map[string]any{"title": "Sign up", "form": map[string]any{}})
	}))
	r.Post(pathSignup, router.WrapHandler(s.signup))
	r.Post("/logout/:role", router.WrapHandler(s.logout))

	r.Get("/admin/payments", s.gated(portal.RoleAdmin, func(ctx router.Context, a area) error {
		return s.render(ctx, http.StatusOK, portal.TemplatePayment, paymentPage(a, portal.PaymentForm{}, "", ""))
	}))
	r.Post("/admin/payments", s.gated(portal.RoleAdmin, s.charge))
	r.Get("/admin/stats", s.gated(portal.RoleAdmin, s.stats))

	r.Get(portal.PathUserHome, s.gated(portal.RoleUser, s.profile(portal.TemplateHome, "home", "Home")))
	r.Get("/user/profile", s.gated(portal.RoleUser, s.profile(portal.TemplateProfile, "profile", "Profile")))
	r.Get("/user/quotes/request", s.gated(portal.RoleUser, func(ctx router.Context, a area) error {
		return s.wizardPage(ctx, a, nil)
	}))
	r.Post("/user/quotes/request/:action", s.gated(portal.RoleUser, s.wizardAction))

	for _, role := range []portal.Role{portal.RoleAdmin, portal.RoleUser} {
		for _, def := range portal.ResourcesFor(role) {
			p, ok := s.pages[def.Name]
			if !ok {
				continue
			}
			base := "/" + string(role) + "/" + def.Name
			r.Get(base, s.gated(role, s.list(p)))
			if def.Allows(role, portal.OpCreate) {
				r.Post(base, s.gated(role, s.save(p)))
			}
			if def.Allows(role, portal.OpDetail) {
				r.Get(base+"/:id", s.gated(role, s.detail(p)))
			}
			if def.Allows(role, portal.OpUpdate) {
				r.Post(base+"/:id", s.gated(role, s.save(p)))
			}
			if def.Allows(role, portal.OpDelete) {
				r.Post(base+"/:id/delete", s.gated(role, s.remove(p)))
			}
		}
	}
}

const pathSignup = "/signup"

// gated resolves the role's session before running next. Page requests
// without one are sent to the login page.
func (s *site) gated(role portal.Role, next pageHandler) router.HandlerFunc {
	return router.WrapHandler(func(ctx router.Context) error {
		actx, session, ws, err := s.service.Authorize(ctx.Context(), s.resolver(ctx), role)
		if err != nil {
			if errors.Is(err, portal.ErrUnauthenticated) {
				return ctx.Redirect(portal.PathLogin, http.StatusSeeOther)
			}
			return s.fail(ctx, err)
		}
		return next(ctx, area{ctx: actx, role: role, session: session, workspace: ws})
	})
}

func (s *site) login(ctx router.Context) error {
	values, err := formValues(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	creds, err := portal.DecodeForm[portal.Credentials](values)
	if err != nil {
		return s.fail(ctx, err)
	}
	clientID := ensureClient(ctx, s.resolver)
	var redirect string
	if err := s.api.LoginCommander.Execute(ctx.Context(), commands.LoginInput{ClientID: clientID, Credentials: creds, Redirect: &redirect}); err != nil {
		return s.render(ctx, portal.StatusCode(err), portal.TemplateLogin, map[string]any{
			"title": "Sign in",
			"error": portal.UserMessage(err),
			"email": creds.Email,
		})
	}
	return ctx.Redirect(redirect, http.StatusSeeOther)
}

func (s *site) signup(ctx router.Context) error {
	values, err := formValues(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	form, err := portal.DecodeForm[portal.SignupForm](values)
	if err != nil {
		return s.fail(ctx, err)
	}
	var redirect string
	if err := s.api.SignupCommander.Execute(ctx.Context(), commands.SignupInput{Form: form, Redirect: &redirect}); err != nil {
		echo := portal.FormValues(form)
		delete(echo, "password")
		return s.render(ctx, portal.StatusCode(err), portal.TemplateSignup, map[string]any{
			"title": "Sign up",
			"error": portal.UserMessage(err),
			"form":  echo,
		})
	}
	return ctx.Redirect(redirect, http.StatusSeeOther)
}

func (s *site) logout(ctx router.Context) error {
	role, ok := roleParam(ctx.Param("role"))
	if !ok {
		return s.fail(ctx, portal.ErrForbidden)
	}
	var redirect string
	if err := s.api.LogoutCommander.Execute(ctx.Context(), commands.LogoutInput{ClientID: s.resolver(ctx), Role: role, Redirect: &redirect}); err != nil {
		return s.fail(ctx, err)
	}
	return ctx.Redirect(redirect, http.StatusSeeOther)
}

func (s *site) list(p resourcePages) pageHandler {
	return func(ctx router.Context, a area) error {
		data, err := p.List(a.ctx, a.workspace, a.role, a.session)
		if err != nil {
			return s.fail(ctx, err)
		}
		return s.render(ctx, http.StatusOK, portal.TemplateResource, data)
	}
}

func (s *site) detail(p resourcePages) pageHandler {
	return func(ctx router.Context, a area) error {
		data, err := p.Detail(a.ctx, a.workspace, a.role, a.session, ctx.Param("id"))
		if err != nil {
			return s.fail(ctx, err)
		}
		return s.render(ctx, http.StatusOK, portal.TemplateDetail, data)
	}
}

// save re-renders the list with the kept form and banner when the record is
// rejected, and redirects back to the list otherwise.
func (s *site) save(p resourcePages) pageHandler {
	return func(ctx router.Context, a area) error {
		values, err := formValues(ctx)
		if err != nil {
			return s.fail(ctx, err)
		}
		if err := p.Save(a.ctx, a.workspace, a.role, ctx.Param("id"), values); err != nil {
			if errors.Is(err, portal.ErrForbidden) {
				return s.fail(ctx, err)
			}
			return s.render(ctx, portal.StatusCode(err), portal.TemplateResource, p.Current(a.workspace, a.role, a.session))
		}
		return ctx.Redirect(listPath(a.role, p.Name()), http.StatusSeeOther)
	}
}

func (s *site) remove(p resourcePages) pageHandler {
	return func(ctx router.Context, a area) error {
		if err := p.Remove(a.ctx, a.workspace, a.role, ctx.Param("id")); err != nil {
			if errors.Is(err, portal.ErrForbidden) {
				return s.fail(ctx, err)
			}
			return s.render(ctx, portal.StatusCode(err), portal.TemplateResource, p.Current(a.workspace, a.role, a.session))
		}
		return ctx.Redirect(listPath(a.role, p.Name()), http.StatusSeeOther)
	}
}

func (s *site) charge(ctx router.Context, a area) error {
	values, err := formValues(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	form, err := portal.DecodeForm[portal.PaymentForm](values)
	if err != nil {
		return s.fail(ctx, err)
	}
	if s.api.ChargeCommander == nil {
		return s.render(ctx, http.StatusNotImplemented, portal.TemplatePayment, paymentPage(a, form, "Payments are not configured", ""))
	}
	var result portal.PaymentResult
	if err := s.api.ChargeCommander.Execute(a.ctx, commands.ChargePaymentInput{Form: form, Result: &result}); err != nil {
		return s.render(ctx, portal.StatusCode(err), portal.TemplatePayment, paymentPage(a, form, portal.UserMessage(err), ""))
	}
	return s.render(ctx, http.StatusOK, portal.TemplatePayment, paymentPage(a, portal.PaymentForm{}, "", result.Message))
}

func paymentPage(a area, form portal.PaymentForm, failure, message string) map[string]any {
	return map[string]any{
		"title":   "Payments",
		"role":    string(a.role),
		"session": a.session,
		"nav":     portal.Navigation(a.role, "payments"),
		"form":    portal.FormValues(form),
		"error":   failure,
		"message": message,
	}
}

func (s *site) stats(ctx router.Context, a area) error {
	data := map[string]any{
		"title":   "Stats",
		"role":    string(a.role),
		"session": a.session,
		"nav":     portal.Navigation(a.role, "stats"),
	}
	report, err := s.api.StatsQuerier.Query(a.ctx, queries.StatsInput{WithChart: true})
	if err != nil {
		data["error"] = portal.UserMessage(err)
	}
	data["stats"] = report.Stats
	data["chart"] = report.Chart
	return s.render(ctx, http.StatusOK, portal.TemplateStats, data)
}

func (s *site) profile(template, active, title string) pageHandler {
	return func(ctx router.Context, a area) error {
		if a.workspace.Profile == nil {
			return s.fail(ctx, errors.New("gorouter: workspace has no profile"))
		}
		data := portal.ProfilePage(a.session, a.workspace.Profile)
		data["title"] = title
		data["nav"] = portal.Navigation(a.role, active)
		return s.render(ctx, http.StatusOK, template, data)
	}
}

func (s *site) wizardAction(ctx router.Context, a area) error {
	values, err := formValues(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	input := commands.QuoteWizardInput{Workspace: a.workspace}
	switch ctx.Param("action") {
	case httpapi.WizardNext:
		err = s.advance(a, values)
	case httpapi.WizardPrevious:
		err = s.api.RewindCommander.Execute(a.ctx, input)
	case httpapi.WizardReset:
		err = s.api.ResetCommander.Execute(a.ctx, input)
	case httpapi.WizardSubmit:
		err = s.submit(a, values)
	default:
		return s.fail(ctx, portal.ErrInvalidTransition)
	}
	if err != nil {
		return s.wizardPage(ctx, a, err)
	}
	return ctx.Redirect("/user/quotes/request", http.StatusSeeOther)
}

func (s *site) advance(a area, values url.Values) error {
	state, err := s.api.WizardQuerier.Query(a.ctx, queries.QuoteWizardInput{Workspace: a.workspace})
	if err != nil {
		return err
	}
	step := state.Step
	if raw := values.Get("step"); raw != "" {
		if step, err = portal.ParseStep(raw); err != nil {
			return err
		}
	}
	data, err := portal.StepFromValues(step, values)
	if err != nil {
		return err
	}
	return s.api.AdvanceCommander.Execute(a.ctx, commands.QuoteStepInput{Workspace: a.workspace, Data: data})
}

func (s *site) submit(a area, values url.Values) error {
	data, err := portal.StepFromValues(portal.StepInsurance, values)
	if err != nil {
		return err
	}
	insurance, _ := data.(portal.InsuranceDetails)
	return s.api.SubmitCommander.Execute(a.ctx, commands.SubmitQuoteInput{Workspace: a.workspace, Role: a.role, Insurance: insurance})
}

// wizardPage renders the wizard. A failure that the wizard did not record
// itself is shown in place of its banner.
func (s *site) wizardPage(ctx router.Context, a area, failure error) error {
	state, err := s.api.WizardQuerier.Query(a.ctx, queries.QuoteWizardInput{Workspace: a.workspace})
	if err != nil {
		return s.fail(ctx, err)
	}
	status := http.StatusOK
	if failure != nil {
		status = portal.StatusCode(failure)
		if state.Error == "" {
			state.Error = portal.UserMessage(failure)
		}
	}
	return s.render(ctx, status, portal.TemplateWizard, portal.WizardPage(a.session, state))
}

func (s *site) render(ctx router.Context, status int, name string, data map[string]any) error {
	var buf bytes.Buffer
	if err := portal.RenderPage(s.renderer, &buf, name, data); err != nil {
		return s.fail(ctx, err)
	}
	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	ctx.Status(status)
	return ctx.Send(buf.Bytes())
}

func (s *site) fail(ctx router.Context, err error) error {
	s.telemetry.Record(ctx.Context(), "portal.page.error", map[string]any{"error": err.Error()})
	ctx.SetHeader("Content-Type", "text/plain; charset=utf-8")
	ctx.Status(portal.StatusCode(err))
	return ctx.Send([]byte(portal.UserMessage(err)))
}

func formValues(ctx router.Context) (url.Values, error) {
	values, err := url.ParseQuery(string(ctx.Body()))
	if err != nil {
		return nil, &portal.ValidationError{Message: "Unable to read the submitted form."}
	}
	return values, nil
}

func listPath(role portal.Role, resource string) string {
	return "/" + string(role) + "/" + resource
}
