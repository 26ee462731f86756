package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	portal "github.com/goliatone/go-insurance/components/portal"
	"github.com/goliatone/go-insurance/components/portal/queries"
)

type loginCmd struct{}

func (cmd *loginCmd) Run(ctx context.Context, g *globals) error {
	if g.Email == "" {
		return fmt.Errorf("insurancectl: --email is required to log in")
	}
	s, err := openSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()
	fmt.Fprintln(os.Stdout, successStyle.Render("✓ Logged in as "+g.Email))
	return nil
}

type logoutCmd struct{}

func (cmd *logoutCmd) Run(ctx context.Context, g *globals) error {
	s, err := openSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()
	if _, err := expect(s.app.API.Logout(ctx, s.clientID, s.role), http.StatusOK); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, successStyle.Render("✓ Logged out"))
	return nil
}

type resourcesCmd struct{}

func (cmd *resourcesCmd) Run(_ context.Context, g *globals) error {
	role := portal.Role(g.Role)
	var rows [][]string
	for _, def := range portal.ResourcesFor(role) {
		var ops []string
		for _, op := range def.Roles[role] {
			ops = append(ops, string(op))
		}
		rows = append(rows, []string{def.Name, def.Label, strings.Join(ops, ", ")})
	}
	fmt.Fprint(os.Stdout, renderTable([]string{"Name", "Label", "Operations"}, rows))
	return nil
}

type listCmd struct {
	Resource string `arg:"" help:"Resource name (users, policies, quotes, tickets, transactions, reports)."`
}

func (cmd *listCmd) Run(ctx context.Context, g *globals) error {
	def, err := resource(cmd.Resource)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()
	body, err := expect(s.app.API.Records(ctx, s.clientID, s.role, def.Name, portal.OpList, "", nil), http.StatusOK)
	if err != nil {
		return err
	}
	rows, err := recordRows(body)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, mutedStyle.Render("No "+strings.ToLower(def.Label)+" found."))
		return nil
	}
	fmt.Fprint(os.Stdout, renderTable(append([]string{"ID"}, def.Columns...), rows))
	return nil
}

type showCmd struct {
	Resource string `arg:"" help:"Resource name."`
	ID       string `arg:"" help:"Record identifier."`
}

func (cmd *showCmd) Run(ctx context.Context, g *globals) error {
	def, err := resource(cmd.Resource)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()
	body, err := expect(s.app.API.Records(ctx, s.clientID, s.role, def.Name, portal.OpDetail, cmd.ID, nil), http.StatusOK)
	if err != nil {
		return err
	}
	return printRecord(body)
}

type createCmd struct {
	Resource string            `arg:"" help:"Resource name."`
	Field    map[string]string `short:"f" help:"Form input as name=value (repeatable)."`
}

func (cmd *createCmd) Run(ctx context.Context, g *globals) error {
	def, err := resource(cmd.Resource)
	if err != nil {
		return err
	}
	if !def.Allows(portal.Role(g.Role), portal.OpCreate) {
		if def.Allows(portal.Role(g.Role), portal.OpRequest) {
			return fmt.Errorf("insurancectl: %s are requested with \"insurancectl quote\"", def.Name)
		}
		return fmt.Errorf("insurancectl: %s cannot create %s", g.Role, def.Name)
	}
	body, err := formBody(def, cmd.Field)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()
	created, err := expect(s.app.API.Records(ctx, s.clientID, s.role, def.Name, portal.OpCreate, "", body), http.StatusCreated)
	if err != nil {
		return err
	}
	return printRecord(created)
}

type updateCmd struct {
	Resource string            `arg:"" help:"Resource name."`
	ID       string            `arg:"" help:"Record identifier."`
	Field    map[string]string `short:"f" help:"Form input as name=value (repeatable)."`
}

func (cmd *updateCmd) Run(ctx context.Context, g *globals) error {
	def, err := resource(cmd.Resource)
	if err != nil {
		return err
	}
	body, err := formBody(def, cmd.Field)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()
	updated, err := expect(s.app.API.Records(ctx, s.clientID, s.role, def.Name, portal.OpUpdate, cmd.ID, body), http.StatusOK)
	if err != nil {
		return err
	}
	return printRecord(updated)
}

type deleteCmd struct {
	Resource string `arg:"" help:"Resource name."`
	ID       string `arg:"" help:"Record identifier."`
}

func (cmd *deleteCmd) Run(ctx context.Context, g *globals) error {
	def, err := resource(cmd.Resource)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()
	if _, err := expect(s.app.API.Records(ctx, s.clientID, s.role, def.Name, portal.OpDelete, cmd.ID, nil), http.StatusOK); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, successStyle.Render(fmt.Sprintf("✓ Deleted %s %s", def.Name, cmd.ID)))
	return nil
}

type statsCmd struct{}

func (cmd *statsCmd) Run(ctx context.Context, g *globals) error {
	s, err := openSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()
	body, err := expect(s.app.API.Stats(ctx, s.clientID, false), http.StatusOK)
	if err != nil {
		return err
	}
	report, ok := body.(queries.StatsReport)
	if !ok {
		return fmt.Errorf("insurancectl: unexpected stats reply %T", body)
	}
	fmt.Fprint(os.Stdout, renderTable([]string{"Metric", "Count"}, statsRows(report.Stats)))
	return nil
}

type payCmd struct {
	Email  string `required:"" help:"Payer email."`
	Amount string `required:"" help:"Amount to charge."`
	Method string `enum:"card,upi" default:"card" help:"Payment method (card or upi)."`
	UPIID  string `name:"upi-id" help:"UPI ID, required with --method=upi."`
	Token  string `help:"Card token from the payment processor."`
}

func (cmd *payCmd) Run(ctx context.Context, g *globals) error {
	body, err := json.Marshal(portal.PaymentForm{
		Email:  cmd.Email,
		Amount: portal.NumberText(cmd.Amount),
		Method: cmd.Method,
		UPIID:  cmd.UPIID,
		Token:  cmd.Token,
	})
	if err != nil {
		return err
	}
	s, err := openSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()
	reply, err := expect(s.app.API.Charge(ctx, s.clientID, body), http.StatusOK)
	if err != nil {
		return err
	}
	result, _ := reply.(portal.PaymentResult)
	fmt.Fprintln(os.Stdout, successStyle.Render("✓ "+result.Message))
	return nil
}

type profileCmd struct{}

func (cmd *profileCmd) Run(ctx context.Context, g *globals) error {
	s, err := openSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()
	body, err := expect(s.app.API.Profile(ctx, s.clientID), http.StatusOK)
	if err != nil {
		return err
	}
	return printRecord(body)
}

func resource(name string) (portal.ResourceDefinition, error) {
	def, ok := portal.LookupResource(strings.ToLower(strings.TrimSpace(name)))
	if !ok {
		var names []string
		for _, d := range portal.Resources() {
			names = append(names, d.Name)
		}
		return def, fmt.Errorf("insurancectl: unknown resource %q (one of %s)", name, strings.Join(names, ", "))
	}
	return def, nil
}

// formBody encodes --field pairs as the JSON form of def, rejecting inputs
// the form does not have.
func formBody(def portal.ResourceDefinition, fields map[string]string) ([]byte, error) {
	allowed := make([]string, 0, len(def.Fields))
	for _, f := range def.Fields {
		allowed = append(allowed, f.Name)
	}
	for name := range fields {
		if !slices.Contains(allowed, name) {
			return nil, fmt.Errorf("insurancectl: %s has no field %q (fields: %s)", def.Name, name, strings.Join(allowed, ", "))
		}
	}
	if fields == nil {
		fields = map[string]string{}
	}
	return json.Marshal(fields)
}

func statsRows(stats portal.DashboardStats) [][]string {
	row := func(label string, n int) []string { return []string{label, humanize.Comma(int64(n))} }
	return [][]string{
		row("Users", stats.Users),
		row("Active users", stats.ActiveUsers),
		row("Inactive users", stats.InactiveUsers),
		row("Policies", stats.Policies),
		row("Quotes", stats.Quotes),
		row("Pending quotes", stats.PendingQuotes),
		row("Completed quotes", stats.CompletedQuotes),
		row("Tickets", stats.Tickets),
		row("Open tickets", stats.OpenTickets),
	}
}
