package gorouter

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	gocommand "github.com/goliatone/go-command"

	portal "github.com/goliatone/go-insurance/components/portal"
	"github.com/goliatone/go-insurance/components/portal/commands"
	"github.com/goliatone/go-insurance/components/portal/queries"
)

// resourcePages renders and mutates one resource from submitted HTML forms.
type resourcePages interface {
	Name() string
	List(ctx context.Context, ws *portal.Workspace, role portal.Role, session portal.Session) (map[string]any, error)
	Current(ws *portal.Workspace, role portal.Role, session portal.Session) map[string]any
	Detail(ctx context.Context, ws *portal.Workspace, role portal.Role, session portal.Session, id string) (map[string]any, error)
	Save(ctx context.Context, ws *portal.Workspace, role portal.Role, id string, values url.Values) error
	Remove(ctx context.Context, ws *portal.Workspace, role portal.Role, id string) error
}

type pages[T portal.Record, F portal.Form[T]] struct {
	name     string
	selector func(*portal.Workspace) *portal.ResourceController[T, F]

	list   gocommand.Querier[queries.ListInput, portal.ViewState[T, F]]
	get    gocommand.Querier[queries.RecordInput, T]
	create gocommand.Commander[commands.CreateRecordInput[T, F]]
	update gocommand.Commander[commands.UpdateRecordInput[T, F]]
	remove gocommand.Commander[commands.DeleteRecordInput]
}

func newPages[T portal.Record, F portal.Form[T]](name string, selector func(*portal.Workspace) *portal.ResourceController[T, F], telemetry commands.Telemetry) *pages[T, F] {
	return &pages[T, F]{
		name:     name,
		selector: selector,
		list:     queries.NewListRecordsQuery(queries.Selector[T, F](selector)),
		get:      queries.NewGetRecordQuery(queries.Selector[T, F](selector)),
		create:   commands.NewCreateRecordCommand(commands.Selector[T, F](selector), telemetry),
		update:   commands.NewUpdateRecordCommand(commands.Selector[T, F](selector), telemetry),
		remove:   commands.NewDeleteRecordCommand(commands.Selector[T, F](selector), telemetry),
	}
}

func defaultPages(telemetry commands.Telemetry) []resourcePages {
	return []resourcePages{
		newPages(portal.ResourceUsers, portal.SelectUsers, telemetry),
		newPages(portal.ResourcePolicies, portal.SelectPolicies, telemetry),
		newPages(portal.ResourceQuotes, portal.SelectQuotes, telemetry),
		newPages(portal.ResourceTickets, portal.SelectTickets, telemetry),
		newPages(portal.ResourceTransactions, portal.SelectTransactions, telemetry),
		newPages(portal.ResourceReports, portal.SelectReports, telemetry),
	}
}

func (p *pages[T, F]) Name() string { return p.name }

func (p *pages[T, F]) definition() (portal.ResourceDefinition, error) {
	def, ok := portal.LookupResource(p.name)
	if !ok {
		return portal.ResourceDefinition{}, fmt.Errorf("gorouter: unknown resource %q", p.name)
	}
	return def, nil
}

// List reloads the view. A failed load still renders the page with the
// banner; only a role violation is returned.
func (p *pages[T, F]) List(ctx context.Context, ws *portal.Workspace, role portal.Role, session portal.Session) (map[string]any, error) {
	def, err := p.definition()
	if err != nil {
		return nil, err
	}
	state, err := p.list.Query(ctx, queries.ListInput{Workspace: ws, Role: role})
	if errors.Is(err, portal.ErrForbidden) {
		return nil, err
	}
	return portal.ResourcePage(role, session, def, state), nil
}

// Current renders the view as it stands, keeping a rejected form for correction.
func (p *pages[T, F]) Current(ws *portal.Workspace, role portal.Role, session portal.Session) map[string]any {
	def, _ := p.definition()
	return portal.ResourcePage(role, session, def, p.selector(ws).State())
}

func (p *pages[T, F]) Detail(ctx context.Context, ws *portal.Workspace, role portal.Role, session portal.Session, id string) (map[string]any, error) {
	def, err := p.definition()
	if err != nil {
		return nil, err
	}
	record, err := p.get.Query(ctx, queries.RecordInput{Workspace: ws, Role: role, ID: id})
	if err != nil {
		return nil, err
	}
	return portal.DetailPage(role, session, def, record), nil
}

// Save creates a record when id is empty and updates it otherwise.
func (p *pages[T, F]) Save(ctx context.Context, ws *portal.Workspace, role portal.Role, id string, values url.Values) error {
	form, err := portal.DecodeForm[F](values)
	if err != nil {
		return err
	}
	if id == "" {
		return p.create.Execute(ctx, commands.CreateRecordInput[T, F]{Workspace: ws, Role: role, Form: form})
	}
	return p.update.Execute(ctx, commands.UpdateRecordInput[T, F]{Workspace: ws, Role: role, ID: id, Form: form})
}

func (p *pages[T, F]) Remove(ctx context.Context, ws *portal.Workspace, role portal.Role, id string) error {
	return p.remove.Execute(ctx, commands.DeleteRecordInput{Workspace: ws, Role: role, ID: id})
}
