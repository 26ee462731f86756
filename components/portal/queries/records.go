package queries

import (
	"context"
	"errors"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	portal "github.com/goliatone/go-insurance/components/portal"
)

// Selector picks the controller of one resource out of a workspace.
type Selector[T portal.Record, F portal.Form[T]] func(*portal.Workspace) *portal.ResourceController[T, F]

// ListInput addresses the list view of a resource.
type ListInput struct {
	Workspace *portal.Workspace
	Role      portal.Role
}

// RecordInput addresses one record of a resource.
type RecordInput struct {
	Workspace *portal.Workspace
	Role      portal.Role
	ID        string
}

// ListRecordsQuery reloads a list view and returns its state. A failed load
// still returns the state so callers can show the prior list with the error.
type ListRecordsQuery[T portal.Record, F portal.Form[T]] struct {
	selector Selector[T, F]
}

// NewListRecordsQuery builds the query.
func NewListRecordsQuery[T portal.Record, F portal.Form[T]](selector Selector[T, F]) *ListRecordsQuery[T, F] {
	return &ListRecordsQuery[T, F]{selector: selector}
}

var _ gocommand.Querier[ListInput, portal.ViewState[portal.Policy, portal.PolicyForm]] = (*ListRecordsQuery[portal.Policy, portal.PolicyForm])(nil)

func (q *ListRecordsQuery[T, F]) Query(ctx context.Context, input ListInput) (portal.ViewState[T, F], error) {
	ctrl, err := resolve(q.selector, input.Workspace, input.Role, portal.OpList)
	if err != nil {
		return portal.ViewState[T, F]{}, err
	}
	err = ctrl.List(ctx)
	return ctrl.State(), err
}

// GetRecordQuery fetches one record for the detail view.
type GetRecordQuery[T portal.Record, F portal.Form[T]] struct {
	selector Selector[T, F]
}

// NewGetRecordQuery builds the query.
func NewGetRecordQuery[T portal.Record, F portal.Form[T]](selector Selector[T, F]) *GetRecordQuery[T, F] {
	return &GetRecordQuery[T, F]{selector: selector}
}

var _ gocommand.Querier[RecordInput, portal.Quote] = (*GetRecordQuery[portal.Quote, portal.QuoteStatusForm])(nil)

func (q *GetRecordQuery[T, F]) Query(ctx context.Context, input RecordInput) (T, error) {
	var zero T
	if input.ID == "" {
		return zero, errors.New("record query requires id")
	}
	ctrl, err := resolve(q.selector, input.Workspace, input.Role, portal.OpDetail)
	if err != nil {
		return zero, err
	}
	return ctrl.Get(ctx, input.ID)
}

func resolve[T portal.Record, F portal.Form[T]](selector Selector[T, F], ws *portal.Workspace, role portal.Role, op portal.Operation) (*portal.ResourceController[T, F], error) {
	if selector == nil || ws == nil {
		return nil, errors.New("record query requires selector and workspace")
	}
	ctrl := selector(ws)
	if ctrl == nil {
		return nil, errors.New("record query selector returned no controller")
	}
	def, ok := portal.LookupResource(ctrl.Resource())
	if !ok {
		return nil, fmt.Errorf("record query: unknown resource %q", ctrl.Resource())
	}
	if !def.Allows(role, op) {
		return nil, fmt.Errorf("%s %s as %s: %w", op, def.Name, role, portal.ErrForbidden)
	}
	return ctrl, nil
}
