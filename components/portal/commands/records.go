package commands

import (
	"context"
	"errors"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	portal "github.com/goliatone/go-insurance/components/portal"
)

// Selector picks the controller of one resource out of a workspace.
type Selector[T portal.Record, F portal.Form[T]] func(*portal.Workspace) *portal.ResourceController[T, F]

// CreateRecordInput carries a submitted form for one resource.
type CreateRecordInput[T portal.Record, F portal.Form[T]] struct {
	Workspace *portal.Workspace
	Role      portal.Role
	Form      F
	// Result receives the server record when set.
	Result *T
}

// UpdateRecordInput carries a submitted form for an existing record.
type UpdateRecordInput[T portal.Record, F portal.Form[T]] struct {
	Workspace *portal.Workspace
	Role      portal.Role
	ID        string
	Form      F
	Result    *T
}

// DeleteRecordInput addresses the record to remove.
type DeleteRecordInput struct {
	Workspace *portal.Workspace
	Role      portal.Role
	ID        string
}

// CreateRecordCommand submits a new record through the workspace controller
// so the list view and the change hooks stay in sync.
type CreateRecordCommand[T portal.Record, F portal.Form[T]] struct {
	selector  Selector[T, F]
	telemetry Telemetry
}

// NewCreateRecordCommand creates the command.
func NewCreateRecordCommand[T portal.Record, F portal.Form[T]](selector Selector[T, F], telemetry Telemetry) *CreateRecordCommand[T, F] {
	return &CreateRecordCommand[T, F]{selector: selector, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[CreateRecordInput[portal.Policy, portal.PolicyForm]] = (*CreateRecordCommand[portal.Policy, portal.PolicyForm])(nil)

// Execute validates access and creates the record.
func (c *CreateRecordCommand[T, F]) Execute(ctx context.Context, msg CreateRecordInput[T, F]) error {
	ctrl, err := resolve(c.selector, msg.Workspace, msg.Role, portal.OpCreate)
	if err != nil {
		return err
	}
	if ctrl.Resource() == portal.ResourceQuotes {
		return fmt.Errorf("create quotes outside the wizard: %w", portal.ErrForbidden)
	}
	record, err := ctrl.Create(ctx, msg.Form)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = record
	}
	c.telemetry.Record(ctx, "portal.record.create", map[string]any{
		"resource": ctrl.Resource(),
		"id":       record.RecordID(),
		"role":     string(msg.Role),
	})
	return nil
}

// UpdateRecordCommand replaces an existing record.
type UpdateRecordCommand[T portal.Record, F portal.Form[T]] struct {
	selector  Selector[T, F]
	telemetry Telemetry
}

// NewUpdateRecordCommand creates the command.
func NewUpdateRecordCommand[T portal.Record, F portal.Form[T]](selector Selector[T, F], telemetry Telemetry) *UpdateRecordCommand[T, F] {
	return &UpdateRecordCommand[T, F]{selector: selector, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateRecordInput[portal.User, portal.UserForm]] = (*UpdateRecordCommand[portal.User, portal.UserForm])(nil)

// Execute validates access and updates the record.
func (c *UpdateRecordCommand[T, F]) Execute(ctx context.Context, msg UpdateRecordInput[T, F]) error {
	if msg.ID == "" {
		return errors.New("update command requires record id")
	}
	ctrl, err := resolve(c.selector, msg.Workspace, msg.Role, portal.OpUpdate)
	if err != nil {
		return err
	}
	record, err := ctrl.Update(ctx, msg.ID, msg.Form)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = record
	}
	c.telemetry.Record(ctx, "portal.record.update", map[string]any{
		"resource": ctrl.Resource(),
		"id":       msg.ID,
		"role":     string(msg.Role),
	})
	return nil
}

// DeleteRecordCommand removes a record once the server confirms.
type DeleteRecordCommand[T portal.Record, F portal.Form[T]] struct {
	selector  Selector[T, F]
	telemetry Telemetry
}

// NewDeleteRecordCommand creates the command.
func NewDeleteRecordCommand[T portal.Record, F portal.Form[T]](selector Selector[T, F], telemetry Telemetry) *DeleteRecordCommand[T, F] {
	return &DeleteRecordCommand[T, F]{selector: selector, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteRecordInput] = (*DeleteRecordCommand[portal.Ticket, portal.TicketForm])(nil)

// Execute validates access and deletes the record.
func (c *DeleteRecordCommand[T, F]) Execute(ctx context.Context, msg DeleteRecordInput) error {
	if msg.ID == "" {
		return errors.New("delete command requires record id")
	}
	ctrl, err := resolve(c.selector, msg.Workspace, msg.Role, portal.OpDelete)
	if err != nil {
		return err
	}
	if err := ctrl.Delete(ctx, msg.ID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "portal.record.delete", map[string]any{
		"resource": ctrl.Resource(),
		"id":       msg.ID,
		"role":     string(msg.Role),
	})
	return nil
}

func resolve[T portal.Record, F portal.Form[T]](selector Selector[T, F], ws *portal.Workspace, role portal.Role, op portal.Operation) (*portal.ResourceController[T, F], error) {
	if selector == nil {
		return nil, errors.New("record command requires selector")
	}
	if ws == nil {
		return nil, errors.New("record command requires workspace")
	}
	ctrl := selector(ws)
	if ctrl == nil {
		return nil, errors.New("record command selector returned no controller")
	}
	def, ok := portal.LookupResource(ctrl.Resource())
	if !ok {
		return nil, fmt.Errorf("record command: unknown resource %q", ctrl.Resource())
	}
	if !def.Allows(role, op) {
		return nil, fmt.Errorf("%s %s as %s: %w", op, def.Name, role, portal.ErrForbidden)
	}
	return ctrl, nil
}
