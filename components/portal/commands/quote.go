package commands

import (
	"context"
	"errors"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	portal "github.com/goliatone/go-insurance/components/portal"
)

type wizardSource interface {
	Wizard(ctx context.Context) (*portal.QuoteWizard, error)
}

// QuoteStepInput carries the data entered on the current wizard step.
type QuoteStepInput struct {
	Workspace wizardSource
	Data      portal.StepData
}

// QuoteWizardInput addresses the wizard of a workspace.
type QuoteWizardInput struct {
	Workspace wizardSource
}

// SubmitQuoteInput carries the insurance step and receives the created quote.
type SubmitQuoteInput struct {
	Workspace wizardSource
	Role      portal.Role
	Insurance portal.InsuranceDetails
	Result    *portal.Quote
}

// AdvanceQuoteCommand validates the current step and moves forward.
type AdvanceQuoteCommand struct {
	telemetry Telemetry
}

// NewAdvanceQuoteCommand creates the command.
func NewAdvanceQuoteCommand(telemetry Telemetry) *AdvanceQuoteCommand {
	return &AdvanceQuoteCommand{telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[QuoteStepInput] = (*AdvanceQuoteCommand)(nil)

func (c *AdvanceQuoteCommand) Execute(ctx context.Context, msg QuoteStepInput) error {
	wizard, err := wizardOf(ctx, msg.Workspace)
	if err != nil {
		return err
	}
	if msg.Data == nil {
		return errors.New("quote step command requires step data")
	}
	if err := wizard.Next(ctx, msg.Data); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "portal.quote.step", map[string]any{
		"from": msg.Data.WizardStep().String(),
		"to":   wizard.State().Step.String(),
	})
	return nil
}

// RewindQuoteCommand moves the wizard back one step.
type RewindQuoteCommand struct{}

// NewRewindQuoteCommand creates the command.
func NewRewindQuoteCommand() *RewindQuoteCommand {
	return &RewindQuoteCommand{}
}

var _ gocommand.Commander[QuoteWizardInput] = (*RewindQuoteCommand)(nil)

func (c *RewindQuoteCommand) Execute(ctx context.Context, msg QuoteWizardInput) error {
	wizard, err := wizardOf(ctx, msg.Workspace)
	if err != nil {
		return err
	}
	return wizard.Previous(ctx)
}

// ResetQuoteCommand discards the request in progress.
type ResetQuoteCommand struct{}

// NewResetQuoteCommand creates the command.
func NewResetQuoteCommand() *ResetQuoteCommand {
	return &ResetQuoteCommand{}
}

var _ gocommand.Commander[QuoteWizardInput] = (*ResetQuoteCommand)(nil)

func (c *ResetQuoteCommand) Execute(ctx context.Context, msg QuoteWizardInput) error {
	wizard, err := wizardOf(ctx, msg.Workspace)
	if err != nil {
		return err
	}
	wizard.Reset(ctx)
	return nil
}

// SubmitQuoteCommand sends the accumulated quote request.
type SubmitQuoteCommand struct {
	telemetry Telemetry
}

// NewSubmitQuoteCommand creates the command.
func NewSubmitQuoteCommand(telemetry Telemetry) *SubmitQuoteCommand {
	return &SubmitQuoteCommand{telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SubmitQuoteInput] = (*SubmitQuoteCommand)(nil)

func (c *SubmitQuoteCommand) Execute(ctx context.Context, msg SubmitQuoteInput) error {
	def, _ := portal.LookupResource(portal.ResourceQuotes)
	if !def.Allows(msg.Role, portal.OpRequest) {
		return fmt.Errorf("submit quote as %s: %w", msg.Role, portal.ErrForbidden)
	}
	wizard, err := wizardOf(ctx, msg.Workspace)
	if err != nil {
		return err
	}
	quote, err := wizard.Submit(ctx, msg.Insurance)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = quote
	}
	c.telemetry.Record(ctx, "portal.quote.submit", map[string]any{"id": quote.ID})
	return nil
}

func wizardOf(ctx context.Context, source wizardSource) (*portal.QuoteWizard, error) {
	if source == nil {
		return nil, errors.New("quote command requires workspace")
	}
	return source.Wizard(ctx)
}
