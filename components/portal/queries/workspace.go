package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	portal "github.com/goliatone/go-insurance/components/portal"
)

type wizardSource interface {
	Wizard(ctx context.Context) (*portal.QuoteWizard, error)
}

// WorkspaceInput addresses a client workspace.
type WorkspaceInput struct {
	Workspace *portal.Workspace
}

// ProfileQuery returns the profile shown on the user pages.
type ProfileQuery struct{}

// NewProfileQuery builds the query.
func NewProfileQuery() *ProfileQuery {
	return &ProfileQuery{}
}

var _ gocommand.Querier[WorkspaceInput, portal.Profile] = (*ProfileQuery)(nil)

func (q *ProfileQuery) Query(_ context.Context, input WorkspaceInput) (portal.Profile, error) {
	if input.Workspace == nil || input.Workspace.Profile == nil {
		return portal.Profile{}, errors.New("profile query requires workspace")
	}
	return input.Workspace.Profile.Current(), nil
}

// QuoteWizardInput addresses the quote wizard of a workspace.
type QuoteWizardInput struct {
	Workspace wizardSource
}

// QuoteWizardQuery snapshots the wizard.
type QuoteWizardQuery struct{}

// NewQuoteWizardQuery builds the query.
func NewQuoteWizardQuery() *QuoteWizardQuery {
	return &QuoteWizardQuery{}
}

var _ gocommand.Querier[QuoteWizardInput, portal.WizardState] = (*QuoteWizardQuery)(nil)

func (q *QuoteWizardQuery) Query(ctx context.Context, input QuoteWizardInput) (portal.WizardState, error) {
	if input.Workspace == nil {
		return portal.WizardState{}, errors.New("wizard query requires workspace")
	}
	wizard, err := input.Workspace.Wizard(ctx)
	if err != nil {
		return portal.WizardState{}, err
	}
	return wizard.State(), nil
}
