package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	portal "github.com/goliatone/go-insurance/components/portal"
)

// SaveProfileInput replaces the profile shown for a workspace.
type SaveProfileInput struct {
	Workspace *portal.Workspace
	Profile   portal.Profile
}

// SaveProfileCommand updates the in-memory profile. Nothing is written to
// storage or sent to the API.
type SaveProfileCommand struct{}

// NewSaveProfileCommand creates the command.
func NewSaveProfileCommand() *SaveProfileCommand {
	return &SaveProfileCommand{}
}

var _ gocommand.Commander[SaveProfileInput] = (*SaveProfileCommand)(nil)

func (c *SaveProfileCommand) Execute(_ context.Context, msg SaveProfileInput) error {
	if msg.Workspace == nil || msg.Workspace.Profile == nil {
		return errors.New("profile command requires workspace")
	}
	msg.Workspace.Profile.Set(msg.Profile)
	return nil
}
