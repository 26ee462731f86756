package activity

import (
	"context"
	"maps"

	portal "github.com/goliatone/go-insurance/components/portal"
)

// Config toggles activity emission.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter stamps the channel on events and forwards them to hooks.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
}

// NewEmitter builds an emitter. Without hooks it stays disabled.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := cfg.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	return &Emitter{
		hooks:   hooks,
		enabled: cfg.Enabled && len(hooks) > 0,
		channel: channel,
	}
}

// Enabled reports whether Emit forwards anything.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit forwards evt when the emitter is enabled.
func (e *Emitter) Emit(ctx context.Context, evt Event) error {
	if !e.Enabled() {
		return nil
	}
	if evt.Channel == "" {
		evt.Channel = e.channel
	}
	return e.hooks.Notify(ctx, evt)
}

// RecordActivity lets the emitter serve as the portal's activity recorder.
// The acting session on ctx supplies the actor.
func (e *Emitter) RecordActivity(ctx context.Context, verb, objectType, objectID string, metadata map[string]any) error {
	evt := Event{
		Verb:           verb,
		ObjectType:     objectType,
		ObjectID:       objectID,
		DefinitionCode: objectType + ":" + verb,
		Metadata:       metadata,
	}
	if actor, ok := portal.ActorFrom(ctx); ok {
		evt.ActorID = actor.ID
		evt.UserID = actor.ID
		if evt.Metadata == nil {
			evt.Metadata = map[string]any{}
		} else {
			evt.Metadata = maps.Clone(evt.Metadata)
		}
		evt.Metadata["role"] = string(actor.Role)
		if actor.Name != "" {
			evt.Metadata["actor_name"] = actor.Name
		}
	}
	return e.Emit(ctx, evt)
}

var _ portal.ActivityRecorder = (*Emitter)(nil)
