package usersink

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"

	"github.com/goliatone/go-insurance/pkg/activity"
)

// Sink persists go-users activity records.
type Sink interface {
	Log(ctx context.Context, record types.ActivityRecord) error
}

// Hook forwards portal activity into a go-users activity sink.
type Hook struct {
	Sink Sink
}

var _ activity.Hook = Hook{}

// Notify maps evt onto an activity record. Ids that are not UUIDs, such as
// API record ids, stay in the record data.
func (h Hook) Notify(ctx context.Context, evt activity.Event) error {
	if h.Sink == nil {
		return errors.New("usersink: sink is required")
	}
	evt = activity.NormalizeEvent(evt)
	if evt.Verb == "" {
		return nil
	}
	data := map[string]any{}
	if evt.Metadata != nil {
		data = maps.Clone(evt.Metadata)
	}
	if evt.DefinitionCode != "" {
		data["definition_code"] = evt.DefinitionCode
	}
	if len(evt.Recipients) > 0 {
		data["recipients"] = slices.Clone(evt.Recipients)
	}
	record := types.ActivityRecord{
		ActorID:    parseID(evt.ActorID, "actor_id", data),
		UserID:     parseID(evt.UserID, "user_id", data),
		TenantID:   parseID(evt.TenantID, "tenant_id", data),
		Verb:       evt.Verb,
		ObjectType: evt.ObjectType,
		ObjectID:   evt.ObjectID,
		Channel:    evt.Channel,
		Data:       data,
		OccurredAt: evt.OccurredAt,
	}
	return h.Sink.Log(ctx, record)
}

func parseID(raw, key string, data map[string]any) uuid.UUID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		data[key] = raw
		return uuid.Nil
	}
	return id
}
