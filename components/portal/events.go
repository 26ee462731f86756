package portal

import "context"

// ChangeAction names a write that succeeded against the API.
type ChangeAction string

const (
	ChangeCreated ChangeAction = "created"
	ChangeUpdated ChangeAction = "updated"
	ChangeDeleted ChangeAction = "deleted"
)

// ChangeEvent describes a confirmed write so other views can refresh.
type ChangeEvent struct {
	Resource string       `json:"resource"`
	Action   ChangeAction `json:"action"`
	ID       string       `json:"id"`
}

// ChangeHook receives change events after successful writes.
type ChangeHook interface {
	RecordChanged(ctx context.Context, event ChangeEvent) error
}

type noopChangeHook struct{}

func (noopChangeHook) RecordChanged(context.Context, ChangeEvent) error { return nil }

// ActivityRecorder persists an audit trail entry for a write.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, verb, objectType, objectID string, metadata map[string]any) error
}

type noopActivity struct{}

func (noopActivity) RecordActivity(context.Context, string, string, string, map[string]any) error {
	return nil
}

func activityVerb(action ChangeAction) string {
	switch action {
	case ChangeCreated:
		return "create"
	case ChangeUpdated:
		return "update"
	case ChangeDeleted:
		return "delete"
	}
	return string(action)
}
