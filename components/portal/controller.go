package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ControllerOptions wires a ResourceController.
type ControllerOptions[T Record] struct {
	Resource  string
	Client    ResourceClient[T]
	Changes   ChangeHook
	Activity  ActivityRecorder
	Telemetry Telemetry
}

// ViewState is a snapshot of a resource view.
type ViewState[T Record, F Form[T]] struct {
	Resource string
	Items    []T
	Error    string
	Loaded   bool
	Loading  bool
	Form     F
	Closed   bool
}

// ResourceController owns the list state of one resource for one view and
// serializes its mutations. Network calls never run under the lock.
type ResourceController[T Record, F Form[T]] struct {
	resource  string
	client    ResourceClient[T]
	changes   ChangeHook
	activity  ActivityRecorder
	telemetry Telemetry

	lifetime context.Context
	cancel   context.CancelFunc
	inflight singleflight.Group

	mu      sync.Mutex
	items   []T
	errMsg  string
	loaded  bool
	loading int
	form    F
	closed  bool
}

// NewResourceController builds a controller whose network calls are
// cancelled once Close is called.
func NewResourceController[T Record, F Form[T]](opts ControllerOptions[T]) (*ResourceController[T, F], error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("portal: %s controller requires a client", opts.Resource)
	}
	changes := opts.Changes
	if changes == nil {
		changes = noopChangeHook{}
	}
	activity := opts.Activity
	if activity == nil {
		activity = noopActivity{}
	}
	lifetime, cancel := context.WithCancel(context.Background())
	return &ResourceController[T, F]{
		resource:  opts.Resource,
		client:    opts.Client,
		changes:   changes,
		activity:  activity,
		telemetry: normalizeTelemetry(opts.Telemetry),
		lifetime:  lifetime,
		cancel:    cancel,
	}, nil
}

// Resource returns the resource name.
func (c *ResourceController[T, F]) Resource() string { return c.resource }

// State returns a copy of the current view state.
func (c *ResourceController[T, F]) State() ViewState[T, F] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ViewState[T, F]{
		Resource: c.resource,
		Items:    slices.Clone(c.items),
		Error:    c.errMsg,
		Loaded:   c.loaded,
		Loading:  c.loading > 0,
		Form:     c.form,
		Closed:   c.closed,
	}
}

// List fetches the collection. On failure the previous list is kept and the
// error banner is set.
func (c *ResourceController[T, F]) List(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	items, err := c.client.List(opCtx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading--
	if c.closed {
		return ErrViewClosed
	}
	if err != nil {
		c.fail(ctx, "list", err)
		return fmt.Errorf("portal: list %s: %w", c.resource, err)
	}
	c.items = slices.Clone(items)
	c.loaded = true
	c.errMsg = ""
	return nil
}

// Get fetches a single record for a detail view. The list is not modified.
func (c *ResourceController[T, F]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, &ValidationError{Field: "id", Message: "A record id is required."}
	}
	if err := c.checkOpen(); err != nil {
		return zero, err
	}
	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	record, err := c.client.Get(opCtx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return zero, ErrViewClosed
	}
	if err != nil {
		c.fail(ctx, "get", err)
		return zero, fmt.Errorf("portal: get %s %s: %w", c.resource, id, err)
	}
	c.errMsg = ""
	return record, nil
}

// Create validates form and, when valid, posts it. The server-returned record
// is appended and the form is cleared. Invalid input never reaches the API.
func (c *ResourceController[T, F]) Create(ctx context.Context, form F) (T, error) {
	var zero T
	if err := c.checkOpen(); err != nil {
		return zero, err
	}
	payload, err := c.validate(ctx, form)
	if err != nil {
		return zero, err
	}
	key, err := submissionKey("create", "", payload)
	if err != nil {
		return zero, err
	}
	result, err, _ := c.inflight.Do(key, func() (any, error) {
		opCtx, cancel := c.opContext(ctx)
		defer cancel()
		created, err := c.client.Create(opCtx, payload)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return zero, ErrViewClosed
		}
		if err != nil {
			c.fail(ctx, "create", err)
			return zero, fmt.Errorf("portal: create %s: %w", c.resource, err)
		}
		c.items = append(c.items, created)
		c.form = *new(F)
		c.errMsg = ""
		return created, nil
	})
	if err != nil {
		return zero, err
	}
	created := result.(T)
	c.notify(ctx, ChangeCreated, created.RecordID())
	return created, nil
}

// Update validates form and replaces the matching entry with the server record.
func (c *ResourceController[T, F]) Update(ctx context.Context, id string, form F) (T, error) {
	var zero T
	if id == "" {
		return zero, &ValidationError{Field: "id", Message: "A record id is required."}
	}
	if err := c.checkOpen(); err != nil {
		return zero, err
	}
	payload, err := c.validate(ctx, form)
	if err != nil {
		return zero, err
	}
	key, err := submissionKey("update", id, payload)
	if err != nil {
		return zero, err
	}
	result, err, _ := c.inflight.Do(key, func() (any, error) {
		opCtx, cancel := c.opContext(ctx)
		defer cancel()
		updated, err := c.client.Update(opCtx, id, payload)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return zero, ErrViewClosed
		}
		if err != nil {
			c.fail(ctx, "update", err)
			return zero, fmt.Errorf("portal: update %s %s: %w", c.resource, id, err)
		}
		if idx := c.indexOf(id); idx >= 0 {
			c.items[idx] = updated
		}
		c.form = *new(F)
		c.errMsg = ""
		return updated, nil
	})
	if err != nil {
		return zero, err
	}
	c.notify(ctx, ChangeUpdated, id)
	return result.(T), nil
}

// Delete removes the entry only after the server confirms the deletion.
func (c *ResourceController[T, F]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Message: "A record id is required."}
	}
	if err := c.checkOpen(); err != nil {
		return err
	}
	_, err, _ := c.inflight.Do("delete:"+id, func() (any, error) {
		opCtx, cancel := c.opContext(ctx)
		defer cancel()
		err := c.client.Delete(opCtx, id)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return nil, ErrViewClosed
		}
		if err != nil {
			c.fail(ctx, "delete", err)
			return nil, fmt.Errorf("portal: delete %s %s: %w", c.resource, id, err)
		}
		c.items = slices.DeleteFunc(c.items, func(item T) bool { return item.RecordID() == id })
		c.errMsg = ""
		return nil, nil
	})
	if err != nil {
		return err
	}
	c.notify(ctx, ChangeDeleted, id)
	return nil
}

// Close marks the view dead. In-flight calls are cancelled and any response
// that still arrives is discarded.
func (c *ResourceController[T, F]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

func (c *ResourceController[T, F]) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrViewClosed
	}
	c.loading++
	return nil
}

func (c *ResourceController[T, F]) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrViewClosed
	}
	return nil
}

func (c *ResourceController[T, F]) validate(ctx context.Context, form F) (T, error) {
	payload, err := form.Build()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = form
	if err != nil {
		c.errMsg = UserMessage(err)
		c.telemetry.Record(ctx, "portal.resource.invalid", map[string]any{
			"resource": c.resource,
			"error":    err.Error(),
		})
		return payload, err
	}
	return payload, nil
}

// opContext derives a context that ends with either the caller or the view.
func (c *ResourceController[T, F]) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.lifetime, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// fail must be called with c.mu held.
func (c *ResourceController[T, F]) fail(ctx context.Context, op string, err error) {
	c.errMsg = UserMessage(err)
	payload := map[string]any{
		"resource": c.resource,
		"op":       op,
		"error":    err.Error(),
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		payload["transport"] = true
	}
	c.telemetry.Record(ctx, "portal.resource.failed", payload)
}

func (c *ResourceController[T, F]) indexOf(id string) int {
	return slices.IndexFunc(c.items, func(item T) bool { return item.RecordID() == id })
}

func (c *ResourceController[T, F]) notify(ctx context.Context, action ChangeAction, id string) {
	event := ChangeEvent{Resource: c.resource, Action: action, ID: id}
	if err := c.changes.RecordChanged(ctx, event); err != nil {
		c.telemetry.Record(ctx, "portal.change_hook.failed", map[string]any{
			"resource": c.resource,
			"action":   string(action),
			"error":    err.Error(),
		})
	}
	if err := c.activity.RecordActivity(ctx, activityVerb(action), c.resource, id, nil); err != nil {
		c.telemetry.Record(ctx, "portal.activity.failed", map[string]any{
			"resource": c.resource,
			"action":   string(action),
			"error":    err.Error(),
		})
	}
	c.telemetry.Record(ctx, "portal.resource."+string(action), map[string]any{
		"resource": c.resource,
		"id":       id,
	})
}

func submissionKey(op, id string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("portal: encode %s payload: %w", op, err)
	}
	return op + ":" + id + ":" + string(data), nil
}
