package portal

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// fakeClient is an in-memory ResourceClient with call counters and optional
// per-operation overrides.
type fakeClient[T Record] struct {
	mu      sync.Mutex
	items   []T
	calls   map[string]int
	nextID  int
	assign  func(T, string) T
	listFn  func(ctx context.Context) ([]T, error)
	createF func(ctx context.Context, record T) (T, error)
	deleteF func(ctx context.Context, id string) error
	updateF func(ctx context.Context, id string, record T) (T, error)
	getF    func(ctx context.Context, id string) (T, error)
}

func newFakeClient[T Record](assign func(T, string) T, items ...T) *fakeClient[T] {
	return &fakeClient[T]{items: items, calls: map[string]int{}, assign: assign}
}

func (f *fakeClient[T]) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeClient[T]) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeClient[T]) List(ctx context.Context) ([]T, error) {
	f.record("list")
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items), nil
}

func (f *fakeClient[T]) Get(ctx context.Context, id string) (T, error) {
	f.record("get")
	if f.getF != nil {
		return f.getF(ctx, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.RecordID() == id {
			return item, nil
		}
	}
	var zero T
	return zero, NewAPIError("get", 404, "Record not found")
}

func (f *fakeClient[T]) Create(ctx context.Context, record T) (T, error) {
	f.record("create")
	if f.createF != nil {
		return f.createF(ctx, record)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	created := f.assign(record, fmt.Sprintf("id-%d", f.nextID))
	f.items = append(f.items, created)
	return created, nil
}

func (f *fakeClient[T]) Update(ctx context.Context, id string, record T) (T, error) {
	f.record("update")
	if f.updateF != nil {
		return f.updateF(ctx, id, record)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	updated := f.assign(record, id)
	for i, item := range f.items {
		if item.RecordID() == id {
			f.items[i] = updated
		}
	}
	return updated, nil
}

func (f *fakeClient[T]) Delete(ctx context.Context, id string) error {
	f.record("delete")
	if f.deleteF != nil {
		return f.deleteF(ctx, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = slices.DeleteFunc(f.items, func(item T) bool { return item.RecordID() == id })
	return nil
}

func assignPolicy(p Policy, id string) Policy {
	p.ID = id
	return p
}

func assignUser(u User, id string) User {
	u.ID = id
	return u
}

func assignQuote(q Quote, id string) Quote {
	q.ID = id
	return q
}

func assignTicket(t Ticket, id string) Ticket {
	t.ID = id
	return t
}

func assignTransaction(tx Transaction, id string) Transaction {
	tx.ID = id
	return tx
}

func assignReport(r Report, id string) Report {
	r.ID = id
	return r
}

type recordingHook struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (h *recordingHook) RecordChanged(_ context.Context, event ChangeEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

type recordingActivity struct {
	mu      sync.Mutex
	entries []string
}

func (a *recordingActivity) RecordActivity(_ context.Context, verb, objectType, objectID string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, verb+":"+objectType+":"+objectID)
	return nil
}
