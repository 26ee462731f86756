package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	portal "github.com/goliatone/go-insurance/components/portal"
)

// Resource is the REST client of one collection, e.g. /api/policies.
type Resource[T portal.Record] struct {
	client *Client
	name   string
}

// NewResource binds a collection name to the client.
func NewResource[T portal.Record](client *Client, name string) (*Resource[T], error) {
	if client == nil {
		return nil, errors.New("apiclient: resource requires client")
	}
	if _, ok := portal.LookupResource(name); !ok {
		return nil, fmt.Errorf("apiclient: unknown resource %q", name)
	}
	return &Resource[T]{client: client, name: name}, nil
}

var _ portal.ResourceClient[portal.Policy] = (*Resource[portal.Policy])(nil)

// List fetches GET /api/<resource>/getall. The body must be a JSON array; a
// wrapping object is rejected.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	op := "list " + r.name
	var raw json.RawMessage
	if err := r.client.do(ctx, op, http.MethodGet, r.path("getall"), nil, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, unexpected(op, "expected a JSON array")
	}
	var generic []any
	if err := json.Unmarshal(trimmed, &generic); err != nil {
		return nil, unexpected(op, "%v", err)
	}
	for i, item := range generic {
		if err := validateRecord(item); err != nil {
			return nil, unexpected(op, "item %d: %v", i, err)
		}
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, unexpected(op, "%v", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Get fetches GET /api/<resource>/<id>.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, errEmptyID
	}
	var raw json.RawMessage
	op := "get " + r.name
	if err := r.client.do(ctx, op, http.MethodGet, r.path(url.PathEscape(id)), nil, &raw); err != nil {
		return zero, err
	}
	return decodeRecord[T](op, raw)
}

// Create posts the record to /api/<resource>/create and returns the server copy.
func (r *Resource[T]) Create(ctx context.Context, record T) (T, error) {
	var raw json.RawMessage
	op := "create " + r.name
	if err := r.client.do(ctx, op, http.MethodPost, r.path("create"), record, &raw); err != nil {
		var zero T
		return zero, err
	}
	return decodeRecord[T](op, raw)
}

// Update puts the record to /api/<resource>/update/<id>.
func (r *Resource[T]) Update(ctx context.Context, id string, record T) (T, error) {
	var zero T
	if id == "" {
		return zero, errEmptyID
	}
	var raw json.RawMessage
	op := "update " + r.name
	if err := r.client.do(ctx, op, http.MethodPut, r.path("update/"+url.PathEscape(id)), record, &raw); err != nil {
		return zero, err
	}
	return decodeRecord[T](op, raw)
}

// Delete removes the record. The response body is ignored.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errEmptyID
	}
	return r.client.do(ctx, "delete "+r.name, http.MethodDelete, r.path("delete/"+url.PathEscape(id)), nil, nil)
}

func (r *Resource[T]) path(suffix string) string {
	return "/api/" + r.name + "/" + suffix
}

var errEmptyID = &portal.ValidationError{Field: "_id", Message: "Record id is required."}

func decodeRecord[T portal.Record](op string, raw json.RawMessage) (T, error) {
	var zero T
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return zero, unexpected(op, "%v", err)
	}
	if err := validateRecord(generic); err != nil {
		return zero, unexpected(op, "%v", err)
	}
	var record T
	if err := json.Unmarshal(raw, &record); err != nil {
		return zero, unexpected(op, "%v", err)
	}
	return record, nil
}

// BindOptions selects the optional API surfaces.
type BindOptions struct {
	// PaymentEndpoint enables the payment gateway when set.
	PaymentEndpoint string
	// VerifySessions makes every gate check confirm the session with the API.
	VerifySessions bool
}

// Bind builds the full set of API clients the portal needs.
func Bind(client *Client, opts BindOptions) (portal.APIClients, error) {
	var (
		clients portal.APIClients
		err     error
	)
	if clients.Users, err = NewResource[portal.User](client, portal.ResourceUsers); err != nil {
		return clients, err
	}
	if clients.Policies, err = NewResource[portal.Policy](client, portal.ResourcePolicies); err != nil {
		return clients, err
	}
	if clients.Quotes, err = NewResource[portal.Quote](client, portal.ResourceQuotes); err != nil {
		return clients, err
	}
	if clients.Tickets, err = NewResource[portal.Ticket](client, portal.ResourceTickets); err != nil {
		return clients, err
	}
	if clients.Transactions, err = NewResource[portal.Transaction](client, portal.ResourceTransactions); err != nil {
		return clients, err
	}
	if clients.Reports, err = NewResource[portal.Report](client, portal.ResourceReports); err != nil {
		return clients, err
	}
	auth := NewAuth(client)
	clients.Auth = auth
	if opts.VerifySessions {
		clients.Verifier = auth
	}
	if opts.PaymentEndpoint != "" {
		clients.Payments = NewPaymentGateway(client, opts.PaymentEndpoint)
	}
	return clients, nil
}
