package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	gocommand "github.com/goliatone/go-command"
	portal "github.com/goliatone/go-insurance/components/portal"
	"github.com/goliatone/go-insurance/components/portal/commands"
	"github.com/goliatone/go-insurance/components/portal/queries"
)

// Reply is a transport-neutral JSON answer.
type Reply struct {
	Status int
	Body   any
}

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Message string `json:"message"`
}

// Endpoint serves the JSON operations of one resource.
type Endpoint interface {
	Name() string
	Handle(ctx context.Context, ws *portal.Workspace, role portal.Role, op portal.Operation, id string, body []byte) Reply
}

// Resource adapts the record commands and queries of one resource to JSON.
type Resource[T portal.Record, F portal.Form[T]] struct {
	name   string
	List   gocommand.Querier[queries.ListInput, portal.ViewState[T, F]]
	Get    gocommand.Querier[queries.RecordInput, T]
	Create gocommand.Commander[commands.CreateRecordInput[T, F]]
	Update gocommand.Commander[commands.UpdateRecordInput[T, F]]
	Delete gocommand.Commander[commands.DeleteRecordInput]
}

// NewResource wires the default commands and queries for a resource.
func NewResource[T portal.Record, F portal.Form[T]](name string, selector func(*portal.Workspace) *portal.ResourceController[T, F], telemetry commands.Telemetry) *Resource[T, F] {
	return &Resource[T, F]{
		name:   name,
		List:   queries.NewListRecordsQuery(queries.Selector[T, F](selector)),
		Get:    queries.NewGetRecordQuery(queries.Selector[T, F](selector)),
		Create: commands.NewCreateRecordCommand(commands.Selector[T, F](selector), telemetry),
		Update: commands.NewUpdateRecordCommand(commands.Selector[T, F](selector), telemetry),
		Delete: commands.NewDeleteRecordCommand(commands.Selector[T, F](selector), telemetry),
	}
}

func (r *Resource[T, F]) Name() string { return r.name }

// Handle runs op for role. List answers with a bare array of records.
func (r *Resource[T, F]) Handle(ctx context.Context, ws *portal.Workspace, role portal.Role, op portal.Operation, id string, body []byte) Reply {
	switch op {
	case portal.OpList:
		state, err := r.List.Query(ctx, queries.ListInput{Workspace: ws, Role: role})
		if err != nil {
			return errorReply(err)
		}
		items := state.Items
		if items == nil {
			items = []T{}
		}
		return Reply{Status: http.StatusOK, Body: items}
	case portal.OpDetail:
		record, err := r.Get.Query(ctx, queries.RecordInput{Workspace: ws, Role: role, ID: id})
		if err != nil {
			return errorReply(err)
		}
		return Reply{Status: http.StatusOK, Body: record}
	case portal.OpCreate:
		var form F
		if err := decodeBody(body, &form); err != nil {
			return errorReply(err)
		}
		var record T
		if err := r.Create.Execute(ctx, commands.CreateRecordInput[T, F]{Workspace: ws, Role: role, Form: form, Result: &record}); err != nil {
			return errorReply(err)
		}
		return Reply{Status: http.StatusCreated, Body: record}
	case portal.OpUpdate:
		var form F
		if err := decodeBody(body, &form); err != nil {
			return errorReply(err)
		}
		var record T
		if err := r.Update.Execute(ctx, commands.UpdateRecordInput[T, F]{Workspace: ws, Role: role, ID: id, Form: form, Result: &record}); err != nil {
			return errorReply(err)
		}
		return Reply{Status: http.StatusOK, Body: record}
	case portal.OpDelete:
		if err := r.Delete.Execute(ctx, commands.DeleteRecordInput{Workspace: ws, Role: role, ID: id}); err != nil {
			return errorReply(err)
		}
		return Reply{Status: http.StatusOK, Body: map[string]string{"status": "deleted"}}
	}
	return Reply{Status: http.StatusMethodNotAllowed, Body: ErrorBody{Message: "Operation not supported"}}
}

// DefaultEndpoints builds the endpoints of every registered resource.
func DefaultEndpoints(telemetry commands.Telemetry) []Endpoint {
	return []Endpoint{
		NewResource(portal.ResourceUsers, portal.SelectUsers, telemetry),
		NewResource(portal.ResourcePolicies, portal.SelectPolicies, telemetry),
		NewResource(portal.ResourceQuotes, portal.SelectQuotes, telemetry),
		NewResource(portal.ResourceTickets, portal.SelectTickets, telemetry),
		NewResource(portal.ResourceTransactions, portal.SelectTransactions, telemetry),
		NewResource(portal.ResourceReports, portal.SelectReports, telemetry),
	}
}

func decodeBody(body []byte, target any) error {
	if len(body) == 0 {
		return &portal.ValidationError{Field: "body", Message: "Request body is required."}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &portal.ValidationError{Field: "body", Message: "Request body is not valid JSON."}
	}
	return nil
}

func errorReply(err error) Reply {
	status := portal.StatusCode(err)
	message := portal.UserMessage(err)
	if message == "" {
		message = http.StatusText(status)
	}
	return Reply{Status: status, Body: ErrorBody{Message: message}}
}
