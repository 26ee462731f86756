package portal

import (
	"context"
	"slices"

	"github.com/ettle/strcase"
)

// ResourceClient is the API contract for one resource collection.
type ResourceClient[T Record] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, record T) (T, error)
	Update(ctx context.Context, id string, record T) (T, error)
	Delete(ctx context.Context, id string) error
}

// Operation names an action a role may take on a resource.
type Operation string

const (
	OpList    Operation = "list"
	OpDetail  Operation = "detail"
	OpCreate  Operation = "create"
	OpUpdate  Operation = "update"
	OpDelete  Operation = "delete"
	// OpRequest submits a quote through the wizard. Quotes have no generic create.
	OpRequest Operation = "request"
)

// Resource names match the API collection paths.
const (
	ResourceUsers        = "users"
	ResourcePolicies     = "policies"
	ResourceQuotes       = "quotes"
	ResourceTickets      = "tickets"
	ResourceTransactions = "transactions"
	ResourceReports      = "reports"
)

// FieldDefinition describes one input of a resource form.
type FieldDefinition struct {
	Name     string
	Label    string
	Type     string
	Required bool
	Options  []string
}

// ResourceDefinition describes how a resource is listed and edited.
type ResourceDefinition struct {
	Name    string
	Label   string
	Columns []string
	Fields  []FieldDefinition
	Roles   map[Role][]Operation
}

// Allows reports whether role may perform op on the resource.
func (d ResourceDefinition) Allows(role Role, op Operation) bool {
	return slices.Contains(d.Roles[role], op)
}

var resourceDefinitions = []ResourceDefinition{
	{
		Name:    ResourceUsers,
		Columns: []string{"Name", "Code", "Status", "Date Created"},
		Fields: []FieldDefinition{
			field("name", "text", true),
			field("code", "text", true),
			{Name: "status", Label: "Status", Type: "select", Options: []string{string(UserActive), string(UserInactive)}},
		},
		Roles: map[Role][]Operation{
			RoleAdmin: {OpList, OpCreate, OpUpdate, OpDelete},
		},
	},
	{
		Name:    ResourcePolicies,
		Columns: []string{"Provider", "Policy Number", "Coverage", "Premium"},
		Fields: []FieldDefinition{
			field("provider", "text", true),
			field("policyNumber", "text", true),
			field("coverage", "text", true),
			field("premiumAmount", "number", true),
		},
		Roles: map[Role][]Operation{
			RoleAdmin: {OpList, OpCreate, OpDelete},
			RoleUser:  {OpList, OpDetail},
		},
	},
	{
		Name:    ResourceQuotes,
		Columns: []string{"Customer", "Vehicle", "Amount", "Status", "Requested"},
		Fields: []FieldDefinition{
			{Name: "status", Label: "Status", Type: "select", Required: true, Options: []string{string(QuotePending), string(QuoteCompleted)}},
		},
		Roles: map[Role][]Operation{
			RoleAdmin: {OpList, OpUpdate},
			RoleUser:  {OpList, OpDetail, OpRequest, OpUpdate},
		},
	},
	{
		Name:    ResourceTickets,
		Columns: []string{"Subject", "Category", "Requester", "Status", "Opened"},
		Fields: []FieldDefinition{
			field("fullName", "text", true),
			field("email", "email", true),
			field("phone", "tel", false),
			{Name: "category", Label: "Category", Type: "select", Required: true, Options: []string{"Billing", "Claims", "Policy", "Technical", "Other"}},
			field("subject", "text", true),
			field("description", "textarea", true),
		},
		Roles: map[Role][]Operation{
			RoleAdmin: {OpList, OpDelete},
			RoleUser:  {OpList, OpCreate, OpDelete},
		},
	},
	{
		Name:    ResourceTransactions,
		Columns: []string{"Ref Code", "Client", "Policy", "Vehicle Reg No", "Registration", "Expiration", "Cost"},
		Fields: []FieldDefinition{
			field("refCode", "text", true),
			field("client", "text", true),
			field("policy", "text", true),
			field("vehicleRegNo", "text", true),
			field("registration", "date", true),
			field("expiration", "date", true),
			field("cost", "number", true),
		},
		Roles: map[Role][]Operation{
			RoleAdmin: {OpList, OpCreate},
		},
	},
	{
		Name:    ResourceReports,
		Columns: []string{"Name", "Survey", "Employees", "Participation", "Status"},
		Fields: []FieldDefinition{
			field("name", "text", true),
			field("survey", "text", true),
			field("employeesCount", "number", true),
			field("participation", "text", false),
			field("status", "text", false),
		},
		Roles: map[Role][]Operation{
			RoleAdmin: {OpList, OpCreate, OpDelete},
		},
	},
}

func init() {
	for i := range resourceDefinitions {
		resourceDefinitions[i].Label = strcase.ToPascal(resourceDefinitions[i].Name)
	}
}

func field(name, kind string, required bool) FieldDefinition {
	return FieldDefinition{Name: name, Label: labelFor(name), Type: kind, Required: required}
}

// labelFor turns a camelCase json name into a human label, e.g. policyNumber -> "Policy Number".
func labelFor(name string) string {
	return strcase.ToCase(name, strcase.TitleCase, ' ')
}

// Resources returns the resource registry in display order.
func Resources() []ResourceDefinition {
	return slices.Clone(resourceDefinitions)
}

// LookupResource finds a resource definition by name.
func LookupResource(name string) (ResourceDefinition, bool) {
	for _, def := range resourceDefinitions {
		if def.Name == name {
			return def, true
		}
	}
	return ResourceDefinition{}, false
}

// ResourcesFor lists resources the role may at least list.
func ResourcesFor(role Role) []ResourceDefinition {
	var out []ResourceDefinition
	for _, def := range resourceDefinitions {
		if def.Allows(role, OpList) {
			out = append(out, def)
		}
	}
	return out
}
