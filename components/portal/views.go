package portal

import (
	"encoding/json"
	"io"
	"slices"
)

// Template names of the embedded pages.
const (
	TemplateIndex    = "index"
	TemplateLogin    = "login"
	TemplateSignup   = "signup"
	TemplateHome     = "home"
	TemplateResource = "resource"
	TemplateDetail   = "detail"
	TemplateWizard   = "wizard"
	TemplateProfile  = "profile"
	TemplateStats    = "stats"
	TemplatePayment  = "payment"
)

// TableRow is one rendered record.
type TableRow struct {
	ID    string
	Cells []string
}

// TableView is a rendered resource list. Rows match the list one to one.
type TableView struct {
	Headers []string
	Rows    []TableRow
}

// BuildTable renders items with the definition's columns.
func BuildTable[T Record](def ResourceDefinition, items []T) TableView {
	table := TableView{Headers: slices.Clone(def.Columns), Rows: make([]TableRow, 0, len(items))}
	for _, item := range items {
		table.Rows = append(table.Rows, TableRow{ID: item.RecordID(), Cells: item.Cells()})
	}
	return table
}

// NavItem is a link in the area navigation.
type NavItem struct {
	Label  string
	Href   string
	Active bool
}

// Navigation lists the pages of role's area.
func Navigation(role Role, active string) []NavItem {
	base := "/" + string(role)
	var items []NavItem
	if role == RoleUser {
		items = append(items, NavItem{Label: "Home", Href: base + "/home", Active: active == "home"})
	}
	for _, def := range ResourcesFor(role) {
		items = append(items, NavItem{Label: def.Label, Href: base + "/" + def.Name, Active: active == def.Name})
	}
	if role == RoleAdmin {
		items = append(items,
			NavItem{Label: "Payments", Href: base + "/payments", Active: active == "payments"},
			NavItem{Label: "Stats", Href: base + "/stats", Active: active == "stats"},
		)
	} else {
		items = append(items,
			NavItem{Label: "Request Quote", Href: base + "/quotes/request", Active: active == "request"},
			NavItem{Label: "Profile", Href: base + "/profile", Active: active == "profile"},
		)
	}
	return items
}

// ResourcePage builds the template data of a resource list page.
func ResourcePage[T Record, F Form[T]](role Role, session Session, def ResourceDefinition, state ViewState[T, F]) map[string]any {
	return map[string]any{
		"title":     def.Label,
		"role":      string(role),
		"session":   session,
		"nav":       Navigation(role, def.Name),
		"resource":  def,
		"table":     BuildTable(def, state.Items),
		"error":     state.Error,
		"loaded":    state.Loaded,
		"fields":    fieldViews(def, FormValues(state.Form)),
		"canCreate": def.Allows(role, OpCreate),
		"canUpdate": def.Allows(role, OpUpdate),
		"canDelete": def.Allows(role, OpDelete),
		"canDetail": def.Allows(role, OpDetail),
		"action":    "/" + string(role) + "/" + def.Name,
	}
}

// DetailPage builds the template data of a record detail page.
func DetailPage[T Record](role Role, session Session, def ResourceDefinition, record T) map[string]any {
	cells := record.Cells()
	fields := make([]TableRow, 0, len(cells))
	for i, header := range def.Columns {
		if i < len(cells) {
			fields = append(fields, TableRow{ID: header, Cells: []string{cells[i]}})
		}
	}
	return map[string]any{
		"title":    def.Label,
		"role":     string(role),
		"session":  session,
		"nav":      Navigation(role, def.Name),
		"resource": def,
		"id":       record.RecordID(),
		"fields":   fields,
		"record":   FormValues(record),
		"back":     "/" + string(role) + "/" + def.Name,
	}
}

// WizardPage builds the template data of the quote wizard.
func WizardPage(session Session, state WizardState) map[string]any {
	return map[string]any{
		"title":     "Request a Quote",
		"role":      string(RoleUser),
		"session":   session,
		"nav":       Navigation(RoleUser, "request"),
		"step":      int(state.Step),
		"stepName":  state.Step.String(),
		"customer":  state.Request.Customer,
		"vehicle":   state.Request.Vehicle,
		"insurance": state.Request.Insurance,
		"error":     state.Error,
		"result":    state.Result,
	}
}

// ProfilePage builds the profile page. sample marks the built-in default
// shown until a profile is stored for the client.
func ProfilePage(session Session, provider *ProfileProvider) map[string]any {
	return map[string]any{
		"title":   "Profile",
		"role":    string(RoleUser),
		"session": session,
		"nav":     Navigation(RoleUser, "profile"),
		"profile": provider.Current(),
		"sample":  !provider.Stored(),
	}
}

// FieldView is a form input with the value to echo back.
type FieldView struct {
	FieldDefinition
	Value string
}

func fieldViews(def ResourceDefinition, values map[string]any) []FieldView {
	out := make([]FieldView, 0, len(def.Fields))
	for _, f := range def.Fields {
		value, _ := values[f.Name].(string)
		out = append(out, FieldView{FieldDefinition: f, Value: value})
	}
	return out
}

// FormValues flattens a form or record into its json field names for templates.
func FormValues(v any) map[string]any {
	out := map[string]any{}
	data, err := json.Marshal(v)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(data, &out)
	return out
}

// RenderPage renders a page into w.
func RenderPage(r Renderer, w io.Writer, name string, data map[string]any) error {
	_, err := r.Render(name, data, w)
	return err
}
