package portal

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// Record is a server-owned entity identified by the `_id` the API assigns.
type Record interface {
	RecordID() string
	// Cells returns the display values for the resource table, in column order.
	Cells() []string
}

// UserStatus enumerates account states.
type UserStatus string

const (
	UserActive   UserStatus = "Active"
	UserInactive UserStatus = "Inactive"
)

// QuoteStatus enumerates quote review states.
type QuoteStatus string

const (
	QuotePending   QuoteStatus = "Pending"
	QuoteCompleted QuoteStatus = "Completed"
)

// TicketStatus enumerates support ticket states.
type TicketStatus string

const (
	TicketOpen     TicketStatus = "Open"
	TicketPending  TicketStatus = "Pending"
	TicketResolved TicketStatus = "Resolved"
)

type User struct {
	ID          string     `json:"_id,omitempty"`
	Name        string     `json:"name"`
	Code        string     `json:"code"`
	Status      UserStatus `json:"status"`
	DateCreated time.Time  `json:"dateCreated,omitzero"`
}

func (u User) RecordID() string { return u.ID }

func (u User) Cells() []string {
	return []string{u.Name, u.Code, string(u.Status), relativeTime(u.DateCreated)}
}

type Policy struct {
	ID            string  `json:"_id,omitempty"`
	Provider      string  `json:"provider"`
	PolicyNumber  string  `json:"policyNumber"`
	Coverage      string  `json:"coverage"`
	PremiumAmount float64 `json:"premiumAmount"`
}

func (p Policy) RecordID() string { return p.ID }

func (p Policy) Cells() []string {
	return []string{p.Provider, p.PolicyNumber, p.Coverage, FormatMoney(p.PremiumAmount)}
}

// RequiredPolicy lists the base policy kinds requested in a quote.
type RequiredPolicy struct {
	Comprehensive bool `json:"comprehensive"`
	Collision     bool `json:"collision"`
	Liability     bool `json:"liability"`
}

// AdditionalCoverage lists optional add-ons requested in a quote.
type AdditionalCoverage struct {
	Medical  bool `json:"medical"`
	Rental   bool `json:"rental"`
	Roadside bool `json:"roadside"`
}

// Quote is a customer's request for a vehicle insurance offer. Empty optional
// fields are omitted from the wire so partial status updates stay partial.
type Quote struct {
	ID              string              `json:"_id,omitempty"`
	FirstName       string              `json:"firstName,omitempty"`
	LastName        string              `json:"lastName,omitempty"`
	Email           string              `json:"email,omitempty"`
	Phone           string              `json:"phone,omitempty"`
	Address         string              `json:"address,omitempty"`
	City            string              `json:"city,omitempty"`
	State           string              `json:"state,omitempty"`
	ZipCode         string              `json:"zipCode,omitempty"`
	Make            string              `json:"make,omitempty"`
	Model           string              `json:"model,omitempty"`
	Year            string              `json:"year,omitempty"`
	VIN             string              `json:"vin,omitempty"`
	Mileage         string              `json:"mileage,omitempty"`
	Condition       string              `json:"condition,omitempty"`
	RequiredPolicy  *RequiredPolicy     `json:"requiredPolicy,omitempty"`
	Coverage        *AdditionalCoverage `json:"coverage,omitempty"`
	AdditionalNotes string              `json:"additionalNotes,omitempty"`
	Amount          string              `json:"amount,omitempty"`
	Status          QuoteStatus         `json:"status,omitempty"`
	CreatedAt       time.Time           `json:"createdAt,omitzero"`
	UpdatedAt       time.Time           `json:"updatedAt,omitzero"`
}

func (q Quote) RecordID() string { return q.ID }

func (q Quote) Cells() []string {
	amount := q.Amount
	if v, err := strconv.ParseFloat(q.Amount, 64); err == nil {
		amount = FormatMoney(v)
	}
	return []string{
		q.FirstName + " " + q.LastName,
		q.Year + " " + q.Make + " " + q.Model,
		amount,
		string(q.Status),
		relativeTime(q.CreatedAt),
	}
}

type Ticket struct {
	ID          string       `json:"_id,omitempty"`
	FullName    string       `json:"fullName,omitempty"`
	Email       string       `json:"email,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Category    string       `json:"category,omitempty"`
	Subject     string       `json:"subject,omitempty"`
	Description string       `json:"description,omitempty"`
	Status      TicketStatus `json:"status,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitzero"`
	UpdatedAt   time.Time    `json:"updatedAt,omitzero"`
}

func (t Ticket) RecordID() string { return t.ID }

func (t Ticket) Cells() []string {
	return []string{t.Subject, t.Category, t.FullName, string(t.Status), relativeTime(t.CreatedAt)}
}

// Transaction is an append-only payment ledger entry.
type Transaction struct {
	ID           string  `json:"_id,omitempty"`
	RefCode      string  `json:"refCode"`
	Client       string  `json:"client"`
	Policy       string  `json:"policy"`
	VehicleRegNo string  `json:"vehicleRegNo"`
	Registration string  `json:"registration"`
	Expiration   string  `json:"expiration"`
	Cost         float64 `json:"cost"`
}

func (t Transaction) RecordID() string { return t.ID }

func (t Transaction) Cells() []string {
	return []string{t.RefCode, t.Client, t.Policy, t.VehicleRegNo, t.Registration, t.Expiration, FormatMoney(t.Cost)}
}

type Report struct {
	ID             string `json:"_id,omitempty"`
	Name           string `json:"name"`
	Survey         string `json:"survey"`
	EmployeesCount int    `json:"employeesCount"`
	Participation  string `json:"participation"`
	Status         string `json:"status"`
}

func (r Report) RecordID() string { return r.ID }

func (r Report) Cells() []string {
	return []string{r.Name, r.Survey, humanize.Comma(int64(r.EmployeesCount)), r.Participation, r.Status}
}

// FormatMoney renders an amount as dollars with two decimals and thousands separators.
func FormatMoney(amount float64) string {
	return "$" + humanize.FormatFloat("#,###.##", amount)
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}
