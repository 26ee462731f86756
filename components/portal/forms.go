package portal

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
)

const (
	msgAllFieldsRequired = "All fields are required."
	msgPositivePremium   = "Premium amount must be a valid positive number."
	msgPositiveCost      = "Cost must be a valid positive number."
	msgPositiveEmployees = "Employees count must be a valid positive number."
	msgInvalidEmail      = "Please enter a valid email address."
)

// Form is the raw, string-valued input for a record. Build validates the
// input and converts it into the payload sent to the API.
type Form[T Record] interface {
	Build() (T, error)
}

// DecodeForm maps submitted form values onto F using its json field names.
func DecodeForm[F any](values url.Values) (F, error) {
	var form F
	flat := make(map[string]string, len(values))
	for key := range values {
		flat[key] = values.Get(key)
	}
	data, err := json.Marshal(flat)
	if err != nil {
		return form, fmt.Errorf("portal: encode form: %w", err)
	}
	if err := json.Unmarshal(data, &form); err != nil {
		return form, fmt.Errorf("portal: decode form: %w", err)
	}
	return form, nil
}

// NumberText is a numeric form input. JSON clients may send it as a
// string or as a bare number.
type NumberText string

func (n *NumberText) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumberText(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = NumberText(num.String())
	return nil
}

type UserForm struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Status string `json:"status"`
}

func (f UserForm) Build() (User, error) {
	if err := requireFields(map[string]string{"name": f.Name, "code": f.Code}); err != nil {
		return User{}, err
	}
	status := UserStatus(strings.TrimSpace(f.Status))
	switch status {
	case "":
		status = UserActive
	case UserActive, UserInactive:
	default:
		return User{}, &ValidationError{Field: "status", Message: "Status must be Active or Inactive."}
	}
	return User{
		Name:   strings.TrimSpace(f.Name),
		Code:   strings.TrimSpace(f.Code),
		Status: status,
	}, nil
}

type PolicyForm struct {
	Provider      string     `json:"provider"`
	PolicyNumber  string     `json:"policyNumber"`
	Coverage      string     `json:"coverage"`
	PremiumAmount NumberText `json:"premiumAmount"`
}

func (f PolicyForm) Build() (Policy, error) {
	if err := requireFields(map[string]string{
		"provider":      f.Provider,
		"policyNumber":  f.PolicyNumber,
		"coverage":      f.Coverage,
		"premiumAmount": string(f.PremiumAmount),
	}); err != nil {
		return Policy{}, err
	}
	premium, err := positiveFloat("premiumAmount", string(f.PremiumAmount), msgPositivePremium)
	if err != nil {
		return Policy{}, err
	}
	return Policy{
		Provider:      strings.TrimSpace(f.Provider),
		PolicyNumber:  strings.TrimSpace(f.PolicyNumber),
		Coverage:      strings.TrimSpace(f.Coverage),
		PremiumAmount: premium,
	}, nil
}

// QuoteStatusForm changes the review state of an existing quote.
type QuoteStatusForm struct {
	Status string `json:"status"`
}

func (f QuoteStatusForm) Build() (Quote, error) {
	switch status := QuoteStatus(strings.TrimSpace(f.Status)); status {
	case QuotePending, QuoteCompleted:
		return Quote{Status: status}, nil
	case "":
		return Quote{}, &ValidationError{Field: "status", Message: msgAllFieldsRequired}
	default:
		return Quote{}, &ValidationError{Field: "status", Message: "Status must be Pending or Completed."}
	}
}

type TicketForm struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Category    string `json:"category"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

func (f TicketForm) Build() (Ticket, error) {
	if err := requireFields(map[string]string{
		"fullName":    f.FullName,
		"email":       f.Email,
		"category":    f.Category,
		"subject":     f.Subject,
		"description": f.Description,
	}); err != nil {
		return Ticket{}, err
	}
	if err := validEmail("email", f.Email); err != nil {
		return Ticket{}, err
	}
	return Ticket{
		FullName:    strings.TrimSpace(f.FullName),
		Email:       strings.TrimSpace(f.Email),
		Phone:       strings.TrimSpace(f.Phone),
		Category:    strings.TrimSpace(f.Category),
		Subject:     strings.TrimSpace(f.Subject),
		Description: strings.TrimSpace(f.Description),
		Status:      TicketOpen,
	}, nil
}

type TransactionForm struct {
	RefCode      string     `json:"refCode"`
	Client       string     `json:"client"`
	Policy       string     `json:"policy"`
	VehicleRegNo string     `json:"vehicleRegNo"`
	Registration string     `json:"registration"`
	Expiration   string     `json:"expiration"`
	Cost         NumberText `json:"cost"`
}

func (f TransactionForm) Build() (Transaction, error) {
	if err := requireFields(map[string]string{
		"refCode":      f.RefCode,
		"client":       f.Client,
		"policy":       f.Policy,
		"vehicleRegNo": f.VehicleRegNo,
		"registration": f.Registration,
		"expiration":   f.Expiration,
		"cost":         string(f.Cost),
	}); err != nil {
		return Transaction{}, err
	}
	cost, err := positiveFloat("cost", string(f.Cost), msgPositiveCost)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		RefCode:      strings.TrimSpace(f.RefCode),
		Client:       strings.TrimSpace(f.Client),
		Policy:       strings.TrimSpace(f.Policy),
		VehicleRegNo: strings.TrimSpace(f.VehicleRegNo),
		Registration: strings.TrimSpace(f.Registration),
		Expiration:   strings.TrimSpace(f.Expiration),
		Cost:         cost,
	}, nil
}

type ReportForm struct {
	Name           string     `json:"name"`
	Survey         string     `json:"survey"`
	EmployeesCount NumberText `json:"employeesCount"`
	Participation  string     `json:"participation"`
	Status         string     `json:"status"`
}

func (f ReportForm) Build() (Report, error) {
	if err := requireFields(map[string]string{
		"name":           f.Name,
		"survey":         f.Survey,
		"employeesCount": string(f.EmployeesCount),
	}); err != nil {
		return Report{}, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(string(f.EmployeesCount)))
	if err != nil || count <= 0 {
		return Report{}, &ValidationError{Field: "employeesCount", Message: msgPositiveEmployees}
	}
	return Report{
		Name:           strings.TrimSpace(f.Name),
		Survey:         strings.TrimSpace(f.Survey),
		EmployeesCount: count,
		Participation:  strings.TrimSpace(f.Participation),
		Status:         strings.TrimSpace(f.Status),
	}, nil
}

// requireFields reports the first blank field in sorted order so the
// message is stable across calls.
func requireFields(fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for key, value := range fields {
		if strings.TrimSpace(value) == "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	first := keys[0]
	for _, key := range keys[1:] {
		if key < first {
			first = key
		}
	}
	return &ValidationError{Field: first, Message: msgAllFieldsRequired}
}

func positiveFloat(field, raw, message string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &ValidationError{Field: field, Message: message}
	}
	return value, nil
}

func validEmail(field, raw string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return &ValidationError{Field: field, Message: msgInvalidEmail}
	}
	return nil
}
