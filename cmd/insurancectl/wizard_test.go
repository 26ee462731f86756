package main

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	portal "github.com/goliatone/go-insurance/components/portal"
)

type recordingCreator struct {
	quotes []portal.Quote
}

func (c *recordingCreator) Create(_ context.Context, quote portal.Quote) (portal.Quote, error) {
	quote.ID = "q-1"
	c.quotes = append(c.quotes, quote)
	return quote, nil
}

func newTestWizard(t *testing.T) (*recordingCreator, wizardModel) {
	t.Helper()
	creator := &recordingCreator{}
	wizard, err := portal.NewQuoteWizard(context.Background(), portal.WizardOptions{Creator: creator})
	if err != nil {
		t.Fatalf("NewQuoteWizard: %v", err)
	}
	return creator, newWizardModel(context.Background(), wizard)
}

func fill(m wizardModel, values map[string]string) wizardModel {
	for i, f := range m.fields {
		if v, ok := values[f.name]; ok {
			m.inputs[i].SetValue(v)
		}
	}
	m.focus = len(m.inputs) - 1
	return m
}

// press sends enter and runs the resulting command synchronously.
func press(t *testing.T, m wizardModel) wizardModel {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(wizardModel)
	if cmd == nil {
		t.Fatalf("expected the step to be posted")
	}
	next, _ = m.Update(cmd())
	return next.(wizardModel)
}

func TestWizardModelWalksEveryStep(t *testing.T) {
	creator, m := newTestWizard(t)
	if m.step != portal.StepCustomer || len(m.inputs) != len(wizardFields[portal.StepCustomer]) {
		t.Fatalf("expected customer step inputs, got step %s with %d inputs", m.step, len(m.inputs))
	}

	m = press(t, fill(m, map[string]string{
		"firstName": "Ann", "lastName": "Lee", "email": "ann@example.com", "phone": "555",
		"address": "1 Main", "city": "Springfield", "state": "IL", "zipCode": "62701",
	}))
	if m.step != portal.StepVehicle || m.err != "" {
		t.Fatalf("expected vehicle step, got %s (%s)", m.step, m.err)
	}

	m = press(t, fill(m, map[string]string{
		"make": "Toyota", "model": "Corolla", "year": "2021", "vin": "VIN1", "mileage": "1000", "condition": "Good",
	}))
	if m.step != portal.StepInsurance {
		t.Fatalf("expected insurance step, got %s (%s)", m.step, m.err)
	}

	m = press(t, fill(m, map[string]string{"collision": "y", "roadside": "yes", "amount": "900"}))
	if m.step != portal.StepConfirmation || m.result == nil {
		t.Fatalf("expected confirmation, got %s (%s)", m.step, m.err)
	}
	if len(creator.quotes) != 1 {
		t.Fatalf("expected one submission, got %d", len(creator.quotes))
	}
	quote := creator.quotes[0]
	if quote.FirstName != "Ann" || quote.Make != "Toyota" || quote.Amount != "900" {
		t.Fatalf("unexpected quote %+v", quote)
	}
	if quote.RequiredPolicy == nil || !quote.RequiredPolicy.Collision || quote.RequiredPolicy.Liability {
		t.Fatalf("unexpected required policy %+v", quote.RequiredPolicy)
	}
}

func TestWizardModelKeepsInputOnValidationError(t *testing.T) {
	creator, m := newTestWizard(t)
	m = press(t, fill(m, map[string]string{"firstName": "Ann"}))
	if m.step != portal.StepCustomer || m.err == "" {
		t.Fatalf("expected to stay on customer step with an error, got %s (%q)", m.step, m.err)
	}
	if got := m.inputs[0].Value(); got != "Ann" {
		t.Fatalf("expected first name kept, got %q", got)
	}
	if len(creator.quotes) != 0 {
		t.Fatalf("nothing must be submitted")
	}
}

func TestWizardModelStepsBack(t *testing.T) {
	_, m := newTestWizard(t)
	m = press(t, fill(m, map[string]string{
		"firstName": "Ann", "lastName": "Lee", "email": "ann@example.com", "phone": "555",
		"address": "1 Main", "city": "Springfield", "state": "IL", "zipCode": "62701",
	}))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlB})
	m = next.(wizardModel)
	if m.step != portal.StepCustomer {
		t.Fatalf("expected customer step after going back, got %s", m.step)
	}
	if got := m.values().Get("city"); got != "Springfield" {
		t.Fatalf("expected input restored, got %q", got)
	}
}

func TestWizardValuesSendTogglesAsCheckboxes(t *testing.T) {
	m := wizardModel{fields: wizardFields[portal.StepInsurance]}
	for range m.fields {
		m.inputs = append(m.inputs, newInput())
	}
	m = fill(m, map[string]string{"comprehensive": "Y", "collision": "n", "amount": " 10 "})
	values := m.values()
	if values.Get("comprehensive") != "on" || values.Has("collision") {
		t.Fatalf("unexpected toggles %v", values)
	}
	if values.Get("amount") != "10" {
		t.Fatalf("expected trimmed amount, got %q", values.Get("amount"))
	}
}

func TestRequestValuesRoundTrip(t *testing.T) {
	req := portal.QuoteRequest{
		Customer:  portal.CustomerDetails{FirstName: "Ann", ZipCode: "62701"},
		Vehicle:   portal.VehicleDetails{VIN: "VIN1"},
		Insurance: portal.InsuranceDetails{Coverage: portal.AdditionalCoverage{Rental: true}, Amount: "5"},
	}
	values := requestValues(req)
	if values.Get("firstName") != "Ann" || values.Get("zipCode") != "62701" || values.Get("vin") != "VIN1" {
		t.Fatalf("unexpected values %v", values)
	}
	if !isYes(values.Get("rental")) || values.Has("medical") || values.Get("amount") != "5" {
		t.Fatalf("unexpected insurance values %v", values)
	}
}
