package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// WizardStep is a position in the quote request flow.
type WizardStep int

const (
	StepCustomer WizardStep = iota + 1
	StepVehicle
	StepInsurance
	StepConfirmation
)

func (s WizardStep) String() string {
	switch s {
	case StepCustomer:
		return "customer"
	case StepVehicle:
		return "vehicle"
	case StepInsurance:
		return "insurance"
	case StepConfirmation:
		return "confirmation"
	}
	return "step(" + strconv.Itoa(int(s)) + ")"
}

// StepData is the input collected on one wizard step.
type StepData interface {
	WizardStep() WizardStep
	Validate() error
	apply(*QuoteRequest)
}

type CustomerDetails struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
}

func (CustomerDetails) WizardStep() WizardStep { return StepCustomer }

func (d CustomerDetails) Validate() error {
	if err := requireFields(map[string]string{
		"firstName": d.FirstName,
		"lastName":  d.LastName,
		"email":     d.Email,
	}); err != nil {
		return err
	}
	return validEmail("email", d.Email)
}

func (d CustomerDetails) apply(q *QuoteRequest) { q.Customer = d }

type VehicleDetails struct {
	Make      string `json:"make"`
	Model     string `json:"model"`
	Year      string `json:"year"`
	VIN       string `json:"vin"`
	Mileage   string `json:"mileage"`
	Condition string `json:"condition"`
}

func (VehicleDetails) WizardStep() WizardStep { return StepVehicle }

func (d VehicleDetails) Validate() error {
	return requireFields(map[string]string{
		"make":  d.Make,
		"model": d.Model,
		"year":  d.Year,
	})
}

func (d VehicleDetails) apply(q *QuoteRequest) { q.Vehicle = d }

type InsuranceDetails struct {
	RequiredPolicy  RequiredPolicy     `json:"requiredPolicy"`
	Coverage        AdditionalCoverage `json:"coverage"`
	AdditionalNotes string             `json:"additionalNotes"`
	Amount          string             `json:"amount"`
}

func (InsuranceDetails) WizardStep() WizardStep { return StepInsurance }

func (d InsuranceDetails) Validate() error {
	if strings.TrimSpace(d.Amount) == "" {
		return &ValidationError{Field: "amount", Message: msgAllFieldsRequired}
	}
	_, err := positiveFloat("amount", d.Amount, "Amount must be a valid positive number.")
	return err
}

func (d InsuranceDetails) apply(q *QuoteRequest) { q.Insurance = d }

// QuoteRequest accumulates every step's input until submission.
type QuoteRequest struct {
	Customer  CustomerDetails  `json:"customer"`
	Vehicle   VehicleDetails   `json:"vehicle"`
	Insurance InsuranceDetails `json:"insurance"`
}

// Quote converts the accumulator into the API payload.
func (q QuoteRequest) Quote() Quote {
	required := q.Insurance.RequiredPolicy
	coverage := q.Insurance.Coverage
	return Quote{
		FirstName:       strings.TrimSpace(q.Customer.FirstName),
		LastName:        strings.TrimSpace(q.Customer.LastName),
		Email:           strings.TrimSpace(q.Customer.Email),
		Phone:           strings.TrimSpace(q.Customer.Phone),
		Address:         strings.TrimSpace(q.Customer.Address),
		City:            strings.TrimSpace(q.Customer.City),
		State:           strings.TrimSpace(q.Customer.State),
		ZipCode:         strings.TrimSpace(q.Customer.ZipCode),
		Make:            strings.TrimSpace(q.Vehicle.Make),
		Model:           strings.TrimSpace(q.Vehicle.Model),
		Year:            strings.TrimSpace(q.Vehicle.Year),
		VIN:             strings.TrimSpace(q.Vehicle.VIN),
		Mileage:         strings.TrimSpace(q.Vehicle.Mileage),
		Condition:       strings.TrimSpace(q.Vehicle.Condition),
		RequiredPolicy:  &required,
		Coverage:        &coverage,
		AdditionalNotes: strings.TrimSpace(q.Insurance.AdditionalNotes),
		Amount:          strings.TrimSpace(q.Insurance.Amount),
	}
}

// QuoteCreator submits a finished quote request.
type QuoteCreator interface {
	Create(ctx context.Context, quote Quote) (Quote, error)
}

// WizardOptions wires a QuoteWizard. Storage is optional; when set the draft
// survives restarts under StorageKeyQuoteDraft.
type WizardOptions struct {
	Creator   QuoteCreator
	Storage   Storage
	Changes   ChangeHook
	Activity  ActivityRecorder
	Telemetry Telemetry
}

// WizardState is a snapshot of the wizard.
type WizardState struct {
	Step       WizardStep
	Request    QuoteRequest
	Error      string
	Submitting bool
	Result     *Quote
}

type quoteDraft struct {
	Step    WizardStep   `json:"step"`
	Request QuoteRequest `json:"request"`
}

// QuoteWizard drives the four step quote request flow.
type QuoteWizard struct {
	creator   QuoteCreator
	storage   Storage
	changes   ChangeHook
	activity  ActivityRecorder
	telemetry Telemetry

	mu         sync.Mutex
	step       WizardStep
	request    QuoteRequest
	errMsg     string
	submitting bool
	result     *Quote
}

// NewQuoteWizard starts a wizard at the customer step, or at the saved draft.
func NewQuoteWizard(ctx context.Context, opts WizardOptions) (*QuoteWizard, error) {
	if opts.Creator == nil {
		return nil, fmt.Errorf("portal: quote wizard requires a creator")
	}
	w := &QuoteWizard{
		creator:   opts.Creator,
		storage:   opts.Storage,
		changes:   opts.Changes,
		activity:  opts.Activity,
		telemetry: normalizeTelemetry(opts.Telemetry),
		step:      StepCustomer,
	}
	if w.changes == nil {
		w.changes = noopChangeHook{}
	}
	if w.activity == nil {
		w.activity = noopActivity{}
	}
	w.restore(ctx)
	return w, nil
}

// State returns a snapshot of the wizard.
func (w *QuoteWizard) State() WizardState {
	w.mu.Lock()
	defer w.mu.Unlock()
	state := WizardState{
		Step:       w.step,
		Request:    w.request,
		Error:      w.errMsg,
		Submitting: w.submitting,
	}
	if w.result != nil {
		result := *w.result
		state.Result = &result
	}
	return state
}

// Next validates the current step's input and advances one step. Submission
// from the insurance step goes through Submit.
func (w *QuoteWizard) Next(ctx context.Context, data StepData) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if data == nil || data.WizardStep() != w.step || w.step >= StepInsurance {
		return fmt.Errorf("%w: next from %s", ErrInvalidTransition, w.step)
	}
	data.apply(&w.request)
	if err := data.Validate(); err != nil {
		w.errMsg = UserMessage(err)
		w.persist(ctx)
		return err
	}
	w.errMsg = ""
	w.step++
	w.persist(ctx)
	return nil
}

// Previous goes back one step from the vehicle or insurance step. Input is kept.
func (w *QuoteWizard) Previous(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepVehicle && w.step != StepInsurance {
		return fmt.Errorf("%w: previous from %s", ErrInvalidTransition, w.step)
	}
	if w.submitting {
		return ErrSubmitInProgress
	}
	w.step--
	w.errMsg = ""
	w.persist(ctx)
	return nil
}

// Submit validates the insurance step and posts the whole accumulator once.
// On success the wizard moves to the confirmation step; on failure it stays
// on the insurance step with the error set and may be submitted again.
func (w *QuoteWizard) Submit(ctx context.Context, insurance InsuranceDetails) (Quote, error) {
	w.mu.Lock()
	if w.step != StepInsurance {
		step := w.step
		w.mu.Unlock()
		return Quote{}, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, step)
	}
	if w.submitting {
		w.mu.Unlock()
		return Quote{}, ErrSubmitInProgress
	}
	insurance.apply(&w.request)
	if err := insurance.Validate(); err != nil {
		w.errMsg = UserMessage(err)
		w.persist(ctx)
		w.mu.Unlock()
		return Quote{}, err
	}
	w.submitting = true
	w.errMsg = ""
	payload := w.request.Quote()
	w.mu.Unlock()

	created, err := w.creator.Create(ctx, payload)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.errMsg = UserMessage(err)
		w.telemetry.Record(ctx, "portal.quote.submit_failed", map[string]any{"error": err.Error()})
		return Quote{}, fmt.Errorf("portal: submit quote: %w", err)
	}
	w.step = StepConfirmation
	w.result = &created
	w.clearDraft(ctx)
	if err := w.changes.RecordChanged(ctx, ChangeEvent{Resource: ResourceQuotes, Action: ChangeCreated, ID: created.ID}); err != nil {
		w.telemetry.Record(ctx, "portal.change_hook.failed", map[string]any{"error": err.Error()})
	}
	if err := w.activity.RecordActivity(ctx, "create", ResourceQuotes, created.ID, map[string]any{"source": "wizard"}); err != nil {
		w.telemetry.Record(ctx, "portal.activity.failed", map[string]any{"error": err.Error()})
	}
	w.telemetry.Record(ctx, "portal.quote.submitted", map[string]any{"id": created.ID})
	return created, nil
}

// Reset starts a new request from the customer step.
func (w *QuoteWizard) Reset(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.step = StepCustomer
	w.request = QuoteRequest{}
	w.errMsg = ""
	w.result = nil
	w.clearDraft(ctx)
}

func (w *QuoteWizard) restore(ctx context.Context) {
	if w.storage == nil {
		return
	}
	raw, ok, err := w.storage.Get(ctx, StorageKeyQuoteDraft)
	if err != nil || !ok {
		return
	}
	var draft quoteDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		w.telemetry.Record(ctx, "portal.quote.draft_corrupt", map[string]any{"error": err.Error()})
		return
	}
	if draft.Step < StepCustomer || draft.Step > StepInsurance {
		return
	}
	w.step = draft.Step
	w.request = draft.Request
}

// persist must be called with w.mu held.
func (w *QuoteWizard) persist(ctx context.Context) {
	if w.storage == nil {
		return
	}
	data, err := json.Marshal(quoteDraft{Step: w.step, Request: w.request})
	if err == nil {
		err = w.storage.Set(ctx, StorageKeyQuoteDraft, string(data))
	}
	if err != nil {
		w.telemetry.Record(ctx, "portal.quote.draft_failed", map[string]any{"error": err.Error()})
	}
}

func (w *QuoteWizard) clearDraft(ctx context.Context) {
	if w.storage == nil {
		return
	}
	if err := w.storage.Delete(ctx, StorageKeyQuoteDraft); err != nil {
		w.telemetry.Record(ctx, "portal.quote.draft_failed", map[string]any{"error": err.Error()})
	}
}
