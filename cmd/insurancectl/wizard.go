package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ettle/strcase"

	portal "github.com/goliatone/go-insurance/components/portal"
)

type quoteCmd struct {
	Reset bool `help:"Discard a saved draft and start from the first step."`
}

func (cmd *quoteCmd) Run(ctx context.Context, g *globals) error {
	s, err := openSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()
	actx, _, ws, err := s.app.Service.Authorize(ctx, s.clientID, portal.RoleUser)
	if err != nil {
		return fmt.Errorf("insurancectl: %s", portal.UserMessage(err))
	}
	wizard, err := ws.Wizard(actx)
	if err != nil {
		return err
	}
	if cmd.Reset {
		wizard.Reset(actx)
	}
	final, err := tea.NewProgram(newWizardModel(actx, wizard)).Run()
	if err != nil {
		return fmt.Errorf("insurancectl: quote wizard: %w", err)
	}
	m, _ := final.(wizardModel)
	if m.result == nil {
		fmt.Fprintln(os.Stdout, mutedStyle.Render("Quote request not submitted."))
		return nil
	}
	fmt.Fprintln(os.Stdout, successStyle.Render("✓ Quote request submitted"))
	return printRecord(*m.result)
}

type wizardField struct {
	name   string
	toggle bool
}

func (f wizardField) label() string {
	label := fieldLabel(f.name)
	if f.toggle {
		label += " (y/n)"
	}
	return label
}

var wizardFields = map[portal.WizardStep][]wizardField{
	portal.StepCustomer: {
		{name: "firstName"}, {name: "lastName"}, {name: "email"}, {name: "phone"},
		{name: "address"}, {name: "city"}, {name: "state"}, {name: "zipCode"},
	},
	portal.StepVehicle: {
		{name: "make"}, {name: "model"}, {name: "year"}, {name: "vin"},
		{name: "mileage"}, {name: "condition"},
	},
	portal.StepInsurance: {
		{name: "comprehensive", toggle: true}, {name: "collision", toggle: true}, {name: "liability", toggle: true},
		{name: "medical", toggle: true}, {name: "rental", toggle: true}, {name: "roadside", toggle: true},
		{name: "additionalNotes"}, {name: "amount"},
	},
}

// stepDoneMsg reports the outcome of advancing or submitting a step.
type stepDoneMsg struct {
	err error
}

// wizardModel renders one wizard step as a column of text inputs. Enter on
// the last input advances the wizard; ctrl+b goes back a step.
type wizardModel struct {
	ctx    context.Context
	wizard *portal.QuoteWizard

	step   portal.WizardStep
	fields []wizardField
	inputs []textinput.Model
	focus  int
	err    string
	busy   bool
	result *portal.Quote
}

func newWizardModel(ctx context.Context, wizard *portal.QuoteWizard) wizardModel {
	m := wizardModel{ctx: ctx, wizard: wizard}
	m.load()
	return m
}

// load rebuilds the inputs from the wizard state, so input kept by the
// wizard reappears after a failed step or a step back.
func (m *wizardModel) load() {
	state := m.wizard.State()
	m.step = state.Step
	m.err = state.Error
	m.result = state.Result
	m.fields = wizardFields[state.Step]
	values := requestValues(state.Request)
	m.inputs = make([]textinput.Model, len(m.fields))
	for i, f := range m.fields {
		in := newInput()
		if f.toggle {
			in.Placeholder = "n"
			in.CharLimit = 3
		}
		in.SetValue(values.Get(f.name))
		m.inputs[i] = in
	}
	m.focus = 0
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
}

func newInput() textinput.Model {
	in := textinput.New()
	in.Prompt = "› "
	in.CharLimit = 200
	in.Width = 40
	return in
}

func (m wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepDoneMsg:
		m.busy = false
		m.load()
		if msg.err != nil && m.err == "" {
			m.err = portal.UserMessage(msg.err)
		}
		if m.step == portal.StepConfirmation {
			return m, tea.Quit
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "down":
			m.move(1)
			return m, nil
		case "shift+tab", "up":
			m.move(-1)
			return m, nil
		case "ctrl+b":
			if m.busy {
				return m, nil
			}
			err := m.wizard.Previous(m.ctx)
			m.load()
			if err != nil {
				m.err = portal.UserMessage(err)
			}
			return m, nil
		case "enter":
			if m.busy {
				return m, nil
			}
			if m.focus < len(m.inputs)-1 {
				m.move(1)
				return m, nil
			}
			m.busy = true
			return m, m.advance()
		}
	}
	if m.busy || len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *wizardModel) move(delta int) {
	if len(m.inputs) == 0 {
		return
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
}

// advance posts the current step. The insurance step submits the request.
func (m wizardModel) advance() tea.Cmd {
	ctx, wizard, step, values := m.ctx, m.wizard, m.step, m.values()
	return func() tea.Msg {
		data, err := portal.StepFromValues(step, values)
		if err != nil {
			return stepDoneMsg{err: err}
		}
		if insurance, ok := data.(portal.InsuranceDetails); ok {
			_, err := wizard.Submit(ctx, insurance)
			return stepDoneMsg{err: err}
		}
		return stepDoneMsg{err: wizard.Next(ctx, data)}
	}
}

// values reads the inputs as a submitted form. Toggles are sent like checked
// checkboxes.
func (m wizardModel) values() url.Values {
	values := url.Values{}
	for i, f := range m.fields {
		raw := strings.TrimSpace(m.inputs[i].Value())
		if f.toggle {
			if isYes(raw) {
				values.Set(f.name, "on")
			}
			continue
		}
		values.Set(f.name, raw)
	}
	return values
}

func (m wizardModel) View() string {
	if m.step == portal.StepConfirmation {
		return successStyle.Render("Quote request submitted.") + "\n"
	}
	var b strings.Builder
	title := fmt.Sprintf("Quote request: step %d of %d, %s", m.step, portal.StepInsurance, strcase.ToCase(m.step.String(), strcase.TitleCase, ' '))
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	width := 0
	for _, f := range m.fields {
		width = max(width, len(f.label()))
	}
	for i, f := range m.fields {
		style := mutedStyle
		if i == m.focus {
			style = headerStyle
		}
		b.WriteString(style.Width(width + columnGap).Render(f.label()))
		b.WriteString(m.inputs[i].View())
		b.WriteByte('\n')
	}
	if m.err != "" {
		b.WriteString("\n" + errorStyle.Render(m.err) + "\n")
	}
	if m.busy {
		b.WriteString("\n" + mutedStyle.Render("Submitting...") + "\n")
	}
	help := "tab/↓ next field · enter continue · esc quit"
	if m.step > portal.StepCustomer {
		help = "tab/↓ next field · enter continue · ctrl+b back · esc quit"
	}
	b.WriteString("\n" + mutedStyle.Render(help) + "\n")
	return b.String()
}

// requestValues flattens the accumulated request into input values.
func requestValues(req portal.QuoteRequest) url.Values {
	values := url.Values{}
	for _, part := range []any{req.Customer, req.Vehicle} {
		data, err := json.Marshal(part)
		if err != nil {
			continue
		}
		var flat map[string]string
		if json.Unmarshal(data, &flat) != nil {
			continue
		}
		for name, value := range flat {
			values.Set(name, value)
		}
	}
	ins := req.Insurance
	toggles := map[string]bool{
		"comprehensive": ins.RequiredPolicy.Comprehensive,
		"collision":     ins.RequiredPolicy.Collision,
		"liability":     ins.RequiredPolicy.Liability,
		"medical":       ins.Coverage.Medical,
		"rental":        ins.Coverage.Rental,
		"roadside":      ins.Coverage.Roadside,
	}
	for name, on := range toggles {
		if on {
			values.Set(name, "y")
		}
	}
	values.Set("additionalNotes", ins.AdditionalNotes)
	values.Set("amount", ins.Amount)
	return values
}

func isYes(raw string) bool {
	switch strings.ToLower(raw) {
	case "y", "yes", "true", "on", "1":
		return true
	}
	return false
}
