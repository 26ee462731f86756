package portal

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// ParseStep reads a step number as posted by the wizard page.
func ParseStep(raw string) (WizardStep, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < int(StepCustomer) || n > int(StepInsurance) {
		return 0, fmt.Errorf("%w: unknown step %q", ErrInvalidTransition, raw)
	}
	return WizardStep(n), nil
}

// StepFromValues decodes the inputs of one wizard step from a submitted form.
// Coverage options arrive as checkboxes named after each option.
func StepFromValues(step WizardStep, values url.Values) (StepData, error) {
	switch step {
	case StepCustomer:
		d, err := DecodeForm[CustomerDetails](values)
		return d, err
	case StepVehicle:
		d, err := DecodeForm[VehicleDetails](values)
		return d, err
	case StepInsurance:
		return InsuranceDetails{
			RequiredPolicy: RequiredPolicy{
				Comprehensive: checked(values, "comprehensive"),
				Collision:     checked(values, "collision"),
				Liability:     checked(values, "liability"),
			},
			Coverage: AdditionalCoverage{
				Medical:  checked(values, "medical"),
				Rental:   checked(values, "rental"),
				Roadside: checked(values, "roadside"),
			},
			AdditionalNotes: values.Get("additionalNotes"),
			Amount:          values.Get("amount"),
		}, nil
	}
	return nil, fmt.Errorf("%w: no input for %s", ErrInvalidTransition, step)
}

// StepFromJSON decodes the inputs of one wizard step from a JSON body.
func StepFromJSON(step WizardStep, data []byte) (StepData, error) {
	var (
		out StepData
		err error
	)
	switch step {
	case StepCustomer:
		var d CustomerDetails
		err = json.Unmarshal(data, &d)
		out = d
	case StepVehicle:
		var d VehicleDetails
		err = json.Unmarshal(data, &d)
		out = d
	case StepInsurance:
		var d InsuranceDetails
		err = json.Unmarshal(data, &d)
		out = d
	default:
		return nil, fmt.Errorf("%w: no input for %s", ErrInvalidTransition, step)
	}
	if err != nil {
		return nil, &ValidationError{Field: "body", Message: "Request body is not valid JSON."}
	}
	return out, nil
}

func checked(values url.Values, name string) bool {
	switch values.Get(name) {
	case "on", "true", "1", name:
		return true
	}
	return false
}
