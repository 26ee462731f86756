package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// PaymentMethod selects how a premium is paid.
type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentUPI  PaymentMethod = "upi"
)

type PaymentForm struct {
	Email  string     `json:"email"`
	Amount NumberText `json:"amount"`
	Method string     `json:"paymentMethod"`
	UPIID  string     `json:"upiId"`
	Token  string     `json:"token"`
}

// PaymentRequest is the validated charge sent to the gateway.
type PaymentRequest struct {
	Email  string        `json:"email"`
	Amount float64       `json:"amount"`
	Method PaymentMethod `json:"method"`
	UPIID  string        `json:"upiId,omitempty"`
	Token  string        `json:"token,omitempty"`
}

// PaymentResult is the processor's answer. Message is shown verbatim.
type PaymentResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (f PaymentForm) Build() (PaymentRequest, error) {
	if err := requireFields(map[string]string{"email": f.Email, "amount": string(f.Amount)}); err != nil {
		return PaymentRequest{}, err
	}
	if err := validEmail("email", f.Email); err != nil {
		return PaymentRequest{}, err
	}
	amount, err := positiveFloat("amount", string(f.Amount), "Amount must be a valid positive number.")
	if err != nil {
		return PaymentRequest{}, err
	}
	method := PaymentMethod(strings.ToLower(strings.TrimSpace(f.Method)))
	switch method {
	case "":
		method = PaymentCard
	case PaymentCard, PaymentUPI:
	default:
		return PaymentRequest{}, &ValidationError{Field: "paymentMethod", Message: "Choose card or UPI."}
	}
	if method == PaymentUPI && strings.TrimSpace(f.UPIID) == "" {
		return PaymentRequest{}, &ValidationError{Field: "upiId", Message: "UPI ID is required."}
	}
	return PaymentRequest{
		Email:  strings.TrimSpace(f.Email),
		Amount: amount,
		Method: method,
		UPIID:  strings.TrimSpace(f.UPIID),
		Token:  strings.TrimSpace(f.Token),
	}, nil
}

// PaymentGateway talks to the payment processor.
type PaymentGateway interface {
	Charge(ctx context.Context, req PaymentRequest) (PaymentResult, error)
}

// PaymentService validates and submits premium payments.
type PaymentService struct {
	gateway   PaymentGateway
	telemetry Telemetry
}

func NewPaymentService(gateway PaymentGateway, telemetry Telemetry) (*PaymentService, error) {
	if gateway == nil {
		return nil, errors.New("portal: payment service requires a gateway")
	}
	return &PaymentService{gateway: gateway, telemetry: normalizeTelemetry(telemetry)}, nil
}

// Charge validates form and submits it. A declined payment is returned as an
// APIError carrying the processor's message.
func (s *PaymentService) Charge(ctx context.Context, form PaymentForm) (PaymentResult, error) {
	req, err := form.Build()
	if err != nil {
		return PaymentResult{}, err
	}
	result, err := s.gateway.Charge(ctx, req)
	if err != nil {
		s.telemetry.Record(ctx, "portal.payment.failed", map[string]any{"error": err.Error()})
		return PaymentResult{}, fmt.Errorf("portal: charge: %w", err)
	}
	if !result.Success {
		s.telemetry.Record(ctx, "portal.payment.declined", map[string]any{"message": result.Message})
		return result, NewAPIError("payment", http.StatusPaymentRequired, result.Message)
	}
	s.telemetry.Record(ctx, "portal.payment.charged", map[string]any{
		"method": string(req.Method),
		"amount": req.Amount,
	})
	return result, nil
}
