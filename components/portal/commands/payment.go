package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	portal "github.com/goliatone/go-insurance/components/portal"
)

type paymentService interface {
	Charge(ctx context.Context, form portal.PaymentForm) (portal.PaymentResult, error)
}

// ChargePaymentInput carries the payment form and receives the processor answer.
type ChargePaymentInput struct {
	Form   portal.PaymentForm
	Result *portal.PaymentResult
}

// ChargePaymentCommand forwards a validated payment to the gateway.
type ChargePaymentCommand struct {
	service   paymentService
	telemetry Telemetry
}

// NewChargePaymentCommand creates the command. A nil service makes every
// charge fail, which is how deployments without a gateway behave.
func NewChargePaymentCommand(service paymentService, telemetry Telemetry) *ChargePaymentCommand {
	return &ChargePaymentCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ChargePaymentInput] = (*ChargePaymentCommand)(nil)

func (c *ChargePaymentCommand) Execute(ctx context.Context, msg ChargePaymentInput) error {
	if c.service == nil {
		return errors.New("payment command requires gateway")
	}
	result, err := c.service.Charge(ctx, msg.Form)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = result
	}
	c.telemetry.Record(ctx, "portal.payment.charge", map[string]any{
		"method": msg.Form.Method,
		"amount": string(msg.Form.Amount),
	})
	return nil
}
