package apiclient

import (
	"context"
	"net/http"

	portal "github.com/goliatone/go-insurance/components/portal"
)

// PaymentGateway posts charges to the payment endpoint. The endpoint may be
// a path on the API or an absolute URL.
type PaymentGateway struct {
	client   *Client
	endpoint string
}

// NewPaymentGateway binds the payment endpoint.
func NewPaymentGateway(client *Client, endpoint string) *PaymentGateway {
	return &PaymentGateway{client: client, endpoint: endpoint}
}

var _ portal.PaymentGateway = (*PaymentGateway)(nil)

// Charge sends the request and returns the processor's answer.
func (g *PaymentGateway) Charge(ctx context.Context, req portal.PaymentRequest) (portal.PaymentResult, error) {
	var result portal.PaymentResult
	if err := g.client.do(ctx, "payment", http.MethodPost, g.endpoint, req, &result); err != nil {
		return portal.PaymentResult{}, err
	}
	return result, nil
}
