package payment

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/webhook"
)

// ErrGatewayUnavailable means the gateway is not configured in this
// deployment (e.g. no API key in the environment).
var ErrGatewayUnavailable = errors.New("payment gateway not configured")

// StripeGateway creates hosted checkout sessions for card payments and
// verifies webhook signatures.
type StripeGateway struct {
	secretKey     string
	webhookSecret string
	publicBaseURL string
}

func NewStripeGateway(secretKey, webhookSecret, publicBaseURL string) *StripeGateway {
	return &StripeGateway{secretKey: secretKey, webhookSecret: webhookSecret, publicBaseURL: publicBaseURL}
}

func (g *StripeGateway) Enabled() bool { return g.secretKey != "" }

// CheckoutSession is what the client needs to redirect to Stripe.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CreateSession opens a Stripe Checkout session for the order total. The
// order id travels in the session metadata and comes back on the webhook.
// Amounts are taken in minor units (cents).
func (g *StripeGateway) CreateSession(orderID, description string, amountCents int64, currency string) (*CheckoutSession, error) {
	if !g.Enabled() {
		return nil, ErrGatewayUnavailable
	}
	stripe.Key = g.secretKey

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(description),
				},
				UnitAmount: stripe.Int64(amountCents),
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(fmt.Sprintf("%s/checkout/success?order=%s", g.publicBaseURL, orderID)),
		CancelURL:  stripe.String(fmt.Sprintf("%s/checkout/cancel?order=%s", g.publicBaseURL, orderID)),
	}
	params.AddMetadata("order_id", orderID)
	// One session per order: retries reuse the session instead of opening
	// a second charge.
	params.SetIdempotencyKey("order-" + orderID)

	s, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{SessionID: s.ID, URL: s.URL}, nil
}

// VerifyWebhook checks the Stripe-Signature header against the raw payload
// and returns the parsed event.
func (g *StripeGateway) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	if g.webhookSecret == "" {
		return stripe.Event{}, ErrGatewayUnavailable
	}
	return webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
}
