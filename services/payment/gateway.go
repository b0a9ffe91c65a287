package payment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v83"
)

// CheckoutSession is the opaque provider session handed back to the buyer
// for redirect. Nothing about it is persisted locally; the purchase intent
// travels in the session metadata and comes back on the webhook.
type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"checkout_url"`
}

// CheckoutParams describes the session to mint
type CheckoutParams struct {
	UserID      uint
	CourseID    uint
	CourseTitle string
	AmountMinor int64 // minor currency units (cents)
	SuccessURL  string
	CancelURL   string
}

// Gateway abstracts the payment provider so the checkout service and its
// tests do not touch the network
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
}

// StripeGateway implements Gateway against Stripe Checkout
type StripeGateway struct {
	client *stripe.Client
}

// NewStripeGateway creates a gateway bound to the given secret key
func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{
		client: stripe.NewClient(secretKey),
	}
}

// CreateCheckoutSession mints a one-time-payment checkout session. The
// {user_id, course_id} metadata is echoed back verbatim by the provider on
// completion and is the only link between the session and the enrollment
// it pays for.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionCreateParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(p.CourseTitle),
					},
					UnitAmount: stripe.Int64(p.AmountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}

	// The webhook handler depends on this metadata being present.
	params.Metadata = map[string]string{
		"user_id":   strconv.FormatUint(uint64(p.UserID), 10),
		"course_id": strconv.FormatUint(uint64(p.CourseID), 10),
	}
	params.ClientReferenceID = stripe.String(strconv.FormatUint(uint64(p.UserID), 10))

	session, err := g.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{
		ID:  session.ID,
		URL: session.URL,
	}, nil
}
