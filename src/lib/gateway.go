package lib

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

// ChargeRef is what the core keeps from an external charge: the gateway's
// id (matched against webhook events later) and the hosted checkout page.
type ChargeRef struct {
	ExternalID string
	HostedURL  string
}

// PaymentGateway creates charges on an external processor. Confirmation
// arrives out-of-band through the payment webhook, never synchronously.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*ChargeRef, error)
}

var paymentGateway PaymentGateway

func GetPaymentGateway() PaymentGateway {
	if paymentGateway != nil {
		return paymentGateway
	}
	paymentGateway = &stripeGateway{}
	return paymentGateway
}

// NewPaymentGateway Replace gateway with custom implementation
func NewPaymentGateway(g PaymentGateway) {
	paymentGateway = g
}

type stripeGateway struct{}

func (s *stripeGateway) CreateCharge(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*ChargeRef, error) {
	sc := GetStripeClient()
	successUrl := fmt.Sprintf("%s/checkout/callback/success", os.Getenv("APP_HOST"))
	cancelUrl := fmt.Sprintf("%s/checkout/callback/cancel", os.Getenv("APP_HOST"))
	name := metadata["tier_name"]
	if name == "" {
		name = "Event ticket"
	}
	params := &stripe.CheckoutSessionCreateParams{
		SuccessURL: stripe.String(successUrl),
		CancelURL:  stripe.String(cancelUrl),
		UIMode:     stripe.String("hosted"),
		Mode:       stripe.String("payment"),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(amount.Shift(2).IntPart()),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: metadata,
	}
	checkoutSession, err := sc.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		log.Printf("[gateway] CreateCharge failed: %s\n", err.Error())
		return nil, err
	}
	return &ChargeRef{
		ExternalID: checkoutSession.ID,
		HostedURL:  checkoutSession.URL,
	}, nil
}
