package payment

import (
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	session "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"
)

// checkoutExpiry bounds how long an abandoned hosted checkout stays open.
const checkoutExpiry = 30 * time.Minute

type stripeGateway struct {
	secretKey     string
	webhookSecret string
}

func (g *stripeGateway) Configured() bool {
	return g.secretKey != "" && g.webhookSecret != ""
}

func (g *stripeGateway) CreateIntent(params IntentParams) (*Intent, error) {
	if g.secretKey == "" {
		return nil, ErrNotConfigured
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(params.Amount),
		Currency:    stripe.String(params.Currency),
		Description: stripe.String(params.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range params.Metadata {
		piParams.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(piParams)
	if err != nil {
		return nil, err
	}

	return intentFromStripe(pi), nil
}

func (g *stripeGateway) RetrieveIntent(intentID string) (*Intent, error) {
	if g.secretKey == "" {
		return nil, ErrNotConfigured
	}

	pi, err := paymentintent.Get(intentID, nil)
	if err != nil {
		return nil, err
	}

	return intentFromStripe(pi), nil
}

func (g *stripeGateway) CreateCheckoutSession(params CheckoutParams) (*CheckoutSession, error) {
	if g.secretKey == "" {
		return nil, ErrNotConfigured
	}

	metadata := map[string]string{
		"courseId":  params.CourseID,
		"userId":    params.UserID,
		"bookingId": params.BookingID,
	}

	sessParams := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(params.Currency),
					UnitAmount: stripe.Int64(params.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(params.CourseName),
						Description: stripe.String(fmt.Sprintf("Course booking for %s", params.CourseName)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		ExpiresAt:  stripe.Int64(time.Now().Add(checkoutExpiry).Unix()),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	for k, v := range metadata {
		sessParams.AddMetadata(k, v)
	}

	s, err := session.New(sessParams)
	if err != nil {
		return nil, err
	}

	return sessionFromStripe(s), nil
}

func (g *stripeGateway) RetrieveCheckoutSession(sessionID string) (*CheckoutSession, error) {
	if g.secretKey == "" {
		return nil, ErrNotConfigured
	}

	s, err := session.Get(sessionID, nil)
	if err != nil {
		return nil, err
	}

	return sessionFromStripe(s), nil
}

func (g *stripeGateway) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	if g.webhookSecret == "" {
		return stripe.Event{}, ErrNotConfigured
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return event, nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       pi.Status,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

func sessionFromStripe(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: s.PaymentStatus,
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}
