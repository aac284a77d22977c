// Package payment wraps the Stripe API behind a small gateway interface so
// handlers never touch processor credentials and tests can swap in a fake,
// the same way the test harness swaps the global DB handle.
package payment

import (
	"errors"

	stripe "github.com/stripe/stripe-go/v82"
)

var (
	// ErrNotConfigured means no Stripe credentials are provisioned for this
	// environment. Callers answer 503 and must never turn it into a booking
	// state transition.
	ErrNotConfigured = errors.New("payment gateway not configured")
	// ErrSignatureInvalid means a webhook body failed authenticity
	// verification and must not be trusted.
	ErrSignatureInvalid = errors.New("webhook signature invalid")
)

// IntentParams describes a payment intent to open with the processor.
// Metadata must carry courseId, userId and bookingId so later events can be
// correlated back to exactly one booking.
type IntentParams struct {
	Amount      int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// Intent is the client-facing payment handle plus the processor state.
type Intent struct {
	ID           string
	ClientSecret string
	Status       stripe.PaymentIntentStatus
	Amount       int64
	Currency     string
	Metadata     map[string]string
}

// CheckoutParams describes a hosted checkout session for one course booking.
type CheckoutParams struct {
	CourseID    string
	CourseName  string
	Description string
	Amount      int64
	Currency    string
	UserID      string
	BookingID   string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the processor-side session handle.
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentStatus   stripe.CheckoutSessionPaymentStatus
	PaymentIntentID string
	Metadata        map[string]string
}

// Gateway is the payment processor contract consumed by the handlers.
type Gateway interface {
	Configured() bool
	CreateIntent(params IntentParams) (*Intent, error)
	RetrieveIntent(intentID string) (*Intent, error)
	CreateCheckoutSession(params CheckoutParams) (*CheckoutSession, error)
	RetrieveCheckoutSession(sessionID string) (*CheckoutSession, error)
	VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error)
}

// Default is the gateway used by the handlers; tests replace it with a fake.
var Default Gateway = &stripeGateway{}

// Init provisions the Stripe credentials for the process.
func Init(secretKey, webhookSecret string) {
	stripe.Key = secretKey
	gw := &stripeGateway{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
	}
	Default = gw
}
