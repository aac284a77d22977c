package payments

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"hemera-academy/ledger"
	"hemera-academy/models"
	"hemera-academy/payment"
	"hemera-academy/utils"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v82"
)

type webhookHandler func(c *gin.Context, event stripe.Event)

// webhookHandlers dispatches on event type. Anything not listed is
// acknowledged with 200 and ignored: Stripe retries non-2xx deliveries, and
// unknown events must not cause retry storms.
var webhookHandlers = map[stripe.EventType]webhookHandler{
	"payment_intent.succeeded":      handlePaymentIntentSucceeded,
	"payment_intent.payment_failed": handlePaymentIntentFailed,
	"checkout.session.completed":    handleCheckoutSessionCompleted,
	"checkout.session.expired":      handleCheckoutSessionExpired,
	"charge.refunded":               handleChargeRefunded,
}

// PaymentWebhook is the processor-initiated entry point. There is no user
// session here; trust comes exclusively from the signature check, which runs
// before anything in the body is read as data.
// @Summary Stripe payment webhook
// @Description Receive signed payment events from Stripe and reconcile booking statuses
// @Tags payments
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "message: Event processed or ignored"
// @Failure 400 {object} map[string]string "error: Signature verification failed"
// @Router /webhook/payment [post]
func PaymentWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read the request body"})
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	event, err := payment.Default.VerifyWebhook(payload, sig)
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			utils.LogError(err, "Webhook secret not configured in PaymentWebhook")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook secret not configured"})
			return
		}
		utils.LogError(err, "Webhook signature verification failed in PaymentWebhook")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook signature verification failed"})
		return
	}

	handler, known := webhookHandlers[event.Type]
	if !known {
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored"})
		return
	}

	handler(c, event)
}

func handlePaymentIntentSucceeded(c *gin.Context, event stripe.Event) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing PaymentIntent"})
		return
	}

	booking, ok := bookingForIntent(c, pi.Metadata, pi.ID)
	if !ok {
		return
	}

	settleBooking(c, booking, models.PaymentPaid, pi.ID, "Booking marked paid via payment_intent.succeeded")
}

func handlePaymentIntentFailed(c *gin.Context, event stripe.Event) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing PaymentIntent"})
		return
	}

	booking, ok := bookingForIntent(c, pi.Metadata, pi.ID)
	if !ok {
		return
	}

	settleBooking(c, booking, models.PaymentFailed, pi.ID, "Booking marked failed via payment_intent.payment_failed")
}

func handleCheckoutSessionCompleted(c *gin.Context, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing CheckoutSession"})
		return
	}

	bookingID := session.Metadata["bookingId"]
	booking, err := ledger.ByID(bookingID)
	if err != nil {
		booking, err = ledger.ByStripeSession(session.ID)
	}
	if err != nil {
		utils.LogError(err, "No booking for checkout session in handleCheckoutSessionCompleted")
		c.JSON(http.StatusOK, gin.H{"message": "No matching booking for this session"})
		return
	}

	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		// Async payment methods complete later; the payment_intent events
		// will settle the booking.
		c.JSON(http.StatusOK, gin.H{"message": "Session completed, awaiting payment"})
		return
	}

	ref := ""
	if session.PaymentIntent != nil {
		ref = session.PaymentIntent.ID
	}
	settleBooking(c, booking, models.PaymentPaid, ref, "Booking marked paid via checkout.session.completed")
}

func handleCheckoutSessionExpired(c *gin.Context, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing CheckoutSession"})
		return
	}

	booking, err := ledger.ByID(session.Metadata["bookingId"])
	if err != nil {
		booking, err = ledger.ByStripeSession(session.ID)
	}
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "No matching booking for this session"})
		return
	}

	settleBooking(c, booking, models.PaymentFailed, "", "Booking marked failed via checkout.session.expired")
}

func handleChargeRefunded(c *gin.Context, event stripe.Event) {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing Charge"})
		return
	}

	intentID := ""
	if charge.PaymentIntent != nil {
		intentID = charge.PaymentIntent.ID
	}

	booking, ok := bookingForIntent(c, charge.Metadata, intentID)
	if !ok {
		return
	}

	settleBooking(c, booking, models.PaymentRefunded, "", "Booking marked refunded via charge.refunded")
}

// bookingForIntent resolves the booking an event refers to, first through the
// metadata cross-reference, then by the stored payment intent id. A miss is
// acknowledged with 200 so Stripe stops redelivering an event we can never
// match.
func bookingForIntent(c *gin.Context, metadata map[string]string, intentID string) (*models.Booking, bool) {
	if bookingID := metadata["bookingId"]; bookingID != "" {
		booking, err := ledger.ByID(bookingID)
		if err == nil {
			return booking, true
		}
	}

	booking, err := ledger.ByPaymentIntent(intentID)
	if err != nil {
		utils.LogError(err, "No booking matches the payment event in bookingForIntent")
		c.JSON(http.StatusOK, gin.H{"message": "No matching booking for this event"})
		return nil, false
	}
	return booking, true
}

// settleBooking applies one status transition. A repeated identical delivery
// is a no-op inside the ledger; a transition the table rejects (stale event
// after a terminal state) is acknowledged without being applied.
func settleBooking(c *gin.Context, booking *models.Booking, status models.PaymentStatus, externalRef, successMsg string) {
	_, err := ledger.SetPaymentStatus(booking.ID, status, externalRef)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidTransition) {
			c.JSON(http.StatusOK, gin.H{"message": "Event out of date for the booking's current state"})
			return
		}
		utils.LogErrorWithBooking(booking.UserID, booking.ID, err, "Error applying webhook transition in settleBooking")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating the booking"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": successMsg})
}
