package payments

import (
	"errors"
	"net/http"
	"strings"

	"hemera-academy/ledger"
	"hemera-academy/models"
	"hemera-academy/payment"
	"hemera-academy/utils"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v82"
)

type confirmRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

// ConfirmPayment settles a booking after the client finished the processor's
// payment flow. The claimed outcome is never trusted: the intent status is
// re-fetched from Stripe, and the intent's metadata must reference the
// authenticated caller.
// @Summary Confirm a payment
// @Description Re-fetch the payment intent from Stripe and mark the booking paid when it succeeded
// @Tags payments
// @Accept json
// @Produce json
// @Param body body confirmRequest true "Payment intent reference"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "status, bookingId"
// @Failure 400 {object} map[string]string "error: Payment Intent ID is required"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Failure 404 {object} map[string]string "error: Payment Intent not found"
// @Failure 503 {object} map[string]string "error: Payment service unavailable"
// @Router /payment/confirm [post]
func ConfirmPayment(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.LogError(nil, "User not authenticated in ConfirmPayment")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !payment.Default.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment service unavailable"})
		return
	}

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment Intent ID is required"})
		return
	}

	intent, err := payment.Default.RetrieveIntent(req.PaymentIntentID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment Intent not found"})
			return
		}
		utils.LogErrorWithUser(userID, err, "Error retrieving payment intent in ConfirmPayment")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment service unavailable"})
		return
	}

	// One user must not be able to claim another user's payment.
	if intent.Metadata["userId"] != userID {
		utils.LogErrorWithUser(userID, nil, "Payment intent user mismatch in ConfirmPayment")
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to confirm this payment"})
		return
	}

	bookingID := intent.Metadata["bookingId"]

	if intent.Status == stripe.PaymentIntentStatusSucceeded {
		if bookingID != "" {
			updated, err := ledger.SetPaymentStatus(bookingID, models.PaymentPaid, intent.ID)
			if errors.Is(err, ledger.ErrInvalidTransition) {
				// The booking moved on before the payment settled, e.g. the
				// user cancelled it. Report the booking's real state, not
				// the processor's.
				state := strings.ToLower(string(updated.PaymentStatus))
				c.JSON(http.StatusOK, gin.H{
					"status":          state,
					"bookingId":       updated.ID,
					"paymentIntentId": intent.ID,
					"message":         "Payment succeeded but the booking is " + state,
				})
				return
			}
			if err != nil {
				utils.LogErrorWithBooking(userID, bookingID, err, "Error settling booking in ConfirmPayment")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error confirming the payment"})
				return
			}
		}

		utils.LogSuccessWithUser(userID, "Payment confirmed successfully in ConfirmPayment")
		c.JSON(http.StatusOK, gin.H{
			"status":          "succeeded",
			"bookingId":       bookingID,
			"amount":          intent.Amount,
			"currency":        intent.Currency,
			"paymentIntentId": intent.ID,
		})
		return
	}

	// Non-terminal processor state: report it, change nothing.
	c.JSON(http.StatusOK, gin.H{
		"status":  string(intent.Status),
		"message": paymentStatusMessage(intent.Status),
	})
}

func paymentStatusMessage(status stripe.PaymentIntentStatus) string {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return "Payment successful!"
	case stripe.PaymentIntentStatusProcessing:
		return "Payment is processing..."
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return "Payment failed. Please try again."
	case stripe.PaymentIntentStatusRequiresConfirmation:
		return "Payment requires confirmation."
	case stripe.PaymentIntentStatusRequiresAction:
		return "Payment requires additional action."
	case stripe.PaymentIntentStatusCanceled:
		return "Payment was canceled."
	default:
		return "Payment status unknown."
	}
}
