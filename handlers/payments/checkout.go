package payments

import (
	"errors"
	"net/http"
	"strings"

	"hemera-academy/catalog"
	"hemera-academy/ledger"
	"hemera-academy/models"
	"hemera-academy/payment"
	"hemera-academy/utils"

	"github.com/gin-gonic/gin"
)

// baseURL is the public site origin used to build Stripe return URLs.
var baseURL = "http://localhost:3000"

// Init sets the public base URL for checkout return links.
func Init(appBaseURL string) {
	if appBaseURL != "" {
		baseURL = appBaseURL
	}
}

type checkoutRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

// CreateCheckout starts the embedded payment flow for a course booking: it
// snapshots the course price into a PENDING booking and opens a payment
// intent cross-referenced to it, returning the client secret the frontend
// confirms with.
// @Summary Initiate checkout for a course
// @Description Create or reuse a pending booking for the course and open a payment intent for it
// @Tags payments
// @Accept json
// @Produce json
// @Param body body checkoutRequest true "Course reference (id or slug)"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "clientSecret, paymentIntentId, bookingId, amount, currency, courseName"
// @Failure 400 {object} map[string]string "error: Course ID is required"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Course not found"
// @Failure 409 {object} map[string]string "error: Already booked or course full"
// @Failure 503 {object} map[string]string "error: Payment service unavailable"
// @Router /checkout [post]
func CreateCheckout(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.LogError(nil, "User not authenticated in CreateCheckout")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Course ID is required"})
		return
	}

	course, booking, ok := prepareBooking(c, userID.(string), req.CourseID)
	if !ok {
		return
	}

	intent, err := payment.Default.CreateIntent(payment.IntentParams{
		Amount:      booking.Amount,
		Currency:    booking.Currency,
		Description: "Course booking for " + course.Title,
		Metadata: map[string]string{
			"courseId":   course.ID,
			"userId":     userID.(string),
			"bookingId":  booking.ID,
			"courseName": course.Title,
		},
	})
	if err != nil {
		utils.LogErrorWithBooking(userID, booking.ID, err, "Payment intent creation failed in CreateCheckout")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment service unavailable"})
		return
	}

	if err := ledger.AttachPaymentIntent(booking.ID, intent.ID); err != nil {
		utils.LogErrorWithBooking(userID, booking.ID, err, "Could not attach payment intent in CreateCheckout")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating the booking"})
		return
	}

	utils.LogSuccessWithUser(userID, "Checkout initiated successfully in CreateCheckout")
	c.JSON(http.StatusOK, gin.H{
		"clientSecret":    intent.ClientSecret,
		"paymentIntentId": intent.ID,
		"bookingId":       booking.ID,
		"amount":          booking.Amount,
		"currency":        booking.Currency,
		"courseName":      course.Title,
	})
}

// CreateCheckoutSession is the hosted variant: same booking semantics, but
// the user pays on a Stripe-hosted page reached through the returned URL.
// @Summary Initiate hosted checkout for a course
// @Description Create or reuse a pending booking and open a Stripe Checkout session for it
// @Tags payments
// @Accept json
// @Produce json
// @Param body body checkoutRequest true "Course reference (id or slug)"
// @Security BearerAuth
// @Success 200 {object} map[string]string "sessionId, url, bookingId"
// @Failure 400 {object} map[string]string "error: Course ID is required"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Course not found"
// @Failure 409 {object} map[string]string "error: Already booked or course full"
// @Failure 503 {object} map[string]string "error: Payment service unavailable"
// @Router /checkout/session [post]
func CreateCheckoutSession(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.LogError(nil, "User not authenticated in CreateCheckoutSession")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Course ID is required"})
		return
	}

	course, booking, ok := prepareBooking(c, userID.(string), req.CourseID)
	if !ok {
		return
	}

	sess, err := payment.Default.CreateCheckoutSession(payment.CheckoutParams{
		CourseID:   course.ID,
		CourseName: course.Title,
		Amount:     booking.Amount,
		Currency:   booking.Currency,
		UserID:     userID.(string),
		BookingID:  booking.ID,
		SuccessURL: baseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  baseURL + "/courses",
	})
	if err != nil {
		utils.LogErrorWithBooking(userID, booking.ID, err, "Checkout session creation failed in CreateCheckoutSession")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment service unavailable"})
		return
	}

	if err := ledger.AttachSession(booking.ID, sess.ID); err != nil {
		utils.LogErrorWithBooking(userID, booking.ID, err, "Could not attach session in CreateCheckoutSession")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating the booking"})
		return
	}

	utils.LogSuccessWithUser(userID, "Checkout session created successfully in CreateCheckoutSession")
	c.JSON(http.StatusOK, gin.H{
		"sessionId": sess.ID,
		"url":       sess.URL,
		"bookingId": booking.ID,
	})
}

// VerifyCheckoutSession resolves the state of a hosted checkout after the
// user returns from Stripe. It covers the webhook-first case (booking already
// PAID) as well as the redirect-first case, where Stripe is asked directly.
// @Summary Verify a hosted checkout session
// @Description Confirm the outcome of a Stripe Checkout session for the connected user
// @Tags payments
// @Accept json
// @Produce json
// @Param session_id query string true "Stripe Checkout session id"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "status, bookingId"
// @Failure 400 {object} map[string]string "error: Session ID is required"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Failure 404 {object} map[string]string "error: Booking not found"
// @Failure 503 {object} map[string]string "error: Payment service unavailable"
// @Router /checkout/verify [get]
func VerifyCheckoutSession(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.LogError(nil, "User not authenticated in VerifyCheckoutSession")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID is required"})
		return
	}

	booking, err := ledger.ByStripeSession(sessionID)
	if err != nil && !errors.Is(err, ledger.ErrBookingNotFound) {
		utils.LogErrorWithUser(userID, err, "Error looking up booking in VerifyCheckoutSession")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error verifying the checkout"})
		return
	}

	if booking != nil && booking.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to verify this checkout"})
		return
	}

	// Webhook already settled it, nothing left to ask Stripe.
	if booking != nil && booking.PaymentStatus == models.PaymentPaid {
		c.JSON(http.StatusOK, gin.H{"status": "succeeded", "bookingId": booking.ID})
		return
	}

	if !payment.Default.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment service unavailable"})
		return
	}

	sess, err := payment.Default.RetrieveCheckoutSession(sessionID)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error retrieving session in VerifyCheckoutSession")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment service unavailable"})
		return
	}

	if sess.Metadata["userId"] != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to verify this checkout"})
		return
	}

	if booking == nil {
		booking, err = ledger.ByID(sess.Metadata["bookingId"])
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}
	}

	if sess.PaymentStatus == "paid" {
		updated, err := ledger.SetPaymentStatus(booking.ID, models.PaymentPaid, sess.PaymentIntentID)
		if errors.Is(err, ledger.ErrInvalidTransition) {
			// The booking moved on before the session settled; report its
			// real state, not the processor's.
			state := strings.ToLower(string(updated.PaymentStatus))
			c.JSON(http.StatusOK, gin.H{
				"status":    state,
				"bookingId": updated.ID,
				"message":   "Payment succeeded but the booking is " + state,
			})
			return
		}
		if err != nil {
			utils.LogErrorWithBooking(userID, booking.ID, err, "Error settling booking in VerifyCheckoutSession")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error verifying the checkout"})
			return
		}
		booking = updated
		c.JSON(http.StatusOK, gin.H{"status": "succeeded", "bookingId": booking.ID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    string(sess.PaymentStatus),
		"bookingId": booking.ID,
		"message":   "Payment not completed yet",
	})
}

// prepareBooking runs the shared front half of both checkout flows: course
// resolution, already-booked and capacity guards, and the idempotent PENDING
// booking with the price snapshotted. Responses for every failure are written
// here; ok is false when the caller must stop.
func prepareBooking(c *gin.Context, userID, courseRef string) (*models.Course, *models.Booking, bool) {
	course, err := catalog.FindBookable(courseRef)
	if err != nil {
		if errors.Is(err, catalog.ErrCourseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
			return nil, nil, false
		}
		utils.LogErrorWithUser(userID, err, "Error resolving course in prepareBooking")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error resolving the course"})
		return nil, nil, false
	}

	existing, err := ledger.ActiveBooking(userID, course.ID)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error checking existing booking in prepareBooking")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking existing bookings"})
		return nil, nil, false
	}
	if existing != nil && existing.PaymentStatus == models.PaymentPaid {
		c.JSON(http.StatusConflict, gin.H{"error": "You have already booked this course"})
		return nil, nil, false
	}

	if course.Capacity != nil {
		seats, err := ledger.PaidSeats(course.ID)
		if err != nil {
			utils.LogErrorWithUser(userID, err, "Error counting seats in prepareBooking")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking course capacity"})
			return nil, nil, false
		}
		if seats >= int64(*course.Capacity) {
			c.JSON(http.StatusConflict, gin.H{"error": "Course is full"})
			return nil, nil, false
		}
	}

	if !payment.Default.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment service unavailable"})
		return nil, nil, false
	}

	booking, err := ledger.CreateOrReuse(userID, course.ID, course.Price, course.Currency)
	if err != nil {
		if errors.Is(err, ledger.ErrCourseUnavailable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
			return nil, nil, false
		}
		utils.LogErrorWithUser(userID, err, "Error creating booking in prepareBooking")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating the booking"})
		return nil, nil, false
	}

	return course, booking, true
}
