package bookings

import (
	"errors"
	"net/http"

	"hemera-academy/db"
	"hemera-academy/ledger"
	"hemera-academy/models"
	"hemera-academy/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// @Summary List the user's bookings
// @Description Return all bookings of the connected user, most recent first
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Booking
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Router /bookings [get]
func GetUserBookings(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.LogError(nil, "User not authenticated in GetUserBookings")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var bookings []models.Booking
	err := db.DB.Where("user_id = ?", userID).
		Preload("Course").
		Order("created_at DESC").
		Find(&bookings).Error
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error fetching bookings in GetUserBookings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching bookings"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// @Summary Booking detail
// @Description Return one booking of the connected user
// @Tags bookings
// @Accept json
// @Produce json
// @Param bookingId path string true "ID of the booking"
// @Security BearerAuth
// @Success 200 {object} models.Booking
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 403 {object} map[string]string "error: Not authorized to view this booking"
// @Failure 404 {object} map[string]string "error: Booking not found"
// @Router /bookings/{bookingId} [get]
func GetBookingDetail(c *gin.Context) {
	bookingID := c.Param("bookingId")

	if _, err := uuid.Parse(bookingID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		utils.LogError(nil, "User not authenticated in GetBookingDetail")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var booking models.Booking
	err := db.DB.Preload("Course").First(&booking, "id = ?", bookingID).Error
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Booking not found in GetBookingDetail")
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}

	if booking.UserID != userID {
		utils.LogErrorWithUser(userID, nil, "Not authorized to view this booking in GetBookingDetail")
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to view this booking"})
		return
	}

	c.JSON(http.StatusOK, booking)
}

// @Summary Booking statistics
// @Description Aggregate the connected user's bookings by payment status
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ledger.BookingStats
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Router /bookings/stats [get]
func GetBookingStats(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.LogError(nil, "User not authenticated in GetBookingStats")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	stats, err := ledger.StatsForUser(userID.(string))
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error computing stats in GetBookingStats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error computing booking statistics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary Cancel a booking
// @Description Cancel one of the connected user's bookings. Only PENDING or PAID bookings can be cancelled.
// @Tags bookings
// @Accept json
// @Produce json
// @Param bookingId path string true "ID of the booking to cancel"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Booking cancelled successfully"
// @Failure 400 {object} map[string]string "error: Booking cannot be cancelled"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 403 {object} map[string]string "error: Not authorized to cancel this booking"
// @Failure 404 {object} map[string]string "error: Booking not found"
// @Router /bookings/{bookingId} [delete]
func CancelBooking(c *gin.Context) {
	bookingID := c.Param("bookingId")

	if _, err := uuid.Parse(bookingID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		utils.LogError(nil, "User not authenticated in CancelBooking")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	booking, err := ledger.ByID(bookingID)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Booking not found in CancelBooking")
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}

	if booking.UserID != userID {
		utils.LogErrorWithUser(userID, nil, "Not authorized to cancel this booking in CancelBooking")
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to cancel this booking"})
		return
	}

	if booking.PaymentStatus != models.PaymentPending && booking.PaymentStatus != models.PaymentPaid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only pending or paid bookings can be cancelled"})
		return
	}

	if _, err := ledger.SetPaymentStatus(bookingID, models.PaymentCancelled, ""); err != nil {
		if errors.Is(err, ledger.ErrInvalidTransition) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Booking cannot be cancelled in its current state"})
			return
		}
		utils.LogErrorWithBooking(userID, bookingID, err, "Error cancelling booking in CancelBooking")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error cancelling the booking"})
		return
	}

	utils.LogSuccessWithUser(userID, "Booking cancelled successfully in CancelBooking")
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled successfully"})
}
