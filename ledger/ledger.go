// Package ledger owns every write to the bookings table. Creation is
// idempotent per (user, course) thanks to the composite unique index, and
// status changes go through an explicit transition table so an out-of-order
// callback can never regress a terminal state.
package ledger

import (
	"errors"

	"hemera-academy/catalog"
	"hemera-academy/db"
	"hemera-academy/models"

	"gorm.io/gorm"
)

var (
	ErrCourseUnavailable = errors.New("course unavailable")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid payment status transition")
)

// allowedTransitions lists the target statuses reachable from each status.
// Writing the current status again is always accepted as a no-op, which lets
// the synchronous confirmation and the webhook converge on the same terminal
// state regardless of arrival order.
var allowedTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentPending:   {models.PaymentPaid, models.PaymentFailed, models.PaymentCancelled},
	models.PaymentFailed:    {models.PaymentPending, models.PaymentPaid, models.PaymentCancelled},
	models.PaymentPaid:      {models.PaymentRefunded, models.PaymentCancelled},
	models.PaymentCancelled: {models.PaymentPending},
	models.PaymentRefunded:  {},
}

func transitionAllowed(from, to models.PaymentStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CreateOrReuse inserts a PENDING booking for (userID, courseID), snapshotting
// the given amount. When the unique index rejects the insert the existing row
// is returned instead of an error; a CANCELLED row is revived to PENDING with
// a fresh price snapshot so the user can book again after cancelling.
func CreateOrReuse(userID, courseID string, amount int64, currency string) (*models.Booking, error) {
	if _, err := catalog.BookableByID(courseID); err != nil {
		if errors.Is(err, catalog.ErrCourseNotFound) {
			return nil, ErrCourseUnavailable
		}
		return nil, err
	}

	booking := models.Booking{
		UserID:        userID,
		CourseID:      courseID,
		PaymentStatus: models.PaymentPending,
		Amount:        amount,
		Currency:      currency,
	}

	err := db.DB.Create(&booking).Error
	if err == nil {
		return &booking, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}

	// Lost the insert race or the row predates this request: reuse it.
	var existing models.Booking
	if err := db.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error; err != nil {
		return nil, err
	}

	if existing.PaymentStatus == models.PaymentCancelled {
		updates := map[string]interface{}{
			"payment_status": models.PaymentPending,
			"amount":         amount,
			"currency":       currency,
		}
		if err := db.DB.Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
		existing.PaymentStatus = models.PaymentPending
		existing.Amount = amount
		existing.Currency = currency
	}

	return &existing, nil
}

// HasBooking reports whether any booking exists for the pair.
func HasBooking(userID, courseID string) (bool, error) {
	b, err := ActiveBooking(userID, courseID)
	if err != nil {
		return false, err
	}
	return b != nil, nil
}

// ActiveBooking returns the booking for the pair, or nil when none exists.
func ActiveBooking(userID, courseID string) (*models.Booking, error) {
	var booking models.Booking
	err := db.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// SetPaymentStatus moves a booking to newStatus. Repeating the current status
// is an idempotent no-op; a transition the table does not allow returns
// ErrInvalidTransition and leaves the row untouched.
func SetPaymentStatus(bookingID string, newStatus models.PaymentStatus, externalRef string) (*models.Booking, error) {
	var booking models.Booking
	err := db.DB.First(&booking, "id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	if booking.PaymentStatus == newStatus {
		return &booking, nil
	}

	if !transitionAllowed(booking.PaymentStatus, newStatus) {
		return &booking, ErrInvalidTransition
	}

	updates := map[string]interface{}{"payment_status": newStatus}
	if externalRef != "" {
		updates["stripe_payment_intent_id"] = externalRef
	}
	if err := db.DB.Model(&booking).Updates(updates).Error; err != nil {
		return nil, err
	}

	booking.PaymentStatus = newStatus
	if externalRef != "" {
		booking.StripePaymentIntentId = externalRef
	}
	return &booking, nil
}

// AttachPaymentIntent records the processor's intent id on the booking.
func AttachPaymentIntent(bookingID, intentID string) error {
	return db.DB.Model(&models.Booking{}).Where("id = ?", bookingID).
		Update("stripe_payment_intent_id", intentID).Error
}

// AttachSession records the processor's checkout session id on the booking.
func AttachSession(bookingID, sessionID string) error {
	return db.DB.Model(&models.Booking{}).Where("id = ?", bookingID).
		Update("stripe_session_id", sessionID).Error
}

// ByID fetches a booking by primary key.
func ByID(bookingID string) (*models.Booking, error) {
	var booking models.Booking
	err := db.DB.First(&booking, "id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ByPaymentIntent fetches a booking by the processor's payment intent id.
func ByPaymentIntent(intentID string) (*models.Booking, error) {
	if intentID == "" {
		return nil, ErrBookingNotFound
	}
	var booking models.Booking
	err := db.DB.Where("stripe_payment_intent_id = ?", intentID).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ByStripeSession fetches a booking by the processor's checkout session id.
func ByStripeSession(sessionID string) (*models.Booking, error) {
	if sessionID == "" {
		return nil, ErrBookingNotFound
	}
	var booking models.Booking
	err := db.DB.Where("stripe_session_id = ?", sessionID).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// PaidSeats counts confirmed bookings for a course, for capacity checks.
func PaidSeats(courseID string) (int64, error) {
	var count int64
	err := db.DB.Model(&models.Booking{}).
		Where("course_id = ? AND payment_status = ?", courseID, models.PaymentPaid).
		Count(&count).Error
	return count, err
}

// BookingStats aggregates a user's bookings by payment status.
type BookingStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Paid      int64 `json:"paid"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
	Refunded  int64 `json:"refunded"`
	Revenue   int64 `json:"totalSpent"`
}

// StatsForUser computes per-status counts and the total paid amount.
func StatsForUser(userID string) (*BookingStats, error) {
	type statusCount struct {
		PaymentStatus models.PaymentStatus
		Count         int64
	}

	var rows []statusCount
	err := db.DB.Model(&models.Booking{}).
		Select("payment_status, count(*) as count").
		Where("user_id = ?", userID).
		Group("payment_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := BookingStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.PaymentStatus {
		case models.PaymentPending:
			stats.Pending = row.Count
		case models.PaymentPaid:
			stats.Paid = row.Count
		case models.PaymentFailed:
			stats.Failed = row.Count
		case models.PaymentCancelled:
			stats.Cancelled = row.Count
		case models.PaymentRefunded:
			stats.Refunded = row.Count
		}
	}

	var revenue struct{ Total int64 }
	err = db.DB.Model(&models.Booking{}).
		Select("coalesce(sum(amount), 0) as total").
		Where("user_id = ? AND payment_status = ?", userID, models.PaymentPaid).
		Scan(&revenue).Error
	if err != nil {
		return nil, err
	}
	stats.Revenue = revenue.Total

	return &stats, nil
}
