package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Booking is one user's reservation for one course. Amount is snapshotted
// from the course price at creation and never recomputed afterwards.
// The composite unique index serializes concurrent bookings for the same
// user/course pair at the storage layer.
type Booking struct {
	ID                    string        `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID                string        `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_bookings_user_course"`
	CourseID              string        `json:"courseId" gorm:"type:uuid;not null;uniqueIndex:idx_bookings_user_course"`
	PaymentStatus         PaymentStatus `json:"paymentStatus" gorm:"type:varchar(20);default:'PENDING'"`
	Amount                int64         `json:"amount" gorm:"not null"`
	Currency              string        `json:"currency" gorm:"type:varchar(3);default:'EUR'"`
	StripeSessionId       string        `json:"stripeSessionId"`
	StripePaymentIntentId string        `json:"stripePaymentIntentId"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}
