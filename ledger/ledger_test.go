package ledger

import (
	"testing"

	"hemera-academy/models"
	"hemera-academy/testutils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

const (
	testUserID    = "abc12345-e89b-12d3-a456-426614174000"
	testCourseID  = "123e4567-e89b-12d3-a456-426614174000"
	testBookingID = "bbb12345-e89b-12d3-a456-426614174000"
)

func expectBookableCourse(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT (.+) FROM "courses" WHERE id = \$1 AND is_published = \$2 AND is_public = \$3`).
		WithArgs(testCourseID, true, true, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "title", "price", "currency", "is_published", "is_public"}).
			AddRow(testCourseID, "intro-course", "Intro Course", 9900, "EUR", true, true))
}

func TestCreateOrReuse_NewBooking(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectBookableCourse(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "bookings" (.+) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testBookingID))
	mock.ExpectCommit()

	booking, err := CreateOrReuse(testUserID, testCourseID, 9900, "EUR")

	assert.NoError(t, err)
	assert.Equal(t, testBookingID, booking.ID)
	assert.Equal(t, models.PaymentPending, booking.PaymentStatus)
	assert.Equal(t, int64(9900), booking.Amount)
}

// A rejected insert from the unique index must resolve to the existing row,
// never to an error or a second booking.
func TestCreateOrReuse_DuplicateReturnsExisting(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectBookableCourse(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "bookings" (.+) RETURNING "id"`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE user_id = \$1 AND course_id = \$2`).
		WithArgs(testUserID, testCourseID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status", "amount", "currency"}).
			AddRow(testBookingID, testUserID, testCourseID, "PENDING", 9900, "EUR"))

	booking, err := CreateOrReuse(testUserID, testCourseID, 9900, "EUR")

	assert.NoError(t, err)
	assert.Equal(t, testBookingID, booking.ID)
	assert.Equal(t, models.PaymentPending, booking.PaymentStatus)
}

// A cancelled booking is revived to PENDING with a fresh price snapshot.
func TestCreateOrReuse_RevivesCancelledBooking(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectBookableCourse(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "bookings" (.+) RETURNING "id"`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE user_id = \$1 AND course_id = \$2`).
		WithArgs(testUserID, testCourseID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status", "amount", "currency"}).
			AddRow(testBookingID, testUserID, testCourseID, "CANCELLED", 8000, "EUR"))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "bookings" SET (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, err := CreateOrReuse(testUserID, testCourseID, 9900, "EUR")

	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPending, booking.PaymentStatus)
	assert.Equal(t, int64(9900), booking.Amount)
}

func TestCreateOrReuse_UnpublishedCourse(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "courses" WHERE id = \$1 AND is_published = \$2 AND is_public = \$3`).
		WithArgs(testCourseID, true, true, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	booking, err := CreateOrReuse(testUserID, testCourseID, 9900, "EUR")

	assert.ErrorIs(t, err, ErrCourseUnavailable)
	assert.Nil(t, booking)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasBooking(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE user_id = \$1 AND course_id = \$2`).
		WithArgs(testUserID, testCourseID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status"}).
			AddRow(testBookingID, testUserID, testCourseID, "PENDING"))

	has, err := HasBooking(testUserID, testCourseID)

	assert.NoError(t, err)
	assert.True(t, has)

	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE user_id = \$1 AND course_id = \$2`).
		WithArgs(testUserID, testCourseID, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	has, err = HasBooking(testUserID, testCourseID)

	assert.NoError(t, err)
	assert.False(t, has)
}

func expectBookingByID(mock sqlmock.Sqlmock, status string) {
	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE id = \$1`).
		WithArgs(testBookingID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status", "amount", "currency"}).
			AddRow(testBookingID, testUserID, testCourseID, status, 9900, "EUR"))
}

// Writing the current status again converges without touching the row.
func TestSetPaymentStatus_SameStatusIsNoOp(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectBookingByID(mock, "PAID")

	booking, err := SetPaymentStatus(testBookingID, models.PaymentPaid, "pi_123")

	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, booking.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPaymentStatus_PendingToPaid(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectBookingByID(mock, "PENDING")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "bookings" SET (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, err := SetPaymentStatus(testBookingID, models.PaymentPaid, "pi_123")

	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, booking.PaymentStatus)
	assert.Equal(t, "pi_123", booking.StripePaymentIntentId)
}

// A stale callback must never regress a terminal state.
func TestSetPaymentStatus_RejectsPaidToPending(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectBookingByID(mock, "PAID")

	booking, err := SetPaymentStatus(testBookingID, models.PaymentPending, "")

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.PaymentPaid, booking.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPaymentStatus_RejectsRefundedToPaid(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectBookingByID(mock, "REFUNDED")

	_, err := SetPaymentStatus(testBookingID, models.PaymentPaid, "pi_123")

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPaymentStatus_BookingNotFound(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE id = \$1`).
		WithArgs(testBookingID, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	_, err := SetPaymentStatus(testBookingID, models.PaymentPaid, "")

	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestStatsForUser(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT payment_status, count\(\*\) as count FROM "bookings" WHERE user_id = \$1 GROUP BY`).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"payment_status", "count"}).
			AddRow("PENDING", 2).
			AddRow("PAID", 3).
			AddRow("CANCELLED", 1))

	mock.ExpectQuery(`SELECT coalesce\(sum\(amount\), 0\) as total FROM "bookings" WHERE user_id = \$1 AND payment_status = \$2`).
		WithArgs(testUserID, "PAID").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(29700))

	stats, err := StatsForUser(testUserID)

	assert.NoError(t, err)
	assert.Equal(t, int64(6), stats.Total)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(3), stats.Paid)
	assert.Equal(t, int64(1), stats.Cancelled)
	assert.Equal(t, int64(29700), stats.Revenue)
}
