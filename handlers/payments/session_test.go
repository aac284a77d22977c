package payments

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hemera-academy/payment"
	"hemera-academy/testutils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func sessionRouter(userID string) *gin.Engine {
	r := testutils.SetupTestRouter()
	r.POST("/checkout/session", func(c *gin.Context) {
		c.Set("user_id", userID)
		CreateCheckoutSession(c)
	})
	r.GET("/checkout/verify", func(c *gin.Context) {
		c.Set("user_id", userID)
		VerifyCheckoutSession(c)
	})
	return r
}

func TestCreateCheckoutSession_Success(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	swapGateway(t, &fakeGateway{
		configured: true,
		createSession: func(params payment.CheckoutParams) (*payment.CheckoutSession, error) {
			assert.Equal(t, int64(9900), params.Amount)
			assert.Equal(t, testBookingID, params.BookingID)
			assert.Contains(t, params.SuccessURL, "session_id={CHECKOUT_SESSION_ID}")
			return &payment.CheckoutSession{ID: "cs_123", URL: "https://checkout.stripe.test/cs_123"}, nil
		},
	})

	expectCourseByID(mock, 9900)

	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE user_id = \$1 AND course_id = \$2`).
		WithArgs(testUserID, testCourseID, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	expectCourseByID(mock, 9900)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "bookings" (.+) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testBookingID))
	mock.ExpectCommit()

	// Session id recorded on the booking
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "bookings" SET (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := sessionRouter(testUserID)
	jsonData := []byte(`{"courseId":"` + testCourseID + `"}`)
	req, _ := http.NewRequest(http.MethodPost, "/checkout/session", bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var body map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &body)
	assert.Equal(t, "cs_123", body["sessionId"])
	assert.Equal(t, "https://checkout.stripe.test/cs_123", body["url"])
	assert.Equal(t, testBookingID, body["bookingId"])
}

// When the webhook already settled the booking, verification answers from the
// ledger without calling Stripe.
func TestVerifyCheckoutSession_WebhookSettledFirst(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	swapGateway(t, &fakeGateway{configured: true})

	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE stripe_session_id = \$1`).
		WithArgs("cs_123", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status", "amount", "currency"}).
			AddRow(testBookingID, testUserID, testCourseID, "PAID", 9900, "EUR"))

	r := sessionRouter(testUserID)
	req, _ := http.NewRequest(http.MethodGet, "/checkout/verify?session_id=cs_123", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"succeeded"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// When the user returns before the webhook lands, Stripe is asked directly
// and a paid session settles the booking.
func TestVerifyCheckoutSession_RedirectBeforeWebhook(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	swapGateway(t, &fakeGateway{
		configured: true,
		retrieveSession: func(sessionID string) (*payment.CheckoutSession, error) {
			return &payment.CheckoutSession{
				ID:              sessionID,
				PaymentStatus:   "paid",
				PaymentIntentID: "pi_123",
				Metadata: map[string]string{
					"userId":    testUserID,
					"bookingId": testBookingID,
				},
			}, nil
		},
	})

	bookingRows := func(status string) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status", "amount", "currency"}).
			AddRow(testBookingID, testUserID, testCourseID, status, 9900, "EUR")
	}

	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE stripe_session_id = \$1`).
		WithArgs("cs_123", 1).
		WillReturnRows(bookingRows("PENDING"))

	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE id = \$1`).
		WithArgs(testBookingID, 1).
		WillReturnRows(bookingRows("PENDING"))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "bookings" SET (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := sessionRouter(testUserID)
	req, _ := http.NewRequest(http.MethodGet, "/checkout/verify?session_id=cs_123", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"succeeded"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A paid session for a booking the user cancelled in the meantime reports
// the cancelled state, not success.
func TestVerifyCheckoutSession_CancelledBookingReportsItsState(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	swapGateway(t, &fakeGateway{
		configured: true,
		retrieveSession: func(sessionID string) (*payment.CheckoutSession, error) {
			return &payment.CheckoutSession{
				ID:              sessionID,
				PaymentStatus:   "paid",
				PaymentIntentID: "pi_123",
				Metadata: map[string]string{
					"userId":    testUserID,
					"bookingId": testBookingID,
				},
			}, nil
		},
	})

	bookingRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status", "amount", "currency"}).
			AddRow(testBookingID, testUserID, testCourseID, "CANCELLED", 9900, "EUR")
	}

	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE stripe_session_id = \$1`).
		WithArgs("cs_123", 1).
		WillReturnRows(bookingRows())

	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE id = \$1`).
		WithArgs(testBookingID, 1).
		WillReturnRows(bookingRows())

	r := sessionRouter(testUserID)
	req, _ := http.NewRequest(http.MethodGet, "/checkout/verify?session_id=cs_123", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"cancelled"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyCheckoutSession_OtherUsersSessionIsForbidden(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	swapGateway(t, &fakeGateway{configured: true})

	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE stripe_session_id = \$1`).
		WithArgs("cs_123", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status"}).
			AddRow(testBookingID, "someone-else", testCourseID, "PAID"))

	r := sessionRouter(testUserID)
	req, _ := http.NewRequest(http.MethodGet, "/checkout/verify?session_id=cs_123", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyCheckoutSession_MissingSessionID(t *testing.T) {
	_, _, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	r := sessionRouter(testUserID)
	req, _ := http.NewRequest(http.MethodGet, "/checkout/verify", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
