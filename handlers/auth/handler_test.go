package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"hemera-academy/testutils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

const testUserID = "0b9f9a10-4b6d-4a9e-9f1f-0f54d2a6c001"

func TestMain(m *testing.M) {
	testutils.InitTestMain()

	os.Setenv("JWT_SECRET", "test-secret")

	log.SetOutput(io.Discard)

	exitCode := m.Run()

	log.SetOutput(os.Stdout)

	os.Exit(exitCode)
}

func authRouter() *gin.Engine {
	r := testutils.SetupTestRouter()
	r.POST("/register", Register)
	r.POST("/login", Login)
	return r
}

func postJSON(r *gin.Engine, target string, body map[string]string) *httptest.ResponseRecorder {
	jsonData, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, target, bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRegister_Success(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE email = \$1`).
		WithArgs("new@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users" (.+) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testUserID))
	mock.ExpectCommit()

	resp := postJSON(authRouter(), "/register", map[string]string{
		"email":    "new@example.com",
		"password": "Password1",
	})

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), "User created successfully")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_InvalidEmail(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	resp := postJSON(authRouter(), "/register", map[string]string{
		"email":    "not-an-email",
		"password": "Password1",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_WeakPassword(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	resp := postJSON(authRouter(), "/register", map[string]string{
		"email":    "new@example.com",
		"password": "alllowercase",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "lowercase, one uppercase and one digit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE email = \$1`).
		WithArgs("taken@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(testUserID, "taken@example.com"))

	resp := postJSON(authRouter(), "/register", map[string]string{
		"email":    "taken@example.com",
		"password": "Password1",
	})

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "This email is already used")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_Success(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.MinCost)
	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE email = \$1`).
		WithArgs("user@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "role"}).
			AddRow(testUserID, "user@example.com", string(hash), "USER"))

	resp := postJSON(authRouter(), "/login", map[string]string{
		"email":    "user@example.com",
		"password": "Password1",
	})

	assert.Equal(t, http.StatusOK, resp.Code)

	var body map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &body)
	assert.NotEmpty(t, body["token"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_WrongPassword(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.MinCost)
	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE email = \$1`).
		WithArgs("user@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "role"}).
			AddRow(testUserID, "user@example.com", string(hash), "USER"))

	resp := postJSON(authRouter(), "/login", map[string]string{
		"email":    "user@example.com",
		"password": "WrongPassword1",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Wrong credentials")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_UnknownEmail(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE email = \$1`).
		WithArgs("ghost@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	resp := postJSON(authRouter(), "/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "Password1",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Wrong credentials")
	assert.NoError(t, mock.ExpectationsWereMet())
}
