package testutils

import (
	"io"
	"log"
	"testing"

	"hemera-academy/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB swaps the global DB handle for a sqlmock-backed GORM session.
// TranslateError mirrors production so duplicate-key errors reach the ledger
// as gorm.ErrDuplicatedKey.
func SetupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Error creating the SQL mock connection: %s", err)
	}

	newLogger := logger.New(
		log.New(io.Discard, "", log.LstdFlags),
		logger.Config{
			LogLevel: logger.Silent,
		},
	)

	dialector := postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Error opening the GORM connection: %s", err)
	}

	originalDB := db.DB
	db.DB = gormDB

	cleanup := func() {
		db.DB = originalDB
		sqlDB.Close()
	}

	return gormDB, mock, cleanup
}

func SetupTestRouter() *gin.Engine {
	r := gin.New()
	return r
}

func InitTestMain() {
	gin.SetMode(gin.TestMode)
}
