package db

import (
	"hemera-academy/models"
	"hemera-academy/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB opens the Postgres connection and migrates the schema.
// TranslateError makes unique violations surface as gorm.ErrDuplicatedKey,
// which the booking ledger relies on for its idempotent insert.
func InitDB(dsn string) {
	if dsn == "" {
		utils.LogError(nil, "Variable DB_URL not defined")
		panic("Database URL not configured")
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         utils.GetGormLogger(),
		TranslateError: true,
	})
	if err != nil {
		utils.LogError(err, "Error connecting to the database")
		panic("Could not connect to the database")
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Booking{},
	)
	if err != nil {
		utils.LogError(err, "Error migrating database")
		panic("Could not migrate database")
	}

	utils.LogSuccess("Database connection successful")
}
