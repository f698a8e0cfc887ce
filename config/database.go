package config

import (
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDB() {
	dsn := os.Getenv("DB_URL")

	// TranslateError makes unique violations surface as gorm.ErrDuplicatedKey;
	// the reminder dedup insert depends on it.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect database")
	}

	DB = db
}
