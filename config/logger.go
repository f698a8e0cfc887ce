// config/logger.go
package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// InitLogger configures the global logrus logger from LOG_LEVEL and
// ENVIRONMENT.
func InitLogger() {
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "production" || env == "staging" {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}
