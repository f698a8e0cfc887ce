package config

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func PerformanceLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)

		logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": latency,
		}).Debug("Request handled")

		if latency > 200*time.Millisecond {
			logrus.WithFields(logrus.Fields{
				"method":  c.Request.Method,
				"path":    c.Request.URL.Path,
				"latency": latency,
			}).Warn("Slow request")
		}
	}
}
