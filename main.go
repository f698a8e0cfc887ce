package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duebook-backend/config"
	"duebook-backend/models"
	"duebook-backend/routes"
	"duebook-backend/services"
	"duebook-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}
	config.InitLogger()
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.User{},
		&models.Business{},
		&models.Customer{},
		&models.Transaction{},
		&models.Reminder{},
		&models.AuditLog{},
	)
}

func main() {
	cfg := config.LoadEngineConfig()

	ledger := store.NewGormStore(config.DB)
	audit := services.NewStoreAuditSink(ledger)
	clock := services.SystemClock{}
	sender := services.NewSenderFromEnv()

	queue := services.NewReminderQueue(ledger, sender, audit, clock, services.QueueConfig{
		Workers:         cfg.QueueWorkers,
		BufferSize:      cfg.QueueBuffer,
		Policy:          services.RetryPolicy{MaxAttempts: cfg.MaxAttempts, InitialBackoff: cfg.InitialBackoff},
		DeliveryTimeout: cfg.DeliveryTimeout,
	})
	queue.Start()
	if requeued, err := queue.RequeueStale(context.Background()); err != nil {
		logrus.WithError(err).Error("Failed to requeue undelivered reminders")
	} else if requeued > 0 {
		logrus.WithField("count", requeued).Info("Requeued undelivered reminders from previous run")
	}

	billing := services.NewBillingService(ledger, audit, clock)
	reminders := services.NewReminderService(ledger, billing, queue, audit, clock)
	if err := reminders.StartScheduler(cfg.SweepCronSpec); err != nil {
		logrus.WithError(err).Fatal("Could not start reminder scheduler")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r := routes.SetupRouter(reminders, billing)
	printRoutes(r)

	server := &http.Server{Addr: ":" + port, Handler: r}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("HTTP server failed")
		}
	}()
	logrus.WithField("port", port).Info("Server started")

	// Graceful shutdown: stop the sweep timer, drain in-flight deliveries,
	// then close the HTTP server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")
	reminders.StopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := queue.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Delivery workers did not drain in time")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP server shutdown failed")
	}
	logrus.Info("Shutdown complete")
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
