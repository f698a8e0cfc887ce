// config/engine.go
package config

import (
	"os"
	"strconv"
	"time"
)

// EngineConfig holds the reminder engine knobs. Everything has a sensible
// default so a bare environment still runs.
type EngineConfig struct {
	SweepCronSpec   string
	QueueWorkers    int
	QueueBuffer     int
	MaxAttempts     int
	InitialBackoff  time.Duration
	DeliveryTimeout time.Duration
}

func LoadEngineConfig() EngineConfig {
	cfg := EngineConfig{
		SweepCronSpec:   "0 * * * *", // hourly, on the hour
		QueueWorkers:    4,
		QueueBuffer:     1024,
		MaxAttempts:     3,
		InitialBackoff:  5 * time.Second,
		DeliveryTimeout: 30 * time.Second,
	}

	if spec := os.Getenv("SWEEP_CRON_SPEC"); spec != "" {
		cfg.SweepCronSpec = spec
	}
	if workers := envInt("QUEUE_WORKERS"); workers > 0 {
		cfg.QueueWorkers = workers
	}
	if buffer := envInt("QUEUE_BUFFER"); buffer > 0 {
		cfg.QueueBuffer = buffer
	}
	if attempts := envInt("DELIVERY_MAX_ATTEMPTS"); attempts > 0 {
		cfg.MaxAttempts = attempts
	}
	if backoff := envDuration("DELIVERY_INITIAL_BACKOFF"); backoff > 0 {
		cfg.InitialBackoff = backoff
	}
	if timeout := envDuration("DELIVERY_TIMEOUT"); timeout > 0 {
		cfg.DeliveryTimeout = timeout
	}
	return cfg
}

func envInt(key string) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return value
}

func envDuration(key string) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return 0
	}
	return value
}
