// Package config centralises configuration parsing for the step services.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration values for both binaries.
type Config struct {
	HTTPAddress    string
	MetricsAddress string

	KafkaBrokers    []string
	StepTopic       string
	ConsumerGroupID string

	CounterPath string // BadgerDB directory for the daily counter

	FirestoreProjectID string

	DeviceUID  string // identity the aggregator publishes under
	DeviceName string

	ReconcileInterval   time.Duration // fixed delay between reconciliation ticks
	UploadStepThreshold int           // absolute-progress upload trigger
	UploadMaxAge        time.Duration // freshness upload trigger

	JWTSecret string
	JWTIssuer string
}

// Load reads environment variables into Config, applying sensible defaults for local dev.
func Load() Config {
	cfg := Config{
		HTTPAddress:         getEnv("HTTP_ADDRESS", ":8080"),
		MetricsAddress:      getEnv("METRICS_ADDRESS", ":9090"),
		StepTopic:           getEnv("STEP_TOPIC", "step_events"),
		ConsumerGroupID:     getEnv("CONSUMER_GROUP_ID", "step-aggregator"),
		CounterPath:         getEnv("COUNTER_PATH", "/var/lib/stepcounter"),
		FirestoreProjectID:  getEnv("FIRESTORE_PROJECT_ID", ""),
		DeviceUID:           getEnv("DEVICE_UID", ""),
		DeviceName:          getEnv("DEVICE_NAME", "anonymous"),
		ReconcileInterval:   getDurationEnv("RECONCILE_INTERVAL", 2*time.Second),
		UploadStepThreshold: getIntEnv("UPLOAD_STEP_THRESHOLD", 50),
		UploadMaxAge:        getDurationEnv("UPLOAD_MAX_AGE", 5*time.Minute),
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:           getEnv("JWT_ISSUER", "stepcounter.identity"),
	}

	brokers := getEnv("KAFKA_BROKERS", "kafka:9092")
	cfg.KafkaBrokers = splitAndTrim(brokers)
	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
