package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	DefaultOrderPlacedTopic = "order.placed"
	DefaultNotifierGroupID  = "order-notifier"
)

type Config struct {
	ServiceName      string
	HTTPAddr         string
	CatalogBaseURL   string
	CatalogTimeout   time.Duration
	DatabaseURL      string
	KafkaBrokers     []string
	OrderPlacedTopic string
	NotifierGroupID  string
	NotifierHTTPAddr string
	OTLPEndpoint     string
	LogLevel         zapcore.Level
}

// Load reads the environment. An empty DATABASE_URL selects the in-memory
// order store.
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		ServiceName:      getEnv("SERVICE_NAME", serviceName),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		CatalogBaseURL:   getEnv("CATALOG_BASE_URL", "http://localhost:3001"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		KafkaBrokers:     splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		OrderPlacedTopic: getEnv("ORDER_PLACED_TOPIC", DefaultOrderPlacedTopic),
		NotifierGroupID:  getEnv("NOTIFIER_GROUP_ID", DefaultNotifierGroupID),
		NotifierHTTPAddr: getEnv("NOTIFIER_HTTP_ADDR", ":8100"),
		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	timeout, err := time.ParseDuration(getEnv("CATALOG_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("CATALOG_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("CATALOG_TIMEOUT must be positive, got %s", timeout)
	}
	cfg.CatalogTimeout = timeout

	level, err := zapcore.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must name at least one broker")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
