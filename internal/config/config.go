package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PaymentConfig holds payment gateway connection settings.
type PaymentConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// KafkaConfig holds event broker settings. When Brokers is empty the service
// publishes to an in-process channel instead.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// JWTConfig holds session token settings.
type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// Config is the process configuration, loaded from environment variables
// with an optional .env file.
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	JWT     JWTConfig
	Payment PaymentConfig
	Kafka   KafkaConfig
}

// LoadConfig reads configuration from the environment. A missing .env file
// is not an error; missing required values are.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			TTL:    getDurationEnv("JWT_TTL", 24*time.Hour),
		},
		Payment: PaymentConfig{
			BaseURL: getEnv("PAYMENT_GATEWAY_URL", "https://api.edupay.example.com"),
			APIKey:  os.Getenv("PAYMENT_GATEWAY_API_KEY"),
			Timeout: getDurationEnv("PAYMENT_GATEWAY_TIMEOUT", 15*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "enrollment-events"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
