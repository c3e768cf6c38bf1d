package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	KeyEnvironment string // "live" in production, "test" elsewhere
}

type DatabaseConfig struct {
	URL string
}

// CacheConfig configures the optional redis prediction cache. Leaving
// REDIS_ADDR empty disables caching entirely.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DefaultTTL    time.Duration
}

type ClassifierConfig struct {
	BaseURL string
	Timeout time.Duration
}

type WebhookConfig struct {
	// ConfidenceThreshold gates notification: only predictions at or above
	// it trigger spam/phishing webhooks.
	ConfidenceThreshold float64
	DeliveryTimeout     time.Duration
}

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Classifier ClassifierConfig
	Webhooks   WebhookConfig
}

func Load() *Config {
	keyEnv := "test"
	if getEnv("ENVIRONMENT", "development") == "production" {
		keyEnv = "live"
	}

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "5050"),
			AllowedOrigins: strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
			KeyEnvironment: keyEnv,
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			DefaultTTL:    5 * time.Minute,
		},
		Classifier: ClassifierConfig{
			BaseURL: getEnv("CLASSIFIER_URL", "http://localhost:8500"),
			Timeout: time.Duration(getEnvInt("CLASSIFIER_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Webhooks: WebhookConfig{
			ConfidenceThreshold: getEnvFloat("WEBHOOK_CONFIDENCE_THRESHOLD", 0.8),
			DeliveryTimeout:     10 * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
