package config

import (
	"os"
	"strconv"
	"time"

	"tickbol/internal/database"
	"tickbol/internal/messaging"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	Database database.Config
	NATS     messaging.Config
	Valkey   ValkeyConfig
	Codes    CodesConfig
	Expiry   ExpiryConfig
}

// ValkeyConfig configures the staff auth cache
type ValkeyConfig struct {
	Addr         string
	Password     string
	StaffHashKey string
}

// CodesConfig configures the verification code generator
type CodesConfig struct {
	MaxAttempts     int
	PurchaseCodeTTL time.Duration
}

// ExpiryConfig configures the stale purchase cleanup job
type ExpiryConfig struct {
	PendingTimeout time.Duration
	CheckInterval  time.Duration
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "tickbol"),
			Password:           getEnv("DB_PASSWORD", "tickbol123"),
			DBName:             getEnv("DB_NAME", "tickbol"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "tickbol"),
			ClientID:  getEnv("NATS_CLIENT_ID", "tickbol-api"),
		},

		Valkey: ValkeyConfig{
			Addr:         getEnv("VALKEY_ADDR", ""),
			Password:     getEnv("VALKEY_PASSWORD", ""),
			StaffHashKey: getEnv("VALKEY_STAFF_HASH_KEY", "staff:auth"),
		},

		Codes: CodesConfig{
			MaxAttempts:     getEnvInt("CODE_MAX_ATTEMPTS", 5),
			PurchaseCodeTTL: time.Duration(getEnvInt("PURCHASE_CODE_TTL_HOURS", 72)) * time.Hour,
		},

		Expiry: ExpiryConfig{
			PendingTimeout: time.Duration(getEnvInt("PURCHASE_PENDING_TIMEOUT_HOURS", 48)) * time.Hour,
			CheckInterval:  time.Duration(getEnvInt("PURCHASE_EXPIRY_CHECK_SEC", 300)) * time.Second,
		},
	}
}

// getEnv returns the environment value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment value or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
