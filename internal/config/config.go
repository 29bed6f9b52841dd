package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"safe-monitor/internal/networks"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel            string
	PollInterval        time.Duration
	MaxConcurrentGroups int
	NonceGapThreshold   int64
	MaxRetries          int
	RetryDelay          time.Duration
	HTTP                HTTPConfig
	Kafka               KafkaConfig
	Database            DatabaseConfig
	Telegram            TelegramConfig
	SMTP                SMTPConfig
	HealthAddr          string
	// ServiceURLOverrides replaces the built-in Safe transaction-service
	// base URL per network (self-hosted deployments).
	ServiceURLOverrides map[string]string
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	Timeout   time.Duration
	RateLimit float64
}

// KafkaConfig holds the optional alert-firehose configuration; an empty
// broker address disables it.
type KafkaConfig struct {
	BrokerAddress string
	Topic         string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// TelegramConfig holds the bot credentials for the Telegram channel.
type TelegramConfig struct {
	BotToken string
}

// SMTPConfig holds the mail relay used by the email channel.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Not fatal, as env vars might be set externally
	}

	config := &Config{
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		PollInterval:        time.Duration(getEnvAsInt("POLL_INTERVAL_SECONDS", 60)) * time.Second,
		MaxConcurrentGroups: getEnvAsInt("MAX_CONCURRENT_GROUPS", 20),
		NonceGapThreshold:   int64(getEnvAsInt("NONCE_GAP_THRESHOLD", 5)),
		MaxRetries:          getEnvAsInt("MAX_RETRIES", 3),
		RetryDelay:          time.Duration(getEnvAsInt("RETRY_DELAY", 5)) * time.Second,
		HTTP: HTTPConfig{
			Timeout:   time.Duration(getEnvAsInt("HTTP_TIMEOUT", 30)) * time.Second,
			RateLimit: getEnvAsFloat("SERVICE_RATE_LIMIT", 4),
		},
		Kafka: KafkaConfig{
			BrokerAddress: getEnv("KAFKA_BROKER_ADDRESS", ""),
			Topic:         getEnv("KAFKA_TOPIC", "safe-alerts"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "safe_monitor"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		},
		SMTP: SMTPConfig{
			Host:        getEnv("SMTP_HOST", ""),
			Port:        getEnvAsInt("SMTP_PORT", 587),
			Username:    getEnv("SMTP_USERNAME", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			FromAddress: getEnv("SMTP_FROM", "alerts@safe-monitor.local"),
		},
		HealthAddr:          getEnv("HEALTH_ADDR", ":8090"),
		ServiceURLOverrides: make(map[string]string),
	}

	// Per-network service overrides: SAFE_TX_SERVICE_ETHEREUM etc.
	for _, name := range networks.Names() {
		key := "SAFE_TX_SERVICE_" + strings.ToUpper(name)
		if v := os.Getenv(key); v != "" {
			config.ServiceURLOverrides[name] = strings.TrimRight(v, "/")
		}
	}

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
