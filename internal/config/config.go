// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Postgres
	DatabaseURL string

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret string

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultLLM      string

	// Pipeline
	RunTimeout   time.Duration
	MaxLeadLimit int

	// Outreach mail defaults
	MailFromName  string
	MailFromEmail string

	// Bootstrap account seeded when no database is configured
	BootstrapUserID      string
	BootstrapUserCredits int

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Postgres
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "anthropic"),

		// Pipeline
		RunTimeout:   getDurationEnv("RUN_TIMEOUT", 10*time.Minute),
		MaxLeadLimit: getIntEnv("MAX_LEAD_LIMIT", 10),

		// Mail
		MailFromName:  getEnv("MAIL_FROM_NAME", "LeadScope"),
		MailFromEmail: getEnv("MAIL_FROM_EMAIL", ""),

		// Bootstrap account
		BootstrapUserID:      getEnv("BOOTSTRAP_USER_ID", ""),
		BootstrapUserCredits: getIntEnv("BOOTSTRAP_USER_CREDITS", 10),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
