// Package config provides environment configuration for the API server and the watch session.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// NATS settings
	LiveEventsEnabled bool
	SSEHeartbeat      time.Duration
	NATSURL           string
	NATSCAFile        string
	NATSCertFile      string
	NATSKeyFile       string
	NATSToken         string

	// JWT settings
	JWTSecret string

	// Store settings
	StoreBackend   string
	DynamoTable    string
	DynamoEndpoint string
	AWSRegion      string

	// Rate limiting
	RateLimitRequests   int
	IPRateLimitRequests int
	RateLimitWindow     time.Duration

	// CORS
	AllowedOrigins []string

	// Message limits
	MaxContentLength int

	// Logging
	LogLevel  string
	LogFormat string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool

	// Watch session (client side)
	StoreURL         string
	ProfileURL       string
	SessionUserID    string
	SessionToken     string
	RequestTimeout   time.Duration
	PresenceInterval time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),

		// NATS
		LiveEventsEnabled: getBoolEnv("LIVE_EVENTS_ENABLED", true),
		SSEHeartbeat:      getDurationEnv("SSE_HEARTBEAT", 30*time.Second),
		NATSURL:           getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:        getEnv("NATS_CA_FILE", ""),
		NATSCertFile:      getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:       getEnv("NATS_KEY_FILE", ""),
		NATSToken:         getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// Store
		StoreBackend:   getEnv("STORE_BACKEND", StoreMemory),
		DynamoTable:    getEnv("DYNAMODB_TABLE", "Interactions"),
		DynamoEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),

		// Rate limiting
		RateLimitRequests:   getIntEnv("RATE_LIMIT_REQUESTS", 120),
		IPRateLimitRequests: getIntEnv("IP_RATE_LIMIT_REQUESTS", 600),
		RateLimitWindow:     getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// CORS
		AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),

		MaxContentLength: getIntEnv("MAX_CONTENT_LENGTH", 10000),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),

		// Watch session
		StoreURL:         getEnv("STORE_URL", "http://localhost:8080"),
		ProfileURL:       getEnv("PROFILE_URL", ""),
		SessionUserID:    getEnv("SESSION_USER_ID", ""),
		SessionToken:     getEnv("SESSION_TOKEN", ""),
		RequestTimeout:   getDurationEnv("REQUEST_TIMEOUT", 10*time.Second),
		PresenceInterval: getDurationEnv("PRESENCE_INTERVAL", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
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
