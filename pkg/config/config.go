package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds server configuration.
type Config struct {
	Port        string
	LogLevel    string
	DatabaseURL string
	RedisAddr   string
	ProfilesDir string
	Profile     string

	// Admission gate tuning.
	RateLimitCapacity int
	RateLimitRefill   float64

	// Orchestration tuning.
	MaxRetries   int
	BackoffStep  time.Duration
	ToolTimeout  time.Duration
	ToolPoolSize int

	// Comma-separated plaintext API keys accepted by the HTTP layer.
	// Empty disables authentication.
	APIKeys []string

	// OTLP metrics endpoint. Empty disables metric export.
	MetricsEndpoint string
}

// Load loads configuration from environment variables.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Default to an embedded sqlite file next to the binary.
		dbURL = "file:paygate.db?_pragma=busy_timeout(5000)"
	}

	profilesDir := os.Getenv("PROFILES_DIR")
	if profilesDir == "" {
		profilesDir = "profiles"
	}

	var keys []string
	if raw := os.Getenv("API_KEYS"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}

	return &Config{
		Port:              port,
		LogLevel:          logLevel,
		DatabaseURL:       dbURL,
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		ProfilesDir:       profilesDir,
		Profile:           os.Getenv("DECISION_PROFILE"),
		RateLimitCapacity: envInt("RATE_LIMIT_CAPACITY", 10),
		RateLimitRefill:   envFloat("RATE_LIMIT_REFILL_PER_SEC", 5),
		MaxRetries:        envInt("TOOL_MAX_RETRIES", 2),
		BackoffStep:       envDuration("TOOL_BACKOFF_STEP", 100*time.Millisecond),
		ToolTimeout:       envDuration("TOOL_TIMEOUT", 30*time.Second),
		ToolPoolSize:      envInt("TOOL_POOL_SIZE", 0),
		APIKeys:           keys,
		MetricsEndpoint:   os.Getenv("OTLP_METRICS_ENDPOINT"),
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return fallback
}
