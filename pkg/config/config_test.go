package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/paynow-labs/paygate/pkg/config"
)

// TestLoad_Defaults verifies that Load() returns sensible defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("RATE_LIMIT_CAPACITY", "")
	t.Setenv("RATE_LIMIT_REFILL_PER_SEC", "")
	t.Setenv("TOOL_MAX_RETRIES", "")
	t.Setenv("TOOL_BACKOFF_STEP", "")
	t.Setenv("TOOL_TIMEOUT", "")
	t.Setenv("API_KEYS", "")

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Contains(t, cfg.DatabaseURL, "paygate.db")
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 10, cfg.RateLimitCapacity)
	assert.Equal(t, 5.0, cfg.RateLimitRefill)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.BackoffStep)
	assert.Equal(t, 30*time.Second, cfg.ToolTimeout)
	assert.Empty(t, cfg.APIKeys)
}

// TestLoad_Overrides verifies that environment variables correctly
// override default values.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_URL", "postgres://production:5432/paygate")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("RATE_LIMIT_CAPACITY", "25")
	t.Setenv("RATE_LIMIT_REFILL_PER_SEC", "2.5")
	t.Setenv("TOOL_MAX_RETRIES", "4")
	t.Setenv("TOOL_BACKOFF_STEP", "250ms")
	t.Setenv("TOOL_TIMEOUT", "10s")
	t.Setenv("API_KEYS", "key-one, key-two,")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "postgres://production:5432/paygate", cfg.DatabaseURL)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 25, cfg.RateLimitCapacity)
	assert.Equal(t, 2.5, cfg.RateLimitRefill)
	assert.Equal(t, 4, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.BackoffStep)
	assert.Equal(t, 10*time.Second, cfg.ToolTimeout)
	assert.Equal(t, []string{"key-one", "key-two"}, cfg.APIKeys)
}

// TestLoad_IgnoresMalformedNumbers verifies that unparseable tuning
// values fall back to defaults instead of breaking startup.
func TestLoad_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "lots")
	t.Setenv("TOOL_BACKOFF_STEP", "soon")

	cfg := config.Load()

	assert.Equal(t, 10, cfg.RateLimitCapacity)
	assert.Equal(t, 100*time.Millisecond, cfg.BackoffStep)
}
