package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("uses defaults when unset", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("STORE_BACKEND", "")

		cfg := Load()
		assert.Equal(t, "8080", cfg.ServerPort)
		assert.Equal(t, StoreMemory, cfg.StoreBackend)
		assert.Equal(t, time.Minute, cfg.RateLimitWindow)
		assert.False(t, cfg.TracingEnabled)
	})

	t.Run("reads overrides", func(t *testing.T) {
		t.Setenv("PORT", "9000")
		t.Setenv("STORE_BACKEND", StoreDynamoDB)
		t.Setenv("RATE_LIMIT_REQUESTS", "5")
		t.Setenv("REQUEST_TIMEOUT", "3s")
		t.Setenv("TRACING_ENABLED", "true")

		cfg := Load()
		assert.Equal(t, "9000", cfg.ServerPort)
		assert.Equal(t, StoreDynamoDB, cfg.StoreBackend)
		assert.Equal(t, 5, cfg.RateLimitRequests)
		assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
		assert.True(t, cfg.TracingEnabled)
	})

	t.Run("ignores malformed values", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_REQUESTS", "many")
		t.Setenv("REQUEST_TIMEOUT", "soon")

		cfg := Load()
		assert.Equal(t, 120, cfg.RateLimitRequests)
		assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	})
}

func TestGetListEnv(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, Load().AllowedOrigins)

	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	assert.Empty(t, Load().AllowedOrigins)
}
