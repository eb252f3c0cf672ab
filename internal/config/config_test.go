package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "cache", cfg.CacheDir)
	assert.Equal(t, "Europe/Lisbon", cfg.Timezone)
	assert.Equal(t, 12, cfg.HorizonWeeks)
	assert.Equal(t, 24*time.Hour, cfg.PendingCacheTTL)
	assert.Equal(t, "primary", cfg.GoogleCalendarID)
	// Defaults must point at the sandbox; the live API is opt-in.
	assert.Equal(t, "https://api-m.sandbox.paypal.com", cfg.PayPalBaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BOOKING_HORIZON_WEEKS", "6")
	t.Setenv("PENDING_CACHE_TTL", "1h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 6, cfg.HorizonWeeks)
	assert.Equal(t, time.Hour, cfg.PendingCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("BOOKING_HORIZON_WEEKS", "not-a-number")
	t.Setenv("PENDING_CACHE_TTL", "soon")

	cfg := Load()

	assert.Equal(t, 12, cfg.HorizonWeeks)
	assert.Equal(t, 24*time.Hour, cfg.PendingCacheTTL)
}
