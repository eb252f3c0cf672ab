package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Flat-file data layout
	DataDir  string
	CacheDir string

	// Admin auth
	AdminJWTSecret string

	// Medical form encryption
	MedicalFormSecret string

	// Practice schedule
	Timezone        string
	HorizonWeeks    int
	PendingCacheTTL time.Duration

	// Google Calendar
	GoogleCredentialsJSON string
	GoogleCalendarID      string

	// SendGrid
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// PayPal
	PayPalClientID     string
	PayPalClientSecret string
	PayPalBaseURL      string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DataDir:  getEnv("DATA_DIR", "data"),
		CacheDir: getEnv("CACHE_DIR", "cache"),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		MedicalFormSecret: getEnv("MEDICAL_FORM_SECRET", ""),

		Timezone:        getEnv("PRACTICE_TIMEZONE", "Europe/Lisbon"),
		HorizonWeeks:    getEnvAsInt("BOOKING_HORIZON_WEEKS", 12),
		PendingCacheTTL: getEnvAsDuration("PENDING_CACHE_TTL", 24*time.Hour),

		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		GoogleCalendarID:      getEnv("GOOGLE_CALENDAR_ID", "primary"),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Doctor K Therapy"),

		PayPalClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
		PayPalBaseURL:      getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
