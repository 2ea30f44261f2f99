package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Clinic backend REST API
	BackendBaseURL string
	BackendTimeout time.Duration

	// Persisted form store
	FormStore     string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	DatabaseURL   string

	// Profile identity and HTTP surface
	ProfileJWTSecret   string
	ProfileCookieName  string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	SessionIdleTTL     time.Duration

	// Booking flow
	RecallGraceDelay      time.Duration
	DefaultPlanDuration   string
	PriceOverridePlanSlug string
	PriceOverrideAmount   float64

	// Payment gateway
	PaymentKeyID         string
	PaymentKeySecret     string
	PaymentScriptURL     string
	PaymentThemeColor    string
	ClinicName           string
	SuccessRedirectDelay time.Duration

	// Report uploads (S3 when a bucket is configured, backend otherwise)
	ReportsBucket       string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		BackendBaseURL: strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:5000/api"), "/"),
		BackendTimeout: getEnvAsDuration("BACKEND_TIMEOUT", 30*time.Second),

		FormStore:     strings.ToLower(strings.TrimSpace(getEnv("FORM_STORE", "memory"))),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		ProfileJWTSecret:   getEnv("PROFILE_JWT_SECRET", ""),
		ProfileCookieName:  getEnv("PROFILE_COOKIE_NAME", "booking_profile"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 40),
		SessionIdleTTL:     getEnvAsDuration("SESSION_IDLE_TTL", 2*time.Hour),

		RecallGraceDelay:      getEnvAsDuration("RECALL_GRACE_DELAY", 300*time.Millisecond),
		DefaultPlanDuration:   getEnv("DEFAULT_PLAN_DURATION", "1 Month"),
		PriceOverridePlanSlug: getEnv("PRICE_OVERRIDE_PLAN_SLUG", ""),
		PriceOverrideAmount:   getEnvAsFloat("PRICE_OVERRIDE_AMOUNT", 0),

		PaymentKeyID:         getEnv("PAYMENT_KEY_ID", ""),
		PaymentKeySecret:     getEnv("PAYMENT_KEY_SECRET", ""),
		PaymentScriptURL:     getEnv("PAYMENT_SCRIPT_URL", "https://checkout.razorpay.com/v1/checkout.js"),
		PaymentThemeColor:    getEnv("PAYMENT_THEME_COLOR", "#0f766e"),
		ClinicName:           getEnv("CLINIC_NAME", "Clinic"),
		SuccessRedirectDelay: getEnvAsDuration("SUCCESS_REDIRECT_DELAY", 3*time.Second),

		ReportsBucket:       getEnv("REPORTS_BUCKET", ""),
		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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

// getEnvAsList splits a comma separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
