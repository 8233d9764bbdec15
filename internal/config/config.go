package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Smoobu (availability + reservation provider)
	SmoobuAPIKey    string
	SmoobuBaseURL   string
	SmoobuChannelID int
	SmoobuTimeout   time.Duration

	// Offer tokens
	BookingTokenSecret string
	OfferTTL           time.Duration

	// Admin access (raw proxy, bookings listing)
	AdminToken     string
	AdminJWTSecret string

	// LLM fallback (OpenAI-compatible)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Stripe deposit payments
	StripeSecretKey    string
	DepositPercent     int
	DepositMinCents    int64

	// Redis chat transcripts (optional)
	RedisAddr     string
	RedisPassword string

	// Static data files
	UnitRegistryPath string
	KnowledgePath    string

	// Booking behavior
	BookingPageURL      string
	PetFeePerNight      float64
	SessionTTL          time.Duration
	RateLimitPerMinute  int
	CORSAllowedOrigins  []string

	// Weather lookup (lodge coordinates)
	WeatherLatitude  float64
	WeatherLongitude float64
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3001"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		SmoobuAPIKey:    getEnv("SMOOBU_API_KEY", ""),
		SmoobuBaseURL:   getEnv("SMOOBU_BASE_URL", "https://login.smoobu.com"),
		SmoobuChannelID: getEnvAsInt("SMOOBU_CHANNEL_ID", 70),
		SmoobuTimeout:   getEnvAsDuration("SMOOBU_TIMEOUT", 20*time.Second),

		BookingTokenSecret: getEnv("BOOKING_TOKEN_SECRET", ""),
		OfferTTL:           getEnvAsDuration("OFFER_TTL", 10*time.Minute),

		AdminToken:     getEnv("ADMIN_TOKEN", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4.1-mini"),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		DepositPercent:  getEnvAsInt("DEPOSIT_PERCENT", 20),
		DepositMinCents: int64(getEnvAsInt("DEPOSIT_MIN_CENTS", 5000)),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		UnitRegistryPath: getEnv("UNIT_REGISTRY_PATH", "data/unit_registry.json"),
		KnowledgePath:    getEnv("KNOWLEDGE_PATH", "data/knowledge_50km.json"),

		BookingPageURL:     getEnv("BOOKING_PAGE_URL", "/buchen/"),
		PetFeePerNight:     getEnvAsFloat("PET_FEE_PER_NIGHT", 15),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", "*"),

		WeatherLatitude:  getEnvAsFloat("WEATHER_LATITUDE", 47.588),
		WeatherLongitude: getEnvAsFloat("WEATHER_LONGITUDE", 12.059),
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

// getEnvAsList splits a comma-separated environment variable, trimming blanks.
func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
