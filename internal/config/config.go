package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// MarketplaceConfig holds the marketplace search API settings.
type MarketplaceConfig struct {
	BaseURL      string
	AuthURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	// TokenExpiryBuffer is subtracted from the token lifetime so a refresh
	// happens before the marketplace actually rejects the token.
	TokenExpiryBuffer time.Duration
	ResultsPerQuery   int
}

// CurrencyConfig holds the currency conversion API settings.
type CurrencyConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// WeatherConfig holds the weather provider settings.
type WeatherConfig struct {
	BaseURL      string
	GeocodeURL   string
	Timeout      time.Duration
	RetryCount   int
	RetryDelay   time.Duration
	SnapshotTTL  time.Duration
	ForecastDays int
}

// AssistantConfig holds the AI assistant API settings.
type AssistantConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Config holds all configuration for the application
type Config struct {
	Port     string
	LogLevel string

	DatabasePath string
	QuerySetPath string

	Marketplace MarketplaceConfig
	Currency    CurrencyConfig
	Weather     WeatherConfig
	Assistant   AssistantConfig

	DefaultCurrency string

	// Scheduler
	WeatherRefreshInterval time.Duration

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabasePath: getEnv("DATABASE_PATH", "companion.db"),
		QuerySetPath: getEnv("QUERY_SET_PATH", "querysets.yaml"),

		Marketplace: MarketplaceConfig{
			BaseURL:           getEnv("MARKETPLACE_BASE_URL", "https://api.ebay.com/buy/browse/v1"),
			AuthURL:           getEnv("MARKETPLACE_AUTH_URL", "https://api.ebay.com/identity/v1/oauth2/token"),
			ClientID:          getEnv("MARKETPLACE_CLIENT_ID", ""),
			ClientSecret:      getEnv("MARKETPLACE_CLIENT_SECRET", ""),
			Timeout:           secondsEnv("MARKETPLACE_TIMEOUT", 15),
			TokenExpiryBuffer: secondsEnv("MARKETPLACE_TOKEN_EXPIRY_BUFFER", 60),
			ResultsPerQuery:   mustAtoi(getEnv("MARKETPLACE_RESULTS_PER_QUERY", "5")),
		},

		Currency: CurrencyConfig{
			BaseURL:  getEnv("CURRENCY_API_BASE_URL", "https://api.frankfurter.app/latest"),
			APIKey:   getEnv("CURRENCY_API_KEY", ""),
			Timeout:  secondsEnv("CURRENCY_API_TIMEOUT", 10),
			CacheTTL: secondsEnv("CURRENCY_CACHE_TTL_SECONDS", 3600),
		},

		Weather: WeatherConfig{
			BaseURL:      getEnv("WEATHER_API_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
			GeocodeURL:   getEnv("WEATHER_GEOCODE_URL", "https://geocoding-api.open-meteo.com/v1/search"),
			Timeout:      secondsEnv("WEATHER_API_TIMEOUT", 10),
			RetryCount:   mustAtoi(getEnv("WEATHER_RETRY_COUNT", "3")),
			RetryDelay:   secondsEnv("WEATHER_RETRY_DELAY", 1),
			SnapshotTTL:  secondsEnv("WEATHER_SNAPSHOT_TTL_SECONDS", 600),
			ForecastDays: mustAtoi(getEnv("WEATHER_FORECAST_DAYS", "7")),
		},

		Assistant: AssistantConfig{
			BaseURL: getEnv("ASSISTANT_BASE_URL", "https://api.openai.com/v1/chat/completions"),
			APIKey:  getEnv("ASSISTANT_API_KEY", ""),
			Model:   getEnv("ASSISTANT_MODEL", "gpt-4o-mini"),
			Timeout: secondsEnv("ASSISTANT_TIMEOUT", 30),
		},

		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "USD"),

		WeatherRefreshInterval: time.Duration(mustAtoi(getEnv("WEATHER_REFRESH_INTERVAL_MINUTES", "15"))) * time.Minute,

		RateLimitEnabled:  getEnv("RATE_LIMIT_ENABLED", "true") == "true",
		RateLimitRequests: mustAtoi(getEnv("RATE_LIMIT_REQUESTS", "100")),
		RateLimitWindow:   secondsEnv("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitBurst:    mustAtoi(getEnv("RATE_LIMIT_BURST", "10")),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func secondsEnv(key string, fallback int) time.Duration {
	return time.Duration(mustAtoi(getEnv(key, strconv.Itoa(fallback)))) * time.Second
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 60
	}
	return i
}
