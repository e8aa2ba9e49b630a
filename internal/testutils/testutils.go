package testutils

import (
	"context"
	"time"

	"github.com/dalfonso89/outdoor-companion-service/internal/config"
	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

// MockLogger creates a logger for testing
func MockLogger() *logger.Logger {
	return logger.New("debug")
}

// MockConfig creates a configuration for testing
func MockConfig() *config.Config {
	return &config.Config{
		Port:     "8080",
		LogLevel: "debug",

		DatabasePath: ":memory:",
		QuerySetPath: "querysets.yaml",

		Marketplace: config.MarketplaceConfig{
			BaseURL:           "https://api.test.com/browse",
			AuthURL:           "https://api.test.com/oauth/token",
			ClientID:          "test-client",
			ClientSecret:      "test-secret",
			Timeout:           10 * time.Second,
			TokenExpiryBuffer: 60 * time.Second,
			ResultsPerQuery:   5,
		},
		Currency: config.CurrencyConfig{
			BaseURL:  "https://api.test.com/latest",
			Timeout:  10 * time.Second,
			CacheTTL: 60 * time.Second,
		},
		Weather: config.WeatherConfig{
			BaseURL:      "https://api.test.com/forecast",
			GeocodeURL:   "https://api.test.com/search",
			Timeout:      10 * time.Second,
			RetryCount:   0,
			RetryDelay:   10 * time.Millisecond,
			SnapshotTTL:  10 * time.Minute,
			ForecastDays: 7,
		},
		Assistant: config.AssistantConfig{
			BaseURL: "https://api.test.com/chat/completions",
			APIKey:  "test-api-key",
			Model:   "test-model",
			Timeout: 10 * time.Second,
		},

		DefaultCurrency: "USD",

		WeatherRefreshInterval: 15 * time.Minute,

		RateLimitEnabled:  true,
		RateLimitRequests: 100,
		RateLimitWindow:   60 * time.Second,
		RateLimitBurst:    10,
	}
}

// MockItems creates a small priced item list for testing
func MockItems() []models.Item {
	return []models.Item{
		{
			ID:         "v1|1001|0",
			Title:      "Waterproof hiking jacket",
			Price:      models.Price{Amount: "100.00", Currency: "USD"},
			ImageURL:   "https://img.test.com/1001.jpg",
			ItemURL:    "https://www.test.com/itm/1001",
			Categories: []string{"Clothing"},
		},
		{
			ID:         "v1|1002|0",
			Title:      "Trekking poles pair",
			Price:      models.Price{Amount: "45.50", Currency: "USD"},
			ImageURL:   "https://img.test.com/1002.jpg",
			ItemURL:    "https://www.test.com/itm/1002",
			Categories: []string{"Hiking Equipment"},
		},
		{
			ID:         "v1|1003|0",
			Title:      "Merino base layer",
			Price:      models.Price{Amount: "60.00", Currency: "EUR"},
			ImageURL:   "https://img.test.com/1003.jpg",
			ItemURL:    "https://www.test.com/itm/1003",
			Categories: []string{"Clothing"},
		},
	}
}

// MockForecast creates a forecast for testing
func MockForecast(days int) []models.DailyForecast {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	forecast := make([]models.DailyForecast, 0, days)
	for i := 0; i < days; i++ {
		forecast = append(forecast, models.DailyForecast{
			Date:         base.AddDate(0, 0, i),
			TempMinC:     10,
			TempMaxC:     20,
			WindSpeedMS:  3,
			PrecipMm:     0.5,
			PrecipChance: 20,
			Condition:    "Partly cloudy",
		})
	}
	return forecast
}

// MockContext creates a context for testing
func MockContext() context.Context {
	return context.Background()
}
