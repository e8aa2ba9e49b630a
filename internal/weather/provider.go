package weather

import (
	"context"

	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

// Provider abstracts the weather data source.
type Provider interface {
	Name() string
	Current(ctx context.Context, loc models.Location) (models.WeatherSnapshot, error)
	Forecast(ctx context.Context, loc models.Location, days int) ([]models.DailyForecast, error)
	SearchLocations(ctx context.Context, name string, limit int) ([]models.Location, error)
}
