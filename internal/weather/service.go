package weather

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dalfonso89/outdoor-companion-service/internal/config"
	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

type snapshotEntry struct {
	snapshot  models.WeatherSnapshot
	expiresAt time.Time
}

// Service fronts the weather provider with a per-location snapshot cache so
// repeated lookups for the same place within the TTL skip the network.
type Service struct {
	provider      Provider
	logger        *logger.Logger
	configuration config.WeatherConfig

	cacheMutex sync.RWMutex
	snapshots  map[string]snapshotEntry
}

// NewService creates a new weather service
func NewService(provider Provider, configuration config.WeatherConfig, logger *logger.Logger) *Service {
	return &Service{
		provider:      provider,
		logger:        logger,
		configuration: configuration,
		snapshots:     make(map[string]snapshotEntry),
	}
}

func locationKey(loc models.Location) string {
	return strconv.FormatFloat(loc.Lat, 'f', 4, 64) + "," + strconv.FormatFloat(loc.Lon, 'f', 4, 64)
}

// Current returns current conditions for the location, served from cache when
// a fresh snapshot exists.
func (service *Service) Current(ctx context.Context, loc models.Location) (models.WeatherSnapshot, error) {
	key := locationKey(loc)

	service.cacheMutex.RLock()
	entry, cached := service.snapshots[key]
	service.cacheMutex.RUnlock()

	if cached && time.Now().Before(entry.expiresAt) {
		return entry.snapshot, nil
	}

	snapshot, err := service.provider.Current(ctx, loc)
	if err != nil {
		// Serve a stale snapshot rather than nothing when the provider is
		// unreachable.
		if cached {
			service.logger.Warnf("Weather fetch failed for %s, serving stale snapshot: %v", key, err)
			return entry.snapshot, nil
		}
		return models.WeatherSnapshot{}, err
	}

	service.cacheMutex.Lock()
	service.snapshots[key] = snapshotEntry{
		snapshot:  snapshot,
		expiresAt: time.Now().Add(service.configuration.SnapshotTTL),
	}
	service.cacheMutex.Unlock()

	return snapshot, nil
}

// Forecast returns a daily forecast, capped at the configured horizon.
func (service *Service) Forecast(ctx context.Context, loc models.Location, days int) ([]models.DailyForecast, error) {
	if days <= 0 || days > service.configuration.ForecastDays {
		days = service.configuration.ForecastDays
	}
	return service.provider.Forecast(ctx, loc, days)
}

// SearchLocations resolves a place name to candidate locations.
func (service *Service) SearchLocations(ctx context.Context, name string, limit int) ([]models.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("location name is required")
	}
	if limit <= 0 {
		limit = 5
	}
	return service.provider.SearchLocations(ctx, name, limit)
}

// Refresh re-fetches and caches current conditions for the given locations.
// Used by the scheduler for saved locations; failures are logged and skipped
// so one bad location does not block the rest.
func (service *Service) Refresh(ctx context.Context, locations []models.Location) {
	for _, loc := range locations {
		snapshot, err := service.provider.Current(ctx, loc)
		if err != nil {
			service.logger.Warnf("Scheduled weather refresh failed for %s: %v", loc.Name, err)
			continue
		}

		service.cacheMutex.Lock()
		service.snapshots[locationKey(loc)] = snapshotEntry{
			snapshot:  snapshot,
			expiresAt: time.Now().Add(service.configuration.SnapshotTTL),
		}
		service.cacheMutex.Unlock()
	}
}
