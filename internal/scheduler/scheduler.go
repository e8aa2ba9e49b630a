package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

// SavedLocations lists the locations whose weather is kept warm.
type SavedLocations interface {
	List(ctx context.Context) ([]models.Location, error)
}

// WeatherRefresher re-fetches snapshots for a set of locations.
type WeatherRefresher interface {
	Refresh(ctx context.Context, locations []models.Location)
}

// RatesSweeper drops expired rate-cache entries.
type RatesSweeper interface {
	SweepExpired() int
}

// Scheduler runs the periodic background jobs: weather refresh for saved
// locations and rates-cache expiry sweeps.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *logger.Logger

	locations SavedLocations
	weather   WeatherRefresher
	rates     RatesSweeper
	interval  time.Duration
}

// New creates a new Scheduler.
func New(locations SavedLocations, weather WeatherRefresher, rates RatesSweeper, interval time.Duration, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
		locations: locations,
		weather:   weather,
		rates:     rates,
		interval:  interval,
	}
}

// Start schedules the jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		saved, err := s.locations.List(ctx)
		if err != nil {
			s.logger.Warnf("Scheduler: failed to list saved locations: %v", err)
			return
		}
		if len(saved) == 0 {
			return
		}

		s.logger.Debugf("Scheduler: refreshing weather for %d saved locations", len(saved))
		s.weather.Refresh(ctx, saved)
	})
	if err != nil {
		return err
	}

	_, err = s.scheduler.Every(1).Hour().Do(func() {
		if removed := s.rates.SweepExpired(); removed > 0 {
			s.logger.Debugf("Scheduler: swept %d expired rate cache entries", removed)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
