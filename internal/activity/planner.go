package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/dalfonso89/outdoor-companion-service/internal/assistant"
	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

// ForecastSource supplies the forecast the assistant judges against.
type ForecastSource interface {
	Forecast(ctx context.Context, loc models.Location, days int) ([]models.DailyForecast, error)
}

// ActivityLog persists planned activities.
type ActivityLog interface {
	Insert(ctx context.Context, activity models.Activity) (models.Activity, error)
}

// Recommender receives the assistant's clothing suggestions so the shopping
// screen can refresh its recommended items.
type Recommender interface {
	ClothingItemsChanged(items []string)
}

// PlanRequest describes the activity the user wants to plan.
type PlanRequest struct {
	Name     string          `json:"name" binding:"required"`
	Location models.Location `json:"location" binding:"required"`
	Date     time.Time       `json:"date" binding:"required"`
}

// PlanResult bundles everything the planning screen shows.
type PlanResult struct {
	Activity models.Activity        `json:"activity"`
	Forecast []models.DailyForecast `json:"forecast"`
}

// Planner runs one activity-planning flow: forecast, assistant assessment,
// history logging, and shopping-recommendation update.
type Planner struct {
	forecasts   ForecastSource
	assessor    assistant.Assessor
	log         ActivityLog
	recommender Recommender
	logger      *logger.Logger
}

// NewPlanner creates a new planner
func NewPlanner(forecasts ForecastSource, assessor assistant.Assessor, log ActivityLog, recommender Recommender, logger *logger.Logger) *Planner {
	return &Planner{
		forecasts:   forecasts,
		assessor:    assessor,
		log:         log,
		recommender: recommender,
		logger:      logger,
	}
}

// Plan assesses the activity against the forecast, logs it, and forwards the
// clothing suggestions to the recommender. A recommender update is
// best-effort state propagation, not part of the planning contract, so it
// happens after the activity is durably logged.
func (planner *Planner) Plan(ctx context.Context, request PlanRequest) (PlanResult, error) {
	if request.Name == "" {
		return PlanResult{}, fmt.Errorf("activity name is required")
	}

	forecast, err := planner.forecasts.Forecast(ctx, request.Location, 0)
	if err != nil {
		return PlanResult{}, fmt.Errorf("failed to fetch forecast: %w", err)
	}

	assessment, err := planner.assessor.AssessActivity(ctx, assistant.AssessmentRequest{
		ActivityName: request.Name,
		LocationName: request.Location.Name,
		Date:         request.Date.Format("2006-01-02"),
		Forecast:     forecast,
	})
	if err != nil {
		return PlanResult{}, fmt.Errorf("failed to assess activity: %w", err)
	}

	logged, err := planner.log.Insert(ctx, models.Activity{
		Name:          request.Name,
		LocationName:  request.Location.Name,
		Date:          request.Date,
		Suitability:   assessment.Suitability,
		Score:         assessment.Score,
		Summary:       assessment.Summary,
		ClothingItems: assessment.ClothingItems,
	})
	if err != nil {
		return PlanResult{}, fmt.Errorf("failed to log activity: %w", err)
	}

	if planner.recommender != nil && len(assessment.ClothingItems) > 0 {
		planner.recommender.ClothingItemsChanged(assessment.ClothingItems)
	}

	planner.logger.Infof("Planned activity %q at %s: %s (%d)", logged.Name, logged.LocationName, logged.Suitability, logged.Score)
	return PlanResult{Activity: logged, Forecast: forecast}, nil
}
