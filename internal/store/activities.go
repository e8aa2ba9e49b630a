package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

// ActivityRepository handles database operations for logged activities.
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Insert logs an activity and returns it with ID and creation time set.
func (repository *ActivityRepository) Insert(ctx context.Context, activity models.Activity) (models.Activity, error) {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	clothing, err := json.Marshal(activity.ClothingItems)
	if err != nil {
		return models.Activity{}, fmt.Errorf("failed to encode clothing items: %w", err)
	}

	_, err = repository.db.ExecContext(ctx, `
		INSERT INTO activities (id, name, location_name, date, suitability, score, summary, clothing_items, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, activity.ID, activity.Name, activity.LocationName, activity.Date, activity.Suitability,
		activity.Score, activity.Summary, string(clothing), activity.CreatedAt)
	if err != nil {
		return models.Activity{}, fmt.Errorf("failed to insert activity: %w", err)
	}

	return activity, nil
}

// List returns logged activities, newest first, up to limit.
func (repository *ActivityRepository) List(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := repository.db.QueryContext(ctx, `
		SELECT id, name, location_name, date, suitability, score, summary, clothing_items, created_at
		FROM activities
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		var activity models.Activity
		var clothing string
		if err := rows.Scan(&activity.ID, &activity.Name, &activity.LocationName, &activity.Date,
			&activity.Suitability, &activity.Score, &activity.Summary, &clothing, &activity.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if err := json.Unmarshal([]byte(clothing), &activity.ClothingItems); err != nil {
			activity.ClothingItems = []string{}
		}
		activities = append(activities, activity)
	}
	return activities, rows.Err()
}

// Delete removes a logged activity.
func (repository *ActivityRepository) Delete(ctx context.Context, id string) error {
	result, err := repository.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
