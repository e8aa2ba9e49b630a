package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// LocationRepository handles database operations for saved locations.
type LocationRepository struct {
	db *DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Save persists a location and returns it with its assigned ID.
func (repository *LocationRepository) Save(ctx context.Context, loc models.Location) (models.Location, error) {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	loc.Saved = true

	_, err := repository.db.ExecContext(ctx, `
		INSERT INTO locations (id, name, lat, lon)
		VALUES (?, ?, ?, ?)
	`, loc.ID, loc.Name, loc.Lat, loc.Lon)
	if err != nil {
		return models.Location{}, fmt.Errorf("failed to save location: %w", err)
	}

	return loc, nil
}

// List returns all saved locations, oldest first.
func (repository *LocationRepository) List(ctx context.Context) ([]models.Location, error) {
	rows, err := repository.db.QueryContext(ctx, `
		SELECT id, name, lat, lon FROM locations ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		loc := models.Location{Saved: true}
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Lat, &loc.Lon); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// Get returns a saved location by ID.
func (repository *LocationRepository) Get(ctx context.Context, id string) (models.Location, error) {
	loc := models.Location{Saved: true}
	err := repository.db.QueryRowContext(ctx, `
		SELECT id, name, lat, lon FROM locations WHERE id = ?
	`, id).Scan(&loc.ID, &loc.Name, &loc.Lat, &loc.Lon)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Location{}, ErrNotFound
	}
	if err != nil {
		return models.Location{}, fmt.Errorf("failed to get location: %w", err)
	}
	return loc, nil
}

// Delete removes a saved location.
func (repository *LocationRepository) Delete(ctx context.Context, id string) error {
	result, err := repository.db.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
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
