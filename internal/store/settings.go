package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

// SettingsRepository handles the single-row settings table.
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the current settings.
func (repository *SettingsRepository) Get(ctx context.Context) (models.Settings, error) {
	var settings models.Settings
	err := repository.db.QueryRowContext(ctx, `
		SELECT display_currency, units FROM settings WHERE id = 1
	`).Scan(&settings.DisplayCurrency, &settings.Units)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// Update persists the settings row.
func (repository *SettingsRepository) Update(ctx context.Context, settings models.Settings) error {
	_, err := repository.db.ExecContext(ctx, `
		UPDATE settings SET display_currency = ?, units = ? WHERE id = 1
	`, settings.DisplayCurrency, settings.Units)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

// SettingsStore wraps the repository with an in-process subscription fan-out
// so observers (the shopping controller) see display-currency changes as a
// stream.
type SettingsStore struct {
	repository *SettingsRepository
	logger     *logger.Logger

	subscribersMutex sync.Mutex
	subscribers      map[chan string]struct{}
}

// NewSettingsStore creates a new settings store
func NewSettingsStore(repository *SettingsRepository, logger *logger.Logger) *SettingsStore {
	return &SettingsStore{
		repository:  repository,
		logger:      logger,
		subscribers: make(map[chan string]struct{}),
	}
}

// Get returns the current settings.
func (settingsStore *SettingsStore) Get(ctx context.Context) (models.Settings, error) {
	return settingsStore.repository.Get(ctx)
}

// Update persists new settings and, when the display currency changed,
// notifies subscribers.
func (settingsStore *SettingsStore) Update(ctx context.Context, settings models.Settings) error {
	previous, err := settingsStore.repository.Get(ctx)
	if err != nil {
		return err
	}

	if err := settingsStore.repository.Update(ctx, settings); err != nil {
		return err
	}

	if settings.DisplayCurrency != previous.DisplayCurrency {
		settingsStore.notify(settings.DisplayCurrency)
	}
	return nil
}

// SubscribeCurrency returns a channel receiving each new display-currency
// code. Slow subscribers miss intermediate values rather than blocking the
// writer.
func (settingsStore *SettingsStore) SubscribeCurrency() chan string {
	subscription := make(chan string, 4)
	settingsStore.subscribersMutex.Lock()
	settingsStore.subscribers[subscription] = struct{}{}
	settingsStore.subscribersMutex.Unlock()
	return subscription
}

// Unsubscribe removes and closes a subscription channel.
func (settingsStore *SettingsStore) Unsubscribe(subscription chan string) {
	settingsStore.subscribersMutex.Lock()
	if _, ok := settingsStore.subscribers[subscription]; ok {
		delete(settingsStore.subscribers, subscription)
		close(subscription)
	}
	settingsStore.subscribersMutex.Unlock()
}

func (settingsStore *SettingsStore) notify(currency string) {
	settingsStore.subscribersMutex.Lock()
	for subscription := range settingsStore.subscribers {
		select {
		case subscription <- currency:
		default:
			settingsStore.logger.Warnf("Dropping currency update for slow subscriber")
		}
	}
	settingsStore.subscribersMutex.Unlock()
}
