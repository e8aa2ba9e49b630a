package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dalfonso89/outdoor-companion-service/internal/models"
	"github.com/dalfonso89/outdoor-companion-service/internal/testutils"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return db
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := openTestDB(t)

	version, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("RunMigrations() second run error = %v", err)
	}
	if version == 0 {
		t.Error("RunMigrations() version = 0, want applied schema")
	}
}

func TestLocationRepository_RoundTrip(t *testing.T) {
	repository := NewLocationRepository(openTestDB(t))
	ctx := context.Background()

	saved, err := repository.Save(ctx, models.Location{Name: "Seattle", Lat: 47.6062, Lon: -122.3321})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ID == "" {
		t.Error("Save() did not assign an ID")
	}
	if !saved.Saved {
		t.Error("Save() did not mark the location saved")
	}

	got, err := repository.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "Seattle" || got.Lat != 47.6062 || got.Lon != -122.3321 {
		t.Errorf("Get() = %+v", got)
	}

	list, err := repository.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != saved.ID {
		t.Errorf("List() = %+v", list)
	}

	if err := repository.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repository.Get(ctx, saved.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestLocationRepository_DeleteMissing(t *testing.T) {
	repository := NewLocationRepository(openTestDB(t))

	if err := repository.Delete(context.Background(), "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestActivityRepository_RoundTrip(t *testing.T) {
	repository := NewActivityRepository(openTestDB(t))
	ctx := context.Background()

	inserted, err := repository.Insert(ctx, models.Activity{
		Name:          "hiking",
		LocationName:  "Seattle",
		Date:          time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Suitability:   "good",
		Score:         82,
		Summary:       "Great conditions.",
		ClothingItems: []string{"light rain jacket", "hiking hat"},
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if inserted.ID == "" || inserted.CreatedAt.IsZero() {
		t.Errorf("Insert() = %+v, want ID and CreatedAt set", inserted)
	}

	list, err := repository.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("List() returned %d activities, want 1", len(list))
	}
	got := list[0]
	if got.Name != "hiking" || got.Suitability != "good" || got.Score != 82 {
		t.Errorf("List()[0] = %+v", got)
	}
	if len(got.ClothingItems) != 2 || got.ClothingItems[0] != "light rain jacket" {
		t.Errorf("ClothingItems = %v", got.ClothingItems)
	}

	if err := repository.Delete(ctx, inserted.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repository.Delete(ctx, inserted.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() repeat error = %v, want ErrNotFound", err)
	}
}

func TestActivityRepository_List_NewestFirstAndLimited(t *testing.T) {
	repository := NewActivityRepository(openTestDB(t))
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := repository.Insert(ctx, models.Activity{
			Name:      string(rune('a' + i)),
			Date:      base,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	list, err := repository.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List(2) returned %d activities", len(list))
	}
	if list[0].Name != "c" || list[1].Name != "b" {
		t.Errorf("List() order = %s, %s; want c, b", list[0].Name, list[1].Name)
	}
}

func TestSettingsRepository_DefaultsAndUpdate(t *testing.T) {
	repository := NewSettingsRepository(openTestDB(t))
	ctx := context.Background()

	settings, err := repository.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if settings.DisplayCurrency != "USD" || settings.Units != "metric" {
		t.Errorf("seeded settings = %+v", settings)
	}

	if err := repository.Update(ctx, models.Settings{DisplayCurrency: "EUR", Units: "imperial"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	settings, err = repository.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if settings.DisplayCurrency != "EUR" || settings.Units != "imperial" {
		t.Errorf("updated settings = %+v", settings)
	}
}

func TestSettingsStore_NotifiesOnCurrencyChange(t *testing.T) {
	store := NewSettingsStore(NewSettingsRepository(openTestDB(t)), testutils.MockLogger())
	ctx := context.Background()

	subscription := store.SubscribeCurrency()
	defer store.Unsubscribe(subscription)

	if err := store.Update(ctx, models.Settings{DisplayCurrency: "EUR", Units: "metric"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	select {
	case currency := <-subscription:
		if currency != "EUR" {
			t.Errorf("subscription received %q, want EUR", currency)
		}
	case <-time.After(time.Second):
		t.Fatal("no currency notification received")
	}

	// units-only change must not notify
	if err := store.Update(ctx, models.Settings{DisplayCurrency: "EUR", Units: "imperial"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	select {
	case currency := <-subscription:
		t.Errorf("unexpected notification %q for units-only change", currency)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSettingsStore_UnsubscribeClosesChannel(t *testing.T) {
	store := NewSettingsStore(NewSettingsRepository(openTestDB(t)), testutils.MockLogger())

	subscription := store.SubscribeCurrency()
	store.Unsubscribe(subscription)

	if _, ok := <-subscription; ok {
		t.Error("subscription still open after Unsubscribe")
	}
	// double unsubscribe is a no-op
	store.Unsubscribe(subscription)
}
