package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dalfonso89/outdoor-companion-service/internal/activity"
	"github.com/dalfonso89/outdoor-companion-service/internal/assistant"
	"github.com/dalfonso89/outdoor-companion-service/internal/models"
	"github.com/dalfonso89/outdoor-companion-service/internal/shopping"
	"github.com/dalfonso89/outdoor-companion-service/internal/store"
	"github.com/dalfonso89/outdoor-companion-service/internal/testutils"
	"github.com/dalfonso89/outdoor-companion-service/internal/weather"
)

// stubProvider is a mock implementation of weather.Provider for testing
type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Current(ctx context.Context, loc models.Location) (models.WeatherSnapshot, error) {
	return models.WeatherSnapshot{
		Location:     loc,
		Timestamp:    time.Now().UTC(),
		TemperatureC: 18,
		Condition:    "Clear",
	}, nil
}

func (stubProvider) Forecast(ctx context.Context, loc models.Location, days int) ([]models.DailyForecast, error) {
	return testutils.MockForecast(days), nil
}

func (stubProvider) SearchLocations(ctx context.Context, name string, limit int) ([]models.Location, error) {
	return []models.Location{{Name: name, Lat: 47.6, Lon: -122.3}}, nil
}

// stubAssessor is a mock implementation of assistant.Assessor for testing
type stubAssessor struct{}

func (stubAssessor) AssessActivity(ctx context.Context, request assistant.AssessmentRequest) (models.Assessment, error) {
	return models.Assessment{
		Suitability:   "good",
		Score:         82,
		Summary:       "Great conditions.",
		ClothingItems: []string{"light rain jacket"},
	}, nil
}

// stubFetcher is a mock implementation of shopping.ItemFetcher for testing
type stubFetcher struct{}

func (stubFetcher) FetchAll(ctx context.Context, queries []string) ([]models.Item, error) {
	return testutils.MockItems(), nil
}

// stubConverter is a mock implementation of shopping.ItemConverter for testing
type stubConverter struct{}

func (stubConverter) Convert(ctx context.Context, items []models.Item, target string) []models.Item {
	return items
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := store.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	log := testutils.MockLogger()

	weatherService := weather.NewService(stubProvider{}, testutils.MockConfig().Weather, log)
	activities := store.NewActivityRepository(db)
	locations := store.NewLocationRepository(db)
	settings := store.NewSettingsStore(store.NewSettingsRepository(db), log)

	controller := shopping.NewController(stubFetcher{}, stubConverter{}, []string{"tent"}, "hiking gear", log)
	planner := activity.NewPlanner(weatherService, stubAssessor{}, activities, controller, log)

	handlers := NewHandlers(HandlerConfig{
		Logger:         log,
		WeatherService: weatherService,
		Planner:        planner,
		Activities:     activities,
		Locations:      locations,
		Settings:       settings,
		Shopping:       controller,
	})
	return handlers.SetupRoutes()
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %s: %v", recorder.Body.String(), err)
	}
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/health", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d", recorder.Code)
	}

	var health models.HealthCheck
	decodeBody(t, recorder, &health)
	if health.Status != "healthy" {
		t.Errorf("health status = %q", health.Status)
	}
}

func TestGetCurrentWeather(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/weather/current?lat=47.6&lon=-122.3&name=Seattle", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var snapshot models.WeatherSnapshot
	decodeBody(t, recorder, &snapshot)
	if snapshot.TemperatureC != 18 || snapshot.Location.Name != "Seattle" {
		t.Errorf("snapshot = %+v", snapshot)
	}
}

func TestGetCurrentWeather_MissingCoordinates(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/weather/current", nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}

	var errorResponse models.ErrorResponse
	decodeBody(t, recorder, &errorResponse)
	if errorResponse.Code != http.StatusBadRequest || errorResponse.Error == "" {
		t.Errorf("error response = %+v", errorResponse)
	}
}

func TestGetForecast(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/weather/forecast?lat=47.6&lon=-122.3&days=3", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}

	var response struct {
		Data []models.DailyForecast `json:"data"`
	}
	decodeBody(t, recorder, &response)
	if len(response.Data) != 3 {
		t.Errorf("forecast length = %d, want 3", len(response.Data))
	}
}

func TestSearchLocations_RequiresQuery(t *testing.T) {
	router := newTestRouter(t)

	if recorder := doRequest(t, router, http.MethodGet, "/api/v1/locations/search", nil); recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", recorder.Code)
	}
}

func TestLocations_SaveListDelete(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodPost, "/api/v1/locations", models.Location{Name: "Seattle", Lat: 47.6, Lon: -122.3})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	var saved models.Location
	decodeBody(t, recorder, &saved)
	if saved.ID == "" {
		t.Fatal("saved location has no ID")
	}

	recorder = doRequest(t, router, http.MethodGet, "/api/v1/locations", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("GET status = %d", recorder.Code)
	}
	var list struct {
		Data []models.Location `json:"data"`
	}
	decodeBody(t, recorder, &list)
	if len(list.Data) != 1 || list.Data[0].Name != "Seattle" {
		t.Errorf("list = %+v", list.Data)
	}

	if recorder = doRequest(t, router, http.MethodDelete, "/api/v1/locations/"+saved.ID, nil); recorder.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", recorder.Code)
	}
	if recorder = doRequest(t, router, http.MethodDelete, "/api/v1/locations/"+saved.ID, nil); recorder.Code != http.StatusNotFound {
		t.Errorf("repeat DELETE status = %d, want 404", recorder.Code)
	}
}

func TestSaveLocation_RequiresName(t *testing.T) {
	router := newTestRouter(t)

	if recorder := doRequest(t, router, http.MethodPost, "/api/v1/locations", models.Location{Lat: 1, Lon: 2}); recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", recorder.Code)
	}
}

func TestPlanActivity_LogsHistory(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodPost, "/api/v1/activities/plan", map[string]interface{}{
		"name":     "hiking",
		"location": map[string]interface{}{"name": "Seattle", "lat": 47.6, "lon": -122.3},
		"date":     "2025-06-01T00:00:00Z",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("plan status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var result activity.PlanResult
	decodeBody(t, recorder, &result)
	if result.Activity.Suitability != "good" || result.Activity.ID == "" {
		t.Errorf("plan result = %+v", result.Activity)
	}

	recorder = doRequest(t, router, http.MethodGet, "/api/v1/activities", nil)
	var list struct {
		Data []models.Activity `json:"data"`
	}
	decodeBody(t, recorder, &list)
	if len(list.Data) != 1 || list.Data[0].Name != "hiking" {
		t.Errorf("activities = %+v", list.Data)
	}
}

func TestGetShoppingState(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/shopping", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}

	var state models.ShoppingState
	decodeBody(t, recorder, &state)
	if state.Query != "hiking gear" {
		t.Errorf("state = %+v", state)
	}
	if state.Items == nil || state.RecommendedItems == nil {
		t.Error("state lists must be non-nil even before the first fetch")
	}
}

func TestSettings_GetAndUpdate(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/settings", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("GET status = %d", recorder.Code)
	}
	var settings models.Settings
	decodeBody(t, recorder, &settings)
	if settings.DisplayCurrency != "USD" {
		t.Errorf("default settings = %+v", settings)
	}

	recorder = doRequest(t, router, http.MethodPut, "/api/v1/settings", models.Settings{DisplayCurrency: "eur", Units: "imperial"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	decodeBody(t, recorder, &settings)
	if settings.DisplayCurrency != "EUR" {
		t.Errorf("PUT did not uppercase currency: %+v", settings)
	}
}

func TestUpdateSettings_Validation(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name     string
		settings models.Settings
	}{
		{"unknown currency", models.Settings{DisplayCurrency: "ZZZ", Units: "metric"}},
		{"bad units", models.Settings{DisplayCurrency: "USD", Units: "stellar"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			recorder := doRequest(t, router, http.MethodPut, "/api/v1/settings", test.settings)
			if recorder.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", recorder.Code)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodOptions, "/api/v1/settings", nil)
	if recorder.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d", recorder.Code)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
