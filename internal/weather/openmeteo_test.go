package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalfonso89/outdoor-companion-service/internal/models"
	"github.com/dalfonso89/outdoor-companion-service/internal/testutils"
)

func newOpenMeteoTestProvider(forecastHandler, geocodeHandler http.HandlerFunc) (*OpenMeteoProvider, func()) {
	if forecastHandler == nil {
		forecastHandler = http.NotFound
	}
	if geocodeHandler == nil {
		geocodeHandler = http.NotFound
	}
	forecastServer := httptest.NewServer(forecastHandler)
	geocodeServer := httptest.NewServer(geocodeHandler)

	configuration := testutils.MockConfig().Weather
	configuration.BaseURL = forecastServer.URL
	configuration.GeocodeURL = geocodeServer.URL

	provider := NewOpenMeteoProvider(configuration)
	return provider, func() {
		forecastServer.Close()
		geocodeServer.Close()
	}
}

func TestOpenMeteoProvider_Current(t *testing.T) {
	provider, cleanup := newOpenMeteoTestProvider(func(writer http.ResponseWriter, request *http.Request) {
		if got := request.URL.Query().Get("latitude"); got != "47.6062" {
			t.Errorf("latitude = %q, want 47.6062", got)
		}
		writer.Write([]byte(`{"current":{"time":"2025-06-01T12:00","temperature_2m":18.4,"relative_humidity_2m":55,"precipitation":0.2,"weather_code":2,"wind_speed_10m":4.1}}`))
	}, nil)
	defer cleanup()

	snapshot, err := provider.Current(context.Background(), models.Location{Name: "Seattle", Lat: 47.6062, Lon: -122.3321})
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}

	if snapshot.TemperatureC != 18.4 {
		t.Errorf("TemperatureC = %v, want 18.4", snapshot.TemperatureC)
	}
	if snapshot.WindSpeedMS != 4.1 {
		t.Errorf("WindSpeedMS = %v, want 4.1", snapshot.WindSpeedMS)
	}
	if snapshot.HumidityPct != 55 {
		t.Errorf("HumidityPct = %v, want 55", snapshot.HumidityPct)
	}
	if snapshot.Condition != "Partly cloudy" {
		t.Errorf("Condition = %q, want Partly cloudy", snapshot.Condition)
	}
	if snapshot.Location.Name != "Seattle" {
		t.Errorf("Location.Name = %q", snapshot.Location.Name)
	}
}

func TestOpenMeteoProvider_Forecast(t *testing.T) {
	provider, cleanup := newOpenMeteoTestProvider(func(writer http.ResponseWriter, request *http.Request) {
		if got := request.URL.Query().Get("forecast_days"); got != "3" {
			t.Errorf("forecast_days = %q, want 3", got)
		}
		writer.Write([]byte(`{"daily":{
			"time":["2025-06-01","2025-06-02","2025-06-03"],
			"temperature_2m_max":[20.1,22.5,19.0],
			"temperature_2m_min":[11.2,12.0,10.5],
			"precipitation_sum":[0.0,1.4,0.2],
			"precipitation_probability_max":[5,60,20],
			"wind_speed_10m_max":[3.2,6.8,4.0],
			"weather_code":[0,63,2]}}`))
	}, nil)
	defer cleanup()

	forecast, err := provider.Forecast(context.Background(), models.Location{Lat: 47.6, Lon: -122.3}, 3)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	if len(forecast) != 3 {
		t.Fatalf("Forecast() returned %d days, want 3", len(forecast))
	}
	if forecast[1].TempMaxC != 22.5 || forecast[1].TempMinC != 12.0 {
		t.Errorf("day 2 temps = %v/%v", forecast[1].TempMinC, forecast[1].TempMaxC)
	}
	if forecast[1].Condition != "Rain" {
		t.Errorf("day 2 condition = %q, want Rain", forecast[1].Condition)
	}
	if forecast[0].Condition != "Clear" {
		t.Errorf("day 1 condition = %q, want Clear", forecast[0].Condition)
	}
	if forecast[2].PrecipChance != 20 {
		t.Errorf("day 3 precip chance = %v, want 20", forecast[2].PrecipChance)
	}
}

func TestOpenMeteoProvider_SearchLocations(t *testing.T) {
	provider, cleanup := newOpenMeteoTestProvider(nil, func(writer http.ResponseWriter, request *http.Request) {
		if got := request.URL.Query().Get("name"); got != "Seattle" {
			t.Errorf("name = %q, want Seattle", got)
		}
		writer.Write([]byte(`{"results":[
			{"name":"Seattle","latitude":47.6062,"longitude":-122.3321,"country":"United States","admin1":"Washington"},
			{"name":"Seattle","latitude":20.72,"longitude":-103.37,"country":"Mexico"}]}`))
	})
	defer cleanup()

	locations, err := provider.SearchLocations(context.Background(), "Seattle", 5)
	if err != nil {
		t.Fatalf("SearchLocations() error = %v", err)
	}

	if len(locations) != 2 {
		t.Fatalf("SearchLocations() returned %d locations, want 2", len(locations))
	}
	if locations[0].Name != "Seattle, Washington, United States" {
		t.Errorf("locations[0].Name = %q", locations[0].Name)
	}
	if locations[1].Name != "Seattle, Mexico" {
		t.Errorf("locations[1].Name = %q", locations[1].Name)
	}
	if locations[0].Lat != 47.6062 {
		t.Errorf("locations[0].Lat = %v", locations[0].Lat)
	}
}

func TestConditionFromCode(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "Clear"},
		{2, "Partly cloudy"},
		{45, "Fog"},
		{53, "Drizzle"},
		{63, "Rain"},
		{73, "Snow"},
		{81, "Rain showers"},
		{86, "Snow showers"},
		{95, "Thunderstorm"},
		{40, "Unknown"},
	}

	for _, test := range tests {
		if got := conditionFromCode(test.code); got != test.want {
			t.Errorf("conditionFromCode(%d) = %q, want %q", test.code, got, test.want)
		}
	}
}
