package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dalfonso89/outdoor-companion-service/internal/config"
	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

// OpenMeteoProvider implements Provider against the Open-Meteo forecast and
// geocoding APIs.
type OpenMeteoProvider struct {
	name       string
	baseURL    string
	geocodeURL string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates a new Open-Meteo provider
func NewOpenMeteoProvider(configuration config.WeatherConfig) *OpenMeteoProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenMeteoProvider{
		name:       "openmeteo",
		baseURL:    configuration.BaseURL,
		geocodeURL: configuration.GeocodeURL,
		httpCfg: HTTPClientConfig{
			Client: &http.Client{Timeout: configuration.Timeout},
			Backoff: BackoffConfig{
				MaxRetries:      configuration.RetryCount,
				InitialInterval: configuration.RetryDelay,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (provider *OpenMeteoProvider) Name() string {
	return provider.name
}

// Current fetches current conditions for the location.
func (provider *OpenMeteoProvider) Current(ctx context.Context, loc models.Location) (models.WeatherSnapshot, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
		values.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
		values.Set("current", "temperature_2m,relative_humidity_2m,precipitation,weather_code,wind_speed_10m")
		values.Set("wind_speed_unit", "ms")
		values.Set("timezone", "UTC")

		return http.NewRequest(http.MethodGet, provider.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, provider.httpCfg, provider.circuit, buildRequest)
	if err != nil {
		return models.WeatherSnapshot{}, fmt.Errorf("openmeteo current fetch failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Current struct {
			Time        string  `json:"time"`
			Temperature float64 `json:"temperature_2m"`
			Humidity    float64 `json:"relative_humidity_2m"`
			Precip      float64 `json:"precipitation"`
			WeatherCode int     `json:"weather_code"`
			WindSpeed   float64 `json:"wind_speed_10m"`
		} `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.WeatherSnapshot{}, fmt.Errorf("failed to parse openmeteo response: %w", err)
	}

	timestamp, err := time.Parse("2006-01-02T15:04", payload.Current.Time)
	if err != nil {
		timestamp = time.Now().UTC()
	}

	return models.WeatherSnapshot{
		Location:     loc,
		Timestamp:    timestamp,
		TemperatureC: payload.Current.Temperature,
		WindSpeedMS:  payload.Current.WindSpeed,
		PrecipMm:     payload.Current.Precip,
		HumidityPct:  payload.Current.Humidity,
		Condition:    conditionFromCode(payload.Current.WeatherCode),
	}, nil
}

// Forecast fetches a daily forecast for the location.
func (provider *OpenMeteoProvider) Forecast(ctx context.Context, loc models.Location, days int) ([]models.DailyForecast, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
		values.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
		values.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max,wind_speed_10m_max,weather_code")
		values.Set("forecast_days", strconv.Itoa(days))
		values.Set("wind_speed_unit", "ms")
		values.Set("timezone", "UTC")

		return http.NewRequest(http.MethodGet, provider.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, provider.httpCfg, provider.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("openmeteo forecast fetch failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Daily struct {
			Time         []string  `json:"time"`
			TempMax      []float64 `json:"temperature_2m_max"`
			TempMin      []float64 `json:"temperature_2m_min"`
			PrecipSum    []float64 `json:"precipitation_sum"`
			PrecipChance []float64 `json:"precipitation_probability_max"`
			WindMax      []float64 `json:"wind_speed_10m_max"`
			WeatherCode  []int     `json:"weather_code"`
		} `json:"daily"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse openmeteo forecast: %w", err)
	}

	daily := payload.Daily
	forecast := make([]models.DailyForecast, 0, len(daily.Time))
	for i, day := range daily.Time {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}

		entry := models.DailyForecast{Date: date}
		if i < len(daily.TempMax) {
			entry.TempMaxC = daily.TempMax[i]
		}
		if i < len(daily.TempMin) {
			entry.TempMinC = daily.TempMin[i]
		}
		if i < len(daily.PrecipSum) {
			entry.PrecipMm = daily.PrecipSum[i]
		}
		if i < len(daily.PrecipChance) {
			entry.PrecipChance = daily.PrecipChance[i]
		}
		if i < len(daily.WindMax) {
			entry.WindSpeedMS = daily.WindMax[i]
		}
		if i < len(daily.WeatherCode) {
			entry.Condition = conditionFromCode(daily.WeatherCode[i])
		}
		forecast = append(forecast, entry)
	}

	if len(forecast) == 0 {
		return nil, fmt.Errorf("openmeteo returned no forecast days")
	}
	return forecast, nil
}

// SearchLocations resolves a place name to candidate locations via the
// geocoding API.
func (provider *OpenMeteoProvider) SearchLocations(ctx context.Context, name string, limit int) ([]models.Location, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("name", name)
		values.Set("count", strconv.Itoa(limit))

		return http.NewRequest(http.MethodGet, provider.geocodeURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, provider.httpCfg, provider.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("geocode search failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Country   string  `json:"country"`
			Admin1    string  `json:"admin1"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse geocode response: %w", err)
	}

	locations := make([]models.Location, 0, len(payload.Results))
	for _, result := range payload.Results {
		displayName := result.Name
		if result.Admin1 != "" {
			displayName += ", " + result.Admin1
		}
		if result.Country != "" {
			displayName += ", " + result.Country
		}

		locations = append(locations, models.Location{
			Name: displayName,
			Lat:  result.Latitude,
			Lon:  result.Longitude,
		})
	}
	return locations, nil
}

// conditionFromCode maps WMO weather interpretation codes to a display label.
func conditionFromCode(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code <= 3:
		return "Partly cloudy"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case code >= 61 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Rain showers"
	case code == 85 || code == 86:
		return "Snow showers"
	case code >= 95:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}
