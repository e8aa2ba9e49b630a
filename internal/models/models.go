package models

import "time"

// Price is a monetary amount expressed in a specific currency. Amount is kept
// as the marketplace's decimal string; parsing happens at conversion time.
type Price struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Item is a single marketplace listing. Items are treated as immutable:
// currency conversion produces a copy with a new Price rather than mutating
// the original.
type Item struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Price      Price    `json:"price"`
	ImageURL   string   `json:"imageUrl"`
	ItemURL    string   `json:"itemUrl"`
	Categories []string `json:"categories"`
}

// ConversionRate is a multiplier from a base currency to a target currency.
type ConversionRate struct {
	Base      string    `json:"base"`
	Target    string    `json:"target"`
	Rate      float64   `json:"rate"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// ShoppingState is the published projection the shopping screen renders. It is
// recomputed wholesale on every reconciliation cycle, never patched in place.
type ShoppingState struct {
	IsLoading        bool   `json:"isLoading"`
	Error            string `json:"error,omitempty"`
	Items            []Item `json:"items"`
	RecommendedItems []Item `json:"recommendedItems"`
	Query            string `json:"query"`
}

// Location is a place weather can be looked up for. Saved locations are
// persisted; search results carry an empty ID.
type Location struct {
	ID    string  `json:"id,omitempty"`
	Name  string  `json:"name"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Saved bool    `json:"saved,omitempty"`
}

// WeatherSnapshot is the current conditions for a location.
type WeatherSnapshot struct {
	Location     Location  `json:"location"`
	Timestamp    time.Time `json:"timestamp"`
	TemperatureC float64   `json:"temperatureC"`
	WindSpeedMS  float64   `json:"windSpeedMs"`
	PrecipMm     float64   `json:"precipMm"`
	HumidityPct  float64   `json:"humidityPct"`
	Condition    string    `json:"condition"`
}

// DailyForecast is one day of an aggregated forecast.
type DailyForecast struct {
	Date         time.Time `json:"date"`
	TempMinC     float64   `json:"tempMinC"`
	TempMaxC     float64   `json:"tempMaxC"`
	WindSpeedMS  float64   `json:"windSpeedMs"`
	PrecipMm     float64   `json:"precipMm"`
	PrecipChance float64   `json:"precipChance"`
	Condition    string    `json:"condition"`
}

// Assessment is the assistant's verdict on a planned activity.
type Assessment struct {
	Suitability   string   `json:"suitability"`
	Score         int      `json:"score"`
	Summary       string   `json:"summary"`
	ClothingItems []string `json:"clothingItems"`
}

// Activity is a logged activity search.
type Activity struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	LocationName  string    `json:"locationName"`
	Date          time.Time `json:"date"`
	Suitability   string    `json:"suitability"`
	Score         int       `json:"score"`
	Summary       string    `json:"summary"`
	ClothingItems []string  `json:"clothingItems"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Settings holds the user's persisted preferences.
type Settings struct {
	DisplayCurrency string `json:"displayCurrency"`
	Units           string `json:"units"`
}

type HealthCheck struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type APIResponse struct {
	Data   interface{} `json:"data"`
	Status int         `json:"status"`
}
