package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/currency"

	"github.com/dalfonso89/outdoor-companion-service/internal/activity"
	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
	"github.com/dalfonso89/outdoor-companion-service/internal/middleware"
	"github.com/dalfonso89/outdoor-companion-service/internal/models"
	"github.com/dalfonso89/outdoor-companion-service/internal/ratelimit"
	"github.com/dalfonso89/outdoor-companion-service/internal/shopping"
	"github.com/dalfonso89/outdoor-companion-service/internal/store"
	"github.com/dalfonso89/outdoor-companion-service/internal/weather"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	logger    *logger.Logger
	startTime time.Time

	weatherService *weather.Service
	planner        *activity.Planner
	activities     *store.ActivityRepository
	locations      *store.LocationRepository
	settings       *store.SettingsStore
	shopping       *shopping.Controller
	rateLimiter    *ratelimit.Limiter
}

// HandlerConfig bundles handler dependencies.
type HandlerConfig struct {
	Logger         *logger.Logger
	WeatherService *weather.Service
	Planner        *activity.Planner
	Activities     *store.ActivityRepository
	Locations      *store.LocationRepository
	Settings       *store.SettingsStore
	Shopping       *shopping.Controller
	RateLimiter    *ratelimit.Limiter
}

// NewHandlers creates a new handlers instance
func NewHandlers(config HandlerConfig) *Handlers {
	return &Handlers{
		logger:         config.Logger,
		startTime:      time.Now(),
		weatherService: config.WeatherService,
		planner:        config.Planner,
		activities:     config.Activities,
		locations:      config.Locations,
		settings:       config.Settings,
		shopping:       config.Shopping,
		rateLimiter:    config.RateLimiter,
	}
}

// SetupRoutes configures all the routes using Gin
func (handlers *Handlers) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestLogger(handlers.logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestID())
	router.Use(handlers.corsMiddleware())

	if handlers.rateLimiter != nil {
		router.Use(handlers.rateLimitMiddleware())
	}

	router.GET("/health", handlers.HealthCheck)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/weather/current", handlers.GetCurrentWeather)
		apiV1.GET("/weather/forecast", handlers.GetForecast)

		apiV1.GET("/locations/search", handlers.SearchLocations)
		apiV1.GET("/locations", handlers.ListLocations)
		apiV1.POST("/locations", handlers.SaveLocation)
		apiV1.DELETE("/locations/:id", handlers.DeleteLocation)

		apiV1.POST("/activities/plan", handlers.PlanActivity)
		apiV1.GET("/activities", handlers.ListActivities)
		apiV1.DELETE("/activities/:id", handlers.DeleteActivity)

		apiV1.GET("/shopping", handlers.GetShoppingState)

		apiV1.GET("/settings", handlers.GetSettings)
		apiV1.PUT("/settings", handlers.UpdateSettings)
	}

	return router
}

// HealthCheck handles health check requests
func (handlers *Handlers) HealthCheck(context *gin.Context) {
	context.JSON(http.StatusOK, models.HealthCheck{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(handlers.startTime).String(),
	})
}

// GetCurrentWeather returns current conditions for the given coordinates
func (handlers *Handlers) GetCurrentWeather(context *gin.Context) {
	loc, ok := handlers.locationFromQuery(context)
	if !ok {
		return
	}

	snapshot, err := handlers.weatherService.Current(context.Request.Context(), loc)
	if err != nil {
		handlers.writeErrorResponse(context, http.StatusBadGateway, "failed to fetch weather", err.Error())
		return
	}

	context.JSON(http.StatusOK, snapshot)
}

// GetForecast returns a daily forecast for the given coordinates
func (handlers *Handlers) GetForecast(context *gin.Context) {
	loc, ok := handlers.locationFromQuery(context)
	if !ok {
		return
	}

	days, _ := strconv.Atoi(context.DefaultQuery("days", "0"))

	forecast, err := handlers.weatherService.Forecast(context.Request.Context(), loc, days)
	if err != nil {
		handlers.writeErrorResponse(context, http.StatusBadGateway, "failed to fetch forecast", err.Error())
		return
	}

	context.JSON(http.StatusOK, models.APIResponse{Data: forecast, Status: http.StatusOK})
}

// SearchLocations resolves a place name to candidate locations
func (handlers *Handlers) SearchLocations(context *gin.Context) {
	query := context.Query("q")
	if query == "" {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid request", "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(context.DefaultQuery("limit", "5"))

	results, err := handlers.weatherService.SearchLocations(context.Request.Context(), query, limit)
	if err != nil {
		handlers.writeErrorResponse(context, http.StatusBadGateway, "location search failed", err.Error())
		return
	}

	context.JSON(http.StatusOK, models.APIResponse{Data: results, Status: http.StatusOK})
}

// ListLocations returns all saved locations
func (handlers *Handlers) ListLocations(context *gin.Context) {
	locations, err := handlers.locations.List(context.Request.Context())
	if err != nil {
		handlers.writeErrorResponse(context, http.StatusInternalServerError, "failed to list locations", err.Error())
		return
	}
	context.JSON(http.StatusOK, models.APIResponse{Data: locations, Status: http.StatusOK})
}

// SaveLocation persists a location
func (handlers *Handlers) SaveLocation(context *gin.Context) {
	var loc models.Location
	if err := context.ShouldBindJSON(&loc); err != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid location", err.Error())
		return
	}
	if loc.Name == "" {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid location", "name is required")
		return
	}

	saved, err := handlers.locations.Save(context.Request.Context(), loc)
	if err != nil {
		handlers.writeErrorResponse(context, http.StatusInternalServerError, "failed to save location", err.Error())
		return
	}
	context.JSON(http.StatusCreated, saved)
}

// DeleteLocation removes a saved location
func (handlers *Handlers) DeleteLocation(context *gin.Context) {
	err := handlers.locations.Delete(context.Request.Context(), context.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		handlers.writeErrorResponse(context, http.StatusNotFound, "location not found", context.Param("id"))
		return
	}
	if err != nil {
		handlers.writeErrorResponse(context, http.StatusInternalServerError, "failed to delete location", err.Error())
		return
	}
	context.Status(http.StatusNoContent)
}

// PlanActivity runs the planning flow for an activity
func (handlers *Handlers) PlanActivity(context *gin.Context) {
	var request activity.PlanRequest
	if err := context.ShouldBindJSON(&request); err != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid plan request", err.Error())
		return
	}

	result, err := handlers.planner.Plan(context.Request.Context(), request)
	if err != nil {
		handlers.writeErrorResponse(context, http.StatusBadGateway, "failed to plan activity", err.Error())
		return
	}

	context.JSON(http.StatusOK, result)
}

// ListActivities returns the activity history, newest first
func (handlers *Handlers) ListActivities(context *gin.Context) {
	limit, _ := strconv.Atoi(context.DefaultQuery("limit", "50"))

	activities, err := handlers.activities.List(context.Request.Context(), limit)
	if err != nil {
		handlers.writeErrorResponse(context, http.StatusInternalServerError, "failed to list activities", err.Error())
		return
	}
	context.JSON(http.StatusOK, models.APIResponse{Data: activities, Status: http.StatusOK})
}

// DeleteActivity removes a logged activity
func (handlers *Handlers) DeleteActivity(context *gin.Context) {
	err := handlers.activities.Delete(context.Request.Context(), context.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		handlers.writeErrorResponse(context, http.StatusNotFound, "activity not found", context.Param("id"))
		return
	}
	if err != nil {
		handlers.writeErrorResponse(context, http.StatusInternalServerError, "failed to delete activity", err.Error())
		return
	}
	context.Status(http.StatusNoContent)
}

// GetShoppingState returns the last published shopping state. Fetch failures
// surface inside the state's error field, never as a transport error.
func (handlers *Handlers) GetShoppingState(context *gin.Context) {
	context.JSON(http.StatusOK, handlers.shopping.State())
}

// GetSettings returns the current user settings
func (handlers *Handlers) GetSettings(context *gin.Context) {
	settings, err := handlers.settings.Get(context.Request.Context())
	if err != nil {
		handlers.writeErrorResponse(context, http.StatusInternalServerError, "failed to get settings", err.Error())
		return
	}
	context.JSON(http.StatusOK, settings)
}

// UpdateSettings validates and persists new settings; a display-currency
// change flows to the shopping controller through the settings store's
// subscription stream.
func (handlers *Handlers) UpdateSettings(context *gin.Context) {
	var settings models.Settings
	if err := context.ShouldBindJSON(&settings); err != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid settings", err.Error())
		return
	}

	settings.DisplayCurrency = strings.ToUpper(settings.DisplayCurrency)
	if _, err := currency.ParseISO(settings.DisplayCurrency); err != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid settings", "unknown currency code "+settings.DisplayCurrency)
		return
	}
	if settings.Units != "metric" && settings.Units != "imperial" {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid settings", "units must be metric or imperial")
		return
	}

	if err := handlers.settings.Update(context.Request.Context(), settings); err != nil {
		handlers.writeErrorResponse(context, http.StatusInternalServerError, "failed to update settings", err.Error())
		return
	}

	context.JSON(http.StatusOK, settings)
}

// locationFromQuery parses lat/lon query parameters.
func (handlers *Handlers) locationFromQuery(context *gin.Context) (models.Location, bool) {
	lat, latErr := strconv.ParseFloat(context.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(context.Query("lon"), 64)
	if latErr != nil || lonErr != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid request", "lat and lon query parameters are required")
		return models.Location{}, false
	}

	return models.Location{
		Name: context.Query("name"),
		Lat:  lat,
		Lon:  lon,
	}, true
}

// writeErrorResponse writes an error response using Gin context
func (handlers *Handlers) writeErrorResponse(context *gin.Context, statusCode int, errorMessage, errorDetails string) {
	context.JSON(statusCode, models.ErrorResponse{
		Error:   errorMessage,
		Message: errorDetails,
		Code:    statusCode,
	})
}

// corsMiddleware adds CORS headers using Gin middleware
func (handlers *Handlers) corsMiddleware() gin.HandlerFunc {
	return func(context *gin.Context) {
		context.Header("Access-Control-Allow-Origin", "*")
		context.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		context.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if context.Request.Method == "OPTIONS" {
			context.AbortWithStatus(http.StatusOK)
			return
		}

		context.Next()
	}
}

// rateLimitMiddleware provides rate limiting using Gin middleware
func (handlers *Handlers) rateLimitMiddleware() gin.HandlerFunc {
	return func(context *gin.Context) {
		clientIP := handlers.rateLimiter.GetClientIP(context.Request)

		if !handlers.rateLimiter.Allow(clientIP) {
			handlers.logger.Warnf("Rate limit exceeded for IP: %s", clientIP)
			context.Header("X-RateLimit-Limit", strconv.Itoa(handlers.rateLimiter.Configuration.RateLimitRequests))
			context.Header("X-RateLimit-Remaining", "0")
			context.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(handlers.rateLimiter.Configuration.RateLimitWindow).Unix(), 10))
			context.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			context.Abort()
			return
		}

		context.Next()
	}
}
