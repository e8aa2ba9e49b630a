package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/dalfonso89/outdoor-companion-service/internal/activity"
	"github.com/dalfonso89/outdoor-companion-service/internal/api"
	"github.com/dalfonso89/outdoor-companion-service/internal/assistant"
	"github.com/dalfonso89/outdoor-companion-service/internal/config"
	"github.com/dalfonso89/outdoor-companion-service/internal/currency"
	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
	"github.com/dalfonso89/outdoor-companion-service/internal/marketplace"
	"github.com/dalfonso89/outdoor-companion-service/internal/platform"
	"github.com/dalfonso89/outdoor-companion-service/internal/ratelimit"
	"github.com/dalfonso89/outdoor-companion-service/internal/scheduler"
	"github.com/dalfonso89/outdoor-companion-service/internal/shopping"
	"github.com/dalfonso89/outdoor-companion-service/internal/store"
	"github.com/dalfonso89/outdoor-companion-service/internal/weather"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Open local database and apply migrations
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	schemaVersion, err := store.RunMigrations(db)
	if err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Infof("Database ready at schema version %d", schemaVersion)

	locationRepository := store.NewLocationRepository(db)
	activityRepository := store.NewActivityRepository(db)
	settingsStore := store.NewSettingsStore(store.NewSettingsRepository(db), logger)

	// Initialize external API clients
	tokenSource := marketplace.NewOAuthTokenSource(cfg.Marketplace, logger)
	marketplaceClient := marketplace.NewClient(cfg.Marketplace, tokenSource, logger)
	itemFetcher := marketplace.NewFetcher(marketplaceClient, cfg.Marketplace.ResultsPerQuery, logger)

	ratesClient := currency.NewRatesClient(cfg.Currency, logger)
	converter := currency.NewConverter(ratesClient, logger)

	weatherService := weather.NewService(weather.NewOpenMeteoProvider(cfg.Weather), cfg.Weather, logger)
	assistantClient := assistant.NewClient(cfg.Assistant, logger)

	// Shopping reconciliation controller
	querySets, err := shopping.LoadQuerySets(cfg.QuerySetPath)
	if err != nil {
		logger.Fatalf("Failed to load query sets: %v", err)
	}
	gearQueries := querySets.For(querySets.DefaultCategory)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	controller := shopping.NewController(itemFetcher, converter, gearQueries, querySets.DefaultCategory, logger)
	controller.Start(rootCtx)

	// Feed display-currency observations into the controller, starting with
	// the persisted preference.
	currencyStream := settingsStore.SubscribeCurrency()
	go func() {
		for code := range currencyStream {
			controller.CurrencyChanged(code)
		}
	}()

	settings, err := settingsStore.Get(rootCtx)
	if err != nil {
		logger.Warnf("Failed to load settings, using default currency %s: %v", cfg.DefaultCurrency, err)
		settings.DisplayCurrency = cfg.DefaultCurrency
	}
	controller.CurrencyChanged(settings.DisplayCurrency)

	planner := activity.NewPlanner(weatherService, assistantClient, activityRepository, controller, logger)

	// Background jobs
	jobs := scheduler.New(locationRepository, weatherService, ratesClient, cfg.WeatherRefreshInterval, logger)
	if err := jobs.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	rateLimiter := ratelimit.NewLimiter(cfg, logger)

	// Initialize HTTP handlers
	handlers := api.NewHandlers(api.HandlerConfig{
		Logger:         logger,
		WeatherService: weatherService,
		Planner:        planner,
		Activities:     activityRepository,
		Locations:      locationRepository,
		Settings:       settingsStore,
		Shopping:       controller,
		RateLimiter:    rateLimiter,
	})

	router := handlers.SetupRoutes()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting outdoor companion service on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Create a shutdown context that works across platforms
	shutdownCtx, stop := platform.NewShutdownContext(context.Background())
	defer stop()
	<-shutdownCtx.Done()

	logger.Info("Shutting down server...")

	jobs.Stop()
	rateLimiter.Stop()
	controller.Close()
	settingsStore.Unsubscribe(currencyStream)
	rootCancel()

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
