package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dalfonso89/outdoor-companion-service/internal/config"
	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
)

// RateSource resolves a conversion rate from a base currency to a target
// currency. A base equal to the target always resolves to 1.0 without a
// lookup.
type RateSource interface {
	Rate(ctx context.Context, base, target string) (float64, error)
}

type cacheEntry struct {
	rates     map[string]float64
	fetchedAt time.Time
	expiresAt time.Time
}

// RatesClient fetches conversion rates from the currency API and caches them
// per base currency with a TTL. Concurrent lookups for the same pair are
// collapsed into a single upstream request.
type RatesClient struct {
	configuration config.CurrencyConfig
	logger        *logger.Logger
	httpClient    *http.Client

	cacheMutex sync.RWMutex
	cache      map[string]cacheEntry

	singleFlightGroup singleflight.Group
}

// NewRatesClient creates a new rates client
func NewRatesClient(configuration config.CurrencyConfig, logger *logger.Logger) *RatesClient {
	return &RatesClient{
		configuration: configuration,
		logger:        logger,
		httpClient:    &http.Client{Timeout: configuration.Timeout},
		cache:         make(map[string]cacheEntry),
	}
}

// Rate returns the conversion rate from base to target.
func (ratesClient *RatesClient) Rate(ctx context.Context, base, target string) (float64, error) {
	if base == target {
		return 1.0, nil
	}

	// Resolve under the lock; cache entries are replaced wholesale on
	// refresh, so a rate map must never be read after the lock is released.
	ratesClient.cacheMutex.RLock()
	entry, cached := ratesClient.cache[base]
	var rate float64
	var hit bool
	if cached && time.Now().Before(entry.expiresAt) {
		rate, hit = entry.rates[target]
	}
	ratesClient.cacheMutex.RUnlock()

	if hit {
		return rate, nil
	}

	flightKey := "rates:" + base + ":" + target
	result, err, _ := ratesClient.singleFlightGroup.Do(flightKey, func() (interface{}, error) {
		return ratesClient.fetchRates(ctx, base, target)
	})
	if err != nil {
		return 0, err
	}

	rates := result.(map[string]float64)
	rate, ok := rates[target]
	if !ok {
		return 0, fmt.Errorf("no rate for %s in %s response", target, base)
	}
	return rate, nil
}

// fetchRates requests rates for the given base and merges them into the cache.
func (ratesClient *RatesClient) fetchRates(ctx context.Context, base, target string) (map[string]float64, error) {
	url := fmt.Sprintf("%s?base=%s&symbols=%s", ratesClient.configuration.BaseURL, base, target)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if ratesClient.configuration.APIKey != "" {
		request.Header.Set("Authorization", "Bearer "+ratesClient.configuration.APIKey)
	}

	response, err := ratesClient.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("currency API returned status %d", response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var payload struct {
		Base  string             `json:"base"`
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse rates response: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("currency API returned no rates for %s", base)
	}

	now := time.Now()

	// Build a fresh map and replace the entry wholesale. The old map may
	// still be visible to readers holding its rates, so it is never
	// mutated once published.
	ratesClient.cacheMutex.Lock()
	merged := make(map[string]float64, len(payload.Rates))
	if existing, ok := ratesClient.cache[base]; ok && now.Before(existing.expiresAt) {
		for code, rate := range existing.rates {
			merged[code] = rate
		}
	}
	for code, rate := range payload.Rates {
		merged[code] = rate
	}
	ratesClient.cache[base] = cacheEntry{
		rates:     merged,
		fetchedAt: now,
		expiresAt: now.Add(ratesClient.configuration.CacheTTL),
	}
	ratesClient.cacheMutex.Unlock()

	ratesClient.logger.Debugf("Fetched %d rates for base %s", len(payload.Rates), base)
	return merged, nil
}

// SweepExpired drops cache entries whose TTL has passed. Called periodically
// by the scheduler so stale bases do not accumulate.
func (ratesClient *RatesClient) SweepExpired() int {
	now := time.Now()
	removed := 0

	ratesClient.cacheMutex.Lock()
	for base, entry := range ratesClient.cache {
		if now.After(entry.expiresAt) {
			delete(ratesClient.cache, base)
			removed++
		}
	}
	ratesClient.cacheMutex.Unlock()

	return removed
}
