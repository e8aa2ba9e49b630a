package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dalfonso89/outdoor-companion-service/internal/config"
	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
)

// TokenSource yields a valid marketplace access token, refreshing it when
// missing or about to expire.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type accessToken struct {
	value     string
	expiresAt time.Time
}

// OAuthTokenSource exchanges client credentials for a bearer token and caches
// it until it is within the expiry buffer. The cached token is replaced
// atomically; concurrent callers that find it invalid trigger a single
// refresh.
type OAuthTokenSource struct {
	configuration config.MarketplaceConfig
	logger        *logger.Logger
	httpClient    *http.Client

	tokenMutex sync.RWMutex
	current    accessToken

	refreshGroup singleflight.Group
}

// NewOAuthTokenSource creates a new token source
func NewOAuthTokenSource(configuration config.MarketplaceConfig, logger *logger.Logger) *OAuthTokenSource {
	return &OAuthTokenSource{
		configuration: configuration,
		logger:        logger,
		httpClient:    &http.Client{Timeout: configuration.Timeout},
	}
}

// Token returns the cached token, refreshing first if it is missing or inside
// the expiry buffer.
func (tokenSource *OAuthTokenSource) Token(ctx context.Context) (string, error) {
	tokenSource.tokenMutex.RLock()
	current := tokenSource.current
	tokenSource.tokenMutex.RUnlock()

	if tokenSource.valid(current) {
		return current.value, nil
	}

	result, err, _ := tokenSource.refreshGroup.Do("token", func() (interface{}, error) {
		// Re-check under the flight: another caller may have refreshed
		// while this one waited.
		tokenSource.tokenMutex.RLock()
		cached := tokenSource.current
		tokenSource.tokenMutex.RUnlock()
		if tokenSource.valid(cached) {
			return cached.value, nil
		}
		return tokenSource.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (tokenSource *OAuthTokenSource) valid(token accessToken) bool {
	if token.value == "" {
		return false
	}
	return time.Now().Before(token.expiresAt.Add(-tokenSource.configuration.TokenExpiryBuffer))
}

// refresh exchanges client credentials for a fresh token.
func (tokenSource *OAuthTokenSource) refresh(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "https://api.ebay.com/oauth/api_scope")

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenSource.configuration.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.SetBasicAuth(tokenSource.configuration.ClientID, tokenSource.configuration.ClientSecret)

	response, err := tokenSource.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(response.Body)
		return "", fmt.Errorf("token refresh returned status %d: %s", response.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access token")
	}

	refreshed := accessToken{
		value:     payload.AccessToken,
		expiresAt: time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}

	tokenSource.tokenMutex.Lock()
	tokenSource.current = refreshed
	tokenSource.tokenMutex.Unlock()

	tokenSource.logger.Debugf("Refreshed marketplace token, expires in %ds", payload.ExpiresIn)
	return refreshed.value, nil
}
