package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dalfonso89/outdoor-companion-service/internal/config"
	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

// Searcher issues one marketplace search for a single query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.Item, error)
}

// Client is an HTTP client for the marketplace browse API.
type Client struct {
	configuration config.MarketplaceConfig
	logger        *logger.Logger
	tokens        TokenSource
	httpClient    *http.Client
}

// NewClient creates a new marketplace client
func NewClient(configuration config.MarketplaceConfig, tokens TokenSource, logger *logger.Logger) *Client {
	return &Client{
		configuration: configuration,
		logger:        logger,
		tokens:        tokens,
		httpClient:    &http.Client{Timeout: configuration.Timeout},
	}
}

type searchResponse struct {
	ItemSummaries []struct {
		ItemID string `json:"itemId"`
		Title  string `json:"title"`
		Price  struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"price"`
		Image struct {
			ImageURL string `json:"imageUrl"`
		} `json:"image"`
		ItemWebURL string `json:"itemWebUrl"`
		Categories []struct {
			CategoryName string `json:"categoryName"`
		} `json:"categories"`
	} `json:"itemSummaries"`
}

// Search returns up to limit listings for the query, preserving the
// marketplace's relevance order. A valid access token is ensured before the
// request goes out.
func (client *Client) Search(ctx context.Context, query string, limit int) ([]models.Item, error) {
	token, err := client.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("marketplace auth failed: %w", err)
	}

	searchURL := fmt.Sprintf("%s/item_summary/search?q=%s&limit=%d", client.configuration.BaseURL, url.QueryEscape(query), limit)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+token)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(response.Body)
		return nil, fmt.Errorf("marketplace returned status %d: %s", response.StatusCode, string(body))
	}

	var payload searchResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	items := make([]models.Item, 0, len(payload.ItemSummaries))
	for _, summary := range payload.ItemSummaries {
		categories := make([]string, 0, len(summary.Categories))
		for _, category := range summary.Categories {
			categories = append(categories, category.CategoryName)
		}

		items = append(items, models.Item{
			ID:    summary.ItemID,
			Title: summary.Title,
			Price: models.Price{
				Amount:   summary.Price.Value,
				Currency: summary.Price.Currency,
			},
			ImageURL:   summary.Image.ImageURL,
			ItemURL:    summary.ItemWebURL,
			Categories: categories,
		})
	}

	client.logger.Debugf("Marketplace search %q returned %d items", query, len(items))
	return items, nil
}
