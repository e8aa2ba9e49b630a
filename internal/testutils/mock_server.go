package testutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
)

// MockMarketplaceServer is an httptest server speaking the marketplace's
// token and search endpoints. Counters let tests assert how often each
// endpoint was hit.
type MockMarketplaceServer struct {
	Server *httptest.Server

	TokenCalls  atomic.Int64
	SearchCalls atomic.Int64

	// TokenExpiresIn is the expiry (seconds) returned by the token endpoint.
	TokenExpiresIn int
	// ItemsPerQuery is how many listings each search returns.
	ItemsPerQuery int
	// FailSearches makes the search endpoint return 500s.
	FailSearches bool
}

// NewMockMarketplaceServer creates and starts a mock marketplace server.
func NewMockMarketplaceServer() *MockMarketplaceServer {
	mock := &MockMarketplaceServer{
		TokenExpiresIn: 7200,
		ItemsPerQuery:  2,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", mock.handleToken)
	mux.HandleFunc("/browse/item_summary/search", mock.handleSearch)

	mock.Server = httptest.NewServer(mux)
	return mock
}

// Close shuts the server down.
func (mock *MockMarketplaceServer) Close() {
	mock.Server.Close()
}

// BaseURL is the browse API base URL for client configuration.
func (mock *MockMarketplaceServer) BaseURL() string {
	return mock.Server.URL + "/browse"
}

// AuthURL is the token endpoint URL for client configuration.
func (mock *MockMarketplaceServer) AuthURL() string {
	return mock.Server.URL + "/oauth/token"
}

func (mock *MockMarketplaceServer) handleToken(writer http.ResponseWriter, request *http.Request) {
	count := mock.TokenCalls.Add(1)
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(map[string]interface{}{
		"access_token": fmt.Sprintf("test-token-%d", count),
		"expires_in":   mock.TokenExpiresIn,
	})
}

func (mock *MockMarketplaceServer) handleSearch(writer http.ResponseWriter, request *http.Request) {
	mock.SearchCalls.Add(1)
	if mock.FailSearches {
		http.Error(writer, "upstream unavailable", http.StatusInternalServerError)
		return
	}

	query := request.URL.Query().Get("q")

	summaries := make([]map[string]interface{}, 0, mock.ItemsPerQuery)
	for i := 0; i < mock.ItemsPerQuery; i++ {
		summaries = append(summaries, map[string]interface{}{
			"itemId": fmt.Sprintf("v1|%s-%d|0", query, i),
			"title":  fmt.Sprintf("%s item %d", query, i),
			"price": map[string]string{
				"value":    "19.99",
				"currency": "USD",
			},
			"image":      map[string]string{"imageUrl": "https://img.test.com/x.jpg"},
			"itemWebUrl": "https://www.test.com/itm/x",
			"categories": []map[string]string{{"categoryName": "Outdoor"}},
		})
	}

	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(map[string]interface{}{"itemSummaries": summaries})
}

// NewMockRatesServer starts an httptest server returning the given rates for
// every base.
func NewMockRatesServer(rates map[string]float64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(map[string]interface{}{
			"base":  request.URL.Query().Get("base"),
			"rates": rates,
		})
	}))
}
