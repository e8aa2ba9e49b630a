package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dalfonso89/outdoor-companion-service/internal/config"
	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

// Assessor produces a suitability assessment for a planned activity.
type Assessor interface {
	AssessActivity(ctx context.Context, request AssessmentRequest) (models.Assessment, error)
}

// AssessmentRequest carries everything the assistant needs to judge an
// activity.
type AssessmentRequest struct {
	ActivityName string
	LocationName string
	Date         string
	Forecast     []models.DailyForecast
}

// Client calls a chat-completions style assistant API.
type Client struct {
	configuration config.AssistantConfig
	logger        *logger.Logger
	httpClient    *http.Client
}

// NewClient creates a new assistant client
func NewClient(configuration config.AssistantConfig, logger *logger.Logger) *Client {
	return &Client{
		configuration: configuration,
		logger:        logger,
		httpClient:    &http.Client{Timeout: configuration.Timeout},
	}
}

const systemPrompt = `You are an outdoor activity advisor. Given an activity, a location, a date and a weather forecast, reply with a JSON object and nothing else, with keys: "suitability" (one of "good", "fair", "poor"), "score" (0-100), "summary" (one sentence), "clothingItems" (array of short marketplace search terms for recommended clothing).`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// AssessActivity prompts the assistant and parses its JSON reply.
func (client *Client) AssessActivity(ctx context.Context, request AssessmentRequest) (models.Assessment, error) {
	payload := chatRequest{
		Model: client.configuration.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(request)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return models.Assessment{}, fmt.Errorf("failed to encode assistant request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, client.configuration.BaseURL, bytes.NewReader(body))
	if err != nil {
		return models.Assessment{}, fmt.Errorf("failed to create assistant request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+client.configuration.APIKey)

	response, err := client.httpClient.Do(httpRequest)
	if err != nil {
		return models.Assessment{}, fmt.Errorf("assistant request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(response.Body)
		return models.Assessment{}, fmt.Errorf("assistant returned status %d: %s", response.StatusCode, string(responseBody))
	}

	var reply chatResponse
	if err := json.NewDecoder(response.Body).Decode(&reply); err != nil {
		return models.Assessment{}, fmt.Errorf("failed to parse assistant response: %w", err)
	}
	if len(reply.Choices) == 0 {
		return models.Assessment{}, fmt.Errorf("assistant returned no choices")
	}

	assessment, err := parseAssessment(reply.Choices[0].Message.Content)
	if err != nil {
		return models.Assessment{}, err
	}

	client.logger.Debugf("Assistant assessed %q as %s (%d)", request.ActivityName, assessment.Suitability, assessment.Score)
	return assessment, nil
}

func buildUserPrompt(request AssessmentRequest) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Activity: %s\nLocation: %s\nDate: %s\nForecast:\n", request.ActivityName, request.LocationName, request.Date)
	for _, day := range request.Forecast {
		fmt.Fprintf(&builder, "- %s: %.0f to %.0f C, wind %.0f m/s, precipitation %.1f mm (%.0f%% chance), %s\n",
			day.Date.Format("2006-01-02"), day.TempMinC, day.TempMaxC, day.WindSpeedMS, day.PrecipMm, day.PrecipChance, day.Condition)
	}
	return builder.String()
}

// parseAssessment extracts the assessment JSON from the model's reply,
// tolerating markdown code fences around it.
func parseAssessment(content string) (models.Assessment, error) {
	trimmed := strings.TrimSpace(content)
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			trimmed = trimmed[start : end+1]
		}
	}

	var assessment models.Assessment
	if err := json.Unmarshal([]byte(trimmed), &assessment); err != nil {
		return models.Assessment{}, fmt.Errorf("assistant reply was not valid assessment JSON: %w", err)
	}
	if assessment.Suitability == "" {
		return models.Assessment{}, fmt.Errorf("assistant reply missing suitability")
	}
	return assessment, nil
}
