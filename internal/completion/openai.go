package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lailabot/laila/pkg/models"
)

// Flavor selects which OpenAI generation endpoint the driver talks to.
type Flavor string

const (
	// FlavorChat uses the legacy /chat/completions endpoint, whose
	// payload carries choices[].message.content.
	FlavorChat Flavor = "chat"
	// FlavorResponses uses the newer /responses endpoint, whose payload
	// carries output_text and/or output[].content[] blocks.
	FlavorResponses Flavor = "responses"
)

// OpenAIDriver implements contracts.CompletionDriver against either
// OpenAI endpoint flavor.
type OpenAIDriver struct {
	apiKey   string
	endpoint string // base, e.g. https://api.openai.com/v1
	flavor   Flavor
	client   *http.Client
}

// NewOpenAIDriver creates an OpenAI completion driver.
func NewOpenAIDriver(apiKey, endpoint string, flavor Flavor) *OpenAIDriver {
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	return &OpenAIDriver{
		apiKey:   apiKey,
		endpoint: endpoint,
		flavor:   flavor,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (d *OpenAIDriver) Kind() string { return "openai-" + string(d.flavor) }

type chatCompletionsRequest struct {
	Model       string                 `json:"model"`
	Messages    []models.PromptMessage `json:"messages"`
	MaxTokens   int                    `json:"max_tokens,omitempty"`
	Temperature float64                `json:"temperature"`
}

type responsesRequest struct {
	Model           string                 `json:"model"`
	Input           []models.PromptMessage `json:"input"`
	MaxOutputTokens int                    `json:"max_output_tokens,omitempty"`
	Temperature     float64                `json:"temperature"`
}

// Complete posts the prompt and returns the decoded payload as-is.
func (d *OpenAIDriver) Complete(ctx context.Context, prompt []models.PromptMessage, opts models.CompletionOptions) (models.RawResponse, error) {
	var body []byte
	var err error
	var url string

	switch d.flavor {
	case FlavorResponses:
		url = d.endpoint + "/responses"
		body, err = json.Marshal(responsesRequest{
			Model:           opts.Model,
			Input:           prompt,
			MaxOutputTokens: opts.MaxTokens,
			Temperature:     opts.Temperature,
		})
	default:
		url = d.endpoint + "/chat/completions"
		body, err = json.Marshal(chatCompletionsRequest{
			Model:       opts.Model,
			Messages:    prompt,
			MaxTokens:   opts.MaxTokens,
			Temperature: opts.Temperature,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, string(respBody))
	}

	var raw models.RawResponse
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	return raw, nil
}
