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

// OllamaDriver talks to Ollama's OpenAI-compatible chat endpoint. The
// payload it returns is choices-shaped, so it flows through the same
// extractor as the legacy OpenAI flavor. No authentication.
type OllamaDriver struct {
	endpoint string // e.g. http://localhost:11434
	client   *http.Client
}

// NewOllamaDriver creates an Ollama completion driver.
func NewOllamaDriver(endpoint string) *OllamaDriver {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &OllamaDriver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (d *OllamaDriver) Kind() string { return "ollama" }

// Complete posts the prompt to /v1/chat/completions and returns the
// decoded payload.
func (d *OllamaDriver) Complete(ctx context.Context, prompt []models.PromptMessage, opts models.CompletionOptions) (models.RawResponse, error) {
	body, err := json.Marshal(chatCompletionsRequest{
		Model:       opts.Model,
		Messages:    prompt,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	url := d.endpoint + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, string(respBody))
	}

	var raw models.RawResponse
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	return raw, nil
}
