// Package completion sends composed prompts to a text-generation provider
// and hands back the decoded payload without interpreting its shape —
// shape handling belongs to the reply extractor.
//
// Drivers: OpenAI responses endpoint, OpenAI chat-completions, and any
// OpenAI-compatible local endpoint (Ollama). The client tries configured
// drivers in order and returns the first successful payload.
package completion

import (
	"context"
	"fmt"

	"github.com/lailabot/laila/internal/config"
	"github.com/lailabot/laila/pkg/contracts"
	"github.com/lailabot/laila/pkg/models"
	"github.com/rs/zerolog/log"
)

// Client fans a completion request over an ordered driver list.
type Client struct {
	drivers []contracts.CompletionDriver
	opts    models.CompletionOptions
}

// NewClient creates a completion client with fallback ordering: the first
// driver is the primary, the rest are tried only after it fails.
func NewClient(opts models.CompletionOptions, drivers ...contracts.CompletionDriver) *Client {
	return &Client{drivers: drivers, opts: opts}
}

// New builds the client the configuration asks for. Returns an error when
// no driver can be constructed (missing credentials and not offline).
func New(cfg config.ProviderConfig) (*Client, error) {
	opts := models.CompletionOptions{
		Model:       cfg.CompletionModel,
		MaxTokens:   cfg.MaxOutputTokens,
		Temperature: cfg.Temperature,
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("completion provider API key not configured")
	}

	var primary contracts.CompletionDriver
	switch cfg.CompletionAPI {
	case "", "responses":
		primary = NewOpenAIDriver(cfg.APIKey, cfg.Endpoint, FlavorResponses)
	case "chat":
		primary = NewOpenAIDriver(cfg.APIKey, cfg.Endpoint, FlavorChat)
	default:
		return nil, fmt.Errorf("unknown completion API flavor: %s", cfg.CompletionAPI)
	}

	drivers := []contracts.CompletionDriver{primary}
	if cfg.FallbackEndpoint != "" {
		drivers = append(drivers, NewOllamaDriver(cfg.FallbackEndpoint))
	}
	return NewClient(opts, drivers...), nil
}

// Options returns the generation parameters this client was built with.
func (c *Client) Options() models.CompletionOptions { return c.opts }

// Complete tries each driver in order and returns the first payload
// obtained. Only when every driver fails does the request-level error
// surface — the one fatal step of the pipeline.
func (c *Client) Complete(ctx context.Context, prompt []models.PromptMessage) (models.RawResponse, error) {
	if len(c.drivers) == 0 {
		return nil, fmt.Errorf("no completion drivers configured")
	}

	var lastErr error
	for _, d := range c.drivers {
		raw, err := d.Complete(ctx, prompt, c.opts)
		if err != nil {
			log.Warn().Str("driver", d.Kind()).Err(err).Msg("completion driver failed, trying next")
			lastErr = err
			continue
		}
		return raw, nil
	}
	return nil, fmt.Errorf("all completion drivers failed: %w", lastErr)
}
