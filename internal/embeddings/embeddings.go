// Package embeddings provides embedding drivers for the memory pipeline.
// Shipped drivers: OpenAI (text-embedding-3-small/large), Ollama
// (nomic-embed-text and friends). One driver is active per deployment,
// selected by configuration.
package embeddings

import (
	"fmt"

	"github.com/lailabot/laila/internal/config"
	"github.com/lailabot/laila/pkg/contracts"
)

// defaultMaxChars caps embedded text length when config leaves it unset.
const defaultMaxChars = 8000

// New builds the configured embedding driver. Returns an error for an
// unknown driver name; credential checks are left to the first call.
func New(cfg config.ProviderConfig) (contracts.EmbeddingDriver, error) {
	maxChars := cfg.MaxEmbedChars
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}

	switch cfg.EmbeddingDriver {
	case "", "openai":
		return NewOpenAIDriver(cfg.APIKey, cfg.EmbeddingModel, WithOpenAIMaxChars(maxChars)), nil
	case "ollama":
		return NewOllamaDriver(cfg.OllamaEndpoint, cfg.EmbeddingModel), nil
	default:
		return nil, fmt.Errorf("unknown embedding driver: %s", cfg.EmbeddingDriver)
	}
}

// truncateAll caps each text at max runes. Returns the input slice
// untouched when nothing exceeds the cap.
func truncateAll(texts []string, max int) []string {
	if max <= 0 {
		return texts
	}
	needsCopy := false
	for _, t := range texts {
		if len([]rune(t)) > max {
			needsCopy = true
			break
		}
	}
	if !needsCopy {
		return texts
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		runes := []rune(t)
		if len(runes) > max {
			out[i] = string(runes[:max])
		} else {
			out[i] = t
		}
	}
	return out
}
