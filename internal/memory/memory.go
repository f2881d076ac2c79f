// Package memory persists and retrieves conversation memories by vector
// similarity. One driver is active per deployment: pgvector, qdrant,
// supabase, a file-backed JSON store, or the embedded in-memory store.
//
// The Store wrapper enforces the degrade-gracefully contract: retrieval
// failure yields an empty result and insert failure yields a structured
// InsertResult, so a broken backend can never break the chat itself.
package memory

import (
	"context"
	"fmt"

	"github.com/lailabot/laila/internal/config"
	"github.com/lailabot/laila/pkg/contracts"
	"github.com/lailabot/laila/pkg/models"
	"github.com/rs/zerolog/log"
)

// InsertResult reports a best-effort persistence attempt. Reason is set
// only when Saved is false, so tests can assert on failure causes.
type InsertResult struct {
	Saved  bool
	Reason string
}

// Store wraps a MemoryDriver with the best-effort semantics the chat
// pipeline relies on.
type Store struct {
	driver contracts.MemoryDriver
	topK   int
}

// NewStore wraps a driver. topK bounds similarity queries (default 4).
func NewStore(driver contracts.MemoryDriver, topK int) *Store {
	if topK <= 0 {
		topK = 4
	}
	return &Store{driver: driver, topK: topK}
}

// New builds the configured driver and wraps it. Driver "none" returns
// (nil, nil): memory augmentation and persistence are simply disabled.
func New(ctx context.Context, cfg config.MemoryConfig) (*Store, error) {
	var driver contracts.MemoryDriver
	var err error

	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "embedded":
		driver = NewEmbeddedDriver()
	case "file":
		driver, err = NewFileDriver(cfg.FilePath)
	case "pgvector":
		driver, err = NewPgvectorDriver(ctx, cfg.PgURL, cfg.Table, cfg.Dimensions)
	case "qdrant":
		driver, err = NewQdrantDriver(QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
		})
	case "supabase":
		driver, err = NewSupabaseDriver(SupabaseConfig{
			URL:     cfg.SupabaseURL,
			APIKey:  cfg.SupabaseKey,
			Table:   cfg.Table,
			MatchFn: cfg.MatchFn,
		})
	default:
		return nil, fmt.Errorf("unknown memory driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("driver", driver.Kind()).Int("top_k", cfg.TopK).Msg("memory store initialized")
	return NewStore(driver, cfg.TopK), nil
}

// Retrieve returns the most similar memories, or an empty slice when the
// backend fails — retrieval is best-effort by contract.
func (s *Store) Retrieve(ctx context.Context, embedding []float64) []models.MemoryHit {
	hits, err := s.driver.QuerySimilar(ctx, embedding, s.topK)
	if err != nil {
		log.Warn().Str("driver", s.driver.Kind()).Err(err).Msg("memory query failed, continuing without context")
		return nil
	}
	return hits
}

// Save persists a memory best-effort. Never returns an error; the result
// carries the failure reason for logging and tests.
func (s *Store) Save(ctx context.Context, mem models.Memory) InsertResult {
	if err := s.driver.Insert(ctx, mem); err != nil {
		log.Warn().Str("driver", s.driver.Kind()).Err(err).Msg("memory insert failed")
		return InsertResult{Reason: err.Error()}
	}
	return InsertResult{Saved: true}
}

// Search queries the backend directly, surfacing errors. Used by the
// diagnostic search endpoint; the chat path goes through Retrieve.
// topK <= 0 falls back to the configured default.
func (s *Store) Search(ctx context.Context, embedding []float64, topK int) ([]models.MemoryHit, error) {
	if topK <= 0 {
		topK = s.topK
	}
	return s.driver.QuerySimilar(ctx, embedding, topK)
}

// HealthCheck pings the underlying driver.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.driver.HealthCheck(ctx)
}

// Close releases driver resources.
func (s *Store) Close() error {
	return s.driver.Close()
}
