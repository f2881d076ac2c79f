package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lailabot/laila/pkg/models"
	"github.com/supabase-community/supabase-go"
)

// SupabaseConfig holds Supabase connection settings.
type SupabaseConfig struct {
	URL    string
	APIKey string
	// Table receives memory inserts.
	Table string
	// MatchFn is the SQL function performing the similarity search
	// (a pgvector `match_memories(query_embedding, match_count)` RPC).
	MatchFn string
}

// SupabaseDriver stores memories in a Supabase table and queries them
// through a similarity RPC.
type SupabaseDriver struct {
	client  *supabase.Client
	table   string
	matchFn string
}

// NewSupabaseDriver creates a Supabase-backed memory driver.
func NewSupabaseDriver(cfg SupabaseConfig) (*SupabaseDriver, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase url and api key are required")
	}
	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseDriver{client: client, table: cfg.Table, matchFn: cfg.MatchFn}, nil
}

func (d *SupabaseDriver) Kind() string { return "supabase" }

type supabaseMemoryRow struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Embedding  []float64         `json:"embedding,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	Similarity float64           `json:"similarity,omitempty"`
}

func (d *SupabaseDriver) Insert(_ context.Context, mem models.Memory) error {
	now := mem.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	row := supabaseMemoryRow{
		ID:        mem.ID,
		Content:   mem.Content,
		Embedding: mem.Embedding,
		Metadata:  mem.Metadata,
		CreatedAt: now,
	}

	// Upsert on the caller-generated ID keeps retries idempotent.
	_, _, err := d.client.From(d.table).Insert(row, true, "id", "", "").Execute()
	if err != nil {
		return fmt.Errorf("supabase insert: %w", err)
	}
	return nil
}

func (d *SupabaseDriver) QuerySimilar(_ context.Context, embedding []float64, topK int) ([]models.MemoryHit, error) {
	params := map[string]any{
		"query_embedding": embedding,
		"match_count":     topK,
	}

	result := d.client.Rpc(d.matchFn, "", params)
	if result == "" {
		return nil, fmt.Errorf("supabase rpc %s returned no data", d.matchFn)
	}

	var rows []supabaseMemoryRow
	if err := json.Unmarshal([]byte(result), &rows); err != nil {
		return nil, fmt.Errorf("supabase rpc decode: %w", err)
	}

	hits := make([]models.MemoryHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, models.MemoryHit{
			Memory: models.Memory{
				ID:        row.ID,
				Content:   row.Content,
				Metadata:  row.Metadata,
				CreatedAt: row.CreatedAt,
			},
			Score: row.Similarity,
		})
	}
	return hits, nil
}

func (d *SupabaseDriver) HealthCheck(_ context.Context) error {
	_, _, err := d.client.From(d.table).Select("id", "exact", false).Limit(1, "").Execute()
	return err
}

func (d *SupabaseDriver) Close() error { return nil }
