package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lailabot/laila/pkg/models"
	"github.com/rs/zerolog/log"
)

// PgvectorDriver stores memories in PostgreSQL with the pgvector
// extension. Users provide their own instance with pgvector installed;
// the table and index are created on startup if missing.
type PgvectorDriver struct {
	pool  *pgxpool.Pool
	table string
}

// NewPgvectorDriver connects, pings, and migrates the memories table.
func NewPgvectorDriver(ctx context.Context, connURL, table string, dimensions int) (*PgvectorDriver, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("pgvector connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector ping: %w", err)
	}

	d := &PgvectorDriver{pool: pool, table: table}
	if err := d.migrate(ctx, dimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector migrate: %w", err)
	}

	log.Info().Str("table", table).Int("dims", dimensions).Msg("pgvector memory store initialized")
	return d, nil
}

func (d *PgvectorDriver) migrate(ctx context.Context, dimensions int) error {
	ddl := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL DEFAULT '',
			metadata   JSONB NOT NULL DEFAULT '{}',
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`, d.table, dimensions)

	_, err := d.pool.Exec(ctx, ddl)
	return err
}

func (d *PgvectorDriver) Kind() string { return "pgvector" }

func (d *PgvectorDriver) Insert(ctx context.Context, mem models.Memory) error {
	now := mem.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	metadata := mem.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	// ON CONFLICT DO NOTHING keeps retried inserts idempotent: the ID is
	// generated by the caller before the first attempt.
	query := fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`, d.table)

	_, err := d.pool.Exec(ctx, query, mem.ID, mem.Content, metadata, pgvectorArray(mem.Embedding), now)
	return err
}

func (d *PgvectorDriver) QuerySimilar(ctx context.Context, embedding []float64, topK int) ([]models.MemoryHit, error) {
	query := fmt.Sprintf(`SELECT id, content, metadata, created_at,
		1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, d.table)

	rows, err := d.pool.Query(ctx, query, pgvectorArray(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer rows.Close()

	var hits []models.MemoryHit
	for rows.Next() {
		var mem models.Memory
		var score float64
		if err := rows.Scan(&mem.ID, &mem.Content, &mem.Metadata, &mem.CreatedAt, &score); err != nil {
			return nil, fmt.Errorf("pgvector scan: %w", err)
		}
		hits = append(hits, models.MemoryHit{Memory: mem, Score: score})
	}
	return hits, rows.Err()
}

func (d *PgvectorDriver) HealthCheck(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *PgvectorDriver) Close() error {
	d.pool.Close()
	return nil
}

// pgvectorArray converts a float64 slice to pgvector's text format: [1.0,2.0,3.0]
func pgvectorArray(v []float64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(fmt.Sprintf("%g", f))
	}
	sb.WriteByte(']')
	return sb.String()
}
