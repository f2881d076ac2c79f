// Package audit records completed exchanges best-effort. A failed audit
// write is logged and forgotten; it never reaches the caller.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/lailabot/laila/internal/config"
	"github.com/lailabot/laila/pkg/contracts"
	"github.com/lailabot/laila/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/supabase-community/supabase-go"
)

// New builds the configured audit sink. Driver "none" yields a sink that
// does nothing, so callers never nil-check.
func New(cfg config.AuditConfig) (contracts.AuditSink, error) {
	switch cfg.Driver {
	case "", "none":
		return NopSink{}, nil
	case "file":
		return NewFileSink(cfg.FilePath), nil
	case "supabase":
		return NewSupabaseSink(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown audit driver: %s", cfg.Driver)
	}
}

// NopSink discards every record.
type NopSink struct{}

func (NopSink) Record(context.Context, models.AuditRecord) {}

// FileSink appends records as JSON lines.
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewFileSink creates a JSONL-appending sink.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Record(_ context.Context, rec models.AuditRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(rec)
	if err != nil {
		log.Warn().Err(err).Msg("audit encode failed")
		return
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warn().Err(err).Msg("audit open failed")
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		log.Warn().Err(err).Msg("audit write failed")
	}
}

// SupabaseSink inserts records into a Supabase table.
type SupabaseSink struct {
	client *supabase.Client
	table  string
}

// NewSupabaseSink creates a Supabase-backed sink.
func NewSupabaseSink(url, apiKey, table string) (*SupabaseSink, error) {
	if url == "" || apiKey == "" {
		return nil, fmt.Errorf("supabase url and api key are required for the audit sink")
	}
	client, err := supabase.NewClient(url, apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseSink{client: client, table: table}, nil
}

func (s *SupabaseSink) Record(_ context.Context, rec models.AuditRecord) {
	_, _, err := s.client.From(s.table).Insert(rec, false, "", "", "").Execute()
	if err != nil {
		log.Warn().Err(err).Msg("audit insert failed")
	}
}
