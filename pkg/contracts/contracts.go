// Package contracts defines the driver interfaces of the Laila service.
//
// The chat orchestrator depends only on these interfaces, so each external
// collaborator (embedding provider, completion provider, memory store,
// session store, audit sink) can be swapped by configuration — or replaced
// with a fake in tests — without touching the pipeline.
package contracts

import (
	"context"

	"github.com/lailabot/laila/pkg/models"
)

// EmbeddingDriver turns free text into a fixed-length vector.
type EmbeddingDriver interface {
	Kind() string
	Dimensions() int

	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	HealthCheck(ctx context.Context) error
}

// CompletionDriver sends a composed prompt to a text-generation endpoint
// and returns the decoded payload without interpreting its shape.
type CompletionDriver interface {
	Kind() string
	Complete(ctx context.Context, prompt []models.PromptMessage, opts models.CompletionOptions) (models.RawResponse, error)
}

// MemoryDriver is one persistence backend for memories. Exactly one driver
// is active per deployment.
type MemoryDriver interface {
	Kind() string

	// QuerySimilar returns at most topK memories ordered by descending
	// similarity to the given embedding.
	QuerySimilar(ctx context.Context, embedding []float64, topK int) ([]models.MemoryHit, error)

	// Insert stores a new memory. The memory's ID is generated by the
	// caller so retries cannot duplicate.
	Insert(ctx context.Context, mem models.Memory) error

	HealthCheck(ctx context.Context) error
	Close() error
}

// SessionStore keeps short conversation histories keyed by session ID.
type SessionStore interface {
	History(ctx context.Context, sessionID string) ([]models.PromptMessage, error)
	Append(ctx context.Context, sessionID string, msgs ...models.PromptMessage) error
	Close() error
}

// AuditSink records exchanges best-effort. Failures are logged by the
// implementation and never propagated.
type AuditSink interface {
	Record(ctx context.Context, rec models.AuditRecord)
}
