// Package models defines the data types shared across the Laila service.
package models

import "time"

// ── Chat ─────────────────────────────────────────────────────

// DefaultMode is the conversational mode used when the request omits one.
const DefaultMode = "reflective"

// ChatRequest is the inbound chat message.
// Persist defaults to true when absent from the JSON body.
type ChatRequest struct {
	Message   string `json:"message"`
	Mode      string `json:"mode,omitempty"`
	Persist   *bool  `json:"persist,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// WantsPersist reports whether the caller asked for the exchange to be
// stored as a memory. Unset means yes.
func (r *ChatRequest) WantsPersist() bool {
	return r.Persist == nil || *r.Persist
}

// ChatResponse is the outbound reply.
// Reply is null (not "") when the provider responded but no text could be
// extracted; Debug then carries the raw payload for diagnosis.
type ChatResponse struct {
	Reply          *string `json:"reply"`
	RetrievedCount int     `json:"retrieved_count"`
	MemorySaved    bool    `json:"memory_saved"`
	Debug          any     `json:"debug,omitempty"`
}

// ── Prompt ───────────────────────────────────────────────────

// Chat roles as understood by every supported provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// PromptMessage is one role-tagged block of a composed prompt.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionOptions are the generation parameters passed to the provider.
type CompletionOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// RawResponse is the decoded provider payload. Its shape varies across
// provider API versions and is only interpreted by the reply extractor.
type RawResponse map[string]any

// ── Memory ───────────────────────────────────────────────────

// MaxMemoryContent caps the stored snippet length in runes.
const MaxMemoryContent = 800

// Memory is a stored conversation snippet with its embedding.
// Never mutated after creation; retention is the store's concern.
type Memory struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Embedding []float64         `json:"embedding"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// MemoryHit is one similarity-search result, ordered by descending score.
type MemoryHit struct {
	Memory Memory  `json:"memory"`
	Score  float64 `json:"score"`
}

// TruncateContent trims s to MaxMemoryContent runes.
func TruncateContent(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxMemoryContent {
		return s
	}
	return string(runes[:MaxMemoryContent])
}

// ── Audit ────────────────────────────────────────────────────

// AuditRecord captures one exchange for the optional audit sink.
type AuditRecord struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Reply     string    `json:"reply"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}
