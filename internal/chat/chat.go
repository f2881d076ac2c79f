// Package chat orchestrates one request through the pipeline:
// validate → embed → retrieve → compose → complete → extract → persist.
//
// Embedding, retrieval, and persistence are best-effort side branches;
// only the completion step is fatal to the request.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lailabot/laila/internal/completion"
	"github.com/lailabot/laila/internal/memory"
	"github.com/lailabot/laila/internal/prompt"
	"github.com/lailabot/laila/internal/reply"
	"github.com/lailabot/laila/pkg/contracts"
	"github.com/lailabot/laila/pkg/models"
	"github.com/rs/zerolog/log"
)

// ErrEmptyMessage rejects a blank chat message before any external call.
var ErrEmptyMessage = errors.New("message must not be empty")

// ErrMemoryDisabled is returned by memory search when no store is configured.
var ErrMemoryDisabled = errors.New("no memory store configured")

// Service runs the chat pipeline. Embedder, store, and sessions may be
// nil: a nil collaborator disables its branch, it is never an error.
type Service struct {
	embedder    contracts.EmbeddingDriver
	store       *memory.Store
	completions *completion.Client
	sessions    contracts.SessionStore
	audit       contracts.AuditSink
	persona     string
	defaultMode string
	now         func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithEmbedder enables memory augmentation.
func WithEmbedder(e contracts.EmbeddingDriver) Option {
	return func(s *Service) { s.embedder = e }
}

// WithMemoryStore enables retrieval and persistence.
func WithMemoryStore(store *memory.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithSessions enables conversation history.
func WithSessions(sess contracts.SessionStore) Option {
	return func(s *Service) { s.sessions = sess }
}

// WithAudit sets the audit sink.
func WithAudit(sink contracts.AuditSink) Option {
	return func(s *Service) { s.audit = sink }
}

// WithPersona overrides the default persona template.
func WithPersona(persona string) Option {
	return func(s *Service) { s.persona = persona }
}

// WithDefaultMode overrides the default conversational mode.
func WithDefaultMode(mode string) Option {
	return func(s *Service) { s.defaultMode = mode }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the orchestrator. Only the completion client is
// mandatory.
func NewService(completions *completion.Client, opts ...Option) *Service {
	s := &Service{
		completions: completions,
		defaultMode: models.DefaultMode,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.audit == nil {
		s.audit = nopAudit{}
	}
	return s
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, models.AuditRecord) {}

// Respond runs the full pipeline for one request.
func (s *Service) Respond(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	mode := req.Mode
	if mode == "" {
		mode = s.defaultMode
	}

	// Best-effort: embed the message for similarity retrieval.
	var embedding []float64
	if s.store != nil && s.embedder != nil {
		vectors, err := s.embedder.Embed(ctx, []string{message})
		if err != nil {
			log.Warn().Err(err).Msg("embedding failed, continuing without memory context")
		} else if len(vectors) > 0 {
			embedding = vectors[0]
		}
	}

	// Best-effort: retrieve similar memories.
	var memories []models.MemoryHit
	if embedding != nil {
		memories = s.store.Retrieve(ctx, embedding)
	}

	// Best-effort: prior turns of this session.
	var history []models.PromptMessage
	if s.sessions != nil && req.SessionID != "" {
		var err error
		history, err = s.sessions.History(ctx, req.SessionID)
		if err != nil {
			log.Warn().Err(err).Msg("session history load failed")
			history = nil
		}
	}

	composed := prompt.Compose(s.persona, mode, memories, history, message, s.now())

	// The one fatal step: no payload means no reply.
	raw, err := s.completions.Complete(ctx, composed)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	extracted := reply.Extract(raw)

	resp := &models.ChatResponse{RetrievedCount: len(memories)}
	if extracted.Found() {
		text := extracted.Text
		resp.Reply = &text
	} else {
		// Provider responded but no text was located: success with a
		// null reply, raw payload attached for diagnosis.
		log.Warn().Msg("no reply text found in provider payload")
		resp.Debug = raw
	}

	// Best-effort: persist the exchange as a memory. Runs after the
	// response fields above are final and cannot change them except for
	// the saved flag it reports.
	if req.WantsPersist() && s.store != nil && embedding != nil {
		mem := models.Memory{
			ID:        uuid.NewString(),
			Content:   models.TruncateContent(message),
			Embedding: embedding,
			Metadata:  map[string]string{"mode": mode, "source": "chat"},
			CreatedAt: s.now(),
		}
		resp.MemorySaved = s.store.Save(ctx, mem).Saved
	}

	s.recordSideEffects(ctx, req.SessionID, message, mode, extracted)

	return resp, nil
}

// recordSideEffects appends session turns and audits the exchange. Both
// are best-effort and never alter the response.
func (s *Service) recordSideEffects(ctx context.Context, sessionID, message, mode string, extracted reply.Result) {
	if s.sessions != nil && sessionID != "" {
		turns := []models.PromptMessage{{Role: models.RoleUser, Content: message}}
		if extracted.Found() {
			turns = append(turns, models.PromptMessage{Role: models.RoleAssistant, Content: extracted.Text})
		}
		if err := s.sessions.Append(ctx, sessionID, turns...); err != nil {
			log.Warn().Err(err).Msg("session append failed")
		}
	}

	s.audit.Record(ctx, models.AuditRecord{
		ID:        uuid.NewString(),
		Message:   message,
		Reply:     extracted.Text,
		Mode:      mode,
		CreatedAt: s.now(),
	})
}

// SearchMemories embeds a query and returns the most similar memories.
// Unlike the chat path this is a diagnostic operation, so failures
// surface as errors instead of degrading.
func (s *Service) SearchMemories(ctx context.Context, query string, topK int) ([]models.MemoryHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyMessage
	}
	if s.store == nil || s.embedder == nil {
		return nil, ErrMemoryDisabled
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 || vectors[0] == nil {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	hits, err := s.store.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, err
	}
	return hits, nil
}
