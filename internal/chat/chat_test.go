package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lailabot/laila/internal/completion"
	"github.com/lailabot/laila/internal/memory"
	"github.com/lailabot/laila/internal/session"
	"github.com/lailabot/laila/pkg/models"
)

// ── fakes ────────────────────────────────────────────────────

type fakeCompletion struct {
	payload models.RawResponse
	err     error
	calls   int
	prompts [][]models.PromptMessage
}

func (f *fakeCompletion) Kind() string { return "fake" }

func (f *fakeCompletion) Complete(_ context.Context, prompt []models.PromptMessage, _ models.CompletionOptions) (models.RawResponse, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

type fakeEmbedder struct {
	vector []float64
	err    error
	calls  int
}

func (f *fakeEmbedder) Kind() string    { return "fake" }
func (f *fakeEmbedder) Dimensions() int { return len(f.vector) }

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(inputs))
	for i := range inputs {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) HealthCheck(context.Context) error { return f.err }

type fakeMemDriver struct {
	hits      []models.MemoryHit
	queryErr  error
	insertErr error
	inserted  []models.Memory
}

func (f *fakeMemDriver) Kind() string { return "fake" }

func (f *fakeMemDriver) QuerySimilar(_ context.Context, _ []float64, _ int) ([]models.MemoryHit, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.hits, nil
}

func (f *fakeMemDriver) Insert(_ context.Context, mem models.Memory) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, mem)
	return nil
}

func (f *fakeMemDriver) HealthCheck(context.Context) error { return nil }
func (f *fakeMemDriver) Close() error                      { return nil }

func choicesPayload(text string) models.RawResponse {
	return models.RawResponse{
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": text}},
		},
	}
}

func newService(driver *fakeCompletion, opts ...Option) *Service {
	client := completion.NewClient(models.CompletionOptions{Model: "test"}, driver)
	return NewService(client, opts...)
}

func boolPtr(b bool) *bool { return &b }

// ── tests ────────────────────────────────────────────────────

func TestRespond_EmptyMessageRejectedBeforeAnyCall(t *testing.T) {
	comp := &fakeCompletion{payload: choicesPayload("nunca")}
	emb := &fakeEmbedder{vector: []float64{1, 0}}
	store := memory.NewStore(&fakeMemDriver{}, 4)
	svc := newService(comp, WithEmbedder(emb), WithMemoryStore(store))

	for _, message := range []string{"", "   ", "\n\t"} {
		_, err := svc.Respond(context.Background(), models.ChatRequest{Message: message})
		if !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Respond(%q) error = %v, want ErrEmptyMessage", message, err)
		}
	}
	if comp.calls != 0 || emb.calls != 0 {
		t.Errorf("blank message reached external drivers: completion=%d embed=%d", comp.calls, emb.calls)
	}
}

func TestRespond_ChoicesPayloadEndToEnd(t *testing.T) {
	comp := &fakeCompletion{payload: choicesPayload("Avalie os riscos antes.")}
	driver := &fakeMemDriver{hits: []models.MemoryHit{
		{Memory: models.Memory{Content: "mudou de emprego em 2024"}, Score: 0.92},
	}}
	svc := newService(comp,
		WithEmbedder(&fakeEmbedder{vector: []float64{0.1, 0.2}}),
		WithMemoryStore(memory.NewStore(driver, 4)),
	)

	resp, err := svc.Respond(context.Background(), models.ChatRequest{Message: "Devo aceitar a proposta?"})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resp.Reply == nil || *resp.Reply != "Avalie os riscos antes." {
		t.Errorf("reply = %v, want %q", resp.Reply, "Avalie os riscos antes.")
	}
	if resp.RetrievedCount != 1 {
		t.Errorf("retrieved_count = %d, want 1", resp.RetrievedCount)
	}
	if !resp.MemorySaved {
		t.Error("memory_saved = false, want true")
	}
	if len(driver.inserted) != 1 {
		t.Fatalf("inserted %d memories, want 1", len(driver.inserted))
	}
	mem := driver.inserted[0]
	if mem.ID == "" {
		t.Error("persisted memory has no id")
	}
	if mem.Content != "Devo aceitar a proposta?" {
		t.Errorf("persisted content = %q", mem.Content)
	}
}

func TestRespond_LongMessageTruncatedBeforePersist(t *testing.T) {
	comp := &fakeCompletion{payload: choicesPayload("entendi")}
	driver := &fakeMemDriver{}
	svc := newService(comp,
		WithEmbedder(&fakeEmbedder{vector: []float64{1}}),
		WithMemoryStore(memory.NewStore(driver, 4)),
	)

	message := strings.Repeat("ã", models.MaxMemoryContent+100)
	resp, err := svc.Respond(context.Background(), models.ChatRequest{Message: message})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if !resp.MemorySaved {
		t.Fatal("memory_saved = false, want true")
	}
	if len(driver.inserted) != 1 {
		t.Fatalf("inserted %d memories, want 1", len(driver.inserted))
	}
	content := driver.inserted[0].Content
	if got := len([]rune(content)); got != models.MaxMemoryContent {
		t.Errorf("stored content rune length = %d, want %d", got, models.MaxMemoryContent)
	}
	if !strings.HasPrefix(message, content) {
		t.Error("stored content is not a prefix of the original message")
	}
}

func TestRespond_OutputTextPayload(t *testing.T) {
	comp := &fakeCompletion{payload: models.RawResponse{"output_text": "Olá! Como posso ajudar?"}}
	svc := newService(comp)

	resp, err := svc.Respond(context.Background(), models.ChatRequest{Message: "oi"})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resp.Reply == nil || *resp.Reply != "Olá! Como posso ajudar?" {
		t.Errorf("reply = %v, want %q", resp.Reply, "Olá! Como posso ajudar?")
	}
	if resp.RetrievedCount != 0 || resp.MemorySaved {
		t.Errorf("memory branch ran without a store: count=%d saved=%v", resp.RetrievedCount, resp.MemorySaved)
	}
}

func TestRespond_RetrievalFailureDegrades(t *testing.T) {
	comp := &fakeCompletion{payload: choicesPayload("tudo bem")}
	driver := &fakeMemDriver{queryErr: errors.New("backend down")}
	svc := newService(comp,
		WithEmbedder(&fakeEmbedder{vector: []float64{1}}),
		WithMemoryStore(memory.NewStore(driver, 4)),
	)

	resp, err := svc.Respond(context.Background(), models.ChatRequest{Message: "como você está?"})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resp.Reply == nil {
		t.Fatal("reply missing despite successful completion")
	}
	if resp.RetrievedCount != 0 {
		t.Errorf("retrieved_count = %d, want 0", resp.RetrievedCount)
	}
}

func TestRespond_EmbeddingFailureDegrades(t *testing.T) {
	comp := &fakeCompletion{payload: choicesPayload("sigo aqui")}
	driver := &fakeMemDriver{}
	svc := newService(comp,
		WithEmbedder(&fakeEmbedder{err: errors.New("quota exceeded")}),
		WithMemoryStore(memory.NewStore(driver, 4)),
	)

	resp, err := svc.Respond(context.Background(), models.ChatRequest{Message: "oi de novo"})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if comp.calls != 1 {
		t.Errorf("completion calls = %d, want 1", comp.calls)
	}
	if resp.RetrievedCount != 0 {
		t.Errorf("retrieved_count = %d, want 0", resp.RetrievedCount)
	}
	if resp.MemorySaved {
		t.Error("memory_saved = true without an embedding")
	}
	if len(driver.inserted) != 0 {
		t.Errorf("inserted %d memories without an embedding", len(driver.inserted))
	}
}

func TestRespond_CompletionFailureIsFatal(t *testing.T) {
	comp := &fakeCompletion{err: errors.New("upstream 500")}
	driver := &fakeMemDriver{}
	svc := newService(comp,
		WithEmbedder(&fakeEmbedder{vector: []float64{1}}),
		WithMemoryStore(memory.NewStore(driver, 4)),
	)

	_, err := svc.Respond(context.Background(), models.ChatRequest{Message: "alguém aí?"})
	if err == nil {
		t.Fatal("Respond() succeeded despite completion failure")
	}
	if len(driver.inserted) != 0 {
		t.Errorf("inserted %d memories after a failed completion", len(driver.inserted))
	}
}

func TestRespond_UnrecognizedPayloadIsNullReply(t *testing.T) {
	comp := &fakeCompletion{payload: models.RawResponse{"status": "queued"}}
	svc := newService(comp)

	resp, err := svc.Respond(context.Background(), models.ChatRequest{Message: "oi"})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resp.Reply != nil {
		t.Errorf("reply = %q, want null", *resp.Reply)
	}
	if resp.Debug == nil {
		t.Error("debug payload missing on extraction miss")
	}
}

func TestRespond_PersistFalseSkipsInsert(t *testing.T) {
	comp := &fakeCompletion{payload: choicesPayload("anotado")}
	driver := &fakeMemDriver{}
	svc := newService(comp,
		WithEmbedder(&fakeEmbedder{vector: []float64{1}}),
		WithMemoryStore(memory.NewStore(driver, 4)),
	)

	resp, err := svc.Respond(context.Background(), models.ChatRequest{
		Message: "não guarde isso",
		Persist: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resp.MemorySaved {
		t.Error("memory_saved = true with persist=false")
	}
	if len(driver.inserted) != 0 {
		t.Errorf("inserted %d memories with persist=false", len(driver.inserted))
	}
}

func TestRespond_InsertFailureDoesNotFailRequest(t *testing.T) {
	comp := &fakeCompletion{payload: choicesPayload("certo")}
	driver := &fakeMemDriver{insertErr: errors.New("store unreachable")}
	svc := newService(comp,
		WithEmbedder(&fakeEmbedder{vector: []float64{1}}),
		WithMemoryStore(memory.NewStore(driver, 4)),
	)

	resp, err := svc.Respond(context.Background(), models.ChatRequest{Message: "lembre disso"})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resp.Reply == nil {
		t.Fatal("reply missing")
	}
	if resp.MemorySaved {
		t.Error("memory_saved = true despite insert failure")
	}
}

func TestRespond_SessionHistoryFlowsIntoPrompt(t *testing.T) {
	comp := &fakeCompletion{payload: choicesPayload("continuando")}
	sessions := session.NewMemoryStore(20, 0)
	svc := newService(comp, WithSessions(sessions))

	ctx := context.Background()
	if err := sessions.Append(ctx, "s1",
		models.PromptMessage{Role: models.RoleUser, Content: "meu nome é Ana"},
		models.PromptMessage{Role: models.RoleAssistant, Content: "Prazer, Ana!"},
	); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if _, err := svc.Respond(ctx, models.ChatRequest{Message: "qual é meu nome?", SessionID: "s1"}); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	prompt := comp.prompts[0]
	joined := make([]string, len(prompt))
	for i, m := range prompt {
		joined[i] = m.Role + ":" + m.Content
	}
	flat := strings.Join(joined, "|")
	if !strings.Contains(flat, "user:meu nome é Ana") || !strings.Contains(flat, "assistant:Prazer, Ana!") {
		t.Errorf("history missing from prompt: %s", flat)
	}
	last := prompt[len(prompt)-1]
	if last.Role != models.RoleUser || last.Content != "qual é meu nome?" {
		t.Errorf("last prompt block = %+v, want the current user message", last)
	}

	history, err := sessions.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4 after the new exchange", len(history))
	}
	if history[3].Role != models.RoleAssistant || history[3].Content != "continuando" {
		t.Errorf("last history turn = %+v", history[3])
	}
}

func TestRespond_DefaultModeApplied(t *testing.T) {
	comp := &fakeCompletion{payload: choicesPayload("ok")}
	svc := newService(comp,
		WithDefaultMode("practical"),
		WithClock(func() time.Time { return time.Date(2026, 8, 28, 14, 5, 0, 0, time.UTC) }),
	)

	if _, err := svc.Respond(context.Background(), models.ChatRequest{Message: "oi"}); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	persona := comp.prompts[0][0]
	if persona.Role != models.RoleSystem || !strings.Contains(persona.Content, "practical") {
		t.Errorf("persona block missing the mode: %+v", persona)
	}
}

func TestSearchMemories(t *testing.T) {
	driver := &fakeMemDriver{hits: []models.MemoryHit{
		{Memory: models.Memory{Content: "primeira"}, Score: 0.9},
	}}
	svc := newService(&fakeCompletion{payload: choicesPayload("x")},
		WithEmbedder(&fakeEmbedder{vector: []float64{1, 0}}),
		WithMemoryStore(memory.NewStore(driver, 4)),
	)

	hits, err := svc.SearchMemories(context.Background(), "primeira conversa", 2)
	if err != nil {
		t.Fatalf("SearchMemories() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Memory.Content != "primeira" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearchMemories_DisabledAndInvalid(t *testing.T) {
	svc := newService(&fakeCompletion{payload: choicesPayload("x")})

	if _, err := svc.SearchMemories(context.Background(), "qualquer", 2); !errors.Is(err, ErrMemoryDisabled) {
		t.Errorf("error = %v, want ErrMemoryDisabled", err)
	}
	if _, err := svc.SearchMemories(context.Background(), "  ", 2); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("error = %v, want ErrEmptyMessage", err)
	}
}
