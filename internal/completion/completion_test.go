package completion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lailabot/laila/internal/config"
	"github.com/lailabot/laila/pkg/models"
)

type stubDriver struct {
	kind    string
	payload models.RawResponse
	err     error
	calls   int
}

func (d *stubDriver) Kind() string { return d.kind }

func (d *stubDriver) Complete(context.Context, []models.PromptMessage, models.CompletionOptions) (models.RawResponse, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.payload, nil
}

func TestNew_NoFallbackUnlessConfigured(t *testing.T) {
	client, err := New(config.ProviderConfig{
		APIKey:         "sk-test",
		OllamaEndpoint: "http://localhost:11434",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(client.drivers) != 1 {
		t.Fatalf("driver count = %d, want 1 (embedding endpoint must not enable a completion fallback)", len(client.drivers))
	}
	if kind := client.drivers[0].Kind(); kind != "openai-responses" {
		t.Errorf("driver kind = %q, want openai-responses", kind)
	}
}

func TestNew_FallbackOptIn(t *testing.T) {
	client, err := New(config.ProviderConfig{
		APIKey:           "sk-test",
		CompletionAPI:    "chat",
		FallbackEndpoint: "http://localhost:11434",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(client.drivers) != 2 {
		t.Fatalf("driver count = %d, want 2", len(client.drivers))
	}
	if kind := client.drivers[1].Kind(); kind != "ollama" {
		t.Errorf("fallback driver kind = %q, want ollama", kind)
	}
}

func TestComplete_SingleDriverErrorIsNotMasked(t *testing.T) {
	primary := &stubDriver{kind: "openai-responses", err: errors.New("status 429: rate limited")}
	client := NewClient(models.CompletionOptions{Model: "test"}, primary)

	_, err := client.Complete(context.Background(), nil)
	if err == nil {
		t.Fatal("Complete() succeeded with a failing driver")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error = %v, want the provider's own failure", err)
	}
}

func TestComplete_FallbackOrder(t *testing.T) {
	primary := &stubDriver{kind: "openai-responses", err: errors.New("upstream down")}
	fallback := &stubDriver{kind: "ollama", payload: models.RawResponse{"output_text": "ok"}}
	client := NewClient(models.CompletionOptions{Model: "test"}, primary, fallback)

	raw, err := client.Complete(context.Background(), nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if raw["output_text"] != "ok" {
		t.Errorf("payload = %v, want the fallback's", raw)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls = primary %d, fallback %d; want 1 and 1", primary.calls, fallback.calls)
	}
}
