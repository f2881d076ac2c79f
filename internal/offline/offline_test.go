package offline

import (
	"context"
	"strings"
	"testing"

	"github.com/lailabot/laila/internal/reply"
	"github.com/lailabot/laila/pkg/models"
)

func complete(t *testing.T, message string) reply.Result {
	t.Helper()
	d := NewDriver()
	raw, err := d.Complete(context.Background(), []models.PromptMessage{
		{Role: models.RoleSystem, Content: "persona"},
		{Role: models.RoleUser, Content: message},
	}, models.CompletionOptions{})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	return reply.Extract(raw)
}

func TestComplete_PayloadIsExtractable(t *testing.T) {
	res := complete(t, "qualquer coisa")
	if !res.Found() {
		t.Fatal("offline payload must be extractable")
	}
	if res.Shape != reply.ShapeChoices {
		t.Errorf("offline payload shape = %q, want %q", res.Shape, reply.ShapeChoices)
	}
}

func TestComplete_KeywordMatching(t *testing.T) {
	res := complete(t, "Devo aceitar a proposta de emprego?")
	if !strings.Contains(strings.ToLower(res.Text), "proposta") {
		t.Errorf("keyword-matched reply should mention the topic, got %q", res.Text)
	}
}

func TestComplete_Deterministic(t *testing.T) {
	first := complete(t, "estou preocupado com o futuro")
	second := complete(t, "estou preocupado com o futuro")
	if first.Text != second.Text {
		t.Errorf("same message produced different replies: %q vs %q", first.Text, second.Text)
	}
}
