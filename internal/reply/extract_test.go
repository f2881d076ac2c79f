package reply

import "testing"

func choicesPayload(content any) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{"content": content},
			},
		},
	}
}

func outputBlocksPayload(blocks ...any) map[string]any {
	return map[string]any{
		"output": []any{
			map[string]any{"content": blocks},
		},
	}
}

func TestExtract_OutputTextField(t *testing.T) {
	got := Extract(map[string]any{"output_text": "  Olá! Como posso ajudar?  "})
	if got.Text != "Olá! Como posso ajudar?" {
		t.Errorf("Extract().Text = %q, want %q", got.Text, "Olá! Como posso ajudar?")
	}
	if got.Shape != ShapeOutputText {
		t.Errorf("Extract().Shape = %q, want %q", got.Shape, ShapeOutputText)
	}
}

func TestExtract_OutputBlocks_TaggedBlock(t *testing.T) {
	for _, tag := range []string{"output_text", "text"} {
		payload := outputBlocksPayload(
			map[string]any{"type": "reasoning", "text": ""},
			map[string]any{"type": tag, "text": " Avalie com calma. "},
		)
		got := Extract(payload)
		if got.Text != "Avalie com calma." {
			t.Errorf("tag %q: Extract().Text = %q, want %q", tag, got.Text, "Avalie com calma.")
		}
		if got.Shape != ShapeOutputBlocks {
			t.Errorf("tag %q: Extract().Shape = %q, want %q", tag, got.Shape, ShapeOutputBlocks)
		}
	}
}

func TestExtract_OutputBlocks_UntaggedFallback(t *testing.T) {
	payload := outputBlocksPayload(
		map[string]any{"type": "tool_call", "name": "lookup"},
		map[string]any{"text": "resposta sem tag"},
	)
	got := Extract(payload)
	if got.Text != "resposta sem tag" {
		t.Errorf("Extract().Text = %q, want %q", got.Text, "resposta sem tag")
	}
}

func TestExtract_ChoicesStringContent(t *testing.T) {
	got := Extract(choicesPayload("  Avalie os riscos antes.  "))
	if got.Text != "Avalie os riscos antes." {
		t.Errorf("Extract().Text = %q, want %q", got.Text, "Avalie os riscos antes.")
	}
	if got.Shape != ShapeChoices {
		t.Errorf("Extract().Shape = %q, want %q", got.Shape, ShapeChoices)
	}
}

func TestExtract_ChoicesStructuredContent(t *testing.T) {
	got := Extract(choicesPayload(map[string]any{"text": " estruturado "}))
	if got.Text != "estruturado" {
		t.Errorf("Extract().Text = %q, want %q", got.Text, "estruturado")
	}
}

func TestExtract_Absent(t *testing.T) {
	cases := map[string]map[string]any{
		"nil payload":      nil,
		"empty object":     {},
		"blank output":     {"output_text": "   "},
		"blank choices":    choicesPayload("\n\t "),
		"blank everything": {"output_text": " ", "choices": []any{map[string]any{"message": map[string]any{"content": "  "}}}},
		"wrong types":      {"output": "not-a-list", "choices": 42},
	}
	for name, payload := range cases {
		got := Extract(payload)
		if got.Found() {
			t.Errorf("%s: Extract().Found() = true, want false (text %q)", name, got.Text)
		}
		if got.Shape != ShapeUnrecognized {
			t.Errorf("%s: Extract().Shape = %q, want %q", name, got.Shape, ShapeUnrecognized)
		}
	}
}

func TestExtract_PriorityOutputTextWins(t *testing.T) {
	payload := choicesPayload("legacy text")
	payload["output_text"] = "modern text"

	got := Extract(payload)
	if got.Text != "modern text" {
		t.Errorf("Extract().Text = %q, want %q (output_text must win)", got.Text, "modern text")
	}
	if got.Shape != ShapeOutputText {
		t.Errorf("Extract().Shape = %q, want %q", got.Shape, ShapeOutputText)
	}
}

func TestExtract_BlankHigherShapeFallsThrough(t *testing.T) {
	payload := choicesPayload("ainda estou aqui")
	payload["output_text"] = "   "

	got := Extract(payload)
	if got.Text != "ainda estou aqui" {
		t.Errorf("Extract().Text = %q, want fall-through to choices", got.Text)
	}
	if got.Shape != ShapeChoices {
		t.Errorf("Extract().Shape = %q, want %q", got.Shape, ShapeChoices)
	}
}

func TestExtract_OutputContentAsString(t *testing.T) {
	payload := map[string]any{
		"output": []any{map[string]any{"content": " direto "}},
	}
	got := Extract(payload)
	if got.Text != "direto" {
		t.Errorf("Extract().Text = %q, want %q", got.Text, "direto")
	}
}
