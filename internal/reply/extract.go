// Package reply extracts the human-readable reply text from a provider
// payload of unknown shape.
//
// Provider API versions produced three payload shapes over time: a flat
// "output_text" field, nested "output[].content[]" blocks, and the legacy
// "choices[].message.content". Extraction probes them in that fixed order
// and stops at the first shape yielding a non-blank trimmed string, so
// callers never need to know which API version produced the payload.
package reply

import "strings"

// Shape tags the payload variant that yielded the reply.
type Shape string

const (
	ShapeOutputText   Shape = "output_text"
	ShapeOutputBlocks Shape = "output_blocks"
	ShapeChoices      Shape = "choices"
	ShapeUnrecognized Shape = "unrecognized"
)

// Result is the normalized outcome of an extraction attempt.
// Text is empty exactly when Shape is ShapeUnrecognized: the call
// succeeded but no text could be located, which the caller must treat
// distinctly from a provider error.
type Result struct {
	Text  string
	Shape Shape
}

// Found reports whether a non-blank reply was located.
func (r Result) Found() bool { return r.Shape != ShapeUnrecognized }

// Extract locates the best-effort reply string in a decoded payload.
// Pure and deterministic; never modifies the payload. A nil payload is
// simply unrecognized.
func Extract(obj map[string]any) Result {
	if text, ok := fromOutputText(obj); ok {
		return Result{Text: text, Shape: ShapeOutputText}
	}
	if text, ok := fromOutputBlocks(obj); ok {
		return Result{Text: text, Shape: ShapeOutputBlocks}
	}
	if text, ok := fromChoices(obj); ok {
		return Result{Text: text, Shape: ShapeChoices}
	}
	return Result{Shape: ShapeUnrecognized}
}

// fromOutputText handles the flat responses-API convenience field.
func fromOutputText(obj map[string]any) (string, bool) {
	return nonBlank(obj["output_text"])
}

// fromOutputBlocks handles the nested responses-API shape: the first
// output item's content is a list of typed blocks. A block explicitly
// tagged as output text wins; otherwise the first block carrying any
// non-blank text field is used.
func fromOutputBlocks(obj map[string]any) (string, bool) {
	output, ok := obj["output"].([]any)
	if !ok || len(output) == 0 {
		return "", false
	}
	first, ok := output[0].(map[string]any)
	if !ok {
		return "", false
	}

	switch content := first["content"].(type) {
	case string:
		return nonBlank(content)
	case []any:
		// Pass 1: blocks tagged as output text.
		for _, b := range content {
			block, ok := b.(map[string]any)
			if !ok {
				continue
			}
			tag, _ := block["type"].(string)
			if tag != "output_text" && tag != "text" {
				continue
			}
			if text, ok := nonBlank(block["text"]); ok {
				return text, true
			}
		}
		// Pass 2: any block with a non-blank text field.
		for _, b := range content {
			block, ok := b.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := nonBlank(block["text"]); ok {
				return text, true
			}
			if text, ok := nonBlank(block["content"]); ok {
				return text, true
			}
		}
	}
	return "", false
}

// fromChoices handles the legacy chat-completions shape.
func fromChoices(obj map[string]any) (string, bool) {
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	message, ok := first["message"].(map[string]any)
	if !ok {
		return "", false
	}

	switch content := message["content"].(type) {
	case string:
		return nonBlank(content)
	case map[string]any:
		return nonBlank(content["text"])
	}
	return "", false
}

// nonBlank returns v trimmed when it is a string with visible content.
func nonBlank(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
