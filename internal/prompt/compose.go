// Package prompt assembles the structured prompt sent to the completion
// provider: persona block first, then retrieved memories and prior
// conversation turns, user message always last.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/lailabot/laila/pkg/models"
)

// DefaultPersona is the system persona template. The {mode} and {now}
// placeholders are filled with the conversational mode and the current
// date/time; any other text, including % signs, passes through verbatim.
const DefaultPersona = `Você é a Laila, uma assistente de conversa acolhedora e direta.
Modo de conversa: {mode}.
Agora é {now}.
Responda sempre em linguagem natural, sem inventar fatos sobre o usuário.`

var weekdaysPtBR = [...]string{
	"domingo", "segunda-feira", "terça-feira", "quarta-feira",
	"quinta-feira", "sexta-feira", "sábado",
}

// FormatNow renders a timestamp in Brazilian conventions,
// e.g. "sexta-feira, 29/08/2026 14:05".
func FormatNow(now time.Time) string {
	return weekdaysPtBR[now.Weekday()] + ", " + now.Format("02/01/2006 15:04")
}

// Compose builds the ordered prompt blocks. Total over its inputs: a
// memory with no content renders as an empty line rather than failing,
// and neither memories nor history nor the user message are mutated.
func Compose(persona, mode string, memories []models.MemoryHit, history []models.PromptMessage, userMessage string, now time.Time) []models.PromptMessage {
	if persona == "" {
		persona = DefaultPersona
	}
	if mode == "" {
		mode = models.DefaultMode
	}

	personaText := strings.NewReplacer(
		"{mode}", mode,
		"{now}", FormatNow(now),
	).Replace(persona)

	out := make([]models.PromptMessage, 0, len(history)+3)
	out = append(out, models.PromptMessage{
		Role:    models.RoleSystem,
		Content: personaText,
	})

	if len(memories) > 0 {
		out = append(out, models.PromptMessage{
			Role:    models.RoleSystem,
			Content: memoryBlock(memories),
		})
	}

	out = append(out, history...)

	out = append(out, models.PromptMessage{
		Role:    models.RoleUser,
		Content: userMessage,
	})
	return out
}

// memoryBlock renders retrieved memories as a numbered list.
func memoryBlock(memories []models.MemoryHit) string {
	var sb strings.Builder
	sb.WriteString("Lembranças de conversas anteriores que podem ser relevantes:\n")
	for i, hit := range memories {
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, hit.Memory.Content))
		if source := hit.Memory.Metadata["source"]; source != "" {
			sb.WriteString(" (fonte: " + source + ")")
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}
