// Package offline is the canned fallback used when no provider API key
// is configured and the operator explicitly opts in. It pairs simple
// keyword heuristics with a small pool of pre-written replies and plugs
// into the pipeline as a completion driver whose payload is
// choices-shaped, so extraction and the rest of the flow are unchanged.
package offline

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/lailabot/laila/pkg/models"
)

// Driver implements contracts.CompletionDriver without network access.
type Driver struct{}

// NewDriver creates the offline responder.
func NewDriver() *Driver { return &Driver{} }

func (d *Driver) Kind() string { return "offline" }

// topic groups keywords with its reply pool.
type topic struct {
	keywords []string
	replies  []string
}

var topics = []topic{
	{
		keywords: []string{"proposta", "oferta", "emprego", "vaga", "salário"},
		replies: []string{
			"Antes de decidir, liste o que essa proposta muda na sua rotina — e o que ela custa. O que pesa mais para você agora?",
			"Proposta boa no papel nem sempre é boa na prática. O que seu instinto disse quando você a leu pela primeira vez?",
		},
	},
	{
		keywords: []string{"trabalho", "chefe", "carreira", "projeto"},
		replies: []string{
			"Parece que o trabalho está ocupando bastante espaço na sua cabeça. O que seria um dia bom para você nessa situação?",
			"Vamos separar o que depende de você do que não depende. Por onde quer começar?",
		},
	},
	{
		keywords: []string{"amor", "relacionamento", "namoro", "casamento"},
		replies: []string{
			"Relações raramente são simples. O que você gostaria que a outra pessoa entendesse e ainda não disse?",
			"Antes de qualquer conversa difícil, vale saber o que você quer dela. O que seria um bom desfecho para você?",
		},
	},
	{
		keywords: []string{"medo", "ansiedade", "ansioso", "preocupado", "preocupada"},
		replies: []string{
			"Respira. Qual é a menor parte desse problema que você consegue resolver hoje?",
			"Preocupação costuma misturar o provável com o possível. O que de fato já aconteceu, e o que é cenário?",
		},
	},
}

var defaultReplies = []string{
	"Conte-me um pouco mais. O que torna isso importante para você agora?",
	"Entendi. Se você tivesse que resumir a questão em uma frase, qual seria?",
	"Faz sentido. O que você já tentou, e o que aconteceu?",
}

// Complete matches keywords against the last user block and returns a
// canned reply wrapped in a choices-shaped payload. Deterministic for a
// given message, so conversations replay identically in tests.
func (d *Driver) Complete(_ context.Context, prompt []models.PromptMessage, _ models.CompletionOptions) (models.RawResponse, error) {
	message := lastUserMessage(prompt)
	reply := pickReply(message)

	return models.RawResponse{
		"choices": []any{
			map[string]any{
				"message": map[string]any{"role": models.RoleAssistant, "content": reply},
			},
		},
		"model": "laila-offline",
	}, nil
}

func lastUserMessage(prompt []models.PromptMessage) string {
	for i := len(prompt) - 1; i >= 0; i-- {
		if prompt[i].Role == models.RoleUser {
			return prompt[i].Content
		}
	}
	return ""
}

func pickReply(message string) string {
	lower := strings.ToLower(message)
	for _, t := range topics {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				return t.replies[stableIndex(message, len(t.replies))]
			}
		}
	}
	return defaultReplies[stableIndex(message, len(defaultReplies))]
}

// stableIndex hashes the message so the same input always picks the same
// reply from a pool.
func stableIndex(message string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(message))
	return int(h.Sum32() % uint32(n))
}
