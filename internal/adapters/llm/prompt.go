package llm

import (
	"strings"

	"github.com/PabloGalante/legalai-pro/internal/domain"
)

// GeneralLegalTemplate is the prompt of the general legal assistant.
// {history} and {input} are substituted by Render.
const GeneralLegalTemplate = `You are a helpful legal assistant specializing in providing accurate legal information.

Guidelines:
- Provide clear, concise answers in point-wise format when appropriate.
- Focus on factual legal information.
- If the question is complex, break it down into understandable parts.
- Always recommend consulting with a qualified attorney for specific legal matters.
- Be professional and accurate in your responses.
- If you're unsure about something, acknowledge it rather than guessing.

Conversation history:
{history}

User: {input}

Legal Assistant:`

const (
	historyPlaceholder = "{history}"
	inputPlaceholder   = "{input}"
)

// Speaker labels used when history is rendered into the template.
const (
	UserLabel      = "User"
	AssistantLabel = "Legal Assistant"
)

// Template is a prompt with {history} and {input} placeholders.
type Template string

// Render substitutes the rendered history and the new user input in a single pass,
// so placeholders typed by the user are never expanded.
func (t Template) Render(history []domain.Turn, input string) string {
	r := strings.NewReplacer(historyPlaceholder, RenderHistory(history), inputPlaceholder, input)
	return r.Replace(string(t))
}

// RenderHistory renders one "Speaker: text" line per turn. Empty history renders as "".
func RenderHistory(history []domain.Turn) string {
	if len(history) == 0 {
		return ""
	}

	lines := make([]string, 0, len(history))
	for _, turn := range history {
		label := UserLabel
		if turn.Speaker == domain.RoleAssistant {
			label = AssistantLabel
		}
		lines = append(lines, label+": "+turn.Text)
	}
	return strings.Join(lines, "\n")
}
