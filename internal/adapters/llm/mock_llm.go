package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM answers without calling any remote service. Useful for local dev.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Complete echoes the last "User:" line of the prompt.
func (m *MockLLM) Complete(_ context.Context, prompt string) (string, error) {
	question := prompt
	if i := strings.LastIndex(prompt, "\n"+UserLabel+": "); i >= 0 {
		question = prompt[i+len(UserLabel)+3:]
		if j := strings.Index(question, "\n"); j >= 0 {
			question = question[:j]
		}
	}
	return fmt.Sprintf("You asked: %q. This is general legal information only; please consult a qualified attorney about your specific situation.", question), nil
}
