package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/legalai-pro/internal/adapters/llm"
	"github.com/PabloGalante/legalai-pro/internal/adapters/storage/memory"
	"github.com/PabloGalante/legalai-pro/internal/app/assistant"
)

func newTestBot() *assistant.Bot {
	return assistant.NewBot(llm.NewMockLLM(), memory.NewHistoryStore(), chatSession, assistant.Options{})
}

func TestREPL(t *testing.T) {
	ctx := context.Background()
	bot := newTestBot()
	in := strings.NewReader("What is bail?\n\n/reset\nWhat is parole?\n/quit\nnever asked\n")
	var out bytes.Buffer

	repl(ctx, bot, in, &out)

	assert.True(t, strings.HasPrefix(out.String(), "LegalAI Pro legal assistant, session cli "))
	assert.Contains(t, out.String(), `You asked: "What is bail?"`)
	assert.Contains(t, out.String(), "Conversation history cleared.")
	assert.NotContains(t, out.String(), "never asked")

	history, err := bot.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2, "only the exchange after /reset remains")
	assert.Equal(t, "What is parole?", history[0].Text)
}

func TestREPLStopsAtEOF(t *testing.T) {
	var out bytes.Buffer
	repl(context.Background(), newTestBot(), strings.NewReader("hello"), &out)
	assert.Contains(t, out.String(), `You asked: "hello"`)
}

func TestRunDemo(t *testing.T) {
	ctx := context.Background()
	bot := newTestBot()
	var out bytes.Buffer

	runDemo(ctx, bot, &out)

	for _, q := range demoQueries {
		assert.Contains(t, out.String(), "Q: "+q)
	}

	history, err := bot.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 2*len(demoQueries))
}
