package assistant_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/legalai-pro/internal/adapters/llm"
	"github.com/PabloGalante/legalai-pro/internal/adapters/storage/memory"
	"github.com/PabloGalante/legalai-pro/internal/app/assistant"
	"github.com/PabloGalante/legalai-pro/internal/domain"
)

// testTemplate keeps prompts easy to inspect.
const testTemplate = llm.Template("H:{history}|Q:{input}")

// fakeLLM answers "answer: <query>" and records every prompt.
type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	err     error
	reply   string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	q := prompt[strings.LastIndex(prompt, "|Q:")+3:]
	return "  answer: " + q + "\n", nil
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[len(f.prompts)-1]
}

type brokenHistory struct {
	*memory.HistoryStore
}

func (brokenHistory) Turns(context.Context, domain.SessionID) ([]domain.Turn, error) {
	return nil, errors.New("store down")
}

func newBot(client domain.LLMClient, opts assistant.Options) (*assistant.Bot, *memory.HistoryStore) {
	store := memory.NewHistoryStore()
	if opts.Template == "" {
		opts.Template = testTemplate
	}
	return assistant.NewBot(client, store, "s1", opts), store
}

func TestAskReturnsTrimmedReplyAndRecordsExchange(t *testing.T) {
	ctx := context.Background()
	bot, _ := newBot(&fakeLLM{}, assistant.Options{})

	reply := bot.Ask(ctx, "What is bail?")
	assert.Equal(t, "answer: What is bail?", reply)

	history, err := bot.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.Turn{Speaker: domain.RoleUser, Text: "What is bail?", CreatedAt: history[0].CreatedAt}, history[0])
	assert.Equal(t, domain.RoleAssistant, history[1].Speaker)
	assert.Equal(t, "answer: What is bail?", history[1].Text)
	assert.False(t, history[1].CreatedAt.Before(history[0].CreatedAt))
}

func TestAskThreadsHistoryIntoPrompt(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLLM{}
	bot, _ := newBot(fake, assistant.Options{})

	bot.Ask(ctx, "first")
	assert.Equal(t, "H:|Q:first", fake.lastPrompt())

	bot.Ask(ctx, "second")
	assert.Equal(t, "H:User: first\nLegal Assistant: answer: first|Q:second", fake.lastPrompt())
}

func TestHistoryKeepsEveryExchangeInOrder(t *testing.T) {
	ctx := context.Background()
	bot, _ := newBot(&fakeLLM{}, assistant.Options{})

	for i := 0; i < 4; i++ {
		bot.Ask(ctx, fmt.Sprintf("q%d", i))
	}

	history, err := bot.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 8)
	for i := 0; i < 4; i++ {
		assert.Equal(t, fmt.Sprintf("q%d", i), history[2*i].Text)
		assert.Equal(t, fmt.Sprintf("answer: q%d", i), history[2*i+1].Text)
	}
}

func TestAskFallbackOnRemoteFailure(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLLM{err: errors.New("quota exceeded")}
	bot, _ := newBot(fake, assistant.Options{})

	reply := bot.Ask(ctx, "What is parole?")
	assert.Equal(t, assistant.FallbackReply, reply)

	history, err := bot.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history, "failed exchanges are not remembered")
}

func TestAskErrWrapsRemoteFailure(t *testing.T) {
	remote := errors.New("unauthenticated")
	bot, _ := newBot(&fakeLLM{err: remote}, assistant.Options{})

	_, err := bot.AskErr(context.Background(), "q")
	assert.ErrorIs(t, err, remote)
}

func TestAskFallbackOnBlankReply(t *testing.T) {
	bot, _ := newBot(&fakeLLM{reply: "   \n "}, assistant.Options{})

	assert.Equal(t, assistant.FallbackReply, bot.Ask(context.Background(), "q"))

	_, err := bot.AskErr(context.Background(), "q")
	assert.ErrorIs(t, err, assistant.ErrEmptyReply)
}

func TestAskFallbackOnHistoryFailure(t *testing.T) {
	fake := &fakeLLM{}
	bot := assistant.NewBot(fake, brokenHistory{memory.NewHistoryStore()}, "s1", assistant.Options{})

	assert.Equal(t, assistant.FallbackReply, bot.Ask(context.Background(), "q"))
	assert.Empty(t, fake.prompts, "no remote call without history")
}

func TestCustomFallback(t *testing.T) {
	bot, _ := newBot(&fakeLLM{err: errors.New("down")}, assistant.Options{Fallback: "try later"})
	assert.Equal(t, "try later", bot.Ask(context.Background(), "q"))
}

func TestResetStartsNewSessionFraming(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLLM{}
	bot, _ := newBot(fake, assistant.Options{})

	bot.Ask(ctx, "first")
	bot.Ask(ctx, "second")
	require.NoError(t, bot.Reset(ctx))

	history, err := bot.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)

	bot.Ask(ctx, "after reset")
	assert.Equal(t, "H:|Q:after reset", fake.lastPrompt())
}

func TestHistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLLM{}
	bot, _ := newBot(fake, assistant.Options{MaxHistoryTurns: 2})

	for i := 0; i < 5; i++ {
		bot.Ask(ctx, fmt.Sprintf("q%d", i))
	}

	history, err := bot.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "q3", history[0].Text)
	assert.Equal(t, "answer: q4", history[3].Text)

	bot.Ask(ctx, "next")
	assert.True(t, strings.HasPrefix(fake.lastPrompt(), "H:User: q3\n"))
}

func TestNonPositiveBoundKeepsEverything(t *testing.T) {
	for _, bound := range []int{0, -1} {
		t.Run(fmt.Sprintf("bound=%d", bound), func(t *testing.T) {
			ctx := context.Background()
			bot, _ := newBot(&fakeLLM{}, assistant.Options{MaxHistoryTurns: bound})

			for i := 0; i < 25; i++ {
				bot.Ask(ctx, fmt.Sprintf("q%d", i))
			}

			history, err := bot.History(ctx)
			require.NoError(t, err)
			require.Len(t, history, 50)
			assert.Equal(t, "q0", history[0].Text)
		})
	}
}

func TestConcurrentAsksDoNotInterleave(t *testing.T) {
	ctx := context.Background()
	bot, _ := newBot(&fakeLLM{}, assistant.Options{MaxHistoryTurns: -1})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bot.Ask(ctx, fmt.Sprintf("q%d", i))
		}(i)
	}
	wg.Wait()

	history, err := bot.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 40)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, domain.RoleUser, history[i].Speaker)
		assert.Equal(t, "answer: "+history[i].Text, history[i+1].Text)
	}
}

func TestDefaultTemplateIsGeneralLegalPrompt(t *testing.T) {
	fake := &fakeLLM{reply: "ok"}
	bot := assistant.NewBot(fake, memory.NewHistoryStore(), "s1", assistant.Options{})

	bot.Ask(context.Background(), "What is a tort?")
	assert.Contains(t, fake.lastPrompt(), "You are a helpful legal assistant")
	assert.True(t, strings.HasSuffix(fake.lastPrompt(), "User: What is a tort?\n\nLegal Assistant:"))
}
