package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PabloGalante/legalai-pro/internal/adapters/llm"
	"github.com/PabloGalante/legalai-pro/internal/domain"
	"github.com/PabloGalante/legalai-pro/internal/observability"
)

// FallbackReply is returned by Ask whenever the completion cannot be produced.
const FallbackReply = "I apologize, but I'm experiencing technical difficulties. Please try again later or consult with a qualified attorney for your legal question."

// ErrEmptyReply is returned by AskErr when the model answers with blank text.
var ErrEmptyReply = errors.New("empty reply from model")

type Options struct {
	// Template must contain {history} and {input}. Defaults to the general legal prompt.
	Template llm.Template
	// MaxHistoryTurns is the number of user/assistant exchanges kept.
	// Zero or negative keeps the whole history.
	MaxHistoryTurns int
	// Fallback overrides FallbackReply.
	Fallback string
}

// Bot is the legal assistant for one conversation.
// Calls on the same Bot are serialized, so concurrent callers never interleave history.
type Bot struct {
	llm       domain.LLMClient
	history   domain.HistoryStore
	sessionID domain.SessionID
	template  llm.Template
	maxTurns  int
	fallback  string
	now       func() time.Time

	mu sync.Mutex
}

func NewBot(client domain.LLMClient, history domain.HistoryStore, sessionID domain.SessionID, opts Options) *Bot {
	b := &Bot{
		llm:       client,
		history:   history,
		sessionID: sessionID,
		template:  opts.Template,
		maxTurns:  opts.MaxHistoryTurns,
		fallback:  opts.Fallback,
		now:       time.Now,
	}
	if b.template == "" {
		b.template = llm.GeneralLegalTemplate
	}
	if b.fallback == "" {
		b.fallback = FallbackReply
	}
	return b
}

func (b *Bot) SessionID() domain.SessionID {
	return b.sessionID
}

// Ask returns the assistant's reply to query. It never fails: remote errors are logged
// and replaced with the fallback text.
func (b *Bot) Ask(ctx context.Context, query string) string {
	reply, err := b.AskErr(ctx, query)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("error in general legal bot",
			"session_id", b.sessionID,
			"error", err,
		)
		return b.fallback
	}
	return reply
}

// AskErr is Ask without the fallback. History only changes when a reply is returned.
func (b *Bot) AskErr(ctx context.Context, query string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	log := observability.LoggerFromContext(ctx).With("session_id", b.sessionID)

	history, err := b.history.Turns(ctx, b.sessionID)
	if err != nil {
		return "", fmt.Errorf("loading history: %w", err)
	}

	prompt := b.template.Render(history, query)
	asked := b.now()

	log.Debug("sending prompt", "history_turns", len(history), "prompt_len", len(prompt))

	raw, err := b.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}

	reply := strings.TrimSpace(raw)
	if reply == "" {
		return "", ErrEmptyReply
	}

	err = b.history.AppendTurns(ctx, b.sessionID,
		domain.Turn{Speaker: domain.RoleUser, Text: query, CreatedAt: asked},
		domain.Turn{Speaker: domain.RoleAssistant, Text: reply, CreatedAt: b.now()},
	)
	if err != nil {
		// The reply is still good, only the memory of it is lost
		log.Warn("failed to save exchange", "error", err)
		return reply, nil
	}

	if b.maxTurns > 0 {
		if err := b.history.TrimTurns(ctx, b.sessionID, 2*b.maxTurns); err != nil {
			log.Warn("failed to trim history", "error", err)
		}
	}

	return reply, nil
}

// Reset clears the whole conversation history.
func (b *Bot) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.history.ClearTurns(ctx, b.sessionID); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// History returns the retained turns, oldest first.
func (b *Bot) History(ctx context.Context) ([]domain.Turn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.history.Turns(ctx, b.sessionID)
}
