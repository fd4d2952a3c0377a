package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/PabloGalante/legalai-pro/internal/app/assistant"
	"github.com/PabloGalante/legalai-pro/internal/bootstrap"
	"github.com/PabloGalante/legalai-pro/internal/config"
	"github.com/PabloGalante/legalai-pro/internal/domain"
	"github.com/PabloGalante/legalai-pro/internal/observability"
)

var demoQueries = []string{
	"What is the difference between bail and parole?",
	"How does contract law work?",
	"What are the key elements of a valid contract?",
	"What should I know about employment law?",
}

const chatSession domain.SessionID = "cli"

func main() {
	demo := flag.Bool("demo", false, "ask the sample questions and exit")
	session := flag.String("session", string(chatSession), "session id, only useful with a persistent storage backend")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr so they never mix with the conversation
	observability.Setup(os.Stderr, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := bootstrap.NewLLMClient(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "llm: %v\n", err)
		os.Exit(1)
	}
	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage: %v\n", err)
		os.Exit(1)
	}
	defer stores.Close()

	bot := assistant.NewBot(client, stores.History, domain.SessionID(*session), assistant.Options{
		MaxHistoryTurns: cfg.MaxHistoryTurns,
	})

	if *demo {
		runDemo(ctx, bot, os.Stdout)
		return
	}
	repl(ctx, bot, os.Stdin, os.Stdout)
}

func runDemo(ctx context.Context, bot *assistant.Bot, out io.Writer) {
	fmt.Fprintln(out, "Testing General Legal Bot...")
	for _, q := range demoQueries {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(out, "\nQ: %s\n", q)
		fmt.Fprintf(out, "A: %s\n", bot.Ask(ctx, q))
		fmt.Fprintln(out, strings.Repeat("-", 50))
	}
}

func repl(ctx context.Context, bot *assistant.Bot, in io.Reader, out io.Writer) {
	fmt.Fprintf(out, "LegalAI Pro legal assistant, session %s (/reset clears the conversation, /quit or Ctrl-C exits)\n", bot.SessionID())

	// stdin reader goroutine -> lines into channel
	scanner := bufio.NewScanner(in)
	inputCh := make(chan string)
	go func() {
		defer close(inputCh)
		for scanner.Scan() {
			select {
			case inputCh <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "\u001b[94mYou\u001b[0m: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nExiting...")
			return
		case l, ok := <-inputCh:
			if !ok {
				return
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/reset":
			if err := bot.Reset(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "Conversation history cleared.")
			continue
		}

		fmt.Fprintf(out, "\u001b[93mLegal Assistant\u001b[0m: %s\n", bot.Ask(ctx, line))
	}
}
