// LocalMind - console chat client routing conversations to LLM providers.
//
// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/EfeTurkel/LocalMind-sub000/internal/config"
	"github.com/EfeTurkel/LocalMind-sub000/internal/keystore"
	"github.com/EfeTurkel/LocalMind-sub000/internal/model"
	"github.com/EfeTurkel/LocalMind-sub000/internal/orchestrator"
	"github.com/EfeTurkel/LocalMind-sub000/internal/provider"
	"github.com/EfeTurkel/LocalMind-sub000/internal/session"
	"github.com/EfeTurkel/LocalMind-sub000/internal/storage"
	"github.com/EfeTurkel/LocalMind-sub000/internal/telemetry"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "localmind: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closeLog := config.SetupLogger(cfg.Logging.File, config.ParseLevel(cfg.Logging.Level))
	defer closeLog()

	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	creds, err := loadCredentials(cfg)
	if err != nil {
		return err
	}

	sess := session.New(provider.Mode(cfg.DefaultMode), cfg.DefaultModel)
	tracker := telemetry.NewTracker(store)
	banner := &consoleBanner{}

	orch := orchestrator.New(orchestrator.Options{
		Session:     sess,
		Store:       store,
		Tracker:     tracker,
		Gate:        store,
		Banner:      banner,
		Logger:      logger,
		Credentials: creds,
		Persona: orchestrator.PersonaOptions{
			Avatar:             cfg.Persona.Avatar,
			Style:              cfg.Persona.Style,
			CustomInstructions: cfg.Persona.CustomInstructions,
		},
		GateEnabled: cfg.Support.GateEnabled,
		Incognito:   cfg.Incognito,
	})

	return repl(cfg, sess, orch, store, tracker)
}

// loadCredentials decrypts ENC:-prefixed keys via the keystore and leaves
// plaintext keys untouched.
func loadCredentials(cfg *config.Config) (provider.Credentials, error) {
	creds := provider.Credentials{
		Grok:      cfg.Providers.GrokKey,
		OpenAI:    cfg.Providers.OpenAIKey,
		Anthropic: cfg.Providers.AnthropicKey,
		Gemini:    cfg.Providers.GeminiKey,
	}

	anyEncrypted := keystore.IsEncrypted(creds.Grok) || keystore.IsEncrypted(creds.OpenAI) ||
		keystore.IsEncrypted(creds.Anthropic) || keystore.IsEncrypted(creds.Gemini)
	if !anyEncrypted {
		return creds, nil
	}

	passphrase := os.Getenv("LOCALMIND_PASSPHRASE")
	if passphrase == "" {
		return creds, errors.New("encrypted credentials present but LOCALMIND_PASSPHRASE is not set")
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return creds, err
	}
	ks, err := keystore.New(passphrase, filepath.Join(dir, "keystore.salt"))
	if err != nil {
		return creds, err
	}

	for _, field := range []*string{&creds.Grok, &creds.OpenAI, &creds.Anthropic, &creds.Gemini} {
		plain, err := ks.DecryptString(*field)
		if err != nil {
			return creds, fmt.Errorf("credential decryption failed: %w", err)
		}
		*field = plain
	}
	return creds, nil
}

// =============================================================================
// CONSOLE BANNER
// =============================================================================

// consoleBanner prints out-of-band notifications above the prompt.
type consoleBanner struct{}

func (b *consoleBanner) ExchangeReady(ex orchestrator.PendingExchange) {
	fmt.Printf("\n[banner] A response from %s arrived while you were away. Use /list to view it.\n", ex.ModelTag)
}

func (b *consoleBanner) SupportPromptDue() {
	fmt.Println("\n[banner] Daily support check is due.")
}

// =============================================================================
// REPL
// =============================================================================

func repl(cfg *config.Config, sess *session.Session, orch *orchestrator.Orchestrator,
	store *storage.Store, tracker *telemetry.Tracker) error {

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyFile := ""
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "input_history")
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	defer func() {
		if historyFile == "" {
			return
		}
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Printf("LocalMind %s — model %s, mode %s. Type /help for commands.\n",
		Version, sess.Model(), sess.Mode())

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := handleCommand(input, sess, store, tracker, cfg, orch); quit {
				return nil
			}
			continue
		}

		done, err := orch.Send(context.Background(), input, orchestrator.SourceUser)
		if err != nil {
			// Gated paths already appended their notice turns.
			printLastNotice(sess)
			continue
		}
		<-done
		printLastTurns(sess, 2)
	}
}

func handleCommand(input string, sess *session.Session, store *storage.Store,
	tracker *telemetry.Tracker, cfg *config.Config, orch *orchestrator.Orchestrator) bool {

	fields := strings.Fields(input)
	cmd := fields[0]
	arg := strings.TrimSpace(strings.TrimPrefix(input, cmd))

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(`Commands:
  /mode <name>     switch mode (general, coding, creative, academic, math, business)
  /model <name>    switch model
  /new             start a new conversation
  /list            list stored conversations
  /load <n>        load conversation n from the list
  /delete <n>      delete conversation n
  /pin <n>         pin conversation n
  /unpin <n>       unpin conversation n
  /search <text>   search stored conversations
  /export          print the current conversation as markdown
  /support         perform the daily support action
  /incognito       toggle incognito (no persistence)
  /stats           show usage statistics
  /quit            exit`)

	case "/mode":
		m := provider.Mode(arg)
		if !m.Valid() {
			fmt.Println("Unknown mode.")
			break
		}
		sess.SetMode(m)
		fmt.Printf("Mode set to %s.\n", m)

	case "/model":
		if arg == "" {
			fmt.Printf("Current model: %s\n", sess.Model())
			break
		}
		sess.SetModel(arg)
		fmt.Printf("Model set to %s.\n", arg)

	case "/new":
		sess.Clear()
		fmt.Println("Started a new conversation.")

	case "/list":
		listTranscripts(store)

	case "/load":
		withIndexedTranscript(store, arg, func(i int, t model.Transcript) {
			sess.Restore(t.Turns)
			for _, turn := range t.Turns {
				printTurn(turn)
			}
		})

	case "/delete":
		if n, err := strconv.Atoi(arg); err == nil {
			if err := store.DeleteAt(n - 1); err != nil {
				fmt.Printf("Delete failed: %v\n", err)
			} else {
				fmt.Println("Deleted.")
			}
		}

	case "/pin", "/unpin":
		withIndexedTranscript(store, arg, func(i int, t model.Transcript) {
			if err := store.SetPinned(t.Identity(), cmd == "/pin"); err != nil {
				fmt.Printf("Pin update failed: %v\n", err)
			} else {
				fmt.Println("Updated.")
			}
		})

	case "/search":
		results, err := store.SearchTranscripts(arg)
		if err != nil {
			fmt.Printf("Search failed: %v\n", err)
			break
		}
		for i, t := range results {
			fmt.Printf("%2d. %s — %s\n", i+1, t.CreatedAt().Format("2006-01-02 15:04"), t.Preview())
		}
		if len(results) == 0 {
			fmt.Println("No matches.")
		}

	case "/export":
		fmt.Println(model.Transcript{Turns: sess.Turns()}.ExportMarkdown())

	case "/support":
		state, err := store.PerformSupportGate()
		if err != nil {
			fmt.Printf("Support update failed: %v\n", err)
			break
		}
		fmt.Printf("Thanks for your support! Total: %d\n", state.Count)

	case "/incognito":
		cfg.Incognito = !cfg.Incognito
		orch.SetIncognito(cfg.Incognito)
		fmt.Printf("Incognito: %v\n", cfg.Incognito)

	case "/stats":
		p := tracker.Profile()
		fmt.Printf("Prompts: %d  Sent: %d chars  Received: %d chars  Avg latency: %.0f ms  Top model: %s\n",
			p.PromptCount, p.CharsSent, p.CharsReceived, p.AvgLatencyMs, p.MostUsedModel())

	default:
		fmt.Println("Unknown command. Type /help.")
	}
	return false
}

func listTranscripts(store *storage.Store) {
	all, err := store.LoadAll()
	if err != nil {
		fmt.Printf("Load failed: %v\n", err)
		return
	}
	pinned, _ := store.LoadPinnedIdentities()
	for i, t := range all {
		marker := "  "
		if pinned[t.Identity()] {
			marker = "* "
		}
		fmt.Printf("%s%2d. %s — %s\n", marker, i+1, t.CreatedAt().Format("2006-01-02 15:04"), t.Preview())
	}
	if len(all) == 0 {
		fmt.Println("No stored conversations.")
	}
}

func withIndexedTranscript(store *storage.Store, arg string, fn func(int, model.Transcript)) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Println("Expected a conversation number.")
		return
	}
	all, err := store.LoadAll()
	if err != nil {
		fmt.Printf("Load failed: %v\n", err)
		return
	}
	if n < 1 || n > len(all) {
		fmt.Println("No such conversation.")
		return
	}
	fn(n-1, all[n-1])
}

func printLastTurns(sess *session.Session, n int) {
	turns := sess.Turns()
	if len(turns) < n {
		n = len(turns)
	}
	for _, turn := range turns[len(turns)-n:] {
		if !turn.FromUser {
			printTurn(turn)
		}
	}
}

func printLastNotice(sess *session.Session) {
	turns := sess.Turns()
	if len(turns) == 0 {
		return
	}
	last := turns[len(turns)-1]
	if last.IsNotice() {
		printTurn(last)
	}
}

func printTurn(turn model.Turn) {
	switch {
	case turn.FromUser:
		fmt.Printf("you: %s\n", turn.Content)
	case turn.IsNotice():
		fmt.Printf("[notice] %s\n", turn.Content)
	default:
		fmt.Printf("%s: %s\n", turn.ModelTag, turn.Content)
	}
}
