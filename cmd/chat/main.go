package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"topdivers/internal/chat"
	"topdivers/internal/config"
	"topdivers/internal/database"
	"topdivers/internal/events"
	"topdivers/internal/logging"
	"topdivers/internal/models"
	"topdivers/internal/notify"
	"topdivers/internal/worker"

	"github.com/rs/zerolog"
)

const (
	modeCustomer = "customer"
	modeAdmin    = "admin"
)

func main() {
	mode := flag.String("mode", modeCustomer, "chat role: customer or admin")
	configPath := flag.String("config", "", "config file (default $CONFIG_PATH or configs/config.yaml)")
	flag.Parse()

	if err := run(*mode, *configPath); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(mode, configPath string) error {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// the terminal belongs to the conversation
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := baseLogger.With().Str("component", "chat-"+mode).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retry := worker.RetryPolicy{
		MaxRetries:    cfg.Chat.MaxRetries,
		InitialDelay:  cfg.Chat.InitialDelay,
		MaxDelay:      cfg.Chat.MaxDelay,
		BackoffFactor: 2,
	}

	switch mode {
	case modeCustomer:
		db, err := database.NewDB(cfg.Database.Path, &logger)
		if err != nil {
			return err
		}
		defer db.Close()
		return runCustomer(ctx, cfg, db, retry, &logger, os.Stdin, os.Stdout)
	case modeAdmin:
		bus := events.NewEventBus()
		notifier, err := notify.NewFromToken(cfg.Telegram.BotToken, cfg.Telegram.StaffChatID, cfg.Telegram.Debug, logging.Component(&logger, "notify"))
		if err != nil {
			logger.Warn().Err(err).Msg("telegram init failed, continuing without staff notifications")
		} else if notifier.Enabled() {
			notifier.Subscribe(bus)
		}
		return runAdmin(ctx, cfg, bus, retry, &logger, os.Stdin, os.Stdout)
	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", mode, modeCustomer, modeAdmin)
	}
}

func runCustomer(ctx context.Context, cfg *config.Config, db *database.DB, retry worker.RetryPolicy, logger *zerolog.Logger, in io.Reader, out io.Writer) error {
	client := chat.NewCustomerClient(chat.CustomerOptions{
		BaseURL: cfg.WSURL(),
		Store:   db,
		Retry:   retry,
		Logger:  logger,
		OnMessage: func(m models.ChatMessage) {
			if m.Sender != models.SenderCustomer {
				fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Format("15:04"), m.Sender, m.Text)
			}
		},
		OnTyping: func(typing bool) {
			if typing {
				fmt.Fprintln(out, "... agent is typing")
			}
		},
		OnStatus: func(s chat.Status) {
			fmt.Fprintf(out, "* %s\n", s)
		},
		OnClosed: func() {
			fmt.Fprintln(out, "* the agent closed the conversation")
		},
	})

	if err := client.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to restore chat session")
	}
	for _, m := range client.Messages() {
		fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Format("15:04"), m.Sender, m.Text)
	}

	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	lines := readLines(ctx, in)
	for {
		select {
		case err := <-done:
			return ignoreCanceled(err)
		case line, ok := <-lines:
			if !ok || line == "/quit" {
				_ = client.Close()
				return ignoreCanceled(<-done)
			}
			if line == "/status" {
				printCustomerStatus(out, client)
				continue
			}
			if err := client.Send(line); err != nil && !errors.Is(err, chat.ErrEmptyMessage) {
				fmt.Fprintf(out, "! not sent: %v\n", err)
			}
		}
	}
}

func runAdmin(ctx context.Context, cfg *config.Config, bus *events.EventBus, retry worker.RetryPolicy, logger *zerolog.Logger, in io.Reader, out io.Writer) error {
	client := chat.NewAdminClient(chat.AdminOptions{
		BaseURL: cfg.WSURL(),
		Token:   cfg.Chat.AdminToken,
		Retry:   retry,
		Logger:  logger,
		Events:  bus,
		OnSession: func(s models.ChatSession) {
			fmt.Fprintf(out, "* session %s (%s) %s\n", s.ID, s.Status, s.IP)
		},
		OnMessage: func(m models.ChatMessage) {
			fmt.Fprintf(out, "[%s] %s@%s: %s\n", m.Timestamp.Format("15:04"), m.Sender, m.SessionID, m.Text)
		},
		OnStatus: func(s chat.Status) {
			fmt.Fprintf(out, "* %s\n", s)
		},
	})

	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	lines := readLines(ctx, in)
	for {
		select {
		case err := <-done:
			return ignoreCanceled(err)
		case line, ok := <-lines:
			if !ok || line == "/quit" {
				_ = client.Close()
				return ignoreCanceled(<-done)
			}
			handleAdminLine(client, line, out)
		}
	}
}

func handleAdminLine(client *chat.AdminClient, line string, out io.Writer) {
	switch {
	case line == "/sessions":
		for _, s := range client.Sessions() {
			fmt.Fprintf(out, "  %s %s messages=%d\n", s.ID, s.Status, len(s.Messages))
		}
	case strings.HasPrefix(line, "/session "):
		id, text, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "/session ")), " ")
		if !ok || id == "" {
			fmt.Fprintln(out, "usage: /session <id> <text>")
			return
		}
		if err := client.Send(id, text); err != nil {
			fmt.Fprintf(out, "! not sent: %v\n", err)
		}
	case line == "":
	default:
		fmt.Fprintln(out, "commands: /sessions, /session <id> <text>, /quit")
	}
}

// readLines streams trimmed stdin lines until EOF or ctx is done.
func printCustomerStatus(out io.Writer, client *chat.CustomerClient) {
	session := client.SessionID()
	if session == "" {
		session = "none yet"
	}
	fmt.Fprintf(out, "* %s, session %s, active %t, %d messages\n", client.Status(), session, client.Active(), len(client.Messages()))
	if client.Typing() {
		fmt.Fprintln(out, "... agent is typing")
	}
}

func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
