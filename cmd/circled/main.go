package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mentehub/circled/internal/anthropic"
	"github.com/mentehub/circled/internal/api"
	"github.com/mentehub/circled/internal/clock"
	"github.com/mentehub/circled/internal/config"
	"github.com/mentehub/circled/internal/events"
	"github.com/mentehub/circled/internal/facilitator"
	"github.com/mentehub/circled/internal/participants"
	"github.com/mentehub/circled/internal/session"
	"github.com/mentehub/circled/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("circled starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Anthropic client (optional — sessions run on fallback text without it)
	var llm *anthropic.Client
	var gen facilitator.Generator
	if cfg.AnthropicAPIKey != "" {
		llm = anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		gen = guideGenerator{llm}
		slog.Info("anthropic client ready", "model", llm.Model())
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set — facilitator will use fallback text only")
	}

	// Participant pool
	pool := participants.DefaultPool()
	if cfg.ParticipantsFile != "" {
		loaded, err := participants.LoadPool(cfg.ParticipantsFile)
		if err != nil {
			slog.Error("failed to load participants file", "path", cfg.ParticipantsFile, "error", err)
			os.Exit(1)
		}
		pool = loaded
		slog.Info("participant pool loaded", "path", cfg.ParticipantsFile, "count", len(pool))
	}

	// Event bus (optional)
	var bus *events.Publisher
	if cfg.NatsURL != "" {
		var err error
		bus, err = events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set — running without event bus")
	}

	// Session archive (optional)
	var archive *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		archive, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer archive.Close()
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set — completed sessions will not be archived")
	}

	// Session manager
	manager := session.NewManager(clock.Real(), gen, pool, bus, archive, slog.Default())

	// HTTP API
	srv := api.NewServer(cfg.Port, llm, manager, bus, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("circled ready", "port", cfg.Port, "participants", len(pool))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	manager.StopAll()
	cancel()
	slog.Info("circled stopped")
}

// guideGenerator adapts the Anthropic client to the dispatcher's Generator.
type guideGenerator struct {
	llm *anthropic.Client
}

func (g guideGenerator) Generate(ctx context.Context, prompt string, sc facilitator.Context) (string, error) {
	result, err := g.llm.GenerateGuideText(ctx, prompt, sc)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
