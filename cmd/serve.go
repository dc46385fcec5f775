package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/richardwu/ai-chatbot/internal/app"
	"github.com/richardwu/ai-chatbot/internal/config"
)

// runServe initializes and runs the chat API server until SIGINT or
// SIGTERM.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("setting up application: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing application", "error", err)
		}
	}()

	logger.Info("starting chat service",
		"version", AppVersion,
		"provider", cfg.Provider,
		"addr", cfg.Addr,
	)
	return a.ListenAndServe(ctx)
}
