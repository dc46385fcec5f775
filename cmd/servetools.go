package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/richardwu/ai-chatbot/internal/config"
	"github.com/richardwu/ai-chatbot/internal/mcpserver"
)

// defaultToolsAddr matches the default tool_server_url the chat server
// discovers against.
const defaultToolsAddr = "localhost:3001"

// runServeTools runs the dev MCP tool-provider server until SIGINT or
// SIGTERM.
func runServeTools() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg)

	addr := os.Getenv("CHATBOT_TOOLS_ADDR")
	if addr == "" {
		addr = defaultToolsAddr
	}

	srv, err := mcpserver.New(mcpserver.Config{
		Name:    "ai-chatbot-tools",
		Version: AppVersion,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating tool provider: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return srv.ListenAndServe(ctx, addr)
}
