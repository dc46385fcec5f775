// Package mcpserver is the development tool-provider: an MCP server
// exposing sample tools over SSE so a local deployment has a provider
// at the endpoint the tool bridge expects.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/richardwu/ai-chatbot/internal/log"
)

// Config holds tool-provider server configuration.
type Config struct {
	Name    string
	Version string
}

// Server wraps the MCP SDK server with sample tools registered.
type Server struct {
	mcpServer *mcp.Server
	logger    log.Logger
}

// New creates a tool-provider server.
func New(cfg Config, logger log.Logger) (*Server, error) {
	if cfg.Name == "" {
		return nil, errors.New("server name is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("server version is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{mcpServer: mcpServer, logger: logger}
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return s, nil
}

// Run serves MCP on the given transport. This is a blocking call.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// Handler returns an SSE http.Handler speaking the MCP protocol.
func (s *Server) Handler() http.Handler {
	return mcp.NewSSEHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// ListenAndServe serves the SSE endpoint at /sse on addr until ctx is
// canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/sse", s.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("tool provider listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down tool provider: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("tool provider server: %w", err)
	}
}

func (s *Server) registerTools() error {
	if err := s.registerGetQuote(); err != nil {
		return err
	}
	return s.registerCreateDocument()
}
