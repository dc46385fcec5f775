package toolkit

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/mcp"

	"github.com/richardwu/ai-chatbot/internal/log"
)

// Bridge connects to the remote MCP tool server at the start of each turn
// and merges its tools with the local ones into a fresh Catalog.
//
// Discovery failure fails the turn. A partial tool surface would let the
// model silently answer without tools the user expects it to have.
type Bridge struct {
	g         *genkit.Genkit
	serverURL string
	timeout   time.Duration
	logger    log.Logger
}

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	// ServerURL is the SSE endpoint of the MCP tool server.
	ServerURL string

	// Timeout bounds connection and tool discovery.
	Timeout time.Duration
}

// NewBridge creates a Bridge. The Genkit instance is required because
// remote tools are materialized through its registry.
func NewBridge(g *genkit.Genkit, cfg BridgeConfig, logger log.Logger) *Bridge {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Bridge{
		g:         g,
		serverURL: cfg.ServerURL,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Connect dials the tool server, discovers its tools, and returns a
// Catalog merging them with the given local tools. Local tools are
// registered last so they win name collisions. The caller owns the
// Catalog and must Close it when the turn ends.
func (b *Bridge) Connect(ctx context.Context, local *Catalog) (*Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	client, err := mcp.NewGenkitMCPClient(mcp.MCPClientOptions{
		Name:    "chatbot",
		Version: "1.0.0",
		SSE: &mcp.SSEConfig{
			BaseURL: b.serverURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to tool server %s: %w", b.serverURL, err)
	}

	remote, err := client.GetActiveTools(ctx, b.g)
	if err != nil {
		if derr := client.Disconnect(); derr != nil {
			b.logger.Warn("failed to disconnect tool server after discovery error", "error", derr)
		}
		return nil, fmt.Errorf("discovering tools from %s: %w", b.serverURL, err)
	}

	catalog := NewCatalog(b.logger, client.Disconnect)
	catalog.Add(remote...)
	if local != nil {
		for _, name := range local.Names() {
			t, _ := local.Lookup(name)
			catalog.Add(t)
		}
	}

	b.logger.Debug("tool catalog assembled",
		"remote_count", len(remote),
		"total_count", catalog.Len())
	return catalog, nil
}
