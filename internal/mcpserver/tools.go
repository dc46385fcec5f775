package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetQuoteInput defines the input schema for the getQuote tool.
type GetQuoteInput struct {
	Symbol string `json:"symbol" jsonschema:"The ticker symbol to quote, e.g. AAPL"`
}

// GetQuoteOutput is the structured quote payload.
type GetQuoteOutput struct {
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	AsOf     string  `json:"asOf"`
}

func (s *Server) registerGetQuote() error {
	inputSchema, err := jsonschema.For[GetQuoteInput](nil)
	if err != nil {
		return fmt.Errorf("schema for getQuote: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "getQuote",
		Description: "Get an indicative price quote for a ticker symbol.",
		InputSchema: inputSchema,
	}, s.getQuote)
	return nil
}

// getQuote returns a deterministic pseudo-quote. Development stub; the
// price is a stable function of the symbol so tests can assert on it.
func (s *Server) getQuote(_ context.Context, _ *mcp.CallToolRequest, in GetQuoteInput) (*mcp.CallToolResult, any, error) {
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "Error [invalid_arguments]: symbol is required"}},
			IsError: true,
		}, nil, nil
	}

	out := GetQuoteOutput{
		Symbol:   symbol,
		Price:    pseudoPrice(symbol),
		Currency: "USD",
		AsOf:     time.Now().UTC().Format(time.RFC3339),
	}

	text, err := json.Marshal(out)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal quote: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
	}, out, nil
}

// pseudoPrice maps a symbol to a stable price in [1, 501).
func pseudoPrice(symbol string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	cents := h.Sum32() % 50000
	return 1 + float64(cents)/100
}

// CreateDocumentInput defines the input schema for the createDocument tool.
type CreateDocumentInput struct {
	Title string `json:"title" jsonschema:"The document title"`
	Kind  string `json:"kind" jsonschema:"The document kind: text, code, or sheet"`
}

// CreateDocumentOutput is the structured creation receipt.
type CreateDocumentOutput struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

var documentKinds = map[string]bool{
	"text":  true,
	"code":  true,
	"sheet": true,
}

func (s *Server) registerCreateDocument() error {
	inputSchema, err := jsonschema.For[CreateDocumentInput](nil)
	if err != nil {
		return fmt.Errorf("schema for createDocument: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "createDocument",
		Description: "Create a document artifact of the given kind and return its id.",
		InputSchema: inputSchema,
	}, s.createDocument)
	return nil
}

// createDocument mints a document id. Development stub; nothing is
// stored, the id just gives the model something to reference.
func (s *Server) createDocument(_ context.Context, _ *mcp.CallToolRequest, in CreateDocumentInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Title) == "" {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "Error [invalid_arguments]: title is required"}},
			IsError: true,
		}, nil, nil
	}
	kind := in.Kind
	if kind == "" {
		kind = "text"
	}
	if !documentKinds[kind] {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error [invalid_arguments]: unknown document kind %q", in.Kind)}},
			IsError: true,
		}, nil, nil
	}

	out := CreateDocumentOutput{
		ID:    uuid.New().String(),
		Title: strings.TrimSpace(in.Title),
		Kind:  kind,
	}

	text, err := json.Marshal(out)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal document: %w", err)
	}
	s.logger.Debug("document stub created", "id", out.ID, "kind", out.Kind)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
	}, out, nil
}
