package mcpserver

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/richardwu/ai-chatbot/internal/log"
)

// connectTestServer creates the tool provider and an SDK client
// connected via in-memory transports. Returns the client session.
func connectTestServer(t *testing.T) *mcp.ClientSession {
	t.Helper()

	server, err := New(Config{Name: "test-tools", Version: "0.0.1"}, log.NewNop())
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server.Connect() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client.Connect() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Version: "1"}, nil); err == nil {
		t.Error("New() without name should fail")
	}
	if _, err := New(Config{Name: "x"}, nil); err == nil {
		t.Error("New() without version should fail")
	}
}

func TestListTools(t *testing.T) {
	session := connectTestServer(t)

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() unexpected error: %v", err)
	}

	var names []string
	for _, tool := range result.Tools {
		if tool.Description == "" {
			t.Errorf("tool %q has empty description", tool.Name)
		}
		names = append(names, tool.Name)
	}
	sort.Strings(names)

	wantNames := []string{"createDocument", "getQuote"}
	if len(names) != len(wantNames) {
		t.Fatalf("ListTools() returned %v, want %v", names, wantNames)
	}
	for i, got := range names {
		if got != wantNames[i] {
			t.Errorf("tool[%d] = %q, want %q", i, got, wantNames[i])
		}
	}
}

func TestCallTool_GetQuote(t *testing.T) {
	session := connectTestServer(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "getQuote",
		Arguments: map[string]any{"symbol": "aapl"},
	})
	if err != nil {
		t.Fatalf("CallTool(getQuote) unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("CallTool(getQuote) returned error result: %v", result.Content)
	}

	textContent, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] type = %T, want *mcp.TextContent", result.Content[0])
	}

	var quote GetQuoteOutput
	if err := json.Unmarshal([]byte(textContent.Text), &quote); err != nil {
		t.Fatalf("parsing quote JSON: %v\ntext: %s", err, textContent.Text)
	}
	if quote.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", quote.Symbol)
	}
	if quote.Price < 1 {
		t.Errorf("price = %v, want >= 1", quote.Price)
	}
	// Same symbol always quotes the same price.
	if quote.Price != pseudoPrice("AAPL") {
		t.Errorf("price = %v not deterministic", quote.Price)
	}
}

func TestCallTool_GetQuote_MissingSymbol(t *testing.T) {
	session := connectTestServer(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "getQuote",
		Arguments: map[string]any{"symbol": "  "},
	})
	if err != nil {
		t.Fatalf("CallTool(getQuote) unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("blank symbol should yield an error result")
	}
}

func TestCallTool_CreateDocument(t *testing.T) {
	session := connectTestServer(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "createDocument",
		Arguments: map[string]any{"title": "Q3 notes", "kind": "text"},
	})
	if err != nil {
		t.Fatalf("CallTool(createDocument) unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("CallTool(createDocument) returned error result: %v", result.Content)
	}

	textContent, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] type = %T, want *mcp.TextContent", result.Content[0])
	}
	var doc CreateDocumentOutput
	if err := json.Unmarshal([]byte(textContent.Text), &doc); err != nil {
		t.Fatalf("parsing document JSON: %v", err)
	}
	if doc.ID == "" || doc.Title != "Q3 notes" || doc.Kind != "text" {
		t.Errorf("document = %+v", doc)
	}
}

func TestCallTool_CreateDocument_BadKind(t *testing.T) {
	session := connectTestServer(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "createDocument",
		Arguments: map[string]any{"title": "x", "kind": "video"},
	})
	if err != nil {
		t.Fatalf("CallTool(createDocument) unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("unknown kind should yield an error result")
	}
}
