package toolkit

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/richardwu/ai-chatbot/internal/log"
)

type echoOutput struct {
	Origin string `json:"origin"`
}

// defineEcho registers a trivial tool on its own Genkit instance so tests
// can mint same-named tools with distinguishable behavior.
func defineEcho(t *testing.T, name, origin string) ai.Tool {
	t.Helper()
	g := genkit.Init(context.Background())
	return genkit.DefineTool(g, name, "echoes its origin",
		func(ctx *ai.ToolContext, _ struct{}) (echoOutput, error) {
			return echoOutput{Origin: origin}, nil
		})
}

func TestCatalog_AddAndLookup(t *testing.T) {
	c := NewCatalog(log.NewNop(), nil)
	c.Add(defineEcho(t, "alpha", "a"), defineEcho(t, "beta", "b"))

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Lookup("alpha"); !ok {
		t.Error("Lookup(alpha) missing")
	}
	if _, ok := c.Lookup("gamma"); ok {
		t.Error("Lookup(gamma) should miss")
	}
}

func TestCatalog_LastRegistrationWins(t *testing.T) {
	remote := defineEcho(t, "getWeather", "remote")
	local := defineEcho(t, "getWeather", "local")

	c := NewCatalog(log.NewNop(), nil)
	c.Add(remote)
	c.Add(defineEcho(t, "other", "remote"))
	c.Add(local)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (shadowing must not grow the catalog)", c.Len())
	}

	got, ok := c.Lookup("getWeather")
	if !ok {
		t.Fatal("Lookup(getWeather) missing")
	}
	raw, err := got.RunRaw(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("RunRaw() error: %v", err)
	}
	out, ok := raw.(echoOutput)
	if !ok {
		t.Fatalf("RunRaw() returned %T", raw)
	}
	if out.Origin != "local" {
		t.Errorf("effective tool origin = %q, want local", out.Origin)
	}
}

func TestCatalog_RefsPreserveOrder(t *testing.T) {
	c := NewCatalog(log.NewNop(), nil)
	c.Add(defineEcho(t, "one", ""), defineEcho(t, "two", ""), defineEcho(t, "three", ""))
	// Shadowing "two" must keep its original position.
	c.Add(defineEcho(t, "two", "replacement"))

	want := []string{"one", "two", "three"}
	refs := c.Refs()
	if len(refs) != len(want) {
		t.Fatalf("got %d refs, want %d", len(refs), len(want))
	}
	for i, name := range c.Names() {
		if name != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, name, want[i])
		}
	}
}

func TestCatalog_CloseOnce(t *testing.T) {
	calls := 0
	wantErr := errors.New("disconnect failed")
	c := NewCatalog(log.NewNop(), func() error {
		calls++
		return wantErr
	})

	for range 3 {
		if err := c.Close(); !errors.Is(err, wantErr) {
			t.Errorf("Close() = %v, want %v", err, wantErr)
		}
	}
	if calls != 1 {
		t.Errorf("closeFn called %d times, want 1", calls)
	}
}

func TestCatalog_CloseWithoutCloser(t *testing.T) {
	c := NewCatalog(log.NewNop(), nil)
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestToolError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ToolError
		want string
	}{
		{"nil", nil, "<nil ToolError>"},
		{"empty", &ToolError{}, "<empty ToolError>"},
		{"type only", &ToolError{ErrorType: "UpstreamError"}, "UpstreamError"},
		{"message only", &ToolError{Message: "boom"}, "boom"},
		{"both", &ToolError{ErrorType: "UpstreamError", Message: "boom"}, "UpstreamError: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
