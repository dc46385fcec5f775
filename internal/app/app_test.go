package app

import (
	"testing"
)

func TestClose_PartialApp(t *testing.T) {
	// Close must be safe on a zero App (setup failed before anything
	// was initialized).
	a := &App{}
	if err := a.Close(); err != nil {
		t.Errorf("Close() on empty app: %v", err)
	}

	called := false
	a = &App{otelCleanup: func() { called = true }}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if !called {
		t.Error("otel cleanup not invoked")
	}
}

func TestOllamaModelNames(t *testing.T) {
	names := ollamaModelNames(map[string]string{
		"chat-model":           "ollama/llama3.2",
		"chat-model-reasoning": "ollama/llama3.2",
		"title-model":          "gemma2",
	})

	if len(names) != 2 {
		t.Fatalf("names = %v, want 2 distinct", names)
	}
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	if !set["llama3.2"] || !set["gemma2"] {
		t.Errorf("names = %v", names)
	}
}
