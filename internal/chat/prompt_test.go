package chat

import (
	"strings"
	"testing"
)

func TestSystemPromptFor(t *testing.T) {
	const wallet = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

	tests := []struct {
		name    string
		alias   string
		wallet  string
		want    []string
		notWant []string
	}{
		{
			name:  "standard model gets tool guidance",
			alias: "chat-model",
			want:  []string{basePrompt, "call it instead of guessing"},
		},
		{
			name:    "reasoning model skips tool guidance",
			alias:   "chat-model-reasoning",
			want:    []string{basePrompt},
			notWant: []string{"call it instead of guessing"},
		},
		{
			name:   "selected wallet is announced",
			alias:  "chat-model",
			wallet: wallet,
			want:   []string{wallet},
		},
		{
			name:    "no wallet line without a selection",
			alias:   "chat-model",
			notWant: []string{"wallet"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := systemPromptFor(tt.alias, tt.wallet)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("prompt missing %q:\n%s", w, got)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(got, nw) {
					t.Errorf("prompt should not contain %q:\n%s", nw, got)
				}
			}
		})
	}
}
