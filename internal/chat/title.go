package chat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/richardwu/ai-chatbot/internal/log"
)

const (
	// titleTimeout bounds title generation; a slow model must not delay
	// the first turn.
	titleTimeout = 5 * time.Second

	// titleInputMaxRunes truncates pathological first messages before they
	// reach the title model.
	titleInputMaxRunes = 500

	// titleMaxRunes caps the stored title length.
	titleMaxRunes = 80
)

// TitleGenerator produces a chat title from the first user message.
// It never fails: model errors fall back to a truncated echo of the
// message, so chat creation cannot be blocked by the title model.
type TitleGenerator struct {
	g      *genkit.Genkit
	model  string
	logger log.Logger
}

// NewTitleGenerator creates a TitleGenerator using the given
// provider-qualified model.
func NewTitleGenerator(g *genkit.Genkit, model string, logger log.Logger) *TitleGenerator {
	if logger == nil {
		logger = log.NewNop()
	}
	return &TitleGenerator{g: g, model: model, logger: logger}
}

// Generate returns a title for a chat opened with userText.
func (t *TitleGenerator) Generate(ctx context.Context, userText string) string {
	input := truncateRunes(strings.TrimSpace(userText), titleInputMaxRunes)
	if input == "" {
		return "New chat"
	}

	ctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	resp, err := genkit.Generate(ctx, t.g,
		ai.WithModelName(t.model),
		ai.WithSystem(titlePrompt),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(input))),
	)
	if err != nil {
		t.logger.Warn("title generation failed, falling back to truncation", "error", err)
		return fallbackTitle(input)
	}

	title := sanitizeTitle(resp.Text())
	if title == "" {
		return fallbackTitle(input)
	}
	return title
}

// sanitizeTitle strips quoting and whitespace artifacts models like to add.
func sanitizeTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return truncateRunes(s, titleMaxRunes)
}

func fallbackTitle(input string) string {
	if i := strings.IndexByte(input, '\n'); i >= 0 {
		input = input[:i]
	}
	return truncateRunes(strings.TrimSpace(input), titleMaxRunes)
}

// truncateRunes cuts s to at most n runes without splitting a rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
