package chat

import (
	"fmt"
	"strings"
)

// basePrompt frames the assistant. Kept short: tool descriptions carry
// the per-tool guidance, and long prompts eat the context window.
const basePrompt = `You are a friendly assistant. Keep your responses concise and helpful.`

// toolPrompt nudges standard models toward tool use. Reasoning models
// plan their own tool calls, so they skip it.
const toolPrompt = `When a tool can answer the user's question, call it instead of guessing.
When you used tools, ground your answer in their output.`

// reasoningAliasSuffix marks client model aliases whose backing models
// reason before answering.
const reasoningAliasSuffix = "-reasoning"

// systemPromptFor assembles the turn's system prompt from the selected
// model alias and, when one is selected, the user's wallet address.
func systemPromptFor(alias, wallet string) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	if !strings.HasSuffix(alias, reasoningAliasSuffix) {
		b.WriteString("\n\n")
		b.WriteString(toolPrompt)
	}
	if wallet != "" {
		fmt.Fprintf(&b, "\n\nThe user's selected wallet address is %s. When a tool takes a wallet address and the user does not name one, use this address.", wallet)
	}
	return b.String()
}

// titlePrompt asks for a conversation title from the first user message.
const titlePrompt = `Generate a short title summarizing the user's message.
- At most 80 characters
- No quotes, no colons, no surrounding punctuation
- Plain statement of the topic, not a full sentence`
