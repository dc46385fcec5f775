package chat

// EventKind identifies a stream frame type.
type EventKind string

// Frame kinds emitted during a turn. A successful turn ends with exactly
// one finish frame; a failed one ends with exactly one error frame.
const (
	EventTextDelta      EventKind = "text-delta"
	EventReasoningDelta EventKind = "reasoning-delta"
	EventToolCall       EventKind = "tool-call"
	EventToolResult     EventKind = "tool-result"
	EventFinish         EventKind = "finish"
	EventError          EventKind = "error"
)

// Event is one frame of the turn stream.
type Event struct {
	Kind EventKind
	Data any
}

// EmitFunc delivers one event to the client. Implementations are called
// synchronously from the generation loop, so frame order is exactly emit
// order. They must not block indefinitely.
type EmitFunc func(Event)

// TextDelta carries an incremental piece of assistant text.
type TextDelta struct {
	Text string `json:"text"`
}

// ReasoningDelta carries an incremental piece of model reasoning.
type ReasoningDelta struct {
	Text string `json:"text"`
}

// ToolCall announces a tool invocation before it runs.
type ToolCall struct {
	Ref   string `json:"ref,omitempty"`
	Name  string `json:"name"`
	Input any    `json:"input,omitempty"`
}

// ToolResult carries a completed tool invocation's output. Failed
// invocations set Error instead of Output.
type ToolResult struct {
	Ref    string `json:"ref,omitempty"`
	Name   string `json:"name"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Finish closes a successful turn. MessageID is the assistant message's
// identity, identical to the one persisted.
type Finish struct {
	MessageID string `json:"messageId"`
	Rounds    int    `json:"rounds"`
}

// Error codes carried by error frames.
const (
	ErrorCodeStepLimit = "step_limit"
	ErrorCodeProvider  = "provider"
	ErrorCodeInternal  = "internal"
)

// ErrorData closes a failed turn. Provider failures carry the backend's
// diagnostic in Message; everything else carries the generic client
// text. Code distinguishes step-limit stops and provider failures from
// internal ones.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func emitText(emit EmitFunc, text string) {
	emit(Event{Kind: EventTextDelta, Data: TextDelta{Text: text}})
}
