package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"

	"github.com/richardwu/ai-chatbot/internal/toolkit"
)

// ErrStepLimit indicates the model kept requesting tools past the round
// budget. The turn fails rather than letting a confused model loop
// indefinitely.
var ErrStepLimit = errors.New("tool step limit reached")

// ProviderError carries the backend's diagnostic payload for a failed
// model call so the stream can relay it in-band.
type ProviderError struct {
	// Status is the backend's status name, when it reported one.
	Status string

	// Detail is the diagnostic text the backend supplied.
	Detail string

	err error
}

func (e *ProviderError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Detail)
	}
	return e.Detail
}

func (e *ProviderError) Unwrap() error { return e.err }

// asProviderError classifies a generate failure. Context expiry passes
// through so callers can still match it; everything else becomes a
// ProviderError carrying the backend's message. GenkitError details are
// dropped, they hold server-side stacks.
func asProviderError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ge *core.GenkitError
	if errors.As(err, &ge) {
		return &ProviderError{Status: string(ge.Status), Detail: ge.Message, err: err}
	}
	return &ProviderError{Detail: err.Error(), err: err}
}

// StepInfo describes one completed generation round for observability.
type StepInfo struct {
	Round     int
	Type      string // "text" or "tool-calls"
	ToolCalls int
}

// runLoop drives the bounded tool-calling conversation for one turn.
// Each round streams deltas through emit; rounds that return tool
// requests execute them and feed results back. The final round's message
// content is returned.
//
// emit is expected to be the smoothed emitter; this function only decides
// what to emit and in which order.
func (o *Orchestrator) runLoop(
	ctx context.Context,
	turn Turn,
	history []*ai.Message,
	catalog *toolkit.Catalog,
	emit EmitFunc,
) ([]*ai.Part, int, error) {
	messages := make([]*ai.Message, len(history))
	copy(messages, history)

	streamCB := func(_ context.Context, chunk *ai.ModelResponseChunk) error {
		for _, p := range chunk.Content {
			switch p.Kind {
			case ai.PartText:
				emit(Event{Kind: EventTextDelta, Data: TextDelta{Text: p.Text}})
			case ai.PartReasoning:
				emit(Event{Kind: EventReasoningDelta, Data: ReasoningDelta{Text: p.Text}})
			}
		}
		return nil
	}

	for round := 1; round <= o.maxSteps; round++ {
		if err := ctx.Err(); err != nil {
			return nil, round, err
		}

		resp, err := genkit.Generate(ctx, o.g,
			ai.WithModelName(turn.Model),
			ai.WithSystem(systemPromptFor(turn.Alias, turn.Wallet)),
			ai.WithMessages(messages...),
			ai.WithTools(catalog.Refs()...),
			ai.WithReturnToolRequests(true),
			ai.WithStreaming(streamCB),
		)
		if err != nil {
			return nil, round, fmt.Errorf("generating round %d: %w", round, asProviderError(err))
		}

		requests := resp.ToolRequests()
		if len(requests) == 0 {
			o.onStep(StepInfo{Round: round, Type: "text"})
			return resp.Message.Content, round, nil
		}
		o.onStep(StepInfo{Round: round, Type: "tool-calls", ToolCalls: len(requests)})

		messages = append(messages, resp.Message)
		responseParts := make([]*ai.Part, 0, len(requests))
		for _, req := range requests {
			responseParts = append(responseParts, o.dispatchTool(ctx, catalog, req, emit))
		}
		messages = append(messages, &ai.Message{
			Role:    ai.RoleTool,
			Content: responseParts,
		})
	}

	return nil, o.maxSteps, ErrStepLimit
}

// dispatchTool runs a single requested tool and returns the tool-response
// part to feed back to the model. Execution failures become structured
// error outputs instead of aborting the turn, so the model can read the
// failure and recover.
func (o *Orchestrator) dispatchTool(
	ctx context.Context,
	catalog *toolkit.Catalog,
	req *ai.ToolRequest,
	emit EmitFunc,
) *ai.Part {
	emit(Event{Kind: EventToolCall, Data: ToolCall{
		Ref:   req.Ref,
		Name:  req.Name,
		Input: req.Input,
	}})

	var (
		output any
		runErr error
	)
	tool, ok := catalog.Lookup(req.Name)
	if !ok {
		runErr = fmt.Errorf("model requested unknown tool %q", req.Name)
	} else {
		output, runErr = tool.RunRaw(ctx, req.Input)
	}

	if runErr != nil {
		o.logger.Warn("tool execution failed", "tool", req.Name, "error", runErr)
		emit(Event{Kind: EventToolResult, Data: ToolResult{
			Ref:   req.Ref,
			Name:  req.Name,
			Error: runErr.Error(),
		}})
		output = map[string]any{"error": runErr.Error()}
	} else {
		emit(Event{Kind: EventToolResult, Data: ToolResult{
			Ref:    req.Ref,
			Name:   req.Name,
			Output: output,
		}})
	}

	return ai.NewToolResponsePart(&ai.ToolResponse{
		Name:   req.Name,
		Ref:    req.Ref,
		Output: output,
	})
}
