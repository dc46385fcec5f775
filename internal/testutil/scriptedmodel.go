package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ScriptedModel plays back a fixed sequence of model turns, one per
// generate call. It lets generation-loop tests script multi-round
// tool-calling conversations deterministically.
//
// Thread-safe for concurrent use.
type ScriptedModel struct {
	mu    sync.Mutex
	steps []ScriptStep
	next  int
	calls []ScriptCall
}

// ScriptStep describes one model turn.
type ScriptStep struct {
	// Chunks are streamed to the callback in order before the final
	// message. When empty, Text is streamed as a single chunk.
	Chunks []string

	// ReasoningChunks are streamed as reasoning parts ahead of the text
	// chunks.
	ReasoningChunks []string

	// Text is the final assistant text for this turn.
	Text string

	// Reasoning, when set, is emitted as a reasoning part ahead of the text.
	Reasoning string

	// ToolRequests, when set, asks the caller to run tools before the
	// conversation continues.
	ToolRequests []*ai.ToolRequest

	// Err aborts the turn with this error.
	Err error
}

// ScriptCall records one generate invocation.
type ScriptCall struct {
	// Messages is the full conversation the model saw.
	Messages []*ai.Message
	// ToolNames lists the tools offered on this call.
	ToolNames []string
}

// NewScriptedModel creates a model that replays the given steps in order.
// Calls beyond the script fail loudly instead of looping forever.
func NewScriptedModel(steps ...ScriptStep) *ScriptedModel {
	return &ScriptedModel{steps: steps}
}

// Calls returns a copy of all recorded generate calls.
func (m *ScriptedModel) Calls() []ScriptCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]ScriptCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Register registers the script as a Genkit model named "mock/scripted".
func (m *ScriptedModel) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, "mock/scripted", &ai.ModelOptions{
		Label: "Scripted Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
		},
	}, m.generate)
}

func (m *ScriptedModel) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	m.mu.Lock()
	if m.next >= len(m.steps) {
		m.mu.Unlock()
		return nil, fmt.Errorf("scripted model exhausted after %d steps", len(m.steps))
	}
	step := m.steps[m.next]
	m.next++

	var toolNames []string
	for _, t := range req.Tools {
		toolNames = append(toolNames, t.Name)
	}
	m.calls = append(m.calls, ScriptCall{
		Messages:  req.Messages,
		ToolNames: toolNames,
	})
	m.mu.Unlock()

	if step.Err != nil {
		return nil, step.Err
	}

	if cb != nil {
		for _, c := range step.ReasoningChunks {
			if err := cb(ctx, &ai.ModelResponseChunk{
				Content: []*ai.Part{{Kind: ai.PartReasoning, Text: c}},
			}); err != nil {
				return nil, err
			}
		}
		chunks := step.Chunks
		if len(chunks) == 0 && step.Text != "" {
			chunks = []string{step.Text}
		}
		for _, c := range chunks {
			if err := cb(ctx, &ai.ModelResponseChunk{
				Content: []*ai.Part{ai.NewTextPart(c)},
			}); err != nil {
				return nil, err
			}
		}
	}

	var parts []*ai.Part
	if step.Reasoning != "" {
		parts = append(parts, &ai.Part{Kind: ai.PartReasoning, Text: step.Reasoning})
	}
	for _, tr := range step.ToolRequests {
		parts = append(parts, &ai.Part{Kind: ai.PartToolRequest, ToolRequest: tr})
	}
	if step.Text != "" || len(parts) == 0 {
		parts = append(parts, ai.NewTextPart(step.Text))
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: parts,
		},
	}, nil
}
