// Package chat orchestrates one conversational turn: load the chat,
// persist the user message, assemble the tool catalog, run the bounded
// generation loop, stream frames to the client, and persist the result.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/richardwu/ai-chatbot/internal/log"
	"github.com/richardwu/ai-chatbot/internal/store"
	"github.com/richardwu/ai-chatbot/internal/toolkit"
)

// clientErrorMessage is what a failed turn shows the user. Internals stay
// in the logs.
const clientErrorMessage = "An error occurred, please try again!"

// Sentinel errors for turn handling.
var (
	// ErrNotOwner indicates the chat belongs to another user.
	ErrNotOwner = errors.New("chat owned by another user")

	// ErrInvalidTurn indicates the turn carries no usable user message.
	ErrInvalidTurn = errors.New("invalid turn")
)

// ConversationStore is the persistence the orchestrator needs. *store.Store
// satisfies it; tests supply an in-memory fake.
type ConversationStore interface {
	GetChat(ctx context.Context, id uuid.UUID) (*store.Chat, error)
	EnsureChat(ctx context.Context, id, ownerID uuid.UUID, title string) (*store.Chat, error)
	SaveMessages(ctx context.Context, messages []*store.Message) error
	Messages(ctx context.Context, chatID uuid.UUID, limit int32) ([]*store.Message, error)
	DeleteChat(ctx context.Context, id uuid.UUID) error
}

// ToolConnector assembles the per-turn tool catalog. *toolkit.Bridge
// satisfies it.
type ToolConnector interface {
	Connect(ctx context.Context, local *toolkit.Catalog) (*toolkit.Catalog, error)
}

// Titler names new chats from their first message.
type Titler interface {
	Generate(ctx context.Context, userText string) string
}

// Config contains all required parameters for the Orchestrator.
type Config struct {
	Genkit     *genkit.Genkit
	Store      ConversationStore
	Tools      ToolConnector
	LocalTools *toolkit.Catalog
	Titles     Titler
	Logger     log.Logger

	// MaxSteps bounds generation rounds per turn. Zero means 5.
	MaxSteps int

	// NewID mints message identities. Nil means uuid.New. Injected so
	// tests can assert on deterministic ids.
	NewID func() uuid.UUID

	// OnStep, when set, observes each completed generation round.
	OnStep func(StepInfo)
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Store == nil {
		return errors.New("conversation store is required")
	}
	if cfg.Tools == nil {
		return errors.New("tool connector is required")
	}
	if cfg.Titles == nil {
		return errors.New("title generator is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Orchestrator runs turns. It is stateless across turns and safe for
// concurrent use; per-turn state lives in Run.
type Orchestrator struct {
	g        *genkit.Genkit
	store    ConversationStore
	tools    ToolConnector
	local    *toolkit.Catalog
	titles   Titler
	logger   log.Logger
	maxSteps int
	newID    func() uuid.UUID
	onStepFn func(StepInfo)
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid chat config: %w", err)
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 5
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.New
	}
	return &Orchestrator{
		g:        cfg.Genkit,
		store:    cfg.Store,
		tools:    cfg.Tools,
		local:    cfg.LocalTools,
		titles:   cfg.Titles,
		logger:   cfg.Logger,
		maxSteps: cfg.MaxSteps,
		newID:    cfg.NewID,
		onStepFn: cfg.OnStep,
	}, nil
}

func (o *Orchestrator) onStep(info StepInfo) {
	o.logger.Debug("generation round finished",
		"round", info.Round,
		"type", info.Type,
		"tool_calls", info.ToolCalls)
	if o.onStepFn != nil {
		o.onStepFn(info)
	}
}

// Turn is one user request against a chat.
type Turn struct {
	ChatID uuid.UUID
	UserID uuid.UUID

	// Model is the provider-qualified model for this turn; Alias is the
	// client-facing name it resolved from.
	Model string
	Alias string

	// Wallet is the user's selected wallet address, empty when none. The
	// system prompt announces it so wallet-aware tools can resolve it
	// without asking.
	Wallet string

	// Message is the user message, with its client-supplied id.
	Message *store.Message
}

// Run is a prepared turn, ready to stream. It owns the tool catalog until
// Stream returns.
type Run struct {
	orch    *Orchestrator
	turn    Turn
	catalog *toolkit.Catalog
	history []*ai.Message
}

// Prepare performs everything that must happen before the first streamed
// byte: ownership checks, chat creation, user-message persistence, and
// tool discovery. Any error here still maps cleanly onto an HTTP status.
func (o *Orchestrator) Prepare(ctx context.Context, turn Turn) (*Run, error) {
	if turn.Message == nil || turn.Message.Role != store.RoleUser || len(turn.Message.Parts) == 0 {
		return nil, fmt.Errorf("%w: missing user message", ErrInvalidTurn)
	}

	chat, err := o.store.GetChat(ctx, turn.ChatID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		title := o.titles.Generate(ctx, messageText(turn.Message))
		chat, err = o.store.EnsureChat(ctx, turn.ChatID, turn.UserID, title)
		if err != nil {
			return nil, fmt.Errorf("creating chat: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("loading chat: %w", err)
	}

	if chat.OwnerID != turn.UserID {
		return nil, fmt.Errorf("chat %s: %w", turn.ChatID, ErrNotOwner)
	}

	// The user message is durable before generation starts; a model
	// failure must not lose what the user typed.
	turn.Message.ChatID = turn.ChatID
	if err := o.store.SaveMessages(ctx, []*store.Message{turn.Message}); err != nil {
		return nil, fmt.Errorf("saving user message: %w", err)
	}

	stored, err := o.store.Messages(ctx, turn.ChatID, 0)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	catalog, err := o.tools.Connect(ctx, o.local)
	if err != nil {
		return nil, fmt.Errorf("assembling tool catalog: %w", err)
	}

	return &Run{
		orch:    o,
		turn:    turn,
		catalog: catalog,
		history: toModelMessages(stored),
	}, nil
}

// Stream executes the generation loop and emits the turn's frames in
// order. It always closes the tool catalog, emits exactly one terminal
// frame, and persists the assistant message best-effort on success.
func (r *Run) Stream(ctx context.Context, emit EmitFunc) error {
	o := r.orch
	defer func() {
		if err := r.catalog.Close(); err != nil {
			o.logger.Warn("failed to close tool catalog", "error", err)
		}
	}()

	smoother := NewSmoother(emit)
	parts, rounds, err := o.runLoop(ctx, r.turn, r.history, r.catalog, smoother.Emit)
	if err != nil {
		o.logger.Error("turn failed", "chat_id", r.turn.ChatID, "error", err)
		smoother.Flush()
		code := ErrorCodeInternal
		message := clientErrorMessage
		var perr *ProviderError
		switch {
		case errors.Is(err, ErrStepLimit):
			code = ErrorCodeStepLimit
		case errors.As(err, &perr):
			// Relay whatever diagnostic the backend supplied; the
			// generic text is only the fallback.
			code = ErrorCodeProvider
			if perr.Detail != "" {
				message = perr.Detail
			}
		}
		emit(Event{Kind: EventError, Data: ErrorData{Code: code, Message: message}})
		return err
	}
	smoother.Flush()

	assistantID := o.newID()
	emit(Event{Kind: EventFinish, Data: Finish{
		MessageID: assistantID.String(),
		Rounds:    rounds,
	}})

	// Persistence after the terminal frame is best-effort: the user has
	// the answer, losing the copy is log-worthy but not fatal.
	if err := o.store.SaveMessages(ctx, []*store.Message{{
		ID:     assistantID,
		ChatID: r.turn.ChatID,
		Role:   store.RoleAssistant,
		Parts:  parts,
	}}); err != nil {
		o.logger.Error("failed to save chat", "chat_id", r.turn.ChatID, "error", err)
	}

	return nil
}

// DeleteChat removes a chat after verifying ownership.
func (o *Orchestrator) DeleteChat(ctx context.Context, chatID, userID uuid.UUID) error {
	chat, err := o.store.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.OwnerID != userID {
		return fmt.Errorf("chat %s: %w", chatID, ErrNotOwner)
	}
	return o.store.DeleteChat(ctx, chatID)
}

// messageText concatenates a message's text parts.
func messageText(msg *store.Message) string {
	var sb strings.Builder
	for _, p := range msg.Parts {
		if p != nil && p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// toModelMessages converts stored history into the model's message form.
func toModelMessages(stored []*store.Message) []*ai.Message {
	out := make([]*ai.Message, 0, len(stored))
	for _, m := range stored {
		var role ai.Role
		switch m.Role {
		case store.RoleAssistant:
			role = ai.RoleModel
		case store.RoleSystem:
			role = ai.RoleSystem
		default:
			role = ai.RoleUser
		}
		out = append(out, &ai.Message{Role: role, Content: m.Parts})
	}
	return out
}
