package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/richardwu/ai-chatbot/internal/chat"
	"github.com/richardwu/ai-chatbot/internal/log"
	"github.com/richardwu/ai-chatbot/internal/store"
)

// maxRequestBody caps the intake body size.
const maxRequestBody = 1 << 20 // 1 MiB

// chatLister is the read side the history endpoint needs. *store.Store
// satisfies it.
type chatLister interface {
	ListChats(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]*store.Chat, error)
}

// chatHandler serves turn intake, deletion, and history.
type chatHandler struct {
	orch         *chat.Orchestrator
	chats        chatLister
	resolveModel func(alias string) (string, error)
	turnTimeout  time.Duration
	logger       log.Logger
}

// incomingMessage is one transcript entry as sent by the client.
type incomingMessage struct {
	ID          uuid.UUID          `json:"id"`
	Role        string             `json:"role"`
	Parts       []*ai.Part         `json:"parts"`
	Attachments []store.Attachment `json:"attachments"`
}

// chatRequest is the turn intake body. SelectedWallet is optional; when
// present the turn's system prompt announces it for wallet-aware tools.
type chatRequest struct {
	ID             uuid.UUID         `json:"id"`
	Messages       []incomingMessage `json:"messages"`
	SelectedModel  string            `json:"selectedModel"`
	SelectedWallet string            `json:"selectedWallet"`
}

// send handles POST /api/chat: validates the turn, runs the generation
// loop, and streams SSE frames. Generation continues after client
// disconnect, bounded by the turn timeout, so finalization always runs.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user identity required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	if req.ID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "invalid_chat_id", "chat id is required")
		return
	}

	model, err := h.resolveModel(req.SelectedModel)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_model", "unknown model")
		return
	}

	userMsg := lastUserMessage(req.Messages)
	if userMsg == nil || len(userMsg.Parts) == 0 {
		writeError(w, http.StatusBadRequest, "missing_user_message", "no user message to respond to")
		return
	}

	msgID := userMsg.ID
	if msgID == uuid.Nil {
		msgID = uuid.New()
	}

	run, err := h.orch.Prepare(r.Context(), chat.Turn{
		ChatID: req.ID,
		UserID: userID,
		Model:  model,
		Alias:  req.SelectedModel,
		Wallet: req.SelectedWallet,
		Message: &store.Message{
			ID:          msgID,
			ChatID:      req.ID,
			Role:        store.RoleUser,
			Parts:       userMsg.Parts,
			Attachments: userMsg.Attachments,
		},
	})
	if err != nil {
		h.writePrepareError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported")
		return
	}
	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	// Detach from the request context so a client disconnect cannot
	// abort generation mid-turn; the wall clock still bounds it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.turnTimeout)
	defer cancel()

	sink := newSSESink(w, flusher, h.logger)
	if err := run.Stream(ctx, sink.Emit); err != nil {
		// Already reported in-band as an error frame.
		h.logger.Debug("turn stream ended with error", "chat_id", req.ID, "error", err)
	}
}

// writePrepareError maps intake failures after parsing to statuses.
// Unexpected failures fall back to a generic 404.
func (h *chatHandler) writePrepareError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrNotOwner):
		writeError(w, http.StatusUnauthorized, "not_owner", "chat belongs to another user")
	case errors.Is(err, chat.ErrInvalidTurn):
		writeError(w, http.StatusBadRequest, "invalid_turn", "invalid turn")
	default:
		h.logger.Error("turn intake failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusNotFound, "not_found", "not found")
	}
}

// delete handles DELETE /api/chat?id=.
func (h *chatHandler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user identity required")
		return
	}

	chatID, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "not found")
		return
	}

	switch err := h.orch.DeleteChat(r.Context(), chatID, userID); {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"deleted": chatID.String()})
	case errors.Is(err, chat.ErrNotOwner):
		writeError(w, http.StatusUnauthorized, "not_owner", "chat belongs to another user")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found")
	default:
		h.logger.Error("chat deletion failed", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete chat")
	}
}

// history handles GET /api/history: the caller's chats, newest first.
func (h *chatHandler) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user identity required")
		return
	}

	limit := queryInt32(r, "limit", 20)
	if limit < 1 || limit > 100 {
		writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
		return
	}
	offset := queryInt32(r, "offset", 0)
	if offset < 0 || offset > 10000 {
		writeError(w, http.StatusBadRequest, "invalid_offset", "offset must be 10000 or less")
		return
	}

	chats, err := h.chats.ListChats(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("history listing failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "history_failed", "failed to list chats")
		return
	}
	if chats == nil {
		chats = []*store.Chat{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

// lastUserMessage returns the most recent user-authored transcript
// entry, in the order the client gave.
func lastUserMessage(messages []incomingMessage) *incomingMessage {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == store.RoleUser {
			return &messages[i]
		}
	}
	return nil
}

func queryInt32(r *http.Request, key string, def int32) int32 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return -1
	}
	return int32(v)
}
