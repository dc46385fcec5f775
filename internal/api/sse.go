package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/richardwu/ai-chatbot/internal/chat"
	"github.com/richardwu/ai-chatbot/internal/log"
)

// setSSEHeaders prepares the response for a Server-Sent Events stream.
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// writeFrame writes one SSE frame and flushes it.
func writeFrame(w io.Writer, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	flusher.Flush()
	return nil
}

// sseSink adapts a ResponseWriter into a chat.EmitFunc. Once a write
// fails (client gone) remaining frames are dropped silently; the turn
// keeps running so finalization still happens.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	logger  log.Logger

	mu   sync.Mutex
	gone bool
}

func newSSESink(w http.ResponseWriter, flusher http.Flusher, logger log.Logger) *sseSink {
	return &sseSink{w: w, flusher: flusher, logger: logger}
}

// Emit implements chat.EmitFunc.
func (s *sseSink) Emit(e chat.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return
	}
	if err := writeFrame(s.w, s.flusher, string(e.Kind), e.Data); err != nil {
		s.gone = true
		s.logger.Debug("client disconnected, dropping remaining frames", "error", err)
	}
}
