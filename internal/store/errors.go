package store

import "errors"

// Sentinel errors for store operations. These are part of the Store's
// public API and should be checked with errors.Is().
//
// Example:
//
//	chat, err := st.GetChat(ctx, id)
//	if errors.Is(err, store.ErrNotFound) {
//	    // handle missing chat
//	}
var (
	// ErrNotFound indicates the requested chat does not exist.
	ErrNotFound = errors.New("chat not found")
)

const (
	// DefaultHistoryLimit is the default number of messages loaded per chat.
	DefaultHistoryLimit int32 = 100

	// MaxHistoryLimit is the absolute maximum to prevent OOM on huge chats.
	MaxHistoryLimit int32 = 10000
)

// NormalizeHistoryLimit clamps the message-load limit to sane bounds.
// Zero or negative values fall back to DefaultHistoryLimit.
func NormalizeHistoryLimit(limit int32) int32 {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
