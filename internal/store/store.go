// Package store persists chats and messages in PostgreSQL.
//
// A chat row is created lazily on the first turn and owns its messages;
// deleting a chat cascades to them. Message inserts are idempotent on id,
// so a retried turn never duplicates history.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx operations the Store needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it, which keeps every query usable
// inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages chat persistence with a PostgreSQL backend.
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store backed by the given connection pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// GetChat retrieves a chat by ID. Returns ErrNotFound if it does not exist.
func (s *Store) GetChat(ctx context.Context, id uuid.UUID) (*Chat, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, visibility, created_at FROM chats WHERE id = $1`, id)

	var c Chat
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Visibility, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("chat %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting chat %s: %w", id, err)
	}
	return &c, nil
}

// EnsureChat creates the chat if it does not exist yet and returns the
// stored row. Creation is idempotent: concurrent calls with the same id
// race harmlessly on ON CONFLICT DO NOTHING and both read back the winner.
func (s *Store) EnsureChat(ctx context.Context, id, ownerID uuid.UUID, title string) (*Chat, error) {
	if title == "" {
		title = "New chat"
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chats (id, owner_id, title, visibility)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		id, ownerID, title, VisibilityPrivate)
	if err != nil {
		return nil, fmt.Errorf("creating chat %s: %w", id, err)
	}

	chat, err := s.GetChat(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("ensured chat", "chat_id", id, "owner_id", chat.OwnerID)
	return chat, nil
}

// SaveMessages inserts messages atomically. Inserts are idempotent on
// message id, so replaying a turn after a partial failure is safe.
func (s *Store) SaveMessages(ctx context.Context, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	for i, msg := range messages {
		if err := insertMessage(ctx, tx, msg); err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("saved messages", "chat_id", messages[0].ChatID, "count", len(messages))
	return nil
}

func insertMessage(ctx context.Context, q Querier, msg *Message) error {
	for j, part := range msg.Parts {
		if part == nil {
			return fmt.Errorf("nil part at index %d", j)
		}
	}

	partsJSON, err := json.Marshal(msg.Parts)
	if err != nil {
		return fmt.Errorf("marshaling parts: %w", err)
	}
	attachments := msg.Attachments
	if attachments == nil {
		attachments = []Attachment{}
	}
	attachmentsJSON, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("marshaling attachments: %w", err)
	}

	_, err = q.Exec(ctx,
		`INSERT INTO messages (id, chat_id, role, parts, attachments)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.ChatID, msg.Role, partsJSON, attachmentsJSON)
	if err != nil {
		return fmt.Errorf("inserting message %s: %w", msg.ID, err)
	}
	return nil
}

// Messages retrieves a chat's messages in chronological order.
// limit is clamped via NormalizeHistoryLimit.
func (s *Store) Messages(ctx context.Context, chatID uuid.UUID, limit int32) ([]*Message, error) {
	limit = NormalizeHistoryLimit(limit)

	rows, err := s.pool.Query(ctx,
		`SELECT id, chat_id, role, parts, attachments, created_at
		 FROM messages WHERE chat_id = $1
		 ORDER BY created_at ASC
		 LIMIT $2`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages for chat %s: %w", chatID, err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var (
			m               Message
			partsJSON       []byte
			attachmentsJSON []byte
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &partsJSON, &attachmentsJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if err := json.Unmarshal(partsJSON, &m.Parts); err != nil {
			// Skip rows whose payload no longer parses rather than
			// failing the whole history load.
			s.logger.Warn("skipping message with malformed parts", "message_id", m.ID, "error", err)
			continue
		}
		if err := json.Unmarshal(attachmentsJSON, &m.Attachments); err != nil {
			s.logger.Warn("skipping message with malformed attachments", "message_id", m.ID, "error", err)
			continue
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return messages, nil
}

// DeleteChat removes a chat and, via cascade, all its messages.
// Returns ErrNotFound if the chat does not exist.
func (s *Store) DeleteChat(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting chat %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	s.logger.Debug("deleted chat", "chat_id", id)
	return nil
}

// SetTitle updates a chat's title. Returns ErrNotFound for unknown chats.
func (s *Store) SetTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE chats SET title = $2 WHERE id = $1`, id, title)
	if err != nil {
		return fmt.Errorf("updating title for chat %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetVisibility updates a chat's visibility. Returns ErrNotFound for
// unknown chats.
func (s *Store) SetVisibility(ctx context.Context, id uuid.UUID, visibility string) error {
	if visibility != VisibilityPrivate && visibility != VisibilityPublic {
		return fmt.Errorf("invalid visibility %q", visibility)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE chats SET visibility = $2 WHERE id = $1`, id, visibility)
	if err != nil {
		return fmt.Errorf("updating visibility for chat %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListChats returns a user's chats, newest first.
func (s *Store) ListChats(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]*Chat, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, title, visibility, created_at
		 FROM chats WHERE owner_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing chats for %s: %w", ownerID, err)
	}
	defer rows.Close()

	var chats []*Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Visibility, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		chats = append(chats, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chats: %w", err)
	}
	return chats, nil
}
