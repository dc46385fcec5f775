package store

import (
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// Chat visibility values.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// Message roles as stored.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Chat is a conversation owned by a single user.
type Chat struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Title      string
	Visibility string
	CreatedAt  time.Time
}

// Message is a single conversation entry. Parts holds the model-facing
// content (text, reasoning, tool requests and responses) serialized as
// JSONB; Attachments carries client-side file references that never reach
// the model.
type Message struct {
	ID          uuid.UUID
	ChatID      uuid.UUID
	Role        string
	Parts       []*ai.Part
	Attachments []Attachment
	CreatedAt   time.Time
}

// Attachment references an uploaded file associated with a message.
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
}
