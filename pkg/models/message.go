package models

import "time"

// MessageRole identifies who produced a session message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry in a session's append-only conversation log.
// The pipeline treats the log purely as a sink for produced output; it
// never reads history back during orchestration.
type Message struct {
	// ID is the unique message identifier.
	ID string `json:"id"`

	// SessionID groups messages into a conversation.
	SessionID string `json:"session_id"`

	// Role is the message author role.
	Role MessageRole `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Metadata carries structured extras such as routing decisions and
	// source counts for assistant messages.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is when the message was appended.
	CreatedAt time.Time `json:"created_at"`
}
