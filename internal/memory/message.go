package memory

import "time"

// Message roles. Ordering within a conversation is significant; a system
// message, when present, is always the first element.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single conversation turn.
type ChatMessage struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ConversationMemory is one session's full stored history.
type ConversationMemory struct {
	SessionID string            `json:"sessionId"`
	Messages  []ChatMessage     `json:"messages"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
