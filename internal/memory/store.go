package memory

import "context"

// Capabilities documents backend-specific guarantees so callers can reason
// about them without hard-coded branches on the backend name.
type Capabilities struct {
	// Expires is true when records vanish after a retention period of
	// inactivity (each write resets the clock).
	Expires bool

	// SerializedPerSession is true when operations against the same session
	// are totally ordered. Without it, concurrent writers race between Load
	// and Save and the last write wins.
	SerializedPerSession bool

	// Capped is true when Save enforces the retention window (most-recent N
	// messages kept).
	Capped bool
}

// Store is the session memory capability the chat orchestrator depends on.
// Two implementations exist: ConversationStore (expiring KV records) and
// SessionHost (stateful per-session objects with durable state).
type Store interface {
	// Load returns the stored history for a session, or nil when the session
	// is absent, expired, or its record is malformed. Malformed records are
	// never surfaced as errors.
	Load(ctx context.Context, sessionID string) (*ConversationMemory, error)

	// Save persists the full message history plus metadata for a session.
	Save(ctx context.Context, sessionID string, messages []ChatMessage, metadata map[string]string) error

	// Clear removes a session's history. Clearing an unknown session is not
	// an error.
	Clear(ctx context.Context, sessionID string) error

	// MergeMetadata shallow-merges patch into the session's metadata (new
	// keys overwrite old) and returns the current metadata.
	MergeMetadata(ctx context.Context, sessionID string, patch map[string]string) (map[string]string, error)

	// Capabilities describes this backend's guarantees.
	Capabilities() Capabilities

	// Close releases any resources held by the store.
	Close() error
}
