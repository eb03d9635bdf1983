package memory

import (
	"context"
	"encoding/json"
	"time"

	cerrors "github.com/cookchat-oss/cookchat/internal/errors"
)

// StateStorage is the durable per-session persistence capability behind the
// stateful backend. Each session owns an isolated record keyed by its ID.
type StateStorage interface {
	// LoadState returns the serialized state for a session, or ok=false when
	// none has been persisted yet.
	LoadState(ctx context.Context, sessionID string) (data []byte, ok bool, err error)

	// SaveState overwrites the serialized state for a session.
	SaveState(ctx context.Context, sessionID string, data []byte) error

	// DeleteState removes the persisted state for a session.
	DeleteState(ctx context.Context, sessionID string) error

	// Close releases any resources held by the storage.
	Close() error
}

// Session holds the authoritative in-memory state for one conversation.
// Every operation goes through the owning SessionHost, which guarantees that
// no two mutations on the same session interleave.
type Session struct {
	id        string
	messages  []ChatMessage
	metadata  map[string]string
	createdAt time.Time
	updatedAt time.Time
	loaded    bool
}

// SessionSnapshot is the read view returned by ListMessages.
type SessionSnapshot struct {
	Messages  []ChatMessage     `json:"messages"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func newSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		id:        id,
		metadata:  make(map[string]string),
		createdAt: now,
		updatedAt: now,
	}
}

// hydrate loads persisted state on first access. Later calls are no-ops.
func (s *Session) hydrate(ctx context.Context, storage StateStorage) error {
	if s.loaded {
		return nil
	}

	data, ok, err := storage.LoadState(ctx, s.id)
	if err != nil {
		return cerrors.Wrap(cerrors.CodePersistence, "failed to load session state", err)
	}
	if ok {
		var mem ConversationMemory
		if err := json.Unmarshal(data, &mem); err != nil {
			return cerrors.Wrap(cerrors.CodePersistence, "failed to decode session state", err)
		}
		s.messages = mem.Messages
		s.metadata = mem.Metadata
		if s.metadata == nil {
			s.metadata = make(map[string]string)
		}
		s.createdAt = mem.CreatedAt
		s.updatedAt = mem.UpdatedAt
	}

	s.loaded = true
	return nil
}

// persist writes the full session state synchronously and refreshes
// updatedAt. createdAt never changes after the session exists.
func (s *Session) persist(ctx context.Context, storage StateStorage) error {
	s.updatedAt = time.Now().UTC()
	mem := ConversationMemory{
		SessionID: s.id,
		Messages:  s.messages,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
		Metadata:  s.metadata,
	}

	data, err := json.Marshal(mem)
	if err != nil {
		return cerrors.Wrap(cerrors.CodePersistence, "failed to encode session state", err)
	}
	if err := storage.SaveState(ctx, s.id, data); err != nil {
		return cerrors.Wrap(cerrors.CodePersistence, "failed to persist session state", err)
	}
	return nil
}

func (s *Session) snapshot() SessionSnapshot {
	msgs := make([]ChatMessage, len(s.messages))
	copy(msgs, s.messages)
	meta := make(map[string]string, len(s.metadata))
	for k, v := range s.metadata {
		meta[k] = v
	}
	return SessionSnapshot{
		Messages:  msgs,
		Metadata:  meta,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}
