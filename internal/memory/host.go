package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cookchat-oss/cookchat/internal/telemetry"
)

const (
	sessionIdleTimeout = 30 * time.Minute
	sessionReapPeriod  = 5 * time.Minute
)

// SessionHost is the stateful memory backend. It maps each session ID to
// exactly one resident Session object guarded by its own mutex, so all
// operations against the same session are totally ordered, the structural
// guarantee the KV backend cannot give. State survives restarts through the
// attached StateStorage and never expires on its own.
type SessionHost struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	storage  StateStorage

	// maxMessages, when positive, caps the history the same way the KV
	// backend does. Zero means unbounded growth, the default.
	maxMessages int
	logger      *telemetry.Logger
	done        chan struct{}
}

type sessionEntry struct {
	mu       sync.Mutex
	session  *Session
	lastUsed time.Time
}

// NewSessionHost creates a stateful session backend over the given storage
// and starts a reaper that evicts idle resident sessions.
func NewSessionHost(storage StateStorage, maxMessages int, logger *telemetry.Logger) *SessionHost {
	h := &SessionHost{
		sessions:    make(map[string]*sessionEntry),
		storage:     storage,
		maxMessages: maxMessages,
		logger:      logger,
		done:        make(chan struct{}),
	}
	go h.reapLoop()
	return h
}

// entry returns the single entry for a session, creating it if needed.
func (h *SessionHost) entry(sessionID string) *sessionEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.sessions[sessionID]
	if !ok {
		e = &sessionEntry{session: newSession(sessionID)}
		h.sessions[sessionID] = e
	}
	e.lastUsed = time.Now()
	return e
}

func (h *SessionHost) reapLoop() {
	ticker := time.NewTicker(sessionReapPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.reapIdle(time.Now())
		}
	}
}

// reapIdle evicts resident sessions idle past the timeout and returns how
// many were evicted. Every mutation persists synchronously, so an evicted
// session re-hydrates losslessly on next access. Entries busy in an
// operation are skipped until the next pass.
func (h *SessionHost) reapIdle(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	reaped := 0
	for id, e := range h.sessions {
		if now.Sub(e.lastUsed) <= sessionIdleTimeout {
			continue
		}
		if !e.mu.TryLock() {
			continue
		}
		e.mu.Unlock()
		delete(h.sessions, id)
		reaped++
		h.logger.Debug("Evicting idle session", "session", id)
	}
	return reaped
}

// withSession runs fn with the session's lock held, hydrating persisted
// state on first access.
func (h *SessionHost) withSession(ctx context.Context, sessionID string, fn func(*Session) error) error {
	e := h.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.session.hydrate(ctx, h.storage); err != nil {
		return err
	}
	return fn(e.session)
}

// ListMessages returns the session's messages, metadata, and timestamps.
func (h *SessionHost) ListMessages(ctx context.Context, sessionID string) (SessionSnapshot, error) {
	var snap SessionSnapshot
	err := h.withSession(ctx, sessionID, func(s *Session) error {
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// AddMessage appends one message, persists synchronously, and returns the
// new message count.
func (h *SessionHost) AddMessage(ctx context.Context, sessionID string, msg ChatMessage) (int, error) {
	var count int
	err := h.withSession(ctx, sessionID, func(s *Session) error {
		s.messages = append(s.messages, msg)
		h.applyCap(s)
		if err := s.persist(ctx, h.storage); err != nil {
			return err
		}
		count = len(s.messages)
		return nil
	})
	return count, err
}

// Load returns the session history, or nil when nothing has been stored for
// the session yet.
func (h *SessionHost) Load(ctx context.Context, sessionID string) (*ConversationMemory, error) {
	var mem *ConversationMemory
	err := h.withSession(ctx, sessionID, func(s *Session) error {
		if len(s.messages) == 0 && len(s.metadata) == 0 {
			return nil
		}
		snap := s.snapshot()
		mem = &ConversationMemory{
			SessionID: sessionID,
			Messages:  snap.Messages,
			CreatedAt: snap.CreatedAt,
			UpdatedAt: snap.UpdatedAt,
			Metadata:  snap.Metadata,
		}
		return nil
	})
	return mem, err
}

// Save replaces the session history wholesale, merges the metadata patch,
// and persists once.
func (h *SessionHost) Save(ctx context.Context, sessionID string, messages []ChatMessage, metadata map[string]string) error {
	return h.withSession(ctx, sessionID, func(s *Session) error {
		s.messages = make([]ChatMessage, len(messages))
		copy(s.messages, messages)
		h.applyCap(s)
		for k, v := range metadata {
			s.metadata[k] = v
		}
		return s.persist(ctx, h.storage)
	})
}

// Clear empties the message sequence and persists. createdAt is preserved;
// updatedAt is refreshed by the persist.
func (h *SessionHost) Clear(ctx context.Context, sessionID string) error {
	err := h.withSession(ctx, sessionID, func(s *Session) error {
		s.messages = nil
		return s.persist(ctx, h.storage)
	})
	if err == nil {
		h.logger.Debug("Cleared session", "session", sessionID)
	}
	return err
}

// MergeMetadata shallow-merges patch into the session metadata, persisting
// when the patch is non-empty, and returns the current metadata.
func (h *SessionHost) MergeMetadata(ctx context.Context, sessionID string, patch map[string]string) (map[string]string, error) {
	var out map[string]string
	err := h.withSession(ctx, sessionID, func(s *Session) error {
		for k, v := range patch {
			s.metadata[k] = v
		}
		if len(patch) > 0 {
			if err := s.persist(ctx, h.storage); err != nil {
				return err
			}
		}
		out = make(map[string]string, len(s.metadata))
		for k, v := range s.metadata {
			out[k] = v
		}
		return nil
	})
	return out, err
}

func (h *SessionHost) applyCap(s *Session) {
	if h.maxMessages > 0 && len(s.messages) > h.maxMessages {
		s.messages = s.messages[len(s.messages)-h.maxMessages:]
	}
}

// Capabilities reports the stateful backend's guarantees: serialized per
// session, no expiry, capped only when configured.
func (h *SessionHost) Capabilities() Capabilities {
	return Capabilities{
		Expires:              false,
		SerializedPerSession: true,
		Capped:               h.maxMessages > 0,
	}
}

// Close stops the reaper and closes the underlying storage.
func (h *SessionHost) Close() error {
	close(h.done)
	return h.storage.Close()
}
