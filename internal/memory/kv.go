package memory

import (
	"context"
	"encoding/json"
	"time"

	cerrors "github.com/cookchat-oss/cookchat/internal/errors"
	"github.com/cookchat-oss/cookchat/internal/telemetry"
)

// Memory settings for the KV-backed store.
const (
	// DefaultMaxMessages is the retention window: the maximum number of
	// messages kept per session after a save.
	DefaultMaxMessages = 50

	// DefaultTTL is how long a session survives without a write.
	DefaultTTL = 7 * 24 * time.Hour

	conversationKeyPrefix = "conversation:"
)

// KV is the expiring key-value capability the ConversationStore is built on.
// It provides only per-key last-write-wins semantics; there is no locking.
type KV interface {
	// Get returns the value for key, or ok=false when the key is missing or
	// its TTL has elapsed.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put stores value under key. A non-zero ttl expires the key that long
	// after the write; writing again resets the clock.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the KV.
	Close() error
}

// ConversationStore is a stateless-client view over an expiring KV store.
// Each session is one JSON record, fetched and overwritten wholesale.
// Concurrent saves for the same session are last-write-wins: nothing closes
// the read-modify-write window between Load and Save.
type ConversationStore struct {
	kv          KV
	maxMessages int
	ttl         time.Duration
	logger      *telemetry.Logger
}

// NewConversationStore creates a KV-backed conversation store. maxMessages
// and ttl fall back to the defaults when zero.
func NewConversationStore(kv KV, maxMessages int, ttl time.Duration, logger *telemetry.Logger) *ConversationStore {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ConversationStore{
		kv:          kv,
		maxMessages: maxMessages,
		ttl:         ttl,
		logger:      logger,
	}
}

func conversationKey(sessionID string) string {
	return conversationKeyPrefix + sessionID
}

// Load fetches and deserializes the session record. Missing, expired, and
// malformed records all read as absent (nil, nil); malformed is logged but
// never fatal.
func (s *ConversationStore) Load(ctx context.Context, sessionID string) (*ConversationMemory, error) {
	data, ok, err := s.kv.Get(ctx, conversationKey(sessionID))
	if err != nil {
		return nil, cerrors.Wrap(cerrors.CodePersistence, "failed to read conversation", err)
	}
	if !ok {
		return nil, nil
	}

	var mem ConversationMemory
	if err := json.Unmarshal(data, &mem); err != nil {
		s.logger.Warn("Discarding malformed conversation record", "session", sessionID, "error", err)
		return nil, nil
	}
	return &mem, nil
}

// Save overwrites the session record with the given history and metadata.
// Histories longer than the retention window keep only the most recent
// entries (plain suffix keep: the system message gets no special casing and
// can be dropped; the orchestrator re-injects it on the next turn). Both
// timestamps are set to the write time, and the TTL clock restarts.
func (s *ConversationStore) Save(ctx context.Context, sessionID string, messages []ChatMessage, metadata map[string]string) error {
	trimmed := messages
	if len(trimmed) > s.maxMessages {
		trimmed = trimmed[len(trimmed)-s.maxMessages:]
	}

	now := time.Now().UTC()
	mem := ConversationMemory{
		SessionID: sessionID,
		Messages:  trimmed,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  metadata,
	}

	data, err := json.Marshal(mem)
	if err != nil {
		return cerrors.Wrap(cerrors.CodePersistence, "failed to encode conversation", err)
	}
	if err := s.kv.Put(ctx, conversationKey(sessionID), data, s.ttl); err != nil {
		return cerrors.Wrap(cerrors.CodePersistence, "failed to write conversation", err)
	}
	return nil
}

// Clear deletes the session record. Idempotent.
func (s *ConversationStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.kv.Delete(ctx, conversationKey(sessionID)); err != nil {
		return cerrors.Wrap(cerrors.CodePersistence, "failed to delete conversation", err)
	}
	return nil
}

// MergeMetadata loads the record, shallow-merges patch into its metadata, and
// saves it back. Not atomic: a concurrent writer can win the race.
func (s *ConversationStore) MergeMetadata(ctx context.Context, sessionID string, patch map[string]string) (map[string]string, error) {
	mem, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if mem == nil {
		mem = &ConversationMemory{SessionID: sessionID}
	}

	merged := make(map[string]string, len(mem.Metadata)+len(patch))
	for k, v := range mem.Metadata {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}

	if len(patch) > 0 {
		if err := s.Save(ctx, sessionID, mem.Messages, merged); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// Capabilities reports the KV backend's guarantees: records expire, writes
// are capped, and nothing serializes concurrent requests.
func (s *ConversationStore) Capabilities() Capabilities {
	return Capabilities{Expires: true, SerializedPerSession: false, Capped: true}
}

// Close closes the underlying KV.
func (s *ConversationStore) Close() error {
	return s.kv.Close()
}
