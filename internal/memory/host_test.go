package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cookchat-oss/cookchat/internal/telemetry"
)

func newTestHost(t *testing.T, maxMessages int) (*SessionHost, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	storage, err := NewSQLiteStateStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	host := NewSessionHost(storage, maxMessages, telemetry.NewLogger(false))
	t.Cleanup(func() { host.Close() })
	return host, dbPath
}

func TestSessionHost_AddAndList(t *testing.T) {
	host, _ := newTestHost(t, 0)
	ctx := context.Background()

	count, err := host.AddMessage(ctx, "s1", ChatMessage{Role: RoleUser, Content: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
	count, err = host.AddMessage(ctx, "s1", ChatMessage{Role: RoleAssistant, Content: "hi there"})
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	snap, err := host.ListMessages(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(snap.Messages))
	}
	if snap.Messages[0].Content != "hello" {
		t.Errorf("expected first message 'hello', got %q", snap.Messages[0].Content)
	}
	if snap.UpdatedAt.Before(snap.CreatedAt) {
		t.Error("updatedAt must not precede createdAt")
	}
}

func TestSessionHost_ClearPreservesCreatedAt(t *testing.T) {
	host, _ := newTestHost(t, 0)
	ctx := context.Background()

	if _, err := host.AddMessage(ctx, "s2", ChatMessage{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	before, _ := host.ListMessages(ctx, "s2")

	time.Sleep(10 * time.Millisecond)
	if err := host.Clear(ctx, "s2"); err != nil {
		t.Fatal(err)
	}

	after, _ := host.ListMessages(ctx, "s2")
	if len(after.Messages) != 0 {
		t.Fatalf("expected empty history after clear, got %d messages", len(after.Messages))
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Error("clear must preserve createdAt")
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Error("clear must refresh updatedAt")
	}
}

func TestSessionHost_MetadataMerge(t *testing.T) {
	host, _ := newTestHost(t, 0)
	ctx := context.Background()

	meta, err := host.MergeMetadata(ctx, "s3", map[string]string{"userAgent": "curl", "ip": "10.0.0.1"})
	if err != nil {
		t.Fatal(err)
	}
	if meta["userAgent"] != "curl" {
		t.Errorf("expected 'curl', got %q", meta["userAgent"])
	}

	meta, err = host.MergeMetadata(ctx, "s3", map[string]string{"userAgent": "browser"})
	if err != nil {
		t.Fatal(err)
	}
	if meta["userAgent"] != "browser" {
		t.Errorf("patch overwrites: expected 'browser', got %q", meta["userAgent"])
	}
	if meta["ip"] != "10.0.0.1" {
		t.Errorf("untouched keys survive: expected '10.0.0.1', got %q", meta["ip"])
	}

	// Empty patch is a pure read.
	meta, err = host.MergeMetadata(ctx, "s3", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(meta) != 2 {
		t.Errorf("expected 2 metadata keys, got %d", len(meta))
	}
}

func TestSessionHost_PersistenceAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "state.db")

	storage1, err := NewSQLiteStateStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	host1 := NewSessionHost(storage1, 0, telemetry.NewLogger(false))
	ctx := context.Background()

	if _, err := host1.AddMessage(ctx, "s4", ChatMessage{Role: RoleUser, Content: "remember this"}); err != nil {
		t.Fatal(err)
	}
	if _, err := host1.MergeMetadata(ctx, "s4", map[string]string{"ip": "10.0.0.9"}); err != nil {
		t.Fatal(err)
	}
	host1.Close()

	storage2, err := NewSQLiteStateStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	host2 := NewSessionHost(storage2, 0, telemetry.NewLogger(false))
	defer host2.Close()

	snap, err := host2.ListMessages(ctx, "s4")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Messages) != 1 || snap.Messages[0].Content != "remember this" {
		t.Fatalf("expected persisted message, got %+v", snap.Messages)
	}
	if snap.Metadata["ip"] != "10.0.0.9" {
		t.Errorf("expected persisted metadata, got %+v", snap.Metadata)
	}
}

func TestSessionHost_UnboundedByDefault(t *testing.T) {
	host, _ := newTestHost(t, 0)
	ctx := context.Background()

	for i := 0; i < 55; i++ {
		if _, err := host.AddMessage(ctx, "s5", ChatMessage{Role: RoleUser, Content: fmt.Sprintf("turn %d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	snap, _ := host.ListMessages(ctx, "s5")
	if len(snap.Messages) != 55 {
		t.Fatalf("no cap by default: expected 55 messages, got %d", len(snap.Messages))
	}
}

func TestSessionHost_OptionalCap(t *testing.T) {
	host, _ := newTestHost(t, 10)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		if _, err := host.AddMessage(ctx, "s6", ChatMessage{Role: RoleUser, Content: fmt.Sprintf("turn %d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	snap, _ := host.ListMessages(ctx, "s6")
	if len(snap.Messages) != 10 {
		t.Fatalf("expected 10 messages with cap, got %d", len(snap.Messages))
	}
	if snap.Messages[0].Content != "turn 5" {
		t.Errorf("expected oldest kept 'turn 5', got %q", snap.Messages[0].Content)
	}
}

func TestSessionHost_SerializesConcurrentWriters(t *testing.T) {
	host, _ := newTestHost(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := host.AddMessage(ctx, "s7", ChatMessage{Role: RoleUser, Content: fmt.Sprintf("m%d", i)}); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	snap, err := host.ListMessages(ctx, "s7")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Messages) != 20 {
		t.Fatalf("no appends may be lost: expected 20, got %d", len(snap.Messages))
	}
}

func TestSessionHost_SaveReplacesHistory(t *testing.T) {
	host, _ := newTestHost(t, 0)
	ctx := context.Background()

	if _, err := host.AddMessage(ctx, "s8", ChatMessage{Role: RoleUser, Content: "old"}); err != nil {
		t.Fatal(err)
	}
	msgs := []ChatMessage{
		{Role: RoleSystem, Content: "prompt"},
		{Role: RoleUser, Content: "new"},
	}
	if err := host.Save(ctx, "s8", msgs, map[string]string{"ip": "1.2.3.4"}); err != nil {
		t.Fatal(err)
	}

	mem, err := host.Load(ctx, "s8")
	if err != nil {
		t.Fatal(err)
	}
	if len(mem.Messages) != 2 || mem.Messages[1].Content != "new" {
		t.Fatalf("expected replaced history, got %+v", mem.Messages)
	}
	if mem.Metadata["ip"] != "1.2.3.4" {
		t.Errorf("expected metadata merged on save, got %+v", mem.Metadata)
	}
}

func TestSessionHost_Capabilities(t *testing.T) {
	host, _ := newTestHost(t, 0)
	caps := host.Capabilities()
	if caps.Expires || !caps.SerializedPerSession || caps.Capped {
		t.Errorf("unexpected session capabilities: %+v", caps)
	}

	capped, _ := newTestHost(t, 5)
	if !capped.Capabilities().Capped {
		t.Error("configured cap must be reported")
	}
}

func TestSessionHost_ReapsIdleResidents(t *testing.T) {
	host, _ := newTestHost(t, 0)
	ctx := context.Background()

	if _, err := host.AddMessage(ctx, "r1", ChatMessage{Role: RoleUser, Content: "keep me"}); err != nil {
		t.Fatal(err)
	}
	if _, err := host.AddMessage(ctx, "r2", ChatMessage{Role: RoleUser, Content: "me too"}); err != nil {
		t.Fatal(err)
	}

	reaped := host.reapIdle(time.Now().Add(sessionIdleTimeout + time.Minute))
	if reaped != 2 {
		t.Fatalf("expected 2 idle sessions evicted, got %d", reaped)
	}
	host.mu.Lock()
	resident := len(host.sessions)
	host.mu.Unlock()
	if resident != 0 {
		t.Fatalf("expected no resident sessions after reap, got %d", resident)
	}

	// Eviction is lossless: the next access re-hydrates from storage.
	snap, err := host.ListMessages(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Messages) != 1 || snap.Messages[0].Content != "keep me" {
		t.Fatalf("expected re-hydrated history, got %+v", snap.Messages)
	}
}

func TestSessionHost_ReapSkipsActiveSessions(t *testing.T) {
	host, _ := newTestHost(t, 0)
	ctx := context.Background()

	if _, err := host.AddMessage(ctx, "r3", ChatMessage{Role: RoleUser, Content: "busy"}); err != nil {
		t.Fatal(err)
	}

	// Fresh entries are not idle yet.
	if reaped := host.reapIdle(time.Now()); reaped != 0 {
		t.Fatalf("expected no evictions for fresh sessions, got %d", reaped)
	}

	// An entry mid-operation stays resident even past the idle timeout.
	e := host.entry("r3")
	e.mu.Lock()
	if reaped := host.reapIdle(time.Now().Add(sessionIdleTimeout + time.Minute)); reaped != 0 {
		t.Fatalf("expected busy session skipped, got %d evictions", reaped)
	}
	e.mu.Unlock()
}

func TestSessionHost_LoadAbsentSession(t *testing.T) {
	host, _ := newTestHost(t, 0)

	mem, err := host.Load(context.Background(), "never-used")
	if err != nil {
		t.Fatal(err)
	}
	if mem != nil {
		t.Fatalf("expected nil for a session with no state, got %+v", mem)
	}
}
