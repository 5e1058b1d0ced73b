package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *AuditStore {
	t.Helper()
	store, err := NewAuditStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewAuditStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAuditStore_WriteAndTail(t *testing.T) {
	store := newTestStore(t)

	store.Write("intent.accepted", map[string]string{"intentId": "abc", "symbol": "BTCUSDT"})
	store.Write("order.placed", map[string]string{"intentId": "abc", "orderId": "o1"})

	entries, err := store.Tail(context.Background(), 10)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].Topic != "order.placed" || entries[1].Topic != "intent.accepted" {
		t.Errorf("topics = %s, %s", entries[0].Topic, entries[1].Topic)
	}

	var payload map[string]string
	if err := json.Unmarshal(entries[1].Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload["intentId"] != "abc" || payload["symbol"] != "BTCUSDT" {
		t.Errorf("payload = %v", payload)
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Error("entries must carry distinct non-empty ids")
	}
	if entries[0].Ts == 0 {
		t.Error("timestamp missing")
	}
}

func TestAuditStore_TailLimit(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		store.Write("reconcile.snapshot", map[string]int{"tick": i})
	}
	entries, err := store.Tail(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
}

func TestAuditStore_WriteNeverPanicsOnBadPayload(t *testing.T) {
	store := newTestStore(t)
	// A channel is not JSON-marshalable; the write is dropped, not fatal.
	store.Write("intent.accepted", make(chan int))

	entries, err := store.Tail(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("unmarshalable payload was persisted: %+v", entries)
	}
}

func TestAuditStore_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	store, err := NewAuditStore(path)
	if err != nil {
		t.Fatal(err)
	}
	store.Write("kill.switch", map[string]string{"symbol": "BTCUSDT"})
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewAuditStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	entries, err := reopened.Tail(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Topic != "kill.switch" {
		t.Errorf("entries after reopen = %+v", entries)
	}
}
