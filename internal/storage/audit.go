package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
)

// AuditStore is the append-only audit sink backed by SQLite. Writes are
// fire-and-forget: persistence failures are logged and never surfaced to the
// engine's control flow.
type AuditStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewAuditStore opens (or creates) the audit database with WAL mode enabled.
func NewAuditStore(dbPath string) (*AuditStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("create audit table: %w", err)
	}

	return &AuditStore{
		db:  db,
		log: slog.Default().With(slog.String("component", "audit")),
	}, nil
}

// Write appends one audit event. It never returns an error; a sink outage
// degrades observability, not execution.
func (s *AuditStore) Write(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("audit marshal failed", slog.String("topic", topic), slog.Any("error", err))
		return
	}
	_, err = s.db.Exec(
		"INSERT INTO audit (id, topic, ts, payload) VALUES (?, ?, ?, ?)",
		uuid.NewString(), topic, time.Now().UnixMicro(), data,
	)
	if err != nil {
		s.log.Error("audit insert failed", slog.String("topic", topic), slog.Any("error", err))
	}
}

// Entry is one persisted audit event.
type Entry struct {
	ID      string
	Topic   string
	Ts      int64
	Payload []byte
}

// Tail returns the most recent n events, newest first. Used by operator
// tooling and tests; the engine itself never reads back.
func (s *AuditStore) Tail(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, topic, ts, payload FROM audit ORDER BY ts DESC, id LIMIT ?", n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Topic, &e.Ts, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *AuditStore) Close() error {
	return s.db.Close()
}
