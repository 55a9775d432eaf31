// Package persistence provides SQLite-based colony storage: compressed
// snapshots per save slot, the archived colony log and finished runs.
package persistence

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pierrec/lz4/v4"
	_ "modernc.org/sqlite"

	"github.com/talgya/frost-haven/internal/colony"
	"github.com/talgya/frost-haven/internal/engine"
)

// DefaultSlot is the save slot used when none is configured.
const DefaultSlot = "frost_haven_save_v3"

// ErrNoSnapshot is returned when a slot holds no save.
var ErrNoSnapshot = errors.New("no saved colony")

// DB wraps a SQLite connection for colony persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Autosaves and log appends come from separate goroutines.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		slot TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		day INTEGER NOT NULL,
		survivors INTEGER NOT NULL,
		state BLOB NOT NULL,
		saved_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slot TEXT NOT NULL,
		tick INTEGER NOT NULL,
		day INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		slot TEXT NOT NULL,
		outcome TEXT NOT NULL,
		days INTEGER NOT NULL,
		survivors INTEGER NOT NULL,
		max_survivors INTEGER NOT NULL,
		score INTEGER NOT NULL,
		ended_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS colony_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_slot ON events(slot, id);
	CREATE INDEX IF NOT EXISTS idx_runs_score ON runs(score DESC);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Snapshot is the metadata of a stored save.
type Snapshot struct {
	Slot      string    `db:"slot"`
	ID        string    `db:"id"`
	Day       int       `db:"day"`
	Survivors int       `db:"survivors"`
	SavedAt   time.Time `db:"saved_at"`
}

// SaveSnapshot replaces the save in slot and returns the new save id.
func (db *DB) SaveSnapshot(ctx context.Context, slot string, st *colony.State) (string, error) {
	data, err := colony.Encode(st)
	if err != nil {
		return "", err
	}
	blob, err := compress(data)
	if err != nil {
		return "", fmt.Errorf("compress snapshot: %w", err)
	}

	id := uuid.NewString()
	_, err = db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (slot, id, day, survivors, state, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		slot, id, st.Day, st.Survivors, blob, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	slog.Debug("colony saved", "slot", slot, "id", id, "day", st.Day, "bytes", len(blob))
	return id, nil
}

// LoadSnapshot restores the colony saved in slot. A missing save returns
// ErrNoSnapshot; a corrupt one returns a decode error.
func (db *DB) LoadSnapshot(ctx context.Context, slot string) (*colony.State, error) {
	var blob []byte
	err := db.conn.GetContext(ctx, &blob, "SELECT state FROM snapshots WHERE slot = ?", slot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	data, err := decompress(blob)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	return colony.Decode(data)
}

// SnapshotInfo returns metadata for the save in slot.
func (db *DB) SnapshotInfo(ctx context.Context, slot string) (Snapshot, error) {
	var s Snapshot
	err := db.conn.GetContext(ctx, &s,
		"SELECT slot, id, day, survivors, saved_at FROM snapshots WHERE slot = ?", slot)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	return s, err
}

// DeleteSnapshot purges the save in slot along with its archived log.
func (db *DB) DeleteSnapshot(ctx context.Context, slot string) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE slot = ?", slot); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM events WHERE slot = ?", slot); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	return tx.Commit()
}

// AppendLog archives colony log entries.
func (db *DB) AppendLog(ctx context.Context, slot string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx,
		"INSERT INTO events (slot, tick, day, description, category) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, slot, e.Tick, e.Day, e.Description, e.Category); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// RecentLog returns the most recent n archived entries, newest first.
func (db *DB) RecentLog(ctx context.Context, slot string, n int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.SelectContext(ctx, &events,
		"SELECT tick, day, description, category FROM events WHERE slot = ? ORDER BY id DESC LIMIT ?",
		slot, n,
	)
	return events, err
}

// Run is a finished game.
type Run struct {
	ID           string    `db:"id" json:"id"`
	Slot         string    `db:"slot" json:"slot"`
	Outcome      string    `db:"outcome" json:"outcome"`
	Days         int       `db:"days" json:"days"`
	Survivors    int       `db:"survivors" json:"survivors"`
	MaxSurvivors int       `db:"max_survivors" json:"max_survivors"`
	Score        int       `db:"score" json:"score"`
	EndedAt      time.Time `db:"ended_at" json:"ended_at"`
}

// RecordRun stores a finished game.
func (db *DB) RecordRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.EndedAt.IsZero() {
		r.EndedAt = time.Now().UTC()
	}
	_, err := db.conn.NamedExecContext(ctx,
		`INSERT INTO runs (id, slot, outcome, days, survivors, max_survivors, score, ended_at)
		VALUES (:id, :slot, :outcome, :days, :survivors, :max_survivors, :score, :ended_at)`, r)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// BestRuns returns finished games ordered by days survived, then score.
func (db *DB) BestRuns(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.SelectContext(ctx, &runs,
		`SELECT id, slot, outcome, days, survivors, max_survivors, score, ended_at
		FROM runs ORDER BY days DESC, score DESC LIMIT ?`, limit)
	return runs, err
}

// SaveMeta stores a key-value pair in colony metadata.
func (db *DB) SaveMeta(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO colony_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.GetContext(ctx, &value, "SELECT value FROM colony_meta WHERE key = ?", key)
	return value, err
}

func compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(src []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
}
