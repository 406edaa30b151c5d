// Package sqlite is a single-file SQLite storage.Backend (pure Go driver).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS player_modes (
	player_id        TEXT PRIMARY KEY,
	is_pve           INTEGER NOT NULL,
	last_switch_time TEXT NOT NULL,
	last_seen_time   TEXT NOT NULL
);`

// Storage is a SQLite implementation of storage.Backend.
type Storage struct {
	db *sql.DB
}

var _ storage.Backend = (*Storage)(nil)

// Open opens (creating if needed) the database at path.
func Open(path string) (*Storage, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// One writer; the mode store already serializes mutations.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		schema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initializing sqlite: %w", err)
		}
	}

	return &Storage{db: db}, nil
}

// Load reads every row.
func (s *Storage) Load(ctx context.Context) (storage.Records, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, is_pve, last_switch_time, last_seen_time FROM player_modes`)
	if err != nil {
		return nil, fmt.Errorf("querying player modes: %w", err)
	}
	defer rows.Close()

	records := make(storage.Records, 64)
	for rows.Next() {
		var (
			rawID, lastSwitch, lastSeen string
			isPvE                       bool
		)
		if err := rows.Scan(&rawID, &isPvE, &lastSwitch, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning player mode row: %w", err)
		}

		id, err := model.ParsePlayerID(rawID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrCorrupt, err)
		}
		rec := model.ModeRecord{Mode: model.ModePvP}
		if isPvE {
			rec.Mode = model.ModePvE
		}
		if rec.LastSwitchTime, err = time.Parse(time.RFC3339Nano, lastSwitch); err != nil {
			return nil, fmt.Errorf("%w: player %s last_switch_time: %w", storage.ErrCorrupt, id, err)
		}
		if rec.LastSeenTime, err = time.Parse(time.RFC3339Nano, lastSeen); err != nil {
			return nil, fmt.Errorf("%w: player %s last_seen_time: %w", storage.ErrCorrupt, id, err)
		}
		records[id] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating player mode rows: %w", err)
	}
	return records, nil
}

// Save upserts the changed records in one transaction.
func (s *Storage) Save(ctx context.Context, all storage.Records, changed []model.PlayerID) error {
	ids := storage.ChangedOrAll(all, changed)
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO player_modes (player_id, is_pve, last_switch_time, last_seen_time)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			is_pve = excluded.is_pve,
			last_switch_time = excluded.last_switch_time,
			last_seen_time = excluded.last_seen_time`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		rec, ok := all[id]
		if !ok {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			id.String(),
			rec.IsPvE(),
			rec.LastSwitchTime.UTC().Format(time.RFC3339Nano),
			rec.LastSeenTime.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("upserting player %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing player modes: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}
