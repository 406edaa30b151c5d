package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/storage"
)

// ModeRepository persists player mode records in the player_modes table.
// Implements storage.Backend.
//
// Player ids are stored as BIGINT holding the two's-complement int64 of the
// uint64 id, so every id round-trips.
type ModeRepository struct {
	db *pgxpool.Pool
}

var _ storage.Backend = (*ModeRepository)(nil)

// NewModeRepository creates a new ModeRepository.
func NewModeRepository(db *pgxpool.Pool) *ModeRepository {
	return &ModeRepository{db: db}
}

// Load reads all player mode rows.
func (r *ModeRepository) Load(ctx context.Context) (storage.Records, error) {
	query := `
		SELECT player_id, is_pve, last_switch_time, last_seen_time
		FROM player_modes
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying player modes: %w", err)
	}
	defer rows.Close()

	result := make(storage.Records, 64)
	for rows.Next() {
		var (
			id                   int64
			isPvE                bool
			lastSwitch, lastSeen time.Time
		)
		if err := rows.Scan(&id, &isPvE, &lastSwitch, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning player mode row: %w", err)
		}

		rec := model.ModeRecord{
			Mode:           model.ModePvP,
			LastSwitchTime: lastSwitch.UTC(),
			LastSeenTime:   lastSeen.UTC(),
		}
		if isPvE {
			rec.Mode = model.ModePvE
		}
		result[model.PlayerID(uint64(id))] = rec
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating player mode rows: %w", err)
	}

	return result, nil
}

// Save upserts the changed records within one transaction.
func (r *ModeRepository) Save(ctx context.Context, all storage.Records, changed []model.PlayerID) error {
	ids := storage.ChangedOrAll(all, changed)
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction for player modes: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			slog.Error("rollback failed", "error", err)
		}
	}()

	query := `
		INSERT INTO player_modes (player_id, is_pve, last_switch_time, last_seen_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id) DO UPDATE SET
			is_pve = EXCLUDED.is_pve,
			last_switch_time = EXCLUDED.last_switch_time,
			last_seen_time = EXCLUDED.last_seen_time
	`

	batch := &pgx.Batch{}
	for _, id := range ids {
		rec, ok := all[id]
		if !ok {
			continue
		}
		batch.Queue(query, int64(uint64(id)), rec.IsPvE(), rec.LastSwitchTime, rec.LastSeenTime)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting %d player modes: %w", batch.Len(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit player modes: %w", err)
	}

	slog.Debug("saved player modes", "count", batch.Len())
	return nil
}

// Close is a no-op: the pool is owned by DB.
func (r *ModeRepository) Close() error { return nil }
