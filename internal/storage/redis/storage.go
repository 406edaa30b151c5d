// Package redis is a Redis-backed storage.Backend: one hash per player plus
// an index set of known ids.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/storage"
)

// Storage is a Redis implementation of storage.Backend.
type Storage struct {
	client *redis.Client
	prefix string
}

var _ storage.Backend = (*Storage)(nil)

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	opts.ContextTimeoutEnabled = true

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return NewWithClient(client, cfg.KeyPrefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string) *Storage {
	if prefix == "" {
		prefix = DefaultConfig().KeyPrefix
	}
	return &Storage{client: client, prefix: prefix}
}

// Client returns the underlying client (shared with the notice publisher).
func (s *Storage) Client() *redis.Client { return s.client }

// Load reads every indexed player hash.
func (s *Storage) Load(ctx context.Context) (storage.Records, error) {
	members, err := s.client.SMembers(ctx, playersIndexKey(s.prefix)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}

	ids := make([]model.PlayerID, 0, len(members))
	for _, m := range members {
		id, err := model.ParsePlayerID(m)
		if err != nil {
			return nil, fmt.Errorf("%w: index member: %w", storage.ErrCorrupt, err)
		}
		ids = append(ids, id)
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, playerKey(s.prefix, id))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("reading player hashes: %w", err)
		}
	}

	records := make(storage.Records, len(ids))
	for i, id := range ids {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue // indexed but hash expired or deleted by hand
		}
		rec, err := decodeRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: player %s: %w", storage.ErrCorrupt, id, err)
		}
		records[id] = rec
	}
	return records, nil
}

// Save upserts the changed records in one MULTI/EXEC.
func (s *Storage) Save(ctx context.Context, all storage.Records, changed []model.PlayerID) error {
	ids := storage.ChangedOrAll(all, changed)
	if len(ids) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			rec, ok := all[id]
			if !ok {
				continue
			}
			pipe.HSet(ctx, playerKey(s.prefix, id), encodeRecord(rec))
			pipe.SAdd(ctx, playersIndexKey(s.prefix), id.String())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving %d player records: %w", len(ids), err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Storage) Close() error {
	return s.client.Close()
}

func encodeRecord(rec model.ModeRecord) map[string]any {
	return map[string]any{
		fieldMode:       rec.Mode.String(),
		fieldLastSwitch: rec.LastSwitchTime.UTC().Format(time.RFC3339Nano),
		fieldLastSeen:   rec.LastSeenTime.UTC().Format(time.RFC3339Nano),
	}
}

func decodeRecord(fields map[string]string) (model.ModeRecord, error) {
	var rec model.ModeRecord

	mode, err := model.ParseMode(fields[fieldMode])
	if err != nil {
		return rec, err
	}
	rec.Mode = mode

	if rec.LastSwitchTime, err = time.Parse(time.RFC3339Nano, fields[fieldLastSwitch]); err != nil {
		return rec, fmt.Errorf("parsing %s: %w", fieldLastSwitch, err)
	}
	if rec.LastSeenTime, err = time.Parse(time.RFC3339Nano, fields[fieldLastSeen]); err != nil {
		return rec, fmt.Errorf("parsing %s: %w", fieldLastSeen, err)
	}
	return rec, nil
}
