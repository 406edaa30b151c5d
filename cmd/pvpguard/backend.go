package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/udisondev/pvpguard/internal/config"
	"github.com/udisondev/pvpguard/internal/db"
	"github.com/udisondev/pvpguard/internal/storage"
	"github.com/udisondev/pvpguard/internal/storage/jsonfile"
	"github.com/udisondev/pvpguard/internal/storage/memory"
	redisstore "github.com/udisondev/pvpguard/internal/storage/redis"
	"github.com/udisondev/pvpguard/internal/storage/sqlite"
)

// openBackend opens the configured storage backend. The returned cleanup
// releases it and is never nil.
func openBackend(ctx context.Context, c config.Config) (storage.Backend, func(), error) {
	switch c.Storage.Backend {
	case config.BackendJSON:
		s, err := jsonfile.New(c.Storage.JSONPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening json storage: %w", err)
		}
		return s, func() {}, nil

	case config.BackendSQLite:
		s, err := sqlite.Open(c.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite storage: %w", err)
		}
		return s, closeLogged("sqlite", s.Close), nil

	case config.BackendRedis:
		s, err := redisstore.New(ctx, c.Storage.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return s, closeLogged("redis", s.Close), nil

	case config.BackendPostgres:
		dsn := c.Storage.Database.DSN()
		database, err := db.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		version, err := db.RunMigrations(ctx, dsn)
		if err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database schema ready", "version", version)
		return db.NewModeRepository(database.Pool()), database.Close, nil

	case config.BackendMemory:
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
}

func closeLogged(name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			slog.Warn("closing storage", "backend", name, "error", err)
		}
	}
}
