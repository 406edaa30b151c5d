package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/udisondev/pvpguard/internal/config"
	"github.com/udisondev/pvpguard/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Storage.Backend != config.BackendPostgres {
				return fmt.Errorf("migrations apply to the postgres backend only (configured: %s)", cfg.Storage.Backend)
			}
			version, err := db.RunMigrations(cmd.Context(), cfg.Storage.Database.DSN())
			if err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			slog.Info("database schema ready", "version", version)
			return nil
		},
	}
}
