package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/udisondev/pvpguard/internal/config"
)

// cfg is loaded by the root command before any subcommand runs.
var cfg config.Config

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "pvpguard",
		Short: "Combat authorization server for PvE/PvP game servers",
		Long: `pvpguard decides whether player damage is allowed, based on each
player's chosen mode (PvE or PvP) and proximity to claimed bases.

Game engines connect over a websocket bridge and submit damage events,
chat commands and presence updates.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := config.ResolvePath(configPath)
			loaded, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg = loaded

			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: parseLogLevel(cfg.LogLevel),
			})))
			slog.Debug("config loaded", "path", path, "backend", cfg.Storage.Backend)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file path (env: "+config.EnvConfigPath+", default "+config.DefaultPath+")")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPlayersCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newTokenCmd())

	return rootCmd
}
