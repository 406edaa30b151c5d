package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/udisondev/pvpguard/internal/api"
	"github.com/udisondev/pvpguard/internal/bridge"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue engine tokens and hash admin tokens",
	}
	cmd.AddCommand(newTokenEngineCmd())
	cmd.AddCommand(newTokenHashCmd())
	return cmd
}

func newTokenEngineCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "engine <server-name>",
		Short: "Issue a bridge token for a game engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Bridge.JWTSecret == "" {
				return fmt.Errorf("bridge.jwt_secret is not configured")
			}
			token, err := bridge.NewAuth([]byte(cfg.Bridge.JWTSecret)).IssueToken(args[0], ttl)
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", bridge.DefaultTokenTTL, "Token lifetime")
	return cmd
}

func newTokenHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <admin-token>",
		Short: "Print the bcrypt hash to store as admin.token_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := api.HashToken(args[0])
			if err != nil {
				return fmt.Errorf("hashing token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
