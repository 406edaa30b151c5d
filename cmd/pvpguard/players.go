package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/notify"
	"github.com/udisondev/pvpguard/internal/storage"
)

func newPlayersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "Inspect persisted player modes",
	}
	cmd.AddCommand(newPlayersListCmd())
	cmd.AddCommand(newPlayersShowCmd())
	return cmd
}

func newPlayersListCmd() *cobra.Command {
	var modeFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every player with a mode record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter *model.Mode
			if modeFilter != "" {
				m, err := model.ParseMode(modeFilter)
				if err != nil {
					return err
				}
				filter = &m
			}

			records, err := loadRecords(cmd)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records, filter, time.Now())
		},
	}
	cmd.Flags().StringVar(&modeFilter, "mode", "", "Only list players in this mode (pve or pvp)")
	return cmd
}

func newPlayersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <player-id>",
		Short: "Show the mode record of one player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParsePlayerID(args[0])
			if err != nil {
				return err
			}

			records, err := loadRecords(cmd)
			if err != nil {
				return err
			}
			rec, ok := records[id]
			if !ok {
				return fmt.Errorf("player %s has no mode record", id)
			}
			return printRecord(cmd.OutOrStdout(), id, rec, time.Now())
		},
	}
}

func loadRecords(cmd *cobra.Command) (storage.Records, error) {
	backend, closeBackend, err := openBackend(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	defer closeBackend()

	records, err := backend.Load(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("loading player modes: %w", err)
	}
	return records, nil
}

func printRecords(out io.Writer, records storage.Records, filter *model.Mode, now time.Time) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAYER\tMODE\tLAST SWITCH\tLAST SEEN\tCOOLDOWN")

	for _, id := range slices.Sorted(maps.Keys(records)) {
		rec := records[id]
		if filter != nil && rec.Mode != *filter {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			id, rec.Mode.Label(), formatTime(rec.LastSwitchTime), formatTime(rec.LastSeenTime), cooldownLeft(rec, now))
	}
	return tw.Flush()
}

func printRecord(out io.Writer, id model.PlayerID, rec model.ModeRecord, now time.Time) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Player:\t%s\n", id)
	fmt.Fprintf(tw, "Mode:\t%s\n", rec.Mode.Label())
	fmt.Fprintf(tw, "Last switch:\t%s\n", formatTime(rec.LastSwitchTime))
	fmt.Fprintf(tw, "Last seen:\t%s\n", formatTime(rec.LastSeenTime))
	fmt.Fprintf(tw, "Switch available in:\t%s\n", cooldownLeft(rec, now))
	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}

func cooldownLeft(rec model.ModeRecord, now time.Time) string {
	if !rec.HasSwitched() {
		return "-"
	}
	left := cfg.Mode.SwitchCooldown - now.Sub(rec.LastSwitchTime)
	if left <= 0 {
		return "-"
	}
	days, hours := notify.DaysHours(left)
	return fmt.Sprintf("%dd %dh", days, hours)
}
