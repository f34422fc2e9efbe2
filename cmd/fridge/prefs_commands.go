package main

import (
	"fmt"
	"strconv"

	"fridge/internal/preferences"

	"github.com/spf13/cobra"
)

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change reminder preferences",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show preferences and when each reminder last fired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.open()
			if err != nil {
				return err
			}
			snap, err := a.Prefs().Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Preference", "Value"}, [][]string{
				{"expiring_days", strconv.Itoa(snap.ExpiringDays)},
				{"same_day_expired", strconv.FormatBool(snap.SameDayExpired)},
				{"dnd_enabled", strconv.FormatBool(snap.DNDEnabled)},
			}, nil))
			rows := make([][]string, 0, len(snap.LastNotified))
			for _, cat := range preferences.Categories {
				rows = append(rows, []string{string(cat), ago(snap.LastNotified[cat])})
			}
			fmt.Fprintln(out, renderTable([]string{"Reminder", "Last sent"}, rows, nil))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change a preference (expiring_days, same_day_expired, dnd_enabled)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.open()
			if err != nil {
				return err
			}
			err = a.Prefs().Set(cmd.Context(), args[0], args[1])
			ctx.audit(cmd.Context(), "prefs.set", args[0], err, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	})
	return cmd
}
