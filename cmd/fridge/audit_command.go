package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent operator actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			entries, err := st.ListAudit(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No audit entries")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				result := "ok"
				if !e.OK {
					result = "error: " + e.Error
				}
				rows = append(rows, []string{ago(e.At), e.Actor, e.Action, shortID(e.Target), e.Meta, result})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"When", "Who", "Action", "Target", "Detail", "Result"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries")
	return cmd
}
