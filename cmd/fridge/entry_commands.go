package main

import (
	"fmt"
	"strconv"
	"time"

	"fridge/internal/fridge"

	"github.com/spf13/cobra"
)

func newEntryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Manage fridges and grocery lists",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Create an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			e := fridge.NewEntry(args[0], time.Now())
			err = st.PutEntry(cmd.Context(), e)
			ctx.audit(cmd.Context(), "entry.add", e.ID, err, e.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created entry %s (%s)\n", e.Name, shortID(e.ID))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			entries, err := st.ListEntries(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				items, err := st.ListItems(cmd.Context(), e.ID)
				if err != nil {
					return err
				}
				live := 0
				for _, it := range items {
					if !it.IsArchived() {
						live++
					}
				}
				rows = append(rows, []string{shortID(e.ID), e.Name, strconv.Itoa(live), ago(e.CreatedTime)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Items", "Created"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm ENTRY",
		Short: "Delete an entry and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			e, err := resolveEntry(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			err = st.DeleteEntry(cmd.Context(), e.ID)
			ctx.audit(cmd.Context(), "entry.rm", e.ID, err, e.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %s\n", e.Name)
			return nil
		},
	})

	return cmd
}
