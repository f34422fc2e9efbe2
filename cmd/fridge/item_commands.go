package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"fridge/internal/fridge"

	"github.com/spf13/cobra"
)

func newItemCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage items",
	}
	cmd.AddCommand(newItemAddCommand(ctx))
	cmd.AddCommand(newItemListCommand(ctx))
	cmd.AddCommand(newItemArchiveCommand(ctx, "consume", "consumed", "Mark an item as eaten", fridge.Item.Consume))
	cmd.AddCommand(newItemArchiveCommand(ctx, "spoil", "spoiled", "Mark an item as gone off", fridge.Item.Spoil))
	cmd.AddCommand(&cobra.Command{
		Use:   "rm ITEM",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			it, err := resolveItem(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			err = st.DeleteItem(cmd.Context(), it.ID)
			ctx.audit(cmd.Context(), "item.rm", it.ID, err, it.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", it.Name)
			return nil
		},
	})
	return cmd
}

func newItemAddCommand(ctx *commandContext) *cobra.Command {
	var (
		need     bool
		count    int
		expires  string
		category string
	)
	cmd := &cobra.Command{
		Use:   "add ENTRY NAME",
		Short: "Add an item you have (or need, with --need)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			e, err := resolveEntry(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			now := time.Now()
			presence := fridge.Have
			if need {
				presence = fridge.Need
			}
			it := fridge.NewItem(e.ID, args[1], presence, now).WithCount(count).WithCategory(category)
			if presence == fridge.Have {
				it = it.WithPurchaseTime(now)
			}
			if expires != "" {
				t, err := parseExpiry(expires, now)
				if err != nil {
					return err
				}
				it = it.WithExpireTime(t)
			}
			err = st.PutItem(cmd.Context(), it)
			ctx.audit(cmd.Context(), "item.add", it.ID, err, fmt.Sprintf("%s in %s", it.Name, e.Name))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s (%s)\n", it.Name, e.Name, shortID(it.ID))
			return nil
		},
	}
	cmd.Flags().BoolVar(&need, "need", false, "Put the item on the shopping list")
	cmd.Flags().IntVar(&count, "count", 1, "Quantity")
	cmd.Flags().StringVar(&expires, "expires", "", "Expiry date (YYYY-MM-DD) or offset in days (3d)")
	cmd.Flags().StringVar(&category, "category", "", "Category id")
	return cmd
}

func newItemListCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list [ENTRY]",
		Short: "List items, soonest expiry first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			entryID := ""
			if len(args) == 1 {
				e, err := resolveEntry(cmd.Context(), st, args[0])
				if err != nil {
					return err
				}
				entryID = e.ID
			}
			items, err := st.ListItems(cmd.Context(), entryID)
			if err != nil {
				return err
			}
			now := time.Now()
			var shown []fridge.Item
			for _, it := range items {
				if all || !it.IsArchived() {
					shown = append(shown, it)
				}
			}
			if len(shown) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No items")
				return nil
			}
			sortByExpiry(shown)
			rows := make([][]string, 0, len(shown))
			for _, it := range shown {
				rows = append(rows, []string{shortID(it.ID), it.Name, strconv.Itoa(it.Count), string(it.Presence), itemState(it, now)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Count", "Presence", "State"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include consumed and spoiled items")
	return cmd
}

// sortByExpiry puts dated items first, earliest expiry first, then by name.
func sortByExpiry(items []fridge.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].ExpireTime, items[j].ExpireTime
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		case (a == nil) != (b == nil):
			return a != nil
		default:
			return items[i].Name < items[j].Name
		}
	})
}

func newItemArchiveCommand(ctx *commandContext, verb, past, short string, archive func(fridge.Item, time.Time) (fridge.Item, error)) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " ITEM",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			it, err := resolveItem(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			err = archiveItem(cmd.Context(), it, archive, func(c context.Context, done fridge.Item) error {
				return st.PutItem(c, done)
			})
			ctx.audit(cmd.Context(), "item."+verb, it.ID, err, it.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", it.Name, past)
			return nil
		},
	}
}

func archiveItem(ctx context.Context, it fridge.Item, archive func(fridge.Item, time.Time) (fridge.Item, error), save func(context.Context, fridge.Item) error) error {
	if it.IsArchived() {
		return fmt.Errorf("%s is already archived", it.Name)
	}
	done, err := archive(it, time.Now())
	if err != nil {
		return err
	}
	return save(ctx, done)
}
