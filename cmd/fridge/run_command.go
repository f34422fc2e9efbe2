package main

import (
	"fmt"

	"fridge/internal/butler"

	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:       "run items|location|nightly",
		Short:     "Run one reminder pass now",
		Long:      "Run one reminder pass now and wait for its notifications. Throttles and quiet hours apply; --force skips the resend period but not quiet hours.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"items", "location", "nightly"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := butler.ParseKind(args[0])
			if err != nil {
				return err
			}
			a, err := ctx.open()
			if err != nil {
				return err
			}
			res, err := a.RunOnce(cmd.Context(), kind, force)
			ctx.audit(cmd.Context(), "run."+string(kind), string(kind), err, res.String())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", kind, res)
			if res.Failed() {
				return fmt.Errorf("%s pass %s", kind, res)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Ignore the resend period")
	return cmd
}
