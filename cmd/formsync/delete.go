package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formsync/pkg/controller"
)

func newDeleteCmd(c *cli) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete an entity after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			ctrl, _, err := c.controller(args[0], controller.WithConfirmer(c.confirmer(assumeYes)))
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := ctrl.Refresh(ctx); err != nil {
				return err
			}
			return ctrl.Delete(ctx, args[1])
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
