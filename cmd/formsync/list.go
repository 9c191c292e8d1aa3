package main

import (
	"github.com/spf13/cobra"
)

func newListCmd(c *cli) *cobra.Command {
	var (
		page   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List one page of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			ctrl, _, err := c.controller(args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := ctrl.Refresh(ctx); err != nil {
				return err
			}
			if page > 1 {
				if err := ctrl.GoTo(ctx, page); err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(c.stdout, ctrl.Items())
			}
			printItems(c.stdout, ctrl)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page to show (paginated kinds)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw items as JSON")
	return cmd
}

func newShowCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <kind> <id>",
		Short: "Show one entity with its relations resolved",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			ctrl, schema, err := c.controller(args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			item, err := findItem(ctx, ctrl, args[1])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.stdout, item)
			}
			printRecord(ctx, c.stdout, c.app.Resolver(), schema, item)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw entity as JSON")
	return cmd
}
