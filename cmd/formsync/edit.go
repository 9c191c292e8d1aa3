package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formsync/pkg/controller"
	"github.com/goliatone/go-formsync/pkg/errs"
	"github.com/goliatone/go-formsync/pkg/form"
	"github.com/goliatone/go-formsync/pkg/prompt"
)

// errCancelled is returned when the user declines to save.
var errCancelled = errors.New("cancelled")

func newCreateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "create <kind>",
		Short: "Create an entity interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, err := c.controller(args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			session, err := ctrl.New(cmd.Context())
			if err != nil {
				return err
			}
			return c.runSession(cmd.Context(), ctrl, session)
		},
	}
}

func newEditCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <kind> <id>",
		Short: "Edit an existing entity interactively",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, err := c.controller(args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			lookup, cancel := withTimeout(cmd)
			item, err := findItem(lookup, ctrl, args[1])
			cancel()
			if err != nil {
				return err
			}

			session, err := ctrl.Select(cmd.Context(), item)
			if err != nil {
				return err
			}
			return c.runSession(cmd.Context(), ctrl, session)
		},
	}
}

// runSession prompts for every field, previews the pending changes and
// submits. A failed submit keeps the values and offers another pass.
func (c *cli) runSession(ctx context.Context, ctrl *controller.Controller, session *form.Session) error {
	ed := c.editor()
	for {
		if err := ed.Edit(ctx, session); err != nil {
			ctrl.Cancel()
			return err
		}

		changes, err := session.Changes()
		if err != nil {
			c.logger.WithError(err).Warn("could not compute pending changes")
		} else {
			fmt.Fprintf(c.stdout, "Pending changes to %s:\n", session.Schema().Kind)
			printChanges(c.stdout, changes)
		}

		save, err := c.driver.Confirm(ctx, prompt.ConfirmConfig{
			Message: fmt.Sprintf("Save %s?", session.Schema().Kind),
			Default: true,
		})
		if err != nil {
			ctrl.Cancel()
			return err
		}
		if !save {
			ctrl.Cancel()
			return errCancelled
		}

		_, submitErr := ctrl.Submit(ctx)
		if submitErr == nil {
			return nil
		}
		if e, ok := errs.As(submitErr); ok && len(e.Fields) > 0 {
			for _, name := range e.FieldNames() {
				for _, msg := range e.Fields[name] {
					fmt.Fprintf(c.stderr, "  %s: %s\n", name, msg)
				}
			}
		}

		retry, err := c.driver.Confirm(ctx, prompt.ConfirmConfig{Message: "Edit again?", Default: true})
		if err != nil || !retry {
			ctrl.Cancel()
			return submitErr
		}
	}
}
