package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formsync/pkg/controller"
	"github.com/goliatone/go-formsync/pkg/prompt"
)

const (
	actionNew     = "New"
	actionPrev    = "Previous page"
	actionNext    = "Next page"
	actionRefresh = "Refresh"
	actionQuit    = "Quit"

	itemEdit   = "Edit"
	itemDelete = "Delete"
	itemBack   = "Back"
)

func newManageCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "manage <kind>",
		Short: "Browse a collection and create, edit or delete entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, err := c.controller(args[0], controller.WithConfirmer(c.confirmer(false)))
			if err != nil {
				return err
			}
			defer ctrl.Close()
			return c.manage(cmd.Context(), ctrl)
		},
	}
}

// manage runs the list/detail loop until the user quits. List failures are
// reported by the controller notifier and leave the loop running.
func (c *cli) manage(ctx context.Context, ctrl *controller.Controller) error {
	schema := ctrl.Schema()
	_ = ctrl.Refresh(ctx)

	for {
		items := ctrl.Items()
		options := make([]string, 0, len(items)+5)
		for _, item := range items {
			options = append(options, schema.Summary(item))
		}
		actions := []string{actionNew}
		if ctrl.HasPrev() {
			actions = append(actions, actionPrev)
		}
		if ctrl.HasNext() {
			actions = append(actions, actionNext)
		}
		actions = append(actions, actionRefresh, actionQuit)
		options = append(options, actions...)

		message := schema.Title
		if schema.Paginated && ctrl.TotalPages() > 0 {
			message = fmt.Sprintf("%s (page %d/%d)", schema.Title, ctrl.Page(), ctrl.TotalPages())
		}
		idx, err := c.driver.Select(ctx, prompt.SelectConfig{Message: message, Options: options})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(options) {
			continue
		}

		if idx < len(items) {
			if err := c.manageItem(ctx, ctrl, items[idx]); err != nil {
				return err
			}
			continue
		}

		switch options[idx] {
		case actionNew:
			session, err := ctrl.New(ctx)
			if err != nil {
				return err
			}
			if err := c.runSession(ctx, ctrl, session); err != nil && !recoverable(err) {
				return err
			}
		case actionPrev:
			_ = ctrl.Prev(ctx)
		case actionNext:
			_ = ctrl.Next(ctx)
		case actionRefresh:
			if err := ctrl.Refresh(ctx); errors.Is(err, controller.ErrLoading) {
				fmt.Fprintln(c.stdout, "Still loading")
			}
		case actionQuit:
			return nil
		}
	}
}

func (c *cli) manageItem(ctx context.Context, ctrl *controller.Controller, item map[string]any) error {
	schema := ctrl.Schema()
	printRecord(ctx, c.stdout, c.app.Resolver(), schema, item)

	choices := []string{itemEdit, itemDelete, itemBack}
	idx, err := c.driver.Select(ctx, prompt.SelectConfig{Message: schema.Summary(item), Options: choices})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(choices) {
		return nil
	}

	switch choices[idx] {
	case itemEdit:
		session, err := ctrl.Select(ctx, item)
		if err != nil {
			return err
		}
		if err := c.runSession(ctx, ctrl, session); err != nil && !recoverable(err) {
			return err
		}
	case itemDelete:
		// Delete outcomes are reported through the notifier.
		_ = ctrl.Delete(ctx, itemID(schema, item))
	}
	return nil
}

// recoverable reports whether the loop should continue after err.
func recoverable(err error) bool {
	if errors.Is(err, prompt.ErrAborted) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, prompt.ErrNoAnswer) {
		return false
	}
	return true
}
