package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formsync"
	"github.com/goliatone/go-formsync/internal/logging"
	"github.com/goliatone/go-formsync/pkg/config"
	"github.com/goliatone/go-formsync/pkg/controller"
	"github.com/goliatone/go-formsync/pkg/editor"
	"github.com/goliatone/go-formsync/pkg/entity"
	"github.com/goliatone/go-formsync/pkg/prompt"
)

// commandTimeout bounds the non-interactive commands.
const commandTimeout = 30 * time.Second

// cli carries the process streams and the state built by the root command.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	driver prompt.Driver

	configFile string
	envFiles   []string
	apiURL     string
	logLevel   string

	app    *formsync.App
	logger *logrus.Logger
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "formsync",
		Short:         "Browse and edit organizations, teams, personnel, games and genres",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	cmd.SetOut(c.stdout)
	cmd.SetErr(c.stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "YAML configuration file")
	flags.StringSliceVar(&c.envFiles, "env-file", nil, "dotenv files to load (default .env, .env.local)")
	flags.StringVar(&c.apiURL, "api-url", "", "API base URL (overrides FORMSYNC_API_URL)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error, silent")

	cmd.AddCommand(
		newListCmd(c),
		newShowCmd(c),
		newCreateCmd(c),
		newEditCmd(c),
		newDeleteCmd(c),
		newManageCmd(c),
		newSchemaCmd(c),
	)
	return cmd
}

func (c *cli) setup() error {
	files := append([]string(nil), c.envFiles...)
	if c.configFile != "" {
		files = append([]string{c.configFile}, files...)
	}
	cfg, err := config.Resolve(files...)
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.APIURL = c.apiURL
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, c.stderr)
	if err != nil {
		return err
	}
	c.logger = logger

	if c.driver == nil {
		c.driver = prompt.NewSurvey(c.stdout)
	}

	app, err := formsync.New(cfg,
		formsync.WithLogger(logger),
		formsync.WithNotifier(controller.NotifierFunc(c.notify)),
	)
	if err != nil {
		return err
	}
	c.app = app
	return nil
}

func (c *cli) notify(n controller.Notice) {
	if n.Level == controller.LevelError {
		fmt.Fprintln(c.stderr, n.Message)
		return
	}
	fmt.Fprintln(c.stdout, n.Message)
}

// confirmer asks through the prompt driver, or approves everything when
// assumeYes is set.
func (c *cli) confirmer(assumeYes bool) controller.Confirmer {
	if assumeYes {
		return controller.AlwaysConfirm
	}
	return controller.ConfirmFunc(func(ctx context.Context, message string) (bool, error) {
		return c.driver.Confirm(ctx, prompt.ConfirmConfig{Message: message})
	})
}

func (c *cli) editor() *editor.Editor {
	return editor.New(c.driver)
}

// controller builds a controller for the kind named by arg.
func (c *cli) controller(arg string, opts ...controller.Option) (*controller.Controller, entity.Schema, error) {
	kind, err := entity.ParseKind(arg)
	if err != nil {
		return nil, entity.Schema{}, err
	}
	schema, err := c.app.Schema(kind)
	if err != nil {
		return nil, entity.Schema{}, err
	}
	ctrl, err := c.app.Controller(kind, opts...)
	if err != nil {
		return nil, entity.Schema{}, err
	}
	return ctrl, schema, nil
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), commandTimeout)
}
