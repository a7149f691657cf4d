// Package servecmder provides the serve command, which runs the API server
// with autosave for one project.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/keepsake/api"
	"github.com/papercomputeco/keepsake/cmd/keepsake/bootstrap"
	"github.com/papercomputeco/keepsake/pkg/config"
	"github.com/papercomputeco/keepsake/pkg/logger"
)

type serveCommander struct {
	listen     string
	autosave   bool
	kafkaTopic string
	notations  []string
}

const serveLongDesc string = `Run the keepsake API server.

The server holds one live diagram and exposes it over HTTP:

  PUT    /diagram        Replace the live diagram
  GET    /diagram        Serialize the live diagram
  POST   /project/save   Save the live diagram
  POST   /project/load   Restore the saved project
  DELETE /project        Delete the saved project
  GET    /project        Whether a loadable record exists
  GET    /project/info   Stored record metadata
  GET    /events         Recent operation events
  GET    /events/stream  Operation events as Server-Sent Events
  GET    /metrics        Prometheus metrics
  GET    /ping           Health check

With autosave enabled, every change to the live diagram is saved in the
background. Logs go to stderr and, as JSON, to keepsake.log in the
.keepsake/ directory.`

const serveShortDesc string = "Run the keepsake API server"

const logFileName = "keepsake.log"

var serveFlags = append([]string{
	config.FlagAPIListen,
	config.FlagAutosave,
	config.FlagKafkaTopic,
}, config.StorageFlags...)

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddBoolFlag(cmd, config.Flags, config.FlagAutosave, &cmder.autosave)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	bootstrap.AddStorageFlags(cmd)
	bootstrap.AddNotationFlag(cmd, &cmder.notations)

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := bootstrap.Resolve(cmd, serveFlags)
	if err != nil {
		return err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	logFile, err := os.OpenFile(filepath.Join(env.Dir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	env.Logger = logger.Multi(
		logger.New(logger.WithDebug(debug), logger.WithPretty(true), logger.WithWriter(os.Stderr)),
		logger.New(logger.WithDebug(debug), logger.WithJSON(true), logger.WithSource(debug), logger.WithWriter(logFile)),
	)

	s, err := env.Open(ctx, c.notations)
	if err != nil {
		return err
	}
	defer s.Close()

	if env.Config.Autosave.Enabled {
		s.StartAutosave()
		env.Logger.Info("autosave enabled", "interval", env.Config.AutosaveInterval())
	}

	server := api.NewServer(api.Config{
		ListenAddr: env.Config.API.Listen,
		Events:     s.Events,
		Metrics:    s.Metrics,
	}, s.Orchestrator, env.Logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Run(); err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		env.Logger.Info("shutting down")
		return server.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
