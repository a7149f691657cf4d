// Package watchcmder provides the watch command, which follows a diagram file
// and autosaves every change.
package watchcmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/keepsake/cmd/keepsake/bootstrap"
	"github.com/papercomputeco/keepsake/pkg/cliui"
	"github.com/papercomputeco/keepsake/pkg/config"
	"github.com/papercomputeco/keepsake/pkg/eventstream"
	"github.com/papercomputeco/keepsake/pkg/logger"
)

type watchCommander struct {
	notations []string
}

const watchLongDesc string = `Watch a diagram file and save it whenever it changes.

Each write to the file is imported into the live engine and picked up by the
autosave worker, which coalesces bursts of changes and throttles saves to
autosave.interval.

Examples:
  keepsake watch diagram.xml
  keepsake watch diagram.xml --backend badger`

const watchShortDesc string = "Autosave a diagram file as it changes"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch <diagram>",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	bootstrap.AddStorageFlags(cmd)
	bootstrap.AddNotationFlag(cmd, &cmder.notations)

	return cmd
}

func (c *watchCommander) run(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := bootstrap.Resolve(cmd, config.StorageFlags)
	if err != nil {
		return err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	env.Logger = logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	s, err := env.Open(ctx, c.notations)
	if err != nil {
		return err
	}
	defer s.Close()

	unsubscribe := s.Events.Subscribe(func(e eventstream.Event) {
		switch e.EventType {
		case eventstream.EventTypeSaveSuccess:
			fmt.Fprintf(out, "  %s saved %s\n", cliui.SuccessMark, cliui.StepStyle.Render(cliui.FormatBytes(e.Payload.SizeBytes)))
		case eventstream.EventTypeSaveError:
			fmt.Fprintf(out, "  %s save failed: %s\n", cliui.FailMark, e.Payload.Error)
		}
	})
	defer unsubscribe()

	s.StartAutosave()

	fmt.Fprintf(out, "\n  Watching %s %s\n\n", cliui.KeyStyle.Render(path), cliui.DimStyle.Render("(ctrl-c to stop)"))

	err = Follow(ctx, path, s.Engine, env.Logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
