// Package eventscmder provides the events command, which follows the
// operation events of a running keepsake server.
package eventscmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/keepsake/pkg/cliui"
	"github.com/papercomputeco/keepsake/pkg/eventstream"
)

type eventsCommander struct {
	server string
	replay int
	count  int
	json   bool
}

const eventsLongDesc string = `Follow the save, load and clear events of a running keepsake server.

Events are read from the server's /events/stream endpoint and printed as they
arrive. Use --replay to print recent history first and --count to stop after
a number of events.

Examples:
  keepsake events
  keepsake events --server http://localhost:9091 --replay 10
  keepsake events --count 1 --json`

const eventsShortDesc string = "Follow a keepsake server's events"

const defaultServer = "http://localhost:8081"

func NewEventsCmd() *cobra.Command {
	cmder := &eventsCommander{}

	cmd := &cobra.Command{
		Use:   "events",
		Short: eventsShortDesc,
		Long:  eventsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.server, "server", "s", defaultServer, "Address of the keepsake API server")
	cmd.Flags().IntVar(&cmder.replay, "replay", 0, "Print this many recent events first")
	cmd.Flags().IntVarP(&cmder.count, "count", "n", 0, "Stop after this many events (0 follows forever)")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print events as JSON lines")

	return cmd
}

func (c *eventsCommander) run(cmd *cobra.Command) error {
	if c.replay < 0 || c.count < 0 {
		return errors.New("--replay and --count must not be negative")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	emit := func(e eventstream.Event) error {
		if c.json {
			return json.NewEncoder(out).Encode(e)
		}
		printEvent(out, e)
		return nil
	}

	err := Stream(ctx, &http.Client{}, c.server, StreamOptions{Replay: c.replay, Count: c.count}, emit)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printEvent(w io.Writer, e eventstream.Event) {
	mark := cliui.SuccessMark
	if e.Payload.Error != "" {
		mark = cliui.FailMark
	}

	at := time.UnixMilli(e.Payload.Timestamp).Local().Format(time.TimeOnly)
	fmt.Fprintf(w, "  %s %s %s", mark, cliui.DimStyle.Render(at), cliui.StepStyle.Render(e.EventType))
	switch {
	case e.Payload.Error != "":
		fmt.Fprintf(w, " %s", e.Payload.Error)
	case e.Payload.SizeBytes > 0:
		fmt.Fprintf(w, " %s", cliui.FormatBytes(e.Payload.SizeBytes))
	}
	fmt.Fprintln(w)
}
