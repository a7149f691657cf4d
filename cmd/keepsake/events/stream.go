package eventscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/papercomputeco/keepsake/pkg/eventstream"
	"github.com/papercomputeco/keepsake/pkg/sse"
)

// StreamOptions selects what a Stream call asks the server for.
type StreamOptions struct {
	// Replay is how many history events the server sends first.
	Replay int

	// Count ends the stream after this many events. Zero follows forever.
	Count int
}

// Stream connects to the server's event stream and calls fn for each event
// until the stream ends, ctx is cancelled or fn returns an error.
func Stream(ctx context.Context, client *http.Client, server string, opts StreamOptions, fn func(eventstream.Event) error) error {
	u, err := url.Parse(server)
	if err != nil {
		return fmt.Errorf("parsing server URL: %w", err)
	}
	u = u.JoinPath("events", "stream")

	q := u.Query()
	if opts.Replay > 0 {
		q.Set("replay", strconv.Itoa(opts.Replay))
	}
	if opts.Count > 0 {
		q.Set("count", strconv.Itoa(opts.Count))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream returned %s", resp.Status)
	}

	r := sse.NewReader(resp.Body)
	for {
		ev, err := r.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading event stream: %w", err)
		}
		if ev == nil {
			return nil
		}

		var e eventstream.Event
		if err := json.Unmarshal([]byte(ev.Data), &e); err != nil {
			return fmt.Errorf("decoding event %s: %w", ev.ID, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}
