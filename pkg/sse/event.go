// Package sse reads and writes Server-Sent Events. The API server streams
// operation events with Write; `keepsake events` follows that stream with a
// Reader.
//
// Wire format:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"fmt"
	"io"
	"strings"
)

// Event is a single SSE event, delimited by a blank line on the wire.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data is every "data:" line of the event joined with "\n".
	Data string

	// ID is the "id:" field.
	ID string
}

// Write encodes ev to w followed by the blank line that terminates it. Data
// containing newlines is written as one "data:" line per line.
func Write(w io.Writer, ev Event) error {
	var b strings.Builder
	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	if ev.Type != "" {
		fmt.Fprintf(&b, "event: %s\n", ev.Type)
	}
	for line := range strings.SplitSeq(ev.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Comment writes a comment line, used as a keep-alive.
func Comment(w io.Writer, text string) error {
	_, err := fmt.Fprintf(w, ": %s\n\n", text)
	return err
}
