package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// maxLine bounds a single field line.
const maxLine = 1 << 20

// Reader decodes a stream of events.
type Reader struct {
	src *bufio.Reader

	pending Event
	fields  int
	lines   []string
}

// NewReader returns a Reader over src.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: bufio.NewReaderSize(src, 64*1024)}
}

// Next returns the next complete event. It returns nil, nil once src is
// exhausted; an event cut off by EOF is still returned.
func (r *Reader) Next() (*Event, error) {
	for {
		line, err := r.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		eof := errors.Is(err, io.EOF)

		switch {
		case line == "" && !eof:
			if ev := r.dispatch(); ev != nil {
				return ev, nil
			}
		case line != "":
			r.field(line)
		}

		if eof {
			return r.dispatch(), nil
		}
	}
}

// readLine returns one line without its terminator. CRLF, LF and a final
// unterminated line are all accepted.
func (r *Reader) readLine() (string, error) {
	var b strings.Builder
	for {
		chunk, err := r.src.ReadSlice('\n')
		if b.Len()+len(chunk) > maxLine {
			return "", bufio.ErrTooLong
		}
		b.Write(chunk)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		line := strings.TrimSuffix(strings.TrimSuffix(b.String(), "\n"), "\r")
		if err != nil && line != "" && errors.Is(err, io.EOF) {
			// Report the partial line now and EOF on the following call.
			return line, nil
		}
		return line, err
	}
}

func (r *Reader) field(line string) {
	if strings.HasPrefix(line, ":") {
		return
	}

	name, value, found := strings.Cut(line, ":")
	if found {
		value = strings.TrimPrefix(value, " ")
	}

	switch name {
	case "data":
		r.lines = append(r.lines, value)
	case "event":
		r.pending.Type = value
	case "id":
		r.pending.ID = value
	default:
		return
	}
	r.fields++
}

// dispatch hands out the accumulated event, or nil if nothing was read
// since the last one.
func (r *Reader) dispatch() *Event {
	if r.fields == 0 {
		return nil
	}
	ev := r.pending
	ev.Data = strings.Join(r.lines, "\n")

	r.pending = Event{}
	r.lines = r.lines[:0]
	r.fields = 0
	return &ev
}
