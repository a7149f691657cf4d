// Package logger builds the *slog.Logger every keepsake component logs
// through. Components never construct handlers themselves; they receive a
// logger and fall back to Nop when given nil.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type settings struct {
	level  slog.Level
	format format
	source bool
	out    []io.Writer
}

func (s *settings) writer() io.Writer {
	switch len(s.out) {
	case 0:
		return os.Stdout
	case 1:
		return s.out[0]
	default:
		return io.MultiWriter(s.out...)
	}
}

// New creates a logger. Without options it writes text at Info to stdout.
func New(opts ...Option) *slog.Logger {
	s := &settings{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(s)
	}

	w := s.writer()
	switch s.format {
	case formatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: s.level, AddSource: s.source}))
	case formatPretty:
		return slog.New(charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(s.level),
			ReportTimestamp: true,
			ReportCaller:    s.source,
		}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: s.level, AddSource: s.source}))
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrNop returns l, or Nop when l is nil.
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}
