package logger

import (
	"io"
	"log/slog"
)

type format int

const (
	formatText format = iota
	formatPretty
	formatJSON
)

// Option configures New.
type Option func(*settings)

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(s *settings) { s.level = level }
}

// WithDebug lowers the level to Debug. WithDebug(false) restores Info.
func WithDebug(debug bool) Option {
	if debug {
		return WithLevel(slog.LevelDebug)
	}
	return WithLevel(slog.LevelInfo)
}

// WithPretty selects the charmbracelet/log handler. JSON wins if both are
// requested.
func WithPretty(pretty bool) Option {
	return func(s *settings) {
		if pretty && s.format != formatJSON {
			s.format = formatPretty
		}
	}
}

// WithJSON selects slog's JSON handler.
func WithJSON(json bool) Option {
	return func(s *settings) {
		if json {
			s.format = formatJSON
		}
	}
}

// WithWriter replaces the output writers with w.
func WithWriter(w io.Writer) Option {
	return WithWriters(w)
}

// WithWriters replaces the output writers. Records are copied to each.
func WithWriters(ws ...io.Writer) Option {
	return func(s *settings) { s.out = ws }
}

// WithSource reports the calling file and line.
func WithSource(source bool) Option {
	return func(s *settings) { s.source = source }
}
