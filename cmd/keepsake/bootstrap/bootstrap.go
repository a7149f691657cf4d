// Package bootstrap resolves configuration and opens the project session for
// keepsake commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/keepsake/pkg/config"
	"github.com/papercomputeco/keepsake/pkg/dotdir"
	"github.com/papercomputeco/keepsake/pkg/logger"
	"github.com/papercomputeco/keepsake/pkg/session"
)

// Env is the resolved environment of one command invocation.
type Env struct {
	Config *config.Config
	Dir    string
	Logger *slog.Logger
}

// Resolve layers defaults, config.toml, KEEPSAKE_* environment variables and
// the command's registered flags into a validated Config.
func Resolve(cmd *cobra.Command, flagKeys []string) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving keepsake dir: %w", err)
	}

	return &Env{
		Config: cfg,
		Dir:    dir,
		Logger: NewLogger(debug),
	}, nil
}

// NewLogger returns the CLI logger: colorized, on stderr, quiet unless debug.
func NewLogger(debug bool) *slog.Logger {
	if !debug {
		return logger.Nop()
	}
	return logger.New(
		logger.WithDebug(true),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)
}

// Open opens a session for env.
func (e *Env) Open(ctx context.Context, notations []string) (*session.Session, error) {
	return session.Open(ctx, session.Options{
		Config:    e.Config,
		Dir:       e.Dir,
		Notations: notations,
		Logger:    e.Logger,
	})
}

// AddStorageFlags registers the storage flags on cmd. The values are read
// back through viper, so the targets are never consulted directly.
func AddStorageFlags(cmd *cobra.Command) {
	for _, key := range config.StorageFlags {
		var target string
		config.AddStringFlag(cmd, config.Flags, key, &target)
	}
}

// AddNotationFlag registers --notation, the extension notations the engine
// writes into its primary document.
func AddNotationFlag(cmd *cobra.Command, target *[]string) {
	cmd.Flags().StringSliceVar(target, "notation", nil,
		"Extension notations the primary document carries (ppinot, ralph)")
}
