// Package inspectcmder provides the inspect command, which prints the saved
// snapshot without restoring it.
package inspectcmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/keepsake/cmd/keepsake/bootstrap"
	"github.com/papercomputeco/keepsake/pkg/config"
	"github.com/papercomputeco/keepsake/pkg/project"
)

const inspectLongDesc string = `Print the saved snapshot.

Formats:
  summary   Rendered markdown overview (default)
  json      The snapshot as stored
  yaml      The snapshot as YAML

Examples:
  keepsake inspect
  keepsake inspect --format yaml`

const inspectShortDesc string = "Print the saved snapshot"

func NewInspectCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: inspectShortDesc,
		Long:  inspectLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, format)
		},
	}

	bootstrap.AddStorageFlags(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", FormatSummary, "Output format (summary, json, yaml)")

	return cmd
}

func run(cmd *cobra.Command, format string) error {
	ctx := cmd.Context()

	env, err := bootstrap.Resolve(cmd, config.StorageFlags)
	if err != nil {
		return err
	}

	s, err := env.Open(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := s.Store.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	if snap == nil {
		return errors.New(project.ReasonNoSavedData)
	}

	return Render(cmd.OutOrStdout(), snap, format)
}
