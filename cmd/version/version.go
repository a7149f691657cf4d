// Package versioncmder provides the version command.
package versioncmder

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/keepsake/pkg/cliui"
	"github.com/papercomputeco/keepsake/pkg/snapshot"
	"github.com/papercomputeco/keepsake/pkg/utils"
)

type versionCommander struct {
	json bool
}

type versionOutput struct {
	utils.Build
	SnapshotFormat string `json:"snapshot_format"`
}

func NewVersionCmd() *cobra.Command {
	cmder := &versionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show build and snapshot format versions",
		Long:  "Show the build of this CLI and the snapshot format version it reads and writes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print as JSON")

	return cmd
}

func (c *versionCommander) run(w io.Writer) error {
	out := versionOutput{Build: utils.CurrentBuild(), SnapshotFormat: snapshot.FormatVersion}

	if c.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	cliui.KeyValues(w, []cliui.KV{
		{Key: "Version:", Value: out.Version},
		{Key: "Sha:", Value: out.Sha},
		{Key: "Built at:", Value: out.Time},
		{Key: "Go:", Value: out.GoVersion},
		{Key: "Snapshot format:", Value: out.SnapshotFormat},
	})
	return nil
}
