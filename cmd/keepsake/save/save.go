// Package savecmder provides the save command, which captures a diagram file
// and writes it to the durable store.
package savecmder

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/keepsake/cmd/keepsake/bootstrap"
	"github.com/papercomputeco/keepsake/pkg/cliui"
	"github.com/papercomputeco/keepsake/pkg/config"
	"github.com/papercomputeco/keepsake/pkg/project"
)

type saveCommander struct {
	notations []string
	fields    map[string]string
}

const saveLongDesc string = `Save a diagram to the configured store.

The diagram file is imported into a fresh engine, captured into a snapshot
(auxiliary shapes, inferred parent/child relationships, connection geometry,
view state and form metadata) and written under the project key.

Shapes of extension notations not listed with --notation are treated as
missing from the primary document and saved as auxiliary nodes.

Examples:
  keepsake save diagram.xml
  keepsake save diagram.xml --notation ppinot --field projectName=Onboarding
  keepsake save diagram.xml --backend sqlite`

const saveShortDesc string = "Save a diagram"

func NewSaveCmd() *cobra.Command {
	cmder := &saveCommander{}

	cmd := &cobra.Command{
		Use:   "save <diagram>",
		Short: saveShortDesc,
		Long:  saveLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	bootstrap.AddStorageFlags(cmd)
	bootstrap.AddNotationFlag(cmd, &cmder.notations)
	cmd.Flags().StringToStringVar(&cmder.fields, "field", nil, "Form field saved with the diagram (name=value)")

	return cmd
}

func (c *saveCommander) run(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	env, err := bootstrap.Resolve(cmd, config.StorageFlags)
	if err != nil {
		return err
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading diagram: %w", err)
	}

	s, err := env.Open(ctx, c.notations)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Engine.ImportDocument(ctx, string(text)); err != nil {
		return fmt.Errorf("importing %s: %w", path, err)
	}
	if len(c.fields) > 0 {
		s.Workspace.Form.SetFields(c.fields)
	}

	fmt.Fprintln(out)
	var result project.SaveResult
	err = cliui.Step(out, "Saving project", func() error {
		result = s.Orchestrator.SaveProject(ctx)
		return bootstrap.SaveError(result)
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	cliui.KeyValues(out, []cliui.KV{
		{Key: "Key", Value: s.Store.Key()},
		{Key: "Size", Value: cliui.FormatBytes(result.Data.SizeBytes)},
		{Key: "Auxiliary nodes", Value: strconv.Itoa(result.Data.AuxiliaryNodes)},
		{Key: "Relationships", Value: strconv.Itoa(result.Data.Relationships)},
		{Key: "Connections", Value: strconv.Itoa(result.Data.ConnectionGeometry)},
	})
	fmt.Fprintln(out)

	return nil
}
