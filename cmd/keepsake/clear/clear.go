// Package clearcmder provides the clear command.
package clearcmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/keepsake/cmd/keepsake/bootstrap"
	"github.com/papercomputeco/keepsake/pkg/cliui"
	"github.com/papercomputeco/keepsake/pkg/config"
)

const clearLongDesc string = `Delete the saved project record from the configured store.

Clearing a store that holds no record succeeds.`

const clearShortDesc string = "Delete the saved project"

func NewClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: clearShortDesc,
		Long:  clearLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}

	bootstrap.AddStorageFlags(cmd)

	return cmd
}

func run(cmd *cobra.Command) error {
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

	if !s.Orchestrator.ClearSavedData(ctx) {
		return errors.New("clearing saved data failed")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Cleared %s\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(s.Store.Key()))
	return nil
}
