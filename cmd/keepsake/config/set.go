package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/keepsake/pkg/cliui"
	"github.com/papercomputeco/keepsake/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Sets the given key in the config.toml file stored in the .keepsake/
directory. Values are checked before the file is written: durations use Go
syntax ("90s", "24h"), lists are comma separated and storage.backend must
name a known backend.

Examples:
  keepsake config set storage.backend postgres
  keepsake config set storage.postgres_dsn postgres://localhost/keepsake
  keepsake config set inference.proximity_threshold 300`

const setShortDesc string = "Set a configuration value"

const unsetLongDesc string = `Reset a configuration value to its default.

Examples:
  keepsake config unset storage.backend
  keepsake config unset restore.settle_delay`

const unsetShortDesc string = "Reset a configuration value to its default"

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd.OutOrStdout(), configDir, args[0], args[1])
		},
		ValidArgsFunction: completeKeys,
	}
}

func newUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: unsetShortDesc,
		Long:  unsetLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := config.NewDefaultConfig().Value(args[0])
			if err != nil {
				return unknownKey(args[0])
			}
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd.OutOrStdout(), configDir, args[0], def)
		},
		ValidArgsFunction: completeKeys,
	}
}

// runSet writes key and reports the old and new value.
func runSet(w io.Writer, configDir, key, value string) error {
	if !config.IsValidConfigKey(key) {
		return unknownKey(key)
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	previous, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}
	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}
	current, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	printTarget(w, cfger)
	if previous == current {
		fmt.Fprintf(w, "  %s %s unchanged (%s)\n\n", cliui.SkipMark, cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(current))
		return nil
	}
	fmt.Fprintf(w, "  %s Set %s = %s %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(current),
		cliui.DimStyle.Render("(was "+previous+")"),
	)
	return nil
}
