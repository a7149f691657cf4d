package configcmder

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/keepsake/pkg/cliui"
	"github.com/papercomputeco/keepsake/pkg/config"
)

const listLongDesc string = `List all configuration values.

Shows every key with the value keepsake will use, read from config.toml in
the .keepsake/ directory and falling back to built-in defaults. Keys whose
value differs from the default are marked.

Examples:
  keepsake config list
  keepsake config list --changed
  keepsake config list --json`

const listShortDesc string = "List all configuration values"

type listFlags struct {
	changed bool
	json    bool
}

type listEntry struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Default string `json:"default"`
}

func (e listEntry) isChanged() bool { return e.Value != e.Default }

func newListCmd() *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.changed, "changed", false, "Only list keys that differ from the defaults")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print as JSON")

	return cmd
}

func runList(w io.Writer, configDir string, flags *listFlags) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return err
	}

	entries, err := listEntries(cfg, config.NewDefaultConfig(), flags.changed)
	if err != nil {
		return err
	}

	if flags.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	printTarget(w, cfger)
	if len(entries) == 0 {
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("all values are defaults"))
		return nil
	}

	rows := make([]cliui.KV, 0, len(entries))
	for _, e := range entries {
		value := "<not set>"
		if e.Value != "" {
			value = fmt.Sprintf("%q", e.Value)
		}
		if e.isChanged() {
			value += " " + cliui.DimStyle.Render("(default "+fmt.Sprintf("%q", e.Default)+")")
		}
		rows = append(rows, cliui.KV{Key: e.Key, Value: value})
	}
	cliui.KeyValues(w, rows)
	return nil
}

func listEntries(cfg, defaults *config.Config, changedOnly bool) ([]listEntry, error) {
	keys := config.ValidConfigKeys()
	entries := make([]listEntry, 0, len(keys))
	for _, key := range keys {
		value, err := cfg.Value(key)
		if err != nil {
			return nil, err
		}
		def, err := defaults.Value(key)
		if err != nil {
			return nil, err
		}

		e := listEntry{Key: key, Value: value, Default: def}
		if changedOnly && !e.isChanged() {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
