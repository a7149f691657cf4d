// Package infocmder provides the info command, which describes the saved
// record without loading it.
package infocmder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/keepsake/cmd/keepsake/bootstrap"
	"github.com/papercomputeco/keepsake/pkg/cliui"
	"github.com/papercomputeco/keepsake/pkg/config"
)

const infoLongDesc string = `Show what is stored under the project key: format version, save time,
size and age. An expired record is reported as absent.`

const infoShortDesc string = "Describe the saved project"

func NewInfoCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: infoShortDesc,
		Long:  infoLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, jsonOut)
		},
	}

	bootstrap.AddStorageFlags(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")

	return cmd
}

func run(cmd *cobra.Command, jsonOut bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	env, err := bootstrap.Resolve(cmd, config.StorageFlags)
	if err != nil {
		return err
	}

	s, err := env.Open(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := s.Orchestrator.StorageInfo(ctx)
	if err != nil {
		return fmt.Errorf("reading storage info: %w", err)
	}

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintln(out)
	if !info.HasData {
		fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("No saved data."))
		return nil
	}

	ttl := s.Store.TTL() - time.Duration(info.AgeMs)*time.Millisecond
	cliui.KeyValues(out, []cliui.KV{
		{Key: "Key", Value: s.Store.Key()},
		{Key: "Backend", Value: env.Config.Storage.Backend},
		{Key: "Format", Value: info.Version},
		{Key: "Saved at", Value: time.UnixMilli(info.SavedAtEpoch).Format(time.RFC3339)},
		{Key: "Size", Value: cliui.FormatBytes(info.SizeBytes)},
		{Key: "Age", Value: (time.Duration(info.AgeMs) * time.Millisecond).Round(time.Second).String()},
		{Key: "Expires in", Value: ttl.Round(time.Second).String()},
	})
	fmt.Fprintln(out)

	return nil
}
