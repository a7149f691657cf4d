// Package keepsakecmder is the root keepsake command.
package keepsakecmder

import (
	"github.com/spf13/cobra"

	clearcmder "github.com/papercomputeco/keepsake/cmd/keepsake/clear"
	configcmder "github.com/papercomputeco/keepsake/cmd/keepsake/config"
	eventscmder "github.com/papercomputeco/keepsake/cmd/keepsake/events"
	infocmder "github.com/papercomputeco/keepsake/cmd/keepsake/info"
	inspectcmder "github.com/papercomputeco/keepsake/cmd/keepsake/inspect"
	loadcmder "github.com/papercomputeco/keepsake/cmd/keepsake/load"
	savecmder "github.com/papercomputeco/keepsake/cmd/keepsake/save"
	servecmder "github.com/papercomputeco/keepsake/cmd/keepsake/serve"
	watchcmder "github.com/papercomputeco/keepsake/cmd/keepsake/watch"
	versioncmder "github.com/papercomputeco/keepsake/cmd/version"
)

const keepsakeLongDesc string = `Keepsake saves and restores diagram sessions.

A save captures the live diagram, the shapes its primary document cannot
carry, their inferred parent/child relationships, connection geometry and
side data into one snapshot. A load rebuilds the diagram from it and
reconciles everything the document reload lost.

  keepsake save diagram.xml    Save a diagram
  keepsake load                Restore the saved project
  keepsake watch diagram.xml   Autosave a diagram file as it changes
  keepsake serve               Run the API server
  keepsake events              Follow a running server's events`

const keepsakeShortDesc string = "Keepsake - diagram snapshots"

func NewKeepsakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "keepsake",
		Short:         keepsakeShortDesc,
		Long:          keepsakeLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .keepsake/ directory")

	cmd.AddCommand(savecmder.NewSaveCmd())
	cmd.AddCommand(loadcmder.NewLoadCmd())
	cmd.AddCommand(clearcmder.NewClearCmd())
	cmd.AddCommand(infocmder.NewInfoCmd())
	cmd.AddCommand(inspectcmder.NewInspectCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(eventscmder.NewEventsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
