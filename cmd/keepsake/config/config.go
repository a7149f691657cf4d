// Package configcmder provides the config command for managing persistent
// keepsake configuration stored in the .keepsake/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent keepsake configuration.

Configuration is stored as config.toml in the .keepsake/ directory and
provides default values for command flags. KEEPSAKE_* environment variables
override the file, and CLI flags override both.

Keys use dotted notation matching the TOML section structure:
  storage.backend, storage.key, storage.ttl, storage.quota_bytes,
  storage.sqlite_path, storage.postgres_dsn, storage.badger_path,
  storage.dynamodb_table, storage.dynamodb_region, storage.file_dir,
  restore.poll_interval, restore.max_attempts, restore.settle_delay,
  restore.label_nudge_x, restore.label_nudge_y,
  inference.proximity_threshold, capture.form_fields,
  autosave.enabled, autosave.interval,
  events.kafka_brokers, events.kafka_topic, api.listen

Use subcommands to get, set, or list configuration values:
  keepsake config set <key> <value>    Set a configuration value
  keepsake config unset <key>          Reset a value to its default
  keepsake config get <key>            Get a configuration value
  keepsake config list                 List all configuration values

Examples:
  keepsake config set storage.backend sqlite
  keepsake config set storage.ttl 72h
  keepsake config set events.kafka_brokers broker-1:9092,broker-2:9092
  keepsake config get storage.backend
  keepsake config list`

const configShortDesc string = "Manage persistent keepsake configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newUnsetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
