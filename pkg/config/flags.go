package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g. --backend
// on "keepsake save", "keepsake load" and "keepsake serve").
type Flag struct {
	// Name is the long flag name (e.g. "backend").
	Name string

	// Shorthand is the one-letter short flag (e.g. "b"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "storage.backend").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddBoolFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagBackend      = "backend"
	FlagStorageKey   = "key"
	FlagTTL          = "ttl"
	FlagSQLite       = "sqlite"
	FlagPostgres     = "postgres"
	FlagBadger       = "badger"
	FlagDynamoTable  = "dynamodb-table"
	FlagDynamoRegion = "dynamodb-region"
	FlagFileDir      = "file-dir"
	FlagAPIListen    = "listen"
	FlagKafkaTopic   = "kafka-topic"
	FlagAutosave     = "autosave"
)

// StorageFlags are registered on every command that opens the durable store.
var StorageFlags = []string{
	FlagBackend,
	FlagStorageKey,
	FlagTTL,
	FlagSQLite,
	FlagPostgres,
	FlagBadger,
	FlagDynamoTable,
	FlagDynamoRegion,
	FlagFileDir,
}

// Flags is the registry of every keepsake flag.
var Flags = FlagSet{
	FlagBackend: {
		Name:        "backend",
		Shorthand:   "b",
		ViperKey:    "storage.backend",
		Description: "Storage backend (inmemory, file, sqlite, postgres, badger, dynamodb)",
	},
	FlagStorageKey: {
		Name:        "key",
		ViperKey:    "storage.key",
		Description: "Key the project record is stored under",
	},
	FlagTTL: {
		Name:        "ttl",
		ViperKey:    "storage.ttl",
		Description: "How long a saved record stays loadable",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to SQLite database",
	},
	FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "storage.postgres_dsn",
		Description: "PostgreSQL connection string",
	},
	FlagBadger: {
		Name:        "badger",
		ViperKey:    "storage.badger_path",
		Description: "Path to a Badger database directory",
	},
	FlagDynamoTable: {
		Name:        "dynamodb-table",
		ViperKey:    "storage.dynamodb_table",
		Description: "DynamoDB table name",
	},
	FlagDynamoRegion: {
		Name:        "dynamodb-region",
		ViperKey:    "storage.dynamodb_region",
		Description: "DynamoDB region",
	},
	FlagFileDir: {
		Name:        "file-dir",
		ViperKey:    "storage.file_dir",
		Description: "Directory holding the .keepsake records",
	},
	FlagAPIListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	FlagKafkaTopic: {
		Name:        "kafka-topic",
		ViperKey:    "events.kafka_topic",
		Description: "Kafka topic events are published to",
	},
	FlagAutosave: {
		Name:        "autosave",
		ViperKey:    "autosave.enabled",
		Description: "Save automatically when the diagram changes",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
