package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent keepsake configuration stored as
// config.toml in the .keepsake/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Storage   StorageConfig   `toml:"storage"`
	Restore   RestoreConfig   `toml:"restore"`
	Inference InferenceConfig `toml:"inference"`
	Capture   CaptureConfig   `toml:"capture"`
	Autosave  AutosaveConfig  `toml:"autosave"`
	Events    EventsConfig    `toml:"events"`
	API       APIConfig       `toml:"api"`
}

// StorageConfig selects and configures the durable record backend.
type StorageConfig struct {
	Backend        string   `toml:"backend,omitempty" validate:"omitempty,oneof=inmemory file sqlite postgres badger dynamodb"`
	Key            string   `toml:"key,omitempty"`
	TTL            Duration `toml:"ttl,omitempty" validate:"gte=0"`
	QuotaBytes     int      `toml:"quota_bytes,omitempty" validate:"gte=0"`
	SQLitePath     string   `toml:"sqlite_path,omitempty"`
	PostgresDSN    string   `toml:"postgres_dsn,omitempty"`
	BadgerPath     string   `toml:"badger_path,omitempty"`
	DynamoDBTable  string   `toml:"dynamodb_table,omitempty"`
	DynamoDBRegion string   `toml:"dynamodb_region,omitempty"`
	FileDir        string   `toml:"file_dir,omitempty"`
}

// RestoreConfig tunes the readiness wait and settling of a restore.
type RestoreConfig struct {
	PollInterval Duration `toml:"poll_interval,omitempty" validate:"gte=0"`
	MaxAttempts  int      `toml:"max_attempts,omitempty" validate:"gte=0"`
	SettleDelay  Duration `toml:"settle_delay,omitempty"`
	LabelNudgeX  float64  `toml:"label_nudge_x"`
	LabelNudgeY  float64  `toml:"label_nudge_y"`
}

// InferenceConfig holds relationship inference settings.
type InferenceConfig struct {
	ProximityThreshold float64 `toml:"proximity_threshold,omitempty" validate:"gte=0"`
}

// CaptureConfig holds snapshot capture settings.
type CaptureConfig struct {
	FormFields []string `toml:"form_fields,omitempty"`
}

// AutosaveConfig holds background save settings.
type AutosaveConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval,omitempty"`
}

// EventsConfig holds event stream settings. No brokers means events stay
// in-process.
type EventsConfig struct {
	KafkaBrokers []string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string   `toml:"kafka_topic,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("24h").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	if d == 0 {
		return ""
	}
	return time.Duration(d).String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error

	// list keys are written comma separated and read from TOML arrays.
	list bool
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func durationKey(name string, field func(c *Config) *Duration) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return field(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = Duration(d)
			return nil
		},
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatFloat(*field(c), 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

func listKey(field func(c *Config) *[]string) configKeyInfo {
	return configKeyInfo{
		list: true,
		get:  func(c *Config) string { return strings.Join(*field(c), ",") },
		set: func(c *Config, v string) error {
			var out []string
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					out = append(out, item)
				}
			}
			*field(c) = out
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.backend":         stringKey(func(c *Config) *string { return &c.Storage.Backend }),
	"storage.key":             stringKey(func(c *Config) *string { return &c.Storage.Key }),
	"storage.ttl":             durationKey("storage.ttl", func(c *Config) *Duration { return &c.Storage.TTL }),
	"storage.quota_bytes":     intKey("storage.quota_bytes", func(c *Config) *int { return &c.Storage.QuotaBytes }),
	"storage.sqlite_path":     stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn":    stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"storage.badger_path":     stringKey(func(c *Config) *string { return &c.Storage.BadgerPath }),
	"storage.dynamodb_table":  stringKey(func(c *Config) *string { return &c.Storage.DynamoDBTable }),
	"storage.dynamodb_region": stringKey(func(c *Config) *string { return &c.Storage.DynamoDBRegion }),
	"storage.file_dir":        stringKey(func(c *Config) *string { return &c.Storage.FileDir }),

	"restore.poll_interval": durationKey("restore.poll_interval", func(c *Config) *Duration { return &c.Restore.PollInterval }),
	"restore.max_attempts":  intKey("restore.max_attempts", func(c *Config) *int { return &c.Restore.MaxAttempts }),
	"restore.settle_delay":  durationKey("restore.settle_delay", func(c *Config) *Duration { return &c.Restore.SettleDelay }),
	"restore.label_nudge_x": floatKey("restore.label_nudge_x", func(c *Config) *float64 { return &c.Restore.LabelNudgeX }),
	"restore.label_nudge_y": floatKey("restore.label_nudge_y", func(c *Config) *float64 { return &c.Restore.LabelNudgeY }),

	"inference.proximity_threshold": floatKey("inference.proximity_threshold", func(c *Config) *float64 { return &c.Inference.ProximityThreshold }),

	"capture.form_fields": listKey(func(c *Config) *[]string { return &c.Capture.FormFields }),

	"autosave.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Autosave.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for autosave.enabled: %w", err)
			}
			c.Autosave.Enabled = b
			return nil
		},
	},
	"autosave.interval": durationKey("autosave.interval", func(c *Config) *Duration { return &c.Autosave.Interval }),

	"events.kafka_brokers": listKey(func(c *Config) *[]string { return &c.Events.KafkaBrokers }),
	"events.kafka_topic":   stringKey(func(c *Config) *string { return &c.Events.KafkaTopic }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),
}
