package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/papercomputeco/keepsake/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .keepsake/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the list of all supported configuration key names
// in TOML section order.
func ValidConfigKeys() []string {
	ordered := []string{
		"storage.backend",
		"storage.key",
		"storage.ttl",
		"storage.quota_bytes",
		"storage.sqlite_path",
		"storage.postgres_dsn",
		"storage.badger_path",
		"storage.dynamodb_table",
		"storage.dynamodb_region",
		"storage.file_dir",
		"restore.poll_interval",
		"restore.max_attempts",
		"restore.settle_delay",
		"restore.label_nudge_x",
		"restore.label_nudge_y",
		"inference.proximity_threshold",
		"capture.form_fields",
		"autosave.enabled",
		"autosave.interval",
		"events.kafka_brokers",
		"events.kafka_topic",
		"api.listen",
	}

	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}
	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

// ValidBackends returns the storage backends storage.backend accepts.
func ValidBackends() []string {
	return []string{"inmemory", "file", "sqlite", "postgres", "badger", "dynamodb"}
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target
// .keepsake/ directory. If the file does not exist, returns
// NewDefaultConfig() so callers always receive a fully-populated Config.
// Fields explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, md, err := parseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg, md)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
// Label nudges are zero-valid, so only keys absent from the file get defaults.
func applyDefaults(cfg *Config, md toml.MetaData) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if cfg.Storage.Key == "" {
		cfg.Storage.Key = defaults.Storage.Key
	}
	if cfg.Storage.TTL == 0 {
		cfg.Storage.TTL = defaults.Storage.TTL
	}

	if cfg.Restore.PollInterval == 0 {
		cfg.Restore.PollInterval = defaults.Restore.PollInterval
	}
	if cfg.Restore.MaxAttempts == 0 {
		cfg.Restore.MaxAttempts = defaults.Restore.MaxAttempts
	}
	if cfg.Restore.SettleDelay == 0 {
		cfg.Restore.SettleDelay = defaults.Restore.SettleDelay
	}
	if !md.IsDefined("restore", "label_nudge_x") {
		cfg.Restore.LabelNudgeX = defaults.Restore.LabelNudgeX
	}
	if !md.IsDefined("restore", "label_nudge_y") {
		cfg.Restore.LabelNudgeY = defaults.Restore.LabelNudgeY
	}

	if cfg.Inference.ProximityThreshold == 0 {
		cfg.Inference.ProximityThreshold = defaults.Inference.ProximityThreshold
	}

	if len(cfg.Capture.FormFields) == 0 {
		cfg.Capture.FormFields = defaults.Capture.FormFields
	}

	if cfg.Autosave.Interval == 0 {
		cfg.Autosave.Interval = defaults.Autosave.Interval
	}

	if cfg.Events.KafkaTopic == "" {
		cfg.Events.KafkaTopic = defaults.Events.KafkaTopic
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
}

// SaveConfig persists the configuration to config.toml in the target .keepsake/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	if !IsValidConfigKey(key) {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return cfg.Value(key)
}

// Value returns the string form of key as `config get` prints it.
func (c *Config) Value(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}
	return info.get(c), nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg, _, err := parseConfigTOML(data)
	return cfg, err
}

func parseConfigTOML(data []byte) (*Config, toml.MetaData, error) {
	cfg := &Config{}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, md, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, md, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, md, nil
}
