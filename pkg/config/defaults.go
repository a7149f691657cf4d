package config

import (
	"github.com/papercomputeco/keepsake/pkg/autosave"
	"github.com/papercomputeco/keepsake/pkg/capture"
	"github.com/papercomputeco/keepsake/pkg/eventstream/kafka"
	"github.com/papercomputeco/keepsake/pkg/inference"
	"github.com/papercomputeco/keepsake/pkg/restore"
	"github.com/papercomputeco/keepsake/pkg/storage"
	"github.com/papercomputeco/keepsake/pkg/waitfor"
)

const (
	defaultBackend   = "file"
	defaultAPIListen = ":8081"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Backend: defaultBackend,
			Key:     storage.DefaultKey,
			TTL:     Duration(storage.DefaultTTL),
		},
		Restore: RestoreConfig{
			PollInterval: Duration(waitfor.DefaultInterval),
			MaxAttempts:  waitfor.DefaultMaxAttempts,
			SettleDelay:  Duration(restore.DefaultSettleDelay),
			LabelNudgeX:  restore.DefaultLabelNudge.X,
			LabelNudgeY:  restore.DefaultLabelNudge.Y,
		},
		Inference: InferenceConfig{
			ProximityThreshold: inference.DefaultProximityThreshold,
		},
		Capture: CaptureConfig{
			FormFields: append([]string(nil), capture.DefaultFormFields...),
		},
		Autosave: AutosaveConfig{
			Enabled:  true,
			Interval: Duration(autosave.DefaultInterval),
		},
		Events: EventsConfig{
			KafkaTopic: kafka.DefaultTopic,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
	}
}
