package config

import (
	"log/slog"
	"time"

	"github.com/papercomputeco/keepsake/pkg/capture"
	"github.com/papercomputeco/keepsake/pkg/geometry"
	"github.com/papercomputeco/keepsake/pkg/inference"
	"github.com/papercomputeco/keepsake/pkg/restore"
	"github.com/papercomputeco/keepsake/pkg/storage"
	"github.com/papercomputeco/keepsake/pkg/waitfor"
)

// StoreConfig returns the durable store settings.
func (c *Config) StoreConfig(logger *slog.Logger) storage.Config {
	return storage.Config{
		Key:    c.Storage.Key,
		TTL:    c.Storage.TTL.Std(),
		Logger: logger,
	}
}

// CaptureConfig returns the capture settings, including the inference engine.
func (c *Config) CaptureConfig(logger *slog.Logger) capture.Config {
	return capture.Config{
		Inference: inference.NewEngine(inference.Config{
			ProximityThreshold: c.Inference.ProximityThreshold,
			Logger:             logger,
		}),
		FormFields: c.Capture.FormFields,
		Logger:     logger,
	}
}

// RestoreConfig returns the restore settings.
func (c *Config) RestoreConfig(logger *slog.Logger) restore.Config {
	return restore.Config{
		Poll: waitfor.Options{
			Interval:    c.Restore.PollInterval.Std(),
			MaxAttempts: c.Restore.MaxAttempts,
		},
		SettleDelay: c.Restore.SettleDelay.Std(),
		LabelNudge:  &geometry.Point{X: c.Restore.LabelNudgeX, Y: c.Restore.LabelNudgeY},
		Logger:      logger,
	}
}

// AutosaveInterval returns the minimum time between autosaves.
func (c *Config) AutosaveInterval() time.Duration {
	return c.Autosave.Interval.Std()
}
