package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/keepsake/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	writeConfig := func(data string) {
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads all config fields", func() {
			writeConfig(`version = 0

[storage]
backend = "sqlite"
key = "team.project"
ttl = "48h"
quota_bytes = 1048576
sqlite_path = "/tmp/keepsake.sqlite"
postgres_dsn = "postgres://localhost/keepsake"
badger_path = "/tmp/badger"
dynamodb_table = "records"
dynamodb_region = "eu-west-1"
file_dir = "/tmp/records"

[restore]
poll_interval = "250ms"
max_attempts = 10
settle_delay = "50ms"
label_nudge_x = 5.0
label_nudge_y = 10.0

[inference]
proximity_threshold = 250.0

[capture]
form_fields = ["projectName", "owner"]

[autosave]
enabled = false
interval = "5s"

[events]
kafka_brokers = ["localhost:9092"]
kafka_topic = "diagram.events"

[api]
listen = ":9091"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.Backend).To(Equal("sqlite"))
			Expect(cfg.Storage.Key).To(Equal("team.project"))
			Expect(cfg.Storage.TTL.Std()).To(Equal(48 * time.Hour))
			Expect(cfg.Storage.QuotaBytes).To(Equal(1048576))
			Expect(cfg.Storage.DynamoDBRegion).To(Equal("eu-west-1"))
			Expect(cfg.Restore.PollInterval.Std()).To(Equal(250 * time.Millisecond))
			Expect(cfg.Restore.MaxAttempts).To(Equal(10))
			Expect(cfg.Restore.LabelNudgeY).To(Equal(10.0))
			Expect(cfg.Inference.ProximityThreshold).To(Equal(250.0))
			Expect(cfg.Capture.FormFields).To(Equal([]string{"projectName", "owner"}))
			Expect(cfg.Autosave.Enabled).To(BeFalse())
			Expect(cfg.Autosave.Interval.Std()).To(Equal(5 * time.Second))
			Expect(cfg.Events.KafkaBrokers).To(Equal([]string{"localhost:9092"}))
			Expect(cfg.API.Listen).To(Equal(":9091"))
		})

		It("fills in defaults for unset fields in a partial config", func() {
			writeConfig(`[storage]
backend = "badger"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Storage.Backend).To(Equal("badger"))
			Expect(cfg.Storage.TTL).To(Equal(defaults.Storage.TTL))
			Expect(cfg.Restore).To(Equal(defaults.Restore))
			Expect(cfg.Capture.FormFields).To(Equal(defaults.Capture.FormFields))
		})

		It("keeps a label nudge explicitly set to zero", func() {
			writeConfig(`[restore]
label_nudge_x = 0.0
label_nudge_y = 0.0
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Restore.LabelNudgeX).To(BeZero())
			Expect(cfg.Restore.LabelNudgeY).To(BeZero())
			Expect(cfg.Restore.SettleDelay).To(Equal(config.NewDefaultConfig().Restore.SettleDelay))
		})

		It("defaults only the label nudge axis missing from the file", func() {
			writeConfig(`[restore]
label_nudge_y = 0.0
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Restore.LabelNudgeX).To(Equal(config.NewDefaultConfig().Restore.LabelNudgeX))
			Expect(cfg.Restore.LabelNudgeY).To(BeZero())
		})

		It("persists a zero label nudge set through the configer", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SetConfigValue("restore.label_nudge_y", "0")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Restore.LabelNudgeY).To(BeZero())
		})

		It("returns error for malformed TOML", func() {
			writeConfig(`[storage`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
		})

		It("returns error for unsupported config version", func() {
			writeConfig("version = 999\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version")))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk and reads it back", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Storage.Backend = "postgres"
			cfg.Storage.TTL = config.Duration(time.Hour)
			cfg.Events.KafkaBrokers = []string{"a:9092", "b:9092"}
			Expect(c.SaveConfig(cfg)).To(Succeed())

			data, err := os.ReadFile(c.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`ttl = "1h0m0s"`))

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})

		It("refuses an invalid config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Storage.Backend = "floppy"
			Expect(c.SaveConfig(cfg)).To(MatchError(ContainSubstring("invalid config")))
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets and gets a string key", func() {
			Expect(c.SetConfigValue("storage.backend", "dynamodb")).To(Succeed())
			Expect(c.GetConfigValue("storage.backend")).To(Equal("dynamodb"))
		})

		It("sets and gets a duration key", func() {
			Expect(c.SetConfigValue("storage.ttl", "90m")).To(Succeed())
			Expect(c.GetConfigValue("storage.ttl")).To(Equal("1h30m0s"))
		})

		It("sets and gets a list key", func() {
			Expect(c.SetConfigValue("events.kafka_brokers", "a:9092, b:9092")).To(Succeed())
			Expect(c.GetConfigValue("events.kafka_brokers")).To(Equal("a:9092,b:9092"))
		})

		It("sets a float key", func() {
			Expect(c.SetConfigValue("inference.proximity_threshold", "123.5")).To(Succeed())
			Expect(c.GetConfigValue("inference.proximity_threshold")).To(Equal("123.5"))
		})

		It("returns error for invalid values", func() {
			Expect(c.SetConfigValue("restore.max_attempts", "many")).To(MatchError(ContainSubstring("restore.max_attempts")))
			Expect(c.SetConfigValue("storage.ttl", "soon")).To(HaveOccurred())
			Expect(c.SetConfigValue("autosave.enabled", "maybe")).To(HaveOccurred())
			Expect(c.SetConfigValue("storage.backend", "floppy")).To(HaveOccurred())
		})

		It("returns error for unknown key", func() {
			Expect(c.SetConfigValue("proxy.upstream", "x")).To(MatchError(ContainSubstring("unknown config key")))
			_, err := c.GetConfigValue("proxy.upstream")
			Expect(err).To(HaveOccurred())
		})

		It("preserves existing values when setting a new key", func() {
			Expect(c.SetConfigValue("storage.backend", "sqlite")).To(Succeed())
			Expect(c.SetConfigValue("storage.sqlite_path", "/tmp/k.db")).To(Succeed())
			Expect(c.GetConfigValue("storage.backend")).To(Equal("sqlite"))
		})

		It("returns defaults when no config file exists", func() {
			Expect(c.GetConfigValue("api.listen")).To(Equal(":8081"))
			Expect(c.GetConfigValue("storage.postgres_dsn")).To(Equal(""))
		})
	})
})

var _ = Describe("ValidConfigKeys", func() {
	It("returns every key exactly once, storage first", func() {
		keys := config.ValidConfigKeys()
		Expect(keys[0]).To(Equal("storage.backend"))
		Expect(keys).To(ContainElements("restore.settle_delay", "capture.form_fields", "events.kafka_topic"))

		seen := map[string]bool{}
		for _, k := range keys {
			Expect(seen).NotTo(HaveKey(k))
			seen[k] = true
			Expect(config.IsValidConfigKey(k)).To(BeTrue())
		}
	})

	It("rejects unknown keys", func() {
		Expect(config.IsValidConfigKey("embedding.model")).To(BeFalse())
	})

	It("reads every key from a Config value", func() {
		cfg := config.NewDefaultConfig()
		for _, k := range config.ValidConfigKeys() {
			_, err := cfg.Value(k)
			Expect(err).NotTo(HaveOccurred(), k)
		}
		Expect(cfg.Value("storage.backend")).To(Equal("file"))

		_, err := cfg.Value("embedding.model")
		Expect(err).To(MatchError(ContainSubstring("unknown config key")))
	})
})

var _ = Describe("Component settings", func() {
	It("carries config values into the components", func() {
		cfg := config.NewDefaultConfig()
		cfg.Restore.MaxAttempts = 7
		cfg.Restore.LabelNudgeY = 30
		cfg.Storage.TTL = config.Duration(time.Minute)

		Expect(cfg.StoreConfig(nil).TTL).To(Equal(time.Minute))
		rc := cfg.RestoreConfig(nil)
		Expect(rc.Poll.MaxAttempts).To(Equal(7))
		Expect(rc.LabelNudge.Y).To(Equal(30.0))
		Expect(cfg.CaptureConfig(nil).Inference.Threshold()).To(Equal(400.0))
		Expect(cfg.AutosaveInterval()).To(Equal(2 * time.Second))
	})
})
