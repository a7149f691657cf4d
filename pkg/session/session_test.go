package session_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/keepsake/pkg/config"
	"github.com/papercomputeco/keepsake/pkg/eventstream"
	"github.com/papercomputeco/keepsake/pkg/logger"
	"github.com/papercomputeco/keepsake/pkg/session"
)

const diagram = `<document>
  <shape id="Task_1" type="bpmn:Task" name="Review" x="0" y="0" width="100" height="80"></shape>
</document>`

var _ = Describe("OpenDriver", func() {
	var (
		ctx context.Context
		dir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
	})

	DescribeTable("opens local backends under the keepsake dir",
		func(backend string, created string) {
			driver, err := session.OpenDriver(ctx, config.StorageConfig{Backend: backend}, dir, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			defer driver.Close()

			Expect(driver.Set(ctx, "k", []byte("v"))).To(Succeed())
			got, err := driver.Get(ctx, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]byte("v")))

			if created != "" {
				_, err := os.Stat(filepath.Join(dir, created))
				Expect(err).NotTo(HaveOccurred())
			}
		},
		Entry("inmemory", "inmemory", ""),
		Entry("file", "file", ""),
		Entry("sqlite", "sqlite", "keepsake.sqlite"),
		Entry("badger", "badger", "badger"),
	)

	DescribeTable("rejects incomplete remote settings",
		func(c config.StorageConfig, msg string) {
			_, err := session.OpenDriver(ctx, c, dir, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring(msg)))
		},
		Entry("postgres without dsn", config.StorageConfig{Backend: "postgres"}, "postgres_dsn"),
		Entry("dynamodb without table", config.StorageConfig{Backend: "dynamodb"}, "dynamodb_table"),
		Entry("unknown backend", config.StorageConfig{Backend: "floppy"}, "unknown storage backend"),
	)
})

var _ = Describe("Session", func() {
	var (
		ctx context.Context
		cfg *config.Config
		s   *session.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.NewDefaultConfig()
		cfg.Storage.Backend = "inmemory"
		cfg.Restore.PollInterval = config.Duration(5 * time.Millisecond)
		cfg.Restore.SettleDelay = config.Duration(-1)
		cfg.Autosave.Interval = config.Duration(-1)

		var err error
		s, err = session.Open(ctx, session.Options{Config: cfg})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	It("saves and loads through the orchestrator and records events", func() {
		Expect(s.Engine.ImportDocument(ctx, diagram)).To(Succeed())

		saved := s.Orchestrator.SaveProject(ctx)
		Expect(saved.Success).To(BeTrue())

		Expect(s.Engine.CreateEmptyDocument(ctx)).To(Succeed())
		loaded := s.Orchestrator.LoadProject(ctx)
		Expect(loaded.Success).To(BeTrue())
		Expect(s.Workspace.Exists("Task_1")).To(BeTrue())

		events := s.Events.Recent(0)
		Expect(events).To(HaveLen(2))
		Expect(events[0].EventType).To(Equal(eventstream.EventTypeSaveSuccess))
		Expect(events[1].EventType).To(Equal(eventstream.EventTypeLoadSuccess))
	})

	It("autosaves after engine changes", func() {
		w := s.StartAutosave()
		Expect(s.StartAutosave()).To(BeIdenticalTo(w))

		Expect(s.Engine.ImportDocument(ctx, diagram)).To(Succeed())

		Eventually(func() bool {
			return s.Orchestrator.HasSavedData(ctx)
		}).Should(BeTrue())
	})
})
