// Package session assembles one keepsake project from configuration: the
// live engine and workspace, the durable store, the event publishers, the
// metrics recorder and the orchestrator on top.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/keepsake/pkg/autosave"
	"github.com/papercomputeco/keepsake/pkg/config"
	"github.com/papercomputeco/keepsake/pkg/eventstream"
	"github.com/papercomputeco/keepsake/pkg/eventstream/kafka"
	"github.com/papercomputeco/keepsake/pkg/eventstream/local"
	"github.com/papercomputeco/keepsake/pkg/logger"
	"github.com/papercomputeco/keepsake/pkg/metrics"
	"github.com/papercomputeco/keepsake/pkg/project"
	"github.com/papercomputeco/keepsake/pkg/scene/inmemory"
	"github.com/papercomputeco/keepsake/pkg/storage"
	"github.com/papercomputeco/keepsake/pkg/workspace"
)

// Options configures Open.
type Options struct {
	Config *config.Config

	// Dir is the resolved .keepsake directory that local backends default
	// into.
	Dir string

	// Notations lists the extension notations the engine writes into its
	// primary document. Shapes of any other extension are kept only as
	// auxiliary nodes.
	Notations []string

	// Driver overrides the configured storage backend.
	Driver storage.Driver

	Logger *slog.Logger
}

// Session is an open project.
type Session struct {
	Engine       *inmemory.Engine
	Workspace    *workspace.Workspace
	Store        *storage.Store
	Orchestrator *project.Orchestrator
	Events       *local.Bus
	Metrics      *metrics.Recorder

	cfg      *config.Config
	driver   storage.Driver
	pub      eventstream.Publisher
	autosave *autosave.Worker
	detach   func()
	logger   *slog.Logger
}

// Open builds a Session. Close releases the driver and publishers.
func Open(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	log := logger.OrNop(opts.Logger)

	driver := opts.Driver
	if driver == nil {
		var err error
		driver, err = OpenDriver(ctx, cfg.Storage, opts.Dir, log)
		if err != nil {
			return nil, err
		}
	}

	bus := local.NewBus(local.DefaultHistory)
	publishers := eventstream.Multi{bus}
	if len(cfg.Events.KafkaBrokers) > 0 {
		kp, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Events.KafkaBrokers,
			Topic:   cfg.Events.KafkaTopic,
			Logger:  log,
		})
		if err != nil {
			driver.Close()
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		log.Info("publishing events to kafka", "brokers", cfg.Events.KafkaBrokers, "topic", cfg.Events.KafkaTopic)
		publishers = append(publishers, kp)
	}

	engine := inmemory.New(
		inmemory.WithExtensions(opts.Notations...),
		inmemory.WithLogger(log),
	)
	ws := workspace.New(engine)
	store := storage.NewStore(driver, cfg.StoreConfig(log))
	rec := metrics.New()

	orch := project.NewOrchestrator(ws, store, project.Config{
		Capture:   cfg.CaptureConfig(log),
		Restore:   cfg.RestoreConfig(log),
		Publisher: publishers,
		Metrics:   rec,
		Logger:    log,
	})

	return &Session{
		Engine:       engine,
		Workspace:    ws,
		Store:        store,
		Orchestrator: orch,
		Events:       bus,
		Metrics:      rec,
		cfg:          cfg,
		driver:       driver,
		pub:          publishers,
		logger:       log,
	}, nil
}

// StartAutosave attaches a background save worker to the engine's change
// notifications and hands it to the orchestrator so loads suspend it.
// Calling it again returns the running worker.
func (s *Session) StartAutosave() *autosave.Worker {
	if s.autosave != nil {
		return s.autosave
	}

	w := autosave.NewWorker(autosave.Config{
		Save: func(ctx context.Context) error {
			result := s.Orchestrator.SaveProject(ctx)
			switch {
			case result.Success:
				return nil
			case result.Reason != "":
				return errors.New(result.Reason)
			default:
				return errors.New(result.Error)
			}
		},
		Interval: s.cfg.AutosaveInterval(),
		Logger:   s.logger,
	})

	s.detach = w.Attach(s.Engine)
	s.Orchestrator.SetAutosave(w)
	s.autosave = w
	return w
}

// Close stops autosave, then closes the publishers and the driver.
func (s *Session) Close() error {
	if s.autosave != nil {
		s.detach()
		s.autosave.Close()
		s.Orchestrator.SetAutosave(nil)
	}
	return errors.Join(s.pub.Close(), s.driver.Close())
}
