// Package project is the application-facing facade over capture, the
// durable store and restoration.
//
// Save and load are each guarded by an in-progress flag: a second call made
// while the first is still running is rejected immediately. While a load is
// rebuilding the diagram, the autosave capability is suspended so the
// restore is not picked up as a stream of live edits and saved over the
// record being loaded.
package project

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/keepsake/pkg/capture"
	"github.com/papercomputeco/keepsake/pkg/eventstream"
	"github.com/papercomputeco/keepsake/pkg/eventstream/nop"
	"github.com/papercomputeco/keepsake/pkg/logger"
	"github.com/papercomputeco/keepsake/pkg/metrics"
	"github.com/papercomputeco/keepsake/pkg/restore"
	"github.com/papercomputeco/keepsake/pkg/storage"
	"github.com/papercomputeco/keepsake/pkg/workspace"
)

// Rejection reasons.
const (
	ReasonAlreadySaving  = "Already saving"
	ReasonAlreadyLoading = "Already loading"
	ReasonLoadInProgress = "Load in progress"
	ReasonNoSavedData    = "No saved data"
)

// Suspender is a background writer that can be paused during a load.
type Suspender interface {
	Suspend()
	Resume()
}

// Config configures an Orchestrator.
type Config struct {
	Capture capture.Config
	Restore restore.Config

	// Publisher receives operation events. Defaults to a no-op publisher.
	Publisher eventstream.Publisher

	Metrics *metrics.Recorder

	// Now defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// SaveData describes a successful save.
type SaveData struct {
	SavedAtEpoch       int64 `json:"savedAtEpoch"`
	SizeBytes          int   `json:"sizeBytes"`
	AuxiliaryNodes     int   `json:"auxiliaryNodes"`
	Relationships      int   `json:"relationships"`
	ConnectionGeometry int   `json:"connectionGeometry"`
}

// SaveResult is the outcome of SaveProject.
type SaveResult struct {
	Success bool      `json:"success"`
	Data    *SaveData `json:"data,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// LoadResult is the outcome of LoadProject.
type LoadResult struct {
	Success bool            `json:"success"`
	Data    *restore.Report `json:"data,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Orchestrator coordinates saving and loading one project.
type Orchestrator struct {
	ws       *workspace.Workspace
	store    *storage.Store
	capturer *capture.Capturer
	restorer *restore.Restorer

	publisher eventstream.Publisher
	metrics   *metrics.Recorder
	now       func() time.Time
	logger    *slog.Logger

	autosave atomic.Pointer[suspenderBox]

	saving  atomic.Bool
	loading atomic.Bool
}

type suspenderBox struct {
	s Suspender
}

// NewOrchestrator wires capture, restore and the store around ws.
func NewOrchestrator(ws *workspace.Workspace, store *storage.Store, c Config) *Orchestrator {
	log := logger.OrNop(c.Logger)

	now := c.Now
	if now == nil {
		now = time.Now
	}

	capCfg := c.Capture
	if capCfg.Now == nil {
		capCfg.Now = now
	}
	if capCfg.Logger == nil {
		capCfg.Logger = log
	}
	resCfg := c.Restore
	if resCfg.Logger == nil {
		resCfg.Logger = log
	}

	var publisher eventstream.Publisher = nop.NewPublisher()
	if c.Publisher != nil {
		publisher = c.Publisher
	}

	return &Orchestrator{
		ws:        ws,
		store:     store,
		capturer:  capture.New(ws, capCfg),
		restorer:  restore.New(ws, resCfg),
		publisher: publisher,
		metrics:   c.Metrics,
		now:       now,
		logger:    log,
	}
}

// SetAutosave registers the background writer suspended during loads.
func (o *Orchestrator) SetAutosave(s Suspender) {
	if s == nil {
		o.autosave.Store(nil)
		return
	}
	o.autosave.Store(&suspenderBox{s: s})
}

// Workspace returns the workspace the orchestrator operates on.
func (o *Orchestrator) Workspace() *workspace.Workspace {
	return o.ws
}

// Saving reports whether a save is in progress.
func (o *Orchestrator) Saving() bool {
	return o.saving.Load()
}

// Loading reports whether a load is in progress.
func (o *Orchestrator) Loading() bool {
	return o.loading.Load()
}

// SaveProject captures the workspace and writes it to the store.
func (o *Orchestrator) SaveProject(ctx context.Context) SaveResult {
	if o.loading.Load() {
		o.metrics.Operation("save", metrics.ResultRejected, 0)
		return SaveResult{Success: false, Reason: ReasonLoadInProgress}
	}
	if !o.saving.CompareAndSwap(false, true) {
		o.metrics.Operation("save", metrics.ResultRejected, 0)
		return SaveResult{Success: false, Reason: ReasonAlreadySaving}
	}
	defer o.saving.Store(false)

	start := o.now()

	snap, err := o.capturer.Capture(ctx)
	if err != nil {
		return o.saveFailed(ctx, start, err)
	}
	if err := o.store.Write(ctx, snap); err != nil {
		return o.saveFailed(ctx, start, err)
	}

	data := &SaveData{
		SavedAtEpoch:       snap.SavedAtEpoch,
		AuxiliaryNodes:     len(snap.AuxiliaryNodes),
		Relationships:      len(snap.Relationships),
		ConnectionGeometry: len(snap.ConnectionGeometry),
	}
	if info, err := o.store.Info(ctx); err == nil {
		data.SizeBytes = info.SizeBytes
	}

	o.metrics.Operation("save", metrics.ResultSuccess, o.now().Sub(start))
	o.metrics.SnapshotSize(data.SizeBytes)
	o.logger.Info("project saved",
		"key", o.store.Key(),
		"bytes", data.SizeBytes,
		"relationships", data.Relationships,
		"auxiliary_nodes", data.AuxiliaryNodes,
	)
	o.publish(ctx, eventstream.EventTypeSaveSuccess, eventstream.Payload{
		SizeBytes: data.SizeBytes,
		Details:   data,
	})

	return SaveResult{Success: true, Data: data}
}

func (o *Orchestrator) saveFailed(ctx context.Context, start time.Time, err error) SaveResult {
	o.metrics.Operation("save", metrics.ResultError, o.now().Sub(start))
	o.logger.Error("save failed", "key", o.store.Key(), "error", err)
	o.publish(ctx, eventstream.EventTypeSaveError, eventstream.Payload{Error: err.Error()})
	return SaveResult{Success: false, Error: err.Error()}
}

// LoadProject reads the stored snapshot and restores it into the workspace.
func (o *Orchestrator) LoadProject(ctx context.Context) LoadResult {
	if !o.loading.CompareAndSwap(false, true) {
		o.metrics.Operation("load", metrics.ResultRejected, 0)
		return LoadResult{Success: false, Reason: ReasonAlreadyLoading}
	}
	defer o.loading.Store(false)

	if box := o.autosave.Load(); box != nil {
		box.s.Suspend()
		defer box.s.Resume()
	}

	start := o.now()

	snap, err := o.store.Read(ctx)
	if err != nil {
		return o.loadFailed(ctx, start, err)
	}
	if snap == nil {
		o.logger.Info("no saved data", "key", o.store.Key())
		return LoadResult{Success: false, Reason: ReasonNoSavedData}
	}

	report, err := o.restorer.Restore(ctx, snap)
	if err != nil {
		return o.loadFailed(ctx, start, err)
	}

	o.metrics.Operation("load", metrics.ResultSuccess, o.now().Sub(start))
	o.metrics.Restore(report.Applied, report.AlreadyCorrect, len(report.Skipped), len(report.Missing))
	o.logger.Info("project loaded",
		"key", o.store.Key(),
		"applied", report.Applied,
		"missing", len(report.Missing),
	)
	o.publish(ctx, eventstream.EventTypeLoadSuccess, eventstream.Payload{Details: report})

	return LoadResult{Success: true, Data: report}
}

func (o *Orchestrator) loadFailed(ctx context.Context, start time.Time, err error) LoadResult {
	o.metrics.Operation("load", metrics.ResultError, o.now().Sub(start))
	o.logger.Error("load failed", "key", o.store.Key(), "error", err)
	o.publish(ctx, eventstream.EventTypeLoadError, eventstream.Payload{Error: err.Error()})
	return LoadResult{Success: false, Error: err.Error()}
}

// HasSavedData reports whether a fresh record is stored.
func (o *Orchestrator) HasSavedData(ctx context.Context) bool {
	return o.store.Exists(ctx)
}

// ClearSavedData removes the stored record. It reports false when the
// backend could not remove it.
func (o *Orchestrator) ClearSavedData(ctx context.Context) bool {
	start := o.now()
	if err := o.store.Remove(ctx); err != nil {
		o.metrics.Operation("clear", metrics.ResultError, o.now().Sub(start))
		o.logger.Error("clear failed", "key", o.store.Key(), "error", err)
		return false
	}

	o.metrics.Operation("clear", metrics.ResultSuccess, o.now().Sub(start))
	o.publish(ctx, eventstream.EventTypeClearSuccess, eventstream.Payload{})
	return true
}

// StorageInfo describes the stored record.
func (o *Orchestrator) StorageInfo(ctx context.Context) (storage.Info, error) {
	return o.store.Info(ctx)
}

func (o *Orchestrator) publish(ctx context.Context, eventType string, payload eventstream.Payload) {
	event := eventstream.NewEvent(eventType, o.now(), payload)
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Warn("could not publish event", "type", eventType, "error", err)
	}
}
