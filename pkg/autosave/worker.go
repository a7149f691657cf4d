// Package autosave saves the project in the background whenever the live
// diagram changes.
//
// Change notifications are coalesced: the queue holds at most one pending
// save, so a burst of edits results in a single save. Saves are throttled by
// a rate limiter and can be suspended while a load is rebuilding the diagram.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/papercomputeco/keepsake/pkg/logger"
	"github.com/papercomputeco/keepsake/pkg/scene"
)

// DefaultInterval is the minimum time between two autosaves.
const DefaultInterval = 2 * time.Second

// SaveFunc persists the project.
type SaveFunc func(ctx context.Context) error

// Job is one save request.
type Job struct {
	// Reason is the change kind that triggered the save.
	Reason string
	IDs    []string
}

// Config is the configuration for the autosave worker.
type Config struct {
	Save SaveFunc

	// Interval is the minimum time between saves. Negative disables
	// throttling; zero uses DefaultInterval.
	Interval time.Duration

	Logger *slog.Logger
}

// Worker runs saves on a single background goroutine.
type Worker struct {
	save    SaveFunc
	limiter *rate.Limiter
	queue   chan Job
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool

	suspended atomic.Bool
	saved     atomic.Int64
	failed    atomic.Int64
	coalesced atomic.Int64
}

// NewWorker creates a Worker and starts its goroutine.
func NewWorker(c Config) *Worker {
	interval := c.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		save:    c.Save,
		limiter: rate.NewLimiter(limit, 1),
		queue:   make(chan Job, 1),
		logger:  logger.OrNop(c.Logger),
		ctx:     ctx,
		cancel:  cancel,
	}

	w.wg.Add(1)
	go w.run()
	return w
}

// Enqueue requests a save. It returns false when the request was folded into
// a save that is already pending, or when the worker is suspended or closed.
func (w *Worker) Enqueue(job Job) bool {
	if w.suspended.Load() {
		w.logger.Debug("autosave suspended, change ignored", "reason", job.Reason)
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}

	select {
	case w.queue <- job:
		w.logger.Debug("autosave queued", "reason", job.Reason, "ids", len(job.IDs))
		return true
	default:
		w.coalesced.Add(1)
		return false
	}
}

// Attach subscribes the worker to the change notifications of n. The returned
// function unsubscribes.
func (w *Worker) Attach(n scene.ChangeNotifier) func() {
	return n.OnChange(func(c scene.Change) {
		w.Enqueue(Job{Reason: c.Kind, IDs: c.IDs})
	})
}

// Suspend stops accepting save requests until Resume.
func (w *Worker) Suspend() {
	w.suspended.Store(true)
}

// Resume accepts save requests again.
func (w *Worker) Resume() {
	w.suspended.Store(false)
}

// Suspended reports whether the worker is suspended.
func (w *Worker) Suspended() bool {
	return w.suspended.Load()
}

// Stats returns the number of completed, failed and coalesced saves.
func (w *Worker) Stats() (saved, failed, coalesced int64) {
	return w.saved.Load(), w.failed.Load(), w.coalesced.Load()
}

// Close stops accepting requests and waits for a pending save to finish.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
	w.cancel()
}

func (w *Worker) run() {
	defer w.wg.Done()
	w.logger.Debug("autosave worker started")

	for job := range w.queue {
		w.process(job)
	}

	w.logger.Debug("autosave worker stopped")
}

func (w *Worker) process(job Job) {
	if w.suspended.Load() {
		w.logger.Debug("autosave suspended, pending save dropped", "reason", job.Reason)
		return
	}
	if err := w.limiter.Wait(w.ctx); err != nil {
		return
	}
	// A load may have started while the limiter held the job.
	if w.suspended.Load() {
		w.logger.Debug("autosave suspended, pending save dropped", "reason", job.Reason)
		return
	}

	if err := w.save(w.ctx); err != nil {
		w.failed.Add(1)
		w.logger.Error("autosave failed", "reason", job.Reason, "error", err)
		return
	}
	w.saved.Add(1)
	w.logger.Debug("autosave complete", "reason", job.Reason)
}
