// Package nop provides the publisher the orchestrator falls back to when no
// event sink is configured.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/keepsake/pkg/eventstream"
)

// Publisher accepts events and drops them, keeping only a count.
type Publisher struct {
	dropped atomic.Int64
}

var _ eventstream.Publisher = (*Publisher)(nil)

func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish rejects nil events and cancelled contexts, like a real publisher
// would, and otherwise discards event.
func (p *Publisher) Publish(ctx context.Context, event *eventstream.Event) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.dropped.Add(1)
	return nil
}

// Dropped is the number of events discarded so far.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) Close() error {
	return nil
}
