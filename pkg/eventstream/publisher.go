package eventstream

import (
	"context"
	"errors"
)

// Publisher publishes events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// Multi fans every event out to all of its publishers.
type Multi []Publisher

// Publish sends event to every publisher and joins their errors.
func (m Multi) Publish(ctx context.Context, event *Event) error {
	if event == nil {
		return ErrNilEvent
	}

	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
