// Package waitfor is the single readiness primitive used while a diagram is
// being rebuilt: poll a condition at a fixed interval until it holds or the
// attempt budget runs out.
package waitfor

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultInterval    = 500 * time.Millisecond
	DefaultMaxAttempts = 50
)

// Options bounds a Poll. Zero values take the defaults.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

var errPending = errors.New("condition not met")

// Poll calls check until it returns no outstanding items or the attempt
// budget is exhausted, and returns whatever was still outstanding after the
// last attempt. Running out of attempts is not an error; only context
// cancellation is.
func Poll(ctx context.Context, opts Options, check func() []string) ([]string, error) {
	opts = opts.withDefaults()

	var missing []string
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		missing = check()
		if len(missing) > 0 {
			return struct{}{}, errPending
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(opts.Interval)),
		backoff.WithMaxTries(uint(opts.MaxAttempts)),
		backoff.WithMaxElapsedTime(opts.Interval*time.Duration(opts.MaxAttempts+1)),
	)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return missing, ctxErr
	}
	if err != nil && !errors.Is(err, errPending) {
		return missing, err
	}
	return missing, nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
