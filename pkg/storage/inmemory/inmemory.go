// Package inmemory provides a map-backed storage driver with an optional
// byte quota.
package inmemory

import (
	"context"
	"sync"

	"github.com/papercomputeco/keepsake/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of records
	mu sync.RWMutex

	// records maps keys to serialized values
	records map[string][]byte

	// quota is the total number of bytes the driver will hold, 0 for no limit
	quota int
}

// Option configures a Driver.
type Option func(*Driver)

// WithQuota limits the total size of all stored values.
func WithQuota(bytes int) Option {
	return func(d *Driver) {
		d.quota = bytes
	}
}

// NewDriver creates a new in-memory driver.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		records: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Get returns a copy of the value stored under key.
func (d *Driver) Get(_ context.Context, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.records[key]
	if !ok {
		return nil, storage.NotFoundError{Key: key}
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (d *Driver) Set(_ context.Context, key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.quota > 0 {
		used := 0
		for k, v := range d.records {
			if k != key {
				used += len(v)
			}
		}
		if used+len(value) > d.quota {
			return storage.QuotaError{Key: key, Size: len(value), Limit: d.quota - used}
		}
	}

	d.records[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key.
func (d *Driver) Remove(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.records, key)
	return nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}
