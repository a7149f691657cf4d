// Package storage persists snapshots under one well-known key with a
// time-to-live. Backends implement Driver; Store layers the record envelope,
// expiry and error classification on top.
package storage

import "context"

// Driver is a durable key-value backend. Values are opaque serialized
// records and are written whole.
type Driver interface {
	// Get returns the value stored under key, or NotFoundError.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value. Drivers with
	// a size limit return QuotaError when value does not fit.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases any resources held by the driver.
	Close() error
}
