// Package api provides an HTTP shell over one keepsake project: save, load,
// clear and inspect the durable record, and read or replace the live diagram.
package api

import (
	"time"

	"github.com/papercomputeco/keepsake/pkg/eventstream/local"
	"github.com/papercomputeco/keepsake/pkg/metrics"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Events, when set, backs GET /events with its recent history.
	Events *local.Bus

	// KeepAlive is the comment interval on GET /events/stream. Zero means
	// 15 seconds.
	KeepAlive time.Duration

	// Metrics, when set, is served at GET /metrics.
	Metrics *metrics.Recorder
}
