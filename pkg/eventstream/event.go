package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	EventTypeSaveSuccess  = "save.success"
	EventTypeSaveError    = "save.error"
	EventTypeLoadSuccess  = "load.success"
	EventTypeLoadError    = "load.error"
	EventTypeClearSuccess = "clear.success"
)

// Event is a transport-neutral notification about a project operation.
type Event struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Payload       Payload   `json:"payload"`
}

// Payload carries the outcome of the operation.
type Payload struct {
	// Timestamp is the operation time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`

	Error     string `json:"error,omitempty"`
	SizeBytes int    `json:"size_bytes,omitempty"`

	// Details holds operation specific data, such as a restore report.
	Details any `json:"details,omitempty"`
}

// NewEvent stamps a new event of eventType emitted at now.
func NewEvent(eventType string, now time.Time, payload Payload) *Event {
	if payload.Timestamp == 0 {
		payload.Timestamp = now.UnixMilli()
	}
	return &Event{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
		Payload:       payload,
	}
}
