package storage

import "fmt"

// NotFoundError is returned when a key doesn't exist in the backend.
type NotFoundError struct {
	Key string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return "record not found"
	}

	return "record not found: " + e.Key
}

// QuotaError is returned when a record exceeds the backend's capacity.
type QuotaError struct {
	Key   string
	Size  int
	Limit int
}

func (e QuotaError) Error() string {
	return fmt.Sprintf("storage quota exceeded writing %s: %d bytes, limit %d", e.Key, e.Size, e.Limit)
}

// WriteError wraps a failure to serialize or persist a record.
type WriteError struct {
	Key string
	Err error
}

func (e WriteError) Error() string {
	return "writing " + e.Key + ": " + e.Err.Error()
}

func (e WriteError) Unwrap() error {
	return e.Err
}

// CorruptRecordError is returned when a stored record cannot be decoded or
// fails validation.
type CorruptRecordError struct {
	Key string
	Err error
}

func (e CorruptRecordError) Error() string {
	return "corrupt record " + e.Key + ": " + e.Err.Error()
}

func (e CorruptRecordError) Unwrap() error {
	return e.Err
}
