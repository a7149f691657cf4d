package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/papercomputeco/keepsake/pkg/logger"
	"github.com/papercomputeco/keepsake/pkg/snapshot"
)

const (
	// DefaultKey is the well-known key the project record is stored under.
	DefaultKey = "keepsake.project"

	// DefaultTTL is how long a saved record stays loadable.
	DefaultTTL = 24 * time.Hour
)

// Config configures a Store.
type Config struct {
	Key string
	TTL time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Store reads and writes the single durable project record.
type Store struct {
	driver Driver
	key    string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Info describes the stored record.
type Info struct {
	HasData      bool   `json:"hasData" yaml:"hasData"`
	Version      string `json:"version,omitempty" yaml:"version,omitempty"`
	SavedAtEpoch int64  `json:"savedAtEpoch,omitempty" yaml:"savedAtEpoch,omitempty"`
	SizeBytes    int    `json:"sizeBytes,omitempty" yaml:"sizeBytes,omitempty"`
	AgeMs        int64  `json:"ageMs,omitempty" yaml:"ageMs,omitempty"`
}

// NewStore creates a Store on top of driver.
func NewStore(driver Driver, c Config) *Store {
	s := &Store{
		driver: driver,
		key:    c.Key,
		ttl:    c.TTL,
		now:    c.Now,
		logger: logger.OrNop(c.Logger),
	}
	if s.key == "" {
		s.key = DefaultKey
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Key returns the key records are stored under.
func (s *Store) Key() string {
	return s.key
}

// TTL returns the record lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Write serializes snap into a durable record and stores it, replacing any
// previous record. Failures are returned as QuotaError or WriteError and are
// never retried.
func (s *Store) Write(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap == nil {
		return WriteError{Key: s.key, Err: errors.New("nil snapshot")}
	}

	record := snapshot.DurableRecord{
		FormatVersion: snap.FormatVersion,
		SavedAtEpoch:  snap.SavedAtEpoch,
		Snapshot:      snap,
	}
	if record.FormatVersion == "" {
		record.FormatVersion = snapshot.FormatVersion
	}
	if record.SavedAtEpoch == 0 {
		record.SavedAtEpoch = s.now().UnixMilli()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return WriteError{Key: s.key, Err: err}
	}

	if err := s.driver.Set(ctx, s.key, data); err != nil {
		var quota QuotaError
		if errors.As(err, &quota) {
			return quota
		}
		return WriteError{Key: s.key, Err: err}
	}

	s.logger.Debug("wrote durable record", "key", s.key, "bytes", len(data))
	return nil
}

// Read returns the stored snapshot, or nil when there is no record or the
// record has outlived the TTL. Stale records are deleted.
func (s *Store) Read(ctx context.Context) (*snapshot.Snapshot, error) {
	record, _, err := s.read(ctx)
	if err != nil || record == nil {
		return nil, err
	}
	return record.Snapshot, nil
}

// Exists reports whether a fresh, decodable record is stored.
func (s *Store) Exists(ctx context.Context) bool {
	record, _, err := s.read(ctx)
	return err == nil && record != nil
}

// Remove deletes the stored record.
func (s *Store) Remove(ctx context.Context) error {
	return s.driver.Remove(ctx, s.key)
}

// Info describes the stored record without returning it.
func (s *Store) Info(ctx context.Context) (Info, error) {
	record, size, err := s.read(ctx)
	if err != nil {
		return Info{}, err
	}
	if record == nil {
		return Info{HasData: false}, nil
	}
	return Info{
		HasData:      true,
		Version:      record.FormatVersion,
		SavedAtEpoch: record.SavedAtEpoch,
		SizeBytes:    size,
		AgeMs:        s.now().UnixMilli() - record.SavedAtEpoch,
	}, nil
}

func (s *Store) read(ctx context.Context) (*snapshot.DurableRecord, int, error) {
	data, err := s.driver.Get(ctx, s.key)
	if err != nil {
		var nf NotFoundError
		if errors.As(err, &nf) {
			return nil, 0, nil
		}
		return nil, 0, err
	}

	record := &snapshot.DurableRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, 0, CorruptRecordError{Key: s.key, Err: err}
	}
	if err := record.Validate(); err != nil {
		return nil, 0, CorruptRecordError{Key: s.key, Err: err}
	}

	age := time.Duration(s.now().UnixMilli()-record.SavedAtEpoch) * time.Millisecond
	if age > s.ttl {
		s.logger.Info("discarding stale record", "key", s.key, "age", age, "ttl", s.ttl)
		if err := s.driver.Remove(ctx, s.key); err != nil {
			s.logger.Warn("could not remove stale record", "key", s.key, "error", err)
		}
		return nil, 0, nil
	}

	return record, len(data), nil
}
