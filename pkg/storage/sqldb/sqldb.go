// Package sqldb provides storage operations over a database/sql handle. It is
// dialect-agnostic and is embedded by the sqlite and postgres drivers.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/papercomputeco/keepsake/pkg/storage"
)

// Dialect holds the SQL that differs between databases.
type Dialect struct {
	// Schema creates the records table if it does not exist.
	Schema string

	Get    string
	Upsert string
	Delete string
}

// Driver implements storage.Driver over a single records table.
type Driver struct {
	DB      *sql.DB
	dialect Dialect
}

// New creates the records table and returns a driver over db.
func New(ctx context.Context, db *sql.DB, d Dialect) (*Driver, error) {
	if _, err := db.ExecContext(ctx, d.Schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Driver{DB: db, dialect: d}, nil
}

// Get retrieves the value stored under key.
func (sd *Driver) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := sd.DB.QueryRowContext(ctx, sd.dialect.Get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return value, nil
}

// Set inserts or replaces the value stored under key.
func (sd *Driver) Set(ctx context.Context, key string, value []byte) error {
	if _, err := sd.DB.ExecContext(ctx, sd.dialect.Upsert, key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	return nil
}

// Remove deletes key.
func (sd *Driver) Remove(ctx context.Context, key string) error {
	if _, err := sd.DB.ExecContext(ctx, sd.dialect.Delete, key); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (sd *Driver) Close() error {
	return sd.DB.Close()
}
