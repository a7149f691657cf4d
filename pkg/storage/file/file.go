// Package file provides a storage driver that keeps each record as a JSON
// file in the .keepsake/records directory.
package file

import (
	"context"

	"github.com/papercomputeco/keepsake/pkg/dotdir"
	"github.com/papercomputeco/keepsake/pkg/storage"
)

// Driver implements storage.Driver on top of the dotdir record files.
type Driver struct {
	manager *dotdir.Manager
	dir     string
}

// NewDriver creates a file driver. An empty dir uses the dotdir lookup order
// (nearest .keepsake/ at or above the working directory, then ~/.keepsake).
func NewDriver(dir string) (*Driver, error) {
	m := dotdir.NewManager()
	target, err := m.Target(dir)
	if err != nil {
		return nil, err
	}
	return &Driver{manager: m, dir: target}, nil
}

// Dir returns the resolved .keepsake directory.
func (d *Driver) Dir() string {
	return d.dir
}

func (d *Driver) Get(_ context.Context, key string) ([]byte, error) {
	data, err := d.manager.ReadRecord(key, d.dir)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, storage.NotFoundError{Key: key}
	}
	return data, nil
}

func (d *Driver) Set(_ context.Context, key string, value []byte) error {
	return d.manager.WriteRecord(key, value, d.dir)
}

func (d *Driver) Remove(_ context.Context, key string) error {
	return d.manager.RemoveRecord(key, d.dir)
}

func (d *Driver) Close() error {
	return nil
}
