package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// recordsDir is the subdirectory saved records live in.
const recordsDir = "records"

// RecordPath returns the path of the record file for key under the target
// directory.
func (m *Manager) RecordPath(key, overrideDir string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid record key %q", key)
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}

	dir = filepath.Join(dir, recordsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating records directory %s: %w", dir, err)
	}

	return filepath.Join(dir, key+".json"), nil
}

// ReadRecord returns the contents of a record file.
// Returns nil, nil if no record exists.
func (m *Manager) ReadRecord(key, overrideDir string) ([]byte, error) {
	path, err := m.RecordPath(key, overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading record %s: %w", key, err)
	}

	return data, nil
}

// WriteRecord atomically replaces a record file: the data is written to a
// temporary file in the same directory and renamed into place.
func (m *Manager) WriteRecord(key string, data []byte, overrideDir string) error {
	path, err := m.RecordPath(key, overrideDir)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary record: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing record %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing record %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing record %s: %w", key, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing record %s: %w", key, err)
	}

	return nil
}

// RemoveRecord removes a record file.
// Returns nil if the file doesn't exist (already removed).
func (m *Manager) RemoveRecord(key, overrideDir string) error {
	path, err := m.RecordPath(key, overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing record %s: %w", key, err)
	}

	return nil
}
