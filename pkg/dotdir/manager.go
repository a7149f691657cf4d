// Package dotdir manages the .keepsake/ and ~/.keepsake directories, which
// hold the config file and, for the file storage backend, the saved project
// records.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const dirName = ".keepsake"

// Source says where Locate found the directory.
type Source string

const (
	SourceOverride Source = "override"
	SourceProject  Source = "project"
	SourceHome     Source = "home"
)

// Manager resolves the keepsake directory. The zero lookups use the process
// working directory and the user's home.
type Manager struct {
	workingDir func() (string, error)
	homeDir    func() (string, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithWorkingDir starts the project lookup at dir instead of os.Getwd.
func WithWorkingDir(dir string) Option {
	return func(m *Manager) {
		m.workingDir = func() (string, error) { return dir, nil }
	}
}

// WithHomeDir uses dir instead of os.UserHomeDir.
func WithHomeDir(dir string) Option {
	return func(m *Manager) {
		m.homeDir = func() (string, error) { return dir, nil }
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		workingDir: os.Getwd,
		homeDir:    os.UserHomeDir,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Locate picks the keepsake directory without creating it: the override
// when given, else the nearest .keepsake/ in the working directory or one of
// its parents, else ~/.keepsake.
func (m *Manager) Locate(overrideDir string) (string, Source, error) {
	if overrideDir != "" {
		abs, err := filepath.Abs(overrideDir)
		return abs, SourceOverride, err
	}

	wd, err := m.workingDir()
	if err != nil {
		return "", "", fmt.Errorf("getting current directory: %w", err)
	}
	if dir, ok := findUp(wd); ok {
		return dir, SourceProject, nil
	}

	home, err := m.homeDir()
	if err != nil {
		return "", "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), SourceHome, nil
}

// Target returns the absolute path of the keepsake directory chosen by
// Locate, creating it if needed.
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, _, err := m.Locate(overrideDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating keepsake directory %s: %w", dir, err)
	}
	return dir, nil
}

func findUp(start string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, dirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
