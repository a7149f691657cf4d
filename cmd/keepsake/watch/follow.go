package watchcmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Importer replaces the live diagram with a document.
type Importer interface {
	ImportDocument(ctx context.Context, text string) error
}

// Follow imports path into imp once, then again every time the file is
// written or recreated, until ctx is done. A file that does not parse (an
// editor caught mid-write) is logged and skipped.
func Follow(ctx context.Context, path string, imp Importer, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating diagram watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often save by renaming over the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching diagram dir: %w", err)
	}

	load := func() error {
		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading diagram: %w", err)
		}
		if err := imp.ImportDocument(ctx, string(text)); err != nil {
			logger.Warn("diagram did not import, waiting for the next change", "path", path, "error", err)
			return nil
		}
		logger.Debug("diagram imported", "path", path, "bytes", len(text))
		return nil
	}

	if err := load(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := load(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("diagram watcher error: %w", err)
		}
	}
}
