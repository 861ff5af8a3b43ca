package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JadenB/Luxamp-sub000/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads the settings whenever the file is changed by another process
// and notifies subscribers of the keys that differ. It blocks until ctx is
// done.
func (s *Settings) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	// Watch the directory; editors and our own writes replace the file.
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	log := logging.For("config")
	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := s.reload(); err != nil {
				log.WithError(err).Warn("reloading settings")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("settings watcher")
		}
	}
}
