package filedb

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	dberrors "github.com/maruel/filedb/internal/errors"
)

// Watch reloads the store whenever another writer replaces or modifies the
// database file. It blocks until ctx is done and returns ctx.Err().
//
// Reloads are throttled to one per Options.WatchInterval. Notifications for
// content equal to what this Store last wrote or read are ignored. A reload
// that fails, for example on a half-written file, is logged and the
// in-memory state is kept.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = w.Close()
	}()
	// Watch the directory, not the file: WriteAll renames over the target,
	// which drops a watch on the file itself.
	if err := w.Add(s.files.Dir()); err != nil {
		return dberrors.FileSystem("watch", s.files.Dir(), err)
	}
	target := filepath.Clean(s.files.Path())
	limiter := rate.NewLimiter(rate.Every(s.watchInterval), 1)
	s.logger.DebugContext(ctx, "Watching database", "path", target)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			reloaded, err := s.reloadIfChanged()
			if err != nil {
				s.logger.WarnContext(ctx, "Failed to reload database", "err", err)
				continue
			}
			if reloaded {
				s.logger.InfoContext(ctx, "Reloaded database", "collections", len(s.CollectionNames()))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.WarnContext(ctx, "Error watching database", "err", err)
		}
	}
}

// reloadIfChanged loads the database file unless it holds the content last
// synchronized by this Store.
func (s *Store) reloadIfChanged() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.files.ReadAll()
	if err != nil {
		return false, err
	}
	if s.lastSync != nil && bytes.Equal(data, s.lastSync) {
		return false, nil
	}
	if err := s.loadLocked(data); err != nil {
		return false, err
	}
	return true, nil
}
