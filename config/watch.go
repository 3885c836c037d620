package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch loads path and reloads it whenever it changes until ctx is done.
// The containing directory is watched so that editors replacing the file
// are noticed. A reload that fails is logged and the previous contents
// stay active.
func (s *Store) Watch(ctx context.Context, path string) error {
	if err := s.LoadFile(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: create watcher: %w", ErrTransientIO, err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: watch %s: %w", ErrTransientIO, path, err)
	}

	target := filepath.Clean(path)
	log := s.log.With().Str("path", target).Logger()
	log.Debug().Msg("watching configuration file")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := s.LoadFile(target); err != nil {
				if errors.Is(err, ErrTransientIO) {
					log.Debug().Err(err).Msg("configuration not readable yet")
				} else {
					log.Warn().Err(err).Msg("configuration reload rejected")
				}
				continue
			}
			log.Info().Uint64("version", s.Version()).Msg("configuration reloaded")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}
