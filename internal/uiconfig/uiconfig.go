package uiconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Store holds the UI configuration document served verbatim to clients.
// The answer pipeline never reads it.
type Store struct {
	path string
	doc  atomic.Pointer[json.RawMessage]
	log  *zap.Logger
}

// Load reads path once. A missing or malformed file is an error.
func Load(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{path: path, log: log.Named("uiconfig")}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Get returns the current document.
func (s *Store) Get() json.RawMessage {
	return *s.doc.Load()
}

// Reload re-reads the file. On failure the previous document is kept.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read ui config: %w", err)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("parse ui config %s: %w", s.path, err)
	}
	doc := json.RawMessage(bytes.TrimSpace(data))
	s.doc.Store(&doc)
	s.log.Info("ui config loaded", zap.String("path", s.path), zap.Int("keys", len(obj)))
	return nil
}

// Watch reloads on writes to the file until ctx ends. The parent directory
// is watched so editors that replace the file are handled.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", s.path, err)
	}

	target := filepath.Clean(s.path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if err := s.Reload(); err != nil {
					s.log.Warn("ui config reload failed, keeping previous", zap.Error(err))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("ui config watcher", zap.Error(err))
			}
		}
	}()
	return nil
}
