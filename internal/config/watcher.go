// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

// Watcher reloads a configuration file whenever it changes on disk and
// delivers the parsed result to Updates. Invalid revisions are logged
// and dropped; the last valid configuration stays in effect.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  logr.Logger
	updates chan Config
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.RWMutex
	current Config
}

// NewWatcher loads path once and then watches it for changes. The
// containing directory is watched rather than the file itself so that
// editors and configmap mounts that replace the file are still seen.
func NewWatcher(path string, logger logr.Logger) (*Watcher, error) {
	wLogger := logger.WithName("config.watcher")

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		if closeErr := fsWatcher.Close(); closeErr != nil {
			wLogger.Error(closeErr, "failed to close fs watcher")
		}
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:    path,
		watcher: fsWatcher,
		logger:  wLogger,
		updates: make(chan Config, 1),
		done:    make(chan struct{}),
		current: cfg,
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// Current returns the most recent valid configuration.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Updates delivers each valid configuration revision after the initial
// load. The channel is never closed while the watcher is running.
func (w *Watcher) Updates() <-chan Config {
	return w.updates
}

func (w *Watcher) Close() error {
	close(w.done)
	w.wg.Wait()
	return w.watcher.Close()
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error(err, "filesystem watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	w.logger.V(1).Info("received file event", "file", event.Name, "op", event.Op)

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error(err, "failed to reload config file", "path", w.path)
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	// Coalesce: only the latest revision matters to the consumer.
	select {
	case w.updates <- cfg:
	default:
		select {
		case <-w.updates:
		default:
		}
		select {
		case w.updates <- cfg:
		default:
		}
	}
}
