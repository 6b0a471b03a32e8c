package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	ctrl "sigs.k8s.io/controller-runtime"
)

// FileLoader implements ConfigLoader for a YAML file on the local filesystem.
// A missing file is reported as ErrConfigNotFound so callers can fall back to
// the defaults.
type FileLoader struct {
	path      string
	validator *Validator

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewFileLoader creates a loader for the file at path
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{
		path:      path,
		validator: NewValidator(),
	}
}

// Load reads and parses the configuration file
func (l *FileLoader) Load(_ context.Context) (*OperatorConfig, error) {
	content, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, l.path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", l.path, err)
	}
	return Parse(content, l.validator)
}

// Watch emits an event whenever the file is written, replaced or removed.
// The parent directory is watched so that atomic renames and ConfigMap
// volume symlink swaps are observed.
func (l *FileLoader) Watch(ctx context.Context) (<-chan ConfigEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(l.path), err)
	}

	l.mu.Lock()
	if l.watcher != nil {
		_ = l.watcher.Close()
	}
	l.watcher = watcher
	l.mu.Unlock()

	eventCh := make(chan ConfigEvent, 10)
	go l.run(ctx, watcher, eventCh)
	return eventCh, nil
}

func (l *FileLoader) run(ctx context.Context, watcher *fsnotify.Watcher, eventCh chan<- ConfigEvent) {
	defer close(eventCh)
	log := ctrl.LoggerFrom(ctx).WithValues("path", l.path)
	target := filepath.Clean(l.path)

	for {
		select {
		case <-ctx.Done():
			_ = watcher.Close()
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			// ConfigMap volumes swap a "..data" symlink next to the file
			if filepath.Clean(ev.Name) != target && filepath.Base(ev.Name) != "..data" {
				continue
			}
			log.V(1).Info("Configuration file changed", "op", ev.Op.String())
			send(ctx, eventCh, l.eventFor(ctx, ev))
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			send(ctx, eventCh, ConfigEvent{Type: ConfigEventError, Error: err})
		}
	}
}

func (l *FileLoader) eventFor(ctx context.Context, ev fsnotify.Event) ConfigEvent {
	config, err := l.Load(ctx)
	switch {
	case errors.Is(err, ErrConfigNotFound):
		return ConfigEvent{Type: ConfigEventDeleted, Config: DefaultOperatorConfig()}
	case err != nil:
		return ConfigEvent{Type: ConfigEventError, Error: err}
	case ev.Has(fsnotify.Create):
		return ConfigEvent{Type: ConfigEventAdded, Config: config}
	default:
		return ConfigEvent{Type: ConfigEventModified, Config: config}
	}
}

func send(ctx context.Context, ch chan<- ConfigEvent, event ConfigEvent) {
	select {
	case ch <- event:
	case <-ctx.Done():
	}
}

// Close stops the active watch, if any
func (l *FileLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher == nil {
		return nil
	}
	err := l.watcher.Close()
	l.watcher = nil
	return err
}
