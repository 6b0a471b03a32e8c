package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	loader := NewFileLoader(path)

	if _, err := loader.Load(context.Background()); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Load() error = %v, want %v", err, ErrConfigNotFound)
	}

	if err := os.WriteFile(path, []byte(validConfigYAML), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	config, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if config.Dispatch.UpdateStatusInterval.Duration != time.Minute {
		t.Errorf("Dispatch.UpdateStatusInterval = %v, want %v", config.Dispatch.UpdateStatusInterval.Duration, time.Minute)
	}

	if err := os.WriteFile(path, []byte(invalidConfigYAML), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := loader.Load(context.Background()); !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("Load() error = %v, want %v", err, ErrConfigInvalid)
	}
}

func TestFileLoader_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	loader := NewFileLoader(path)
	defer func() {
		if err := loader.Close(); err != nil {
			t.Errorf("Failed to close loader: %v", err)
		}
	}()

	var _ ConfigLoader = loader

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := loader.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte(validConfigYAML), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case event := <-events:
			if event.Type == ConfigEventError {
				t.Fatalf("unexpected error event: %v", event.Error)
			}
			// a write may surface as create followed by write events
			if event.Config != nil && event.Config.Dispatch.UpdateStatusInterval.Duration == time.Minute {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for a configuration event")
		}
	}
}
