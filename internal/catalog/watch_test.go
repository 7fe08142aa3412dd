package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchEmbeddedCatalogReturnsImmediately(t *testing.T) {
	r, err := NewRegistry("")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- r.Watch(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch on embedded catalog: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Watch did not return for the embedded catalog")
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.json")
	if err := os.WriteFile(path, defaultAgentsConfig, 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := NewRegistry(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not stop after cancel")
	}
}
