package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/callistoworks/parley/internal/config"
)

const watcherValidYAML = `
server:
  log_level: info
`

const watcherUpdatedYAML = `
server:
  log_level: debug
`

const watcherInvalidYAML = `
server:
  log_level: shouting
`

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "parley.yaml")
	writeConfig(t, path, watcherValidYAML)

	w, err := config.NewWatcher(path, nil, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Fatalf("initial log_level = %q, want info", got)
	}
}

func TestWatcher_InitialLoadFailure(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "parley.yaml")
	writeConfig(t, path, watcherInvalidYAML)

	if _, err := config.NewWatcher(path, nil); err == nil {
		t.Fatal("expected error for invalid initial config, got nil")
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "parley.yaml")
	writeConfig(t, path, watcherValidYAML)

	var (
		mu     sync.Mutex
		gotNew *config.Config
	)
	onChange := func(_, new *config.Config) {
		mu.Lock()
		gotNew = new
		mu.Unlock()
	}

	w, err := config.NewWatcher(path, onChange, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Backdate the mtime first so the rewrite is guaranteed to look new even
	// on coarse filesystem clocks.
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	writeConfig(t, path, watcherUpdatedYAML)

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		done := gotNew != nil
		mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("watcher never reported the change")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if gotNew.Server.LogLevel != config.LogDebug {
		t.Fatalf("reloaded log_level = %q, want debug", gotNew.Server.LogLevel)
	}
	if w.Current().Server.LogLevel != config.LogDebug {
		t.Fatalf("Current() not updated after reload")
	}
}

func TestWatcher_KeepsOldConfigOnInvalidRewrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "parley.yaml")
	writeConfig(t, path, watcherValidYAML)

	var called atomic.Bool
	w, err := config.NewWatcher(path, func(_, _ *config.Config) { called.Store(true) },
		config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	writeConfig(t, path, watcherInvalidYAML)

	time.Sleep(100 * time.Millisecond)
	if called.Load() {
		t.Fatal("onChange fired for an invalid config")
	}
	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Fatalf("Current() log_level = %q, want the last good value info", got)
	}
}
