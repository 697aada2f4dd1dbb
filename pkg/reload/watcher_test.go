package reload

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(DefaultConfig(path), nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if w.watcher == nil || w.debounce == nil {
		t.Fatal("expected initialized fsnotify watcher and debouncer")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/tmp/config.yaml")
	if cfg.DebounceInterval != 200*time.Millisecond {
		t.Errorf("expected default debounce 200ms, got %v", cfg.DebounceInterval)
	}
}

func TestWatchTriggersReloadOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig(path)
	cfg.DebounceInterval = 50 * time.Millisecond
	w, err := NewWatcher(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	var reloads atomic.Int32
	reloadCalled := make(chan struct{}, 10)
	onReload := func() error {
		reloads.Add(1)
		select {
		case reloadCalled <- struct{}{}:
		default:
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx, onReload) }()

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloadCalled:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("reload not triggered after file write")
	}

	if reloads.Load() == 0 {
		t.Error("expected reload to be called at least once")
	}
}

func TestWatchIgnoresOtherFilesInSameDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig(path)
	cfg.DebounceInterval = 50 * time.Millisecond
	w, err := NewWatcher(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	var reloads atomic.Int32
	onReload := func() error {
		reloads.Add(1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx, onReload) }()

	time.Sleep(100 * time.Millisecond)

	other := filepath.Join(dir, "unrelated.txt")
	if err := os.WriteFile(other, []byte("noise"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)

	if reloads.Load() != 0 {
		t.Errorf("expected no reload for unrelated file, got %d", reloads.Load())
	}
}

func TestWatchDebouncesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig(path)
	cfg.DebounceInterval = 200 * time.Millisecond
	w, err := NewWatcher(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	var reloads atomic.Int32
	onReload := func() error {
		reloads.Add(1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx, onReload) }()

	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(30 * time.Millisecond)
	}

	time.Sleep(300 * time.Millisecond)

	count := reloads.Load()
	if count == 0 {
		t.Error("expected at least one reload")
	}
	if count > 2 {
		t.Errorf("expected debouncing to collapse writes, got %d reloads", count)
	}
}

func TestStopMarksWatcherNotRunning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(DefaultConfig(path), nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx, func() error { return nil }) }()

	time.Sleep(50 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}

	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()
	if running {
		t.Error("expected watcher to be stopped")
	}
}

func TestWatchRejectsDoubleStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(DefaultConfig(path), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	go func() { _ = w.Watch(ctx1, func() error { return nil }) }()

	time.Sleep(50 * time.Millisecond)

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	if err := w.Watch(ctx2, func() error { return nil }); err == nil {
		t.Error("expected error starting Watch a second time")
	}
}
