package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0xcro3dile/keyreply-go/internal/domain/ports"
)

func TestFSNotifyWatcher_Creation(t *testing.T) {
	watcher, err := NewFSNotifyWatcher(0, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer watcher.Stop()
}

func TestFSNotifyWatcher_DefaultDebounce(t *testing.T) {
	watcher, _ := NewFSNotifyWatcher(-1, nil)
	defer watcher.Stop()

	if watcher.debounce != DefaultDebounce {
		t.Errorf("expected default debounce, got %v", watcher.debounce)
	}
}

func TestFSNotifyWatcher_ReportsChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.yaml")
	os.WriteFile(path, []byte("entries: []"), 0644)

	watcher, _ := NewFSNotifyWatcher(20*time.Millisecond, nil)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := watcher.Watch(ctx, path)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(path, []byte("entries: [] # edited"), 0644)
	}()

	select {
	case event := <-events:
		if event.Operation != ports.FileModified && event.Operation != ports.FileCreated {
			t.Errorf("expected modify event, got %v", event.Operation)
		}
		abs, _ := filepath.Abs(path)
		if event.Path != abs {
			t.Errorf("unexpected path %s", event.Path)
		}
	case <-ctx.Done():
		t.Error("timeout waiting for event")
	}
}

func TestFSNotifyWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.yaml")
	os.WriteFile(path, []byte("entries: []"), 0644)

	watcher, _ := NewFSNotifyWatcher(0, nil)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	events, _ := watcher.Watch(ctx, path)

	os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("{}"), 0644)

	select {
	case <-events:
		t.Error("should not receive event for a sibling file")
	case <-time.After(300 * time.Millisecond):
		// Expected - no event
	}
}

func TestFSNotifyWatcher_Stop(t *testing.T) {
	watcher, _ := NewFSNotifyWatcher(0, nil)
	err := watcher.Stop()
	if err != nil {
		t.Errorf("stop failed: %v", err)
	}
}
