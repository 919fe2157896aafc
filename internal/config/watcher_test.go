// internal/config/watcher_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_NotifiesOnWriteAndReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	changes := make(chan string, 16)
	w.OnChange(func(p string) { changes <- p })

	if err := os.WriteFile(path, []byte(`[{"id":"a"}]`), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	expectChange(t, changes, w.Path())

	tmp := filepath.Join(dir, "rules.json.tmp")
	if err := os.WriteFile(tmp, []byte(`[]`), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	drain(changes)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("failed to rename: %v", err)
	}
	expectChange(t, changes, w.Path())
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	changes := make(chan string, 4)
	w.OnChange(func(p string) { changes <- p })

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	select {
	case p := <-changes:
		t.Errorf("unexpected change notification for %s", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestNewWatcher_EmptyPath(t *testing.T) {
	if _, err := NewWatcher(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func expectChange(t *testing.T, changes <-chan string, expected string) {
	t.Helper()
	select {
	case p := <-changes:
		if p != expected {
			t.Errorf("expected change for %s, got %s", expected, p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func drain(changes <-chan string) {
	for {
		select {
		case <-changes:
		case <-time.After(50 * time.Millisecond):
			return
		}
	}
}
