package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNew_Validation verifies constructor checks.
func TestNew_Validation(t *testing.T) {
	if _, err := New(t.TempDir(), nil); err == nil {
		t.Error("New() with nil rebuild func should fail")
	}
	if _, err := New(filepath.Join(t.TempDir(), "missing"), func(string) error { return nil }); err == nil {
		t.Error("New() with missing directory should fail")
	}

	file := filepath.Join(t.TempDir(), "manifests")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := New(file, func(string) error { return nil }); err == nil {
		t.Error("New() on a plain file should fail")
	}
}

// TestWatcher_RebuildsOnWrite verifies a manifest write triggers a debounced
// rebuild.
func TestWatcher_RebuildsOnWrite(t *testing.T) {
	if testing.Short() {
		t.Skip("debounce wait")
	}

	dir := t.TempDir()
	rebuilt := make(chan string, 4)
	w, err := New(dir, func(path string) error {
		rebuilt <- path
		return nil
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "kargo.yaml")
	if err := os.WriteFile(path, []byte("name: kargo\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	select {
	case got := <-rebuilt:
		if got != path {
			t.Errorf("rebuild path = %s; want %s", got, path)
		}
	case <-time.After(debounceDelay + 10*time.Second):
		t.Fatal("rebuild did not fire after manifest write")
	}
}

// TestWatcher_IgnoresNonManifestFiles verifies other files never trigger a
// rebuild.
func TestWatcher_IgnoresNonManifestFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("debounce wait")
	}

	dir := t.TempDir()
	rebuilt := make(chan string, 4)
	w, err := New(dir, func(path string) error {
		rebuilt <- path
		return nil
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	select {
	case got := <-rebuilt:
		t.Errorf("unexpected rebuild for %s", got)
	case <-time.After(debounceDelay + 2*time.Second):
	}
}

// TestWatcher_DebouncesRapidWrites verifies a burst of writes to one file
// collapses into a single rebuild.
func TestWatcher_DebouncesRapidWrites(t *testing.T) {
	if testing.Short() {
		t.Skip("debounce wait")
	}

	dir := t.TempDir()
	rebuilt := make(chan string, 16)
	w, err := New(dir, func(path string) error {
		rebuilt <- path
		return nil
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "kargo.yaml")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("name: kargo\n"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	select {
	case <-rebuilt:
	case <-time.After(debounceDelay + 10*time.Second):
		t.Fatal("rebuild did not fire")
	}

	// The burst settled into one rebuild; no second one should follow.
	select {
	case <-rebuilt:
		t.Error("rapid writes should collapse into a single rebuild")
	case <-time.After(debounceDelay + time.Second):
	}
}

// TestWatcher_StopCancelsPending verifies Stop prevents queued rebuilds from
// firing.
func TestWatcher_StopCancelsPending(t *testing.T) {
	dir := t.TempDir()
	rebuilt := make(chan string, 4)
	w, err := New(dir, func(path string) error {
		rebuilt <- path
		return nil
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	path := filepath.Join(dir, "kargo.yaml")
	if err := os.WriteFile(path, []byte("name: kargo\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	// Give fsnotify a moment to deliver the event, then stop before the
	// debounce elapses.
	time.Sleep(200 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	select {
	case got := <-rebuilt:
		t.Errorf("rebuild for %s fired after Stop", got)
	case <-time.After(debounceDelay + time.Second):
	}
}
