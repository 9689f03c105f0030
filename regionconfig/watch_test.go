package regionconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchFileReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bootstrap.json")

	if err := os.WriteFile(path, []byte(`{"format_version": "1.0.0", "capacity": 4}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, err := WatchFile(path)
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte(`{"format_version": "1.0.0", "capacity": 8}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case doc := <-w.Events():
		if doc.Capacity != 8 {
			t.Fatalf("Capacity = %d, want 8", doc.Capacity)
		}
	case err := <-w.Errs():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload event")
	}
}
