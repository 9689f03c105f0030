package regionconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDoc(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bootstrap.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("ValidDocument", func(t *testing.T) {
		path := writeDoc(t, `{
			"format_version": "1.0.0",
			"capacity": 8,
			"regions": [{"size_bytes": 4096, "flags": 0}]
		}`)

		doc, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if doc.Capacity != 8 {
			t.Fatalf("Capacity = %d, want 8", doc.Capacity)
		}
		if len(doc.Regions) != 1 || doc.Regions[0].SizeBytes != 4096 {
			t.Fatalf("Regions = %+v, want one region of 4096 bytes", doc.Regions)
		}
	})

	t.Run("RejectsUnparsableVersion", func(t *testing.T) {
		path := writeDoc(t, `{"format_version": "not-a-version", "capacity": 1}`)
		if _, err := Load(path); err == nil {
			t.Fatal("expected error for unparsable format_version")
		}
	})

	t.Run("RejectsTooOldVersion", func(t *testing.T) {
		path := writeDoc(t, `{"format_version": "0.9.0", "capacity": 1}`)
		if _, err := Load(path); err == nil {
			t.Fatal("expected error for format_version below the supported floor")
		}
	})

	t.Run("RejectsNonPositiveCapacity", func(t *testing.T) {
		path := writeDoc(t, `{"format_version": "1.0.0", "capacity": 0}`)
		if _, err := Load(path); err == nil {
			t.Fatal("expected error for zero capacity")
		}
	})
}

func TestBootstrap(t *testing.T) {
	doc := &Document{
		FormatVersion: "1.0.0",
		Capacity:      4,
		Regions: []RegionSpec{
			{SizeBytes: 8192},
			{SizeBytes: 8192},
		},
	}

	h, err := Bootstrap(doc)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if h.Capacity() != 4 {
		t.Fatalf("Capacity = %d, want 4", h.Capacity())
	}

	snap := h.Walk()
	if len(snap.Regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(snap.Regions))
	}
}
