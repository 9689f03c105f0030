// Package regionconfig loads the bootstrap document that tells a Heap how
// many region-table slots to reserve and which backing regions to register
// at startup, and can watch that document for changes the way
// internal/runtime/vfs watches source trees.
package regionconfig

import (
	"encoding/json"
	"fmt"
	"os"

	semver "github.com/Masterminds/semver/v3"

	"github.com/regionheap/regionheap"
)

// supportedFormats accepts any bootstrap document whose format_version is
// at least 1.0.0, the oldest shape this package still understands.
var supportedFormats = mustConstraint(">= 1.0.0")

func mustConstraint(expr string) *semver.Constraints {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		panic(err)
	}
	return c
}

// RegionSpec describes one region to register at startup.
type RegionSpec struct {
	SizeBytes int    `json:"size_bytes"`
	Flags     uint32 `json:"flags"`
}

// Document is the on-disk bootstrap document shape.
type Document struct {
	FormatVersion string       `json:"format_version"`
	Capacity      int          `json:"capacity"`
	Regions       []RegionSpec `json:"regions"`
}

// Load reads and validates a bootstrap document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("regionconfig: read %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("regionconfig: parse %s: %w", path, err)
	}

	v, err := semver.NewVersion(doc.FormatVersion)
	if err != nil {
		return nil, fmt.Errorf("regionconfig: %s: invalid format_version %q: %w", path, doc.FormatVersion, err)
	}
	if !supportedFormats.Check(v) {
		return nil, fmt.Errorf("regionconfig: %s: format_version %s does not satisfy %s", path, v, supportedFormats)
	}

	if doc.Capacity <= 0 {
		return nil, fmt.Errorf("regionconfig: %s: capacity must be positive, got %d", path, doc.Capacity)
	}

	return &doc, nil
}

// Bootstrap builds a Heap from a Document: a table sized to Capacity, with
// every listed region registered as an anonymous mapping.
func Bootstrap(doc *Document, opts ...regionheap.Option) (*regionheap.Heap, error) {
	h := regionheap.New(append([]regionheap.Option{regionheap.WithCapacity(doc.Capacity)}, opts...)...)

	for i, rs := range doc.Regions {
		if _, err := h.AddAnonymousRegion(rs.SizeBytes, regionheap.Flag(rs.Flags)); err != nil {
			return nil, fmt.Errorf("regionconfig: region %d: %w", i, err)
		}
	}

	return h, nil
}
