// Package regionheap implements a multi-region, boundary-tagged heap
// allocator. Each region is a contiguous span of backing memory carrying
// its own in-band free list; a Heap is a fixed-capacity table of such
// regions guarded by a two-level lock (a master lock over the table's
// shape, plus each region's own lock), the way the table layer documents
// in internal/heap.
package regionheap

import (
	"github.com/regionheap/regionheap/internal/backing"
	"github.com/regionheap/regionheap/internal/heap"
	"github.com/regionheap/regionheap/internal/trace"
)

// Flag is the allocator's capability/request bitmask, shared by regions,
// allocations, and lock-acquisition hints.
type Flag = heap.Flag

const (
	FlagInternal   = heap.FlagInternal
	FlagNomadic    = heap.FlagNomadic
	FlagWait       = heap.FlagWait
	FlagNowait     = heap.FlagNowait
	FlagBusy       = heap.FlagBusy
	FlagRestrict   = heap.FlagRestrict
	FlagEncrypted  = heap.FlagEncrypted
	FlagActive     = heap.FlagActive
	FlagWiped      = heap.FlagWiped
	FlagSubregions = heap.FlagSubregions
	FlagSmallReq   = heap.FlagSmallReq
	FlagLargeReq   = heap.FlagLargeReq
	FlagNatural    = heap.FlagNatural
)

// Ptr is a live allocation handle returned by Calloc and consumed by Free.
type Ptr = heap.Ptr

// Region is a single region's live handle, as returned by AddRegion. Its
// exported methods are safe to call from any goroutine.
type Region = heap.Region

// RegionSnapshot and Snapshot are the diagnostic views produced by Walk and
// Locate.
type RegionSnapshot = heap.RegionSnapshot
type Snapshot = heap.Snapshot

// Violation is the error type for every Fatal condition: corruption,
// overflow, double free, or an unresolvable address.
type Violation = heap.Violation

// ErrAgain is returned by an operation that could not acquire a contended
// lock while a NOWAIT flag (the default) was in effect. Callers may retry.
var ErrAgain = heap.ErrAgain

// Config configures a Heap at construction time.
type Config struct {
	// Capacity is the fixed number of region-table slots. It cannot grow
	// after New; sizing it is the caller's responsibility, the same way the
	// source allocator is handed a static table at boot.
	Capacity int

	// Trace receives diagnostic lines for every calloc and free. Nil means
	// discard.
	Trace trace.Sink
}

// Option mutates a Config during New.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		Capacity: 16,
		Trace:    trace.Discard,
	}
}

// WithCapacity overrides the region table's slot count.
func WithCapacity(n int) Option {
	return func(c *Config) { c.Capacity = n }
}

// WithTrace installs a diagnostic sink.
func WithTrace(sink trace.Sink) Option {
	return func(c *Config) { c.Trace = sink }
}

// Heap is a multi-region allocator. The zero value is not usable; construct
// one with New.
type Heap struct {
	engine *heap.Engine
}

// New builds a Heap with no regions registered yet.
func New(opts ...Option) *Heap {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Heap{engine: heap.NewEngine(cfg.Capacity, cfg.Trace)}
}

// NewHeap is an alias for New, kept for callers that prefer a verb-first
// constructor name.
func NewHeap(opts ...Option) *Heap { return New(opts...) }

// AddRegion registers an already-allocated byte slice as a new region. The
// slice's backing array must not be touched by the caller after this call;
// the heap owns it until DeleteRegion drains and reaps it.
func (h *Heap) AddRegion(buf []byte, flags Flag) (*Region, error) {
	return h.engine.Table().AddRegion(buf, flags)
}

// AddAnonymousRegion allocates size bytes via an anonymous memory mapping
// and registers the result as a new region.
func (h *Heap) AddAnonymousRegion(size int, flags Flag) (*Region, error) {
	span, err := backing.Anonymous(size)
	if err != nil {
		return nil, err
	}
	return h.engine.Table().AddRegion(span.Bytes(), flags)
}

// DeleteRegion marks a region restricted: no further allocation will be
// served from it, and once its last live allocation is freed its slot is
// reclaimed automatically.
func (h *Heap) DeleteRegion(r *Region) error {
	return h.engine.Table().DeleteRegion(r)
}

// Calloc allocates count*elemSize zeroed bytes from whichever eligible
// region can serve the request, per flags.
func (h *Heap) Calloc(count, elemSize uint64, flags Flag) (Ptr, error) {
	return h.engine.Calloc(count, elemSize, flags)
}

// Free releases *p and clears it. See heap.Engine.Free for the exact
// semantics around reference counts and region reclamation.
func (h *Heap) Free(p *Ptr, flags Flag) error {
	return h.engine.Free(p, flags)
}

// Walk takes a read-only snapshot of every active region's shape.
func (h *Heap) Walk() Snapshot {
	return h.engine.Walk()
}

// Locate resolves addr to the region that owns it and returns a snapshot of
// that region's shape.
func (h *Heap) Locate(addr uintptr, flags Flag) (RegionSnapshot, error) {
	return h.engine.Locate(addr, flags)
}

// Ptr2Region is an alias for Locate, named after the address-to-region
// resolution step every free performs internally.
func (h *Heap) Ptr2Region(addr uintptr, flags Flag) (RegionSnapshot, error) {
	return h.Locate(addr, flags)
}

// Capacity returns the heap's fixed region-table slot count.
func (h *Heap) Capacity() int {
	return h.engine.Table().Capacity()
}
