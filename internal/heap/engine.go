package heap

import "github.com/regionheap/regionheap/internal/trace"

// Engine is the core allocator: a region table plus the diagnostics sink
// every allocation and free path reports through. It holds no configuration
// of its own; capacity and tracing are supplied by whoever constructs it,
// mirroring how OptimizedAllocator is handed an already-built Config rather
// than building one itself.
type Engine struct {
	table *Table
	trace trace.Sink
}

// NewEngine builds an Engine over a table of the given slot capacity. A nil
// sink is replaced with trace.Discard so callers never need a nil check.
func NewEngine(capacity int, sink trace.Sink) *Engine {
	if sink == nil {
		sink = trace.Discard
	}
	return &Engine{table: NewTable(capacity), trace: sink}
}

// Table exposes the underlying region table for callers (Walk, region
// lifecycle) that need it directly.
func (h *Engine) Table() *Table { return h.table }
