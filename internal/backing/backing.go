// Package backing supplies region backing memory for tests and the
// cmd/regionheap-probe demo. The core allocator (internal/heap) never
// acquires memory itself: per the spec, region backing acquisition is an
// external collaborator's concern, and the core only ever receives a base
// address and a size.
package backing

import "unsafe"

// Span is a live backing allocation: a base address paired with the byte
// slice that keeps it reachable by the Go garbage collector (unsafe.Pointer
// arithmetic alone would not).
type Span struct {
	bytes  []byte
	addr   uintptr
	mapped bool
}

// Anonymous acquires a zero-filled anonymous mapping of size bytes via
// mmap(2)/MAP_ANON, the way a region backed by a distinct OS-level arena
// (as opposed to a plain heap-allocated Go slice) would be obtained.
func Anonymous(size int) (*Span, error) {
	b, err := mmapAnon(size)
	if err != nil {
		return nil, err
	}
	return &Span{bytes: b, addr: uintptr(unsafe.Pointer(&b[0])), mapped: true}, nil
}

// HeapBacked acquires backing memory from the Go heap, for use where mmap is
// unavailable or undesirable (e.g. under race detector).
func HeapBacked(size int) *Span {
	b := make([]byte, size)
	return &Span{bytes: b, addr: uintptr(unsafe.Pointer(&b[0]))}
}

// Addr returns the base address of the span, the value handed to
// heap.Table.AddRegion.
func (s *Span) Addr() uintptr { return s.addr }

// Len returns the span's size in bytes.
func (s *Span) Len() int { return len(s.bytes) }

// Bytes exposes the raw backing slice, kept alive for as long as the Span is
// reachable.
func (s *Span) Bytes() []byte { return s.bytes }

// Release returns the span's memory to the OS if it was mmap-backed; it is a
// no-op for heap-backed spans (the Go GC reclaims those).
func (s *Span) Release() error {
	if !s.mapped {
		return nil
	}
	return munmap(s.bytes)
}
