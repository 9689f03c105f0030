package heap

import (
	"sync/atomic"
	"unsafe"

	"github.com/regionheap/regionheap/internal/platform"
)

// Region is a contiguous span of backing memory, in-band-managed, with its
// own free list and lock. flagBits is the one field read outside the
// region's own lock (by the table's shape scans in
// find_first/find_next/ptr2region/AddRegion), so it is an atomic word rather
// than a plain Flag; every other field is only ever touched by whoever holds
// either r.lock or, during (re)initialization, the table's master lock for
// write, which excludes all readers.
type Region struct {
	buf  []byte // owned backing buffer; header/footer/payload all live in here
	addr uintptr
	size uint32

	lock platform.Lock

	free         uint32
	freeListHead uint32 // offset, noLink if empty
	nodesFree    uint32
	nodesActive  uint32
	flagBits     atomic.Uint32
}

func (r *Region) flags() Flag     { return Flag(r.flagBits.Load()) }
func (r *Region) setFlags(f Flag) { r.flagBits.Store(uint32(f)) }
func (r *Region) orFlags(f Flag)  { r.flagBits.Store(uint32(r.flags() | f)) }

// initRegion (re)initializes an existing, logically-empty slot as a freshly
// added region: a single free node spans buf end to end. Callers must hold
// the table's master lock for write so no find_*/ptr2region reader can
// observe r mid-initialization.
func initRegion(r *Region, buf []byte, flags Flag) {
	r.buf = buf
	r.addr = uintptr(unsafe.Pointer(&buf[0]))
	r.size = uint32(len(buf))
	r.nodesActive = 0

	payload := r.size - overhead
	n := r.nodeAt(0)
	n.setPayloadSize(payload)
	n.setActive(false)
	n.initMagic()
	n.initFooter()
	n.setFreeNext(noLink)
	n.setFreePrev(noLink)
	r.freeListHead = 0
	r.free = payload
	r.nodesFree = 1

	// Published last: once other goroutines can observe FlagActive, every
	// other field above must already be consistent.
	r.setFlags(flags | FlagActive)
}

// clearForReap returns a drained, restricted region's slot to the empty
// state: clearing FlagActive (and every other flag) makes it invisible to
// find_*/ptr2region and eligible for AddRegion reuse. Callers must hold r.lock; no master lock is
// needed since reuse is gated purely on FlagActive, which AddRegion only
// ever flips while holding the master lock for write.
func (r *Region) clearForReap() {
	r.setFlags(0)
	r.buf = nil
	r.addr = 0
	r.size = 0
	r.free = 0
	r.freeListHead = noLink
	r.nodesFree = 0
	r.nodesActive = 0
}

// Addr returns the region's base address, stable for its lifetime.
func (r *Region) Addr() uintptr { return r.addr }

// Size returns the region's total size in bytes.
func (r *Region) Size() uint32 { return r.size }

// Free returns the region's currently available payload bytes.
func (r *Region) Free() uint32 { return r.free }

// Flags returns the region's current flags. Safe to call from any goroutine.
func (r *Region) Flags() Flag { return r.flags() }

// NodesActive and NodesFree expose the region's counters for diagnostics.
func (r *Region) NodesActive() uint32 { return r.nodesActive }
func (r *Region) NodesFree() uint32   { return r.nodesFree }

// unlock releases the region's lock for callers that acquired it via the
// table's find_* protocol (internal/heap only; never exported further).
func (r *Region) unlock() { r.lock.Unlock() }

// containsAddr reports whether v lies within this region's byte span.
func (r *Region) containsAddr(v uintptr) bool {
	return v >= r.addr && v < r.addr+uintptr(r.size)
}

// offsetOf converts an absolute address known to lie in this region into a
// buffer offset.
func (r *Region) offsetOf(v uintptr) uint32 { return uint32(v - r.addr) }

// nodeOffsetForAddr converts an absolute payload address into the offset of
// its owning node's header, the reverse of nodeView.payloadOffset. Used by
// the free path, which is handed a payload address rather than a header
// offset.
func (r *Region) nodeOffsetForAddr(addr uintptr) (uint32, error) {
	if !r.containsAddr(addr) {
		return 0, fatal(CategoryNotFound, addr, "address does not belong to this region")
	}
	payloadOff := r.offsetOf(addr)
	if payloadOff < headerSize {
		return 0, fatal(CategoryCorruption, addr, "address precedes the first node header")
	}
	return payloadOff - headerSize, nil
}

// insertFree splices node `off` into the address-ordered free list
// immediately after `after` (noLink meaning "at head"), maintaining the
// doubly-linked, ascending-by-address invariant.
func (r *Region) insertFree(off, after uint32) {
	n := r.nodeAt(off)
	if after == noLink {
		n.setFreePrev(noLink)
		n.setFreeNext(r.freeListHead)
		if r.freeListHead != noLink {
			r.nodeAt(r.freeListHead).setFreePrev(off)
		}
		r.freeListHead = off
		return
	}
	a := r.nodeAt(after)
	next := a.freeNext()
	n.setFreePrev(after)
	n.setFreeNext(next)
	a.setFreeNext(off)
	if next != noLink {
		r.nodeAt(next).setFreePrev(off)
	}
}

// removeFree splices node `off` out of the free list.
func (r *Region) removeFree(off uint32) {
	n := r.nodeAt(off)
	prev, next := n.freePrev(), n.freeNext()
	if prev == noLink {
		r.freeListHead = next
	} else {
		r.nodeAt(prev).setFreeNext(next)
	}
	if next != noLink {
		r.nodeAt(next).setFreePrev(prev)
	}
}

// findFreeInsertionPoint walks the free list to find the node with the
// greatest address still less than off, the "L" used by the free path to
// splice a newly-freed node back in at the correct position.
func (r *Region) findFreeInsertionPoint(off uint32) uint32 {
	l := uint32(noLink)
	cur := r.freeListHead
	for cur != noLink && cur < off {
		l = cur
		cur = r.nodeAt(cur).freeNext()
	}
	return l
}

// tiles reports whether the node chain starting at offset 0 exactly covers
// the region with no gap, and counts nodes visited. Used by diagnostics and
// tests to check that the chain fully tiles the region.
func (r *Region) tiles() (count uint32, ok bool) {
	off := uint32(0)
	for off < r.size {
		n := r.nodeAt(off)
		if !n.valid() {
			return count, false
		}
		count++
		off = n.nextOffset()
	}
	return count, off == r.size
}
