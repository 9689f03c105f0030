package heap

import (
	"github.com/cznic/mathutil"

	"github.com/regionheap/regionheap/internal/platform"
)

// Ptr is the handle returned by Calloc and consumed by Free: a region and the
// absolute address of the allocated payload within it. ptr2region-style
// resolution is still exercised explicitly by Free from the payload address,
// not shortcut through this struct's region field.
type Ptr struct {
	region *Region
	addr   uintptr
}

// IsNil reports whether p is the zero Ptr.
func (p Ptr) IsNil() bool { return p.region == nil }

// Bytes returns the live payload slice for p. The caller must not retain it
// past a corresponding Free.
func (p Ptr) Bytes() []byte {
	if p.region == nil {
		return nil
	}
	off := p.region.offsetOf(p.addr)
	return p.region.nodeAt(off - headerSize).payload()
}

// Calloc computes count*elemSize with overflow detection, rounds up to a
// chunk multiple, and hands the request to the region search.
func (h *Engine) Calloc(count, elemSize uint64, flags Flag) (Ptr, error) {
	if count == 0 || elemSize == 0 {
		return Ptr{}, fatal(CategoryOverflow, 0, "calloc(%d, %d): zero count or element size", count, elemSize)
	}

	// The standard overflow check for an unsigned count*elemSize: a product
	// only fits back in 64 bits if elemSize <= maxUint64/count.
	if elemSize > ^uint64(0)/count {
		return Ptr{}, fatal(CategoryOverflow, 0, "calloc(%d, %d): overflow", count, elemSize)
	}
	bytes := count * elemSize

	rounded := roundUpChunk(bytes)
	if rounded < bytes {
		return Ptr{}, fatal(CategoryOverflow, 0, "calloc(%d, %d): overflow after chunk rounding", count, elemSize)
	}
	rounded = mathutil.MaxUint64(rounded, uint64(MinNodePayload))
	if flags.Has(FlagNatural) && !isPowerOfTwo(rounded) {
		return Ptr{}, fatal(CategoryAlignment, 0, "natural alignment requires a power-of-two size, got %d", rounded)
	}

	size := uint32(rounded)
	return h.callocSized(size, flags)
}

// roundUpChunk rounds n up to the next multiple of ChunkSize.
func roundUpChunk(n uint64) uint64 {
	rem := n % ChunkSize
	if rem == 0 {
		return n
	}
	return n + (ChunkSize - rem)
}

func isPowerOfTwo(n uint64) bool { return n != 0 && n&(n-1) == 0 }

// callocSized runs the region search: find_first, then loop while the
// region doesn't satisfy the request, advancing with find_next.
func (h *Engine) callocSized(size uint32, flags Flag) (Ptr, error) {
	r, err := h.table.FindFirst(flags)

	for err == nil {
		if r.free >= size && validateRegionRequest(r, size) {
			ptr, ok, cerr := h.callocWithCoalesce(r, size, flags)
			if cerr != nil {
				r.unlock()
				return Ptr{}, cerr
			}
			if ok {
				r.unlock()
				return ptr, nil
			}
		}
		r, err = h.table.FindNext(r, flags)
	}

	return Ptr{}, err
}

// validateRegionRequest is the size-class gate: region.size/16 is the
// threshold. Neither hint set accepts unconditionally; SMALLREQ accepts
// only below threshold; LARGEREQ accepts unconditionally too, which makes
// the two disjuncts collapse to "always true" whenever LARGEREQ is set
// (Open Question, resolved in DESIGN.md: preserve as-is).
func validateRegionRequest(r *Region, bytes uint32) bool {
	threshold := r.size / 16
	if f := r.flags(); f.Has(FlagSmallReq) && !f.Has(FlagLargeReq) {
		return bytes < threshold
	}
	return true
}

// fragmentationTriggered reports whether a region's free space is
// fragmented enough to warrant a forced coalesce pass after an allocation
// attempt.
func fragmentationTriggered(r *Region) bool {
	if r.nodesFree <= r.nodesActive {
		return false
	}
	return uint64(r.free)*100/uint64(r.size) >= 60
}

// callocWithCoalesce bounds a "try allocate; on failure or fragmentation,
// coalesce; repeat while coalesce joined at least one pair" loop. Each
// successful coalesce strictly decreases the node count, and a failure
// without any join terminates the loop, so it is guaranteed finite.
func (h *Engine) callocWithCoalesce(r *Region, size uint32, flags Flag) (Ptr, bool, error) {
	for {
		ptr, ok, err := h.callocWithinRegion(r, size, flags)
		if err != nil {
			return Ptr{}, false, err
		}
		if ok {
			if fragmentationTriggered(r) {
				if _, cerr := coalesceRegion(r); cerr != nil {
					return Ptr{}, false, cerr
				}
			}
			return ptr, true, nil
		}

		needCoalesce := fragmentationTriggered(r)
		joined, cerr := coalesceRegion(r)
		if cerr != nil {
			return Ptr{}, false, cerr
		}
		if joined == 0 {
			if needCoalesce {
				h.trace.Tracef("calloc: region=0x%x fragmented (free=%d/%d) but coalesce found nothing to join", r.addr, r.free, r.size)
			}
			return Ptr{}, false, nil
		}
	}
}

// callocWithinRegion is the first-fit search over the free list.
func (h *Engine) callocWithinRegion(r *Region, size uint32, flags Flag) (Ptr, bool, error) {
	off := r.freeListHead
	for off != noLink {
		n := r.nodeAt(off)
		if !n.valid() {
			return Ptr{}, false, fatal(CategoryCorruption, r.addr+uintptr(off), "boundary tag mismatch while scanning free list")
		}
		if n.active() {
			return Ptr{}, false, fatal(CategoryCorruption, r.addr+uintptr(off), "active node found on free list")
		}

		if flags.Has(FlagNatural) {
			if chosen, ok := tryNatural(r, off, size); ok {
				return h.activate(r, chosen, flags), true, nil
			}
		} else if n.payloadSize() >= size {
			return h.activate(r, doSplit(r, off, size), flags), true, nil
		}

		off = n.freeNext()
	}
	return Ptr{}, false, nil
}

// doSplit consumes node off whole if its payload equals size or the
// remainder would be smaller than a viable free node; otherwise it shrinks
// off to size and carves the tail into a new free node.
func doSplit(r *Region, off, size uint32) uint32 {
	original := r.nodeAt(off).payloadSize()
	if original == size || original-size < overhead+MinNodePayload {
		return off
	}
	splitOff(r, off, original, size)
	return off
}

// splitOff shrinks the node at off (whose current payload is
// originalPayload) down to headPayload bytes and carves the remainder into
// a new free node, splicing it into the free list immediately after off.
// It returns the new node's offset. Callers must have already checked that
// the remainder is large enough to hold a valid node.
func splitOff(r *Region, off, originalPayload, headPayload uint32) uint32 {
	n := r.nodeAt(off)
	n.setPayloadSize(headPayload)
	n.initFooter()

	tailOff := n.nextOffset()
	tailSize := originalPayload - headPayload - overhead
	tail := r.nodeAt(tailOff)
	tail.setPayloadSize(tailSize)
	tail.setActive(false)
	tail.initMagic()
	tail.initFooter()

	next := n.freeNext()
	tail.setFreePrev(off)
	tail.setFreeNext(next)
	n.setFreeNext(tailOff)
	if next != noLink {
		r.nodeAt(next).setFreePrev(tailOff)
	}

	r.free -= overhead
	r.nodesFree++

	return tailOff
}

// activate transitions a chosen free node to active: zero its payload,
// record the owning task and per-allocation flags, set refs to 1, unlink it
// from the free list, and update region counters.
func (h *Engine) activate(r *Region, off uint32, flags Flag) Ptr {
	n := r.nodeAt(off)
	payload := n.payload()
	for i := range payload {
		payload[i] = 0
	}

	r.removeFree(off)

	hdr := n.header()
	hdr.task = uint64(platform.CurrentTask())
	hdr.flags = uint32(flags & NodeMask)
	hdr.refs = 1
	n.setActive(true)

	r.free -= n.payloadSize()
	r.nodesActive++
	r.nodesFree--

	h.trace.Tracef("calloc: region=0x%x off=%d size=%d", r.addr, off, n.payloadSize())

	return Ptr{region: r, addr: r.addr + uintptr(n.payloadOffset())}
}
