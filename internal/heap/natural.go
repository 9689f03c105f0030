package heap

// tryNatural attempts to satisfy a naturally-aligned request of size bytes
// (size is already checked to be a power of two by the caller) out of the
// free node at off. "Naturally aligned" means the returned payload's
// absolute address is a multiple of size, the property the original
// allocator carved out by hand for DMA-capable buffers.
//
// The first candidate address is the payload's own start rounded up to the
// next multiple of size. If the gap in front of it (the prefix) is too
// small to leave behind a valid free node, that candidate is abandoned and
// the next one, size bytes further in, is tried, the same way the original
// advances its cursor and retries rather than giving up on the first
// miss. It reports ok=false, without mutating the region, once no further
// candidate fits within the node's payload; the caller then tries the next
// free node.
func tryNatural(r *Region, off, size uint32) (chosen uint32, ok bool) {
	n := r.nodeAt(off)
	avail := n.payloadSize()
	if avail < size {
		return 0, false
	}

	payloadStart := r.addr + uintptr(n.payloadOffset())
	mask := uintptr(size - 1)
	a := (payloadStart + mask) &^ mask

	for {
		prefix := uint32(a - payloadStart)
		if uint64(prefix)+uint64(size) > uint64(avail) {
			return 0, false
		}
		if prefix == 0 {
			return doSplit(r, off, size), true
		}
		if prefix >= overhead+MinNodePayload {
			tailOff := splitOff(r, off, avail, prefix-overhead)
			return doSplit(r, tailOff, size), true
		}
		a += uintptr(size)
	}
}
