package heap

// coalesceRegion walks the address-ordered free list once, merging any pair
// of free nodes that directly abut in memory into a single larger free
// node, and reports how many merges it performed. Since the free list is
// kept in ascending address order, two free nodes can be memory-adjacent
// only when they are also list-adjacent, so a single forward pass is
// sufficient.
func coalesceRegion(r *Region) (int, error) {
	joined := 0
	off := r.freeListHead
	for off != noLink {
		n := r.nodeAt(off)
		if !n.valid() {
			return joined, fatal(CategoryCorruption, r.addr+uintptr(off), "boundary tag mismatch during coalesce")
		}

		next := n.freeNext()
		if next != noLink && n.nextOffset() == next {
			mergeAdjacent(r, off, next)
			joined++
			continue // off may now abut a further node; re-check it
		}
		off = next
	}
	return joined, nil
}

// mergeAdjacent absorbs the free node at next into the free node at off,
// which must directly precede it in memory. next is spliced out of the free
// list; off keeps its position and grows to cover both payloads plus the
// overhead that separated them.
func mergeAdjacent(r *Region, off, next uint32) {
	n := r.nodeAt(off)
	nx := r.nodeAt(next)

	combined := n.payloadSize() + overhead + nx.payloadSize()
	r.removeFree(next)

	n.setPayloadSize(combined)
	n.initFooter()

	r.free += overhead
	r.nodesFree--
}
