package heap

// surroundedByFree reports whether n's immediate memory neighbors, both the
// preceding and following node, exist and are themselves free. Only then is
// a forced coalesce pass worth its cost.
func surroundedByFree(r *Region, n nodeView) bool {
	if !n.hasNext() || r.nodeAt(n.nextOffset()).active() {
		return false
	}
	prev, ok := n.prevView()
	if !ok || prev.active() {
		return false
	}
	return true
}

// Free releases the allocation referenced by *p back to its region. *p is
// cleared immediately, before any fallible work, mirroring the source's
// in/out pointer convention: a caller's handle is invalidated the moment
// Free is called, not only once the free fully succeeds. Freeing a nil or
// already-zeroed Ptr, a dangling address, or a node whose boundary tags no
// longer check out are all Fatal conditions, never silently ignored.
func (h *Engine) Free(p *Ptr, flags Flag) error {
	if p == nil || p.region == nil {
		return fatal(CategoryDoubleFree, 0, "free of a nil pointer")
	}
	addr := p.addr
	*p = Ptr{}

	r, err := h.table.Ptr2Region(addr, flags)
	if err != nil {
		return err
	}
	defer r.unlock()

	off, err := r.nodeOffsetForAddr(addr)
	if err != nil {
		return err
	}

	n := r.nodeAt(off)
	if !n.valid() {
		return fatal(CategoryCorruption, addr, "boundary tag mismatch at free")
	}
	if !n.active() {
		return fatal(CategoryDoubleFree, addr, "double free")
	}

	hdr := n.header()
	hdr.refs--
	if hdr.refs > 0 {
		h.trace.Tracef("free: region=0x%x addr=0x%x refs=%d (still referenced)", r.addr, addr, hdr.refs)
		return nil
	}

	n.setActive(false)
	n.setFreeNext(noLink)
	n.setFreePrev(noLink)
	r.insertFree(off, r.findFreeInsertionPoint(off))

	r.free += n.payloadSize()
	r.nodesActive--
	r.nodesFree++

	// Only force a coalesce pass when this node is surrounded on both
	// sides by free neighbors; coalescing on every free is needless
	// churn for the common case of a lone free node.
	if surroundedByFree(r, n) {
		if _, cerr := coalesceRegion(r); cerr != nil {
			return cerr
		}
	}

	h.trace.Tracef("free: region=0x%x addr=0x%x", r.addr, addr)

	if r.flags().Has(FlagRestrict) && r.nodesActive == 0 {
		// A drained region may still be split into several free nodes;
		// merge them so the whole-region check below can hold.
		if _, cerr := coalesceRegion(r); cerr != nil {
			return cerr
		}
		if r.free == r.size-overhead {
			r.clearForReap()
		}
	}

	return nil
}
