package heap

import (
	"github.com/cznic/sortutil"

	"github.com/regionheap/regionheap/internal/platform"
)

// Table is the fixed-capacity region table and its two-level locking scheme:
// a master lock over the table's shape (which slots are occupied, and their
// base address/flags for iteration) plus each region's own lock. Slots are
// preallocated for the table's lifetime; a slot whose flags lack FlagActive
// is logically empty and eligible for reuse by AddRegion, mirroring the
// source's "active flag clear means empty slot" model without the lifetime
// hazards of relocating or freeing Region values.
type Table struct {
	master platform.RWLock
	slots  []Region
}

// NewTable creates a table with the given fixed slot capacity, chosen at
// build time; the table never grows.
func NewTable(capacity int) *Table {
	t := &Table{slots: make([]Region, capacity)}
	for i := range t.slots {
		t.slots[i].freeListHead = noLink
	}
	return t
}

// Capacity returns the table's fixed slot count.
func (t *Table) Capacity() int { return len(t.slots) }

// AddRegion registers buf as a new region's backing memory under the master
// lock, seeding it with a single free node spanning the whole span. Holding
// the master lock for write excludes every find_*/ptr2region reader, so
// reinitializing a reclaimed slot's fields in place is safe without
// separately taking that slot's own lock.
func (t *Table) AddRegion(buf []byte, flags Flag) (*Region, error) {
	if len(buf) < int(overhead)+MinNodePayload {
		return nil, fatal(CategoryOverflow, 0, "region of %d bytes too small for minimum node", len(buf))
	}

	t.master.Lock()
	defer t.master.Unlock()

	idx := -1
	for i := range t.slots {
		if !t.slots[i].flags().Has(FlagActive) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fatal(CategoryExhausted, 0, "region table exhausted (capacity %d)", len(t.slots))
	}

	r := &t.slots[idx]
	initRegion(r, buf, flags)
	return r, nil
}

// DeleteRegion flips restrict on the target region under the master lock.
// The region becomes invisible to find_* immediately, while Ptr2Region still
// resolves addresses inside it so live allocations can be freed; its actual
// slot reclamation happens inside Free once it drains.
func (t *Table) DeleteRegion(r *Region) error {
	t.master.Lock()
	defer t.master.Unlock()

	r.lock.Lock()
	r.orFlags(FlagRestrict)
	r.lock.Unlock()
	return nil
}

// regionMatches reports whether a locked region is eligible for flags: it
// must be active, not restricted or busy, and its masked flags must equal
// the request's (or the request is a wildcard).
func regionMatches(r *Region, flags Flag) bool {
	if !r.flags().Has(FlagActive) || r.flags().Any(DontUseMask) {
		return false
	}
	want := flags & RegionMask
	if want == 0 {
		return true
	}
	return r.flags()&RegionMask == want
}

// FindFirst scans the table in slot order for the first region that is
// active, not restricted or busy, and whose flags match the request (or the
// request is a wildcard). On success it returns the region locked; on
// failure it returns ErrAgain if any candidate's lock was contended under
// NOWAIT, else a Fatal Violation.
func (t *Table) FindFirst(flags Flag) (*Region, error) {
	wait := flags.Has(FlagWait)

	if !t.master.AcquireReadWithWait(wait) {
		return nil, ErrAgain
	}
	defer t.master.RUnlock()

	contended := false
	for i := range t.slots {
		r := &t.slots[i]
		if !r.lock.AcquireWithWait(wait) {
			contended = true
			continue
		}
		if regionMatches(r, flags) {
			return r, nil
		}
		r.unlock()
	}
	if contended {
		return nil, ErrAgain
	}
	return nil, fatal(CategoryNotFound, 0, "no region matches flags 0x%x", uint32(flags))
}

// FindNext is called with current locked. It releases current's lock,
// re-acquires the master lock, and returns the matching region with the
// smallest base address strictly greater than current's.
func (t *Table) FindNext(current *Region, flags Flag) (*Region, error) {
	wait := flags.Has(FlagWait)
	b := current.addr
	current.unlock()

	if !t.master.AcquireReadWithWait(wait) {
		return nil, ErrAgain
	}
	defer t.master.RUnlock()

	var best *Region
	for i := range t.slots {
		r := &t.slots[i]
		if !regionMatches(r, flags) || r.addr <= b {
			continue
		}
		if best == nil || r.addr < best.addr {
			best = r
		}
	}
	if best == nil {
		return nil, fatal(CategoryNotFound, 0, "no further region after addr 0x%x", b)
	}
	if !best.lock.AcquireWithWait(wait) {
		return nil, ErrAgain
	}
	if !regionMatches(best, flags) {
		best.unlock()
		return nil, fatal(CategoryNotFound, 0, "no further matching region after addr 0x%x", b)
	}
	return best, nil
}

// Ptr2Region resolves an address to its containing region, returned locked.
// Every active slot is tried in turn, regardless of flags matching, since
// freeing a pointer must find the region it actually lives in.
func (t *Table) Ptr2Region(addr uintptr, flags Flag) (*Region, error) {
	wait := flags.Has(FlagWait)

	if !t.master.AcquireReadWithWait(wait) {
		return nil, ErrAgain
	}
	defer t.master.RUnlock()

	contended := false
	for i := range t.slots {
		r := &t.slots[i]
		if !r.lock.AcquireWithWait(wait) {
			contended = true
			continue
		}
		if r.flags().Has(FlagActive) && r.containsAddr(addr) {
			return r, nil
		}
		r.unlock()
	}
	if contended {
		return nil, ErrAgain
	}
	return nil, fatal(CategoryNotFound, addr, "address does not belong to any region")
}

// baseAddresses returns the base addresses of all active slots in ascending
// order, used by Walk's diagnostic snapshot.
func (t *Table) baseAddresses() []int64 {
	t.master.RLock()
	defer t.master.RUnlock()

	addrs := make(sortutil.Int64Slice, 0, len(t.slots))
	for i := range t.slots {
		if t.slots[i].flags().Has(FlagActive) {
			addrs = append(addrs, int64(t.slots[i].addr))
		}
	}
	addrs.Sort()
	return addrs
}
