package heap

import semver "github.com/Masterminds/semver/v3"

// FormatVersion tags the shape of a Snapshot, the same way the package
// manager's lockfiles carry a semver so a future reader of a persisted
// snapshot can tell whether it understands the layout.
var FormatVersion = semver.MustParse("1.0.0")

// RegionSnapshot is a diagnostic view of one region's shape, produced
// without mutating anything.
type RegionSnapshot struct {
	Addr        uintptr
	Size        uint32
	Free        uint32
	NodesActive uint32
	NodesFree   uint32
	Flags       Flag
	Secure      bool // every SecurityMask bit is set on this region
	Tiled       bool // whether the node chain exactly covers the region
}

// Snapshot is the full-table diagnostic dump returned by Walk.
type Snapshot struct {
	FormatVersion string
	Regions       []RegionSnapshot
}

// Walk takes a read-only pass over every active region, in ascending base
// address order, and reports each one's shape. It acquires the master lock
// for read and each region's lock in turn, never blocking an allocation for
// longer than one region's worth of bookkeeping.
func (h *Engine) Walk() Snapshot {
	snap := Snapshot{FormatVersion: FormatVersion.String()}

	for _, addr := range h.table.baseAddresses() {
		r, err := h.table.Ptr2Region(uintptr(addr), FlagWait)
		if err != nil {
			continue
		}
		_, tiled := r.tiles()
		flags := r.flags()
		snap.Regions = append(snap.Regions, RegionSnapshot{
			Addr:        r.addr,
			Size:        r.size,
			Free:        r.free,
			NodesActive: r.nodesActive,
			NodesFree:   r.nodesFree,
			Flags:       flags,
			Secure:      flags.Has(SecurityMask),
			Tiled:       tiled,
		})
		r.unlock()
	}

	return snap
}

// Locate resolves addr to its owning region and returns a snapshot of it.
// The region's lock is released before Locate returns, so the snapshot is
// already stale by the time the caller sees it if another goroutine mutates
// concurrently; it is a diagnostic, not a basis for further operations.
func (h *Engine) Locate(addr uintptr, flags Flag) (RegionSnapshot, error) {
	r, err := h.table.Ptr2Region(addr, flags)
	if err != nil {
		return RegionSnapshot{}, err
	}
	defer r.unlock()

	_, tiled := r.tiles()
	regionFlags := r.flags()
	return RegionSnapshot{
		Addr:        r.addr,
		Size:        r.size,
		Free:        r.free,
		NodesActive: r.nodesActive,
		NodesFree:   r.nodesFree,
		Flags:       regionFlags,
		Secure:      regionFlags.Has(SecurityMask),
		Tiled:       tiled,
	}, nil
}
