package heap

// Flag is the allocator's capability/request bitmask. Bit positions are
// stable and may be OR-ed by callers.
type Flag uint32

const (
	FlagInternal Flag = 1 << iota
	FlagNomadic
	FlagWait
	FlagNowait
	FlagBusy
	FlagRestrict
	FlagEncrypted
	FlagActive
	FlagWiped
	FlagSubregions
	FlagSmallReq
	FlagLargeReq
	FlagNatural
)

const (
	// RegionMask selects the bits that match a request against a region:
	// wiped, internal, encrypted.
	RegionMask = FlagWiped | FlagInternal | FlagEncrypted

	// NodeMask selects the bits relevant to a single node: nomadic, busy,
	// wiped, restrict.
	NodeMask = FlagNomadic | FlagBusy | FlagWiped | FlagRestrict

	// SecurityMask mirrors RegionMask in the canonical source snapshot; kept
	// distinct for diagnostics since a future divergence between the two is
	// plausible.
	SecurityMask = FlagWiped | FlagInternal | FlagEncrypted

	// DontUseMask marks a region as currently unusable for new allocations:
	// restrict or busy.
	DontUseMask = FlagRestrict | FlagBusy
)

// Has reports whether all bits of mask are set in f.
func (f Flag) Has(mask Flag) bool { return f&mask == mask }

// Any reports whether any bit of mask is set in f.
func (f Flag) Any(mask Flag) bool { return f&mask != 0 }
