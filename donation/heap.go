package donation

// Thread is the allocation-buffer view of one donor host thread. The
// managed runtime owns the thread; the donor only reads and commits its
// bump-pointer region through this boundary.
type Thread interface {
	// CurrentRegion returns the thread's active allocation region as
	// (start, top, end) byte addresses. All zeros when the thread has no
	// active region.
	CurrentRegion() (start, top, end uintptr)

	// DesiredRegionSize returns the thread's allocation heuristic's
	// preferred region size in bytes for an allocation of hint bytes.
	// Zero means the heuristic cannot size a region right now.
	DesiredRegionSize(hint uintptr) uintptr

	// CommitRegion installs (start, top) and the total region size in
	// bytes (including the alignment reserve) as the thread's active
	// allocation-buffer state.
	CommitRegion(start, top, sizeInBytes uintptr)

	// AlignmentReserve returns the byte count the runtime keeps free at
	// the region end so a filler object always fits.
	AlignmentReserve() uintptr
}

// Heap is the narrow slice of the managed heap the donor depends on.
type Heap interface {
	// MaxAllocatableWithoutGC returns how many bytes the heap could hand
	// out to t as fresh regions without triggering a collection.
	MaxAllocatableWithoutGC(t Thread) uintptr

	// AllocateRegion reserves a fresh region of the given byte size and
	// returns its start address, or 0 when the heap cannot satisfy the
	// request. Failure is non-fatal to donation: the affected thread
	// simply donates no region.
	AllocateRegion(bytes uintptr) uintptr

	// RestoreParsability makes t's allocation buffer heap-parsable,
	// retiring the region when forceRetire is set. Required before a
	// collection can walk the donated ranges.
	RestoreParsability(t Thread, forceRetire bool)

	// ZeroRegions reports whether the runtime configuration mandates
	// zero-filled allocation regions.
	ZeroRegions() bool
}
