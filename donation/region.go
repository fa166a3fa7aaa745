package donation

// Region is one donor thread's donated slice of heap. It carries only the
// fields of a full allocation buffer that GPU-side code needs.
//
// Start, Top, End, and LastGoodTop are exported raw addresses because the
// record itself is what gets exposed to the device: during the kernel
// window the GPU bumps Top (and may push it past End), and on exhaustion
// it records LastGoodTop before switching to overflow allocations. The
// host must not touch these fields between priming and PostKernelCleanup;
// the blocking synchronize call is the only ordering guarantee.
//
// Invariant on a primed region: Start <= OriginalTop <= End. After kernel
// execution Top may exceed End; cleanup clamps it back to LastGoodTop
// before committing to the thread.
type Region struct {
	Start       uintptr
	Top         uintptr
	End         uintptr
	LastGoodTop uintptr

	// OriginalTop is Top at priming time; Top - OriginalTop is the bytes
	// the kernel allocated from this region.
	OriginalTop uintptr

	// DonorThread is the thread this slice came from, not owning. Device
	// code fills it on records it draws from the pool mid-kernel.
	DonorThread Thread

	pool *Pool // arena that issued this record, not owning
}

// initialize snapshots a primed thread region into the record. Top and
// LastGoodTop both start at top: nothing suspect has been allocated yet.
func (r *Region) initialize(start, top, end uintptr, t Thread, p *Pool) {
	r.Start = start
	r.Top = top
	r.End = end
	r.LastGoodTop = top
	r.OriginalTop = top
	r.DonorThread = t
	r.pool = p
}

// Primed reports whether the region holds a real heap slice. Unprimed
// records (priming failed for the thread) are left zeroed and are skipped
// by cleanup; the GPU falls back to slow-path allocation for them.
func (r *Region) Primed() bool { return r.Start != 0 }
