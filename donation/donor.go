package donation

import (
	"unsafe"

	"github.com/openaccel/gpubridge"
)

// Hard cap on pool capacity as a multiple of the donor-thread count.
const maxRegionsPerThread = 64

// Fallback pool-capacity multiple when the size heuristic is degenerate.
const fallbackRegionsPerThread = 8

// Stats aggregates donation telemetry across one donor lifetime.
type Stats struct {
	// Overflows counts regions whose Top ran past End during kernel
	// execution and had to be rolled back to LastGoodTop.
	Overflows uint64
	// BytesAllocated sums Top - OriginalTop over all primed regions at
	// cleanup, after overflow clamping.
	BytesAllocated uint64
	// RegionsIssued is how many records have been reserved from the pool.
	RegionsIssued int
}

// Donor primes one allocation region per donor thread ahead of a kernel
// launch and reconciles the regions back into the threads afterward.
//
// Lifecycle: NewDonor → expose CurrentRegions to the kernel's argument
// marshaling → launch and synchronize → PostKernelCleanup. Between priming
// and cleanup the GPU owns every region's bump pointer; the host must not
// allocate through the donor threads in that window.
type Donor struct {
	heap    Heap
	threads []Thread
	pool    *Pool
	current []*Region
	stats   Stats
}

// NewDonor builds a donor for a non-empty ordered thread set.
//
// bytesPerWorkitem and dimX describe the kernel's expected allocation
// appetite; they size the heuristic hint for region priming. The pool
// capacity is estimated from free heap bytes over the first thread's
// desired region size, capped at 64 regions per donor thread, with a
// fixed 8-per-thread fallback when the size heuristic reports zero.
func NewDonor(heap Heap, threads []Thread, bytesPerWorkitem, dimX int) (*Donor, error) {
	if len(threads) == 0 {
		return nil, ErrNoDonorThreads
	}

	log := gpubridge.Logger()

	// Size the pool from the first thread's view of the heap.
	desired := threads[0].DesiredRegionSize(0)
	heapFree := heap.MaxAllocatableWithoutGC(threads[0])
	var capacity int
	if desired != 0 {
		capacity = min(int(heapFree/desired), maxRegionsPerThread*len(threads))
	} else {
		capacity = fallbackRegionsPerThread * len(threads)
	}
	// Never size below the thread count: the first reservation must
	// produce one record per donor thread.
	capacity = max(capacity, len(threads))
	log.Debug("sizing region pool",
		"heapFree", heapFree, "desiredRegionSize", desired,
		"donorThreads", len(threads), "capacity", capacity)

	d := &Donor{
		heap:    heap,
		threads: threads,
		pool:    NewPool(capacity),
		current: make([]*Region, len(threads)),
	}

	hint := uintptr(bytesPerWorkitem * dimX)
	regions := d.pool.Reserve(len(threads))
	for i, t := range threads {
		start, top, end := t.CurrentRegion()
		if end == 0 {
			// No active region; try to prime a fresh one. Failure is
			// non-fatal: the GPU falls back to slow-path allocation for
			// this thread, and a later GC will sort the thread out.
			if d.primeThread(t, hint) {
				start, top, end = t.CurrentRegion()
				log.Debug("primed donor thread region",
					"thread", i, "start", start, "top", top, "end", end)
			} else {
				log.Debug("could not prime donor thread region", "thread", i)
			}
		}
		regions[i].initialize(start, top, end, t, d.pool)
		d.current[i] = regions[i]
	}
	d.stats.RegionsIssued = len(regions)

	return d, nil
}

// primeThread retires the thread's partial region and installs a fresh one
// from the heap. Returns false when no region could be obtained.
func (d *Donor) primeThread(t Thread, hint uintptr) bool {
	// Retire whatever partial region exists so the heap stays parsable.
	d.heap.RestoreParsability(t, true)

	size := t.DesiredRegionSize(hint)
	if size == 0 {
		return false
	}
	start := d.heap.AllocateRegion(size)
	if start == 0 {
		return false
	}
	if d.heap.ZeroRegions() {
		clear(unsafe.Slice((*byte)(unsafe.Pointer(start)), size))
	}
	t.CommitRegion(start, start, size)
	return true
}

// CurrentRegions returns the live region record per donor thread, in
// thread order. The slice and the records it points at are stable for the
// donor's lifetime; this is what gets marshaled into the kernel's
// argument buffer.
func (d *Donor) CurrentRegions() []*Region { return d.current }

// Pool returns the donor's region arena.
func (d *Donor) Pool() *Pool { return d.pool }

// PostKernelCleanup reconciles every region ever issued from the pool back
// into its donor thread, after the kernel has completed and the host owns
// the bump pointers again.
//
// Unprimed records are no-ops. A region whose Top ran past End is an
// overflow: Top rolls back to LastGoodTop, the overflow counter bumps, and
// the thread's buffer is force-retired to restore parsability. Every
// primed region's (start, top) is committed back to its thread even when
// a later region for the same thread supersedes it — the superseded commit
// keeps that thread's allocation statistics accurate.
func (d *Donor) PostKernelCleanup() {
	log := gpubridge.Logger()

	for _, r := range d.pool.Issued() {
		if !r.Primed() || r.DonorThread == nil {
			continue
		}
		t := r.DonorThread

		overflowed := false
		if r.Top > r.End {
			overflowed = true
			d.stats.Overflows++
			log.Warn("region overflowed, rolling back",
				"start", r.Start, "top", r.Top, "end", r.End,
				"lastGoodTop", r.LastGoodTop)
			r.Top = r.LastGoodTop
		}

		t.CommitRegion(r.Start, r.Top, (r.End-r.Start)+t.AlignmentReserve())
		if overflowed {
			d.heap.RestoreParsability(t, true)
		}

		delta := uint64(r.Top - r.OriginalTop)
		d.stats.BytesAllocated += delta
		log.Debug("region reconciled",
			"start", r.Start, "top", r.Top, "end", r.End, "bytesAllocated", delta)
	}

	d.stats.RegionsIssued = len(d.pool.Issued())
	log.Debug("post-kernel cleanup complete",
		"bytesAllocated", d.stats.BytesAllocated, "overflows", d.stats.Overflows)
}

// Stats returns the donor's aggregate telemetry.
func (d *Donor) Stats() Stats { return d.stats }
