// Package donation implements the TLAB-donation allocator: it lends
// host threads' pre-reserved allocation regions to GPU kernels and
// reconciles the results afterward.
//
// # Protocol
//
// A Donor is built over a non-empty ordered set of donor threads. For
// each thread it ensures a primed allocation region exists — refilling
// from the heap when the thread has none — and snapshots (start, top,
// end) into a Region record drawn from a fixed-capacity Pool arena. The
// record addresses are stable, so the kernel's argument marshaling can
// pass them to the device directly.
//
// During kernel execution the GPU allocates by bumping Region.Top, and may
// draw additional records from the pool when a region fills. When a region
// overflows, the device records LastGoodTop and keeps bumping Top past End
// for its own bookkeeping; the host repairs this afterward.
//
// PostKernelCleanup walks every issued record: overflowed regions are
// rolled back to LastGoodTop and their threads force-retired to restore
// heap parsability, every primed region's bump pointer is committed back
// to its donor thread, and per-kernel telemetry (bytes allocated,
// overflow count) is accumulated into Stats.
//
// # Why there is no lock
//
// Region bump pointers are written by the GPU while the host thread is
// blocked in the driver's synchronize call. The protocol is single-writer
// with a strict window: the host must not touch a donated region between
// priming and cleanup, and the device must not touch it outside the
// launch-to-synchronize span. The blocking synchronize call is the
// happens-before edge; a mutex could not help because the device side
// cannot participate in host locking. This is a hard invariant of the
// design, not an optimization.
//
// # Failure model
//
// Allocation-side failures are always soft. A thread whose region cannot
// be primed donates nothing and the kernel falls back to slow-path
// allocation; a pool that runs out of records stops issuing them and
// latches an overflowed flag. Neither condition ever aborts a launch, and
// nothing here retries — a failed priming attempt is left for the next
// collection cycle to repair.
package donation
