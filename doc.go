// Package gpubridge bridges a managed runtime's object allocator with GPU
// kernel execution over the CUDA Driver API.
//
// # Overview
//
// The package lets GPU kernels perform fast-path object allocation by
// "donating" slices of per-thread allocation buffers (TLABs) from live host
// threads, and drives the native driver calls needed to load, launch, and
// retrieve results from compiled kernels.
//
// The two halves of the bridge live in their own packages:
//
//   - donation: the TLAB-donation allocator. A fixed-capacity arena of
//     region records is primed from donor threads before a kernel launch
//     and reconciled back into each thread's real allocation buffer after
//     the kernel completes, including overflow rollback and heap
//     parsability restoration.
//   - cuda: the driver binding and execution state machine. A process-wide
//     Binding resolves the driver's C entry points at runtime (no cgo), a
//     Session owns device discovery and capability queries, and an
//     Executor runs the load → launch → synchronize → copy-back → teardown
//     cycle with typed failure reporting at every step.
//
// # Typical use
//
//	drv, err := cuda.Bind()
//	if err != nil { ... }
//	sess, err := cuda.NewSession(drv)
//	if err != nil { ... }
//	exec := cuda.NewExecutor(sess)
//
//	kernel, err := exec.GenerateKernel(ptx, "sum")
//	if err != nil { ... }
//
//	donor, err := donation.NewDonor(heap, threads, bytesPerWorkitem, dimX)
//	if err != nil { ... }
//	// ... marshal donor.CurrentRegions() into the argument buffer ...
//	ret, err := exec.ExecuteKernel(kernel, argBuf, 4, cuda.Dim3{X: dimX, Y: 1, Z: 1})
//	donor.PostKernelCleanup()
//
// # Logging
//
// gpubridge is silent by default. Call SetLogger to direct diagnostics to a
// log/slog logger; driver-call tracing is emitted at Debug level.
package gpubridge
