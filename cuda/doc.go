// Package cuda binds the CUDA Driver API at runtime and drives kernel
// compilation, launch, and result retrieval.
//
// # Overview
//
// Three layers, each explicitly constructed and owned (no ambient driver
// globals):
//
//   - Binding resolves a fixed catalog of driver entry points from the
//     platform's canonical driver library via dlopen. Binding is
//     all-or-nothing: a missing library or any missing symbol fails with
//     *BindingError and no partial binding is ever exposed.
//   - Session wraps device discovery. It initializes the driver, selects
//     the device at ordinal 0, and answers capability queries such as
//     TotalCores (advisory telemetry derived from the multiprocessor
//     count and a fixed cores-per-multiprocessor table).
//   - Executor runs the per-kernel state machine: context creation →
//     module load (fixed three-option JIT configuration) → entry
//     resolution → launch → blocking synchronize → result copy-back →
//     teardown. Each step is independently fallible; any failure
//     short-circuits the rest but releases the device return buffer and
//     context first.
//
// The Driver interface abstracts the native entry points so sessions and
// executors can be exercised against fakes in tests.
//
// # Error taxonomy
//
//   - *BindingError: missing library or symbol; fatal to the subsystem.
//   - *NoDeviceError: zero compute devices; fatal to initialization.
//   - *DriverCallError: one native call failed; the current operation is
//     aborted and its resources released.
//   - *CompileError: module load or entry resolution failed, with an
//     Unsupported sub-kind for "no binary for this GPU architecture".
//
// # Concurrency
//
// A single host goroutine drives the executor synchronously. Synchronize
// is a blocking driver call with no cancellation or timeout: a hung kernel
// hangs the host goroutine. The blocking window is what makes TLAB
// donation safe; see the donation package.
package cuda
