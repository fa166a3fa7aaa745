package cuda

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPlatform indicates the platform has no canonical
	// driver library name, so binding can never succeed.
	ErrUnsupportedPlatform = errors.New("cuda: no driver library for this platform")

	// ErrNilKernel indicates a nil or zero kernel handle was passed to
	// ExecuteKernel.
	ErrNilKernel = errors.New("cuda: nil kernel handle")

	// ErrArgBufferTooSmall indicates the argument buffer has no room for
	// the trailing device return-value pointer slot.
	ErrArgBufferTooSmall = errors.New("cuda: argument buffer too small for return slot")

	// ErrInvalidReturnSize indicates an encoded return-type size that is
	// neither a primitive width (4 or 8) nor the platform pointer width.
	ErrInvalidReturnSize = errors.New("cuda: invalid encoded return type size")
)

// BindingError reports that the driver library could not be opened or that
// a required entry point was missing. Binding is all-or-nothing: a partial
// binding is unusable and is never exposed to callers.
type BindingError struct {
	Library string // library name attempted, empty on unsupported platforms
	Symbol  string // missing symbol, empty when the library itself failed to open
	Err     error
}

func (e *BindingError) Error() string {
	switch {
	case e.Symbol != "":
		return fmt.Sprintf("cuda: binding %s: missing symbol %s", e.Library, e.Symbol)
	case e.Library != "":
		return fmt.Sprintf("cuda: binding %s: %v", e.Library, e.Err)
	default:
		return fmt.Sprintf("cuda: binding: %v", e.Err)
	}
}

func (e *BindingError) Unwrap() error { return e.Err }

// NoDeviceError reports that the driver initialized but enumerated zero
// compute-capable devices. Fatal to session initialization.
type NoDeviceError struct{}

func (e *NoDeviceError) Error() string {
	return "cuda: no compute-capable device found"
}

// DriverCallError reports a single native driver call that returned a
// non-success status. The current operation is aborted and any resources
// already acquired by it are released before this error surfaces.
type DriverCallError struct {
	Op   string // driver entry point, e.g. "cuLaunchKernel"
	Code Status
}

func (e *DriverCallError) Error() string {
	return fmt.Sprintf("cuda: %s failed: %s", e.Op, e.Code)
}

// CompileError reports a kernel module load or entry-point resolution
// failure. Unsupported is set when the driver reported that no binary
// could be produced for this GPU architecture.
type CompileError struct {
	Entry       string // requested entry-point name
	Code        Status
	Log         string // driver JIT info log, may be empty
	Unsupported bool
}

func (e *CompileError) Error() string {
	msg := fmt.Sprintf("cuda: loading kernel %q failed: %s", e.Entry, e.Code)
	if e.Unsupported {
		msg += " (no binary for this GPU architecture)"
	}
	if e.Log != "" {
		msg += "; jit log: " + e.Log
	}
	return msg
}
