package cuda

import (
	"fmt"
	"unsafe"
)

// Status is a CUDA Driver API result code (CUresult).
type Status int32

// Driver status codes this package inspects. The driver can return many
// more; anything non-zero is a failure and is reported verbatim.
const (
	StatusSuccess        Status = 0
	StatusInvalidValue   Status = 1
	StatusOutOfMemory    Status = 2
	StatusNotInitialized Status = 3
	StatusNoDevice       Status = 100
	StatusInvalidContext Status = 201
	StatusNoBinaryForGPU Status = 209
	StatusInvalidHandle  Status = 400
	StatusNotFound       Status = 500
	StatusNotReady       Status = 600
	StatusLaunchFailed   Status = 719
)

var statusNames = map[Status]string{
	StatusSuccess:        "CUDA_SUCCESS",
	StatusInvalidValue:   "CUDA_ERROR_INVALID_VALUE",
	StatusOutOfMemory:    "CUDA_ERROR_OUT_OF_MEMORY",
	StatusNotInitialized: "CUDA_ERROR_NOT_INITIALIZED",
	StatusNoDevice:       "CUDA_ERROR_NO_DEVICE",
	StatusInvalidContext: "CUDA_ERROR_INVALID_CONTEXT",
	StatusNoBinaryForGPU: "CUDA_ERROR_NO_BINARY_FOR_GPU",
	StatusInvalidHandle:  "CUDA_ERROR_INVALID_HANDLE",
	StatusNotFound:       "CUDA_ERROR_NOT_FOUND",
	StatusNotReady:       "CUDA_ERROR_NOT_READY",
	StatusLaunchFailed:   "CUDA_ERROR_LAUNCH_FAILED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CUDA_ERROR(%d)", int32(s))
}

// OK reports whether the status is CUDA_SUCCESS.
func (s Status) OK() bool { return s == StatusSuccess }

// Opaque native resource handles. All are owned exclusively by the Session
// or Executor that produced them and are released explicitly on every exit
// path.
type (
	// Device is a CUdevice ordinal handle.
	Device int32
	// Context is a CUcontext handle.
	Context uintptr
	// Module is a CUmodule handle.
	Module uintptr
	// Function is a CUfunction handle.
	Function uintptr
	// DevicePtr is a CUdeviceptr device address.
	DevicePtr uintptr
	// Stream is a CUstream handle. The zero value is the default stream.
	Stream uintptr
)

// Attribute is a CUdevice_attribute query code.
type Attribute int32

// Device attribute codes queried by this package.
const (
	AttrMaxThreadsPerBlock     Attribute = 1
	AttrWarpSize               Attribute = 10
	AttrMultiprocessorCount    Attribute = 16
	AttrCanMapHostMemory       Attribute = 19
	AttrConcurrentKernels      Attribute = 31
	AttrAsyncEngineCount       Attribute = 40
	AttrUnifiedAddressing      Attribute = 41
	AttrComputeCapabilityMajor Attribute = 75
	AttrComputeCapabilityMinor Attribute = 76
)

// ctxMapHost requests a context whose allocations are host-mappable
// (CU_CTX_MAP_HOST). Required for the pinned-buffer argument protocol.
const ctxMapHost uint32 = 0x08

// JIT option codes (CUjit_option) used by the module loader.
const (
	jitMaxRegisters           int32 = 0
	jitInfoLogBuffer          int32 = 3
	jitInfoLogBufferSizeBytes int32 = 4
)

// JITOption is one (code, value) pair passed to the driver's online
// compiler when loading module data.
type JITOption struct {
	Code  int32
	Value uintptr
}

// Dim3 is a grid or block dimensionality triple.
type Dim3 struct {
	X, Y, Z uint32
}

// OneDim is the degenerate single-workitem dimensionality.
var OneDim = Dim3{X: 1, Y: 1, Z: 1}

// Driver is the catalog of native driver entry points this package needs.
// The production implementation is Binding; tests substitute fakes.
//
// Methods mirror the C ABI closely: each returns a raw Status and the
// caller decides how to surface it. No method retains the Go pointers it
// is given beyond the duration of the call.
type Driver interface {
	Init(flags uint32) Status

	DeviceGetCount() (int, Status)
	DeviceGet(ordinal int) (Device, Status)
	DeviceGetName(dev Device, max int) (string, Status)
	DeviceGetAttribute(attr Attribute, dev Device) (int32, Status)

	CtxCreate(flags uint32, dev Device) (Context, Status)
	CtxDestroy(ctx Context) Status
	CtxSetCurrent(ctx Context) Status
	CtxSynchronize() Status

	ModuleLoadDataEx(image []byte, options []JITOption) (Module, Status)
	ModuleGetFunction(mod Module, name string) (Function, Status)

	// LaunchKernel launches fn with the driver's buffer-pointer/buffer-size
	// launch-parameter convention: the whole argument block is passed as
	// one opaque buffer rather than as discrete kernel parameters.
	LaunchKernel(fn Function, grid, block Dim3, sharedMemBytes uint32, stream Stream, argBuf unsafe.Pointer, argBufSize uintptr) Status

	MemAlloc(bytes uintptr) (DevicePtr, Status)
	MemFree(dptr DevicePtr) Status
	MemcpyDtoH(dst unsafe.Pointer, src DevicePtr, bytes uintptr) Status
	MemcpyHtoD(dst DevicePtr, src unsafe.Pointer, bytes uintptr) Status

	MemHostRegister(p unsafe.Pointer, bytes uintptr, flags uint32) Status
	MemHostUnregister(p unsafe.Pointer) Status
	MemHostGetDevicePointer(p unsafe.Pointer) (DevicePtr, Status)
}
