//go:build linux || darwin

package cuda

import (
	"bytes"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/openaccel/gpubridge"
)

// rawFuncs holds the resolved driver entry points. Signatures mirror the
// C ABI; purego bridges the calling convention at registration time.
type rawFuncs struct {
	init                    func(flags uint32) int32
	deviceGetCount          func(count *int32) int32
	deviceGet               func(dev *int32, ordinal int32) int32
	deviceGetName           func(name *byte, length int32, dev int32) int32
	deviceComputeCapability func(major, minor *int32, dev int32) int32
	deviceGetAttribute      func(value *int32, attrib int32, dev int32) int32
	ctxCreate               func(ctx *uintptr, flags uint32, dev int32) int32
	ctxDestroy              func(ctx uintptr) int32
	ctxSetCurrent           func(ctx uintptr) int32
	ctxSynchronize          func() int32
	moduleLoadDataEx        func(mod *uintptr, image unsafe.Pointer, numOptions uint32, options *int32, optionValues *unsafe.Pointer) int32
	moduleGetFunction       func(fn *uintptr, mod uintptr, name *byte) int32
	launchKernel            func(fn uintptr, gridX, gridY, gridZ, blockX, blockY, blockZ uint32, sharedMemBytes uint32, stream uintptr, kernelParams *unsafe.Pointer, extra *unsafe.Pointer) int32
	memAlloc                func(dptr *uintptr, bytes uintptr) int32
	memFree                 func(dptr uintptr) int32
	memcpyDtoH              func(dst unsafe.Pointer, src uintptr, n uintptr) int32
	memcpyHtoD              func(dst uintptr, src unsafe.Pointer, n uintptr) int32
	memHostRegister         func(p unsafe.Pointer, n uintptr, flags uint32) int32
	memHostUnregister       func(p unsafe.Pointer) int32
	memHostGetDevicePointer func(dptr *uintptr, p unsafe.Pointer, flags uint32) int32
}

// Binding is the production Driver backed by the platform's CUDA driver
// shared library, loaded at runtime via dlopen (no cgo).
type Binding struct {
	library string
	fn      rawFuncs
}

// symbol pairs a driver entry-point name with the function-pointer slot it
// is registered into.
type symbol struct {
	name string
	fn   any
}

// symbols is the declarative catalog of required entry points. Binding is
// all-or-nothing: the first unresolvable name fails the whole bind.
//
// cuDeviceComputeCapability is resolved for catalog completeness even
// though capability queries go through cuDeviceGetAttribute.
func (b *Binding) symbols() []symbol {
	return []symbol{
		{"cuInit", &b.fn.init},
		{"cuCtxSynchronize", &b.fn.ctxSynchronize},
		{"cuCtxSetCurrent", &b.fn.ctxSetCurrent},
		{"cuDeviceGetCount", &b.fn.deviceGetCount},
		{"cuDeviceGetName", &b.fn.deviceGetName},
		{"cuDeviceGet", &b.fn.deviceGet},
		{"cuDeviceComputeCapability", &b.fn.deviceComputeCapability},
		{"cuDeviceGetAttribute", &b.fn.deviceGetAttribute},
		{"cuModuleGetFunction", &b.fn.moduleGetFunction},
		{"cuModuleLoadDataEx", &b.fn.moduleLoadDataEx},
		{"cuLaunchKernel", &b.fn.launchKernel},
		{"cuMemHostRegister_v2", &b.fn.memHostRegister},
		{"cuMemHostUnregister", &b.fn.memHostUnregister},
		{"cuCtxCreate_v2", &b.fn.ctxCreate},
		{"cuCtxDestroy_v2", &b.fn.ctxDestroy},
		{"cuMemAlloc_v2", &b.fn.memAlloc},
		{"cuMemFree_v2", &b.fn.memFree},
		{"cuMemcpyHtoD_v2", &b.fn.memcpyHtoD},
		{"cuMemcpyDtoH_v2", &b.fn.memcpyDtoH},
		{"cuMemHostGetDevicePointer_v2", &b.fn.memHostGetDevicePointer},
	}
}

var (
	bindOnce sync.Once
	bound    *Binding
	bindErr  error
)

// Bind loads the platform's driver library and resolves the full entry
// point catalog. It fails with *BindingError if the library cannot be
// opened or any required symbol is missing; no partial binding is ever
// returned.
//
// The result is computed once per process. Concurrent re-binding has no
// defined behavior at the driver level, so repeat calls return the first
// outcome.
func Bind() (*Binding, error) {
	bindOnce.Do(func() {
		bound, bindErr = bindLibrary(driverLibraryNames)
	})
	return bound, bindErr
}

func bindLibrary(names []string) (*Binding, error) {
	if len(names) == 0 {
		return nil, &BindingError{Err: ErrUnsupportedPlatform}
	}

	var (
		lib     uintptr
		library string
		openErr error
	)
	for _, name := range names {
		h, err := purego.Dlopen(name, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err == nil {
			lib, library = h, name
			break
		}
		openErr = err
	}
	if lib == 0 {
		return nil, &BindingError{Library: names[0], Err: openErr}
	}

	b := &Binding{library: library}
	for _, sym := range b.symbols() {
		addr, err := purego.Dlsym(lib, sym.name)
		if err != nil || addr == 0 {
			return nil, &BindingError{Library: library, Symbol: sym.name, Err: err}
		}
		purego.RegisterFunc(sym.fn, addr)
	}

	gpubridge.Logger().Info("cuda driver bound", "library", library)
	return b, nil
}

// Library returns the name of the loaded driver library.
func (b *Binding) Library() string { return b.library }

func (b *Binding) Init(flags uint32) Status {
	return Status(b.fn.init(flags))
}

func (b *Binding) DeviceGetCount() (int, Status) {
	var n int32
	st := Status(b.fn.deviceGetCount(&n))
	return int(n), st
}

func (b *Binding) DeviceGet(ordinal int) (Device, Status) {
	var dev int32
	st := Status(b.fn.deviceGet(&dev, int32(ordinal)))
	return Device(dev), st
}

func (b *Binding) DeviceGetName(dev Device, max int) (string, Status) {
	buf := make([]byte, max)
	st := Status(b.fn.deviceGetName(&buf[0], int32(len(buf)), int32(dev)))
	if !st.OK() {
		return "", st
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), st
}

func (b *Binding) DeviceGetAttribute(attr Attribute, dev Device) (int32, Status) {
	var v int32
	st := Status(b.fn.deviceGetAttribute(&v, int32(attr), int32(dev)))
	return v, st
}

func (b *Binding) CtxCreate(flags uint32, dev Device) (Context, Status) {
	var ctx uintptr
	st := Status(b.fn.ctxCreate(&ctx, flags, int32(dev)))
	return Context(ctx), st
}

func (b *Binding) CtxDestroy(ctx Context) Status {
	return Status(b.fn.ctxDestroy(uintptr(ctx)))
}

func (b *Binding) CtxSetCurrent(ctx Context) Status {
	return Status(b.fn.ctxSetCurrent(uintptr(ctx)))
}

func (b *Binding) CtxSynchronize() Status {
	return Status(b.fn.ctxSynchronize())
}

func (b *Binding) ModuleLoadDataEx(image []byte, options []JITOption) (Module, Status) {
	// PTX images are parsed as NUL-terminated text.
	img := make([]byte, len(image)+1)
	copy(img, image)

	var (
		codes  []int32
		values []unsafe.Pointer
		pCodes *int32
		pVals  *unsafe.Pointer
	)
	if len(options) > 0 {
		codes = make([]int32, len(options))
		values = make([]unsafe.Pointer, len(options))
		for i, opt := range options {
			codes[i] = opt.Code
			values[i] = unsafe.Pointer(opt.Value) //nolint:govet // driver encodes scalars as pointer-width values
		}
		pCodes = &codes[0]
		pVals = &values[0]
	}

	var mod uintptr
	st := Status(b.fn.moduleLoadDataEx(&mod, unsafe.Pointer(&img[0]), uint32(len(options)), pCodes, pVals))
	return Module(mod), st
}

func (b *Binding) ModuleGetFunction(mod Module, name string) (Function, Status) {
	cname := append([]byte(name), 0)
	var fn uintptr
	st := Status(b.fn.moduleGetFunction(&fn, uintptr(mod), &cname[0]))
	return Function(fn), st
}

// Launch parameter markers (CU_LAUNCH_PARAM_*). These are sentinel pointer
// values defined by the driver ABI, not real addresses.
var (
	launchParamBufferPointer = unsafe.Pointer(uintptr(0x01))
	launchParamBufferSize    = unsafe.Pointer(uintptr(0x02))
)

func (b *Binding) LaunchKernel(fn Function, grid, block Dim3, sharedMemBytes uint32, stream Stream, argBuf unsafe.Pointer, argBufSize uintptr) Status {
	size := argBufSize
	config := []unsafe.Pointer{
		launchParamBufferPointer, argBuf,
		launchParamBufferSize, unsafe.Pointer(&size),
		nil, // CU_LAUNCH_PARAM_END
	}
	return Status(b.fn.launchKernel(uintptr(fn),
		grid.X, grid.Y, grid.Z,
		block.X, block.Y, block.Z,
		sharedMemBytes, uintptr(stream),
		nil, &config[0]))
}

func (b *Binding) MemAlloc(bytes uintptr) (DevicePtr, Status) {
	var dptr uintptr
	st := Status(b.fn.memAlloc(&dptr, bytes))
	return DevicePtr(dptr), st
}

func (b *Binding) MemFree(dptr DevicePtr) Status {
	return Status(b.fn.memFree(uintptr(dptr)))
}

func (b *Binding) MemcpyDtoH(dst unsafe.Pointer, src DevicePtr, bytes uintptr) Status {
	return Status(b.fn.memcpyDtoH(dst, uintptr(src), bytes))
}

func (b *Binding) MemcpyHtoD(dst DevicePtr, src unsafe.Pointer, bytes uintptr) Status {
	return Status(b.fn.memcpyHtoD(uintptr(dst), src, bytes))
}

func (b *Binding) MemHostRegister(p unsafe.Pointer, bytes uintptr, flags uint32) Status {
	return Status(b.fn.memHostRegister(p, bytes, flags))
}

func (b *Binding) MemHostUnregister(p unsafe.Pointer) Status {
	return Status(b.fn.memHostUnregister(p))
}

func (b *Binding) MemHostGetDevicePointer(p unsafe.Pointer) (DevicePtr, Status) {
	var dptr uintptr
	st := Status(b.fn.memHostGetDevicePointer(&dptr, p, 0))
	return DevicePtr(dptr), st
}

// Compile-time interface check
var _ Driver = (*Binding)(nil)
