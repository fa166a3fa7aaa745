package cuda

import (
	"unsafe"
)

// fakeDriver is a scriptable in-memory Driver. It records the call
// sequence and per-resource counts so tests can assert release ordering.
type fakeDriver struct {
	calls []string

	// failOp maps an entry-point name to the status it should return.
	failOp map[string]Status

	deviceCount int
	deviceName  string
	attrs       map[Attribute]int32

	// jitLog, when set, is written into the caller's info-log buffer by a
	// failing ModuleLoadDataEx, the way the driver's online compiler does.
	jitLog string

	// copyBits is the value MemcpyDtoH writes back to the host.
	copyBits int64

	loadedImage []byte
	jitOptions  []JITOption
	lastArgBuf  unsafe.Pointer
	lastArgSize uintptr
	lastGrid    Dim3
	lastBlock   Dim3

	nextCtx     uintptr
	ctxCreates  int
	ctxDestroys int
	memAllocs   int
	memFrees    int
	launches    int
	pinned      int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		failOp:      map[string]Status{},
		deviceCount: 1,
		deviceName:  "Fake GPU",
		attrs: map[Attribute]int32{
			AttrUnifiedAddressing:      1,
			AttrComputeCapabilityMajor: 3,
			AttrComputeCapabilityMinor: 0,
			AttrMultiprocessorCount:    15,
			AttrMaxThreadsPerBlock:     1024,
			AttrWarpSize:               32,
			AttrAsyncEngineCount:       2,
			AttrCanMapHostMemory:       1,
			AttrConcurrentKernels:      1,
		},
		nextCtx: 0x1000,
	}
}

func (f *fakeDriver) status(op string) Status {
	f.calls = append(f.calls, op)
	if st, ok := f.failOp[op]; ok {
		return st
	}
	return StatusSuccess
}

func (f *fakeDriver) Init(uint32) Status { return f.status("cuInit") }

func (f *fakeDriver) DeviceGetCount() (int, Status) {
	return f.deviceCount, f.status("cuDeviceGetCount")
}

func (f *fakeDriver) DeviceGet(ordinal int) (Device, Status) {
	return Device(ordinal), f.status("cuDeviceGet")
}

func (f *fakeDriver) DeviceGetName(Device, int) (string, Status) {
	return f.deviceName, f.status("cuDeviceGetName")
}

func (f *fakeDriver) DeviceGetAttribute(attr Attribute, _ Device) (int32, Status) {
	return f.attrs[attr], f.status("cuDeviceGetAttribute")
}

func (f *fakeDriver) CtxCreate(uint32, Device) (Context, Status) {
	st := f.status("cuCtxCreate")
	if !st.OK() {
		return 0, st
	}
	f.ctxCreates++
	f.nextCtx += 0x10
	return Context(f.nextCtx), st
}

func (f *fakeDriver) CtxDestroy(Context) Status {
	st := f.status("cuCtxDestroy")
	if st.OK() {
		f.ctxDestroys++
	}
	return st
}

func (f *fakeDriver) CtxSetCurrent(Context) Status { return f.status("cuCtxSetCurrent") }
func (f *fakeDriver) CtxSynchronize() Status       { return f.status("cuCtxSynchronize") }

func (f *fakeDriver) ModuleLoadDataEx(image []byte, options []JITOption) (Module, Status) {
	f.loadedImage = append([]byte(nil), image...)
	f.jitOptions = append([]JITOption(nil), options...)
	st := f.status("cuModuleLoadDataEx")
	if !st.OK() && f.jitLog != "" {
		// Emulate the online compiler writing its info log.
		for _, opt := range options {
			if opt.Code == jitInfoLogBuffer {
				dst := unsafe.Slice((*byte)(unsafe.Pointer(opt.Value)), len(f.jitLog)+1)
				copy(dst, f.jitLog)
				dst[len(f.jitLog)] = 0
			}
		}
	}
	if !st.OK() {
		return 0, st
	}
	return Module(0x2000), st
}

func (f *fakeDriver) ModuleGetFunction(Module, string) (Function, Status) {
	st := f.status("cuModuleGetFunction")
	if !st.OK() {
		return 0, st
	}
	return Function(0x3000), st
}

func (f *fakeDriver) LaunchKernel(_ Function, grid, block Dim3, _ uint32, _ Stream, argBuf unsafe.Pointer, argBufSize uintptr) Status {
	f.lastGrid = grid
	f.lastBlock = block
	f.lastArgBuf = argBuf
	f.lastArgSize = argBufSize
	st := f.status("cuLaunchKernel")
	if st.OK() {
		f.launches++
	}
	return st
}

func (f *fakeDriver) MemAlloc(uintptr) (DevicePtr, Status) {
	st := f.status("cuMemAlloc")
	if !st.OK() {
		return 0, st
	}
	f.memAllocs++
	return DevicePtr(0xD000 + uintptr(f.memAllocs)*0x100), st
}

func (f *fakeDriver) MemFree(DevicePtr) Status {
	st := f.status("cuMemFree")
	if st.OK() {
		f.memFrees++
	}
	return st
}

func (f *fakeDriver) MemcpyDtoH(dst unsafe.Pointer, _ DevicePtr, bytes uintptr) Status {
	st := f.status("cuMemcpyDtoH")
	if !st.OK() {
		return st
	}
	switch {
	case bytes >= 8:
		*(*int64)(dst) = f.copyBits
	case bytes >= 4:
		*(*int32)(dst) = int32(f.copyBits)
	}
	return st
}

func (f *fakeDriver) MemcpyHtoD(DevicePtr, unsafe.Pointer, uintptr) Status {
	return f.status("cuMemcpyHtoD")
}

func (f *fakeDriver) MemHostRegister(unsafe.Pointer, uintptr, uint32) Status {
	st := f.status("cuMemHostRegister")
	if st.OK() {
		f.pinned++
	}
	return st
}

func (f *fakeDriver) MemHostUnregister(unsafe.Pointer) Status {
	st := f.status("cuMemHostUnregister")
	if st.OK() {
		f.pinned--
	}
	return st
}

func (f *fakeDriver) MemHostGetDevicePointer(p unsafe.Pointer) (DevicePtr, Status) {
	st := f.status("cuMemHostGetDevicePointer")
	if !st.OK() {
		return 0, st
	}
	return DevicePtr(uintptr(p)), st
}

// callCount returns how many times op appears in the recorded sequence.
func (f *fakeDriver) callCount(op string) int {
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// Compile-time interface check
var _ Driver = (*fakeDriver)(nil)
