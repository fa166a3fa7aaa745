//go:build !linux && !darwin

package cuda

import "unsafe"

// Binding is unavailable on platforms without a canonical driver library.
// The method set exists so callers compile everywhere; Bind never returns
// a Binding here, so none of the methods is reachable.
type Binding struct{}

// Bind always fails on unsupported platforms: there is no canonical driver
// library name to open, and no entry points are ever populated.
func Bind() (*Binding, error) {
	return nil, &BindingError{Err: ErrUnsupportedPlatform}
}

// Library returns the name of the loaded driver library.
func (b *Binding) Library() string { return "" }

func (b *Binding) Init(uint32) Status             { return StatusNotInitialized }
func (b *Binding) DeviceGetCount() (int, Status)  { return 0, StatusNotInitialized }
func (b *Binding) DeviceGet(int) (Device, Status) { return 0, StatusNotInitialized }
func (b *Binding) DeviceGetName(Device, int) (string, Status) {
	return "", StatusNotInitialized
}
func (b *Binding) DeviceGetAttribute(Attribute, Device) (int32, Status) {
	return 0, StatusNotInitialized
}
func (b *Binding) CtxCreate(uint32, Device) (Context, Status) { return 0, StatusNotInitialized }
func (b *Binding) CtxDestroy(Context) Status                  { return StatusNotInitialized }
func (b *Binding) CtxSetCurrent(Context) Status               { return StatusNotInitialized }
func (b *Binding) CtxSynchronize() Status                     { return StatusNotInitialized }
func (b *Binding) ModuleLoadDataEx([]byte, []JITOption) (Module, Status) {
	return 0, StatusNotInitialized
}
func (b *Binding) ModuleGetFunction(Module, string) (Function, Status) {
	return 0, StatusNotInitialized
}
func (b *Binding) LaunchKernel(Function, Dim3, Dim3, uint32, Stream, unsafe.Pointer, uintptr) Status {
	return StatusNotInitialized
}
func (b *Binding) MemAlloc(uintptr) (DevicePtr, Status) { return 0, StatusNotInitialized }
func (b *Binding) MemFree(DevicePtr) Status             { return StatusNotInitialized }
func (b *Binding) MemcpyDtoH(unsafe.Pointer, DevicePtr, uintptr) Status {
	return StatusNotInitialized
}
func (b *Binding) MemcpyHtoD(DevicePtr, unsafe.Pointer, uintptr) Status {
	return StatusNotInitialized
}
func (b *Binding) MemHostRegister(unsafe.Pointer, uintptr, uint32) Status {
	return StatusNotInitialized
}
func (b *Binding) MemHostUnregister(unsafe.Pointer) Status { return StatusNotInitialized }
func (b *Binding) MemHostGetDevicePointer(unsafe.Pointer) (DevicePtr, Status) {
	return 0, StatusNotInitialized
}

// Compile-time interface check
var _ Driver = (*Binding)(nil)
