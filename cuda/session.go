package cuda

import (
	"context"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/openaccel/gpubridge"
)

// deviceNameMax bounds the buffer passed to cuDeviceGetName.
const deviceNameMax = 256

// Session owns device discovery and capability queries for one driver
// binding. Construction is all-or-nothing: any driver call failure aborts
// initialization and no partial state is retained.
type Session struct {
	drv               Driver
	dev               Device
	name              string
	unifiedAddressing bool
}

// NewSession initializes the driver, enumerates devices, and selects the
// device at ordinal 0. There is no multi-GPU selection policy.
//
// Fails with *NoDeviceError when zero devices are reported and with
// *DriverCallError when any driver call returns a non-success status.
func NewSession(drv Driver) (*Session, error) {
	if st := drv.Init(0); !st.OK() {
		return nil, &DriverCallError{Op: "cuInit", Code: st}
	}

	count, st := drv.DeviceGetCount()
	if !st.OK() {
		return nil, &DriverCallError{Op: "cuDeviceGetCount", Code: st}
	}
	if count == 0 {
		return nil, &NoDeviceError{}
	}
	gpubridge.Logger().Debug("compute-capable devices found", "count", count)

	dev, st := drv.DeviceGet(0)
	if !st.OK() {
		return nil, &DriverCallError{Op: "cuDeviceGet", Code: st}
	}

	unified, st := drv.DeviceGetAttribute(AttrUnifiedAddressing, dev)
	if !st.OK() {
		return nil, &DriverCallError{Op: "cuDeviceGetAttribute", Code: st}
	}

	name, st := drv.DeviceGetName(dev, deviceNameMax)
	if !st.OK() {
		return nil, &DriverCallError{Op: "cuDeviceGetName", Code: st}
	}

	gpubridge.Logger().Info("cuda device selected",
		"device", int32(dev), "name", name, "unifiedAddressing", unified != 0)

	return &Session{
		drv:               drv,
		dev:               dev,
		name:              name,
		unifiedAddressing: unified != 0,
	}, nil
}

// Driver returns the binding this session was built on.
func (s *Session) Driver() Driver { return s.drv }

// Device returns the selected device handle.
func (s *Session) Device() Device { return s.dev }

// Name returns the selected device's reported name.
func (s *Session) Name() string { return s.name }

// UnifiedAddressing reports whether the device shares an address space
// with the host.
func (s *Session) UnifiedAddressing() bool { return s.unifiedAddressing }

// coresPerMultiprocessor maps a (major, minor) compute-capability pair to
// the architecture's cores per multiprocessor. Unknown pairs yield 0 with
// a warning; this is advisory telemetry, never a failure.
//
// See http://en.wikipedia.org/wiki/CUDA#Supported_GPUs
func coresPerMultiprocessor(major, minor int32) int {
	switch major<<4 | minor {
	case 0x10, 0x11, 0x12, 0x13:
		return 8
	case 0x20:
		return 32
	case 0x21:
		return 48
	case 0x30, 0x35:
		return 192
	default:
		gpubridge.Logger().Warn("unhandled device compute capability",
			"major", major, "minor", minor)
		return 0
	}
}

// TotalCores computes the device's core count from its multiprocessor
// count and compute capability. Diagnostic only: any attribute query
// failure yields 0, and nothing else depends on the result.
func (s *Session) TotalCores() int {
	log := gpubridge.Logger()

	minor, st := s.drv.DeviceGetAttribute(AttrComputeCapabilityMinor, s.dev)
	if !st.OK() {
		log.Warn("failed to query compute capability minor", "device", int32(s.dev), "status", st)
		return 0
	}
	major, st := s.drv.DeviceGetAttribute(AttrComputeCapabilityMajor, s.dev)
	if !st.OK() {
		log.Warn("failed to query compute capability major", "device", int32(s.dev), "status", st)
		return 0
	}
	nmp, st := s.drv.DeviceGetAttribute(AttrMultiprocessorCount, s.dev)
	if !st.OK() {
		log.Warn("failed to query multiprocessor count", "device", int32(s.dev), "status", st)
		return 0
	}

	total := int(nmp) * coresPerMultiprocessor(major, minor)

	// Extra attribute diagnostics, traced but otherwise unused.
	if log.Enabled(context.Background(), slog.LevelDebug) {
		maxThreads, _ := s.drv.DeviceGetAttribute(AttrMaxThreadsPerBlock, s.dev)
		warpSize, _ := s.drv.DeviceGetAttribute(AttrWarpSize, s.dev)
		asyncEngines, _ := s.drv.DeviceGetAttribute(AttrAsyncEngineCount, s.dev)
		canMapHost, _ := s.drv.DeviceGetAttribute(AttrCanMapHostMemory, s.dev)
		concurrent, _ := s.drv.DeviceGetAttribute(AttrConcurrentKernels, s.dev)
		log.Debug("device capabilities",
			"device", int32(s.dev),
			"computeCapability", fmt.Sprintf("%d.%d", major, minor),
			"cores", total,
			"maxThreadsPerBlock", maxThreads,
			"warpSize", warpSize,
			"asyncEngines", asyncEngines,
			"canMapHostMemory", canMapHost != 0,
			"concurrentKernels", concurrent != 0)
	}

	return total
}

// PinHostMemory registers buf as page-locked with the driver and returns
// the device pointer through which kernels can address it.
func (s *Session) PinHostMemory(buf []byte) (DevicePtr, error) {
	if len(buf) == 0 {
		return 0, &DriverCallError{Op: "cuMemHostRegister", Code: StatusInvalidValue}
	}
	p := unsafe.Pointer(&buf[0])
	if st := s.drv.MemHostRegister(p, uintptr(len(buf)), 0); !st.OK() {
		return 0, &DriverCallError{Op: "cuMemHostRegister", Code: st}
	}
	dptr, st := s.drv.MemHostGetDevicePointer(p)
	if !st.OK() {
		// Unregister so a failed pin leaves no driver-side state behind.
		_ = s.drv.MemHostUnregister(p)
		return 0, &DriverCallError{Op: "cuMemHostGetDevicePointer", Code: st}
	}
	return dptr, nil
}

// UnpinHostMemory releases a registration made by PinHostMemory.
func (s *Session) UnpinHostMemory(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if st := s.drv.MemHostUnregister(unsafe.Pointer(&buf[0])); !st.OK() {
		return &DriverCallError{Op: "cuMemHostUnregister", Code: st}
	}
	return nil
}
