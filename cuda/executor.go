package cuda

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"unsafe"

	"github.com/openaccel/gpubridge"
	"github.com/openaccel/gpubridge/internal/dump"
)

// ptrSize is the platform pointer width; object references and device
// pointers occupy one pointer-width slot in the argument buffer.
const ptrSize = unsafe.Sizeof(uintptr(0))

// Options configures the executor's fixed JIT compiler settings.
type Options struct {
	// JITLogBufferSize is the size in bytes of the driver's info-log
	// buffer, captured into CompileError on load failure.
	JITLogBufferSize int
	// MaxRegisters caps per-thread register allocation for the kernel.
	MaxRegisters int
}

// DefaultOptions are the executor defaults.
var DefaultOptions = Options{
	JITLogBufferSize: 1024,
	MaxRegisters:     32,
}

// Kernel is a loaded, launch-ready entry function. It owns the device
// context it was compiled in; ExecuteKernel destroys that context on every
// exit path, so a Kernel is good for exactly one execution cycle.
type Kernel struct {
	fn    Function
	mod   Module
	ctx   Context
	entry string
}

// Handle returns the opaque driver function handle.
func (k *Kernel) Handle() Function { return k.fn }

// Entry returns the entry-point name the kernel was resolved from.
func (k *Kernel) Entry() string { return k.entry }

// Executor drives the launch / synchronize / result-retrieval state
// machine for one session. The host goroutine runs it synchronously: once
// a kernel is launched, the executor blocks in synchronize until the
// driver reports completion. There is no cancellation or timeout.
type Executor struct {
	session *Session
	drv     Driver
	opts    Options
}

// NewExecutor creates an executor with DefaultOptions.
func NewExecutor(s *Session) *Executor {
	return NewExecutorWithOptions(s, DefaultOptions)
}

// NewExecutorWithOptions creates an executor with explicit JIT settings.
// Zero option fields fall back to the defaults.
func NewExecutorWithOptions(s *Session, opts Options) *Executor {
	if opts.JITLogBufferSize <= 0 {
		opts.JITLogBufferSize = DefaultOptions.JITLogBufferSize
	}
	if opts.MaxRegisters <= 0 {
		opts.MaxRegisters = DefaultOptions.MaxRegisters
	}
	return &Executor{session: s, drv: s.Driver(), opts: opts}
}

// GenerateKernel creates a context on the session's device, loads the
// kernel image through the driver's online compiler, and resolves the
// named entry function.
//
// Driver failures before compilation surface as *DriverCallError; load and
// resolution failures surface as *CompileError, with Unsupported set when
// the driver produced no binary for this GPU architecture. The context is
// released on every failure path.
func (e *Executor) GenerateKernel(code []byte, entry string) (*Kernel, error) {
	log := gpubridge.Logger()

	ctx, st := e.drv.CtxCreate(ctxMapHost, e.session.Device())
	if !st.OK() {
		return nil, &DriverCallError{Op: "cuCtxCreate", Code: st}
	}
	if st := e.drv.CtxSetCurrent(ctx); !st.OK() {
		_ = e.drv.CtxDestroy(ctx)
		return nil, &DriverCallError{Op: "cuCtxSetCurrent", Code: st}
	}

	log.Debug("loading kernel", "entry", entry, "imageBytes", len(code))

	// Fixed three-option JIT configuration: info-log size, info-log
	// buffer, register cap.
	logBuf := make([]byte, e.opts.JITLogBufferSize)
	options := []JITOption{
		{Code: jitInfoLogBufferSizeBytes, Value: uintptr(e.opts.JITLogBufferSize)},
		{Code: jitInfoLogBuffer, Value: uintptr(unsafe.Pointer(&logBuf[0]))},
		{Code: jitMaxRegisters, Value: uintptr(e.opts.MaxRegisters)},
	}

	mod, st := e.drv.ModuleLoadDataEx(code, options)
	runtime.KeepAlive(logBuf)
	if !st.OK() {
		_ = e.drv.CtxDestroy(ctx)
		return nil, &CompileError{
			Entry:       entry,
			Code:        st,
			Log:         cString(logBuf),
			Unsupported: st == StatusNoBinaryForGPU,
		}
	}

	fn, st := e.drv.ModuleGetFunction(mod, entry)
	if !st.OK() {
		_ = e.drv.CtxDestroy(ctx)
		return nil, &CompileError{Entry: entry, Code: st, Log: cString(logBuf)}
	}

	log.Debug("kernel loaded", "entry", entry)
	return &Kernel{fn: fn, mod: mod, ctx: ctx, entry: entry}, nil
}

// ExecuteKernel launches k with grid (1,1,1) and the given block
// dimensions, blocks until the kernel completes, and returns the raw
// return-value bits copied back from the device.
//
// encodedReturnTypeSize carries the return type: 0 for void (no device
// return buffer is allocated or freed), a positive byte size for
// primitives (4 for int/bool/float, 8 for long/double), and a negative
// value for an object reference of magnitude -encodedReturnTypeSize.
// For non-void returns the trailing pointer-width slot of argBuf receives
// the device return-buffer address before launch.
//
// Every step can fail independently; the first failure short-circuits the
// rest, but the device return buffer and the kernel's context are released
// on every exit path before the error surfaces.
func (e *Executor) ExecuteKernel(k *Kernel, argBuf []byte, encodedReturnTypeSize int, block Dim3) (int64, error) {
	if k == nil || k.fn == 0 {
		return 0, ErrNilKernel
	}

	returnSize := encodedReturnTypeSize
	if returnSize < 0 {
		returnSize = -returnSize
	}
	if returnSize > 8 && returnSize != int(ptrSize) {
		return 0, ErrInvalidReturnSize
	}

	log := gpubridge.Logger()
	if log.Enabled(context.Background(), slog.LevelDebug) {
		for _, line := range dump.Lines(argBuf) {
			log.Debug("argument buffer", "view", line)
		}
	}

	var retBuf DevicePtr
	// release frees whatever the managed caller cannot know about. Called
	// on every exit path, success included.
	release := func() {
		if retBuf != 0 {
			if st := e.drv.MemFree(retBuf); !st.OK() {
				log.Warn("failed to free device return buffer", "status", st)
			}
			retBuf = 0
		}
		if st := e.drv.CtxDestroy(k.ctx); !st.OK() {
			log.Warn("failed to destroy context", "status", st)
		}
	}
	fail := func(op string, st Status) (int64, error) {
		release()
		return 0, &DriverCallError{Op: op, Code: st}
	}

	if st := e.drv.CtxSetCurrent(k.ctx); !st.OK() {
		return fail("cuCtxSetCurrent", st)
	}

	if returnSize != 0 {
		if len(argBuf) < int(ptrSize) {
			release()
			return 0, ErrArgBufferTooSmall
		}
		var st Status
		retBuf, st = e.drv.MemAlloc(uintptr(returnSize))
		if !st.OK() {
			return fail("cuMemAlloc", st)
		}
		// The buffer layout reserves its final pointer-width slot for the
		// device return-value address.
		*(*uintptr)(unsafe.Pointer(&argBuf[len(argBuf)-int(ptrSize)])) = uintptr(retBuf)
	}

	var argPtr unsafe.Pointer
	if len(argBuf) > 0 {
		argPtr = unsafe.Pointer(&argBuf[0])
	}
	st := e.drv.LaunchKernel(k.fn, OneDim, block, 0, 0, argPtr, uintptr(len(argBuf)))
	runtime.KeepAlive(argBuf)
	if !st.OK() {
		return fail("cuLaunchKernel", st)
	}
	log.Debug("kernel launched", "entry", k.entry,
		"blockX", block.X, "blockY", block.Y, "blockZ", block.Z)

	// Blocking wait; the GPU owns the donated regions until this returns.
	if st := e.drv.CtxSynchronize(); !st.OK() {
		return fail("cuCtxSynchronize", st)
	}

	var ret int64
	if returnSize != 0 {
		if st := e.drv.MemcpyDtoH(unsafe.Pointer(&ret), retBuf, uintptr(returnSize)); !st.OK() {
			return fail("cuMemcpyDtoH", st)
		}
		freed := retBuf
		retBuf = 0
		if st := e.drv.MemFree(freed); !st.OK() {
			return fail("cuMemFree", st)
		}
	}

	if st := e.drv.CtxDestroy(k.ctx); !st.OK() {
		return 0, &DriverCallError{Op: "cuCtxDestroy", Code: st}
	}

	log.Debug("kernel completed", "entry", k.entry, "returnBits", ret)
	return ret, nil
}

// ReturnKind describes the typed return slot of a kernel for ExecuteWarp.
type ReturnKind int

const (
	ReturnVoid ReturnKind = iota
	ReturnInt
	ReturnBoolean
	ReturnFloat
	ReturnDouble
	ReturnLong
	ReturnObject
)

// size returns the device return-slot byte size for the kind.
func (rk ReturnKind) size() int {
	switch rk {
	case ReturnVoid:
		return 0
	case ReturnInt, ReturnBoolean, ReturnFloat:
		return 4
	case ReturnDouble, ReturnLong:
		return 8
	case ReturnObject:
		return int(ptrSize)
	default:
		return 0
	}
}

// Value is a typed kernel return value.
type Value struct {
	kind ReturnKind
	bits int64
}

// Kind returns the value's return kind.
func (v Value) Kind() ReturnKind { return v.kind }

// Int returns the value as a 32-bit integer.
func (v Value) Int() int32 { return int32(v.bits) }

// Bool returns the value as a boolean.
func (v Value) Bool() bool { return v.bits != 0 }

// Float returns the value as a 32-bit float.
func (v Value) Float() float32 { return math.Float32frombits(uint32(v.bits)) }

// Double returns the value as a 64-bit float.
func (v Value) Double() float64 { return math.Float64frombits(uint64(v.bits)) }

// Long returns the value as a 64-bit integer.
func (v Value) Long() int64 { return v.bits }

// Ref returns the value as a raw object-reference address. Handle
// resolution is the caller's concern.
func (v Value) Ref() uintptr { return uintptr(v.bits) }

// ExecuteWarp runs k with explicit thread dimensionality and a typed
// return slot, decoding the copied-back bits per kind.
func (e *Executor) ExecuteWarp(block Dim3, k *Kernel, argBuf []byte, kind ReturnKind) (Value, error) {
	encoded := kind.size()
	if kind == ReturnObject {
		encoded = -encoded
	}
	bits, err := e.ExecuteKernel(k, argBuf, encoded, block)
	if err != nil {
		return Value{}, err
	}
	return Value{kind: kind, bits: bits}, nil
}

// cString returns the leading NUL-terminated portion of buf.
func cString(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}
