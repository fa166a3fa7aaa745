package cuda

import (
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, drv *fakeDriver) *Executor {
	t.Helper()
	s, err := NewSession(drv)
	require.NoError(t, err)
	return NewExecutor(s)
}

const testEntry = "vectorAdd"

var testImage = []byte(".version 3.0\n.target sm_30\n.entry vectorAdd {}\n")

// TestGenerateKernel_Success checks the context/module/function sequence
// and the fixed three-option JIT configuration.
func TestGenerateKernel_Success(t *testing.T) {
	drv := newFakeDriver()
	e := newTestExecutor(t, drv)
	drv.calls = nil

	k, err := e.GenerateKernel(testImage, testEntry)
	require.NoError(t, err)
	assert.Equal(t, testEntry, k.Entry())
	assert.NotZero(t, k.Handle())

	assert.Equal(t, []string{
		"cuCtxCreate", "cuCtxSetCurrent", "cuModuleLoadDataEx", "cuModuleGetFunction",
	}, drv.calls)

	require.Len(t, drv.jitOptions, 3, "fixed three-option JIT config")
	assert.Equal(t, jitInfoLogBufferSizeBytes, drv.jitOptions[0].Code)
	assert.Equal(t, uintptr(1024), drv.jitOptions[0].Value)
	assert.Equal(t, jitInfoLogBuffer, drv.jitOptions[1].Code)
	assert.NotZero(t, drv.jitOptions[1].Value)
	assert.Equal(t, jitMaxRegisters, drv.jitOptions[2].Code)
	assert.Equal(t, uintptr(32), drv.jitOptions[2].Value)
}

// TestGenerateKernel_UnsupportedArchitecture checks the distinguished
// "no binary for this GPU" compile failure, with the JIT log captured and
// the context released.
func TestGenerateKernel_UnsupportedArchitecture(t *testing.T) {
	drv := newFakeDriver()
	drv.failOp["cuModuleLoadDataEx"] = StatusNoBinaryForGPU
	drv.jitLog = "ptxas fatal: unsupported target"
	e := newTestExecutor(t, drv)

	_, err := e.GenerateKernel(testImage, testEntry)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Unsupported)
	assert.Equal(t, StatusNoBinaryForGPU, ce.Code)
	assert.Contains(t, ce.Log, "unsupported target")
	assert.Equal(t, drv.ctxCreates, drv.ctxDestroys, "context released on failure")
}

// TestGenerateKernel_EntryResolutionFailure maps a missing entry point to
// CompileError and releases the context.
func TestGenerateKernel_EntryResolutionFailure(t *testing.T) {
	drv := newFakeDriver()
	drv.failOp["cuModuleGetFunction"] = StatusNotFound
	e := newTestExecutor(t, drv)

	_, err := e.GenerateKernel(testImage, "missing")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.False(t, ce.Unsupported)
	assert.Equal(t, drv.ctxCreates, drv.ctxDestroys)
}

// TestGenerateKernel_ContextFailure maps context-creation failure to a
// DriverCallError with nothing to release.
func TestGenerateKernel_ContextFailure(t *testing.T) {
	drv := newFakeDriver()
	drv.failOp["cuCtxCreate"] = StatusOutOfMemory
	e := newTestExecutor(t, drv)

	_, err := e.GenerateKernel(testImage, testEntry)
	var dce *DriverCallError
	require.ErrorAs(t, err, &dce)
	assert.Equal(t, "cuCtxCreate", dce.Op)
	assert.Zero(t, drv.ctxDestroys)
}

// TestExecuteKernel_VoidReturn: void kernels never touch device memory
// for a return slot.
func TestExecuteKernel_VoidReturn(t *testing.T) {
	drv := newFakeDriver()
	e := newTestExecutor(t, drv)
	k, err := e.GenerateKernel(testImage, testEntry)
	require.NoError(t, err)

	ret, err := e.ExecuteKernel(k, make([]byte, 16), 0, OneDim)
	require.NoError(t, err)
	assert.Zero(t, ret)

	assert.Zero(t, drv.memAllocs, "void return must not allocate a device buffer")
	assert.Zero(t, drv.memFrees, "void return must not free a device buffer")
	assert.Equal(t, 1, drv.launches)
	assert.Equal(t, drv.ctxCreates, drv.ctxDestroys, "context destroyed after execution")
}

// TestExecuteKernel_IntReturn checks the full seven-step cycle: return
// slot allocation, pointer patching, launch, synchronize, copy-back,
// free, teardown.
func TestExecuteKernel_IntReturn(t *testing.T) {
	drv := newFakeDriver()
	drv.copyBits = 42
	e := newTestExecutor(t, drv)
	k, err := e.GenerateKernel(testImage, testEntry)
	require.NoError(t, err)
	drv.calls = nil

	argBuf := make([]byte, 24)
	ret, err := e.ExecuteKernel(k, argBuf, 4, Dim3{X: 8, Y: 1, Z: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(42), ret)

	assert.Equal(t, []string{
		"cuCtxSetCurrent", "cuMemAlloc", "cuLaunchKernel",
		"cuCtxSynchronize", "cuMemcpyDtoH", "cuMemFree", "cuCtxDestroy",
	}, drv.calls, "execution step order")

	// The trailing pointer-width slot received the device return address.
	slot := *(*uintptr)(unsafe.Pointer(&argBuf[len(argBuf)-int(ptrSize)]))
	assert.NotZero(t, slot)

	assert.Equal(t, OneDim, drv.lastGrid, "grid is fixed at (1,1,1)")
	assert.Equal(t, Dim3{X: 8, Y: 1, Z: 1}, drv.lastBlock)
	assert.Equal(t, uintptr(len(argBuf)), drv.lastArgSize)
}

// TestExecuteKernel_ObjectReturn: negative encoded size means an object
// reference of that magnitude.
func TestExecuteKernel_ObjectReturn(t *testing.T) {
	drv := newFakeDriver()
	drv.copyBits = 0x7f00_0bad_cafe
	e := newTestExecutor(t, drv)
	k, err := e.GenerateKernel(testImage, testEntry)
	require.NoError(t, err)

	ret, err := e.ExecuteKernel(k, make([]byte, 16), -int(ptrSize), OneDim)
	require.NoError(t, err)
	assert.Equal(t, int64(0x7f00_0bad_cafe), ret)
	assert.Equal(t, 1, drv.memAllocs)
	assert.Equal(t, 1, drv.memFrees)
}

// TestExecuteKernel_FailureRelease: whichever step fails, the device
// return buffer and the context are released before the error surfaces.
func TestExecuteKernel_FailureRelease(t *testing.T) {
	steps := []struct {
		op        string
		wantFrees int // cuMemFree successes expected during cleanup
	}{
		{"cuLaunchKernel", 1},
		{"cuCtxSynchronize", 1},
		{"cuMemcpyDtoH", 1},
	}
	for _, tc := range steps {
		t.Run(tc.op, func(t *testing.T) {
			drv := newFakeDriver()
			drv.failOp[tc.op] = StatusLaunchFailed
			e := newTestExecutor(t, drv)
			k, err := e.GenerateKernel(testImage, testEntry)
			require.NoError(t, err)

			_, err = e.ExecuteKernel(k, make([]byte, 16), 8, OneDim)
			require.Error(t, err)

			var dce *DriverCallError
			require.ErrorAs(t, err, &dce)
			assert.Equal(t, tc.op, dce.Op)
			assert.Equal(t, StatusLaunchFailed, dce.Code)

			assert.Equal(t, tc.wantFrees, drv.memFrees, "return buffer freed")
			assert.Equal(t, drv.ctxCreates, drv.ctxDestroys, "context destroyed")
		})
	}
}

// TestExecuteKernel_LaunchFailureShortCircuits: after a failed launch no
// further execution steps run.
func TestExecuteKernel_LaunchFailureShortCircuits(t *testing.T) {
	drv := newFakeDriver()
	drv.failOp["cuLaunchKernel"] = StatusInvalidValue
	e := newTestExecutor(t, drv)
	k, err := e.GenerateKernel(testImage, testEntry)
	require.NoError(t, err)

	_, err = e.ExecuteKernel(k, make([]byte, 16), 0, OneDim)
	require.Error(t, err)
	assert.Zero(t, drv.callCount("cuCtxSynchronize"))
	assert.Zero(t, drv.callCount("cuMemcpyDtoH"))
}

func TestExecuteKernel_NilKernel(t *testing.T) {
	drv := newFakeDriver()
	e := newTestExecutor(t, drv)

	_, err := e.ExecuteKernel(nil, make([]byte, 16), 0, OneDim)
	require.ErrorIs(t, err, ErrNilKernel)
}

func TestExecuteKernel_ArgBufferTooSmall(t *testing.T) {
	drv := newFakeDriver()
	e := newTestExecutor(t, drv)
	k, err := e.GenerateKernel(testImage, testEntry)
	require.NoError(t, err)

	_, err = e.ExecuteKernel(k, make([]byte, 2), 4, OneDim)
	require.ErrorIs(t, err, ErrArgBufferTooSmall)
	assert.Equal(t, drv.ctxCreates, drv.ctxDestroys, "context destroyed on usage error")
}

// TestExecuteWarp_TypedReturns decodes the copied-back bits per kind.
func TestExecuteWarp_TypedReturns(t *testing.T) {
	t.Run("float", func(t *testing.T) {
		drv := newFakeDriver()
		drv.copyBits = int64(math.Float32bits(1.5))
		e := newTestExecutor(t, drv)
		k, err := e.GenerateKernel(testImage, testEntry)
		require.NoError(t, err)

		v, err := e.ExecuteWarp(Dim3{X: 4, Y: 1, Z: 1}, k, make([]byte, 16), ReturnFloat)
		require.NoError(t, err)
		assert.Equal(t, ReturnFloat, v.Kind())
		assert.Equal(t, float32(1.5), v.Float())
	})

	t.Run("double", func(t *testing.T) {
		drv := newFakeDriver()
		drv.copyBits = int64(math.Float64bits(2.25))
		e := newTestExecutor(t, drv)
		k, err := e.GenerateKernel(testImage, testEntry)
		require.NoError(t, err)

		v, err := e.ExecuteWarp(OneDim, k, make([]byte, 16), ReturnDouble)
		require.NoError(t, err)
		assert.Equal(t, 2.25, v.Double())
	})

	t.Run("boolean", func(t *testing.T) {
		drv := newFakeDriver()
		drv.copyBits = 1
		e := newTestExecutor(t, drv)
		k, err := e.GenerateKernel(testImage, testEntry)
		require.NoError(t, err)

		v, err := e.ExecuteWarp(OneDim, k, make([]byte, 16), ReturnBoolean)
		require.NoError(t, err)
		assert.True(t, v.Bool())
	})

	t.Run("void", func(t *testing.T) {
		drv := newFakeDriver()
		e := newTestExecutor(t, drv)
		k, err := e.GenerateKernel(testImage, testEntry)
		require.NoError(t, err)

		v, err := e.ExecuteWarp(OneDim, k, make([]byte, 16), ReturnVoid)
		require.NoError(t, err)
		assert.Equal(t, ReturnVoid, v.Kind())
		assert.Zero(t, drv.memAllocs)
	})
}

// TestExecutorOptions_Defaults: zero option fields fall back to defaults.
func TestExecutorOptions_Defaults(t *testing.T) {
	drv := newFakeDriver()
	s, err := NewSession(drv)
	require.NoError(t, err)

	e := NewExecutorWithOptions(s, Options{})
	assert.Equal(t, DefaultOptions.JITLogBufferSize, e.opts.JITLogBufferSize)
	assert.Equal(t, DefaultOptions.MaxRegisters, e.opts.MaxRegisters)

	e = NewExecutorWithOptions(s, Options{JITLogBufferSize: 4096, MaxRegisters: 64})
	assert.Equal(t, 4096, e.opts.JITLogBufferSize)
	assert.Equal(t, 64, e.opts.MaxRegisters)
}
