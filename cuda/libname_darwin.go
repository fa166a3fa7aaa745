//go:build darwin

package cuda

// CUDA toolkit install location on macOS.
var driverLibraryNames = []string{"/usr/local/cuda/lib/libcuda.dylib"}
