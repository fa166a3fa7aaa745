//go:build linux

package cuda

// Canonical driver library names, tried in order. Driver packages install
// the versioned SONAME; the bare .so is only present with dev packages.
var driverLibraryNames = []string{"libcuda.so.1", "libcuda.so"}
