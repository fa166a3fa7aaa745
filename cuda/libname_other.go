//go:build !linux && !darwin

package cuda

// No canonical driver library on this platform; Bind always fails.
var driverLibraryNames []string
