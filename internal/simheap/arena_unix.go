//go:build linux || darwin || freebsd

package simheap

import "golang.org/x/sys/unix"

// mapArena reserves the heap as an anonymous private mapping so region
// addresses are stable and outside the Go heap — the records handed to
// GPU-side code must never move under the garbage collector.
func mapArena(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
}

func unmapArena(mem []byte) error {
	return unix.Munmap(mem)
}
