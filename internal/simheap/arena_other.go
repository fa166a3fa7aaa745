//go:build !linux && !darwin && !freebsd

package simheap

// Platforms without mmap get a plain heap allocation. Addresses are still
// stable because the slice is held for the arena's lifetime.
func mapArena(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func unmapArena([]byte) error { return nil }
