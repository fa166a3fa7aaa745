// Package simheap is a process-local stand-in for the managed runtime's
// heap boundary. It backs the donation package's Heap and Thread
// interfaces with a bump-pointer arena so the donation protocol can be
// exercised end to end without a managed runtime.
package simheap

import (
	"sync"
	"unsafe"

	"github.com/openaccel/gpubridge/donation"
)

// regionAlign keeps handed-out regions 8-byte aligned.
const regionAlign = 8

// Heap is a fixed-size arena carved into allocation regions.
type Heap struct {
	mu   sync.Mutex
	mem  []byte
	next uintptr
	end  uintptr
	zero bool
}

// New maps an arena of the given byte size. zeroRegions mimics the
// runtime configuration flag mandating zero-filled regions.
func New(size int, zeroRegions bool) (*Heap, error) {
	mem, err := mapArena(size)
	if err != nil {
		return nil, err
	}
	base := uintptr(unsafe.Pointer(&mem[0]))
	return &Heap{
		mem:  mem,
		next: base,
		end:  base + uintptr(len(mem)),
		zero: zeroRegions,
	}, nil
}

// Close releases the arena. Outstanding region addresses become invalid.
func (h *Heap) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mem == nil {
		return nil
	}
	err := unmapArena(h.mem)
	h.mem = nil
	h.next, h.end = 0, 0
	return err
}

// AllocateRegion hands out a fresh region, or 0 when the arena is spent.
func (h *Heap) AllocateRegion(bytes uintptr) uintptr {
	h.mu.Lock()
	defer h.mu.Unlock()
	bytes = (bytes + regionAlign - 1) &^ (regionAlign - 1)
	if bytes == 0 || h.next+bytes > h.end {
		return 0
	}
	p := h.next
	h.next += bytes
	return p
}

// MaxAllocatableWithoutGC reports the remaining arena capacity. The
// simulated heap never collects, so the answer is thread-independent.
func (h *Heap) MaxAllocatableWithoutGC(donation.Thread) uintptr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.end - h.next
}

// RestoreParsability records the retirement request on the thread. The
// simulated heap has no object map to repair, so tracking the call is the
// whole behavior.
func (h *Heap) RestoreParsability(t donation.Thread, forceRetire bool) {
	if st, ok := t.(*Thread); ok {
		st.restores++
		if forceRetire {
			st.forcedRetires++
		}
	}
}

// ZeroRegions reports whether regions must be zero-filled by the caller.
func (h *Heap) ZeroRegions() bool { return h.zero }

// Thread simulates one donor thread's allocation-buffer state.
type Thread struct {
	h       *Heap
	start   uintptr
	top     uintptr
	end     uintptr
	desired uintptr
	reserve uintptr

	commits       int
	restores      int
	forcedRetires int
}

// NewThread creates a thread whose sizing heuristic always answers
// desiredRegionSize (zero simulates a degenerate heuristic).
func (h *Heap) NewThread(desiredRegionSize uintptr) *Thread {
	return &Thread{h: h, desired: desiredRegionSize, reserve: 2 * regionAlign}
}

// CurrentRegion returns the thread's active region, all zeros when unset.
func (t *Thread) CurrentRegion() (start, top, end uintptr) {
	return t.start, t.top, t.end
}

// DesiredRegionSize returns the fixed heuristic answer regardless of hint.
func (t *Thread) DesiredRegionSize(uintptr) uintptr { return t.desired }

// CommitRegion installs the region, keeping the alignment reserve free at
// the end the way the runtime's buffer fill does.
func (t *Thread) CommitRegion(start, top, sizeInBytes uintptr) {
	t.start = start
	t.top = top
	if sizeInBytes > t.reserve {
		t.end = start + sizeInBytes - t.reserve
	} else {
		t.end = start
	}
	t.commits++
}

// AlignmentReserve returns the simulated filler reserve.
func (t *Thread) AlignmentReserve() uintptr { return t.reserve }

// Commits returns how many times a region was committed to this thread.
func (t *Thread) Commits() int { return t.commits }

// Restores returns how many parsability restorations this thread saw.
func (t *Thread) Restores() int { return t.restores }

// ForcedRetires returns how many of those restorations forced retirement.
func (t *Thread) ForcedRetires() int { return t.forcedRetires }

// Compile-time interface checks
var (
	_ donation.Heap   = (*Heap)(nil)
	_ donation.Thread = (*Thread)(nil)
)
