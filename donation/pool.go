package donation

import "github.com/openaccel/gpubridge"

// Pool is a fixed-capacity arena of Region records. The backing array is
// allocated once and never grows, so record addresses stay stable for the
// pool's whole lifetime — GPU-side code holds raw pointers into it.
//
// Running out of slots is a soft condition: Reserve hands back whatever
// remains, the pool latches into the overflowed state, and downstream
// logic stops issuing regions. It is never treated as corruption.
type Pool struct {
	arena      []Region
	next       int
	overflowed bool
}

// NewPool creates a pool with the given slot capacity (minimum 1).
func NewPool(capacity int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{arena: make([]Region, capacity)}
}

// Capacity returns the fixed slot count.
func (p *Pool) Capacity() int { return len(p.arena) }

// Overflowed reports whether a Reserve call ever asked for more slots
// than the arena had left.
func (p *Pool) Overflowed() bool { return p.overflowed }

// Reserve returns up to count fresh records. When fewer than count slots
// remain it returns the remainder — possibly none — and marks the pool
// overflowed. The cursor never passes the arena bound.
func (p *Pool) Reserve(count int) []*Region {
	if count <= 0 {
		return nil
	}
	avail := len(p.arena) - p.next
	if count > avail {
		gpubridge.Logger().Warn("region pool exhausted",
			"requested", count, "available", avail, "capacity", len(p.arena))
		p.overflowed = true
		count = avail
	}
	out := make([]*Region, count)
	for i := range out {
		out[i] = &p.arena[p.next]
		p.next++
	}
	return out
}

// Issued returns the records handed out so far, in issue order. The
// iteration bound is the cursor, which Reserve keeps clamped to capacity
// even after overflow.
func (p *Pool) Issued() []*Region {
	out := make([]*Region, p.next)
	for i := range out {
		out[i] = &p.arena[i]
	}
	return out
}
