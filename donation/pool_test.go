package donation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPool_ReserveWithinCapacity checks plain issuance.
func TestPool_ReserveWithinCapacity(t *testing.T) {
	p := NewPool(4)
	assert.Equal(t, 4, p.Capacity())

	first := p.Reserve(2)
	require.Len(t, first, 2)
	second := p.Reserve(2)
	require.Len(t, second, 2)
	assert.False(t, p.Overflowed())

	assert.NotSame(t, first[0], first[1], "records must be distinct slots")
	assert.NotSame(t, first[1], second[0])
}

// TestPool_Overflow: over-reserving returns exactly the remaining slots,
// latches the overflowed state, and never returns an out-of-bounds record.
func TestPool_Overflow(t *testing.T) {
	p := NewPool(3)

	got := p.Reserve(2)
	require.Len(t, got, 2)
	assert.False(t, p.Overflowed())

	got = p.Reserve(5)
	assert.Len(t, got, 1, "only one slot remained")
	assert.True(t, p.Overflowed())

	got = p.Reserve(1)
	assert.Empty(t, got, "an exhausted pool issues nothing")
	assert.True(t, p.Overflowed())

	assert.Len(t, p.Issued(), 3, "iteration bound clamps at capacity")
}

// TestPool_StableAddresses: Issued returns the same records Reserve
// handed out — GPU-side code keeps raw pointers into the arena.
func TestPool_StableAddresses(t *testing.T) {
	p := NewPool(3)
	reserved := p.Reserve(3)
	issued := p.Issued()
	require.Len(t, issued, 3)
	for i := range reserved {
		assert.Same(t, reserved[i], issued[i], "slot %d moved", i)
	}
}

// TestPool_MinimumCapacity: degenerate capacities clamp to one slot.
func TestPool_MinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, NewPool(0).Capacity())
	assert.Equal(t, 1, NewPool(-5).Capacity())
}

// TestPool_ReserveNonPositive is a no-op.
func TestPool_ReserveNonPositive(t *testing.T) {
	p := NewPool(2)
	assert.Nil(t, p.Reserve(0))
	assert.Nil(t, p.Reserve(-1))
	assert.False(t, p.Overflowed())
	assert.Empty(t, p.Issued())
}
