package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingPushDropsWhenFull(t *testing.T) {
	ring := NewRing[int](3)
	require.True(t, ring.Push(1))
	require.True(t, ring.Push(2))
	require.True(t, ring.Push(3))
	assert.False(t, ring.Push(4))
	assert.Equal(t, []int{1, 2, 3}, ring.Drain())
	assert.Equal(t, 0, ring.Len())
}

func TestRingForceEvictsOldest(t *testing.T) {
	ring := NewRing[int](2)
	ring.Force(1)
	ring.Force(2)
	ring.Force(3)

	first, ok := ring.Peek()
	require.True(t, ok)
	assert.Equal(t, 2, first)
	last, ok := ring.At(1)
	require.True(t, ok)
	assert.Equal(t, 3, last)
}

func TestRingWrapAround(t *testing.T) {
	ring := NewRing[int](3)
	for i := 0; i < 10; i++ {
		ring.Force(i)
	}
	assert.Equal(t, 3, ring.Len())
	assert.Equal(t, []int{7, 8, 9}, ring.Drain())
}

func TestRingSkip(t *testing.T) {
	ring := NewRing[int](4)
	ring.Push(1)
	ring.Push(2)
	ring.Push(3)

	assert.Equal(t, 2, ring.Skip(2))
	assert.Equal(t, 1, ring.Skip(5))
	_, ok := ring.Pop()
	assert.False(t, ok)
}

func TestRingSet(t *testing.T) {
	ring := NewRing[int](2)
	ring.Push(1)
	assert.True(t, ring.Set(0, 5))
	assert.False(t, ring.Set(1, 5))
	value, _ := ring.At(0)
	assert.Equal(t, 5, value)
}
