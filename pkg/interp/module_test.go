package interp

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llguy/voxsync/pkg/game"
)

const interval = float32(0.05)

func at(x float32) Snapshot {
	return Snapshot{
		Position:      mgl32.Vec3{x, 0, 0},
		ViewDirection: mgl32.Vec3{0, 0, -1},
		UpVector:      mgl32.Vec3{0, 1, 0},
	}
}

func TestNeedsThreeSnapshots(t *testing.T) {
	interpolator := New(8, interval)
	interpolator.Push(at(0))
	interpolator.Push(at(1))

	latest, ok := interpolator.Advance(0.01)
	assert.False(t, ok)
	assert.Equal(t, at(1), latest)

	interpolator.Push(at(2))
	_, ok = interpolator.Advance(0.01)
	assert.True(t, ok)
}

func TestBlendHalfway(t *testing.T) {
	interpolator := New(8, interval)
	for i := 0; i < 3; i++ {
		interpolator.Push(at(float32(i)))
	}

	snapshot, ok := interpolator.Advance(interval / 2)
	require.True(t, ok)
	assert.InDelta(t, 0.5, snapshot.Position[0], 1e-5)
	assert.InDelta(t, 0.5, interpolator.Progression(), 1e-5)
}

func TestProgressionAfterStall(t *testing.T) {
	for _, elapsed := range []float32{0, 0.01, 0.05, 0.051, 0.1, 0.37, 1, 12.34} {
		interpolator := New(16, interval)
		for i := 0; i < 10; i++ {
			interpolator.Push(at(float32(i)))
		}

		_, ok := interpolator.Advance(elapsed)
		require.True(t, ok)
		assert.GreaterOrEqual(t, interpolator.Progression(), float32(0), "elapsed %v", elapsed)
		assert.Less(t, interpolator.Progression(), float32(1), "elapsed %v", elapsed)
		assert.GreaterOrEqual(t, interpolator.Buffered(), 2)
	}
}

func TestStallSkipsSnapshots(t *testing.T) {
	interpolator := New(16, interval)
	for i := 0; i < 10; i++ {
		interpolator.Push(at(float32(i)))
	}

	snapshot, ok := interpolator.Advance(interval * 3.5)
	require.True(t, ok)
	assert.Equal(t, 7, interpolator.Buffered())
	assert.InDelta(t, 3.5, snapshot.Position[0], 1e-4)
}

func TestLongStallKeepsTwo(t *testing.T) {
	interpolator := New(8, interval)
	for i := 0; i < 4; i++ {
		interpolator.Push(at(float32(i)))
	}

	snapshot, ok := interpolator.Advance(interval * 20.25)
	require.True(t, ok)
	assert.Equal(t, 2, interpolator.Buffered())
	assert.InDelta(t, 2.25, snapshot.Position[0], 1e-3)
}

func TestBlendDirections(t *testing.T) {
	before := Snapshot{ViewDirection: mgl32.Vec3{1, 0, 0}, UpVector: mgl32.Vec3{0, 1, 0}, Alive: game.Alive}
	after := Snapshot{ViewDirection: mgl32.Vec3{0, 1, 0}, UpVector: mgl32.Vec3{0, 1, 0}, Alive: game.Dead}

	blended := Blend(before, after, 0.5)
	assert.InDelta(t, 1, blended.ViewDirection.Len(), 1e-6)
	assert.InDelta(t, blended.ViewDirection[0], blended.ViewDirection[1], 1e-6)
	assert.Equal(t, game.Alive, blended.Alive)
}
