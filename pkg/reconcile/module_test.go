package reconcile

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llguy/voxsync/pkg/game"
	"github.com/llguy/voxsync/pkg/terrain"
)

func state() game.State {
	return game.State{
		Position:      mgl32.Vec3{1, 2, 3},
		ViewDirection: mgl32.Vec3{0, 0, -1},
		UpVector:      mgl32.Vec3{0, 1, 0},
		Velocity:      mgl32.Vec3{0.5, 0, 0},
		Mode:          game.ModeStanding,
	}
}

func TestExactMatchNeverCorrects(t *testing.T) {
	tracker := Tracker{}
	for i := 0; i < 10; i++ {
		diverged := NeedsStateCorrection(state(), state(), DefaultEpsilon)
		assert.False(t, diverged)
		assert.Equal(t, Decision{}, tracker.Evaluate(diverged))
		assert.Equal(t, Normal, tracker.State())
	}
}

func TestDivergenceDetection(t *testing.T) {
	reported := state()
	reported.Position[1] += 1e-3
	assert.True(t, NeedsStateCorrection(state(), reported, DefaultEpsilon))
	assert.False(t, NeedsStateCorrection(state(), reported, 1e-2))

	reported = state()
	reported.Mode = game.ModeBall
	assert.True(t, NeedsStateCorrection(state(), reported, 1))

	reported = state()
	reported.Alive = game.Dead
	assert.True(t, NeedsStateCorrection(state(), reported, 1))

	// Surface normal and next spawn are not compared.
	reported = state()
	reported.SurfaceNormal = mgl32.Vec3{1, 0, 0}
	assert.False(t, NeedsStateCorrection(state(), reported, DefaultEpsilon))
}

func TestCorrectionIssuedOnce(t *testing.T) {
	tracker := Tracker{}

	assert.Equal(t, Decision{Correct: true}, tracker.Evaluate(true))
	assert.False(t, tracker.Accepting())

	assert.Equal(t, Decision{Waiting: true}, tracker.Evaluate(true))
	assert.Equal(t, Decision{Waiting: true}, tracker.Evaluate(false))
	assert.Equal(t, AwaitingCorrection, tracker.State())

	assert.True(t, tracker.Acknowledge())
	assert.True(t, tracker.Accepting())
	assert.False(t, tracker.Acknowledge())
	assert.Equal(t, Decision{}, tracker.Evaluate(false))
}

func TestTerrainScenario(t *testing.T) {
	world := terrain.NewWorld()
	chunk := world.Ensure(terrain.Coord{})
	// Another client got there first.
	world.Set(chunk, 42, 12, 3)

	patches := terrain.NewPatchSet(terrain.MaxPredictedChunks)
	require.NoError(t, terrain.Merge(patches, []terrain.ChunkModifications{{
		Coord: terrain.Coord{},
		Modifications: []terrain.VoxelModification{
			{Index: 42, Initial: 0, Final: 10},
			{Index: 43, Initial: 0, Final: 0},
		},
	}}))

	assert.True(t, CorrectTerrain(world, patches))
	assert.True(t, patches.Chunks[0].NeedsCorrection)
	assert.Equal(t, uint8(12), patches.Chunks[0].Modifications[0].Final)
	assert.Equal(t, uint8(3), patches.Chunks[0].Modifications[0].Color)
	assert.Equal(t, uint8(0), patches.Chunks[0].Modifications[0].Initial)
}

func TestTerrainMatch(t *testing.T) {
	world := terrain.NewWorld()
	chunk := world.Ensure(terrain.Coord{})
	world.Set(chunk, 42, 10, 0)

	patches := terrain.NewPatchSet(terrain.MaxPredictedChunks)
	require.NoError(t, terrain.Merge(patches, []terrain.ChunkModifications{{
		Coord:         terrain.Coord{},
		Modifications: []terrain.VoxelModification{{Index: 42, Final: 10}},
	}}))

	assert.False(t, CorrectTerrain(world, patches))
	assert.False(t, patches.NeedsCorrection())
}
