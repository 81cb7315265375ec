package predict

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llguy/voxsync/pkg/game"
	"github.com/llguy/voxsync/pkg/terrain"
)

func floating() *Predictor {
	player := game.NewPlayer(1, "alice")
	player.Alive = game.Alive
	player.Mode = game.ModeFloating
	return New(game.NewSimulation(terrain.NewWorld()), player)
}

func digger() *Predictor {
	world := terrain.NewWorld()
	terrain.GenerateSphere(world, 20, 1)

	player := game.NewPlayer(1, "alice")
	player.Alive = game.Alive
	player.Mode = game.ModeStanding
	player.Position = mgl32.Vec3{0, 21, 0}
	player.ViewDirection = mgl32.Vec3{0, -1, 0}
	player.SelectedWeapon = 1
	return New(game.NewSimulation(world), player)
}

func TestCacheOverflowDropsNewest(t *testing.T) {
	predictor := floating()
	for i := 0; i <= game.ActionCacheCapacity; i++ {
		predictor.Apply(game.PlayerAction{Tick: uint64(i), DT: 0.01})
	}
	assert.Equal(t, game.ActionCacheCapacity, predictor.Cached())

	commands := predictor.Flush(300)
	require.Len(t, commands.Actions, game.ActionCacheCapacity)
	assert.Equal(t, uint64(0), commands.Actions[0].Tick)
	assert.Equal(t, uint64(game.ActionCacheCapacity-1), commands.Actions[len(commands.Actions)-1].Tick)
	assert.Equal(t, 0, predictor.Cached())
}

func TestApplyMovesPlayer(t *testing.T) {
	predictor := floating()
	state := predictor.Apply(game.PlayerAction{DT: 0.1, Input: game.Input{MoveForward: true}})
	assert.InDelta(t, -2.5, state.Position[2], 1e-5)
	assert.Equal(t, predictor.Player.State, state)
}

func TestDeadPlayerMovesSpectator(t *testing.T) {
	predictor := floating()
	predictor.Player.Alive = game.Dead

	predictor.Apply(game.PlayerAction{DT: 0.1, Input: game.Input{MoveForward: true}})
	assert.Equal(t, mgl32.Vec3{}, predictor.Player.Position)
	assert.NotEqual(t, mgl32.Vec3{}, predictor.Spectator.Position)
	assert.Equal(t, 0, predictor.Cached())
}

func TestActionsAreRateLimited(t *testing.T) {
	predictor := floating()
	predictor.Apply(game.PlayerAction{DT: 0.004})
	predictor.Apply(game.PlayerAction{DT: 0.008})

	commands := predictor.Flush(1)
	assert.Equal(t, float32(0), commands.Actions[0].AccumulatedDT)
	assert.InDelta(t, 0.012, commands.Actions[1].AccumulatedDT, 1e-6)
}

func dig(predictor *Predictor, tick uint64) {
	predictor.Apply(game.PlayerAction{
		Tick:  tick,
		DT:    0.05,
		Input: game.Input{TriggerLeft: true},
	})
}

func TestFlushRemembersEdits(t *testing.T) {
	predictor := digger()
	dig(predictor, 1)

	commands := predictor.Flush(7)
	require.NotEmpty(t, commands.Modifications)
	assert.Equal(t, 1, predictor.Unconfirmed())

	edit := commands.Modifications[0]
	assert.True(t, predictor.Pending(edit.Coord, edit.Modifications[0].Index))

	predictor.Confirm(6)
	assert.Equal(t, 1, predictor.Unconfirmed())
	predictor.Confirm(7)
	assert.Equal(t, 0, predictor.Unconfirmed())
	assert.False(t, predictor.Pending(edit.Coord, edit.Modifications[0].Index))

	assert.Empty(t, predictor.Flush(8).Modifications)
}

func TestDeltasSkipPendingVoxels(t *testing.T) {
	predictor := digger()
	dig(predictor, 1)
	commands := predictor.Flush(1)
	edit := commands.Modifications[0]
	index := edit.Modifications[0].Index
	predicted := edit.Modifications[0].Final

	predictor.ApplyDeltas([]terrain.ChunkModifications{{
		Coord: edit.Coord,
		Modifications: []terrain.VoxelModification{
			{Index: index, Final: 200},
			{Index: 4095, Final: 201, Color: 5},
		},
	}})

	chunk, ok := predictor.Simulation.World.Chunk(edit.Coord)
	require.True(t, ok)
	assert.Equal(t, predicted, chunk.Voxels[index])
	assert.Equal(t, uint8(201), chunk.Voxels[4095])
	assert.Equal(t, uint8(5), chunk.Colors[4095])
}

func TestCorrectionOverwritesPrediction(t *testing.T) {
	predictor := digger()
	dig(predictor, 1)
	commands := predictor.Flush(1)
	edit := commands.Modifications[0]
	index := edit.Modifications[0].Index

	dig(predictor, 2)
	require.Equal(t, 1, predictor.Cached())

	authoritative := predictor.Player.State
	authoritative.Position = mgl32.Vec3{0, 30, 0}
	corrected := edit.Clone()
	corrected.NeedsCorrection = true
	corrected.Modifications = corrected.Modifications[:1]
	corrected.Modifications[0].Final = 12

	predictor.ApplyCorrection(authoritative, []terrain.ChunkModifications{corrected})

	chunk, _ := predictor.Simulation.World.Chunk(edit.Coord)
	assert.Equal(t, uint8(12), chunk.Voxels[index])
	assert.Equal(t, mgl32.Vec3{0, 30, 0}, predictor.Player.Position)
	assert.Equal(t, 0, predictor.Cached())
	assert.Equal(t, 0, predictor.Unconfirmed())

	next := predictor.Flush(3)
	assert.True(t, next.DidCorrection)
	assert.Empty(t, next.Modifications)
	assert.False(t, predictor.Flush(4).DidCorrection)
}

func TestRequestSpawn(t *testing.T) {
	predictor := floating()
	predictor.Player.Alive = game.Dead
	predictor.Player.NextSpawn = mgl32.Vec3{150, 150, 150}

	predictor.RequestSpawn()
	assert.Equal(t, game.Alive, predictor.Player.Alive)
	assert.Equal(t, game.ModeMeteorite, predictor.Player.Mode)

	commands := predictor.Flush(1)
	assert.True(t, commands.RequestedSpawn)
	assert.Equal(t, mgl32.Vec3{150, 150, 150}, commands.State.Position)
	assert.False(t, predictor.Flush(2).RequestedSpawn)
}
