package game

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llguy/voxsync/pkg/terrain"
)

const dt = float32(1.0 / 60.0)

func planet(radius float32) *terrain.World {
	world := terrain.NewWorld()
	terrain.GenerateSphere(world, radius, 1)
	return world
}

func TestSpawn(t *testing.T) {
	player := NewPlayer(1, "alice")
	player.NextSpawn = mgl32.Vec3{0, 40, 0}
	player.Spawn()

	assert.Equal(t, Alive, player.Alive)
	assert.Equal(t, ModeMeteorite, player.Mode)
	assert.Equal(t, mgl32.Vec3{0, 40, 0}, player.Position)
	assert.InDelta(t, -1, player.ViewDirection[1], 1e-6)
	assert.InDelta(t, 0, player.UpVector.Dot(player.ViewDirection), 1e-6)
	assert.InDelta(t, 1, player.UpVector.Len(), 1e-6)
}

func TestRandomSpawn(t *testing.T) {
	random := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		spawn := RandomSpawn(random)
		for _, value := range spawn {
			assert.GreaterOrEqual(t, abs(value), float32(SpawnMin))
			assert.Less(t, abs(value), float32(SpawnMax))
		}
	}
}

func TestMeteoriteBecomesBall(t *testing.T) {
	simulation := NewSimulation(planet(20))
	player := NewPlayer(1, "alice")
	player.NextSpawn = mgl32.Vec3{0, 40, 0}
	player.Spawn()

	for i := 0; i < 600 && player.Mode == ModeMeteorite; i++ {
		simulation.Execute(player, PlayerAction{Tick: uint64(i), DT: dt})
	}

	assert.Equal(t, ModeBall, player.Mode)
	assert.Equal(t, OnGround, player.Contact)
	assert.Less(t, player.Position.Len(), float32(25))
	assert.Greater(t, player.UpVector[1], float32(0.5))
}

func TestFallingIntoNothingKills(t *testing.T) {
	simulation := NewSimulation(terrain.NewWorld())
	player := NewPlayer(1, "alice")
	player.Alive = Alive
	player.Mode = ModeStanding

	for i := 0; i < 400; i++ {
		simulation.Execute(player, PlayerAction{DT: dt})
	}
	assert.Equal(t, Dead, player.Alive)
}

func TestFloatingMovement(t *testing.T) {
	simulation := NewSimulation(terrain.NewWorld())
	player := NewPlayer(1, "ghost")
	player.Mode = ModeFloating

	simulation.Execute(player, PlayerAction{DT: 0.1, Input: Input{MoveForward: true, Jump: true}})
	assert.InDelta(t, -2.5, player.Position[2], 1e-5)
	assert.InDelta(t, 2.5, player.Position[1], 1e-5)
}

func TestWeaponSwitch(t *testing.T) {
	simulation := NewSimulation(terrain.NewWorld())
	player := NewPlayer(1, "alice")
	player.Mode = ModeFloating

	simulation.Execute(player, PlayerAction{DT: dt, Input: Input{SwitchWeapon: true, NextWeapon: CycleWeapon}})
	assert.Equal(t, 1, player.SelectedWeapon)
	simulation.Execute(player, PlayerAction{DT: dt, Input: Input{SwitchWeapon: true, NextWeapon: CycleWeapon}})
	assert.Equal(t, 0, player.SelectedWeapon)
	simulation.Execute(player, PlayerAction{DT: dt, Input: Input{SwitchWeapon: true, NextWeapon: 5}})
	assert.Equal(t, 0, player.SelectedWeapon)
}

func TestShapeSwitch(t *testing.T) {
	simulation := NewSimulation(planet(20))
	player := NewPlayer(1, "alice")
	player.Alive = Alive
	player.Mode = ModeStanding
	player.Position = mgl32.Vec3{0, 21, 0}

	simulation.Execute(player, PlayerAction{DT: dt, Input: Input{SwitchShape: true}})
	assert.Equal(t, ModeBall, player.Mode)
	simulation.Execute(player, PlayerAction{DT: dt, Input: Input{SwitchShape: true}})
	assert.Equal(t, ModeStanding, player.Mode)
}

func terraformer(world *terrain.World) (*Simulation, *Player) {
	player := NewPlayer(1, "alice")
	player.Alive = Alive
	player.Mode = ModeStanding
	player.Position = mgl32.Vec3{0, 21, 0}
	player.ViewDirection = mgl32.Vec3{0, -1, 0}
	player.SelectedWeapon = 1
	return NewSimulation(world), player
}

func TestTerraformerDigs(t *testing.T) {
	simulation, player := terraformer(planet(20))

	edits := simulation.Execute(player, PlayerAction{
		DT:            dt,
		AccumulatedDT: 0.1,
		Input:         Input{TriggerLeft: true},
	})
	require.NotEmpty(t, edits)
	assert.True(t, player.Terraform.Hit)
	for _, edit := range edits {
		for _, modification := range edit.Modifications {
			assert.Less(t, modification.Final, modification.Initial)
		}
	}

	none := simulation.Execute(player, PlayerAction{DT: dt, Input: Input{TriggerLeft: true}})
	assert.Empty(t, none)
}

func TestReplayIsDeterministic(t *testing.T) {
	actions := []PlayerAction{}
	for i := 0; i < 120; i++ {
		actions = append(actions, PlayerAction{
			Tick:          uint64(i),
			DT:            dt,
			AccumulatedDT: 0.02,
			Input: Input{
				MoveForward: i%3 == 0,
				MoveLeft:    i%7 == 0,
				Jump:        i == 30,
				TriggerLeft: i%10 == 0,
			},
			MouseDX: float32(i%5) - 2,
			MouseDY: float32(i%3) - 1,
		})
	}

	worldA, worldB := planet(20), planet(20)
	simA, playerA := terraformer(worldA)
	simB, playerB := terraformer(worldB)

	for _, action := range actions {
		editsA := simA.Execute(playerA, action)
		editsB := simB.Execute(playerB, action)
		require.Equal(t, editsA, editsB)
	}

	assert.Equal(t, playerA.State, playerB.State)
	for _, chunk := range worldA.Chunks() {
		other, ok := worldB.Chunk(chunk.Coord)
		require.True(t, ok)
		assert.Equal(t, chunk.Voxels, other.Voxels)
	}
}
