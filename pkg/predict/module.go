// Package predict applies the local player's input immediately and keeps
// what is needed to resend it and to roll back when the server disagrees.
package predict

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/llguy/voxsync/pkg/game"
	"github.com/llguy/voxsync/pkg/terrain"
	"github.com/llguy/voxsync/pkg/utils"
)

// HistorySlots is how many unconfirmed command packets carrying terrain
// edits are remembered.
const HistorySlots = 60

// AccumulatedModification is the set of edits sent with one command packet,
// kept until the server confirms or corrects them.
type AccumulatedModification struct {
	Tick    uint64
	Patches *terrain.PatchSet
}

// Commands is everything one command packet carries.
type Commands struct {
	Actions        []game.PlayerAction
	State          game.State
	DidCorrection  bool
	RequestedSpawn bool
	Modifications  []terrain.ChunkModifications
}

type Predictor struct {
	Simulation *game.Simulation
	Player     *game.Player
	// Flies around while the player is dead. Its actions are never sent.
	Spectator *game.Player

	limiter        game.TerraformLimiter
	actions        *utils.Ring[game.PlayerAction]
	patches        *terrain.PatchSet
	history        *utils.Ring[AccumulatedModification]
	didCorrection  bool
	requestedSpawn bool
}

func New(simulation *game.Simulation, player *game.Player) *Predictor {
	spectator := game.NewPlayer(player.ClientID, player.Name)
	spectator.Mode = game.ModeFloating

	return &Predictor{
		Simulation: simulation,
		Player:     player,
		Spectator:  spectator,
		actions:    utils.NewRing[game.PlayerAction](game.ActionCacheCapacity),
		patches:    terrain.NewPatchSet(terrain.MaxPredictedChunks),
		history:    utils.NewRing[AccumulatedModification](HistorySlots),
	}
}

// Apply runs one action against the local player, or the spectator while
// the player is dead, and returns the resulting state.
func (p *Predictor) Apply(action game.PlayerAction) game.State {
	if p.Player.Alive == game.Dead {
		p.Simulation.Execute(p.Spectator, action)
		return p.Spectator.State
	}

	p.limiter.Stamp(&action)

	edits := p.Simulation.Execute(p.Player, action)
	if len(edits) > 0 {
		err := terrain.Merge(p.patches, edits)
		if errors.Is(err, terrain.ErrPatchOverflow) {
			log.Warn().
				Uint16("client", p.Player.ClientID).
				Uint64("tick", action.Tick).
				Msg("too many predicted terrain edits, reverting")
			p.revert(edits)
		}
	}

	if !p.actions.Push(action) {
		log.Warn().
			Uint16("client", p.Player.ClientID).
			Uint64("tick", action.Tick).
			Msg("too many cached actions, dropping")
	}

	if p.Player.Mode != game.ModeStanding {
		p.Player.Terraform.Hit = false
	}

	return p.Player.State
}

// revert writes the initial values of edits back into the world.
func (p *Predictor) revert(edits []terrain.ChunkModifications) {
	world := p.Simulation.World
	for _, edit := range edits {
		chunk, ok := world.Chunk(edit.Coord)
		if !ok {
			continue
		}
		for i := len(edit.Modifications) - 1; i >= 0; i-- {
			modification := edit.Modifications[i]
			world.Set(chunk, modification.Index, modification.Initial, chunk.Colors[modification.Index])
		}
	}
}

// RequestSpawn spawns the local player now and asks the server to do the
// same with the next command packet.
func (p *Predictor) RequestSpawn() {
	p.Player.Spawn()
	p.requestedSpawn = true
}

// Cached returns how many actions are waiting to be sent.
func (p *Predictor) Cached() int {
	return p.actions.Len()
}

// Unconfirmed returns how many sent edit sets await confirmation.
func (p *Predictor) Unconfirmed() int {
	return p.history.Len()
}

// Flush drains the action cache into a command packet sent at tick. Edits
// predicted since the last flush go with it and are remembered under tick.
func (p *Predictor) Flush(tick uint64) Commands {
	commands := Commands{
		Actions:        p.actions.Drain(),
		State:          p.Player.State,
		DidCorrection:  p.didCorrection,
		RequestedSpawn: p.requestedSpawn,
	}
	p.didCorrection = false
	p.requestedSpawn = false

	if !p.patches.Empty() {
		commands.Modifications = p.patches.Clone().Chunks

		if p.history.Full() {
			log.Warn().
				Uint16("client", p.Player.ClientID).
				Msg("too many unconfirmed terrain edits, forgetting oldest")
		}
		p.history.Force(AccumulatedModification{
			Tick:    tick,
			Patches: p.patches,
		})
		p.patches = terrain.NewPatchSet(terrain.MaxPredictedChunks)
	}

	return commands
}

// Confirm forgets edits sent at or before tick.
func (p *Predictor) Confirm(tick uint64) {
	for {
		entry, ok := p.history.Peek()
		if !ok || entry.Tick > tick {
			return
		}
		p.history.Pop()
	}
}

// Retry re-arms the correction acknowledgement after the server reported it
// is still waiting for one.
func (p *Predictor) Retry() {
	p.didCorrection = true
}

// ApplyCorrection replaces the local player's state with the authoritative
// one, writes corrected voxels and forgets everything predicted so far.
func (p *Predictor) ApplyCorrection(state game.State, corrections []terrain.ChunkModifications) {
	p.Player.State = state
	p.actions.Clear()
	p.history.Clear()
	p.patches.Reset()

	if len(corrections) > 0 {
		p.Simulation.World.Apply(corrections, terrain.Downstream)
	}

	p.didCorrection = true
}

// Pending reports whether the voxel has a prediction the server has not
// confirmed yet.
func (p *Predictor) Pending(coord terrain.Coord, index uint16) bool {
	contains := func(set *terrain.PatchSet) bool {
		i := set.Find(coord)
		return i >= 0 && set.Chunks[i].Find(index) >= 0
	}

	if contains(p.patches) {
		return true
	}
	for i := 0; i < p.history.Len(); i++ {
		entry, _ := p.history.At(i)
		if contains(entry.Patches) {
			return true
		}
	}
	return false
}

// ApplyDeltas writes authoritative terrain deltas into the local world,
// leaving voxels with outstanding predictions alone.
func (p *Predictor) ApplyDeltas(deltas []terrain.ChunkModifications) {
	world := p.Simulation.World
	for _, delta := range deltas {
		chunk, ok := world.Chunk(delta.Coord)
		if !ok {
			continue
		}
		for _, modification := range delta.Modifications {
			if modification.Index >= terrain.ChunkVoxelCount || p.Pending(delta.Coord, modification.Index) {
				continue
			}
			world.Set(chunk, modification.Index, modification.Final, modification.Color)
		}
	}
}
