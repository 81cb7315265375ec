// Package reconcile decides when a client's prediction has drifted from the
// authoritative simulation and tracks the correction handshake.
package reconcile

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/llguy/voxsync/pkg/game"
	"github.com/llguy/voxsync/pkg/terrain"
)

const DefaultEpsilon = 1e-6

type State uint8

const (
	Normal State = iota
	AwaitingCorrection
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case AwaitingCorrection:
		return "awaiting-correction"
	}
	return "unknown"
}

// Decision is what a snapshot should tell a client about its prediction.
type Decision struct {
	// Send the authoritative state and expect an acknowledgement.
	Correct bool
	// A correction is outstanding; the client should acknowledge it again.
	Waiting bool
}

// Tracker is the per-client correction state machine.
type Tracker struct {
	state State
}

func (t *Tracker) State() State {
	return t.state
}

// Accepting reports whether the client's new actions may be simulated.
func (t *Tracker) Accepting() bool {
	return t.state == Normal
}

// Evaluate advances the state machine for one snapshot. A correction is
// issued at most once until it is acknowledged.
func (t *Tracker) Evaluate(diverged bool) Decision {
	switch t.state {
	case AwaitingCorrection:
		return Decision{Waiting: true}
	default:
		if !diverged {
			return Decision{}
		}
		t.state = AwaitingCorrection
		return Decision{Correct: true}
	}
}

// Acknowledge handles a did_correction flag. It reports whether the tracker
// was waiting for it.
func (t *Tracker) Acknowledge() bool {
	if t.state != AwaitingCorrection {
		return false
	}
	t.state = Normal
	return true
}

func differs(a, b mgl32.Vec3, epsilon float32) bool {
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		// NaN never compares equal
		if diff > epsilon || diff != diff {
			return true
		}
	}
	return false
}

// NeedsStateCorrection compares the authoritative state with the one a
// client reported after replaying the same actions.
func NeedsStateCorrection(server, reported game.State, epsilon float32) bool {
	return differs(server.Position, reported.Position, epsilon) ||
		differs(server.ViewDirection, reported.ViewDirection, epsilon) ||
		differs(server.UpVector, reported.UpVector, epsilon) ||
		differs(server.Velocity, reported.Velocity, epsilon) ||
		server.Mode != reported.Mode ||
		server.Alive != reported.Alive
}

// CorrectTerrain checks every voxel a client predicted against the world.
// A mismatched prediction takes the authoritative value and color, and its
// whole chunk package is flagged. It reports whether anything was flagged.
func CorrectTerrain(world *terrain.World, patches *terrain.PatchSet) bool {
	corrected := false
	for i := range patches.Chunks {
		patch := &patches.Chunks[i]
		chunk, ok := world.Chunk(patch.Coord)

		for j := range patch.Modifications {
			modification := &patch.Modifications[j]

			var actual, color uint8
			if ok {
				actual = chunk.Voxels[modification.Index]
				color = chunk.Colors[modification.Index]
			}
			modification.Color = color

			if actual != modification.Final {
				modification.Final = actual
				patch.NeedsCorrection = true
			}
		}

		corrected = corrected || patch.NeedsCorrection
	}
	return corrected
}
