// Package interp smooths remote players between the snapshots that
// describe them.
package interp

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/llguy/voxsync/pkg/game"
	"github.com/llguy/voxsync/pkg/utils"
)

// MinimumSnapshots buffered before interpolation starts.
const MinimumSnapshots = 3

type Snapshot struct {
	Position      mgl32.Vec3
	ViewDirection mgl32.Vec3
	UpVector      mgl32.Vec3
	Mode          game.InteractionMode
	Alive         game.AliveState
}

type Interpolator struct {
	snapshots   *utils.Ring[Snapshot]
	interval    float32
	elapsed     float32
	progression float32
}

// New returns an interpolator holding up to capacity snapshots that arrive
// every interval seconds.
func New(capacity int, interval float32) *Interpolator {
	if capacity < MinimumSnapshots {
		capacity = MinimumSnapshots
	}
	return &Interpolator{
		snapshots: utils.NewRing[Snapshot](capacity),
		interval:  interval,
	}
}

// Push buffers a snapshot, dropping the oldest if the buffer is full.
func (i *Interpolator) Push(snapshot Snapshot) {
	i.snapshots.Force(snapshot)
}

func (i *Interpolator) Buffered() int {
	return i.snapshots.Len()
}

func (i *Interpolator) Progression() float32 {
	return i.progression
}

// Advance moves time forward by dt and returns the blended snapshot. It
// reports false until enough snapshots are buffered.
//
// After a stall of several intervals the oldest snapshots are skipped so
// that progression stays in [0, 1). At least two snapshots always remain
// to blend between.
func (i *Interpolator) Advance(dt float32) (Snapshot, bool) {
	if i.snapshots.Len() < MinimumSnapshots {
		latest, _ := i.snapshots.At(i.snapshots.Len() - 1)
		return latest, false
	}

	i.elapsed += dt
	i.progression = i.elapsed / i.interval

	if i.progression >= 1 {
		whole := float32(math.Floor(float64(i.progression)))

		skip := int(whole)
		if keep := i.snapshots.Len() - 2; skip > keep {
			skip = keep
		}
		i.snapshots.Skip(skip)

		i.progression -= whole
		i.elapsed -= whole * i.interval
		if i.elapsed < 0 {
			i.elapsed = 0
		}
		if i.progression < 0 {
			i.progression = 0
		}
	}

	before, _ := i.snapshots.At(0)
	after, _ := i.snapshots.At(1)
	return Blend(before, after, i.progression), true
}

// Blend interpolates position linearly and the direction vectors with a
// normalized lerp. Mode and alive state come from the earlier snapshot.
func Blend(before, after Snapshot, t float32) Snapshot {
	return Snapshot{
		Position:      lerp(before.Position, after.Position, t),
		ViewDirection: nlerp(before.ViewDirection, after.ViewDirection, t),
		UpVector:      nlerp(before.UpVector, after.UpVector, t),
		Mode:          before.Mode,
		Alive:         before.Alive,
	}
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

func nlerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	v := lerp(a, b, t)
	if v.Len() == 0 {
		return a
	}
	return v.Normalize()
}
