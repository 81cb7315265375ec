package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog/log"
)

// World is a sparse set of chunks. A world that tracks changes remembers,
// per interval, which chunks were written and what each touched voxel held
// before the interval began.
type World struct {
	chunks   map[Coord]*Chunk
	order    []Coord
	tracking bool

	modified []*Chunk
	pool     []*[ChunkVoxelCount]uint8
	// Writes this interval that did not fit in the tracker.
	untracked int
}

func NewWorld() *World {
	return &World{
		chunks: make(map[Coord]*Chunk),
	}
}

// NewTrackedWorld returns a world that records every write for
// IntervalDeltas.
func NewTrackedWorld() *World {
	world := NewWorld()
	world.Track()
	return world
}

// Track starts recording writes. Chunks already in the world are kept.
func (w *World) Track() {
	w.tracking = true
}

func (w *World) Tracking() bool {
	return w.tracking
}

func (w *World) Len() int {
	return len(w.chunks)
}

func (w *World) Chunk(coord Coord) (*Chunk, bool) {
	chunk, ok := w.chunks[coord]
	return chunk, ok
}

// Ensure returns the chunk at coord, creating an empty one if needed.
func (w *World) Ensure(coord Coord) *Chunk {
	if chunk, ok := w.chunks[coord]; ok {
		return chunk
	}
	chunk := &Chunk{Coord: coord}
	w.chunks[coord] = chunk
	w.order = append(w.order, coord)
	return chunk
}

// Load replaces the voxels of the chunk at chunk.Coord, creating it if
// needed. Loading bypasses tracking.
func (w *World) Load(chunk *Chunk) {
	dst := w.Ensure(chunk.Coord)
	dst.Voxels = chunk.Voxels
	dst.Colors = chunk.Colors
}

// Chunks returns every chunk in the order it was created.
func (w *World) Chunks() []*Chunk {
	chunks := make([]*Chunk, 0, len(w.order))
	for _, coord := range w.order {
		chunks = append(chunks, w.chunks[coord])
	}
	return chunks
}

func locate(x, y, z int) (Coord, uint16) {
	coord := ChunkOf(x, y, z)
	ox, oy, oz := coord.Origin()
	return coord, Index(x-ox, y-oy, z-oz)
}

// Voxel returns the value at the given voxel position. Missing chunks read
// as empty space.
func (w *World) Voxel(x, y, z int) (uint8, bool) {
	coord, index := locate(x, y, z)
	chunk, ok := w.chunks[coord]
	if !ok {
		return 0, false
	}
	return chunk.Voxels[index], true
}

// Set writes a voxel, clamping value to MaxVoxelValue.
func (w *World) Set(chunk *Chunk, index uint16, value uint8, color uint8) {
	if value > MaxVoxelValue {
		value = MaxVoxelValue
	}

	if w.tracking && chunk.history == nil && len(w.modified) >= MaxIntervalChunks {
		if w.untracked == 0 {
			log.Warn().
				Int("chunks", len(w.modified)).
				Msg("interval tracker full, edit will not be sent")
		}
		w.untracked++
	} else if w.tracking {
		if chunk.history == nil {
			chunk.history = w.allocHistory()
			w.modified = append(w.modified, chunk)
		}
		if chunk.history[index] == SentinelValue {
			chunk.history[index] = chunk.Voxels[index]
			chunk.touched = append(chunk.touched, index)
		}
	}

	chunk.Voxels[index] = value
	chunk.Colors[index] = color
}

func (w *World) SetVoxel(x, y, z int, value uint8, color uint8) bool {
	coord, index := locate(x, y, z)
	chunk, ok := w.chunks[coord]
	if !ok {
		return false
	}
	w.Set(chunk, index, value, color)
	return true
}

func (w *World) allocHistory() *[ChunkVoxelCount]uint8 {
	if n := len(w.pool); n > 0 {
		history := w.pool[n-1]
		w.pool = w.pool[:n-1]
		return history
	}

	history := new([ChunkVoxelCount]uint8)
	for i := range history {
		history[i] = SentinelValue
	}
	return history
}

// ModifiedChunks returns how many chunks were written this interval.
func (w *World) ModifiedChunks() int {
	return len(w.modified)
}

// IntervalDeltas returns every voxel written since the last ResetTracking
// with its current value and color. Chunks with more touched voxels than a
// package holds are split across several packages.
func (w *World) IntervalDeltas() []ChunkModifications {
	var deltas []ChunkModifications
	for _, chunk := range w.modified {
		for start := 0; start < len(chunk.touched); start += MaxVoxelsPerChunkPackage {
			end := start + MaxVoxelsPerChunkPackage
			if end > len(chunk.touched) {
				end = len(chunk.touched)
			}

			delta := ChunkModifications{
				Coord:         chunk.Coord,
				Modifications: make([]VoxelModification, 0, end-start),
			}
			for _, index := range chunk.touched[start:end] {
				delta.Modifications = append(delta.Modifications, VoxelModification{
					Index:   index,
					Initial: chunk.history[index],
					Final:   chunk.Voxels[index],
					Color:   chunk.Colors[index],
				})
			}
			deltas = append(deltas, delta)
		}
	}
	return deltas
}

// ResetTracking forgets the current interval and returns history buffers to
// the pool.
func (w *World) ResetTracking() {
	for _, chunk := range w.modified {
		for _, index := range chunk.touched {
			chunk.history[index] = SentinelValue
		}
		w.pool = append(w.pool, chunk.history)
		chunk.history = nil
		chunk.touched = chunk.touched[:0]
	}
	w.modified = w.modified[:0]
	w.untracked = 0
}

// Untracked returns how many writes this interval were dropped by a full
// tracker.
func (w *World) Untracked() int {
	return w.untracked
}

func floor(value float32) int {
	return int(math.Floor(float64(value)))
}

func (w *World) Solid(position mgl32.Vec3) bool {
	value, _ := w.Voxel(floor(position[0]), floor(position[1]), floor(position[2]))
	return value >= SurfaceLevel
}

func (w *World) density(x, y, z int) float32 {
	value, _ := w.Voxel(x, y, z)
	return float32(value)
}

// Normal estimates the outward surface normal at position from the voxel
// density gradient. It returns the zero vector on flat density.
func (w *World) Normal(position mgl32.Vec3) mgl32.Vec3 {
	x, y, z := floor(position[0]), floor(position[1]), floor(position[2])
	normal := mgl32.Vec3{
		w.density(x-1, y, z) - w.density(x+1, y, z),
		w.density(x, y-1, z) - w.density(x, y+1, z),
		w.density(x, y, z-1) - w.density(x, y, z+1),
	}
	if normal.Len() == 0 {
		return mgl32.Vec3{}
	}
	return normal.Normalize()
}

const raycastStep = 0.25

// Raycast marches from origin along direction and returns the first solid
// point within length.
func (w *World) Raycast(origin, direction mgl32.Vec3, length float32) (mgl32.Vec3, bool) {
	if direction.Len() == 0 {
		return mgl32.Vec3{}, false
	}
	direction = direction.Normalize()

	steps := int(length / raycastStep)
	for i := 0; i <= steps; i++ {
		point := origin.Add(direction.Mul(float32(i) * raycastStep))
		if w.Solid(point) {
			return point, true
		}
	}
	return mgl32.Vec3{}, false
}

// HasChunk reports whether the chunk containing position is loaded.
func (w *World) HasChunk(position mgl32.Vec3) bool {
	_, ok := w.chunks[ChunkOf(floor(position[0]), floor(position[1]), floor(position[2]))]
	return ok
}
