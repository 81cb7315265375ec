// Package terrain stores voxel chunks and the sparse edits made to them.
package terrain

const (
	ChunkEdge       = 16
	ChunkVoxelCount = ChunkEdge * ChunkEdge * ChunkEdge

	// Voxel values live in [0, MaxVoxelValue]. SentinelValue marks a voxel
	// that has not been touched and doubles as the RLE run marker.
	MaxVoxelValue = 254
	SentinelValue = 255

	// Voxels at or above SurfaceLevel are solid.
	SurfaceLevel = 70
)

type Coord struct {
	X, Y, Z int16
}

// ChunkOf returns the chunk containing the voxel at (x, y, z).
func ChunkOf(x, y, z int) Coord {
	return Coord{
		X: int16(x >> 4),
		Y: int16(y >> 4),
		Z: int16(z >> 4),
	}
}

// Origin is the world position of the chunk's first voxel.
func (c Coord) Origin() (int, int, int) {
	return int(c.X) * ChunkEdge, int(c.Y) * ChunkEdge, int(c.Z) * ChunkEdge
}

// Index packs local voxel coordinates into [0, ChunkVoxelCount).
func Index(x, y, z int) uint16 {
	return uint16(x + y*ChunkEdge + z*ChunkEdge*ChunkEdge)
}

func Unpack(index uint16) (int, int, int) {
	i := int(index)
	return i % ChunkEdge, (i / ChunkEdge) % ChunkEdge, i / (ChunkEdge * ChunkEdge)
}

func clampValue(value int) uint8 {
	if value < 0 {
		return 0
	}
	if value > MaxVoxelValue {
		return MaxVoxelValue
	}
	return uint8(value)
}

type Chunk struct {
	Coord  Coord
	Voxels [ChunkVoxelCount]uint8
	Colors [ChunkVoxelCount]uint8

	// Values before the first write of the current interval, SentinelValue
	// where untouched. Only set while the owning world tracks changes.
	history *[ChunkVoxelCount]uint8
	touched []uint16
}

func (c *Chunk) Empty() bool {
	for _, value := range c.Voxels {
		if value != 0 {
			return false
		}
	}
	return true
}
