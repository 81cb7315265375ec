package terrain

import (
	"math"
)

// densityScale is how many voxel units the density changes per unit of
// distance from the surface.
const densityScale = 16

// GenerateSphere fills w with a solid ball of the given radius centred on
// the origin. Chunks that end up empty are not created.
func GenerateSphere(w *World, radius float32, color uint8) {
	extent := int(math.Ceil(float64(radius)+2)) / ChunkEdge
	extent++

	for cz := -extent; cz < extent; cz++ {
		for cy := -extent; cy < extent; cy++ {
			for cx := -extent; cx < extent; cx++ {
				coord := Coord{X: int16(cx), Y: int16(cy), Z: int16(cz)}
				chunk := &Chunk{Coord: coord}
				ox, oy, oz := coord.Origin()

				for z := 0; z < ChunkEdge; z++ {
					for y := 0; y < ChunkEdge; y++ {
						for x := 0; x < ChunkEdge; x++ {
							fx := float64(ox+x) + 0.5
							fy := float64(oy+y) + 0.5
							fz := float64(oz+z) + 0.5
							distance := math.Sqrt(fx*fx + fy*fy + fz*fz)
							value := clampValue(SurfaceLevel + int((float64(radius)-distance)*densityScale))

							index := Index(x, y, z)
							chunk.Voxels[index] = value
							if value != 0 {
								chunk.Colors[index] = color
							}
						}
					}
				}

				if chunk.Empty() {
					continue
				}

				w.Load(chunk)
			}
		}
	}
}
