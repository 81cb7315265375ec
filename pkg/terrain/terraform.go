package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type TerraformAction uint8

const (
	Destroy TerraformAction = iota
	Build
)

// Terraform applies a spherical brush centred on the voxel nearest center.
// Each voxel changes by up to amount, scaled down linearly with the squared
// distance from the centre. It returns the edits it made with their initial
// and final values, grouped per chunk. Unloaded chunks are left alone.
func (w *World) Terraform(
	action TerraformAction,
	center mgl32.Vec3,
	radius int,
	amount float32,
	color uint8,
) []ChunkModifications {
	if amount <= 0 || radius <= 0 {
		return nil
	}

	cx := int(math.Round(float64(center[0])))
	cy := int(math.Round(float64(center[1])))
	cz := int(math.Round(float64(center[2])))
	radiusSquared := float32(radius * radius)

	var edits []ChunkModifications
	for dz := -radius; dz <= radius; dz++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				distanceSquared := float32(dx*dx + dy*dy + dz*dz)
				if distanceSquared > radiusSquared {
					continue
				}

				proportion := 1 - distanceSquared/radiusSquared
				change := int(proportion * amount)
				if change == 0 {
					continue
				}

				coord, index := locate(cx+dx, cy+dy, cz+dz)
				chunk, ok := w.chunks[coord]
				if !ok {
					continue
				}

				current := chunk.Voxels[index]
				var next uint8
				nextColor := chunk.Colors[index]
				switch action {
				case Destroy:
					next = clampValue(int(current) - change)
				case Build:
					next = clampValue(int(current) + change)
					nextColor = color
				}
				if next == current {
					continue
				}

				w.Set(chunk, index, next, nextColor)
				edits = addEdit(edits, coord, VoxelModification{
					Index:   index,
					Initial: current,
					Final:   next,
					Color:   nextColor,
				})
			}
		}
	}
	return edits
}

func addEdit(edits []ChunkModifications, coord Coord, modification VoxelModification) []ChunkModifications {
	for i := range edits {
		if edits[i].Coord == coord {
			// A brush touches far fewer voxels per chunk than a package holds.
			_ = edits[i].Add(modification)
			return edits
		}
	}
	return append(edits, ChunkModifications{
		Coord:         coord,
		Modifications: []VoxelModification{modification},
	})
}

// Apply writes the final value of every modification into the world,
// skipping chunks that are not loaded.
func (w *World) Apply(chunks []ChunkModifications, direction Direction) {
	for _, patch := range chunks {
		chunk, ok := w.chunks[patch.Coord]
		if !ok {
			continue
		}
		for _, modification := range patch.Modifications {
			if modification.Index >= ChunkVoxelCount {
				continue
			}
			color := chunk.Colors[modification.Index]
			if direction == Downstream {
				color = modification.Color
			}
			w.Set(chunk, modification.Index, modification.Final, color)
		}
	}
}
