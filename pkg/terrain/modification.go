package terrain

import (
	"errors"
	"fmt"
)

const (
	MaxPredictedChunks       = 20
	MaxVoxelsPerChunkPackage = 250
	// Chunks a tracked world records per interval.
	MaxIntervalChunks = 5 * MaxPredictedChunks
)

var ErrPatchOverflow = errors.New("patch overflow")

// VoxelModification is a single voxel edit. Initial is meaningful for edits
// travelling upstream (client to server), Color for edits travelling
// downstream.
type VoxelModification struct {
	Index   uint16
	Final   uint8
	Initial uint8
	Color   uint8
}

type ChunkModifications struct {
	Coord           Coord
	Modifications   []VoxelModification
	NeedsCorrection bool
}

func (c *ChunkModifications) Find(index uint16) int {
	for i, modification := range c.Modifications {
		if modification.Index == index {
			return i
		}
	}
	return -1
}

// Add records an edit. An index already present keeps its initial value and
// takes the new final value and color.
func (c *ChunkModifications) Add(modification VoxelModification) error {
	if i := c.Find(modification.Index); i >= 0 {
		c.Modifications[i].Final = modification.Final
		c.Modifications[i].Color = modification.Color
		return nil
	}

	if len(c.Modifications) >= MaxVoxelsPerChunkPackage {
		return fmt.Errorf("chunk %v: %w", c.Coord, ErrPatchOverflow)
	}

	c.Modifications = append(c.Modifications, modification)
	return nil
}

func (c ChunkModifications) Clone() ChunkModifications {
	clone := c
	clone.Modifications = append([]VoxelModification(nil), c.Modifications...)
	return clone
}

// PatchSet is an ordered, capacity-bounded list of chunk packages keyed by
// chunk coordinate.
type PatchSet struct {
	Chunks   []ChunkModifications
	Capacity int
}

func NewPatchSet(capacity int) *PatchSet {
	return &PatchSet{
		Capacity: capacity,
	}
}

func (p *PatchSet) Len() int {
	return len(p.Chunks)
}

func (p *PatchSet) Empty() bool {
	return len(p.Chunks) == 0
}

func (p *PatchSet) Find(coord Coord) int {
	for i := range p.Chunks {
		if p.Chunks[i].Coord == coord {
			return i
		}
	}
	return -1
}

func (p *PatchSet) Reset() {
	p.Chunks = p.Chunks[:0]
}

func (p *PatchSet) Clone() *PatchSet {
	clone := &PatchSet{
		Capacity: p.Capacity,
		Chunks:   make([]ChunkModifications, 0, len(p.Chunks)),
	}
	for _, chunk := range p.Chunks {
		clone.Chunks = append(clone.Chunks, chunk.Clone())
	}
	return clone
}

// NeedsCorrection reports whether any chunk package has been flagged.
func (p *PatchSet) NeedsCorrection() bool {
	for _, chunk := range p.Chunks {
		if chunk.NeedsCorrection {
			return true
		}
	}
	return false
}

func (p *PatchSet) merge(src []ChunkModifications) error {
	for _, incoming := range src {
		i := p.Find(incoming.Coord)
		if i < 0 {
			if p.Capacity > 0 && len(p.Chunks) >= p.Capacity {
				return fmt.Errorf("more than %d chunks: %w", p.Capacity, ErrPatchOverflow)
			}
			p.Chunks = append(p.Chunks, ChunkModifications{Coord: incoming.Coord})
			i = len(p.Chunks) - 1
		}

		chunk := &p.Chunks[i]
		chunk.NeedsCorrection = chunk.NeedsCorrection || incoming.NeedsCorrection
		for _, modification := range incoming.Modifications {
			err := chunk.Add(modification)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Merge folds src into dst. A voxel index dst has not seen is inserted with
// its initial and final value; one it has seen only takes the new final
// value. On ErrPatchOverflow dst is left exactly as it was.
func Merge(dst *PatchSet, src []ChunkModifications) error {
	staged := dst.Clone()
	err := staged.merge(src)
	if err != nil {
		return err
	}
	dst.Chunks = staged.Chunks
	return nil
}
