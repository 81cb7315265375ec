package terrain

import (
	"errors"
	"fmt"

	"github.com/llguy/voxsync/pkg/protocol/io"
)

// Direction selects which of Initial and Color a modification carries on
// the wire.
type Direction uint8

const (
	// Client to server: edits carry the value the client predicted from.
	Upstream Direction = iota
	// Server to client: edits carry the display color.
	Downstream
)

var ErrMalformedModification = errors.New("malformed chunk modification")

func (c ChunkModifications) Encode(p *io.Buffer, direction Direction) {
	p.PutInt16(c.Coord.X)
	p.PutInt16(c.Coord.Y)
	p.PutInt16(c.Coord.Z)
	p.PutBool(c.NeedsCorrection)
	p.PutUint16(uint16(len(c.Modifications)))
	for _, modification := range c.Modifications {
		p.PutUint16(modification.Index)
		p.PutByte(modification.Final)
		if direction == Upstream {
			p.PutByte(modification.Initial)
		} else {
			p.PutByte(modification.Color)
		}
	}
}

func (c *ChunkModifications) Decode(p *io.Buffer, direction Direction) error {
	header, ok := p.GetBytes(9)
	if !ok {
		return io.ErrShortBuffer
	}
	h := io.Buffer(header)
	c.Coord.X, _ = h.GetInt16()
	c.Coord.Y, _ = h.GetInt16()
	c.Coord.Z, _ = h.GetInt16()
	c.NeedsCorrection, _ = h.GetBool()
	count, _ := h.GetUint16()
	if count > MaxVoxelsPerChunkPackage {
		return fmt.Errorf("%d modifications: %w", count, ErrMalformedModification)
	}

	body, ok := p.GetBytes(int(count) * 4)
	if !ok {
		return io.ErrShortBuffer
	}
	b := io.Buffer(body)

	c.Modifications = make([]VoxelModification, 0, count)
	for i := 0; i < int(count); i++ {
		var modification VoxelModification
		modification.Index, _ = b.GetUint16()
		modification.Final, _ = b.GetByte()
		slot, _ := b.GetByte()
		if modification.Index >= ChunkVoxelCount || modification.Final > MaxVoxelValue {
			return ErrMalformedModification
		}
		if direction == Upstream {
			if slot > MaxVoxelValue {
				return ErrMalformedModification
			}
			modification.Initial = slot
		} else {
			modification.Color = slot
		}
		c.Modifications = append(c.Modifications, modification)
	}
	return nil
}

func EncodeModifications(p *io.Buffer, chunks []ChunkModifications, direction Direction) {
	p.PutUint32(uint32(len(chunks)))
	for _, chunk := range chunks {
		chunk.Encode(p, direction)
	}
}

func DecodeModifications(p *io.Buffer, direction Direction) ([]ChunkModifications, error) {
	count, ok := p.GetUint32()
	if !ok {
		return nil, io.ErrShortBuffer
	}
	// Each package takes at least nine bytes.
	if int(count)*9 > p.Len() {
		return nil, fmt.Errorf("%d chunk packages: %w", count, ErrMalformedModification)
	}

	chunks := make([]ChunkModifications, count)
	for i := range chunks {
		err := chunks[i].Decode(p, direction)
		if err != nil {
			return nil, err
		}
	}
	return chunks, nil
}
