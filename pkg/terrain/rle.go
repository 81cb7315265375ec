package terrain

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Zero runs at least this long are replaced by a run marker.
const minimumRun = 5

var ErrMalformedRLE = errors.New("malformed voxel stream")

// EncodeRLE appends the run-length encoding of voxels to dst. Non-zero
// values are written as-is; zero runs of minimumRun or more become
// SentinelValue followed by the u32 run length.
func EncodeRLE(dst []byte, voxels *[ChunkVoxelCount]uint8) []byte {
	for i := 0; i < ChunkVoxelCount; {
		value := voxels[i]
		if value != 0 {
			if value > MaxVoxelValue {
				value = MaxVoxelValue
			}
			dst = append(dst, value)
			i++
			continue
		}

		run := 1
		for i+run < ChunkVoxelCount && voxels[i+run] == 0 {
			run++
		}

		if run < minimumRun {
			for j := 0; j < run; j++ {
				dst = append(dst, 0)
			}
		} else {
			dst = append(dst, SentinelValue)
			dst = binary.LittleEndian.AppendUint32(dst, uint32(run))
		}
		i += run
	}
	return dst
}

// DecodeRLE fills voxels from src and returns how many bytes it consumed.
func DecodeRLE(src []byte, voxels *[ChunkVoxelCount]uint8) (int, error) {
	position := 0
	for i := 0; i < ChunkVoxelCount; {
		if position >= len(src) {
			return 0, fmt.Errorf("stream ended at voxel %d: %w", i, ErrMalformedRLE)
		}

		value := src[position]
		if value != SentinelValue {
			voxels[i] = value
			i++
			position++
			continue
		}

		if position+5 > len(src) {
			return 0, fmt.Errorf("truncated run marker: %w", ErrMalformedRLE)
		}
		run := int(binary.LittleEndian.Uint32(src[position+1:]))
		if run == 0 || i+run > ChunkVoxelCount {
			return 0, fmt.Errorf("run of %d at voxel %d: %w", run, i, ErrMalformedRLE)
		}
		for j := 0; j < run; j++ {
			voxels[i+j] = 0
		}
		i += run
		position += 5
	}
	return position, nil
}

// EncodeChunk appends a chunk's coordinate and voxel stream to dst.
func EncodeChunk(dst []byte, chunk *Chunk) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, uint16(chunk.Coord.X))
	dst = binary.LittleEndian.AppendUint16(dst, uint16(chunk.Coord.Y))
	dst = binary.LittleEndian.AppendUint16(dst, uint16(chunk.Coord.Z))
	return EncodeRLE(dst, &chunk.Voxels)
}

// DecodeChunk is the inverse of EncodeChunk.
func DecodeChunk(src []byte) (*Chunk, int, error) {
	if len(src) < 6 {
		return nil, 0, fmt.Errorf("truncated chunk coordinate: %w", ErrMalformedRLE)
	}

	chunk := &Chunk{
		Coord: Coord{
			X: int16(binary.LittleEndian.Uint16(src[0:])),
			Y: int16(binary.LittleEndian.Uint16(src[2:])),
			Z: int16(binary.LittleEndian.Uint16(src[4:])),
		},
	}

	n, err := DecodeRLE(src[6:], &chunk.Voxels)
	if err != nil {
		return nil, 0, err
	}
	return chunk, n + 6, nil
}
