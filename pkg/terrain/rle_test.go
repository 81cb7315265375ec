package terrain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, voxels *[ChunkVoxelCount]uint8) []byte {
	encoded := EncodeRLE(nil, voxels)

	var decoded [ChunkVoxelCount]uint8
	for i := range decoded {
		decoded[i] = 1
	}
	n, err := DecodeRLE(encoded, &decoded)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), n)
	assert.Equal(t, *voxels, decoded)
	return encoded
}

func TestRLEEmpty(t *testing.T) {
	var voxels [ChunkVoxelCount]uint8
	encoded := roundTrip(t, &voxels)
	assert.Equal(t, []byte{SentinelValue, 0x00, 0x10, 0x00, 0x00}, encoded)
}

func TestRLEShortRunsStayLiteral(t *testing.T) {
	var voxels [ChunkVoxelCount]uint8
	for i := range voxels {
		voxels[i] = 7
	}
	for i := 10; i < 14; i++ {
		voxels[i] = 0
	}
	encoded := roundTrip(t, &voxels)
	assert.Len(t, encoded, ChunkVoxelCount)
}

func TestRLERunOfFive(t *testing.T) {
	var voxels [ChunkVoxelCount]uint8
	for i := range voxels {
		voxels[i] = MaxVoxelValue
	}
	for i := 100; i < 105; i++ {
		voxels[i] = 0
	}
	encoded := roundTrip(t, &voxels)
	assert.Len(t, encoded, ChunkVoxelCount-5+5)
	assert.Equal(t, byte(SentinelValue), encoded[100])
}

func TestRLERandom(t *testing.T) {
	random := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		var voxels [ChunkVoxelCount]uint8
		for i := range voxels {
			if random.Intn(3) == 0 {
				voxels[i] = uint8(random.Intn(MaxVoxelValue + 1))
			}
		}
		roundTrip(t, &voxels)
	}
}

func TestRLETrailingRun(t *testing.T) {
	var voxels [ChunkVoxelCount]uint8
	voxels[0] = 3
	encoded := roundTrip(t, &voxels)
	assert.Equal(t, []byte{3, SentinelValue, 0xff, 0x0f, 0x00, 0x00}, encoded)
}

func TestRLEMalformed(t *testing.T) {
	var voxels [ChunkVoxelCount]uint8

	_, err := DecodeRLE([]byte{1, 2, 3}, &voxels)
	assert.ErrorIs(t, err, ErrMalformedRLE)

	_, err = DecodeRLE([]byte{SentinelValue, 0x01, 0x10, 0x00, 0x00}, &voxels)
	assert.ErrorIs(t, err, ErrMalformedRLE)

	_, err = DecodeRLE([]byte{SentinelValue, 0x01}, &voxels)
	assert.ErrorIs(t, err, ErrMalformedRLE)
}

func TestChunkEncoding(t *testing.T) {
	chunk := &Chunk{Coord: Coord{-2, 0, 5}}
	chunk.Voxels[Index(3, 4, 5)] = 200

	encoded := EncodeChunk([]byte{0xaa}, chunk)
	decoded, n, err := DecodeChunk(encoded[1:])
	require.NoError(t, err)
	assert.Equal(t, len(encoded)-1, n)
	assert.Equal(t, chunk.Coord, decoded.Coord)
	assert.Equal(t, chunk.Voxels, decoded.Voxels)
}
