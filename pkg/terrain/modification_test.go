package terrain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llguy/voxsync/pkg/protocol/io"
)

func patch(coord Coord, mods ...VoxelModification) ChunkModifications {
	return ChunkModifications{Coord: coord, Modifications: mods}
}

func TestMergeIntoItself(t *testing.T) {
	set := NewPatchSet(MaxPredictedChunks)
	require.NoError(t, Merge(set, []ChunkModifications{
		patch(Coord{0, 0, 0},
			VoxelModification{Index: 42, Initial: 0, Final: 10},
			VoxelModification{Index: 43, Initial: 5, Final: 1},
		),
		patch(Coord{1, 0, -1}, VoxelModification{Index: 7, Initial: 100, Final: 90}),
	}))

	before := set.Clone()
	require.NoError(t, Merge(set, set.Clone().Chunks))
	assert.Equal(t, before, set)
}

func TestMergeKeepsFirstInitialLastFinal(t *testing.T) {
	set := NewPatchSet(MaxPredictedChunks)
	coord := Coord{0, 0, 0}
	for i, final := range []uint8{10, 20, 5} {
		require.NoError(t, Merge(set, []ChunkModifications{
			patch(coord, VoxelModification{Index: 42, Initial: uint8(i * 10), Final: final}),
		}))
	}

	require.Equal(t, 1, set.Len())
	require.Len(t, set.Chunks[0].Modifications, 1)
	assert.Equal(t, uint8(0), set.Chunks[0].Modifications[0].Initial)
	assert.Equal(t, uint8(5), set.Chunks[0].Modifications[0].Final)
}

func TestMergeChunkOverflow(t *testing.T) {
	set := NewPatchSet(2)
	require.NoError(t, Merge(set, []ChunkModifications{
		patch(Coord{0, 0, 0}, VoxelModification{Index: 1, Final: 1}),
	}))
	before := set.Clone()

	err := Merge(set, []ChunkModifications{
		patch(Coord{0, 0, 0}, VoxelModification{Index: 2, Final: 2}),
		patch(Coord{1, 0, 0}, VoxelModification{Index: 1, Final: 1}),
		patch(Coord{2, 0, 0}, VoxelModification{Index: 1, Final: 1}),
	})
	assert.ErrorIs(t, err, ErrPatchOverflow)
	assert.Equal(t, before, set)
}

func TestMergeVoxelOverflow(t *testing.T) {
	set := NewPatchSet(MaxPredictedChunks)
	var mods []VoxelModification
	for i := 0; i <= MaxVoxelsPerChunkPackage; i++ {
		mods = append(mods, VoxelModification{Index: uint16(i), Final: 1})
	}

	err := Merge(set, []ChunkModifications{patch(Coord{}, mods...)})
	assert.ErrorIs(t, err, ErrPatchOverflow)
	assert.True(t, set.Empty())
}

func TestMergeCarriesCorrectionFlag(t *testing.T) {
	set := NewPatchSet(MaxPredictedChunks)
	flagged := patch(Coord{}, VoxelModification{Index: 3, Final: 4})
	flagged.NeedsCorrection = true
	require.NoError(t, Merge(set, []ChunkModifications{flagged}))
	require.NoError(t, Merge(set, []ChunkModifications{patch(Coord{}, VoxelModification{Index: 3, Final: 5})}))
	assert.True(t, set.NeedsCorrection())
}

func TestModificationDirections(t *testing.T) {
	chunks := []ChunkModifications{
		patch(Coord{-1, 2, -3}, VoxelModification{Index: 4095, Final: 254, Initial: 3, Color: 9}),
	}

	up := io.Buffer{}
	EncodeModifications(&up, chunks, Upstream)
	decoded, err := DecodeModifications(&up, Upstream)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), decoded[0].Modifications[0].Initial)
	assert.Equal(t, uint8(0), decoded[0].Modifications[0].Color)
	assert.Equal(t, Coord{-1, 2, -3}, decoded[0].Coord)

	down := io.Buffer{}
	EncodeModifications(&down, chunks, Downstream)
	decoded, err = DecodeModifications(&down, Downstream)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), decoded[0].Modifications[0].Color)
	assert.Equal(t, uint8(0), decoded[0].Modifications[0].Initial)
	assert.Equal(t, uint8(254), decoded[0].Modifications[0].Final)
}

func TestModificationRejectsSentinel(t *testing.T) {
	chunks := []ChunkModifications{
		patch(Coord{}, VoxelModification{Index: 1, Final: SentinelValue}),
	}
	p := io.Buffer{}
	EncodeModifications(&p, chunks, Downstream)
	_, err := DecodeModifications(&p, Downstream)
	assert.ErrorIs(t, err, ErrMalformedModification)
}

func TestModificationTruncated(t *testing.T) {
	p := io.Buffer{}
	EncodeModifications(&p, []ChunkModifications{
		patch(Coord{}, VoxelModification{Index: 1, Final: 2}),
	}, Upstream)
	short := p[:len(p)-2]
	_, err := DecodeModifications(&short, Upstream)
	assert.Error(t, err)
}
