package protocol

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llguy/voxsync/pkg/game"
	"github.com/llguy/voxsync/pkg/terrain"
)

func roundTrip[T Message](t *testing.T, msg T) T {
	header := Header{CurrentTick: 77, Sequence: 3, ClientID: 9}
	data, err := Encode(header, msg)
	require.NoError(t, err)

	decodedHeader, decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, msg.Type(), decodedHeader.Type)
	assert.Equal(t, uint64(77), decodedHeader.CurrentTick)
	assert.Equal(t, uint32(3), decodedHeader.Sequence)
	assert.Equal(t, uint16(9), decodedHeader.ClientID)
	assert.Equal(t, uint32(len(data)), decodedHeader.TotalSize)

	typed, ok := any(decoded).(*T)
	require.True(t, ok, "decoded %T", decoded)
	return *typed
}

func TestHeaderLayout(t *testing.T) {
	data, err := Encode(Header{CurrentTick: 1, Sequence: 2, ClientID: 0x0304}, ClientDisconnect{})
	require.NoError(t, err)
	assert.Len(t, data, HeaderSize)
	assert.Equal(t, []byte{
		byte(PacketClientDisconnect),
		1, 0, 0, 0, 0, 0, 0, 0,
		2, 0, 0, 0,
		HeaderSize, 0, 0, 0,
		0x04, 0x03,
	}, data)
}

func TestConnectionRequest(t *testing.T) {
	msg := ConnectionRequest{Name: "alice"}
	assert.Equal(t, msg, roundTrip(t, msg))
}

func TestHandshake(t *testing.T) {
	msg := ConnectionHandshake{
		LoadedChunks: 216,
		Players: []PlayerInfo{{
			Name:          "alice",
			ClientID:      2,
			Position:      mgl32.Vec3{1, 2, 3},
			ViewDirection: mgl32.Vec3{0, 0, -1},
			UpVector:      mgl32.Vec3{0, 1, 0},
			NextSpawn:     mgl32.Vec3{-150, 120, 199},
			DefaultSpeed:  game.WalkingSpeed,
			Flags:         PlayerFlags{Mode: game.ModeBall, IsLocal: true},
		}},
	}
	assert.Equal(t, msg, roundTrip(t, msg))
}

func TestClientCommands(t *testing.T) {
	msg := ClientCommands{
		Actions: []game.PlayerAction{
			{Tick: 10, DT: 0.02, Input: game.Input{MoveForward: true}},
			{Tick: 11, DT: 0.02, AccumulatedDT: 0.04, Input: game.Input{TriggerLeft: true}, MouseDX: 2},
		},
		Position:      mgl32.Vec3{4, 5, 6},
		ViewDirection: mgl32.Vec3{1, 0, 0},
		UpVector:      mgl32.Vec3{0, 1, 0},
		Velocity:      mgl32.Vec3{0, -1, 0},
		Flags:         PlayerFlags{Mode: game.ModeStanding, Contact: game.OnGround},
		DidCorrection: true,
		Modifications: Upstream{{
			Coord:         terrain.Coord{X: 1, Y: -1},
			Modifications: []terrain.VoxelModification{{Index: 42, Initial: 0, Final: 10}},
		}},
	}
	assert.Equal(t, msg, roundTrip(t, msg))
}

func TestChunkVoxels(t *testing.T) {
	chunk := &terrain.Chunk{Coord: terrain.Coord{X: 2, Y: 0, Z: -1}}
	chunk.Voxels[100] = 80
	msg := ChunkVoxels{Chunks: []*terrain.Chunk{chunk}}

	decoded := roundTrip(t, msg)
	require.Len(t, decoded.Chunks, 1)
	assert.Equal(t, chunk.Coord, decoded.Chunks[0].Coord)
	assert.Equal(t, chunk.Voxels, decoded.Chunks[0].Voxels)
}

func TestPlayerLeft(t *testing.T) {
	msg := PlayerLeft{ClientID: 4, Reason: DisconnectTimeout}
	assert.Equal(t, msg, roundTrip(t, msg))
}

func TestSnapshotAssembly(t *testing.T) {
	players := []PlayerSnapshot{{
		ClientID: 1,
		Flags:    SnapshotFlags{NeedsCorrection: true, Terraformed: true},
		Position: mgl32.Vec3{1, 1, 1},
		Tick:     100,
		Mode:     game.ModeBall,
	}}
	deltas := []terrain.ChunkModifications{{
		Modifications: []terrain.VoxelModification{{Index: 42, Final: 12, Color: 3}},
	}}
	correction := []terrain.ChunkModifications{{
		NeedsCorrection: true,
		Modifications:   []terrain.VoxelModification{{Index: 42, Final: 12, Color: 3}},
	}}

	shared, err := EncodeSnapshotShared(players, deltas)
	require.NoError(t, err)

	data, err := AssembleSnapshot(Header{CurrentTick: 5}, shared, correction)
	require.NoError(t, err)

	header, msg, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, PacketGameStateSnapshot, header.Type)

	snapshot := msg.(*GameStateSnapshot)
	assert.Equal(t, players, snapshot.Players)
	assert.Equal(t, Downstream(deltas), snapshot.Deltas)
	assert.Equal(t, Downstream(correction), snapshot.Correction)
	assert.Equal(t, HeaderSize+len(shared)+CorrectionSize(correction), len(data))

	plain, err := AssembleSnapshot(Header{}, shared, nil)
	require.NoError(t, err)
	_, msg, err = Decode(plain)
	require.NoError(t, err)
	assert.Empty(t, msg.(*GameStateSnapshot).Correction)
}

func TestMalformed(t *testing.T) {
	_, _, err := Decode([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrShortPacket)

	data, err := Encode(Header{}, ConnectionRequest{Name: "bob"})
	require.NoError(t, err)

	_, _, err = Decode(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrShortPacket)

	bogus := append([]byte(nil), data...)
	bogus[0] = 200
	_, _, err = Decode(bogus)
	assert.ErrorIs(t, err, ErrUnknownPacket)
}

func TestTooLarge(t *testing.T) {
	var chunks []*terrain.Chunk
	for i := 0; i < 20; i++ {
		chunk := &terrain.Chunk{}
		for j := range chunk.Voxels {
			chunk.Voxels[j] = 100
		}
		chunks = append(chunks, chunk)
	}

	_, err := Encode(Header{}, ChunkVoxels{Chunks: chunks})
	assert.ErrorIs(t, err, ErrDatagramTooLarge)
}
