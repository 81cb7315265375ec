package protocol

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/llguy/voxsync/pkg/game"
	"github.com/llguy/voxsync/pkg/protocol/io"
	"github.com/llguy/voxsync/pkg/terrain"
)

// NoClient is the client id used when addressing someone that has none.
const NoClient = 0xFFFF

type Message interface {
	Type() PacketType
}

type ConnectionRequest struct {
	Name string
}

func (m ConnectionRequest) Type() PacketType { return PacketConnectionRequest }

type PlayerFlags struct {
	Mode    game.InteractionMode
	Alive   game.AliveState
	Contact game.ContactState
	IsLocal bool
}

type PlayerInfo struct {
	Name          string
	ClientID      uint16
	Position      mgl32.Vec3
	ViewDirection mgl32.Vec3
	UpVector      mgl32.Vec3
	NextSpawn     mgl32.Vec3
	DefaultSpeed  float32
	Flags         PlayerFlags
}

type ConnectionHandshake struct {
	LoadedChunks uint32
	Players      []PlayerInfo
}

func (m ConnectionHandshake) Type() PacketType { return PacketConnectionHandshake }

// ChunkVoxels carries whole chunks, each as its coordinate followed by its
// run-length encoded voxels.
type ChunkVoxels struct {
	Chunks []*terrain.Chunk
}

func (m ChunkVoxels) Type() PacketType { return PacketChunkVoxels }

func (m ChunkVoxels) Marshal(p *io.Buffer) error {
	p.PutUint32(uint32(len(m.Chunks)))
	for _, chunk := range m.Chunks {
		*p = terrain.EncodeChunk(*p, chunk)
	}
	return nil
}

// Smallest possible chunk: a coordinate and a single run marker.
const minimumChunkSize = 6 + 5

func (m *ChunkVoxels) Unmarshal(p *io.Buffer) error {
	count, ok := p.GetUint32()
	if !ok {
		return io.ErrShortBuffer
	}
	if int(count)*minimumChunkSize > p.Len() {
		return fmt.Errorf("%d chunks in %d bytes: %w", count, p.Len(), ErrShortPacket)
	}

	m.Chunks = make([]*terrain.Chunk, 0, count)
	for i := 0; i < int(count); i++ {
		chunk, n, err := terrain.DecodeChunk(*p)
		if err != nil {
			return err
		}
		p.Skip(n)
		m.Chunks = append(m.Chunks, chunk)
	}
	return nil
}

// Upstream is a list of chunk edits sent by a client, carrying initial
// values.
type Upstream []terrain.ChunkModifications

func (u Upstream) Marshal(p *io.Buffer) error {
	terrain.EncodeModifications(p, u, terrain.Upstream)
	return nil
}

func (u *Upstream) Unmarshal(p *io.Buffer) error {
	chunks, err := terrain.DecodeModifications(p, terrain.Upstream)
	if err != nil {
		return err
	}
	*u = chunks
	return nil
}

// Downstream is a list of chunk edits sent by the server, carrying colors.
type Downstream []terrain.ChunkModifications

func (d Downstream) Marshal(p *io.Buffer) error {
	terrain.EncodeModifications(p, d, terrain.Downstream)
	return nil
}

func (d *Downstream) Unmarshal(p *io.Buffer) error {
	chunks, err := terrain.DecodeModifications(p, terrain.Downstream)
	if err != nil {
		return err
	}
	*d = chunks
	return nil
}

type ClientCommands struct {
	Actions        []game.PlayerAction
	Position       mgl32.Vec3
	ViewDirection  mgl32.Vec3
	UpVector       mgl32.Vec3
	Velocity       mgl32.Vec3
	Flags          PlayerFlags
	DidCorrection  bool
	RequestedSpawn bool
	Modifications  Upstream
}

func (m ClientCommands) Type() PacketType { return PacketClientCommands }

// State returns the reported player state.
func (m *ClientCommands) State() game.State {
	return game.State{
		Position:      m.Position,
		ViewDirection: m.ViewDirection,
		UpVector:      m.UpVector,
		Velocity:      m.Velocity,
		Mode:          m.Flags.Mode,
		Alive:         m.Flags.Alive,
		Contact:       m.Flags.Contact,
	}
}

type SnapshotFlags struct {
	NeedsCorrection           bool
	ServerWaiting             bool
	ContainsTerrainCorrection bool
	Terraformed               bool
}

func (f SnapshotFlags) Marshal(p *io.Buffer) error {
	var bits byte
	for i, on := range []bool{f.NeedsCorrection, f.ServerWaiting, f.ContainsTerrainCorrection, f.Terraformed} {
		if on {
			bits |= 1 << i
		}
	}
	p.PutByte(bits)
	return nil
}

func (f *SnapshotFlags) Unmarshal(p *io.Buffer) error {
	bits, ok := p.GetByte()
	if !ok {
		return io.ErrShortBuffer
	}
	f.NeedsCorrection = bits&1 != 0
	f.ServerWaiting = bits&2 != 0
	f.ContainsTerrainCorrection = bits&4 != 0
	f.Terraformed = bits&8 != 0
	return nil
}

type PlayerSnapshot struct {
	ClientID      uint16
	Flags         SnapshotFlags
	Position      mgl32.Vec3
	ViewDirection mgl32.Vec3
	UpVector      mgl32.Vec3
	Velocity      mgl32.Vec3
	NextSpawn     mgl32.Vec3
	Tick          uint64
	TerraformTick uint64
	Mode          game.InteractionMode
	Alive         game.AliveState
	Contact       game.ContactState
}

func (s *PlayerSnapshot) State() game.State {
	return game.State{
		Position:      s.Position,
		ViewDirection: s.ViewDirection,
		UpVector:      s.UpVector,
		Velocity:      s.Velocity,
		Mode:          s.Mode,
		Alive:         s.Alive,
		Contact:       s.Contact,
		DefaultSpeed:  game.WalkingSpeed,
		NextSpawn:     s.NextSpawn,
	}
}

// GameStateSnapshot is the periodic authoritative update. Correction is
// addressed to the receiving client only and always comes last.
type GameStateSnapshot struct {
	Players    []PlayerSnapshot
	Deltas     Downstream
	Correction Downstream
}

func (m GameStateSnapshot) Type() PacketType { return PacketGameStateSnapshot }

type PlayerJoined struct {
	Player PlayerInfo
}

func (m PlayerJoined) Type() PacketType { return PacketPlayerJoined }

type PlayerLeft struct {
	ClientID uint16
	Reason   DisconnectReason
}

func (m PlayerLeft) Type() PacketType { return PacketPlayerLeft }

type ClientDisconnect struct{}

func (m ClientDisconnect) Type() PacketType { return PacketClientDisconnect }
