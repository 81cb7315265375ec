// Package protocol defines the datagrams exchanged between server and
// clients.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/llguy/voxsync/pkg/protocol/io"
	"github.com/llguy/voxsync/pkg/terrain"
)

const (
	HeaderSize      = 19
	MaxDatagramSize = 65507

	totalSizeOffset = 1 + 8 + 4
)

var (
	ErrShortPacket      = errors.New("short packet")
	ErrUnknownPacket    = errors.New("unknown packet type")
	ErrDatagramTooLarge = errors.New("datagram too large")
)

type Header struct {
	Type        PacketType
	CurrentTick uint64
	Sequence    uint32
	TotalSize   uint32
	ClientID    uint16
}

func (h Header) Marshal(p *io.Buffer) error {
	p.PutByte(byte(h.Type))
	p.PutUint64(h.CurrentTick)
	p.PutUint32(h.Sequence)
	p.PutUint32(h.TotalSize)
	p.PutUint16(h.ClientID)
	return nil
}

func (h *Header) Unmarshal(p *io.Buffer) error {
	raw, ok := p.GetBytes(HeaderSize)
	if !ok {
		return ErrShortPacket
	}
	b := io.Buffer(raw)
	kind, _ := b.GetByte()
	h.Type = PacketType(kind)
	h.CurrentTick, _ = b.GetUint64()
	h.Sequence, _ = b.GetUint32()
	h.TotalSize, _ = b.GetUint32()
	h.ClientID, _ = b.GetUint16()
	return nil
}

// Finalize writes the packet's length into its header.
func Finalize(packet []byte) {
	binary.LittleEndian.PutUint32(packet[totalSizeOffset:], uint32(len(packet)))
}

// Encode serializes msg behind header. The header's type and total size
// are filled in.
func Encode(header Header, msg Message) ([]byte, error) {
	header.Type = msg.Type()

	var body interface{} = msg
	if value := reflect.ValueOf(msg); value.Kind() == reflect.Pointer {
		body = value.Elem().Interface()
	}

	p := io.Buffer{}
	err := io.Marshal(&p, header, body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", header.Type, err)
	}

	if len(p) > MaxDatagramSize {
		return nil, fmt.Errorf("%s is %d bytes: %w", header.Type, len(p), ErrDatagramTooLarge)
	}

	Finalize(p)
	return p, nil
}

func newMessage(kind PacketType) (Message, error) {
	switch kind {
	case PacketConnectionRequest:
		return &ConnectionRequest{}, nil
	case PacketConnectionHandshake:
		return &ConnectionHandshake{}, nil
	case PacketChunkVoxels:
		return &ChunkVoxels{}, nil
	case PacketClientCommands:
		return &ClientCommands{}, nil
	case PacketGameStateSnapshot:
		return &GameStateSnapshot{}, nil
	case PacketPlayerJoined:
		return &PlayerJoined{}, nil
	case PacketPlayerLeft:
		return &PlayerLeft{}, nil
	case PacketClientDisconnect:
		return &ClientDisconnect{}, nil
	}
	return nil, fmt.Errorf("%d: %w", kind, ErrUnknownPacket)
}

// Decode parses one datagram. Any malformed input is an error and nothing
// is returned.
func Decode(data []byte) (Header, Message, error) {
	var header Header
	p := io.Buffer(data)
	err := header.Unmarshal(&p)
	if err != nil {
		return Header{}, nil, err
	}

	if int(header.TotalSize) != len(data) {
		return Header{}, nil, fmt.Errorf(
			"header says %d bytes, got %d: %w",
			header.TotalSize,
			len(data),
			ErrShortPacket,
		)
	}

	msg, err := newMessage(header.Type)
	if err != nil {
		return Header{}, nil, err
	}

	err = io.Unmarshal(&p, msg)
	if err != nil {
		return Header{}, nil, fmt.Errorf("failed to decode %s: %w", header.Type, err)
	}

	return header, msg, nil
}

// EncodeSnapshotShared serializes the part of a snapshot every client
// receives: the player block and the terrain deltas.
func EncodeSnapshotShared(players []PlayerSnapshot, deltas []terrain.ChunkModifications) (io.Buffer, error) {
	p := io.Buffer{}
	err := io.Marshal(&p, struct {
		Players []PlayerSnapshot
		Deltas  Downstream
	}{players, deltas})
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return p, nil
}

// CorrectionSize is the encoded size of a correction payload.
func CorrectionSize(correction []terrain.ChunkModifications) int {
	size := 4
	for _, chunk := range correction {
		size += 9 + 4*len(chunk.Modifications)
	}
	return size
}

// AssembleSnapshot puts a header, a shared snapshot part and one client's
// correction into a single datagram.
func AssembleSnapshot(header Header, shared io.Buffer, correction []terrain.ChunkModifications) ([]byte, error) {
	header.Type = PacketGameStateSnapshot

	p := make(io.Buffer, 0, HeaderSize+len(shared)+CorrectionSize(correction))
	header.Marshal(&p)
	p = append(p, shared...)
	terrain.EncodeModifications(&p, correction, terrain.Downstream)

	if len(p) > MaxDatagramSize {
		return nil, fmt.Errorf("snapshot is %d bytes: %w", len(p), ErrDatagramTooLarge)
	}

	Finalize(p)
	return p, nil
}
