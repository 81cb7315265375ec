package protocol

import "strconv"

type PacketType uint8

const (
	PacketConnectionRequest PacketType = iota
	PacketConnectionHandshake
	PacketChunkVoxels
	PacketClientCommands
	PacketGameStateSnapshot
	PacketPlayerJoined
	PacketPlayerLeft
	PacketClientDisconnect
)

func (t PacketType) String() string {
	switch t {
	case PacketConnectionRequest:
		return "ConnectionRequest"
	case PacketConnectionHandshake:
		return "ConnectionHandshake"
	case PacketChunkVoxels:
		return "ChunkVoxels"
	case PacketClientCommands:
		return "ClientCommands"
	case PacketGameStateSnapshot:
		return "GameStateSnapshot"
	case PacketPlayerJoined:
		return "PlayerJoined"
	case PacketPlayerLeft:
		return "PlayerLeft"
	case PacketClientDisconnect:
		return "ClientDisconnect"
	default:
		return strconv.Itoa(int(t))
	}
}
