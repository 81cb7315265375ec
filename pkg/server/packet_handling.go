package server

import (
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/llguy/voxsync/pkg/game"
	"github.com/llguy/voxsync/pkg/protocol"
	"github.com/llguy/voxsync/pkg/terrain"
	"github.com/llguy/voxsync/pkg/transport"
)

const (
	MAX_NAME_LENGTH = 32
	DEFAULT_NAME    = "unnamed"
)

func sanitizeName(name string) string {
	runes := []rune(name)
	if len(runes) > MAX_NAME_LENGTH {
		runes = runes[:MAX_NAME_LENGTH]
	}
	if len(runes) == 0 {
		return DEFAULT_NAME
	}
	return string(runes)
}

// HandleDatagram decodes one datagram and acts on it. Anything malformed or
// unexpected is dropped without touching state.
func (s *Server) HandleDatagram(datagram transport.Datagram, now time.Time) {
	header, message, err := protocol.Decode(datagram.Data)
	if err != nil {
		log.Debug().
			Err(err).
			Str("addr", datagram.Addr.String()).
			Msg("dropping malformed packet")
		return
	}

	if request, ok := message.(*protocol.ConnectionRequest); ok {
		s.handleConnect(datagram.Addr, request, now)
		return
	}

	client := s.Clients.GetClientByAddr(datagram.Addr)
	if client == nil {
		log.Debug().
			Str("addr", datagram.Addr.String()).
			Str("type", header.Type.String()).
			Msg("packet from unknown address")
		return
	}

	if header.ClientID != client.ID {
		log.Debug().
			Str("client", client.String()).
			Uint16("claimed", header.ClientID).
			Msg("packet with wrong client id")
		return
	}

	client.LastSeen = now

	switch msg := message.(type) {
	case *protocol.ClientCommands:
		s.handleCommands(client, header, msg)
	case *protocol.ClientDisconnect:
		s.Disconnect(client, protocol.DisconnectQuit)
	default:
		log.Debug().
			Str("client", client.String()).
			Str("type", header.Type.String()).
			Msg("unexpected packet from client")
	}
}

func (s *Server) handleConnect(addr *net.UDPAddr, request *protocol.ConnectionRequest, now time.Time) {
	// The handshake was lost; send it again.
	if existing := s.Clients.GetClientByAddr(addr); existing != nil {
		existing.LastSeen = now
		s.sendHandshake(existing)
		return
	}

	client, err := s.Clients.Add(addr, sanitizeName(request.Name), now, s.Config.ChunkTransferInterval)
	if errors.Is(err, ErrServerFull) {
		log.Warn().Str("addr", addr.String()).Msg("rejecting client, server is full")
		data, err := protocol.Encode(s.header(protocol.NoClient), protocol.PlayerLeft{
			ClientID: protocol.NoClient,
			Reason:   protocol.DisconnectFull,
		})
		if err == nil {
			_ = s.transport.Send(addr, data)
		}
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("could not add client")
		return
	}

	client.Player.NextSpawn = game.RandomSpawn(s.rng)

	s.sendHandshake(client)
	s.Relay(client, protocol.PlayerJoined{
		Player: s.playerInfo(client, false),
	})

	chunks := s.World.Chunks()
	client.chunks = make([]terrain.Coord, len(chunks))
	for i, chunk := range chunks {
		client.chunks[i] = chunk.Coord
	}

	log.Info().
		Str("client", client.String()).
		Str("addr", addr.String()).
		Int("chunks", len(chunks)).
		Msg("client connected")

	s.Events.Publish(Event{
		Kind:     EventJoined,
		ClientID: client.ID,
		Name:     client.Name,
		Address:  addr.String(),
		Time:     now,
	})
}

func (s *Server) sendHandshake(client *Client) {
	handshake := protocol.ConnectionHandshake{
		LoadedChunks: uint32(s.World.Len()),
	}
	for _, other := range s.Clients.All() {
		handshake.Players = append(handshake.Players, s.playerInfo(other, other == client))
	}
	s.Send(client, handshake)
}

func (s *Server) handleCommands(client *Client, header protocol.Header, commands *protocol.ClientCommands) {
	client.ReceivedCommands = true
	client.fresh = true

	player := client.Player

	if commands.RequestedSpawn {
		player.Spawn()
		player.NextSpawn = game.RandomSpawn(s.rng)
		log.Debug().Str("client", client.String()).Msg("spawned")
	}

	if commands.DidCorrection && client.Tracker.Acknowledge() {
		client.Actions.Clear()
		client.Pending.Reset()
		log.Debug().
			Str("client", client.String()).
			Msg("correction acknowledged")
	}

	// Until the correction is acknowledged, everything the client predicted
	// builds on a state we already rejected.
	if !client.Tracker.Accepting() {
		return
	}

	if client.shouldSetTick {
		client.Tick = header.CurrentTick
		client.shouldSetTick = false
	}

	dropped := 0
	for _, action := range commands.Actions {
		if !client.Actions.Push(action) {
			dropped++
		}
	}
	if dropped > 0 {
		log.Warn().
			Str("client", client.String()).
			Int("dropped", dropped).
			Msg("action queue full")
	}

	client.Reported = commands.State()

	if len(commands.Modifications) == 0 {
		return
	}

	client.Terraformed = true
	client.TerraformTick = header.CurrentTick

	err := terrain.Merge(client.Pending, commands.Modifications)
	if err != nil {
		log.Warn().
			Err(err).
			Str("client", client.String()).
			Int("chunks", len(commands.Modifications)).
			Msg("dropping predicted terrain edits")
	}
}
