// Package server runs the authoritative simulation: it replays every
// client's actions against the canonical world, checks them against what the
// client predicted and streams snapshots back.
package server

import (
	"context"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/llguy/voxsync/pkg/game"
	"github.com/llguy/voxsync/pkg/protocol"
	"github.com/llguy/voxsync/pkg/terrain"
	"github.com/llguy/voxsync/pkg/transport"
	"github.com/llguy/voxsync/pkg/utils"
	"github.com/llguy/voxsync/pkg/worldio"
)

// Transport is the datagram socket the server talks through.
type Transport interface {
	Poll() []transport.Datagram
	Send(addr *net.UDPAddr, data []byte) error
}

type EventKind uint8

const (
	EventJoined EventKind = iota
	EventLeft
)

func (k EventKind) String() string {
	switch k {
	case EventJoined:
		return "joined"
	case EventLeft:
		return "left"
	}
	return "unknown"
}

// Event describes a change to the roster. It is published for collaborators
// outside the simulation loop.
type Event struct {
	Kind     EventKind
	ClientID uint16
	Name     string
	Address  string
	Reason   protocol.DisconnectReason
	Time     time.Time
}

type Server struct {
	utils.Session

	Config     Config
	World      *terrain.World
	Simulation *game.Simulation
	Clients    *ClientManager
	Events     *utils.Topic[Event]

	// Copies of the world taken every CheckpointInterval.
	Checkpoints *utils.Topic[worldio.Checkpoint]

	transport Transport
	rng       *rand.Rand

	tick           uint64
	sequence       uint32
	lastSnapshot   time.Time
	lastCheckpoint time.Time
}

// New builds a server around world. The world starts tracking writes, since
// every snapshot carries the edits of its interval.
func New(ctx context.Context, config Config, world *terrain.World, transport Transport) *Server {
	world.Track()
	return &Server{
		Session:     utils.NewSession(ctx),
		Config:      config,
		World:       world,
		Simulation:  game.NewSimulation(world),
		Clients:     NewClientManager(config.MaxClients),
		Events:      utils.NewTopic[Event](),
		Checkpoints: utils.NewTopic[worldio.Checkpoint](),
		transport:   transport,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateWorld fills an empty world with the configured planet.
func (s *Server) GenerateWorld() {
	terrain.GenerateSphere(s.World, s.Config.WorldRadius, s.Config.WorldColor)
	s.World.ResetTracking()
	log.Info().
		Int("chunks", s.World.Len()).
		Float32("radius", s.Config.WorldRadius).
		Msg("generated world")
}

func (s *Server) CurrentTick() uint64 {
	return s.tick
}

// Run ticks the server at the configured rate until ctx or the server's
// session ends.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Config.TickDuration())
	defer ticker.Stop()

	s.lastSnapshot = time.Now()
	s.lastCheckpoint = s.lastSnapshot

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.Ctx().Done():
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// Tick runs one iteration of the loop: handle received datagrams, simulate
// queued actions, then send whatever is due.
func (s *Server) Tick(now time.Time) {
	s.tick++

	for _, datagram := range s.transport.Poll() {
		s.HandleDatagram(datagram, now)
	}

	s.simulate()

	if now.Sub(s.lastSnapshot) >= s.Config.SnapshotInterval {
		s.dispatch()
		s.lastSnapshot = now
	}

	s.sendChunks(now)
	s.sweep(now)

	interval := s.Config.CheckpointInterval
	if interval > 0 && now.Sub(s.lastCheckpoint) >= interval {
		s.Checkpoints.Publish(worldio.Capture(s.World, s.tick))
		s.lastCheckpoint = now
	}
}

// RestoreTick continues counting from a checkpoint's tick.
func (s *Server) RestoreTick(tick uint64) {
	s.tick = tick
}

func (s *Server) header(clientID uint16) protocol.Header {
	s.sequence++
	return protocol.Header{
		CurrentTick: s.tick,
		Sequence:    s.sequence,
		ClientID:    clientID,
	}
}

func (s *Server) sendRaw(client *Client, data []byte) {
	err := s.transport.Send(client.Addr, data)
	if err != nil {
		log.Debug().Err(err).Str("client", client.String()).Msg("failed to send")
	}
}

func (s *Server) Send(client *Client, msg protocol.Message) {
	data, err := protocol.Encode(s.header(client.ID), msg)
	if err != nil {
		log.Error().Err(err).Str("client", client.String()).Msg("failed to encode message")
		return
	}
	s.sendRaw(client, data)
}

// Relay sends msg to every client except the given one.
func (s *Server) Relay(from *Client, msg protocol.Message) {
	for _, client := range s.Clients.All() {
		if client == from {
			continue
		}
		s.Send(client, msg)
	}
}

func (s *Server) playerInfo(client *Client, isLocal bool) protocol.PlayerInfo {
	player := client.Player
	return protocol.PlayerInfo{
		Name:          client.Name,
		ClientID:      client.ID,
		Position:      player.Position,
		ViewDirection: player.ViewDirection,
		UpVector:      player.UpVector,
		NextSpawn:     player.NextSpawn,
		DefaultSpeed:  player.DefaultSpeed,
		Flags: protocol.PlayerFlags{
			Mode:    player.Mode,
			Alive:   player.Alive,
			Contact: player.Contact,
			IsLocal: isLocal,
		},
	}
}

// Disconnect tears a client down and tells everyone else.
func (s *Server) Disconnect(client *Client, reason protocol.DisconnectReason) {
	s.Clients.Remove(client)
	s.Relay(client, protocol.PlayerLeft{
		ClientID: client.ID,
		Reason:   reason,
	})

	log.Info().
		Str("client", client.String()).
		Str("reason", reason.String()).
		Msg("client disconnected")

	s.Events.Publish(Event{
		Kind:     EventLeft,
		ClientID: client.ID,
		Name:     client.Name,
		Address:  client.Addr.String(),
		Reason:   reason,
		Time:     time.Now(),
	})
}

// sweep drops clients that have been silent for too long.
func (s *Server) sweep(now time.Time) {
	for _, client := range s.Clients.All() {
		if now.Sub(client.LastSeen) > s.Config.ClientTimeout {
			s.Disconnect(client, protocol.DisconnectTimeout)
		}
	}
}

// Shutdown tells every client the server is going away.
func (s *Server) Shutdown() {
	now := time.Now()
	for _, client := range s.Clients.All() {
		s.Send(client, protocol.PlayerLeft{
			ClientID: client.ID,
			Reason:   protocol.DisconnectShutdown,
		})
		s.Clients.Remove(client)
		s.Events.Publish(Event{
			Kind:     EventLeft,
			ClientID: client.ID,
			Name:     client.Name,
			Address:  client.Addr.String(),
			Reason:   protocol.DisconnectShutdown,
			Time:     now,
		})
	}

	log.Info().
		Dur("uptime", s.Uptime()).
		Uint64("tick", s.tick).
		Msg("server stopped")
	s.Cancel()
}
