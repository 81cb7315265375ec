// Package client is the player's side of a connection: it predicts the
// local player, streams commands to the server, applies what the server
// sends back and interpolates everyone else.
package client

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/llguy/voxsync/pkg/game"
	"github.com/llguy/voxsync/pkg/interp"
	"github.com/llguy/voxsync/pkg/predict"
	"github.com/llguy/voxsync/pkg/protocol"
	"github.com/llguy/voxsync/pkg/terrain"
	"github.com/llguy/voxsync/pkg/transport"
	"github.com/llguy/voxsync/pkg/utils"
)

const (
	// How often the connection request is repeated until answered.
	RETRY_INTERVAL = time.Second
)

var ErrDisconnected = errors.New("disconnected by server")

type Transport interface {
	Poll() []transport.Datagram
	Send(addr *net.UDPAddr, data []byte) error
}

type Phase uint8

const (
	PhaseConnecting Phase = iota
	// Waiting for the world's chunks.
	PhaseLoading
	PhasePlaying
	PhaseDisconnected
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseLoading:
		return "loading"
	case PhasePlaying:
		return "playing"
	case PhaseDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Remote is another player, seen through interpolated snapshots.
type Remote struct {
	Info    protocol.PlayerInfo
	Current interp.Snapshot

	interpolator *interp.Interpolator
}

type Client struct {
	utils.Session

	Config     Config
	World      *terrain.World
	Simulation *game.Simulation
	// Nil until the handshake arrives.
	Predictor *predict.Predictor
	Remotes   map[uint16]*Remote

	ID    uint16
	Phase Phase
	// Set when the server turned us away.
	Reason protocol.DisconnectReason

	ExpectedChunks int
	LoadedChunks   int
	Corrections    int

	transport Transport
	server    *net.UDPAddr
	encoder   game.Encoder

	tick         uint64
	sequence     uint32
	sinceCommand time.Duration
	sinceRequest time.Duration
}

func New(ctx context.Context, config Config, server *net.UDPAddr, transport Transport) *Client {
	world := terrain.NewWorld()
	return &Client{
		Session:    utils.NewSession(ctx),
		Config:     config,
		World:      world,
		Simulation: game.NewSimulation(world),
		Remotes:    make(map[uint16]*Remote),
		transport:  transport,
		server:     server,
		// Send the first request right away.
		sinceRequest: RETRY_INTERVAL,
	}
}

// Player returns the local player, or nil before the handshake.
func (c *Client) Player() *game.Player {
	if c.Predictor == nil {
		return nil
	}
	return c.Predictor.Player
}

func (c *Client) send(msg protocol.Message) {
	c.sequence++
	data, err := protocol.Encode(protocol.Header{
		CurrentTick: c.tick,
		Sequence:    c.sequence,
		ClientID:    c.ID,
	}, msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode message")
		return
	}

	err = c.transport.Send(c.server, data)
	if err != nil {
		log.Debug().Err(err).Msg("failed to send")
	}
}

// Spawn asks for the local player to be dropped into the world.
func (c *Client) Spawn() {
	if c.Phase != PhasePlaying || c.Predictor.Player.Alive == game.Alive {
		return
	}
	c.Predictor.RequestSpawn()
}

// Tick runs one frame: handle what arrived, predict the local player from
// device, send commands when due and move remote players along.
func (c *Client) Tick(dt time.Duration, device game.DeviceState) {
	c.tick++

	for _, datagram := range c.transport.Poll() {
		c.HandleDatagram(datagram)
	}

	seconds := float32(dt.Seconds())

	switch c.Phase {
	case PhaseConnecting:
		c.sinceRequest += dt
		if c.sinceRequest >= RETRY_INTERVAL {
			c.sinceRequest = 0
			c.send(protocol.ConnectionRequest{Name: c.Config.Name})
		}
	case PhasePlaying:
		action := c.encoder.Encode(device, c.tick, seconds)
		c.Predictor.Apply(action)

		c.sinceCommand += dt
		if c.sinceCommand >= c.Config.CommandInterval {
			c.sinceCommand = 0
			c.sendCommands()
		}
	}

	for _, remote := range c.Remotes {
		if snapshot, ok := remote.interpolator.Advance(seconds); ok {
			remote.Current = snapshot
		}
	}
}

func (c *Client) sendCommands() {
	commands := c.Predictor.Flush(c.tick)
	state := commands.State
	c.send(protocol.ClientCommands{
		Actions:       commands.Actions,
		Position:      state.Position,
		ViewDirection: state.ViewDirection,
		UpVector:      state.UpVector,
		Velocity:      state.Velocity,
		Flags: protocol.PlayerFlags{
			Mode:    state.Mode,
			Alive:   state.Alive,
			Contact: state.Contact,
		},
		DidCorrection:  commands.DidCorrection,
		RequestedSpawn: commands.RequestedSpawn,
		Modifications:  commands.Modifications,
	})
}

// Disconnect tells the server we are leaving.
func (c *Client) Disconnect() {
	if c.Phase != PhaseConnecting && c.Phase != PhaseDisconnected {
		c.send(protocol.ClientDisconnect{})
	}
	c.Phase = PhaseDisconnected
	c.Cancel()
}

// Input produces the device state for the next frame.
type Input interface {
	Input(client *Client, dt float32) game.DeviceState
}

// Run ticks the client at its configured rate until ctx ends or the
// server drops us.
func (c *Client) Run(ctx context.Context, input Input) error {
	ticker := time.NewTicker(c.Config.TickDuration())
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			c.Disconnect()
			return nil
		case <-c.Ctx().Done():
			err := c.Cause()
			if errors.Is(err, ErrDisconnected) {
				return err
			}
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			c.Tick(dt, input.Input(c, float32(dt.Seconds())))
		}
	}
}
