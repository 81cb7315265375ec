package client

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/llguy/voxsync/pkg/game"
	"github.com/llguy/voxsync/pkg/interp"
	"github.com/llguy/voxsync/pkg/predict"
	"github.com/llguy/voxsync/pkg/protocol"
	"github.com/llguy/voxsync/pkg/terrain"
	"github.com/llguy/voxsync/pkg/transport"
)

func (c *Client) HandleDatagram(datagram transport.Datagram) {
	header, message, err := protocol.Decode(datagram.Data)
	if err != nil {
		log.Debug().Err(err).Msg("dropping malformed packet")
		return
	}

	switch msg := message.(type) {
	case *protocol.ConnectionHandshake:
		c.handleHandshake(header, msg)
	case *protocol.ChunkVoxels:
		c.handleChunks(msg)
	case *protocol.GameStateSnapshot:
		c.handleSnapshot(msg)
	case *protocol.PlayerJoined:
		c.addRemote(msg.Player)
	case *protocol.PlayerLeft:
		c.handleLeft(msg)
	default:
		log.Debug().Str("type", header.Type.String()).Msg("unexpected packet from server")
	}
}

func (c *Client) handleHandshake(header protocol.Header, handshake *protocol.ConnectionHandshake) {
	if c.Phase != PhaseConnecting {
		return
	}

	for _, info := range handshake.Players {
		if !info.Flags.IsLocal {
			c.addRemote(info)
			continue
		}

		player := game.NewPlayer(info.ClientID, info.Name)
		player.Position = info.Position
		player.ViewDirection = info.ViewDirection
		player.UpVector = info.UpVector
		player.NextSpawn = info.NextSpawn
		player.DefaultSpeed = info.DefaultSpeed
		player.Mode = info.Flags.Mode
		player.Alive = info.Flags.Alive
		player.Contact = info.Flags.Contact

		c.ID = info.ClientID
		c.Predictor = predict.New(c.Simulation, player)
	}

	if c.Predictor == nil {
		log.Warn().Msg("handshake did not include us")
		return
	}

	c.ExpectedChunks = int(handshake.LoadedChunks)
	c.Phase = PhaseLoading
	c.checkLoaded()

	log.Info().
		Uint16("id", c.ID).
		Int("players", len(handshake.Players)).
		Int("chunks", c.ExpectedChunks).
		Msg("connected")
}

func (c *Client) checkLoaded() {
	if c.Phase == PhaseLoading && c.LoadedChunks >= c.ExpectedChunks {
		c.Phase = PhasePlaying
		log.Info().Int("chunks", c.LoadedChunks).Msg("world loaded")
	}
}

func (c *Client) handleChunks(msg *protocol.ChunkVoxels) {
	for _, chunk := range msg.Chunks {
		c.World.Load(chunk)
	}
	c.LoadedChunks += len(msg.Chunks)
	c.checkLoaded()
}

func (c *Client) addRemote(info protocol.PlayerInfo) {
	if info.ClientID == c.ID && c.Predictor != nil {
		return
	}

	interpolator := interp.New(c.Config.InterpolationBuffer, float32(c.Config.SnapshotInterval.Seconds()))
	current := interp.Snapshot{
		Position:      info.Position,
		ViewDirection: info.ViewDirection,
		UpVector:      info.UpVector,
		Mode:          info.Flags.Mode,
		Alive:         info.Flags.Alive,
	}
	c.Remotes[info.ClientID] = &Remote{
		Info:         info,
		Current:      current,
		interpolator: interpolator,
	}
}

func (c *Client) handleLeft(msg *protocol.PlayerLeft) {
	if msg.ClientID == protocol.NoClient || (c.Predictor != nil && msg.ClientID == c.ID) {
		log.Warn().Str("reason", msg.Reason.String()).Msg("server disconnected us")
		c.Reason = msg.Reason
		c.Phase = PhaseDisconnected
		c.End(fmt.Errorf("%s: %w", msg.Reason, ErrDisconnected))
		return
	}

	delete(c.Remotes, msg.ClientID)
}

func (c *Client) handleSnapshot(snapshot *protocol.GameStateSnapshot) {
	if c.Predictor == nil {
		return
	}

	own := false
	for _, player := range snapshot.Players {
		if player.ClientID == c.ID {
			own = true
			c.handleOwnSnapshot(player, snapshot.Correction)
			continue
		}

		remote, ok := c.Remotes[player.ClientID]
		if !ok {
			continue
		}
		remote.interpolator.Push(interp.Snapshot{
			Position:      player.Position,
			ViewDirection: player.ViewDirection,
			UpVector:      player.UpVector,
			Mode:          player.Mode,
			Alive:         player.Alive,
		})
	}

	// The rest of a correction too large for one datagram arrives without
	// a player block.
	if !own && len(snapshot.Correction) > 0 {
		c.World.Apply(snapshot.Correction, terrain.Downstream)
	}

	c.Predictor.ApplyDeltas(snapshot.Deltas)
}

func (c *Client) handleOwnSnapshot(snapshot protocol.PlayerSnapshot, correction []terrain.ChunkModifications) {
	predictor := c.Predictor
	predictor.Player.NextSpawn = snapshot.NextSpawn

	if snapshot.Flags.Terraformed {
		predictor.Confirm(snapshot.TerraformTick)
	}

	switch {
	case snapshot.Flags.NeedsCorrection:
		c.Corrections++
		log.Info().
			Uint64("tick", snapshot.Tick).
			Bool("terrain", snapshot.Flags.ContainsTerrainCorrection).
			Msg("correcting prediction")
		predictor.ApplyCorrection(snapshot.State(), correction)
	case snapshot.Flags.ServerWaiting:
		predictor.Retry()
	}
}
