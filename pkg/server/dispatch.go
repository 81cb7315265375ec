package server

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/llguy/voxsync/pkg/protocol"
	"github.com/llguy/voxsync/pkg/protocol/io"
	"github.com/llguy/voxsync/pkg/reconcile"
	"github.com/llguy/voxsync/pkg/terrain"
)

// Room left in a snapshot datagram once the header and an empty correction
// list are accounted for.
const snapshotBudget = protocol.MaxDatagramSize - protocol.HeaderSize - 4

func modificationsSize(chunk terrain.ChunkModifications) int {
	return protocol.CorrectionSize([]terrain.ChunkModifications{chunk}) - 4
}

// groupBySize splits chunks into consecutive groups whose encoded size does
// not exceed budget.
func groupBySize(chunks []terrain.ChunkModifications, budget int) [][]terrain.ChunkModifications {
	var groups [][]terrain.ChunkModifications
	var current []terrain.ChunkModifications
	used := 0
	for _, chunk := range chunks {
		size := modificationsSize(chunk)
		if len(current) > 0 && used+size > budget {
			groups = append(groups, current)
			current = nil
			used = 0
		}
		current = append(current, chunk)
		used += size
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// snapshotLayout is the encoded form of the part of a snapshot that every
// client shares. Only the last part lists the players, so a client sees each
// player once per dispatch however many datagrams it takes.
type snapshotLayout struct {
	// Parts sent ahead of the last one when the deltas do not fit into a
	// single datagram.
	leading []io.Buffer
	// The player block and the remaining deltas.
	last io.Buffer
	// No players and no deltas, for corrections that need datagrams of
	// their own.
	bare io.Buffer
}

func layoutSnapshot(players []protocol.PlayerSnapshot, deltas []terrain.ChunkModifications) (snapshotLayout, error) {
	var layout snapshotLayout

	last, err := protocol.EncodeSnapshotShared(players, deltas)
	if err != nil {
		return layout, err
	}

	layout.bare, err = protocol.EncodeSnapshotShared(nil, nil)
	if err != nil {
		return layout, err
	}

	if len(last) <= snapshotBudget {
		layout.last = last
		return layout, nil
	}

	block, err := protocol.EncodeSnapshotShared(players, nil)
	if err != nil {
		return layout, err
	}

	remaining := snapshotBudget - len(block)
	if remaining <= 0 {
		return layout, fmt.Errorf("%d players: %w", len(players), protocol.ErrDatagramTooLarge)
	}

	groups := groupBySize(deltas, remaining)
	for i, group := range groups {
		if i < len(groups)-1 {
			part, err := protocol.EncodeSnapshotShared(nil, group)
			if err != nil {
				return layout, err
			}
			layout.leading = append(layout.leading, part)
			continue
		}

		layout.last, err = protocol.EncodeSnapshotShared(players, group)
		if err != nil {
			return layout, err
		}
	}

	return layout, nil
}

// datagrams produces one client's snapshot datagrams. The correction rides
// on the last shared part if it fits and gets datagrams of its own
// otherwise.
func (l snapshotLayout) datagrams(next func() protocol.Header, correction []terrain.ChunkModifications) ([][]byte, error) {
	var packets [][]byte
	add := func(shared io.Buffer, correction []terrain.ChunkModifications) error {
		packet, err := protocol.AssembleSnapshot(next(), shared, correction)
		if err != nil {
			return err
		}
		packets = append(packets, packet)
		return nil
	}

	for _, part := range l.leading {
		if err := add(part, nil); err != nil {
			return nil, err
		}
	}

	if protocol.HeaderSize+len(l.last)+protocol.CorrectionSize(correction) <= protocol.MaxDatagramSize {
		if err := add(l.last, correction); err != nil {
			return nil, err
		}
		return packets, nil
	}

	if err := add(l.last, nil); err != nil {
		return nil, err
	}

	for _, group := range groupBySize(correction, snapshotBudget-len(l.bare)) {
		if err := add(l.bare, group); err != nil {
			return nil, err
		}
	}

	return packets, nil
}

func (s *Server) playerSnapshot(client *Client) protocol.PlayerSnapshot {
	player := client.Player
	snapshot := protocol.PlayerSnapshot{
		ClientID:      client.ID,
		Position:      player.Position,
		ViewDirection: player.ViewDirection,
		UpVector:      player.UpVector,
		Velocity:      player.Velocity,
		NextSpawn:     player.NextSpawn,
		Tick:          client.Tick,
		Mode:          player.Mode,
		Alive:         player.Alive,
		Contact:       player.Contact,
	}

	if client.Terraformed {
		snapshot.Flags.Terraformed = true
		snapshot.TerraformTick = client.TerraformTick
	}

	return snapshot
}

// reconcile checks what client predicted against the authoritative state.
// It returns the terrain correction to send, if any.
func (s *Server) reconcile(client *Client, snapshot *protocol.PlayerSnapshot) []terrain.ChunkModifications {
	stateDiverged := reconcile.NeedsStateCorrection(client.Player.State, client.Reported, s.Config.Epsilon)
	terrainDiverged := reconcile.CorrectTerrain(s.World, client.Pending)

	decision := client.Tracker.Evaluate(stateDiverged || terrainDiverged)
	if decision.Waiting {
		snapshot.Flags.ServerWaiting = true
		return nil
	}
	if !decision.Correct {
		return nil
	}

	log.Info().
		Str("client", client.String()).
		Uint64("tick", client.Tick).
		Bool("state", stateDiverged).
		Bool("terrain", terrainDiverged).
		Msg("client needs to correct")

	snapshot.Flags.NeedsCorrection = true
	client.Actions.Clear()

	if !terrainDiverged {
		return nil
	}

	snapshot.Flags.ContainsTerrainCorrection = true
	return client.Pending.Clone().Chunks
}

// dispatch sends every active client a snapshot of all players and the
// terrain changed since the previous dispatch.
func (s *Server) dispatch() {
	clients := s.Clients.Active()

	players := make([]protocol.PlayerSnapshot, 0, len(clients))
	recipients := make([]*Client, 0, len(clients))
	corrections := make(map[*Client][]terrain.ChunkModifications)

	for _, client := range clients {
		snapshot := s.playerSnapshot(client)

		if client.fresh {
			corrections[client] = s.reconcile(client, &snapshot)
			recipients = append(recipients, client)
		}

		players = append(players, snapshot)
	}

	deltas := s.World.IntervalDeltas()

	if len(recipients) > 0 {
		layout, err := layoutSnapshot(players, deltas)
		if err != nil {
			log.Error().Err(err).Msg("failed to lay out snapshot")
		} else {
			for _, client := range recipients {
				next := func() protocol.Header { return s.header(client.ID) }
				packets, err := layout.datagrams(next, corrections[client])
				if err != nil {
					log.Error().Err(err).Str("client", client.String()).Msg("failed to build snapshot")
					continue
				}
				for _, packet := range packets {
					s.sendRaw(client, packet)
				}
			}
		}
	}

	for _, client := range clients {
		client.fresh = false
		client.shouldSetTick = true
		client.Terraformed = false
		client.TerraformTick = 0
		client.Pending.Reset()
	}

	s.World.ResetTracking()
}
