package server

import (
	"github.com/llguy/voxsync/pkg/game"
)

// simulate replays every queued action against the canonical players and
// world. Terrain edits are recorded by the world for the next dispatch.
func (s *Server) simulate() {
	for _, client := range s.Clients.Active() {
		for _, action := range client.Actions.Drain() {
			// A dead client's actions drive its spectator and never reach us
			// intentionally.
			if client.Player.Alive != game.Alive {
				continue
			}
			s.Simulation.Execute(client.Player, action)
		}
	}
}
