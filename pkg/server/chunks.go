package server

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/llguy/voxsync/pkg/protocol"
	"github.com/llguy/voxsync/pkg/protocol/io"
	"github.com/llguy/voxsync/pkg/terrain"
)

// Room for encoded chunks in one ChunkVoxels datagram.
const chunkBudget = protocol.MaxDatagramSize - protocol.HeaderSize - 4

// packChunks encodes as many of the queued chunks as fit in one datagram
// body. It returns the body and the chunks left over. Chunks that no longer
// exist are skipped.
func packChunks(world *terrain.World, queue []terrain.Coord) (io.Buffer, []terrain.Coord) {
	var encoded []byte
	count := 0

	for len(queue) > 0 {
		chunk, ok := world.Chunk(queue[0])
		if !ok {
			queue = queue[1:]
			continue
		}

		before := len(encoded)
		encoded = terrain.EncodeChunk(encoded, chunk)
		if len(encoded) > chunkBudget && count > 0 {
			encoded = encoded[:before]
			break
		}

		count++
		queue = queue[1:]
	}

	body := make(io.Buffer, 0, 4+len(encoded))
	body.PutUint32(uint32(count))
	body = append(body, encoded...)
	return body, queue
}

func (s *Server) chunkDatagram(client *Client, body io.Buffer) []byte {
	header := s.header(client.ID)
	header.Type = protocol.PacketChunkVoxels

	packet := make(io.Buffer, 0, protocol.HeaderSize+len(body))
	header.Marshal(&packet)
	packet = append(packet, body...)
	protocol.Finalize(packet)
	return packet
}

// sendChunks sends each client still loading the world its next datagram
// of chunks, at most one per transfer interval.
func (s *Server) sendChunks(now time.Time) {
	for _, client := range s.Clients.All() {
		if !client.TransferringChunks() || !client.limiter.AllowN(now, 1) {
			continue
		}

		body, rest := packChunks(s.World, client.chunks)
		client.chunks = rest
		s.sendRaw(client, s.chunkDatagram(client, body))

		if len(rest) == 0 {
			log.Debug().
				Str("client", client.String()).
				Msg("finished sending chunks")
		}
	}
}
