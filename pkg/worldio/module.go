// Package worldio saves the world to disk and loads it back.
package worldio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/llguy/voxsync/pkg/terrain"
	"github.com/llguy/voxsync/pkg/utils"
)

const VERSION = 1

var (
	ErrChecksum = errors.New("chunk checksum mismatch")
	ErrVersion  = errors.New("unsupported checkpoint version")
)

type ChunkRecord struct {
	X, Y, Z  int16
	Voxels   []byte
	Colors   []byte
	Checksum uint64
}

func checksum(voxels, colors []byte) uint64 {
	digest := xxhash.New()
	digest.Write(voxels)
	digest.Write(colors)
	return digest.Sum64()
}

// Checkpoint is a copy of every chunk in a world at some tick.
type Checkpoint struct {
	Version int
	Tick    uint64
	Saved   time.Time
	Chunks  []ChunkRecord
}

// Capture copies the world's chunks.
func Capture(world *terrain.World, tick uint64) Checkpoint {
	checkpoint := Checkpoint{
		Version: VERSION,
		Tick:    tick,
		Saved:   time.Now().UTC(),
	}

	for _, chunk := range world.Chunks() {
		voxels := make([]byte, terrain.ChunkVoxelCount)
		colors := make([]byte, terrain.ChunkVoxelCount)
		copy(voxels, chunk.Voxels[:])
		copy(colors, chunk.Colors[:])

		checkpoint.Chunks = append(checkpoint.Chunks, ChunkRecord{
			X:        chunk.Coord.X,
			Y:        chunk.Coord.Y,
			Z:        chunk.Coord.Z,
			Voxels:   voxels,
			Colors:   colors,
			Checksum: checksum(voxels, colors),
		})
	}

	return checkpoint
}

// Restore loads every chunk of the checkpoint into world. Nothing is
// loaded if any chunk is damaged.
func (c *Checkpoint) Restore(world *terrain.World) error {
	if c.Version != VERSION {
		return fmt.Errorf("version %d: %w", c.Version, ErrVersion)
	}

	for _, record := range c.Chunks {
		if len(record.Voxels) != terrain.ChunkVoxelCount || len(record.Colors) != terrain.ChunkVoxelCount {
			return fmt.Errorf("chunk (%d %d %d) has %d voxels: %w", record.X, record.Y, record.Z, len(record.Voxels), ErrChecksum)
		}
		if checksum(record.Voxels, record.Colors) != record.Checksum {
			return fmt.Errorf("chunk (%d %d %d): %w", record.X, record.Y, record.Z, ErrChecksum)
		}
	}

	for _, record := range c.Chunks {
		chunk := &terrain.Chunk{
			Coord: terrain.Coord{X: record.X, Y: record.Y, Z: record.Z},
		}
		copy(chunk.Voxels[:], record.Voxels)
		copy(chunk.Colors[:], record.Colors)
		world.Load(chunk)
	}

	return nil
}

// Write stores the checkpoint at path. The file is replaced atomically.
func Write(path string, checkpoint Checkpoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	temporary := path + ".tmp"
	f, err := os.OpenFile(temporary, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	err = func() error {
		defer f.Close()

		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}

		bw := bufio.NewWriterSize(enc, 256*1024)
		if err := cbor.NewEncoder(bw).Encode(checkpoint); err != nil {
			enc.Close()
			return fmt.Errorf("cbor encode: %w", err)
		}
		if err := bw.Flush(); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	}()
	if err != nil {
		os.Remove(temporary)
		return err
	}

	return os.Rename(temporary, path)
}

func Read(path string) (Checkpoint, error) {
	var checkpoint Checkpoint
	f, err := os.Open(path)
	if err != nil {
		return checkpoint, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return checkpoint, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	if err := cbor.NewDecoder(br).Decode(&checkpoint); err != nil {
		return checkpoint, fmt.Errorf("cbor decode: %w", err)
	}
	return checkpoint, nil
}

// Save captures world and writes it to path.
func Save(path string, world *terrain.World, tick uint64) error {
	return Write(path, Capture(world, tick))
}

// Load reads the checkpoint at path into world and returns the tick it was
// taken at.
func Load(path string, world *terrain.World) (uint64, error) {
	checkpoint, err := Read(path)
	if err != nil {
		return 0, err
	}

	err = checkpoint.Restore(world)
	if err != nil {
		return 0, err
	}
	return checkpoint.Tick, nil
}

// Persist writes every checkpoint received until ctx is done.
func Persist(ctx context.Context, path string, checkpoints *utils.Subscriber[Checkpoint]) {
	defer checkpoints.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case checkpoint := <-checkpoints.Recv():
			start := time.Now()
			err := Write(path, checkpoint)
			if err != nil {
				log.Error().Err(err).Str("path", path).Msg("failed to write checkpoint")
				continue
			}
			log.Info().
				Str("path", path).
				Int("chunks", len(checkpoint.Chunks)).
				Uint64("tick", checkpoint.Tick).
				Dur("took", time.Since(start)).
				Msg("saved world")
		}
	}
}
