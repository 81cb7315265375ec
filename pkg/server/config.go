package server

import (
	"time"

	"github.com/llguy/voxsync/pkg/config"
)

type Config struct {
	MaxClients            int
	TickRate              int
	SnapshotInterval      time.Duration
	ChunkTransferInterval time.Duration
	ClientTimeout         time.Duration
	// Largest per-component difference tolerated between the authoritative
	// and the predicted state.
	Epsilon     float32
	WorldRadius float32
	WorldColor  uint8
	// Zero disables checkpoints.
	CheckpointInterval time.Duration
}

func NewConfig(settings config.ServerConfig) Config {
	c := Config{
		MaxClients:            settings.MaxClients,
		TickRate:              settings.TickRate,
		SnapshotInterval:      settings.SnapshotInterval.Std(),
		ChunkTransferInterval: settings.ChunkTransferInterval.Std(),
		ClientTimeout:         settings.ClientTimeout.Std(),
		Epsilon:               settings.Epsilon,
		WorldRadius:           settings.World.Radius,
		WorldColor:            settings.World.Color,
	}
	if settings.Checkpoint.Path != "" {
		c.CheckpointInterval = settings.Checkpoint.Interval.Std()
	}
	return c
}

// TickDuration is the wall-clock length of one simulation tick.
func (c Config) TickDuration() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}
