package client

import (
	"time"

	"github.com/llguy/voxsync/pkg/config"
)

type Config struct {
	Name                string
	TickRate            int
	CommandInterval     time.Duration
	SnapshotInterval    time.Duration
	InterpolationBuffer int
}

func NewConfig(settings config.ClientConfig) Config {
	return Config{
		Name:                settings.Name,
		TickRate:            settings.TickRate,
		CommandInterval:     settings.CommandInterval.Std(),
		SnapshotInterval:    settings.SnapshotInterval.Std(),
		InterpolationBuffer: settings.InterpolationBuffer,
	}
}

func (c Config) TickDuration() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}
