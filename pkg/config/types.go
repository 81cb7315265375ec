package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as a string such as "50ms".
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) Seconds() float32 {
	return float32(time.Duration(d).Seconds())
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func parseDuration(value string) (Duration, error) {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	return Duration(parsed), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var value string
	if err := node.Decode(&value); err != nil {
		return err
	}
	parsed, err := parseDuration(value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	parsed, err := parseDuration(value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

type WorldConfig struct {
	Radius float32 `yaml:"radius" json:"radius"`
	Color  uint8   `yaml:"color" json:"color"`
}

type CheckpointConfig struct {
	// Where the world is saved. Empty disables checkpoints.
	Path     string   `yaml:"path" json:"path"`
	Interval Duration `yaml:"interval" json:"interval"`
}

type RedisConfig struct {
	// Empty disables presence publishing.
	Address     string   `yaml:"address" json:"address"`
	Password    string   `yaml:"password" json:"password"`
	DB          int      `yaml:"db" json:"db"`
	PresenceTTL Duration `yaml:"presenceTTL" json:"presenceTTL"`
}

type ServerConfig struct {
	Port                  int              `yaml:"port" json:"port"`
	TickRate              int              `yaml:"tickRate" json:"tickRate"`
	SnapshotInterval      Duration         `yaml:"snapshotInterval" json:"snapshotInterval"`
	ChunkTransferInterval Duration         `yaml:"chunkTransferInterval" json:"chunkTransferInterval"`
	ClientTimeout         Duration         `yaml:"clientTimeout" json:"clientTimeout"`
	MaxClients            int              `yaml:"maxClients" json:"maxClients"`
	Epsilon               float32          `yaml:"epsilon" json:"epsilon"`
	World                 WorldConfig      `yaml:"world" json:"world"`
	Checkpoint            CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Session history database. Empty disables recording.
	Database string      `yaml:"database" json:"database"`
	Redis    RedisConfig `yaml:"redis" json:"redis"`
}

type ClientConfig struct {
	Server              string   `yaml:"server" json:"server"`
	Name                string   `yaml:"name" json:"name"`
	TickRate            int      `yaml:"tickRate" json:"tickRate"`
	CommandInterval     Duration `yaml:"commandInterval" json:"commandInterval"`
	SnapshotInterval    Duration `yaml:"snapshotInterval" json:"snapshotInterval"`
	InterpolationBuffer int      `yaml:"interpolationBuffer" json:"interpolationBuffer"`
}

// MAX_CLIENTS keeps a snapshot's player block inside a single datagram.
const MAX_CLIENTS = 512

type Config struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Client ClientConfig `yaml:"client" json:"client"`
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	server := c.Server
	check(server.Port >= 0 && server.Port <= 65535, "server.port %d out of range", server.Port)
	check(server.TickRate > 0, "server.tickRate must be positive")
	check(server.SnapshotInterval > 0, "server.snapshotInterval must be positive")
	check(server.ChunkTransferInterval > 0, "server.chunkTransferInterval must be positive")
	check(server.ClientTimeout > 0, "server.clientTimeout must be positive")
	check(server.MaxClients > 0 && server.MaxClients <= MAX_CLIENTS, "server.maxClients %d out of range", server.MaxClients)
	check(server.Epsilon >= 0, "server.epsilon must not be negative")
	check(server.World.Radius > 0, "server.world.radius must be positive")
	check(server.Checkpoint.Path == "" || server.Checkpoint.Interval > 0, "server.checkpoint.interval must be positive")
	check(server.Redis.Address == "" || server.Redis.PresenceTTL >= Duration(time.Second), "server.redis.presenceTTL must be at least 1s")

	client := c.Client
	check(client.TickRate > 0, "client.tickRate must be positive")
	check(client.CommandInterval > 0, "client.commandInterval must be positive")
	check(client.SnapshotInterval > 0, "client.snapshotInterval must be positive")
	check(client.InterpolationBuffer >= 3, "client.interpolationBuffer must be at least 3")
	check(len(client.Name) > 0, "client.name must not be empty")

	return errors.Join(errs...)
}
