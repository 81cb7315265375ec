// Package state keeps records about players outside the simulation loop:
// a session history in SQLite and live presence in Redis.
package state

import (
	"context"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-redis/redis/v9"
	"github.com/repeale/fp-go"
	"github.com/rs/zerolog/log"

	"github.com/llguy/voxsync/pkg/config"
	"github.com/llguy/voxsync/pkg/server"
	"github.com/llguy/voxsync/pkg/utils"
)

const (
	PRESENCE_PREFIX = "voxsync-presence-"
	KEY_PRESENCE    = PRESENCE_PREFIX + "%d"
)

const Nil = redis.Nil

type PresenceRecord struct {
	ClientID uint16
	Name     string
	Address  string
	Joined   time.Time
}

func EncodeRecord(record PresenceRecord) ([]byte, error) {
	return cbor.Marshal(record)
}

func DecodeRecord(data []byte) (PresenceRecord, error) {
	var record PresenceRecord
	err := cbor.Unmarshal(data, &record)
	return record, err
}

// Presence mirrors who is online into Redis. Every entry expires unless it
// is refreshed, so a crashed server does not leave ghosts behind.
type Presence struct {
	client *redis.Client
	ttl    time.Duration
	online map[uint16]PresenceRecord
}

func NewPresence(settings config.RedisConfig) *Presence {
	return &Presence{
		client: redis.NewClient(&redis.Options{
			Addr:     settings.Address,
			Password: settings.Password,
			DB:       settings.DB,
		}),
		ttl:    settings.PresenceTTL.Std(),
		online: make(map[uint16]PresenceRecord),
	}
}

func (p *Presence) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *Presence) Apply(ctx context.Context, event server.Event) error {
	key := fmt.Sprintf(KEY_PRESENCE, event.ClientID)

	switch event.Kind {
	case server.EventJoined:
		record := PresenceRecord{
			ClientID: event.ClientID,
			Name:     event.Name,
			Address:  event.Address,
			Joined:   event.Time,
		}
		data, err := EncodeRecord(record)
		if err != nil {
			return err
		}
		p.online[event.ClientID] = record
		return p.client.Set(ctx, key, data, p.ttl).Err()
	case server.EventLeft:
		delete(p.online, event.ClientID)
		return p.client.Del(ctx, key).Err()
	}
	return nil
}

// Refresh pushes back the expiry of everyone still online.
func (p *Presence) Refresh(ctx context.Context) error {
	if len(p.online) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for id := range p.online {
		pipe.Expire(ctx, fmt.Sprintf(KEY_PRESENCE, id), p.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Lookup returns the entry for one client, or Nil if it is not online.
func (p *Presence) Lookup(ctx context.Context, clientID uint16) (PresenceRecord, error) {
	data, err := p.client.Get(ctx, fmt.Sprintf(KEY_PRESENCE, clientID)).Bytes()
	if err != nil {
		return PresenceRecord{}, err
	}
	return DecodeRecord(data)
}

// List reads every presence entry in Redis.
func (p *Presence) List(ctx context.Context) ([]PresenceRecord, error) {
	keys, err := p.client.Keys(ctx, PRESENCE_PREFIX+"*").Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := p.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	// Entries may expire between KEYS and MGET.
	present := fp.Filter(func(value interface{}) bool {
		_, ok := value.(string)
		return ok
	})(values)

	records := make([]PresenceRecord, 0, len(present))
	for _, value := range present {
		record, err := DecodeRecord([]byte(value.(string)))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Clear removes everyone this server put online.
func (p *Presence) Clear(ctx context.Context) error {
	if len(p.online) == 0 {
		return nil
	}

	keys := make([]string, 0, len(p.online))
	for id := range p.online {
		keys = append(keys, fmt.Sprintf(KEY_PRESENCE, id))
	}
	p.online = make(map[uint16]PresenceRecord)
	return p.client.Del(ctx, keys...).Err()
}

func (p *Presence) Close() error {
	return p.client.Close()
}

// Poll applies roster events and keeps entries alive until ctx is done.
func (p *Presence) Poll(ctx context.Context, events *utils.Subscriber[server.Event]) {
	defer events.Done()

	refresh := time.NewTicker(p.ttl / 3)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			// The loop context is gone; give the cleanup its own.
			cleanup, cancel := context.WithTimeout(context.Background(), time.Second)
			err := p.Clear(cleanup)
			cancel()
			if err != nil {
				log.Warn().Err(err).Msg("failed to clear presence")
			}
			return
		case event := <-events.Recv():
			err := p.Apply(ctx, event)
			if err != nil {
				log.Warn().Err(err).Str("kind", event.Kind.String()).Msg("failed to publish presence")
			}
		case <-refresh.C:
			err := p.Refresh(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("failed to refresh presence")
			}
		}
	}
}
