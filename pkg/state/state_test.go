package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llguy/voxsync/pkg/config"
	"github.com/llguy/voxsync/pkg/protocol"
	"github.com/llguy/voxsync/pkg/server"
)

func TestRecorder(t *testing.T) {
	db, err := InitDB(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	recorder := NewRecorder(db)
	ctx := context.Background()

	joined := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, recorder.Record(ctx, server.Event{
		Kind: server.EventJoined, ClientID: 0, Name: "alice", Address: "1.2.3.4:5", Time: joined,
	}))
	require.NoError(t, recorder.Record(ctx, server.Event{
		Kind: server.EventJoined, ClientID: 1, Name: "bob", Address: "1.2.3.4:6", Time: joined.Add(time.Second),
	}))

	online, err := recorder.Online(ctx)
	require.NoError(t, err)
	require.Len(t, online, 2)
	assert.Equal(t, "alice", online[0].Name)

	require.NoError(t, recorder.Record(ctx, server.Event{
		Kind: server.EventLeft, ClientID: 0, Name: "alice", Address: "1.2.3.4:5",
		Reason: protocol.DisconnectTimeout, Time: joined.Add(time.Minute),
	}))

	online, err = recorder.Online(ctx)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, "bob", online[0].Name)

	history, err := recorder.History(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Ended)
	assert.Equal(t, protocol.DisconnectTimeout.String(), history[0].Reason)

	names, err := recorder.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, names)

	closed, err := recorder.CloseDangling(ctx, joined.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	online, err = recorder.Online(ctx)
	require.NoError(t, err)
	assert.Empty(t, online)
}

func TestRecordEncoding(t *testing.T) {
	record := PresenceRecord{
		ClientID: 3,
		Name:     "carol",
		Address:  "10.0.0.1:7777",
		Joined:   time.Unix(1700000000, 0).UTC(),
	}
	data, err := EncodeRecord(record)
	require.NoError(t, err)

	decoded, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, record.ClientID, decoded.ClientID)
	assert.Equal(t, record.Name, decoded.Name)
	assert.True(t, record.Joined.Equal(decoded.Joined))

	_, err = DecodeRecord([]byte{0xff})
	assert.Error(t, err)
}

// Needs a Redis server, e.g. VOXSYNC_TEST_REDIS=localhost:6379.
func TestPresence(t *testing.T) {
	address := os.Getenv("VOXSYNC_TEST_REDIS")
	if address == "" {
		t.Skip("VOXSYNC_TEST_REDIS not set")
	}

	presence := NewPresence(config.RedisConfig{
		Address:     address,
		PresenceTTL: config.Duration(time.Minute),
	})
	defer presence.Close()
	ctx := context.Background()
	require.NoError(t, presence.Ping(ctx))

	require.NoError(t, presence.Apply(ctx, server.Event{
		Kind: server.EventJoined, ClientID: 9, Name: "dave", Time: time.Now(),
	}))
	require.NoError(t, presence.Refresh(ctx))

	records, err := presence.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	record, err := presence.Lookup(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "dave", record.Name)

	require.NoError(t, presence.Apply(ctx, server.Event{Kind: server.EventLeft, ClientID: 9}))
	_, err = presence.Lookup(ctx, 9)
	assert.ErrorIs(t, err, Nil)
	require.NoError(t, presence.Clear(ctx))
}
