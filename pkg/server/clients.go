package server

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/repeale/fp-go"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/time/rate"

	"github.com/llguy/voxsync/pkg/game"
	"github.com/llguy/voxsync/pkg/reconcile"
	"github.com/llguy/voxsync/pkg/terrain"
	"github.com/llguy/voxsync/pkg/utils"
)

var ErrServerFull = errors.New("server is full")

// Client is the server's record of one connected player.
type Client struct {
	ID     uint16
	Name   string
	Addr   *net.UDPAddr
	Player *game.Player

	Connected time.Time
	LastSeen  time.Time

	// Set once the client has sent its first command packet. Until then it
	// gets no snapshots.
	ReceivedCommands bool
	// Commands arrived since the last dispatch.
	fresh bool

	Tracker reconcile.Tracker
	// What the client says its player looked like after its last actions.
	Reported game.State
	// Actions waiting for the next simulation tick.
	Actions *utils.Ring[game.PlayerAction]
	// Terrain edits the client predicted this interval.
	Pending *terrain.PatchSet

	// Tick of the first command packet since the last dispatch.
	Tick          uint64
	shouldSetTick bool

	Terraformed   bool
	TerraformTick uint64

	chunks  []terrain.Coord
	limiter *rate.Limiter
}

func (c *Client) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.ID)
}

// TransferringChunks reports whether the client still has world chunks
// queued for it.
func (c *Client) TransferringChunks() bool {
	return len(c.chunks) > 0
}

type ClientManager struct {
	clients    []*Client
	maxClients int
	mutex      deadlock.RWMutex
}

func NewClientManager(maxClients int) *ClientManager {
	return &ClientManager{
		maxClients: maxClients,
	}
}

func (cm *ClientManager) nextID() (uint16, bool) {
	for id := 0; id < cm.maxClients; id++ {
		taken := false
		for _, client := range cm.clients {
			if client.ID == uint16(id) {
				taken = true
				break
			}
		}
		if !taken {
			return uint16(id), true
		}
	}
	return 0, false
}

// Add registers a new client under the lowest free id.
func (cm *ClientManager) Add(addr *net.UDPAddr, name string, now time.Time, chunkInterval time.Duration) (*Client, error) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	id, ok := cm.nextID()
	if !ok {
		return nil, ErrServerFull
	}

	client := &Client{
		ID:            id,
		Name:          name,
		Addr:          addr,
		Player:        game.NewPlayer(id, name),
		Connected:     now,
		LastSeen:      now,
		Actions:       utils.NewRing[game.PlayerAction](game.MaxActionsPerTick),
		Pending:       terrain.NewPatchSet(terrain.MaxPredictedChunks),
		shouldSetTick: true,
		limiter:       rate.NewLimiter(rate.Every(chunkInterval), 1),
	}
	cm.clients = append(cm.clients, client)
	return client, nil
}

func (cm *ClientManager) GetClientByID(id uint16) *Client {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	for _, client := range cm.clients {
		if client.ID == id {
			return client
		}
	}
	return nil
}

func (cm *ClientManager) GetClientByAddr(addr *net.UDPAddr) *Client {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	for _, client := range cm.clients {
		if client.Addr.IP.Equal(addr.IP) && client.Addr.Port == addr.Port {
			return client
		}
	}
	return nil
}

func (cm *ClientManager) Remove(c *Client) {
	cm.mutex.Lock()
	cm.clients = fp.Filter(func(client *Client) bool { return client != c })(cm.clients)
	cm.mutex.Unlock()
}

// All returns a copy of the client list.
func (cm *ClientManager) All() []*Client {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	clients := make([]*Client, len(cm.clients))
	copy(clients, cm.clients)
	return clients
}

// Active returns the clients that have started sending commands.
func (cm *ClientManager) Active() []*Client {
	return fp.Filter(func(client *Client) bool { return client.ReceivedCommands })(cm.All())
}

func (cm *ClientManager) Len() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.clients)
}

// Names lists connected players, safe to call from any goroutine.
func (cm *ClientManager) Names() []string {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return fp.Map(func(client *Client) string { return client.Name })(cm.clients)
}
