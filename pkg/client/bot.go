package client

import (
	"math/rand"

	"github.com/llguy/voxsync/pkg/game"
)

const (
	// Seconds between the bot changing what it does.
	BOT_DECISION_INTERVAL = 2
	BOT_TERRAFORMER_SLOT  = 1
)

// Bot plays without a human: it spawns whenever it is dead, wanders around
// and digs into the ground now and then.
type Bot struct {
	random   *rand.Rand
	elapsed  float32
	armed    bool
	decided  bool
	device   game.DeviceState
	turnRate float32
}

func NewBot(seed int64) *Bot {
	return &Bot{
		random: rand.New(rand.NewSource(seed)),
	}
}

func (b *Bot) decide() {
	b.device.Forward = b.random.Intn(3) != 0
	b.device.Left = b.random.Intn(4) == 0
	b.device.Right = !b.device.Left && b.random.Intn(4) == 0
	b.device.Jump = b.random.Intn(5) == 0
	b.device.Primary = b.random.Intn(2) == 0
	b.device.Secondary = !b.device.Primary && b.random.Intn(3) == 0
	b.turnRate = (b.random.Float32() - 0.5) * 40
}

func (b *Bot) Input(client *Client, dt float32) game.DeviceState {
	if client.Phase != PhasePlaying {
		return game.DeviceState{}
	}

	player := client.Player()
	if player.Alive != game.Alive {
		b.armed = false
		client.Spawn()
		return game.DeviceState{MouseX: b.device.MouseX, MouseY: b.device.MouseY}
	}

	b.elapsed += dt
	if !b.decided || b.elapsed >= BOT_DECISION_INTERVAL {
		b.decided = true
		b.elapsed = 0
		b.decide()
	}

	device := b.device
	device.MouseX += b.turnRate * dt
	b.device.MouseX = device.MouseX

	if !b.armed && player.Mode == game.ModeStanding {
		b.armed = true
		device.SwitchWeapon = true
		device.WeaponSlot = BOT_TERRAFORMER_SLOT
	}

	return device
}
