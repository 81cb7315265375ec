package game

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

type InteractionMode uint8

const (
	ModeStanding InteractionMode = iota
	ModeBall
	ModeFloating
	ModeMeteorite
)

func (m InteractionMode) String() string {
	switch m {
	case ModeStanding:
		return "standing"
	case ModeBall:
		return "ball"
	case ModeFloating:
		return "floating"
	case ModeMeteorite:
		return "meteorite"
	}
	return "unknown"
}

type AliveState uint8

const (
	Alive AliveState = iota
	Dead
)

type ContactState uint8

const (
	InAir ContactState = iota
	OnGround
)

// State is the part of a player that crosses the network.
type State struct {
	Position      mgl32.Vec3
	ViewDirection mgl32.Vec3
	UpVector      mgl32.Vec3
	Velocity      mgl32.Vec3
	SurfaceNormal mgl32.Vec3

	Mode    InteractionMode
	Alive   AliveState
	Contact ContactState

	DefaultSpeed float32
	NextSpawn    mgl32.Vec3
}

type WeaponKind uint8

const (
	WeaponRocks WeaponKind = iota
	WeaponTerraformer
)

type Weapon struct {
	Kind       WeaponKind
	RecoilTime float32
	Elapsed    float32
}

// TerraformPackage is the result of the terraformer's last raycast.
type TerraformPackage struct {
	Hit      bool
	Position mgl32.Vec3
	Color    uint8
}

// Player is a simulated player. Only State is ever sent over the wire; the
// rest is bookkeeping local to whichever side runs the simulation.
type Player struct {
	State

	ClientID uint16
	Name     string

	Weapons        []Weapon
	SelectedWeapon int
	ShotsFired     uint32
	Flashlight     bool
	Moving         bool
	Terraform      TerraformPackage

	deathTimer        float32
	switchingShapes   bool
	shapeSwitchTime   float32
	frameDisplacement float32
}

func NewPlayer(clientID uint16, name string) *Player {
	return &Player{
		ClientID: clientID,
		Name:     name,
		State: State{
			ViewDirection: mgl32.Vec3{0, 0, -1},
			UpVector:      mgl32.Vec3{0, 1, 0},
			Alive:         Dead,
			Mode:          ModeFloating,
			DefaultSpeed:  WalkingSpeed,
		},
		Weapons: []Weapon{
			{Kind: WeaponRocks, RecoilTime: 5},
			{Kind: WeaponTerraformer},
		},
	}
}

// RandomSpawn picks a spawn point with every axis in ±[SpawnMin, SpawnMax).
func RandomSpawn(random *rand.Rand) mgl32.Vec3 {
	var spawn mgl32.Vec3
	for axis := range spawn {
		value := SpawnMin + random.Float32()*(SpawnMax-SpawnMin)
		if random.Intn(2) == 0 {
			value = -value
		}
		spawn[axis] = value
	}
	return spawn
}

// Spawn drops the player at NextSpawn as a meteorite facing the origin.
func (p *Player) Spawn() {
	p.Position = p.NextSpawn
	p.ViewDirection = normalize(p.Position.Mul(-1))
	if p.ViewDirection.Len() == 0 {
		p.ViewDirection = mgl32.Vec3{0, 0, -1}
	}

	reference := mgl32.Vec3{0, 1, 0}
	if abs(p.ViewDirection.Dot(reference)) > 0.99 {
		reference = mgl32.Vec3{1, 0, 0}
	}
	right := normalize(p.ViewDirection.Cross(reference))
	p.UpVector = normalize(right.Cross(p.ViewDirection))

	p.Velocity = mgl32.Vec3{}
	p.Alive = Alive
	p.Mode = ModeMeteorite
	p.Contact = InAir
	p.deathTimer = 0
	p.frameDisplacement = 0
}

// ViewPosition is where the player's eyes are.
func (p *Player) ViewPosition() mgl32.Vec3 {
	return p.Position.Add(p.UpVector.Mul(PlayerScale * 2))
}

func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return v
	}
	return v.Normalize()
}

func abs(value float32) float32 {
	if value < 0 {
		return -value
	}
	return value
}
