package game

import (
	"github.com/go-gl/mathgl/mgl32"
)

type forces struct {
	friction     float32
	acceleration float32
	gravity      float32
}

type resolution uint8

const (
	// The player's up vector follows the surface it touches.
	adoptGravity resolution = 1 << iota
	// Gravity only applies in the air or on steep slopes.
	checkInclination
)

func (s *Simulation) accelerationVector(player *Player, input Input, dt float32) (mgl32.Vec3, bool) {
	axes := computeAxes(player.ViewDirection, player.UpVector)
	step := dt * player.DefaultSpeed

	var acceleration mgl32.Vec3
	moved := false
	add := func(on bool, direction mgl32.Vec3) {
		if on {
			acceleration = acceleration.Add(direction.Mul(step))
			moved = true
		}
	}
	add(input.MoveForward, axes.forward)
	add(input.MoveLeft, axes.right.Mul(-1))
	add(input.MoveBack, axes.forward.Mul(-1))
	add(input.MoveRight, axes.right)
	add(input.Jump, axes.up)
	add(input.Crouch, axes.up.Mul(-1))
	return acceleration, moved
}

func (s *Simulation) applyForces(player *Player, dt float32, f forces, flags resolution, acceleration mgl32.Vec3) {
	player.Velocity = player.Velocity.Add(acceleration.Mul(dt * f.acceleration))

	gravity := player.UpVector.Mul(-f.gravity * dt)
	if flags&checkInclination != 0 {
		if player.UpVector.Dot(player.SurfaceNormal) < 0.7 || player.Contact == InAir {
			player.Velocity = player.Velocity.Add(gravity)
		}
	} else {
		player.Velocity = player.Velocity.Add(gravity)
	}

	if player.Contact == OnGround {
		player.Velocity = player.Velocity.Sub(player.Velocity.Mul(dt * f.friction))
	}
}

// probes are the offsets sampled around a player's centre for collision.
var probes = [...]mgl32.Vec3{
	{0, 0, 0},
	{PlayerScale, 0, 0},
	{-PlayerScale, 0, 0},
	{0, PlayerScale, 0},
	{0, -PlayerScale, 0},
	{0, 0, PlayerScale},
	{0, 0, -PlayerScale},
}

func (s *Simulation) blocked(position mgl32.Vec3) bool {
	for _, probe := range probes {
		if s.World.Solid(position.Add(probe)) {
			return true
		}
	}
	return false
}

// collide moves a player-sized sphere from position by displacement. On
// contact the motion into the surface is removed and the rest slides along
// it; if the slid position is still blocked the sphere stays put.
func (s *Simulation) collide(position, displacement mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3, bool) {
	target := position.Add(displacement)
	if !s.blocked(target) {
		return target, mgl32.Vec3{}, false
	}

	normal := s.World.Normal(target)
	if normal.Len() == 0 {
		normal = normalize(displacement.Mul(-1))
	}

	slide := displacement
	if into := displacement.Dot(normal); into < 0 {
		slide = displacement.Sub(normal.Mul(into))
	}

	next := position.Add(slide)
	if s.blocked(next) {
		next = position
	}
	return next, normal, true
}

func (s *Simulation) resolveMovement(player *Player, action PlayerAction, f forces, flags resolution) {
	acceleration, moved := s.accelerationVector(player, action.Input, action.DT)
	if moved && acceleration.Dot(acceleration) != 0 {
		acceleration = acceleration.Normalize()
		player.Moving = true
	} else {
		player.Moving = false
	}

	s.applyForces(player, action.DT, f, flags, acceleration)

	next, normal, hit := s.collide(player.Position, player.Velocity.Mul(action.DT))

	if player.Contact != InAir {
		player.frameDisplacement = next.Sub(player.Position).Len()
		if player.frameDisplacement < 0.00001 {
			player.frameDisplacement = 0
		}
	}
	player.Position = next

	if !hit {
		player.Contact = InAir
		return
	}

	player.SurfaceNormal = normal
	if flags&adoptGravity != 0 && normal.Len() != 0 {
		player.UpVector = normal
	}

	if player.Velocity.Dot(player.Velocity) == 0 {
		player.Velocity = mgl32.Vec3{}
	} else {
		// Normal force
		player.Velocity = player.Velocity.Add(player.UpVector.Mul(f.gravity * action.DT))
	}
	player.Contact = OnGround
}

func (s *Simulation) moveStanding(player *Player, action PlayerAction) {
	if player.Contact == OnGround && action.Input.Jump {
		player.Velocity = player.Velocity.Add(player.UpVector.Mul(4))
		player.Contact = InAir
	}

	s.resolveMovement(player, action, forces{
		friction:     5,
		acceleration: 8.5,
		gravity:      Gravity,
	}, checkInclination)
}

func (s *Simulation) moveBall(player *Player, action PlayerAction) {
	s.resolveMovement(player, action, forces{
		friction:     1,
		acceleration: 10,
		gravity:      Gravity,
	}, adoptGravity)
}

// accelerateMeteorite flies the player along its view until it hits the
// ground, where it turns into a ball.
func (s *Simulation) accelerateMeteorite(player *Player, action PlayerAction) {
	right := normalize(player.ViewDirection.Cross(player.UpVector))
	if up := normalize(right.Cross(player.ViewDirection)); up.Len() != 0 {
		player.UpVector = up
	}

	// Air resistance
	player.Velocity = player.Velocity.Sub(player.Velocity.Mul(0.1 * action.DT))

	start := player.Position
	next, normal, hit := s.collide(start, player.Velocity.Mul(action.DT))
	player.Position = next
	player.Velocity = next.Sub(start).Mul(1 / action.DT)

	if hit {
		player.Mode = ModeBall
		if normal.Len() != 0 {
			player.UpVector = normal
			player.SurfaceNormal = normal
		}
		player.Contact = OnGround
		return
	}

	player.Contact = InAir
	if player.Velocity.Dot(player.Velocity) < MeteoriteMaxSpeed*MeteoriteMaxSpeed {
		player.Velocity = player.Velocity.Add(player.ViewDirection.Mul(MeteoriteAcceleration * action.DT))
	} else {
		player.Velocity = player.Velocity.Normalize().Mul(MeteoriteMaxSpeed)
	}
}

// checkDead kills a player that has been falling away from every loaded
// chunk for DeathTimeout seconds.
func (s *Simulation) checkDead(player *Player, action PlayerAction) {
	if player.Contact != InAir {
		player.deathTimer = 0
		return
	}

	velocity := normalize(player.Velocity)
	down := normalize(player.UpVector.Mul(-1))
	if velocity.Dot(down) <= 0.9 {
		return
	}

	const rayStep = 16
	probe := player.Position.Add(velocity.Mul(rayStep))
	for i := 0; i < 10; i++ {
		if s.World.HasChunk(probe) {
			player.deathTimer = 0
			break
		}
		probe = probe.Add(velocity.Mul(rayStep))
	}

	player.deathTimer += action.DT
	if player.deathTimer > DeathTimeout {
		player.Alive = Dead
		player.frameDisplacement = 0
	}
}
