package game

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/llguy/voxsync/pkg/terrain"
)

// Simulation advances players against a voxel world. Client and server run
// the same code; given equal inputs they produce equal results.
type Simulation struct {
	World *terrain.World
}

func NewSimulation(world *terrain.World) *Simulation {
	return &Simulation{World: world}
}

// Execute applies one action to player and returns the terrain edits it
// made, grouped per chunk with their initial and final values.
func (s *Simulation) Execute(player *Player, action PlayerAction) []terrain.ChunkModifications {
	if action.DT <= 0 {
		return nil
	}

	s.handleShapeSwitch(player, action)

	var edits []terrain.ChunkModifications
	switch player.Mode {
	case ModeMeteorite:
		s.changeDirection(player, action)
		s.accelerateMeteorite(player, action)
	case ModeStanding:
		edits = s.executeTriggers(player, action)
		s.changeDirection(player, action)
		s.moveStanding(player, action)
		s.checkDead(player, action)
	case ModeBall:
		s.changeDirection(player, action)
		s.moveBall(player, action)
		s.checkDead(player, action)
	case ModeFloating:
		edits = s.executeTriggers(player, action)
		s.changeDirection(player, action)
		s.moveFloating(player, action)
	}

	for i := range player.Weapons {
		player.Weapons[i].Elapsed += action.DT
	}

	return edits
}

func (s *Simulation) handleShapeSwitch(player *Player, action PlayerAction) {
	if action.Input.SwitchShape {
		if player.switchingShapes {
			player.shapeSwitchTime = ShapeSwitchDuration - player.shapeSwitchTime
		} else {
			player.shapeSwitchTime = 0
		}

		switch player.Mode {
		case ModeStanding:
			player.Mode = ModeBall
			player.switchingShapes = true
		case ModeBall:
			player.Mode = ModeStanding
			player.switchingShapes = true
		}
	}

	if player.switchingShapes {
		player.shapeSwitchTime += action.DT
	}

	if player.shapeSwitchTime > ShapeSwitchDuration {
		player.shapeSwitchTime = 0
		player.switchingShapes = false
	}
}

func (s *Simulation) switchWeapon(player *Player, input Input) {
	if !input.SwitchWeapon || len(player.Weapons) == 0 {
		return
	}

	if input.NextWeapon == CycleWeapon {
		player.SelectedWeapon = (player.SelectedWeapon + 1) % len(player.Weapons)
	} else if int(input.NextWeapon) < len(player.Weapons) {
		player.SelectedWeapon = int(input.NextWeapon)
	}
}

func (s *Simulation) executeTriggers(player *Player, action PlayerAction) []terrain.ChunkModifications {
	s.switchWeapon(player, action.Input)
	if player.SelectedWeapon >= len(player.Weapons) {
		return nil
	}

	weapon := &player.Weapons[player.SelectedWeapon]
	switch weapon.Kind {
	case WeaponRocks:
		if action.Input.TriggerLeft && weapon.Elapsed > weapon.RecoilTime {
			weapon.Elapsed = 0
			player.ShotsFired++
		}
		player.Terraform.Hit = false
	case WeaponTerraformer:
		hit, ok := s.World.Raycast(player.ViewPosition(), player.ViewDirection, TerraformRayLength)
		player.Terraform.Hit = ok
		player.Terraform.Position = hit

		if action.Input.Flashlight {
			player.Flashlight = !player.Flashlight
		}

		if !ok {
			return nil
		}

		amount := action.AccumulatedDT * TerraformSpeed
		var edits []terrain.ChunkModifications
		if action.Input.TriggerLeft {
			edits = append(edits, s.World.Terraform(terrain.Destroy, hit, TerraformRadius, amount, player.Terraform.Color)...)
		}
		if action.Input.TriggerRight {
			edits = append(edits, s.World.Terraform(terrain.Build, hit, TerraformRadius, amount, player.Terraform.Color)...)
		}
		return edits
	}
	return nil
}

// changeDirection turns the view around the up vector for horizontal mouse
// motion and around the view's right axis for vertical motion.
func (s *Simulation) changeDirection(player *Player, action PlayerAction) {
	if action.MouseDX == 0 && action.MouseDY == 0 {
		return
	}

	xAngle := mgl32.DegToRad(-action.MouseDX) * MouseSensitivity * action.DT
	yAngle := mgl32.DegToRad(-action.MouseDY) * MouseSensitivity * action.DT

	view := player.ViewDirection
	up := normalize(player.UpVector)
	if up.Len() != 0 {
		view = mgl32.QuatRotate(xAngle, up).Rotate(view)
	}

	pitchAxis := normalize(view.Cross(player.UpVector))
	if pitchAxis.Len() != 0 {
		view = mgl32.QuatRotate(yAngle, pitchAxis).Rotate(view)
	}

	if view.Len() != 0 {
		player.ViewDirection = view.Normalize()
	}
}

type movementAxes struct {
	right, forward, up mgl32.Vec3
}

func computeAxes(view, up mgl32.Vec3) movementAxes {
	right := normalize(view.Cross(up))
	return movementAxes{
		right:   right,
		forward: normalize(up.Cross(right)),
		up:      up,
	}
}

func (s *Simulation) moveFloating(player *Player, action PlayerAction) {
	axes := computeAxes(player.ViewDirection, player.UpVector)
	step := action.DT * player.DefaultSpeed
	input := action.Input

	if input.MoveForward {
		player.Position = player.Position.Add(axes.forward.Mul(step))
	}
	if input.MoveLeft {
		player.Position = player.Position.Sub(axes.right.Mul(step))
	}
	if input.MoveBack {
		player.Position = player.Position.Sub(axes.forward.Mul(step))
	}
	if input.MoveRight {
		player.Position = player.Position.Add(axes.right.Mul(step))
	}
	if input.Jump {
		player.Position = player.Position.Add(player.UpVector.Mul(step))
	}
	if input.Crouch {
		player.Position = player.Position.Sub(player.UpVector.Mul(step))
	}
}
