package game

import (
	"github.com/llguy/voxsync/pkg/protocol/io"
)

// CycleWeapon in Input.NextWeapon selects the weapon after the current one.
const CycleWeapon = 0b111

// Input is the set of discrete controls held during one action.
type Input struct {
	MoveForward  bool
	MoveLeft     bool
	MoveBack     bool
	MoveRight    bool
	Jump         bool
	Crouch       bool
	TriggerLeft  bool
	TriggerRight bool
	SwitchWeapon bool
	SwitchShape  bool
	Flashlight   bool
	NextWeapon   uint8
}

const (
	bitMoveForward = 1 << iota
	bitMoveLeft
	bitMoveBack
	bitMoveRight
	bitJump
	bitCrouch
	bitTriggerLeft
	bitTriggerRight
	bitSwitchWeapon
	bitSwitchShape
	bitFlashlight
)

const nextWeaponShift = 11

// Bits packs the input into its wire layout: one bit per control in
// declaration order, then the next weapon in bits 11 to 13.
func (i Input) Bits() uint32 {
	var bits uint32
	set := func(on bool, bit uint32) {
		if on {
			bits |= bit
		}
	}
	set(i.MoveForward, bitMoveForward)
	set(i.MoveLeft, bitMoveLeft)
	set(i.MoveBack, bitMoveBack)
	set(i.MoveRight, bitMoveRight)
	set(i.Jump, bitJump)
	set(i.Crouch, bitCrouch)
	set(i.TriggerLeft, bitTriggerLeft)
	set(i.TriggerRight, bitTriggerRight)
	set(i.SwitchWeapon, bitSwitchWeapon)
	set(i.SwitchShape, bitSwitchShape)
	set(i.Flashlight, bitFlashlight)
	bits |= uint32(i.NextWeapon&0b111) << nextWeaponShift
	return bits
}

func InputFromBits(bits uint32) Input {
	return Input{
		MoveForward:  bits&bitMoveForward != 0,
		MoveLeft:     bits&bitMoveLeft != 0,
		MoveBack:     bits&bitMoveBack != 0,
		MoveRight:    bits&bitMoveRight != 0,
		Jump:         bits&bitJump != 0,
		Crouch:       bits&bitCrouch != 0,
		TriggerLeft:  bits&bitTriggerLeft != 0,
		TriggerRight: bits&bitTriggerRight != 0,
		SwitchWeapon: bits&bitSwitchWeapon != 0,
		SwitchShape:  bits&bitSwitchShape != 0,
		Flashlight:   bits&bitFlashlight != 0,
		NextWeapon:   uint8(bits>>nextWeaponShift) & 0b111,
	}
}

func (i Input) Marshal(p *io.Buffer) error {
	p.PutUint32(i.Bits())
	return nil
}

func (i *Input) Unmarshal(p *io.Buffer) error {
	bits, ok := p.GetUint32()
	if !ok {
		return io.ErrShortBuffer
	}
	*i = InputFromBits(bits)
	return nil
}

// PlayerAction is one tick of player input. It is replayed exactly once on
// each side of the connection.
type PlayerAction struct {
	Tick          uint64
	DT            float32
	AccumulatedDT float32
	Input         Input
	MouseDX       float32
	MouseDY       float32
}

// DeviceState is the raw state of the input devices for one frame.
type DeviceState struct {
	Forward, Left, Back, Right bool
	Jump, Crouch               bool
	Primary, Secondary         bool
	SwitchWeapon, SwitchShape  bool
	Flashlight                 bool
	// Weapon slot to switch to, or CycleWeapon.
	WeaponSlot uint8

	MouseX, MouseY float32
}

// Encoder turns per-frame device state into actions. It remembers the last
// mouse position to produce deltas.
type Encoder struct {
	lastX, lastY float32
	primed       bool
}

func (e *Encoder) Encode(device DeviceState, tick uint64, dt float32) PlayerAction {
	var dx, dy float32
	if e.primed {
		dx = device.MouseX - e.lastX
		dy = device.MouseY - e.lastY
	}
	e.lastX, e.lastY = device.MouseX, device.MouseY
	e.primed = true

	return PlayerAction{
		Tick: tick,
		DT:   dt,
		Input: Input{
			MoveForward:  device.Forward,
			MoveLeft:     device.Left,
			MoveBack:     device.Back,
			MoveRight:    device.Right,
			Jump:         device.Jump,
			Crouch:       device.Crouch,
			TriggerLeft:  device.Primary,
			TriggerRight: device.Secondary,
			SwitchWeapon: device.SwitchWeapon,
			SwitchShape:  device.SwitchShape,
			Flashlight:   device.Flashlight,
			NextWeapon:   device.WeaponSlot & 0b111,
		},
		MouseDX: dx,
		MouseDY: dy,
	}
}

// TerraformLimiter holds back terraforming time until it adds up to a
// change the voxel grid can resolve.
type TerraformLimiter struct {
	accumulated float32
}

// Stamp sets action.AccumulatedDT. Until the accumulated time amounts to
// at least two voxel units of change the action carries zero; then it
// carries everything accumulated and the limiter starts over.
func (l *TerraformLimiter) Stamp(action *PlayerAction) {
	l.accumulated += action.DT

	maxChange := int32(l.accumulated * TerraformSpeed)
	if maxChange < 2 {
		action.AccumulatedDT = 0
		return
	}

	action.AccumulatedDT = l.accumulated
	l.accumulated = 0
}
