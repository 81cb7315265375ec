// Package game holds the deterministic player simulation shared by the
// client predictor and the authoritative server.
package game

const (
	MaxActionsPerTick   = 100
	ActionCacheCapacity = 2 * MaxActionsPerTick

	TerraformSpeed     = 200
	TerraformRadius    = 3
	TerraformRayLength = 10

	WalkingSpeed = 25
	Gravity      = 10
	PlayerScale  = 0.5

	// Seconds a player may fall away from every loaded chunk before dying.
	DeathTimeout = 5

	ShapeSwitchDuration = 0.3

	// Mouse sensitivity in degrees per unit of mouse delta per second.
	MouseSensitivity = 15

	MeteoriteAcceleration = 25
	MeteoriteMaxSpeed     = 25

	// Each axis of a random spawn lies in ±[SpawnMin, SpawnMax).
	SpawnMin = 100
	SpawnMax = 200
)
