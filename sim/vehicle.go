package sim

import (
	"errors"
	"fmt"
	"math"
)

// Action is one of the discrete driving decisions.
type Action int

const (
	Accelerate Action = iota
	Decelerate
	TurnLeft
	TurnRight

	numActions
)

// NumActions is the number of controller outputs expected.
const NumActions = int(numActions)

var actionNames = [...]string{"accelerate", "decelerate", "turn_left", "turn_right"}

func (a Action) String() string {
	if a < 0 || a >= numActions {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// ErrInvalidAction is returned when controller output cannot be mapped to
// an Action.
var ErrInvalidAction = errors.New("invalid action")

// ArgMax picks the action with the highest output. Ties resolve to the
// first maximum.
func ArgMax(outputs []float64) (Action, error) {
	if len(outputs) == 0 {
		return 0, fmt.Errorf("%w: no outputs", ErrInvalidAction)
	}
	best := 0
	for i := 1; i < len(outputs); i++ {
		if outputs[i] > outputs[best] {
			best = i
		}
	}
	if best >= NumActions {
		return 0, fmt.Errorf("%w: output index %d", ErrInvalidAction, best)
	}
	return Action(best), nil
}

// DeathCause records why a vehicle stopped.
type DeathCause string

const (
	DeathNone            DeathCause = ""
	DeathOffTrack        DeathCause = "off_track"
	DeathLoop            DeathCause = "loop"
	DeathStall           DeathCause = "stall"
	DeathSpin            DeathCause = "spin"
	DeathTimeout         DeathCause = "timeout"
	DeathControllerError DeathCause = "controller_error"
)

// historySize is the capacity of the recent-position ring.
const historySize = 11

// positionHistory is a fixed-size ring of recently visited cells.
type positionHistory struct {
	cells [historySize]Cell
	next  int
	n     int
}

func (h *positionHistory) push(c Cell) {
	h.cells[h.next] = c
	h.next = (h.next + 1) % historySize
	if h.n < historySize {
		h.n++
	}
}

func (h *positionHistory) count(c Cell) int {
	k := 0
	for i := 0; i < h.n; i++ {
		if h.cells[i] == c {
			k++
		}
	}
	return k
}

func (h *positionHistory) len() int { return h.n }

// Vehicle is the per-episode state of one car.
type Vehicle struct {
	ID      int
	Pos     Vec
	Spawn   Vec
	Heading float64 // degrees, never wrapped
	Speed   float64
	Alive   bool
	Death   DeathCause

	Distance    float64
	RotationSum float64
	Ticks       int

	// Fitness mirrors the controller's accumulator for this episode.
	Fitness     float64
	LastFitness float64
	StallTicks  int

	history positionHistory
}

// NewVehicle places a live vehicle at spawn.
func NewVehicle(id int, spawn Vec, heading, speed float64) *Vehicle {
	return &Vehicle{
		ID:      id,
		Pos:     spawn,
		Spawn:   spawn,
		Heading: heading,
		Speed:   speed,
		Alive:   true,
	}
}

// WrappedHeading returns the heading folded into [0,360).
func (v *Vehicle) WrappedHeading() float64 {
	h := math.Mod(v.Heading, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// Kill marks the vehicle dead. The first cause sticks.
func (v *Vehicle) Kill(cause DeathCause) {
	if !v.Alive {
		return
	}
	v.Alive = false
	v.Death = cause
}

// Kinematics holds the motion limits applied by Step.
type Kinematics struct {
	MinSpeed  float64
	MaxSpeed  float64
	SpeedStep float64
	TurnStep  float64
}

// KinematicsFrom extracts the motion limits from a Config.
func KinematicsFrom(c Config) Kinematics {
	return Kinematics{
		MinSpeed:  c.MinSpeed,
		MaxSpeed:  c.MaxSpeed,
		SpeedStep: c.SpeedStep,
		TurnStep:  c.TurnStep,
	}
}

// Step applies a and advances the vehicle by one tick. Position is never
// clamped here; leaving the road is the evaluator's business.
func Step(v *Vehicle, a Action, k Kinematics) {
	switch a {
	case Accelerate:
		v.Speed = math.Min(v.Speed+k.SpeedStep, k.MaxSpeed)
	case Decelerate:
		v.Speed = math.Max(v.Speed-k.SpeedStep, k.MinSpeed)
	case TurnLeft:
		v.Heading += k.TurnStep
		v.RotationSum += k.TurnStep
	case TurnRight:
		v.Heading -= k.TurnStep
		v.RotationSum += k.TurnStep
	}

	rad := degToRad(360 - v.Heading)
	v.Pos.X += math.Cos(rad) * v.Speed
	v.Pos.Y += math.Sin(rad) * v.Speed
	v.Distance += v.Speed
	v.Ticks++
}
