// Package movement turns high-level motion requests (distance, angle,
// dwell) into per-cycle gait commands and drives the control loop until
// each request is exhausted.
package movement

import (
	"context"
	"errors"
	"math"
)

// Fixed slip corrections: the robot covers slightly less ground and angle
// than commanded.
const (
	DefaultLinearSlip = 1.08
	DefaultTurnSlip   = 1.15
)

// Headings for the four linear moves, radians.
const (
	HeadingRight    = 0.0
	HeadingForward  = math.Pi / 2
	HeadingLeft     = math.Pi
	HeadingBackward = -math.Pi / 2
)

var (
	// ErrInvalidSpeed is returned when the move speed is not positive.
	ErrInvalidSpeed = errors.New("movement: speed must be positive")

	// ErrInvalidTurnRate is returned when the turn rate is not positive.
	ErrInvalidTurnRate = errors.New("movement: turn rate must be positive")

	// ErrInvalidFrequency is returned when the control frequency is not positive.
	ErrInvalidFrequency = errors.New("movement: control frequency must be positive")

	// ErrNilCollaborator is returned when the engine or runner is missing.
	ErrNilCollaborator = errors.New("movement: nil collaborator")

	// ErrNonFinite is returned for a NaN or infinite distance, heading or angle.
	ErrNonFinite = errors.New("movement: non-finite move argument")
)

// MaxCycles caps the cycle count of a single command.
const MaxCycles = math.MaxInt32

// Command is one installed motion command.
type Command struct {
	Speed     float64 `json:"speed"`
	Direction float64 `json:"direction"`
	TurnRate  float64 `json:"turn_rate"`
	Remaining int     `json:"remaining"` // cycles left, never negative
}

// Done reports whether the command has no cycles left.
func (c Command) Done() bool {
	return c.Remaining <= 0
}

// CycleRunner executes one control cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// Engine is the part of the gait engine the generator needs.
type Engine interface {
	SetMoveParam(speed, angle, turnRate float64, cycles int)
	CheckHomeMark() bool
}

// Config holds the generator constants. They are validated once, when the
// generator is built.
type Config struct {
	Speed       float64 // linear speed
	TurnRate    float64 // angular rate
	FrequencyHz float64 // control frequency
	LinearSlip  float64
	TurnSlip    float64
}

// Validate rejects zero or negative constants.
func (c Config) Validate() error {
	var errs []error
	if !(c.Speed > 0) {
		errs = append(errs, ErrInvalidSpeed)
	}
	if !(c.TurnRate > 0) {
		errs = append(errs, ErrInvalidTurnRate)
	}
	if !(c.FrequencyHz > 0) {
		errs = append(errs, ErrInvalidFrequency)
	}
	return errors.Join(errs...)
}
