package behavior

import (
	"errors"
	"time"

	"github.com/teslashibe/go-hexapod/pkg/robot"
)

// ErrInvalidConfig is returned by New for out-of-range settings.
var ErrInvalidConfig = errors.New("behavior: invalid config")

// Config holds the behaviour constants.
type Config struct {
	BaseHeight     float64
	GaitHeightStep float64
	TrimStep       int
	DemoGait       robot.GaitID
	DemoDistance   float64
	HomeDwell      time.Duration

	// Dance.
	HipRotation    float64
	HipTranslation float64
	HipHold        time.Duration
	DanceMin       int
	DanceMax       int
	PitchMin       float64
	PitchMax       float64
}

// DefaultConfig returns the stock behaviour constants.
func DefaultConfig() Config {
	return Config{
		BaseHeight:     4,
		GaitHeightStep: 3,
		TrimStep:       25,
		DemoGait:       3,
		DemoDistance:   5,
		HomeDwell:      0,
		HipRotation:    0.15,
		HipTranslation: 0,
		HipHold:        500 * time.Millisecond,
		DanceMin:       4,
		DanceMax:       7,
		PitchMin:       -0.5,
		PitchMax:       0.4,
	}
}

// Validate checks the ranges the actions rely on.
func (c Config) Validate() error {
	switch {
	case c.DanceMin < 0 || c.DanceMax < c.DanceMin:
		return errors.Join(ErrInvalidConfig, errors.New("dance iteration range is empty"))
	case c.PitchMax < c.PitchMin:
		return errors.Join(ErrInvalidConfig, errors.New("dance pitch range is empty"))
	case c.TrimStep <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("trim step must be positive"))
	case c.HomeDwell < 0 || c.HipHold < 0:
		return errors.Join(ErrInvalidConfig, errors.New("durations must not be negative"))
	}
	return nil
}

func (c Config) params() Params {
	return Params{TrimStep: c.TrimStep, GaitHeightStep: c.GaitHeightStep}
}
