package behavior

import (
	"context"
	"errors"
	"math"

	"github.com/teslashibe/go-hexapod/pkg/calibration"
	"github.com/teslashibe/go-hexapod/pkg/pose"
	"github.com/teslashibe/go-hexapod/pkg/robot"
)

// LED brightness per mode.
const (
	idleBrightness        = 50
	modeBrightness        = 100
	calibrationBrightness = 255
)

type action func(m *Machine, ctx context.Context) error

var actions = map[Mode]action{
	PreCalibration: (*Machine).preCalibration,
	Calibration:    (*Machine).calibration,
	Walking:        (*Machine).walking,
	Offline:        (*Machine).offline,
	Dancing:        (*Machine).dancing,
	Random:         (*Machine).random,
}

func (m *Machine) preCalibration(context.Context) error {
	m.hw.SetAllLEDs(idleBrightness, robot.Red)
	return nil
}

func (m *Machine) calibration(ctx context.Context) error {
	cal := m.State().Calibration

	m.hw.SetBrightness(calibrationBrightness)
	for i, c := range calibration.LegColors(cal) {
		m.hw.SetPixel(i, c)
	}
	m.hw.Show()
	m.engine.SetLinMode(robot.LinHoldForCalibration)

	if !cal.PendingNudge {
		return m.cycler.RunCycle(ctx)
	}
	err := m.nudger.Perform(ctx, &cal, m.engine.Joints())
	m.update(func(s *State) { s.Calibration.PendingNudge = cal.PendingNudge })
	// The nudge holds the thread well past a period.
	m.cycler.ResetClock()
	return err
}

func (m *Machine) walking(ctx context.Context) error {
	m.engine.SetCommand()
	err := m.cycler.RunCycle(ctx)
	m.hw.SetAllLEDsRainbow(modeBrightness)
	return err
}

// takeHip returns and clears the pending hip move.
func (m *Machine) takeHip() HipFlag {
	var h HipFlag
	m.update(func(s *State) {
		h = s.Hip
		s.Hip = HipNone
	})
	return h
}

func (m *Machine) resetPose() {
	m.update(func(s *State) { s.Pose.ResetToNeutral(m.cfg.BaseHeight) })
}

func (m *Machine) offline(ctx context.Context) error {
	m.hw.SetAllLEDs(modeBrightness, robot.Green)

	switch m.takeHip() {
	case HipBack:
		if err := m.mover.Backward(ctx, m.cfg.DemoDistance); err != nil {
			return err
		}
		return m.mover.ReturnHome(ctx, m.cfg.HomeDwell)
	case HipForward:
		if err := m.mover.Forward(ctx, m.cfg.DemoDistance); err != nil {
			return err
		}
		return m.mover.ReturnHome(ctx, m.cfg.HomeDwell)
	default:
		m.resetPose()
		return m.mover.ReturnHome(ctx, m.cfg.HomeDwell)
	}
}

func (m *Machine) dancing(ctx context.Context) error {
	m.hw.SetAllLEDs(modeBrightness, robot.Blue)

	switch m.takeHip() {
	case HipBack:
		return m.dance(ctx)
	case HipForward:
		return m.mover.Forward(ctx, m.cfg.DemoDistance)
	default:
		return m.mover.ReturnHome(ctx, m.cfg.HomeDwell)
	}
}

// dance runs a random number of iterations, each a pitch tilt followed by
// four hip sub-moves alternating the yaw; the lateral shift stays fixed. The pose is reset afterwards, even on
// cancellation.
func (m *Machine) dance(ctx context.Context) error {
	defer m.resetPose()

	n := m.cfg.DanceMin + m.rng.IntN(m.cfg.DanceMax-m.cfg.DanceMin+1)
	rot, tr := m.cfg.HipRotation, m.cfg.HipTranslation
	m.logger.Debug("dance", "iterations", n)

	for i := 0; i < n; i++ {
		pitch := m.randomPitch()
		m.update(func(s *State) { s.Pose.SetRotation(pitch, 0, 0) })
		m.logger.Debug("dance iteration", "i", i, "pitch", pitch)

		for _, sign := range [...]float64{1, -1, 1, -1} {
			if err := m.hip(ctx, sign*rot, tr); err != nil {
				return err
			}
		}
	}
	return nil
}

// randomPitch draws a pitch from [PitchMin, PitchMax] in tenths. A range
// that is not a whole number of tenths is truncated, never overshot.
func (m *Machine) randomPitch() float64 {
	steps := int(math.Floor((m.cfg.PitchMax-m.cfg.PitchMin)*10 + 1e-9))
	return m.cfg.PitchMin + float64(m.rng.IntN(steps+1))/10
}

// hip yaws and shifts the body, then holds at home.
func (m *Machine) hip(ctx context.Context, angle, translation float64) error {
	m.update(func(s *State) {
		s.Pose.Set(pose.Yaw, angle)
		s.Pose.Set(pose.Lateral, translation)
	})
	return m.mover.ReturnHome(ctx, m.cfg.HipHold*2/3)
}

func (m *Machine) random(ctx context.Context) error {
	m.hw.SetAllLEDs(modeBrightness, robot.Yellow)
	m.resetPose()
	return m.mover.ReturnHome(ctx, m.cfg.HomeDwell)
}

// IsCancelled reports whether err came from context cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
