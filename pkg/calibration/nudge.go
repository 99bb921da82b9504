package calibration

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/clock"
	"github.com/teslashibe/go-hexapod/pkg/robot"
)

// Nudge defaults.
const (
	DefaultNudgeOffset = 0.2 // radians
	DefaultNudgeHold   = 300 * time.Millisecond
)

// Nudger performs the calibration nudge: displace, hold, restore, hold.
// It replaces a control cycle rather than adding to one, so it writes the
// servos directly and times itself on the clock.
type Nudger struct {
	servo  robot.ServoDriver
	clock  clock.Clock
	layout Layout
	offset float64
	hold   time.Duration
	logger *slog.Logger
}

// NudgerOption configures a Nudger.
type NudgerOption func(*Nudger)

// WithLayout overrides the joint layout.
func WithLayout(l Layout) NudgerOption {
	return func(n *Nudger) { n.layout = l }
}

// WithOffset sets the displacement in radians.
func WithOffset(rad float64) NudgerOption {
	return func(n *Nudger) { n.offset = rad }
}

// WithHold sets how long each position is held.
func WithHold(d time.Duration) NudgerOption {
	return func(n *Nudger) { n.hold = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) NudgerOption {
	return func(n *Nudger) { n.logger = l }
}

// NewNudger creates a Nudger writing to servo and timing on c.
func NewNudger(servo robot.ServoDriver, c clock.Clock, opts ...NudgerOption) *Nudger {
	n := &Nudger{
		servo:  servo,
		clock:  c,
		layout: DefaultLayout(),
		offset: DefaultNudgeOffset,
		hold:   DefaultNudgeHold,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = log.Or(n.logger)
	return n
}

// Perform nudges the joints of the selected (leg, layer) away from q and
// back, then disarms the state. It does nothing unless a nudge is pending.
// On cancellation it still restores q before returning ctx.Err().
func (n *Nudger) Perform(ctx context.Context, s *State, q robot.JointAngles) error {
	if !s.PendingNudge {
		return nil
	}
	s.PendingNudge = false

	joints := n.layout.Joints(s.Leg, s.Layer)
	displaced := q
	for _, j := range joints {
		if j >= 0 && j < robot.NumJoints {
			displaced[j] += n.offset
		}
	}
	n.logger.Debug("calibration nudge", "leg", s.Leg, "layer", s.Layer, "joints", joints)

	n.servo.ServoWrite(displaced)
	if err := clock.Busy(ctx, n.clock, n.hold); err != nil {
		n.servo.ServoWrite(q)
		return err
	}
	n.servo.ServoWrite(q)
	return clock.Busy(ctx, n.clock, n.hold)
}
