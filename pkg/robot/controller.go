package robot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/clock"
	"github.com/teslashibe/go-hexapod/pkg/pose"
)

// OverrunFunc is told about a cycle whose kinematics step alone exceeded the
// period.
type OverrunFunc func(elapsed, period time.Duration)

// Scheduler is the CycleScheduler: it runs one kinematics update per call,
// busy-waits out the rest of the fixed period, then actuates.
//
// It is owned by the single control thread and is not safe for concurrent
// use, except for Stats which may be read from anywhere.
type Scheduler struct {
	engine Kinematics
	servo  ServoDriver
	clock  clock.Clock
	period time.Duration
	logger *slog.Logger

	// pose is read at the start of every cycle. Writes made between cycles
	// become visible here and nowhere else.
	pose      func() pose.Parameters
	onOverrun OverrunFunc

	last  time.Time // start of the current cycle window
	stats *Stats
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock sets the time source. Defaults to the wall clock.
func WithClock(c clock.Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// WithPoseSource sets the function that supplies the pose for each cycle.
func WithPoseSource(fn func() pose.Parameters) SchedulerOption {
	return func(s *Scheduler) { s.pose = fn }
}

// WithOverrunHook registers a callback fired once per overrunning cycle.
func WithOverrunHook(fn OverrunFunc) SchedulerOption {
	return func(s *Scheduler) { s.onOverrun = fn }
}

// WithStatsWindow sets how many recent cycles feed the timing statistics.
func WithStatsWindow(n int) SchedulerOption {
	return func(s *Scheduler) { s.stats = NewStats(n) }
}

// NewScheduler creates a scheduler with the given fixed period.
func NewScheduler(engine Kinematics, servo ServoDriver, period time.Duration, opts ...SchedulerOption) (*Scheduler, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, period)
	}
	if engine == nil || servo == nil {
		return nil, fmt.Errorf("%w: scheduler needs an engine and a servo driver", ErrNilCollaborator)
	}

	s := &Scheduler{
		engine: engine,
		servo:  servo,
		clock:  clock.Real{},
		period: period,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stats == nil {
		s.stats = NewStats(DefaultStatsWindow)
	}
	s.logger = log.Or(s.logger)
	s.last = s.clock.Now()
	return s, nil
}

// Period returns the fixed control period.
func (s *Scheduler) Period() time.Duration {
	return s.period
}

// Clock returns the scheduler's time source.
func (s *Scheduler) Clock() clock.Clock {
	return s.clock
}

// RunCycle executes exactly one cycle:
//  1. publish the pose and run kinematics
//  2. report an overrun if kinematics alone used up the period
//  3. otherwise poll the clock until the period has elapsed
//  4. write joint targets to the servos and restart the period
//
// An overrun is reported once and the cycle proceeds without waiting. ctx is
// checked on every poll; on cancellation RunCycle returns ctx.Err() without
// actuating.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.pose != nil {
		s.engine.SetPose(s.pose())
	}

	runStart := s.clock.Now()
	s.engine.Run()
	now := s.clock.Now()
	kinematics := now.Sub(runStart)
	elapsed := now.Sub(s.last)

	overrun := elapsed > s.period
	if overrun {
		s.logger.Warn("cycle took more than expected",
			"elapsed", elapsed, "period", s.period)
		if s.onOverrun != nil {
			s.onOverrun(elapsed, s.period)
		}
	} else {
		for s.clock.Now().Sub(s.last) < s.period {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.clock.Tick()
		}
	}

	s.servo.ServoWrite(s.engine.Joints())

	end := s.clock.Now()
	s.stats.record(end.Sub(s.last), kinematics, overrun)
	s.last = end
	return nil
}

// ResetClock restarts the period window without running a cycle. Scripted
// actuation that bypasses kinematics (a calibration nudge) calls this so its
// own duration is not charged to the next cycle.
func (s *Scheduler) ResetClock() {
	s.last = s.clock.Now()
}

// Stats returns a snapshot of cycle timing statistics.
func (s *Scheduler) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}
