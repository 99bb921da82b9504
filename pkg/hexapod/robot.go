// Package hexapod wires the control core together: the cycle scheduler,
// the motion generator, the calibration nudger and the behaviour machine,
// driven by one hardware driver and one kinematics engine.
package hexapod

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-hexapod/internal/config"
	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/behavior"
	"github.com/teslashibe/go-hexapod/pkg/calibration"
	"github.com/teslashibe/go-hexapod/pkg/clock"
	"github.com/teslashibe/go-hexapod/pkg/movement"
	"github.com/teslashibe/go-hexapod/pkg/pose"
	"github.com/teslashibe/go-hexapod/pkg/robot"
)

// Robot is the top-level controller. All motion runs on the goroutine that
// calls WakeUp and Run; Snapshot, InjectTouch and QueueMove are safe from
// any goroutine.
type Robot struct {
	cfg    *config.Config
	hw     robot.Hardware
	engine robot.Engine
	clock  clock.Clock
	logger *slog.Logger

	sched   *robot.Scheduler
	mover   *movement.Generator
	machine *behavior.Machine

	session string
	rng     *rand.Rand
	onSnap  func(Snapshot)
	onOver  robot.OverrunFunc

	mu   sync.RWMutex
	snap Snapshot
	seq  uint64
}

// Option configures a Robot.
type Option func(*Robot)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option {
	return func(r *Robot) { r.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Robot) { r.logger = l }
}

// WithRand seeds the behaviour machine's random source.
func WithRand(rng *rand.Rand) Option {
	return func(r *Robot) { r.rng = rng }
}

// WithSnapshotHook is called on the control thread after every published
// snapshot. It must not block.
func WithSnapshotHook(fn func(Snapshot)) Option {
	return func(r *Robot) { r.onSnap = fn }
}

// WithOverrunHook observes cycle overruns.
func WithOverrunHook(fn robot.OverrunFunc) Option {
	return func(r *Robot) { r.onOver = fn }
}

// New builds the controller, switches the servo rail off and runs one
// cycle so the engine holds valid joint targets before wake-up.
func New(ctx context.Context, cfg *config.Config, hw robot.Hardware, engine robot.Engine, opts ...Option) (*Robot, error) {
	if cfg == nil || hw == nil || engine == nil {
		return nil, robot.ErrNilCollaborator
	}

	r := &Robot{
		cfg:     cfg,
		hw:      hw,
		engine:  engine,
		clock:   clock.Real{},
		session: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.Or(r.logger).With("session", r.session)

	schedOpts := []robot.SchedulerOption{
		robot.WithClock(r.clock),
		robot.WithLogger(r.logger),
		robot.WithStatsWindow(cfg.Control.StatsWindow),
		robot.WithPoseSource(r.pose),
	}
	if r.onOver != nil {
		schedOpts = append(schedOpts, robot.WithOverrunHook(r.onOver))
	}
	sched, err := robot.NewScheduler(engine, hw, cfg.Control.Period(), schedOpts...)
	if err != nil {
		return nil, fmt.Errorf("hexapod: scheduler: %w", err)
	}
	r.sched = sched

	r.mover, err = movement.NewGenerator(engine, sched, r.clock, movement.Config{
		Speed:       cfg.Motion.GoSpeed,
		TurnRate:    cfg.Motion.TurnRate,
		FrequencyHz: cfg.Control.FrequencyHz,
		LinearSlip:  cfg.Motion.LinearSlip,
		TurnSlip:    cfg.Motion.TurnSlip,
	}, movement.WithLogger(r.logger))
	if err != nil {
		return nil, fmt.Errorf("hexapod: motion: %w", err)
	}

	nudger := calibration.NewNudger(hw, r.clock,
		calibration.WithOffset(cfg.Calibration.NudgeOffset),
		calibration.WithHold(cfg.Calibration.NudgeHold),
		calibration.WithLogger(r.logger),
	)

	machineOpts := []behavior.Option{
		behavior.WithLogger(r.logger),
		behavior.WithModeChange(r.modeChanged),
	}
	if r.rng != nil {
		machineOpts = append(machineOpts, behavior.WithRand(r.rng))
	}
	r.machine, err = behavior.New(hw, engine, sched, r.mover, nudger, BehaviorConfig(cfg), machineOpts...)
	if err != nil {
		return nil, fmt.Errorf("hexapod: behavior: %w", err)
	}

	hw.ServoPower(false)
	if err := sched.RunCycle(ctx); err != nil {
		return nil, err
	}
	r.publish()
	return r, nil
}

// BehaviorConfig maps the controller configuration onto the behaviour
// constants.
func BehaviorConfig(cfg *config.Config) behavior.Config {
	return behavior.Config{
		BaseHeight:     cfg.Pose.BaseHeight,
		GaitHeightStep: cfg.Pose.GaitHeightStep,
		TrimStep:       cfg.Calibration.TrimStep,
		DemoGait:       robot.GaitID(cfg.Pose.DemoGaitID),
		DemoDistance:   cfg.Motion.DemoDistance,
		HomeDwell:      cfg.Motion.HomeDwell,
		HipRotation:    cfg.Dance.HipRotation,
		HipTranslation: cfg.Dance.HipTranslation,
		HipHold:        cfg.Dance.HipHold,
		DanceMin:       cfg.Dance.MinIterations,
		DanceMax:       cfg.Dance.MaxIterations,
		PitchMin:       cfg.Dance.PitchMin,
		PitchMax:       cfg.Dance.PitchMax,
	}
}

// pose feeds the scheduler. The machine is nil only during New.
func (r *Robot) pose() pose.Parameters {
	if r.machine == nil {
		return pose.Neutral(r.cfg.Pose.BaseHeight)
	}
	return r.machine.Pose()
}

// SessionID identifies this controller run in telemetry.
func (r *Robot) SessionID() string { return r.session }

// Machine exposes the behaviour machine.
func (r *Robot) Machine() *behavior.Machine { return r.machine }

// Mover exposes the motion generator for scripted moves.
func (r *Robot) Mover() *movement.Generator { return r.mover }

// Stats returns the cycle timing statistics.
func (r *Robot) Stats() robot.StatsSnapshot { return r.sched.Stats() }

// WakeUp brings the robot from power-on to standing: radio up, servos
// powered, queued radio traffic drained, then a settle period of neutral
// cycles with commands discarded.
func (r *Robot) WakeUp(ctx context.Context) error {
	r.logger.Info("wake up")
	r.hw.WifiInit()
	r.engine.SetLinMode(robot.LinPermanent)
	if err := r.sched.RunCycle(ctx); err != nil {
		return err
	}

	r.hw.ServoPower(true)
	r.hw.SetAllLEDs(100, robot.Cyan)

	r.logger.Debug("draining radio", "for", r.cfg.WakeUp.RadioDrain)
	start := r.clock.Now()
	for clock.Since(r.clock, start) < r.cfg.WakeUp.RadioDrain {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.hw.WifiRead()
		r.clock.Tick()
	}

	r.engine.SetLinMode(robot.LinPermanent)
	r.sched.ResetClock()

	r.logger.Debug("settling", "for", r.cfg.WakeUp.Settle)
	start = r.clock.Now()
	for clock.Since(r.clock, start) < r.cfg.WakeUp.Settle {
		r.hw.WifiRead()
		r.engine.ResetCommands()
		if err := r.sched.RunCycle(ctx); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.snap.Awake = true
	r.mu.Unlock()
	r.publish()
	r.logger.Info("awake", "mode", r.machine.Mode())
	return nil
}

// Run steps the behaviour machine until ctx is cancelled. Cancellation is
// a clean stop and returns nil.
func (r *Robot) Run(ctx context.Context) error {
	r.logger.Info("control loop started", "period", r.sched.Period())
	defer r.logger.Info("control loop stopped")

	for {
		if err := r.machine.Step(ctx); err != nil {
			if behavior.IsCancelled(err) && ctx.Err() != nil {
				return nil
			}
			return err
		}
		r.publish()
		// PreCalibration does not run a cycle; yield between steps.
		r.clock.Tick()
	}
}

// Shutdown darkens the strip and cuts the servo rail. Call it after Run
// returns.
func (r *Robot) Shutdown() {
	r.hw.SetAllLEDs(0, robot.Color{})
	r.hw.ServoPower(false)
	r.mu.Lock()
	r.snap.Awake = false
	r.mu.Unlock()
	r.logger.Info("servos off")
}

// InjectTouch queues a virtual touch pattern.
func (r *Robot) InjectTouch(pattern int) error {
	if pattern < behavior.PatternNone || pattern > behavior.PatternMode {
		return fmt.Errorf("%w: %d", ErrInvalidPattern, pattern)
	}
	inj, ok := r.hw.(robot.Injector)
	if !ok {
		return ErrNotInjectable
	}
	inj.InjectTouch(pattern)
	return nil
}

// QueueMove queues a teleop movement request for the next radio read.
func (r *Robot) QueueMove(req robot.MoveRequest) error {
	inj, ok := r.hw.(robot.Injector)
	if !ok {
		return ErrNotInjectable
	}
	if req.Received.IsZero() {
		req.Received = r.clock.Now()
	}
	inj.QueueMove(req)
	return nil
}

func (r *Robot) modeChanged(_, _ behavior.Mode, pattern int) {
	r.mu.Lock()
	r.snap.ModeChanges++
	r.snap.LastPattern = pattern
	r.mu.Unlock()
}
