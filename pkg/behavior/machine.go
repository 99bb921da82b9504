package behavior

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/calibration"
	"github.com/teslashibe/go-hexapod/pkg/pose"
	"github.com/teslashibe/go-hexapod/pkg/robot"
)

// ErrNilCollaborator is returned by New when a dependency is missing.
var ErrNilCollaborator = errors.New("behavior: nil collaborator")

// Cycler runs one control cycle. *robot.Scheduler satisfies it.
type Cycler interface {
	RunCycle(ctx context.Context) error
	ResetClock()
}

// Mover runs scripted moves. *movement.Generator satisfies it.
type Mover interface {
	Forward(ctx context.Context, distance float64) error
	Backward(ctx context.Context, distance float64) error
	ReturnHome(ctx context.Context, minDwell time.Duration) error
}

// Nudger twitches the selected calibration joints. *calibration.Nudger
// satisfies it.
type Nudger interface {
	Perform(ctx context.Context, s *calibration.State, q robot.JointAngles) error
}

// ModeChangeFunc observes mode transitions.
type ModeChangeFunc func(from, to Mode, pattern int)

// Machine is the BehaviorStateMachine. Step runs on the control thread;
// State and Pose may be read from other goroutines.
type Machine struct {
	hw     robot.Hardware
	engine robot.Engine
	cycler Cycler
	mover  Mover
	nudger Nudger
	cfg    Config
	rng    *rand.Rand
	logger *slog.Logger
	onMode ModeChangeFunc

	mu    sync.RWMutex
	state State
}

// Option configures a Machine.
type Option func(*Machine)

// WithRand sets the random source used by the dance.
func WithRand(r *rand.Rand) Option {
	return func(m *Machine) { m.rng = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithInitialState replaces the boot state.
func WithInitialState(s State) Option {
	return func(m *Machine) { m.state = s }
}

// WithModeChange registers a mode-transition observer. It runs on the
// control thread.
func WithModeChange(fn ModeChangeFunc) Option {
	return func(m *Machine) { m.onMode = fn }
}

// New builds a machine in PreCalibration with a neutral pose.
func New(hw robot.Hardware, engine robot.Engine, cycler Cycler, mover Mover, nudger Nudger, cfg Config, opts ...Option) (*Machine, error) {
	if hw == nil || engine == nil || cycler == nil || mover == nil || nudger == nil {
		return nil, ErrNilCollaborator
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		hw:     hw,
		engine: engine,
		cycler: cycler,
		mover:  mover,
		nudger: nudger,
		cfg:    cfg,
		state:  InitialState(cfg.BaseHeight),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	m.logger = log.Or(m.logger).With("component", "behavior")
	return m, nil
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	return m.State().Mode
}

// Pose returns the current body pose. It is the scheduler's pose source.
func (m *Machine) Pose() pose.Parameters {
	return m.State().Pose
}

func (m *Machine) update(fn func(s *State)) {
	m.mu.Lock()
	fn(&m.state)
	m.mu.Unlock()
}

// Step runs one main-loop iteration: radio ingest, touch handling, then
// the current mode's action.
func (m *Machine) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.hw.WifiRead()

	// Offline pins the gait before touch handling.
	if m.Mode() == Offline {
		m.update(func(s *State) { s.Pose.Set(pose.GaitHeight, 0) })
		m.engine.SetGaitUpDown(m.engine.SelectSequence(m.cfg.DemoGait))
	}

	m.handleTouch()

	action, ok := actions[m.Mode()]
	if !ok {
		return nil
	}
	return action(m, ctx)
}

// handleTouch consumes at most one new touch pattern.
func (m *Machine) handleTouch() {
	m.hw.CheckTouch()
	if !m.hw.IsTouchDetected() {
		return
	}
	pattern := m.hw.TouchPattern(true)

	var prev, next State
	m.update(func(s *State) {
		prev = *s
		*s = Transition(*s, pattern, m.cfg.params())
		next = *s
	})

	m.logger.Debug("touch", "pattern", pattern, "mode", prev.Mode)
	if prev.Mode == Calibration && next.Mode != Calibration {
		m.engine.SetLinMode(robot.LinTransient)
	}
	if prev.Mode != next.Mode {
		m.logger.Info("mode changed", "from", prev.Mode, "to", next.Mode, "pattern", pattern)
		if m.onMode != nil {
			m.onMode(prev.Mode, next.Mode, pattern)
		}
	}
	if next.Mode == Calibration && prev.Calibration != next.Calibration {
		m.logger.Info("calibration", "state", next.Calibration)
	}
}
