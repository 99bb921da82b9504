package movement

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/clock"
)

// Generator is the MotionCommandGenerator. It owns the active command and
// drives cycles through the runner until the command is exhausted.
// Like the rest of the core it runs on the single control thread.
type Generator struct {
	engine Engine
	runner CycleRunner
	clock  clock.Clock
	cfg    Config
	logger *slog.Logger

	active Command
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator validates cfg and builds a generator. Slip factors left at
// zero take their defaults.
func NewGenerator(engine Engine, runner CycleRunner, c clock.Clock, cfg Config, opts ...Option) (*Generator, error) {
	if engine == nil || runner == nil || c == nil {
		return nil, ErrNilCollaborator
	}
	if cfg.LinearSlip == 0 {
		cfg.LinearSlip = DefaultLinearSlip
	}
	if cfg.TurnSlip == 0 {
		cfg.TurnSlip = DefaultTurnSlip
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("movement: invalid config: %w", err)
	}

	g := &Generator{
		engine: engine,
		runner: runner,
		clock:  c,
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = log.Or(g.logger)
	return g, nil
}

// LinearCycles returns the cycle count for a linear move of distance,
// saturated to [0, MaxCycles].
func (g *Generator) LinearCycles(distance float64) int {
	d := distance * g.cfg.LinearSlip
	return cycles(d / (g.cfg.Speed * g.cfg.FrequencyHz))
}

// TurnCycles returns the cycle count for a turn of degrees, saturated to
// [0, MaxCycles].
func (g *Generator) TurnCycles(degrees float64) int {
	rad := degrees * g.cfg.TurnSlip * math.Pi / 180
	return cycles(rad / (g.cfg.TurnRate * g.cfg.FrequencyHz))
}

func cycles(x float64) int {
	x = math.Round(math.Abs(x))
	switch {
	case math.IsNaN(x):
		return 0
	case x > MaxCycles:
		return MaxCycles
	}
	return int(x)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Active returns the current command. After a drive loop it reports zero
// remaining cycles.
func (g *Generator) Active() Command {
	return g.active
}

// MoveLinear walks distance along direction (radians, 0 = right,
// pi/2 = forward). The sign of distance is ignored; direction carries it.
// A zero distance runs no cycles. Non-finite arguments are rejected before
// anything is sent to the engine.
func (g *Generator) MoveLinear(ctx context.Context, distance, direction float64) error {
	if !finite(distance, direction) {
		return fmt.Errorf("%w: distance %v direction %v", ErrNonFinite, distance, direction)
	}
	g.install(Command{
		Speed:     g.cfg.Speed,
		Direction: direction,
		Remaining: g.LinearCycles(distance),
	})
	return g.drive(ctx)
}

// Forward walks forward.
func (g *Generator) Forward(ctx context.Context, distance float64) error {
	return g.MoveLinear(ctx, distance, HeadingForward)
}

// Backward walks backward.
func (g *Generator) Backward(ctx context.Context, distance float64) error {
	return g.MoveLinear(ctx, distance, HeadingBackward)
}

// Left walks sideways to the left.
func (g *Generator) Left(ctx context.Context, distance float64) error {
	return g.MoveLinear(ctx, distance, HeadingLeft)
}

// Right walks sideways to the right.
func (g *Generator) Right(ctx context.Context, distance float64) error {
	return g.MoveLinear(ctx, distance, HeadingRight)
}

// Turn rotates in place by degrees; positive turns right, negative left.
func (g *Generator) Turn(ctx context.Context, degrees float64) error {
	if !finite(degrees) {
		return fmt.Errorf("%w: angle %v", ErrNonFinite, degrees)
	}
	rate := g.cfg.TurnRate
	if degrees < 0 {
		rate = -rate
	}
	g.install(Command{
		TurnRate:  rate,
		Remaining: g.TurnCycles(degrees),
	})
	return g.drive(ctx)
}

// TurnLeft rotates left by |degrees|.
func (g *Generator) TurnLeft(ctx context.Context, degrees float64) error {
	return g.Turn(ctx, -math.Abs(degrees))
}

// TurnRight rotates right by |degrees|.
func (g *Generator) TurnRight(ctx context.Context, degrees float64) error {
	return g.Turn(ctx, math.Abs(degrees))
}

// ReturnHome commands a neutral stance every cycle until the engine reports
// the home mark and at least minDwell has passed, whichever comes last,
// then runs one settling cycle.
func (g *Generator) ReturnHome(ctx context.Context, minDwell time.Duration) error {
	start := g.clock.Now()
	for !g.engine.CheckHomeMark() || g.clock.Now().Sub(start) < minDwell {
		g.active.Remaining = 0
		g.engine.SetMoveParam(g.active.Speed, g.active.Direction, g.active.TurnRate, 0)
		if err := g.runner.RunCycle(ctx); err != nil {
			return err
		}
	}
	return g.runner.RunCycle(ctx)
}

func (g *Generator) install(cmd Command) {
	g.active = cmd
	g.engine.SetMoveParam(cmd.Speed, cmd.Direction, cmd.TurnRate, cmd.Remaining)
	g.logger.Debug("move installed",
		"speed", cmd.Speed, "direction", cmd.Direction,
		"turn_rate", cmd.TurnRate, "cycles", cmd.Remaining)
}

// drive runs cycles until the active command is exhausted.
func (g *Generator) drive(ctx context.Context) error {
	for g.active.Remaining > 0 {
		if err := g.runner.RunCycle(ctx); err != nil {
			return err
		}
		g.active.Remaining--
	}
	return nil
}
