package movement

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const period = 10 * time.Millisecond

// stepRunner advances the fake clock one period per cycle.
type stepRunner struct {
	clk    *clock.Fake
	cycles int
	failAt int // cycle number that returns err, 0 = never
	err    error
}

func (r *stepRunner) RunCycle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.cycles++
	if r.failAt != 0 && r.cycles == r.failAt {
		return r.err
	}
	r.clk.Advance(period)
	return nil
}

type moveParam struct {
	Speed, Angle, TurnRate float64
	Cycles                 int
}

// homeEngine reports home once the clock reaches homeAt.
type homeEngine struct {
	clk    *clock.Fake
	homeAt time.Duration
	params []moveParam
}

func (e *homeEngine) SetMoveParam(speed, angle, turnRate float64, cycles int) {
	e.params = append(e.params, moveParam{speed, angle, turnRate, cycles})
}

func (e *homeEngine) CheckHomeMark() bool {
	return clock.Since(e.clk, epoch) >= e.homeAt
}

func testConfig() Config {
	return Config{Speed: 0.002, TurnRate: 0.001, FrequencyHz: 100}
}

func newTestGenerator(t *testing.T, homeAt time.Duration) (*Generator, *homeEngine, *stepRunner, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(epoch, time.Millisecond)
	eng := &homeEngine{clk: clk, homeAt: homeAt}
	run := &stepRunner{clk: clk}
	g, err := NewGenerator(eng, run, clk, testConfig(), WithLogger(log.Discard()))
	require.NoError(t, err)
	return g, eng, run, clk
}

func TestNewGenerator_RejectsZeroConstants(t *testing.T) {
	clk := clock.NewFake(epoch, time.Millisecond)
	eng := &homeEngine{clk: clk}
	run := &stepRunner{clk: clk}

	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"zero speed", Config{TurnRate: 1, FrequencyHz: 100}, ErrInvalidSpeed},
		{"negative speed", Config{Speed: -1, TurnRate: 1, FrequencyHz: 100}, ErrInvalidSpeed},
		{"zero turn rate", Config{Speed: 1, FrequencyHz: 100}, ErrInvalidTurnRate},
		{"zero frequency", Config{Speed: 1, TurnRate: 1}, ErrInvalidFrequency},
		{"NaN speed", Config{Speed: math.NaN(), TurnRate: 1, FrequencyHz: 100}, ErrInvalidSpeed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(eng, run, clk, tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := NewGenerator(nil, run, clk, testConfig())
	assert.ErrorIs(t, err, ErrNilCollaborator)
}

func TestMoveLinear_CycleCount(t *testing.T) {
	tests := []struct {
		distance float64
		want     int
	}{
		{5, 27},  // 5*1.08 / (0.002*100)
		{-5, 27}, // sign ignored
		{10, 54},
		{0, 0},
		{0.05, 0}, // rounds down to zero
	}
	for _, tt := range tests {
		g, eng, run, _ := newTestGenerator(t, 0)

		require.NoError(t, g.MoveLinear(context.Background(), tt.distance, HeadingForward))

		want := int(math.Round(math.Abs(1.08 * tt.distance / (0.002 * 100))))
		assert.Equal(t, want, tt.want, "table disagrees with formula for %v", tt.distance)
		assert.Equal(t, tt.want, run.cycles, "distance %v", tt.distance)
		assert.Equal(t, 0, g.Active().Remaining)
		assert.True(t, g.Active().Done())
		require.Len(t, eng.params, 1)
		assert.Equal(t, moveParam{0.002, HeadingForward, 0, tt.want}, eng.params[0])
	}
}

func TestLinearHelpers_Headings(t *testing.T) {
	g, eng, _, _ := newTestGenerator(t, 0)
	ctx := context.Background()

	require.NoError(t, g.Forward(ctx, 1))
	require.NoError(t, g.Backward(ctx, 1))
	require.NoError(t, g.Left(ctx, 1))
	require.NoError(t, g.Right(ctx, 1))

	var got []float64
	for _, p := range eng.params {
		got = append(got, p.Angle)
	}
	want := []float64{math.Pi / 2, -math.Pi / 2, math.Pi, 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("headings mismatch (-want +got):\n%s", diff)
	}
}

func TestTurn(t *testing.T) {
	g, eng, run, _ := newTestGenerator(t, 0)
	ctx := context.Background()

	require.NoError(t, g.TurnRight(ctx, 90))
	assert.Equal(t, 18, run.cycles) // 90*1.15 deg = 1.806 rad / 0.1
	assert.Equal(t, moveParam{0, 0, 0.001, 18}, eng.params[0])

	require.NoError(t, g.TurnLeft(ctx, 90))
	assert.Equal(t, moveParam{0, 0, -0.001, 18}, eng.params[1])

	require.NoError(t, g.Turn(ctx, -90))
	assert.Equal(t, -0.001, eng.params[2].TurnRate)

	require.NoError(t, g.Turn(ctx, 0))
	assert.Equal(t, 0, eng.params[3].Cycles)
	assert.Equal(t, 54, run.cycles)
}

func TestMoveLinear_StopsOnCancel(t *testing.T) {
	g, _, run, _ := newTestGenerator(t, 0)
	run.failAt = 5
	run.err = context.Canceled

	err := g.Forward(context.Background(), 5)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 27-4, g.Active().Remaining, "four cycles completed before cancel")
}

func TestMove_RejectsNonFinite(t *testing.T) {
	g, eng, run, _ := newTestGenerator(t, 0)
	ctx := context.Background()

	assert.ErrorIs(t, g.MoveLinear(ctx, math.NaN(), HeadingForward), ErrNonFinite)
	assert.ErrorIs(t, g.MoveLinear(ctx, math.Inf(1), HeadingForward), ErrNonFinite)
	assert.ErrorIs(t, g.MoveLinear(ctx, 1, math.NaN()), ErrNonFinite)
	assert.ErrorIs(t, g.Turn(ctx, math.Inf(-1)), ErrNonFinite)
	assert.ErrorIs(t, g.TurnLeft(ctx, math.NaN()), ErrNonFinite)

	assert.Empty(t, eng.params, "nothing sent to the engine")
	assert.Zero(t, run.cycles)
}

func TestCycles_Saturate(t *testing.T) {
	g, _, _, _ := newTestGenerator(t, 0)

	assert.Equal(t, MaxCycles, g.LinearCycles(1e300))
	assert.Equal(t, MaxCycles, g.LinearCycles(-1e300))
	assert.Equal(t, MaxCycles, g.LinearCycles(math.MaxFloat64))
	assert.Equal(t, MaxCycles, g.TurnCycles(-1e300))
	assert.Zero(t, g.LinearCycles(math.NaN()))
}

func TestMoveLinear_HugeDistanceNeverNegative(t *testing.T) {
	g, eng, run, _ := newTestGenerator(t, 0)
	run.failAt = 1
	run.err = context.Canceled

	err := g.Forward(context.Background(), 1e300)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, eng.params, 1)
	assert.Equal(t, MaxCycles, eng.params[0].Cycles)
	assert.Equal(t, MaxCycles, g.Active().Remaining)
}

func TestReturnHome_DwellDominatesEarlyHome(t *testing.T) {
	g, eng, run, clk := newTestGenerator(t, 1500*time.Millisecond)

	require.NoError(t, g.ReturnHome(context.Background(), 2*time.Second))

	elapsed := clock.Since(clk, epoch)
	assert.GreaterOrEqual(t, elapsed, 2*time.Second)
	// Loop stops at 2.0s, then one settling cycle.
	assert.Equal(t, 2*time.Second+period, elapsed)
	assert.Equal(t, 201, run.cycles)
	for _, p := range eng.params {
		assert.Equal(t, 0, p.Cycles, "every home iteration commands zero cycles")
	}
}

func TestReturnHome_LateHomeDominatesDwell(t *testing.T) {
	g, _, _, clk := newTestGenerator(t, 3*time.Second)

	require.NoError(t, g.ReturnHome(context.Background(), time.Second))

	assert.Equal(t, 3*time.Second+period, clock.Since(clk, epoch))
}

func TestReturnHome_AlreadyHome(t *testing.T) {
	g, eng, run, _ := newTestGenerator(t, 0)

	require.NoError(t, g.ReturnHome(context.Background(), 0))

	assert.Equal(t, 1, run.cycles, "only the settling cycle")
	assert.Empty(t, eng.params)
}

func TestReturnHome_Cancelled(t *testing.T) {
	g, _, _, _ := newTestGenerator(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, g.ReturnHome(ctx, 0), context.Canceled)
}
