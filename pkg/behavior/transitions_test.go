package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/go-hexapod/pkg/calibration"
	"github.com/teslashibe/go-hexapod/pkg/pose"
)

var testParams = Params{TrimStep: 25, GaitHeightStep: 3}

func stateIn(m Mode) State {
	s := InitialState(4)
	s.Mode = m
	return s
}

func TestTransition_PreCalibrationEntersCalibration(t *testing.T) {
	s := stateIn(PreCalibration)
	s.Calibration = calibration.State{Leg: 3, Layer: 2, Trim: 120}

	got := Transition(s, PatternMode, testParams)

	assert.Equal(t, Calibration, got.Mode)
	assert.Equal(t, 0, got.Calibration.Leg)
	assert.Equal(t, 0, got.Calibration.Layer)
	assert.Equal(t, 120, got.Calibration.Trim)
}

func TestTransition_PreCalibrationOtherPatternsWalk(t *testing.T) {
	for _, p := range []int{PatternNone, PatternLeft, PatternNext, PatternLayer, PatternRight} {
		got := Transition(stateIn(PreCalibration), p, testParams)
		assert.Equal(t, Walking, got.Mode, "pattern %d", p)
	}
}

func TestTransition_CyclicOrder(t *testing.T) {
	s := stateIn(Walking)
	var seen []Mode
	for i := 0; i < 4; i++ {
		s = Transition(s, PatternNext, testParams)
		seen = append(seen, s.Mode)
	}
	assert.Equal(t, []Mode{Offline, Dancing, Random, Walking}, seen)
}

func TestTransition_ModePatternLeavesCycle(t *testing.T) {
	for _, m := range []Mode{Walking, Offline, Dancing, Random} {
		got := Transition(stateIn(m), PatternMode, testParams)
		assert.Equal(t, PreCalibration, got.Mode, "from %s", m)
	}
	got := Transition(stateIn(Calibration), PatternMode, testParams)
	assert.Equal(t, Walking, got.Mode)
}

func TestTransition_TrimSteps(t *testing.T) {
	s := stateIn(Calibration)
	s.Calibration.Trim = 100

	for i := 0; i < 3; i++ {
		s = Transition(s, PatternRight, testParams)
	}
	assert.Equal(t, 175, s.Calibration.Trim)

	for i := 0; i < 10; i++ {
		s = Transition(s, PatternRight, testParams)
	}
	assert.Equal(t, calibration.MaxTrim, s.Calibration.Trim)

	for i := 0; i < 20; i++ {
		s = Transition(s, PatternLeft, testParams)
	}
	assert.Equal(t, calibration.MinTrim, s.Calibration.Trim)
	assert.Equal(t, Calibration, s.Mode)
}

func TestTransition_CalibrationCursor(t *testing.T) {
	s := Transition(stateIn(Calibration), PatternLayer, testParams)
	assert.Equal(t, 1, s.Calibration.Layer)
	assert.True(t, s.Calibration.PendingNudge)

	s = Transition(s, PatternNext, testParams)
	assert.Equal(t, 1, s.Calibration.Leg)
	assert.Equal(t, Calibration, s.Mode)
}

func TestTransition_WalkingGaitHeight(t *testing.T) {
	s := Transition(stateIn(Walking), PatternLeft, testParams)
	assert.Equal(t, -3.0, s.Pose.Get(pose.GaitHeight))

	s = Transition(s, PatternRight, testParams)
	s = Transition(s, PatternRight, testParams)
	s = Transition(s, PatternRight, testParams)
	assert.Equal(t, 3.0, s.Pose.Get(pose.GaitHeight), "saturates at the bound")
	assert.Equal(t, Walking, s.Mode)
}

func TestTransition_HipFlags(t *testing.T) {
	for _, m := range []Mode{Offline, Dancing} {
		assert.Equal(t, HipBack, Transition(stateIn(m), PatternLeft, testParams).Hip)
		assert.Equal(t, HipForward, Transition(stateIn(m), PatternRight, testParams).Hip)
		assert.Equal(t, m, Transition(stateIn(m), PatternLeft, testParams).Mode)
	}
}

func TestTransition_UnmappedPatternIsNoop(t *testing.T) {
	cases := []struct {
		mode    Mode
		pattern int
	}{
		{Random, PatternLeft},
		{Random, PatternLayer},
		{Walking, PatternLayer},
		{Offline, PatternNone},
		{Calibration, PatternNone},
	}
	for _, tc := range cases {
		in := stateIn(tc.mode)
		assert.Equal(t, in, Transition(in, tc.pattern, testParams), "%s/%d", tc.mode, tc.pattern)
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "dancing", Dancing.String())
	assert.Equal(t, "mode(42)", Mode(42).String())
	assert.Equal(t, Calibration, Calibration.Next())
}
