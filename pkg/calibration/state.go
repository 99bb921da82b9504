// Package calibration holds the joint-trim UI state and the nudge that
// confirms a newly selected joint layer by twitching it.
package calibration

import (
	"log/slog"

	"github.com/teslashibe/go-hexapod/pkg/robot"
)

// Trim limits.
const (
	MinTrim = 0
	MaxTrim = 250
)

// State is the calibration cursor and trim value. Every mutator wraps or
// clamps, so no out-of-range state is ever observable.
type State struct {
	Leg          int  `json:"leg"`   // [0, robot.NumLegs)
	Layer        int  `json:"layer"` // [0, robot.NumLayers)
	Trim         int  `json:"trim"`  // [MinTrim, MaxTrim]
	PendingNudge bool `json:"pending_nudge"`
}

// SelectNextLeg advances the leg cursor cyclically.
func (s *State) SelectNextLeg() {
	s.Leg = (s.Leg + 1) % robot.NumLegs
}

// SelectNextLayer advances the layer cursor cyclically and arms a nudge.
func (s *State) SelectNextLayer() {
	s.Layer = (s.Layer + 1) % robot.NumLayers
	s.PendingNudge = true
}

// AdjustTrim adds delta and clamps into [MinTrim, MaxTrim].
func (s *State) AdjustTrim(delta int) {
	s.Trim = min(max(s.Trim+delta, MinTrim), MaxTrim)
}

// ResetCursor selects leg 0, layer 0.
func (s *State) ResetCursor() {
	s.Leg = 0
	s.Layer = 0
}

// LogValue implements slog.LogValuer for calibration dumps.
func (s State) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("leg", s.Leg),
		slog.Int("layer", s.Layer),
		slog.Int("trim", s.Trim),
		slog.Bool("pending_nudge", s.PendingNudge),
	)
}

// LegColors returns the per-leg LED feedback: the selected leg shows a grey
// level encoding the layer, the others show the trim as red intensity.
func LegColors(s State) [robot.NumLegs]robot.Color {
	var out [robot.NumLegs]robot.Color
	for i := range out {
		if i == s.Leg {
			out[i] = robot.Gray(uint8(s.Layer*115 + 25))
		} else {
			out[i] = robot.Color{R: uint8(s.Trim)}
		}
	}
	return out
}
