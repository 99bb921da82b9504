package calibration

import "github.com/teslashibe/go-hexapod/pkg/robot"

// Selection is a (leg, layer) pair.
type Selection struct {
	Leg, Layer int
}

// Layout maps a selection to the joint indices a nudge displaces.
type Layout map[Selection][]int

// DefaultLayout numbers joints leg-major (joint = leg*NumLayers + layer) and
// nudges the selected joint together with the next joint outward on the
// same leg, wrapping from the foot back to the hip. For leg 5, layer 1 that
// is joints 16 and 17.
func DefaultLayout() Layout {
	l := make(Layout, robot.NumJoints)
	for leg := 0; leg < robot.NumLegs; leg++ {
		for layer := 0; layer < robot.NumLayers; layer++ {
			next := (layer + 1) % robot.NumLayers
			l[Selection{leg, layer}] = []int{
				leg*robot.NumLayers + layer,
				leg*robot.NumLayers + next,
			}
		}
	}
	return l
}

// Joints returns the joints for a selection, or nil if unmapped.
func (l Layout) Joints(leg, layer int) []int {
	return l[Selection{leg, layer}]
}
