// Package pose holds the body pose vector the kinematics engine consumes
// every cycle. Every write saturates at the axis bounds, so a consumer can
// never observe an out-of-range value.
package pose

import "fmt"

// Axis identifies one component of the pose vector.
type Axis int

const (
	Height       Axis = iota // body height above ground
	Lateral                  // side-to-side body offset
	Longitudinal             // fore-aft body offset
	Yaw                      // rotation about the vertical axis (hip swing)
	Pitch                    // rotation about the lateral axis
	Roll                     // rotation about the longitudinal axis
	GaitHeight               // walking height adjustment set from touch input

	numAxes
)

var axisNames = [numAxes]string{"height", "lateral", "longitudinal", "yaw", "pitch", "roll", "gait_height"}

func (a Axis) String() string {
	if a < 0 || a >= numAxes {
		return fmt.Sprintf("axis(%d)", int(a))
	}
	return axisNames[a]
}

// Bound is an inclusive range.
type Bound struct {
	Min, Max float64
}

// Saturate clamps v into b.
func (b Bound) Saturate(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Contains reports whether v lies within b.
func (b Bound) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Per-axis limits.
var bounds = [numAxes]Bound{
	Height:       {1, 7},
	Lateral:      {-2, 2},
	Longitudinal: {-2, 2},
	Yaw:          {-0.15, 0.15},
	Pitch:        {-0.15, 0.15},
	Roll:         {-0.15, 0.15},
	GaitHeight:   {-3, 3},
}

// BoundOf returns the saturation range of an axis.
func BoundOf(a Axis) Bound {
	return bounds[a]
}

// Axes returns every axis in order.
func Axes() []Axis {
	out := make([]Axis, numAxes)
	for i := range out {
		out[i] = Axis(i)
	}
	return out
}

// Parameters is the pose vector. The zero value is not neutral (height 0 is
// below the bound); use Neutral.
type Parameters struct {
	v [numAxes]float64
}

// Neutral returns a standing pose at baseHeight.
func Neutral(baseHeight float64) Parameters {
	var p Parameters
	p.ResetToNeutral(baseHeight)
	return p
}

// Set saturates value into the axis bound and stores it.
func (p *Parameters) Set(a Axis, value float64) {
	p.v[a] = bounds[a].Saturate(value)
}

// Add applies a saturating increment.
func (p *Parameters) Add(a Axis, delta float64) {
	p.Set(a, p.v[a]+delta)
}

// Get returns the stored value of an axis.
func (p Parameters) Get(a Axis) float64 {
	return p.v[a]
}

// SetRotation writes all three rotation axes.
func (p *Parameters) SetRotation(pitch, roll, yaw float64) {
	p.Set(Pitch, pitch)
	p.Set(Roll, roll)
	p.Set(Yaw, yaw)
}

// SetTranslation writes all three translation axes.
func (p *Parameters) SetTranslation(lateral, longitudinal, height float64) {
	p.Set(Lateral, lateral)
	p.Set(Longitudinal, longitudinal)
	p.Set(Height, height)
}

// ResetToNeutral zeroes rotation and horizontal offsets and restores height.
// GaitHeight belongs to the walking adjustment and is left alone.
func (p *Parameters) ResetToNeutral(baseHeight float64) {
	p.SetRotation(0, 0, 0)
	p.SetTranslation(0, 0, baseHeight)
}

// Translation returns (height, lateral, longitudinal), the engine's order.
func (p Parameters) Translation() [3]float64 {
	return [3]float64{p.v[Height], p.v[Lateral], p.v[Longitudinal]}
}

// Rotation returns (yaw, pitch, roll), the engine's order.
func (p Parameters) Rotation() [3]float64 {
	return [3]float64{p.v[Yaw], p.v[Pitch], p.v[Roll]}
}

// Map returns the pose keyed by axis name, for telemetry.
func (p Parameters) Map() map[string]float64 {
	m := make(map[string]float64, numAxes)
	for i, v := range p.v {
		m[axisNames[i]] = v
	}
	return m
}
