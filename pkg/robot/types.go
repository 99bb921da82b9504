package robot

import (
	"sync"
	"time"
)

// Body geometry.
const (
	NumLegs   = 6
	NumLayers = 3 // joints per leg, hip outward
	NumJoints = NumLegs * NumLayers
)

// JointAngles holds one target per servo, in radians.
type JointAngles [NumJoints]float64

// Color is an RGB triple.
type Color struct {
	R, G, B uint8
}

// Mode colours.
var (
	Red    = Color{255, 0, 0}
	Green  = Color{0, 255, 0}
	Blue   = Color{0, 0, 255}
	Yellow = Color{255, 255, 0}
	Cyan   = Color{0, 255, 255}
)

// Gray returns a white tone of the given level.
func Gray(level uint8) Color {
	return Color{level, level, level}
}

// LinMode selects how the engine linearises leg trajectories.
type LinMode int

const (
	LinTransient          LinMode = iota // normal walking
	LinHoldForCalibration                // legs hold still so trims can be judged
	LinPermanent                         // used while waking up
)

func (m LinMode) String() string {
	switch m {
	case LinTransient:
		return "transient"
	case LinHoldForCalibration:
		return "hold-for-calibration"
	case LinPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// GaitID names a gait table in the engine.
type GaitID int

// Sequence is a gait up/down sequence: one bitmask of lifted legs per phase.
type Sequence struct {
	ID     GaitID
	Phases []uint8
}

// MoveRequest is a movement command received over the radio.
type MoveRequest struct {
	Speed     float64   `json:"speed"`
	Direction float64   `json:"direction"` // radians, 0 = right, pi/2 = forward
	TurnRate  float64   `json:"turn_rate"`
	Received  time.Time `json:"received"`
}

// CommandBuffer hands radio requests from the driver to the engine. The
// driver writes, the engine takes on the control thread, so a request
// becomes visible only at a cycle boundary.
type CommandBuffer struct {
	mu      sync.Mutex
	pending *MoveRequest
}

// Put replaces any pending request.
func (b *CommandBuffer) Put(req MoveRequest) {
	b.mu.Lock()
	b.pending = &req
	b.mu.Unlock()
}

// Take returns and clears the pending request.
func (b *CommandBuffer) Take() (MoveRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return MoveRequest{}, false
	}
	req := *b.pending
	b.pending = nil
	return req, true
}

// Clear drops any pending request.
func (b *CommandBuffer) Clear() {
	b.mu.Lock()
	b.pending = nil
	b.mu.Unlock()
}
