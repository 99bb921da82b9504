// Package behavior implements the hexapod's behaviour state machine: six
// mutually exclusive modes, switched by debounced touch patterns, each with
// its own per-cycle action.
package behavior

import (
	"encoding/json"
	"fmt"

	"github.com/teslashibe/go-hexapod/pkg/calibration"
	"github.com/teslashibe/go-hexapod/pkg/pose"
)

// Mode is a behaviour mode.
type Mode int

const (
	PreCalibration Mode = iota
	Calibration
	Walking
	Offline
	Dancing
	Random
)

var modeNames = map[Mode]string{
	PreCalibration: "pre-calibration",
	Calibration:    "calibration",
	Walking:        "walking",
	Offline:        "offline",
	Dancing:        "dancing",
	Random:         "random",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// MarshalJSON encodes the mode by name.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// cycle is the order the "next mode" touch walks through.
var cycle = map[Mode]Mode{
	Walking: Offline,
	Offline: Dancing,
	Dancing: Random,
	Random:  Walking,
}

// Next returns the mode after m in the cyclic order. Modes outside the
// cycle map to themselves.
func (m Mode) Next() Mode {
	if n, ok := cycle[m]; ok {
		return n
	}
	return m
}

// HipFlag is a pending scripted move requested by touch: -1 back, +1 forward.
type HipFlag int

const (
	HipNone    HipFlag = 0
	HipBack    HipFlag = -1
	HipForward HipFlag = 1
)

// Touch pattern codes.
const (
	PatternNone  = 0
	PatternLeft  = 1 // decrease
	PatternNext  = 2
	PatternLayer = 3
	PatternRight = 4 // increase
	PatternMode  = 5
)

// State is everything the machine mutates: the active mode, the
// calibration cursor, the pending hip move, and the body pose.
type State struct {
	Mode        Mode              `json:"mode"`
	Calibration calibration.State `json:"calibration"`
	Hip         HipFlag           `json:"hip"`
	Pose        pose.Parameters   `json:"-"`
}

// InitialState returns the boot state: PreCalibration, neutral pose.
func InitialState(baseHeight float64) State {
	return State{
		Mode: PreCalibration,
		Pose: pose.Neutral(baseHeight),
	}
}
