package hexapod

import (
	"time"

	"github.com/teslashibe/go-hexapod/pkg/behavior"
	"github.com/teslashibe/go-hexapod/pkg/calibration"
	"github.com/teslashibe/go-hexapod/pkg/robot"
)

// Snapshot is the telemetry view of the controller after a step.
type Snapshot struct {
	SessionID   string              `json:"session_id"`
	Seq         uint64              `json:"seq"`
	Time        time.Time           `json:"time"`
	Awake       bool                `json:"awake"`
	Mode        behavior.Mode       `json:"mode"`
	Hip         behavior.HipFlag    `json:"hip"`
	Calibration calibration.State   `json:"calibration"`
	Pose        map[string]float64  `json:"pose"`
	Joints      robot.JointAngles   `json:"joints"`
	Stats       robot.StatsSnapshot `json:"stats"`
	LEDs        *robot.LEDState     `json:"leds,omitempty"`
	ModeChanges int                 `json:"mode_changes"`
	LastPattern int                 `json:"last_pattern"`
}

// ledReader is implemented by drivers that can report the strip state.
type ledReader interface {
	LEDs() robot.LEDState
}

// Snapshot returns the last published telemetry with current timing
// statistics.
func (r *Robot) Snapshot() Snapshot {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()
	snap.Stats = r.sched.Stats()
	return snap
}

// publish refreshes the snapshot from the control thread. Timing
// statistics are left to readers; the hook receives them empty.
func (r *Robot) publish() {
	var st behavior.State
	if r.machine != nil {
		st = r.machine.State()
	}

	r.mu.Lock()
	r.seq++
	r.snap.SessionID = r.session
	r.snap.Seq = r.seq
	r.snap.Time = r.clock.Now()
	r.snap.Mode = st.Mode
	r.snap.Hip = st.Hip
	r.snap.Calibration = st.Calibration
	r.snap.Pose = st.Pose.Map()
	r.snap.Joints = r.engine.Joints()
	if lr, ok := r.hw.(ledReader); ok {
		leds := lr.LEDs()
		r.snap.LEDs = &leds
	}
	snap := r.snap
	r.mu.Unlock()

	if r.onSnap != nil {
		r.onSnap(snap)
	}
}
