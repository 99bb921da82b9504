package robot

import (
	"math"
	"sync"

	"github.com/teslashibe/go-hexapod/pkg/pose"
)

// DefaultHomeCycles is how many neutral cycles SimEngine needs to settle.
const DefaultHomeCycles = 10

// SimEngine is a deterministic stand-in for the kinematics/gait engine.
// It produces plausible joint targets (a tripod swing while a move is
// active, a pose-shifted stance otherwise) and reports the home mark after
// a number of consecutive neutral cycles. Used by tests and by the
// controller binary when no real engine is present.
type SimEngine struct {
	buf *CommandBuffer

	pose     pose.Parameters
	joints   JointAngles
	linMode  LinMode
	gait     Sequence
	homeNeed int

	speed, angle, turnRate float64
	cycles                 int
	phase                  float64
	neutralRuns            int

	// Counters for assertions.
	Runs          int
	MoveParams    int
	CommandPulls  int
	CommandResets int
	LinModes      []LinMode // changes only
}

// SimEngineOption configures a SimEngine.
type SimEngineOption func(*SimEngine)

// WithHomeCycles sets how many neutral cycles reach the home stance.
func WithHomeCycles(n int) SimEngineOption {
	return func(e *SimEngine) { e.homeNeed = n }
}

// NewSimEngine creates an engine that pulls radio commands from buf.
// buf may be nil.
func NewSimEngine(buf *CommandBuffer, opts ...SimEngineOption) *SimEngine {
	if buf == nil {
		buf = &CommandBuffer{}
	}
	e := &SimEngine{
		buf:      buf,
		pose:     pose.Neutral(4),
		homeNeed: DefaultHomeCycles,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetPose stores the pose for the next Run.
func (e *SimEngine) SetPose(p pose.Parameters) { e.pose = p }

// Pose returns the last pose received.
func (e *SimEngine) Pose() pose.Parameters { return e.pose }

// Run computes one set of joint targets.
func (e *SimEngine) Run() {
	e.Runs++

	moving := e.cycles > 0
	if moving {
		e.cycles--
		e.phase += 2 * math.Pi / 20
		e.neutralRuns = 0
	} else {
		e.neutralRuns++
	}

	tr := e.pose.Translation()
	rot := e.pose.Rotation()
	for leg := 0; leg < NumLegs; leg++ {
		swing := 0.0
		if moving {
			// Tripod: legs 0,2,4 in phase, 1,3,5 in antiphase.
			offset := float64(leg%2) * math.Pi
			swing = 0.3*math.Sin(e.phase+offset)*math.Max(e.speed*100, 0.2) + e.turnRate*10
		}
		hip := swing + rot[0] + 0.05*float64(leg-2)*rot[2]
		knee := 0.1*(tr[0]-4) + rot[1] + 0.02*e.pose.Get(pose.GaitHeight)
		foot := -knee + 0.05*tr[1]
		e.joints[leg*NumLayers+0] = hip
		e.joints[leg*NumLayers+1] = knee
		e.joints[leg*NumLayers+2] = foot
	}
}

// Joints returns the targets computed by the last Run.
func (e *SimEngine) Joints() JointAngles { return e.joints }

// SetMoveParam installs a move.
func (e *SimEngine) SetMoveParam(speed, angle, turnRate float64, cycles int) {
	e.MoveParams++
	e.speed, e.angle, e.turnRate = speed, angle, turnRate
	e.cycles = max(cycles, 0)
}

// SetCommand pulls the latest radio request, if any, as a one-cycle move.
func (e *SimEngine) SetCommand() {
	e.CommandPulls++
	req, ok := e.buf.Take()
	if !ok {
		return
	}
	if req.Speed == 0 && req.TurnRate == 0 {
		e.SetMoveParam(0, 0, 0, 0)
		return
	}
	e.SetMoveParam(req.Speed, req.Direction, req.TurnRate, 1)
}

// ResetCommands drops pending and active moves.
func (e *SimEngine) ResetCommands() {
	e.CommandResets++
	e.buf.Clear()
	e.speed, e.angle, e.turnRate, e.cycles = 0, 0, 0, 0
}

// CheckHomeMark reports whether enough neutral cycles have run.
func (e *SimEngine) CheckHomeMark() bool {
	return e.neutralRuns >= e.homeNeed
}

// RemainingCycles returns the engine-side move counter.
func (e *SimEngine) RemainingCycles() int { return e.cycles }

// SelectSequence returns a gait sequence for id. Gait 3 is the wave gait,
// anything else is a tripod.
func (e *SimEngine) SelectSequence(id GaitID) Sequence {
	if id == 3 {
		return Sequence{ID: id, Phases: []uint8{0x01, 0x02, 0x04, 0x08, 0x10, 0x20}}
	}
	return Sequence{ID: id, Phases: []uint8{0x15, 0x2a}}
}

// SetGaitUpDown installs a gait sequence.
func (e *SimEngine) SetGaitUpDown(seq Sequence) { e.gait = seq }

// Gait returns the installed gait sequence.
func (e *SimEngine) Gait() Sequence { return e.gait }

// SetLinMode records the linearisation mode.
func (e *SimEngine) SetLinMode(mode LinMode) {
	if n := len(e.LinModes); n == 0 || e.LinModes[n-1] != mode {
		e.LinModes = append(e.LinModes, mode)
	}
	e.linMode = mode
}

// LinMode returns the current linearisation mode.
func (e *SimEngine) LinMode() LinMode { return e.linMode }

// LEDState is what the simulated strip currently shows.
type LEDState struct {
	Rainbow    bool           `json:"rainbow"`
	Brightness uint8          `json:"brightness"`
	Pixels     [NumLegs]Color `json:"pixels"`
	Shown      [NumLegs]Color `json:"shown"`
}

// SimHardware is an in-memory hardware driver. Touch patterns and radio
// requests can be injected from any goroutine; they are consumed only by
// CheckTouch and WifiRead on the control thread. The touch sensor holds a
// single pattern: a newer tap replaces one not yet sampled.
type SimHardware struct {
	buf *CommandBuffer

	mu      sync.Mutex
	touch   int
	tapped  bool
	radioQ  []MoveRequest
	led     LEDState
	powered bool
	joints  JointAngles
	writes  int
	radioOn bool

	detected bool
	pattern  int

	// History of every servo write, kept when Record is true.
	Record  bool
	History []JointAngles
}

// NewSimHardware creates a simulated driver feeding buf.
func NewSimHardware(buf *CommandBuffer) *SimHardware {
	if buf == nil {
		buf = &CommandBuffer{}
	}
	return &SimHardware{buf: buf}
}

// InjectTouch presents a touch pattern to the next CheckTouch, replacing
// any pattern not yet sampled.
func (h *SimHardware) InjectTouch(pattern int) {
	h.mu.Lock()
	h.touch = pattern
	h.tapped = true
	h.mu.Unlock()
}

// QueueMove queues a radio movement request for a later WifiRead.
func (h *SimHardware) QueueMove(req MoveRequest) {
	h.mu.Lock()
	h.radioQ = append(h.radioQ, req)
	h.mu.Unlock()
}

// ServoPower switches the servo rail.
func (h *SimHardware) ServoPower(enabled bool) {
	h.mu.Lock()
	h.powered = enabled
	h.mu.Unlock()
}

// ServoWrite records joint targets.
func (h *SimHardware) ServoWrite(q JointAngles) {
	h.mu.Lock()
	h.joints = q
	h.writes++
	if h.Record {
		h.History = append(h.History, q)
	}
	h.mu.Unlock()
}

// SetAllLEDs paints the strip a single colour.
func (h *SimHardware) SetAllLEDs(brightness uint8, c Color) {
	h.mu.Lock()
	h.led.Rainbow = false
	h.led.Brightness = brightness
	for i := range h.led.Pixels {
		h.led.Pixels[i] = c
	}
	h.led.Shown = h.led.Pixels
	h.mu.Unlock()
}

// SetAllLEDsRainbow starts the rainbow animation.
func (h *SimHardware) SetAllLEDsRainbow(brightness uint8) {
	h.mu.Lock()
	h.led.Rainbow = true
	h.led.Brightness = brightness
	h.mu.Unlock()
}

// SetBrightness sets the strip brightness.
func (h *SimHardware) SetBrightness(brightness uint8) {
	h.mu.Lock()
	h.led.Brightness = brightness
	h.mu.Unlock()
}

// SetPixel stages one pixel; Show latches it.
func (h *SimHardware) SetPixel(i int, c Color) {
	if i < 0 || i >= NumLegs {
		return
	}
	h.mu.Lock()
	h.led.Rainbow = false
	h.led.Pixels[i] = c
	h.mu.Unlock()
}

// Show latches staged pixels.
func (h *SimHardware) Show() {
	h.mu.Lock()
	h.led.Shown = h.led.Pixels
	h.mu.Unlock()
}

// WifiInit enables the radio.
func (h *SimHardware) WifiInit() {
	h.mu.Lock()
	h.radioOn = true
	h.mu.Unlock()
}

// WifiRead moves queued requests into the command buffer; the newest wins.
func (h *SimHardware) WifiRead() {
	h.mu.Lock()
	q := h.radioQ
	h.radioQ = nil
	on := h.radioOn
	h.mu.Unlock()

	if !on {
		return
	}
	for _, req := range q {
		h.buf.Put(req)
	}
}

// CheckTouch samples the latest injected pattern, if any.
func (h *SimHardware) CheckTouch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.tapped {
		return
	}
	h.pattern = h.touch
	h.tapped = false
	h.detected = true
}

// IsTouchDetected reports an unconsumed detection.
func (h *SimHardware) IsTouchDetected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.detected
}

// TouchPattern returns the detected pattern; consume clears the detection.
func (h *SimHardware) TouchPattern(consume bool) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.pattern
	if consume {
		h.detected = false
	}
	return p
}

// LEDs returns the strip state.
func (h *SimHardware) LEDs() LEDState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.led
}

// Powered reports the servo rail state.
func (h *SimHardware) Powered() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.powered
}

// LastWrite returns the most recent joint targets and the total write count.
func (h *SimHardware) LastWrite() (JointAngles, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.joints, h.writes
}

// RadioEnabled reports whether WifiInit has run.
func (h *SimHardware) RadioEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.radioOn
}
