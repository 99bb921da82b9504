// Package robot defines the collaborators the hexapod core drives once per
// cycle and the CycleScheduler that paces them.
//
// This package follows the Interface Segregation Principle (ISP) by defining
// small, focused interfaces that can be composed as needed. Consumers should
// depend only on the interfaces they actually use.
package robot

import "github.com/teslashibe/go-hexapod/pkg/pose"

// Kinematics computes joint targets. Run must be called exactly once per
// cycle, before actuation.
type Kinematics interface {
	SetPose(p pose.Parameters)
	Run()
	Joints() JointAngles
}

// MoveController installs movement parameters into the gait engine.
type MoveController interface {
	// SetMoveParam installs an explicit move. cycles == 0 commands a
	// neutral stance.
	SetMoveParam(speed, angle, turnRate float64, cycles int)

	// SetCommand pulls the latest externally received movement request.
	SetCommand()

	// ResetCommands drops any pending or active movement request.
	ResetCommands()

	// CheckHomeMark reports whether the legs stand in the home stance.
	CheckHomeMark() bool
}

// GaitController selects gait sequences and the leg linearisation mode.
type GaitController interface {
	SelectSequence(id GaitID) Sequence
	SetGaitUpDown(seq Sequence)
	SetLinMode(mode LinMode)
}

// Engine is the composite kinematics/gait engine.
type Engine interface {
	Kinematics
	MoveController
	GaitController
}

// ServoDriver drives the servo bus.
type ServoDriver interface {
	ServoPower(enabled bool)
	ServoWrite(q JointAngles)
}

// LEDDriver drives the RGB strip, one pixel per leg.
type LEDDriver interface {
	SetAllLEDs(brightness uint8, c Color)
	SetAllLEDsRainbow(brightness uint8)
	SetBrightness(brightness uint8)
	SetPixel(i int, c Color)
	Show()
}

// Radio ingests wireless movement commands. WifiRead never blocks; it moves
// whatever has arrived into the buffer the engine's SetCommand consumes.
type Radio interface {
	WifiInit()
	WifiRead()
}

// TouchSensor is the debounced capacitive touch subsystem.
type TouchSensor interface {
	// CheckTouch samples the sensor.
	CheckTouch()

	// IsTouchDetected reports a fresh detection since the last consume.
	IsTouchDetected() bool

	// TouchPattern returns the pattern code in [0,5]; consume clears the
	// detection.
	TouchPattern(consume bool) int
}

// Hardware is the composite hardware driver.
type Hardware interface {
	ServoDriver
	LEDDriver
	Radio
	TouchSensor
}

// Injector accepts virtual touches and teleop requests from any goroutine.
// Drivers that implement it queue the input for the control thread.
type Injector interface {
	InjectTouch(pattern int)
	QueueMove(req MoveRequest)
}

// Ensure the simulated collaborators satisfy the composites.
var (
	_ Engine   = (*SimEngine)(nil)
	_ Hardware = (*SimHardware)(nil)
	_ Injector = (*SimHardware)(nil)
)
