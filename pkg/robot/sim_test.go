package robot

import (
	"testing"

	"github.com/teslashibe/go-hexapod/pkg/pose"
)

func TestSimHardware_TouchConsumedOnce(t *testing.T) {
	hw := NewSimHardware(nil)

	hw.CheckTouch()
	if hw.IsTouchDetected() {
		t.Fatal("no touch injected, nothing should be detected")
	}

	hw.InjectTouch(5)
	hw.InjectTouch(2)
	hw.CheckTouch()
	if !hw.IsTouchDetected() {
		t.Fatal("expected detection")
	}
	if p := hw.TouchPattern(false); p != 2 {
		t.Errorf("peek pattern = %d, want 2", p)
	}
	if !hw.IsTouchDetected() {
		t.Error("peeking must not consume")
	}
	if p := hw.TouchPattern(true); p != 2 {
		t.Errorf("pattern = %d, want 2", p)
	}
	if hw.IsTouchDetected() {
		t.Error("consume should clear detection")
	}

	hw.CheckTouch()
	if hw.IsTouchDetected() {
		t.Error("a sampled touch must not be replayed")
	}
}

func TestSimHardware_RadioFeedsEngine(t *testing.T) {
	buf := &CommandBuffer{}
	hw := NewSimHardware(buf)
	eng := NewSimEngine(buf)

	hw.QueueMove(MoveRequest{Speed: 0.002, Direction: 1.57})
	hw.WifiRead()
	eng.SetCommand()
	if eng.RemainingCycles() != 0 {
		t.Error("radio disabled: request must be ignored")
	}

	hw.WifiInit()
	hw.QueueMove(MoveRequest{Speed: 0.002, Direction: 1.57})
	hw.WifiRead()
	eng.SetCommand()
	if eng.RemainingCycles() != 1 {
		t.Errorf("RemainingCycles = %d, want 1", eng.RemainingCycles())
	}

	eng.SetCommand()
	if eng.CommandPulls != 3 {
		t.Errorf("CommandPulls = %d, want 3", eng.CommandPulls)
	}
}

func TestSimEngine_HomeMarkAfterNeutralCycles(t *testing.T) {
	eng := NewSimEngine(nil, WithHomeCycles(3))
	eng.SetMoveParam(0.002, 0, 0, 2)

	for i := 0; i < 2; i++ {
		eng.Run()
		if eng.CheckHomeMark() {
			t.Fatalf("home mark while moving (run %d)", i)
		}
	}
	for i := 0; i < 3; i++ {
		eng.Run()
	}
	if !eng.CheckHomeMark() {
		t.Error("expected home mark after 3 neutral cycles")
	}
}

func TestSimEngine_ResetCommands(t *testing.T) {
	buf := &CommandBuffer{}
	eng := NewSimEngine(buf)
	buf.Put(MoveRequest{Speed: 1})
	eng.SetMoveParam(1, 0, 0, 50)

	eng.ResetCommands()

	if eng.RemainingCycles() != 0 {
		t.Errorf("RemainingCycles = %d after reset", eng.RemainingCycles())
	}
	if _, ok := buf.Take(); ok {
		t.Error("reset should clear the buffer")
	}
}

func TestSimEngine_PoseShiftsJoints(t *testing.T) {
	eng := NewSimEngine(nil)
	eng.Run()
	neutral := eng.Joints()

	p := pose.Neutral(4)
	p.Set(pose.Yaw, 0.15)
	eng.SetPose(p)
	eng.Run()

	if eng.Joints() == neutral {
		t.Error("yaw change should move the hips")
	}
}

func TestSimHardware_LEDs(t *testing.T) {
	hw := NewSimHardware(nil)

	hw.SetAllLEDs(50, Red)
	if st := hw.LEDs(); st.Brightness != 50 || st.Shown[3] != Red || st.Rainbow {
		t.Errorf("LEDs = %+v", st)
	}

	hw.SetBrightness(255)
	hw.SetPixel(2, Gray(140))
	hw.SetPixel(9, Blue) // out of range, ignored
	if st := hw.LEDs(); st.Shown[2] == Gray(140) {
		t.Error("pixel must not show before Show()")
	}
	hw.Show()
	if st := hw.LEDs(); st.Shown[2] != Gray(140) || st.Brightness != 255 {
		t.Errorf("LEDs after Show = %+v", st)
	}

	hw.SetAllLEDsRainbow(100)
	if !hw.LEDs().Rainbow {
		t.Error("expected rainbow")
	}
}

func TestLinMode_String(t *testing.T) {
	if LinHoldForCalibration.String() != "hold-for-calibration" {
		t.Errorf("got %q", LinHoldForCalibration.String())
	}
	if LinMode(9).String() != "unknown" {
		t.Errorf("got %q", LinMode(9).String())
	}
}
