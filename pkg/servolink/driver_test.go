package servolink

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/clock"
	"github.com/teslashibe/go-hexapod/pkg/robot"
)

// fakePort is the host end of an in-memory serial line. The test plays the
// board by writing frames to board.
type fakePort struct {
	r     *io.PipeReader
	board *io.PipeWriter

	mu       sync.Mutex
	out      bytes.Buffer
	writeErr error
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{r: r, board: w}
}

func (p *fakePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.out.Write(b)
}

func (p *fakePort) Close() error { return p.r.Close() }

func (p *fakePort) written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.out.Bytes())
}

func (p *fakePort) emit(t *testing.T, cmd byte, payload []byte) {
	t.Helper()
	_, err := p.board.Write(Encode(cmd, payload))
	require.NoError(t, err)
}

func newDriver(t *testing.T, opts ...Option) (*Driver, *fakePort, *robot.CommandBuffer) {
	t.Helper()
	port := newFakePort()
	buf := &robot.CommandBuffer{}
	d := New(port, buf, append([]Option{WithLogger(log.Discard())}, opts...)...)
	t.Cleanup(func() { d.Close() })
	return d, port, buf
}

func TestDriver_Writes(t *testing.T) {
	d, port, _ := newDriver(t)
	var q robot.JointAngles
	q[4] = 0.5

	d.ServoPower(true)
	d.ServoWrite(q)
	d.SetPixel(2, robot.Blue)
	d.SetPixel(9, robot.Blue) // out of range, ignored

	var want []byte
	want = append(want, Encode(CmdServoPower, []byte{1})...)
	want = append(want, Encode(CmdServoWrite, EncodeJoints(q))...)
	want = append(want, Encode(CmdLEDPixel, []byte{2, 0, 0, 255})...)
	assert.Equal(t, want, port.written())
}

func TestDriver_TouchFromBoard(t *testing.T) {
	d, port, _ := newDriver(t)
	port.emit(t, EvtTouch, []byte{5})

	require.Eventually(t, func() bool {
		d.CheckTouch()
		return d.IsTouchDetected()
	}, time.Second, time.Millisecond)
	assert.Equal(t, 5, d.TouchPattern(false))

	// Peeking keeps the latch.
	d.CheckTouch()
	assert.Equal(t, 5, d.TouchPattern(true))
	assert.False(t, d.IsTouchDetected())
}

func TestDriver_TouchNewestWins(t *testing.T) {
	d, _, _ := newDriver(t)
	d.InjectTouch(5)
	d.InjectTouch(1)
	d.InjectTouch(2)

	d.CheckTouch()
	require.True(t, d.IsTouchDetected())
	assert.Equal(t, 2, d.TouchPattern(true))

	d.CheckTouch()
	assert.False(t, d.IsTouchDetected(), "superseded taps must not be replayed")
}

func TestDriver_RadioNeedsInit(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Millisecond)
	d, port, buf := newDriver(t, WithClock(clk))
	port.emit(t, EvtMove, EncodeMove(robot.MoveRequest{Speed: 0.002}))

	// Wait until the reader has queued it.
	require.Eventually(t, func() bool { return len(d.moves) == 1 }, time.Second, time.Millisecond)

	d.WifiRead()
	_, ok := buf.Take()
	assert.False(t, ok, "radio is off")

	d.WifiInit()
	d.WifiRead()
	req, ok := buf.Take()
	require.True(t, ok)
	assert.InDelta(t, 0.002, req.Speed, 1e-7)
	assert.Equal(t, clk.Now(), req.Received)
	assert.True(t, bytes.HasSuffix(port.written(), Encode(CmdRadioInit, nil)))
}

func TestDriver_QueueMoveKeepsNewest(t *testing.T) {
	d, _, buf := newDriver(t)
	for i := 0; i <= moveQueue; i++ {
		d.QueueMove(robot.MoveRequest{Speed: float64(i)})
	}
	d.WifiInit()
	d.WifiRead()

	req, ok := buf.Take()
	require.True(t, ok)
	assert.Equal(t, float64(moveQueue), req.Speed)
}

func TestDriver_BadFramesCounted(t *testing.T) {
	d, port, _ := newDriver(t)
	bad := Encode(EvtTouch, []byte{1})
	bad[3] = 9
	_, err := port.board.Write(bad)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return d.BadFrames() == 1 }, time.Second, time.Millisecond)
}

func TestDriver_WriteErrorsThrottled(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Millisecond)

	d, port, _ := newDriver(t, WithLogger(logger), WithClock(clk), WithErrorInterval(time.Second))
	port.mu.Lock()
	port.writeErr = errors.New("unplugged")
	port.mu.Unlock()

	for i := 0; i < 5; i++ {
		d.Show()
	}
	assert.Equal(t, 1, strings.Count(logs.String(), "serial write failed"))

	clk.Advance(time.Second)
	d.Show()
	assert.Equal(t, 2, strings.Count(logs.String(), "serial write failed"))
	assert.Contains(t, logs.String(), "suppressed=4")
}

func TestDriver_CloseIdempotent(t *testing.T) {
	d, _, _ := newDriver(t)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
}
