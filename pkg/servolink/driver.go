package servolink

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/clock"
	"github.com/teslashibe/go-hexapod/pkg/robot"
)

// DefaultErrorInterval is the minimum time between two logged write errors.
const DefaultErrorInterval = 5 * time.Second

const moveQueue = 64

// Driver implements robot.Hardware over a serial link. A reader goroutine
// decodes board events into a single touch slot and a move queue;
// CheckTouch and WifiRead drain them on the control thread without
// blocking. Writes never fail from the caller's
// view: errors are logged at most once per interval.
type Driver struct {
	port   io.ReadWriteCloser
	buf    *robot.CommandBuffer
	clock  clock.Clock
	logger *slog.Logger

	touch chan int
	moves chan robot.MoveRequest
	done  chan struct{}
	wg    sync.WaitGroup

	writeMu     sync.Mutex
	errInterval time.Duration
	lastErrLog  time.Time
	suppressed  int

	// Control thread only.
	radioOn  bool
	detected bool
	pattern  int

	statsMu   sync.Mutex
	badFrames int
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithClock sets the clock used for error throttling.
func WithClock(c clock.Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithErrorInterval sets the minimum gap between logged write errors.
func WithErrorInterval(iv time.Duration) Option {
	return func(d *Driver) { d.errInterval = iv }
}

// Open opens a serial port and starts a driver on it.
func Open(path string, opts PortOptions, buf *robot.CommandBuffer, dopts ...Option) (*Driver, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return New(port, buf, dopts...), nil
}

// New starts a driver on an open port. buf receives radio requests and is
// normally shared with the engine.
func New(port io.ReadWriteCloser, buf *robot.CommandBuffer, opts ...Option) *Driver {
	if buf == nil {
		buf = &robot.CommandBuffer{}
	}
	d := &Driver{
		port:        port,
		buf:         buf,
		clock:       clock.Real{},
		touch:       make(chan int, 1),
		moves:       make(chan robot.MoveRequest, moveQueue),
		done:        make(chan struct{}),
		errInterval: DefaultErrorInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = log.Or(d.logger).With("component", "servolink")

	d.wg.Add(1)
	go d.readLoop()
	return d
}

// Close closes the port and waits for the reader to exit.
func (d *Driver) Close() error {
	select {
	case <-d.done:
		return nil
	default:
	}
	close(d.done)
	err := d.port.Close()
	d.wg.Wait()
	return err
}

// BadFrames returns how many corrupt frames the reader has dropped.
func (d *Driver) BadFrames() int {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.badFrames
}

func (d *Driver) readLoop() {
	defer d.wg.Done()
	r := bufio.NewReader(d.port)

	for {
		f, err := Decode(r)
		switch {
		case err == nil:
			d.dispatch(f)
		case errors.Is(err, ErrChecksum):
			d.statsMu.Lock()
			d.badFrames++
			d.statsMu.Unlock()
			d.logger.Debug("dropped frame", "error", err)
		default:
			select {
			case <-d.done:
			default:
				if !errors.Is(err, io.EOF) {
					d.logger.Error("serial read failed", "error", err)
				}
			}
			return
		}
	}
}

func (d *Driver) dispatch(f Frame) {
	switch f.Cmd {
	case EvtTouch:
		if len(f.Payload) != 1 {
			d.logger.Debug("bad touch frame", "len", len(f.Payload))
			return
		}
		d.InjectTouch(int(f.Payload[0]))
	case EvtMove:
		req, err := DecodeMove(f.Payload)
		if err != nil {
			d.logger.Debug("bad move frame", "error", err)
			return
		}
		req.Received = d.clock.Now()
		d.QueueMove(req)
	default:
		d.logger.Debug("unknown event", "cmd", f.Cmd)
	}
}

// InjectTouch presents a touch pattern to the next CheckTouch. A pattern
// not yet sampled is replaced; taps are never replayed later.
func (d *Driver) InjectTouch(pattern int) {
	for {
		select {
		case d.touch <- pattern:
			return
		default:
		}
		select {
		case old := <-d.touch:
			d.logger.Debug("touch superseded", "pattern", old)
		default:
		}
	}
}

// QueueMove queues a movement request. When the queue is full the oldest
// request is discarded; only the newest matters to the engine.
func (d *Driver) QueueMove(req robot.MoveRequest) {
	for {
		select {
		case d.moves <- req:
			return
		default:
		}
		select {
		case <-d.moves:
		default:
		}
	}
}

func (d *Driver) send(cmd byte, payload []byte) {
	frame := Encode(cmd, payload)

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if _, err := d.port.Write(frame); err != nil {
		now := d.clock.Now()
		if d.lastErrLog.IsZero() || now.Sub(d.lastErrLog) >= d.errInterval {
			d.logger.Error("serial write failed", "cmd", cmd, "error", err, "suppressed", d.suppressed)
			d.lastErrLog = now
			d.suppressed = 0
		} else {
			d.suppressed++
		}
	}
}

// ServoPower switches the servo rail.
func (d *Driver) ServoPower(enabled bool) {
	var b byte
	if enabled {
		b = 1
	}
	d.send(CmdServoPower, []byte{b})
}

// ServoWrite sends joint targets.
func (d *Driver) ServoWrite(q robot.JointAngles) {
	d.send(CmdServoWrite, EncodeJoints(q))
}

// SetAllLEDs paints the strip.
func (d *Driver) SetAllLEDs(brightness uint8, c robot.Color) {
	d.send(CmdLEDAll, []byte{brightness, c.R, c.G, c.B})
}

// SetAllLEDsRainbow starts the rainbow animation.
func (d *Driver) SetAllLEDsRainbow(brightness uint8) {
	d.send(CmdLEDRainbow, []byte{brightness})
}

// SetBrightness sets strip brightness.
func (d *Driver) SetBrightness(brightness uint8) {
	d.send(CmdLEDBright, []byte{brightness})
}

// SetPixel stages one pixel.
func (d *Driver) SetPixel(i int, c robot.Color) {
	if i < 0 || i >= robot.NumLegs {
		return
	}
	d.send(CmdLEDPixel, []byte{byte(i), c.R, c.G, c.B})
}

// Show latches staged pixels.
func (d *Driver) Show() {
	d.send(CmdLEDShow, nil)
}

// WifiInit enables the radio bridge.
func (d *Driver) WifiInit() {
	d.send(CmdRadioInit, nil)
	d.radioOn = true
}

// WifiRead moves every queued request into the command buffer. Before
// WifiInit requests stay queued.
func (d *Driver) WifiRead() {
	if !d.radioOn {
		return
	}
	for {
		select {
		case req := <-d.moves:
			d.buf.Put(req)
		default:
			return
		}
	}
}

// CheckTouch latches the pending pattern if none is latched.
func (d *Driver) CheckTouch() {
	if d.detected {
		return
	}
	select {
	case p := <-d.touch:
		d.pattern = p
		d.detected = true
	default:
	}
}

// IsTouchDetected reports an unconsumed detection.
func (d *Driver) IsTouchDetected() bool { return d.detected }

// TouchPattern returns the latched pattern; consume clears the detection.
func (d *Driver) TouchPattern(consume bool) int {
	if consume {
		d.detected = false
	}
	return d.pattern
}

var (
	_ robot.Hardware = (*Driver)(nil)
	_ robot.Injector = (*Driver)(nil)
)
