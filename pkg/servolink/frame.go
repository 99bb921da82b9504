// Package servolink drives the servo/LED/touch board over a serial line.
//
// Every message in both directions is one frame:
//
//	0xA5 | cmd | len | payload (len bytes) | xor(cmd, len, payload...)
package servolink

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/teslashibe/go-hexapod/pkg/robot"
)

// Sync is the frame start byte.
const Sync byte = 0xA5

// Host to board commands.
const (
	CmdServoPower byte = 0x01
	CmdServoWrite byte = 0x02
	CmdLEDAll     byte = 0x10
	CmdLEDRainbow byte = 0x11
	CmdLEDBright  byte = 0x12
	CmdLEDPixel   byte = 0x13
	CmdLEDShow    byte = 0x14
	CmdRadioInit  byte = 0x20
)

// Board to host events.
const (
	EvtTouch byte = 0x80
	EvtMove  byte = 0x81
)

// jointScale is the wire resolution of a joint angle: 1e-4 rad per count.
const jointScale = 1e4

var (
	// ErrChecksum is returned for a frame whose trailer does not match.
	ErrChecksum = errors.New("servolink: frame checksum mismatch")

	// ErrPayload is returned when a payload has the wrong size for its command.
	ErrPayload = errors.New("servolink: bad payload length")
)

// Frame is one decoded message.
type Frame struct {
	Cmd     byte
	Payload []byte
}

func checksum(cmd byte, payload []byte) byte {
	x := cmd ^ byte(len(payload))
	for _, b := range payload {
		x ^= b
	}
	return x
}

// Encode builds the wire form of a frame. Payloads longer than 255 bytes
// are a programming error.
func Encode(cmd byte, payload []byte) []byte {
	if len(payload) > math.MaxUint8 {
		panic(fmt.Sprintf("servolink: payload of %d bytes", len(payload)))
	}
	out := make([]byte, 0, len(payload)+4)
	out = append(out, Sync, cmd, byte(len(payload)))
	out = append(out, payload...)
	return append(out, checksum(cmd, payload))
}

// Decode reads the next frame, skipping bytes until a sync byte.
func Decode(r *bufio.Reader) (Frame, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return Frame{}, err
		}
		if b == Sync {
			break
		}
	}

	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	payload := make([]byte, hdr[1])
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, err
	}
	sum, err := r.ReadByte()
	if err != nil {
		return Frame{}, err
	}
	if sum != checksum(hdr[0], payload) {
		return Frame{}, fmt.Errorf("%w: cmd 0x%02x", ErrChecksum, hdr[0])
	}
	return Frame{Cmd: hdr[0], Payload: payload}, nil
}

// EncodeJoints packs joint targets as little-endian int16 counts,
// saturating at the int16 range.
func EncodeJoints(q robot.JointAngles) []byte {
	out := make([]byte, 2*robot.NumJoints)
	for i, a := range q {
		v := math.Round(a * jointScale)
		v = math.Max(math.MinInt16, math.Min(math.MaxInt16, v))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}

// DecodeJoints is the inverse of EncodeJoints.
func DecodeJoints(p []byte) (robot.JointAngles, error) {
	var q robot.JointAngles
	if len(p) != 2*robot.NumJoints {
		return q, fmt.Errorf("%w: %d joint bytes", ErrPayload, len(p))
	}
	for i := range q {
		q[i] = float64(int16(binary.LittleEndian.Uint16(p[2*i:]))) / jointScale
	}
	return q, nil
}

// EncodeMove packs a movement request as three little-endian float32s:
// speed, direction, turn rate.
func EncodeMove(req robot.MoveRequest) []byte {
	out := make([]byte, 12)
	binary.LittleEndian.PutUint32(out[0:], math.Float32bits(float32(req.Speed)))
	binary.LittleEndian.PutUint32(out[4:], math.Float32bits(float32(req.Direction)))
	binary.LittleEndian.PutUint32(out[8:], math.Float32bits(float32(req.TurnRate)))
	return out
}

// DecodeMove is the inverse of EncodeMove. Received is left zero.
func DecodeMove(p []byte) (robot.MoveRequest, error) {
	if len(p) != 12 {
		return robot.MoveRequest{}, fmt.Errorf("%w: %d move bytes", ErrPayload, len(p))
	}
	f := func(off int) float64 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p[off:])))
	}
	return robot.MoveRequest{Speed: f(0), Direction: f(4), TurnRate: f(8)}, nil
}
