package servolink

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/teslashibe/go-hexapod/pkg/robot"
)

func TestEncode_Layout(t *testing.T) {
	got := Encode(CmdLEDAll, []byte{100, 0, 255, 0})
	assert.Equal(t, []byte{0xA5, 0x10, 0x04, 0x64, 0x00, 0xFF, 0x00, 0x8F}, got)

	assert.Equal(t, []byte{0xA5, 0x14, 0x00, 0x14}, Encode(CmdLEDShow, nil))
}

func TestDecode_SkipsNoiseAndBadFrames(t *testing.T) {
	corrupt := Encode(EvtTouch, []byte{2})
	corrupt[len(corrupt)-1] ^= 0xFF

	var stream bytes.Buffer
	stream.Write([]byte{0x00, 0x13, 0x37})
	stream.Write(Encode(EvtTouch, []byte{3}))
	stream.Write(corrupt)
	stream.Write(Encode(EvtTouch, []byte{4}))
	r := bufio.NewReader(&stream)

	f, err := Decode(r)
	require.NoError(t, err)
	assert.Equal(t, Frame{Cmd: EvtTouch, Payload: []byte{3}}, f)

	_, err = Decode(r)
	assert.ErrorIs(t, err, ErrChecksum)

	f, err = Decode(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, f.Payload)

	_, err = Decode(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecode_Truncated(t *testing.T) {
	full := Encode(CmdServoWrite, EncodeJoints(robot.JointAngles{}))
	_, err := Decode(bufio.NewReader(bytes.NewReader(full[:10])))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestJoints_ResolutionAndSaturation(t *testing.T) {
	var q robot.JointAngles
	q[0] = 0.12344
	q[1] = -1.5
	q[17] = 10 // beyond the int16 range

	got, err := DecodeJoints(EncodeJoints(q))
	require.NoError(t, err)
	assert.InDelta(t, 0.1234, got[0], 1e-9)
	assert.InDelta(t, -1.5, got[1], 1e-9)
	assert.InDelta(t, math.MaxInt16/jointScale, got[17], 1e-9)

	_, err = DecodeJoints([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrPayload)
}

func TestMove_Decode(t *testing.T) {
	req, err := DecodeMove(EncodeMove(robot.MoveRequest{Speed: 0.002, Direction: math.Pi / 2, TurnRate: -0.001}))
	require.NoError(t, err)
	assert.InDelta(t, 0.002, req.Speed, 1e-7)
	assert.InDelta(t, math.Pi/2, req.Direction, 1e-6)
	assert.InDelta(t, -0.001, req.TurnRate, 1e-7)

	_, err = DecodeMove(nil)
	assert.ErrorIs(t, err, ErrPayload)
}

func TestPortOptions_Normalize(t *testing.T) {
	cases := []struct {
		name    string
		in      PortOptions
		want    PortOptions
		wantErr bool
	}{
		{"defaults", PortOptions{}, PortOptions{BaudRate: DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"}, false},
		{"even", PortOptions{BaudRate: 9600, Parity: " even "}, PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "E"}, false},
		{"data bits", PortOptions{DataBits: 9}, PortOptions{}, true},
		{"stop bits", PortOptions{StopBits: 3}, PortOptions{}, true},
		{"parity", PortOptions{Parity: "mark"}, PortOptions{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.in.Normalize()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{StopBits: 2, Parity: "O"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		StopBits: serial.TwoStopBits,
		Parity:   serial.OddParity,
	}, mode)

	mode, err = PortOptions{}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
}
