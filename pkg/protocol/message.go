// Package protocol defines the WebSocket messages exchanged between the
// hexapod controller and its teleop and dashboard clients.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Robot messages
	TypeMove  MessageType = "move"  // Movement request
	TypeTouch MessageType = "touch" // Virtual touch pattern

	// Robot → Client messages
	TypeTelemetry MessageType = "telemetry" // Controller snapshot
	TypeError     MessageType = "error"     // Rejected request

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

var (
	// ErrInvalidMove is returned for a move with a non-finite or negative field.
	ErrInvalidMove = errors.New("protocol: invalid move")

	// ErrInvalidTouch is returned for a touch pattern outside [0,5].
	ErrInvalidTouch = errors.New("protocol: invalid touch pattern")
)

// MaxTouchPattern is the highest touch pattern code.
const MaxTouchPattern = 5

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Client → Robot Message Types
// =============================================================================

// MoveData is a teleop movement request. Zero speed and zero turn rate
// command a neutral stance.
type MoveData struct {
	Speed     float64 `json:"speed"`
	Direction float64 `json:"direction"` // radians, 0 = right, pi/2 = forward
	TurnRate  float64 `json:"turn_rate"` // signed, positive turns right
}

// Validate rejects non-finite values and negative speed.
func (d MoveData) Validate() error {
	for _, v := range []float64{d.Speed, d.Direction, d.TurnRate} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidMove)
		}
	}
	if d.Speed < 0 {
		return fmt.Errorf("%w: negative speed %g", ErrInvalidMove, d.Speed)
	}
	return nil
}

// TouchData is a virtual touch pattern.
type TouchData struct {
	Pattern int `json:"pattern"`
}

// Validate checks the pattern range.
func (d TouchData) Validate() error {
	if d.Pattern < 0 || d.Pattern > MaxTouchPattern {
		return fmt.Errorf("%w: %d", ErrInvalidTouch, d.Pattern)
	}
	return nil
}

// =============================================================================
// Robot → Client Message Types
// =============================================================================

// TelemetryData is the controller state pushed to dashboards.
type TelemetryData struct {
	SessionID   string             `json:"session_id"`
	Seq         uint64             `json:"seq"`
	Awake       bool               `json:"awake"`
	Mode        string             `json:"mode"`
	Pose        map[string]float64 `json:"pose"`
	Calibration CalibrationData    `json:"calibration"`
	Cycles      uint64             `json:"cycles"`
	Overruns    uint64             `json:"overruns"`
	MeanPeriod  float64            `json:"mean_period_ms"`
	P99Compute  float64            `json:"p99_kinematics_ms"`
}

// CalibrationData is the calibration cursor.
type CalibrationData struct {
	Leg   int `json:"leg"`
	Layer int `json:"layer"`
	Trim  int `json:"trim"`
}

// ErrorData reports a rejected request.
type ErrorData struct {
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
