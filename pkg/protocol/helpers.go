package protocol

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewMoveMessage creates a move message
func NewMoveMessage(speed, direction, turnRate float64) (*Message, error) {
	return NewMessage(TypeMove, MoveData{
		Speed:     speed,
		Direction: direction,
		TurnRate:  turnRate,
	})
}

// NewTouchMessage creates a virtual touch message
func NewTouchMessage(pattern int) (*Message, error) {
	return NewMessage(TypeTouch, TouchData{Pattern: pattern})
}

// NewTelemetryMessage creates a telemetry message
func NewTelemetryMessage(t TelemetryData) (*Message, error) {
	return NewMessage(TypeTelemetry, t)
}

// NewErrorMessage creates an error report
func NewErrorMessage(err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: err.Error()})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string, ts int64) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: ts,
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetMoveData extracts and validates a move request
func (m *Message) GetMoveData() (*MoveData, error) {
	var data MoveData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTouchData extracts and validates a touch pattern
func (m *Message) GetTouchData() (*TouchData, error) {
	var data TouchData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTelemetryData extracts telemetry from a message
func (m *Message) GetTelemetryData() (*TelemetryData, error) {
	var data TelemetryData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts an error report
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
