// Package hub fans websocket traffic out to dashboard and teleop clients:
// one Run goroutine owns the client set, each client owns its connection
// writes.
package hub

import "encoding/json"

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data
	BinaryMessage
)

// Message is one outbound websocket frame
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// Encoder is implemented by values that know their own wire form, such as
// protocol messages.
type Encoder interface {
	Bytes() ([]byte, error)
}

// Encode builds a JSON message from an Encoder or any JSON-encodable value.
func Encode(v any) (Message, error) {
	var (
		data []byte
		err  error
	)
	if e, ok := v.(Encoder); ok {
		data, err = e.Bytes()
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
