package hexapod

import "errors"

var (
	// ErrNotInjectable is returned when the hardware driver cannot accept
	// virtual input.
	ErrNotInjectable = errors.New("hexapod: driver does not accept injected input")

	// ErrInvalidPattern is returned for touch patterns outside [0,5].
	ErrInvalidPattern = errors.New("hexapod: touch pattern out of range")
)
