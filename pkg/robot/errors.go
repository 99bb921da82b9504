package robot

import "errors"

var (
	// ErrInvalidPeriod is returned when the control period is not positive.
	ErrInvalidPeriod = errors.New("robot: control period must be positive")

	// ErrNilCollaborator is returned when a required collaborator is missing.
	ErrNilCollaborator = errors.New("robot: nil collaborator")
)
