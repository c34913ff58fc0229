package device

import "errors"

// Domain-specific errors for registry operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound is returned when a serial is not present in the registry.
	ErrNotFound = errors.New("device: not found")

	// ErrEmptySerial is returned when an operation is attempted with an
	// empty serial number.
	ErrEmptySerial = errors.New("device: serial cannot be empty")
)
