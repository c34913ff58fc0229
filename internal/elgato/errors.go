package elgato

import "errors"

var (
	// ErrUnreachable indicates the device did not respond to an HTTP request.
	ErrUnreachable = errors.New("elgato: device unreachable")

	// ErrNoLights indicates the device reported an empty lights array.
	ErrNoLights = errors.New("elgato: device reported no lights")

	// ErrEmptyAddress indicates a request with no device address.
	ErrEmptyAddress = errors.New("elgato: empty device address")
)
