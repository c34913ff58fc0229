package bridge

import "errors"

var (
	// ErrUnrecognizedTopic indicates a message on a topic outside the
	// command grammar.
	ErrUnrecognizedTopic = errors.New("bridge: unrecognized topic")

	// ErrUnknownField indicates a field that is not power, color or
	// brightness.
	ErrUnknownField = errors.New("bridge: unknown field")

	// ErrMalformedPayload indicates a payload that cannot be decoded
	// for its field.
	ErrMalformedPayload = errors.New("bridge: malformed payload")

	// ErrOutOfRange indicates a value outside the permitted range,
	// under the reject policy.
	ErrOutOfRange = errors.New("bridge: value out of range")

	// ErrDeviceNotFound indicates a command targeting an unregistered
	// serial.
	ErrDeviceNotFound = errors.New("bridge: device not found")
)
