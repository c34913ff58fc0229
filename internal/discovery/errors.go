package discovery

import "errors"

var (
	// ErrNoProber indicates Browser options without a prober.
	ErrNoProber = errors.New("discovery: prober is required")

	// ErrNoRegistry indicates Listener options without a registry.
	ErrNoRegistry = errors.New("discovery: registry is required")

	// ErrNoEvents indicates Listener options without an event source.
	ErrNoEvents = errors.New("discovery: event channel is required")
)
