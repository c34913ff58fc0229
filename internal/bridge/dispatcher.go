package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"keylight2mqtt/internal/device"
)

// defaultDeviceTimeout bounds one device call when none is configured.
const defaultDeviceTimeout = 5 * time.Second

// LightController applies a desired state to a device address.
// Satisfied by elgato.Client.
type LightController interface {
	Apply(ctx context.Context, addr string, desired device.State) (device.State, error)
}

// Outcome is the result of applying a command to one device.
type Outcome struct {
	// Serial identifies the device.
	Serial string

	// Address is the device's base URL at dispatch time.
	Address string

	// State is the full state that was applied. Zero when Err is set.
	State device.State

	// Err is the per-device failure, nil on success.
	Err error
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Registry resolves command targets. Required.
	Registry *device.Registry

	// Controller performs the device calls. Required.
	Controller LightController

	// Timeout bounds each device call. Zero means 5s.
	Timeout time.Duration

	// Logger for dispatch diagnostics. Nil means no logging.
	Logger Logger
}

// Dispatcher fans a command out to its target devices.
//
// Each device is handled on its own goroutine with its own timeout, so
// a slow or dead light delays only its own outcome. Successful applies
// update the registry's cached state.
type Dispatcher struct {
	registry   *device.Registry
	controller LightController
	timeout    time.Duration
	logger     Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("bridge: dispatcher registry is required")
	}
	if opts.Controller == nil {
		return nil, fmt.Errorf("bridge: dispatcher controller is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultDeviceTimeout
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	return &Dispatcher{
		registry:   opts.Registry,
		controller: opts.Controller,
		timeout:    opts.Timeout,
		logger:     opts.Logger,
	}, nil
}

// Dispatch applies cmd to its target set and returns one Outcome per
// device. A broadcast against an empty registry returns no outcomes; a
// targeted command for an unknown serial returns a single
// ErrDeviceNotFound outcome without touching any device.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) []Outcome {
	targets, err := d.resolveTargets(cmd)
	if err != nil {
		return []Outcome{{Serial: cmd.Serial, Err: err}}
	}
	if len(targets) == 0 {
		d.logger.Debug("no devices registered, command dropped", "state", cmd.State.String())
		return nil
	}

	outcomes := make([]Outcome, len(targets))
	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)
		go func(i int, target device.Device) {
			defer wg.Done()
			outcomes[i] = d.apply(ctx, target, cmd.State)
		}(i, target)
	}

	wg.Wait()
	return outcomes
}

// resolveTargets returns the devices a command addresses.
func (d *Dispatcher) resolveTargets(cmd Command) ([]device.Device, error) {
	if cmd.Broadcast() {
		return d.registry.All(), nil
	}

	dev, err := d.registry.Get(cmd.Serial)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, cmd.Serial)
	}
	return []device.Device{dev}, nil
}

// apply runs one device call and records the result.
func (d *Dispatcher) apply(ctx context.Context, target device.Device, desired device.State) Outcome {
	// Compose over the cached state so unset fields keep their last
	// known values. Fields still unknown after the merge are completed
	// by the controller from the device itself.
	merged := desired.Merge(target.State)

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	applied, err := d.controller.Apply(callCtx, target.Address, merged)
	if err != nil {
		return Outcome{Serial: target.Serial, Address: target.Address, Err: err}
	}

	if err := d.registry.SetState(target.Serial, applied); err != nil {
		// Device vanished mid-dispatch; the apply still succeeded.
		d.logger.Debug("state cache update skipped",
			"serial", target.Serial,
			"reason", err.Error(),
		)
	}

	return Outcome{Serial: target.Serial, Address: target.Address, State: applied}
}
