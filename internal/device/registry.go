package device

import "sync"

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the live catalogue of reachable Key Lights, keyed by serial.
//
// Mutations come from exactly two places: discovery events (Upsert/Remove)
// and the dispatcher's post-apply state write-back (SetState). Reads may
// come from any goroutine.
//
// All public methods are thread-safe. Returned devices are deep copies;
// callers can modify them freely without affecting the registry.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
	logger  Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Upsert inserts or updates the entry for dev.Serial. Repeated upserts for
// the same serial are idempotent: there is never more than one entry per
// serial, and the latest address wins.
//
// Cached state composes rather than resets: fields set in dev.State are
// taken as a fresh observation, fields unset in dev.State keep whatever
// the registry already knew. Returns true when the device is new.
func (r *Registry) Upsert(dev Device) (bool, error) {
	if dev.Serial == "" {
		return false, ErrEmptySerial
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.devices[dev.Serial]
	if !ok {
		d := dev.Clone()
		r.devices[dev.Serial] = &d
		r.logger.Info("device registered",
			"serial", dev.Serial,
			"address", dev.Address,
			"product", dev.Product)
		return true, nil
	}

	if existing.Address != dev.Address {
		r.logger.Info("device address changed",
			"serial", dev.Serial,
			"old", existing.Address,
			"new", dev.Address)
	}

	existing.Address = dev.Address
	if dev.Product != "" {
		existing.Product = dev.Product
	}
	if dev.Firmware != "" {
		existing.Firmware = dev.Firmware
	}
	existing.State = dev.State.Merge(existing.State)

	return false, nil
}

// Remove evicts the entry for serial. Removing an unknown serial is a no-op.
// Returns true when an entry was actually removed.
func (r *Registry) Remove(serial string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[serial]; !ok {
		return false
	}

	delete(r.devices, serial)
	r.logger.Info("device removed", "serial", serial)
	return true
}

// Get retrieves a device by serial.
// Returns ErrNotFound if the serial is not registered.
func (r *Registry) Get(serial string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[serial]
	if !ok {
		return Device{}, ErrNotFound
	}
	return d.Clone(), nil
}

// All returns a snapshot of every registered device. The snapshot is safe
// to iterate while discovery keeps mutating the registry; mutations made
// after the call are simply not reflected in it. Order is unspecified.
func (r *Registry) All() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d.Clone())
	}
	return out
}

// SetState merges state into the cached state for serial. Called by the
// dispatcher after a successful apply so that subsequent partial commands
// compose over what was actually sent to the device.
// Returns ErrNotFound if the device was removed in the meantime.
func (r *Registry) SetState(serial string, state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[serial]
	if !ok {
		return ErrNotFound
	}

	d.State = state.Merge(d.State)
	return nil
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
