package elgato

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mdlayher/keylight"

	"keylight2mqtt/internal/device"
)

// deviceMinBrightness is the hardware floor. The lights reject writes
// below 3%, so an applied brightness of 0-2 is raised to 3.
const deviceMinBrightness = 3

// Logger is the logging interface used by the client.
// Compatible with logging.Logger and slog.Logger.
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

// Client applies state changes to Key Lights over their REST API.
//
// One keylight.Client is cached per device address. The underlying HTTP
// client carries a request timeout as a backstop; callers should still
// pass a bounded context per operation.
type Client struct {
	httpc  *http.Client
	logger Logger

	mu      sync.RWMutex
	clients map[string]*keylight.Client
}

// New creates a Client whose HTTP requests abort after timeout.
func New(timeout time.Duration) *Client {
	return &Client{
		httpc:   &http.Client{Timeout: timeout},
		logger:  noopLogger{},
		clients: make(map[string]*keylight.Client),
	}
}

// SetLogger attaches a logger. If never called, logging is a no-op.
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Identify fetches a device's identity and current state.
//
// It reads the accessory info endpoint for the serial number, product
// name and firmware version, then the lights endpoint to seed the
// device's last-known state.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - addr: Device base URL, e.g. "http://192.168.1.40:9123"
//
// Returns:
//   - device.Device: Fully populated device record
//   - error: ErrUnreachable (wrapped) if either endpoint fails
func (c *Client) Identify(ctx context.Context, addr string) (device.Device, error) {
	kc, err := c.clientFor(addr)
	if err != nil {
		return device.Device{}, err
	}

	info, err := kc.AccessoryInfo(ctx)
	if err != nil {
		return device.Device{}, fmt.Errorf("%w: accessory info %s: %w", ErrUnreachable, addr, err)
	}

	lights, err := kc.Lights(ctx)
	if err != nil {
		return device.Device{}, fmt.Errorf("%w: lights %s: %w", ErrUnreachable, addr, err)
	}
	if len(lights) == 0 {
		return device.Device{}, fmt.Errorf("%w: %s", ErrNoLights, addr)
	}

	c.logger.Debug("identified device",
		"serial", info.SerialNumber,
		"product", info.ProductName,
		"address", addr,
	)

	return device.Device{
		Serial:   info.SerialNumber,
		Address:  addr,
		Product:  info.ProductName,
		Firmware: info.FirmwareVersion,
		State:    stateFromLight(lights[0]),
	}, nil
}

// Apply writes a desired state to a device.
//
// Sparse states are completed from the device's live state first: a
// brightness-only change reads the lights endpoint, overlays the new
// brightness, and writes the result back. A complete desired state is
// written directly without the extra read.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - addr: Device base URL
//   - desired: Fields to change; unset fields are preserved
//
// Returns:
//   - device.State: The full state that was written
//   - error: ErrUnreachable (wrapped) on HTTP failure
func (c *Client) Apply(ctx context.Context, addr string, desired device.State) (device.State, error) {
	kc, err := c.clientFor(addr)
	if err != nil {
		return device.State{}, err
	}

	lights := []*keylight.Light{lightFromState(desired)}
	applied := desired

	if !desired.Complete() {
		current, err := kc.Lights(ctx)
		if err != nil {
			return device.State{}, fmt.Errorf("%w: lights %s: %w", ErrUnreachable, addr, err)
		}
		if len(current) == 0 {
			return device.State{}, fmt.Errorf("%w: %s", ErrNoLights, addr)
		}

		applied = desired.Merge(stateFromLight(current[0]))

		// Overlay onto the live lights so multi-light devices keep
		// their remaining entries untouched.
		overlayState(current[0], applied)
		lights = current
	}

	// Report the brightness the device will actually hold.
	if applied.Brightness != nil && *applied.Brightness < deviceMinBrightness {
		applied.Brightness = device.Int(deviceMinBrightness)
	}

	if err := kc.SetLights(ctx, lights); err != nil {
		return device.State{}, fmt.Errorf("%w: set lights %s: %w", ErrUnreachable, addr, err)
	}

	c.logger.Debug("applied state", "address", addr, "state", applied.String())

	return applied, nil
}

// Forget drops the cached client for an address.
// Call when discovery declares the device lost.
func (c *Client) Forget(addr string) {
	c.mu.Lock()
	delete(c.clients, addr)
	c.mu.Unlock()
}

// clientFor returns the cached client for addr, creating one on first use.
func (c *Client) clientFor(addr string) (*keylight.Client, error) {
	if addr == "" {
		return nil, ErrEmptyAddress
	}

	c.mu.RLock()
	kc, ok := c.clients[addr]
	c.mu.RUnlock()
	if ok {
		return kc, nil
	}

	kc, err := keylight.NewClient(addr, c.httpc)
	if err != nil {
		return nil, fmt.Errorf("elgato: client for %s: %w", addr, err)
	}

	c.mu.Lock()
	c.clients[addr] = kc
	c.mu.Unlock()

	return kc, nil
}

// stateFromLight converts a wire light into a fully populated state.
func stateFromLight(l *keylight.Light) device.State {
	return device.State{
		On:          device.Bool(l.On),
		Temperature: device.Int(l.Temperature),
		Brightness:  device.Int(l.Brightness),
	}
}

// lightFromState converts a state into a wire light.
// Unset fields become zero values; callers must merge sparse states
// before writing.
func lightFromState(s device.State) *keylight.Light {
	l := &keylight.Light{}
	overlayState(l, s)
	return l
}

// overlayState writes the set fields of s onto l.
func overlayState(l *keylight.Light, s device.State) {
	if s.On != nil {
		l.On = *s.On
	}
	if s.Temperature != nil {
		l.Temperature = *s.Temperature
	}
	if s.Brightness != nil {
		b := *s.Brightness
		if b < deviceMinBrightness {
			b = deviceMinBrightness
		}
		l.Brightness = b
	}
}
