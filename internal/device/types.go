package device

import "fmt"

// Colour temperature and brightness bounds for Key Light hardware.
// Commands are clamped (or rejected, depending on policy) to these ranges
// before they ever reach a device.
const (
	// MinTemperature is the coolest supported colour temperature in Kelvin.
	MinTemperature = 3000

	// MaxTemperature is the warmest supported colour temperature in Kelvin.
	MaxTemperature = 7000

	// MinBrightness is the minimum brightness percentage.
	MinBrightness = 0

	// MaxBrightness is the maximum brightness percentage.
	MaxBrightness = 100
)

// State is a sparse light state. A nil field means "not known" or
// "not requested", never "zero": a command that only sets brightness
// carries nil power and temperature, and a freshly discovered device
// whose state probe failed carries all nil fields.
type State struct {
	// On is the power state.
	On *bool `json:"on,omitempty"`

	// Temperature is the colour temperature in Kelvin.
	Temperature *int `json:"temperature,omitempty"`

	// Brightness is the brightness percentage (0-100).
	Brightness *int `json:"brightness,omitempty"`
}

// Merge overlays s on top of base: fields set in s win, fields unset in s
// fall through to base. Neither receiver nor argument is modified.
//
// This is the partial-update rule: merging a brightness-only command over
// cached {on, temperature, brightness} changes brightness and preserves
// the rest.
func (s State) Merge(base State) State {
	out := base.Clone()
	if s.On != nil {
		v := *s.On
		out.On = &v
	}
	if s.Temperature != nil {
		v := *s.Temperature
		out.Temperature = &v
	}
	if s.Brightness != nil {
		v := *s.Brightness
		out.Brightness = &v
	}
	return out
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	var out State
	if s.On != nil {
		v := *s.On
		out.On = &v
	}
	if s.Temperature != nil {
		v := *s.Temperature
		out.Temperature = &v
	}
	if s.Brightness != nil {
		v := *s.Brightness
		out.Brightness = &v
	}
	return out
}

// Complete reports whether all three fields are known.
func (s State) Complete() bool {
	return s.On != nil && s.Temperature != nil && s.Brightness != nil
}

// Empty reports whether no field is set.
func (s State) Empty() bool {
	return s.On == nil && s.Temperature == nil && s.Brightness == nil
}

// String renders the state for log output, printing "-" for unknown fields.
func (s State) String() string {
	on, temp, bri := "-", "-", "-"
	if s.On != nil {
		on = fmt.Sprintf("%t", *s.On)
	}
	if s.Temperature != nil {
		temp = fmt.Sprintf("%dK", *s.Temperature)
	}
	if s.Brightness != nil {
		bri = fmt.Sprintf("%d%%", *s.Brightness)
	}
	return fmt.Sprintf("on=%s temperature=%s brightness=%s", on, temp, bri)
}

// Bool returns a pointer to b, for building sparse states.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i, for building sparse states.
func Int(i int) *int { return &i }

// Device is one physical Key Light as seen by discovery.
type Device struct {
	// Serial is the device serial number reported by the accessory-info
	// endpoint. Unique across the registry.
	Serial string

	// Address is the host:port of the device's HTTP control API.
	// May change across rediscovery; the serial stays.
	Address string

	// Product is the reported product name (e.g. "Elgato Key Light Air").
	Product string

	// Firmware is the reported firmware version.
	Firmware string

	// State is the last-known light state. Seeded by the discovery probe
	// and updated after every successful apply.
	State State
}

// Clone returns a deep copy of the device.
func (d Device) Clone() Device {
	out := d
	out.State = d.State.Clone()
	return out
}
