// Package elgato talks HTTP to Elgato Key Light hardware.
//
// Each light exposes a small REST API on port 9123. This package wraps
// github.com/mdlayher/keylight with the two operations the bridge needs:
//
//   - Identify: fetch accessory info (serial number, product name,
//     firmware) and the current light state, used when discovery finds
//     a device.
//   - Apply: write a possibly-sparse desired state to a device. Fields
//     the caller leaves unset are filled from the device's live state
//     first, so a brightness-only command never resets power or colour
//     temperature.
//
// Clients are cached per device address; losing a device should be
// followed by Forget so a re-appearing device gets a fresh client.
//
// All methods are safe for concurrent use.
package elgato
