// Package bridge translates MQTT commands into Key Light state changes.
//
// It is the composition point of the application:
//
//   - Parser turns an MQTT topic and payload into a Command: a target
//     serial ("" for broadcast) plus a sparse desired state. Range
//     violations are clamped or rejected depending on the configured
//     policy.
//   - Dispatcher resolves the target set from the registry and applies
//     the command to every device concurrently. Outcomes are collected
//     per device; one failing light never blocks the others.
//   - Bridge wires the two to an MQTT client: it subscribes to the
//     command topics, runs dispatches on tracked goroutines, publishes
//     retained per-device state after successful applies, and reports
//     periodic health.
//
// Commands merge over the device's last-known state, so a
// brightness-only message leaves power and colour temperature alone.
package bridge
