// Package discovery finds Elgato Key Lights on the local network.
//
// The Browser runs periodic multicast DNS sweeps for the _elg._tcp
// service. Each address a sweep returns is probed over HTTP to resolve
// its serial number and current state; successful probes keep a device
// alive, and a device that misses several consecutive sweeps is
// declared lost. The Browser reports changes as Events on a channel:
//
//	Found  a new device appeared, or a known serial moved address
//	Lost   a device has not answered for LostAfter sweeps
//
// The Listener consumes those events and applies them to the device
// registry, so the rest of the bridge only ever reads the registry.
//
// Devices are keyed by serial number throughout: a light that changes
// IP address keeps its identity.
package discovery
