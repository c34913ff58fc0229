package mqtt

import "strings"

// DefaultBaseTopic is the topic prefix used when none is configured.
// It matches the MQTT_BASE_TOPIC default.
const DefaultBaseTopic = "ElgatoKeyLights"

// Topics builds the bridge's MQTT topics under a base prefix.
// Using these helpers keeps topic naming consistent across the codebase.
//
// Topic hierarchy:
//
//	{base}/set/{field}           command for every registered light
//	{base}/set/{serial}/{field}  command for one light
//	{base}/status/{serial}       retained last-applied state per light
//	{base}/bridge/status         retained online/offline marker (and LWT)
//	{base}/bridge/health         retained periodic health report
//
// where {field} is one of power, color, brightness.
type Topics struct {
	// Base is the topic prefix. Empty means DefaultBaseTopic.
	Base string
}

// base returns the effective prefix.
func (t Topics) base() string {
	if t.Base == "" {
		return DefaultBaseTopic
	}
	return t.Base
}

// CommandBroadcast returns the subscription pattern for broadcast commands.
// The wildcard binds the field name.
func (t Topics) CommandBroadcast() string {
	return t.base() + "/set/+"
}

// CommandDevice returns the subscription pattern for per-device commands.
// The first wildcard binds the serial, the second the field name.
func (t Topics) CommandDevice() string {
	return t.base() + "/set/+/+"
}

// DeviceState returns the retained state topic for one light.
func (t Topics) DeviceState(serial string) string {
	return t.base() + "/status/" + serial
}

// BridgeStatus returns the online/offline marker topic.
// The LWT is registered against this topic.
func (t Topics) BridgeStatus() string {
	return t.base() + "/bridge/status"
}

// BridgeHealth returns the periodic health report topic.
func (t Topics) BridgeHealth() string {
	return t.base() + "/bridge/health"
}

// SplitCommand splits a concrete command topic into its segments below
// {base}/set. Returns nil and false when the topic is not under the
// command prefix.
func (t Topics) SplitCommand(topic string) ([]string, bool) {
	prefix := t.base() + "/set/"
	if !strings.HasPrefix(topic, prefix) {
		return nil, false
	}
	rest := strings.TrimPrefix(topic, prefix)
	if rest == "" {
		return nil, false
	}
	return strings.Split(rest, "/"), true
}
