// Package config provides configuration loading for keylight2mqtt.
//
// Configuration is resolved in three layers, each overriding the last:
//
//  1. Built-in defaults
//  2. An optional YAML file (path via KEYLIGHT2MQTT_CONFIG)
//  3. Environment variables
//
// The environment variables are the bridge's primary interface; the daemon
// is normally configured entirely through them:
//
//	MQTT_SERVER      broker host (default "localhost")
//	MQTT_PORT        broker port (default 1883)
//	MQTT_USER        optional username
//	MQTT_PASSWORD    optional password
//	MQTT_BASE_TOPIC  topic prefix (default "ElgatoKeyLights")
//	DEBUG            any non-empty value enables debug logging
//
// The YAML file exists for the knobs that have no environment variable:
// discovery cadence, per-device call timeout, the out-of-range policy for
// command values, and log format. Configuration is read once at startup
// and passed into components as explicit parameters; nothing in this
// package is consulted at runtime.
package config
