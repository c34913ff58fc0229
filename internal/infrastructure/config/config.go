package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Range policies for out-of-range command values.
const (
	// PolicyClamp clamps out-of-range values to the nearest bound.
	PolicyClamp = "clamp"

	// PolicyReject drops commands carrying out-of-range values.
	PolicyReject = "reject"
)

const maxPort = 65535

// Config is the root configuration structure for keylight2mqtt.
type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Server    string              `yaml:"server"`
	Port      int                 `yaml:"port"`
	Username  string              `yaml:"username"`
	Password  string              `yaml:"password"`
	BaseTopic string              `yaml:"base_topic"`
	ClientID  string              `yaml:"client_id"`
	TLS       bool                `yaml:"tls"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DiscoveryConfig controls the mDNS discovery loop.
type DiscoveryConfig struct {
	// Interval is the time between mDNS sweeps, in seconds.
	Interval int `yaml:"interval"`

	// QueryTimeout is how long a single mDNS query collects responses,
	// in seconds.
	QueryTimeout int `yaml:"query_timeout"`

	// LostAfter is the number of consecutive sweeps a device may miss
	// before it is treated as gone.
	LostAfter int `yaml:"lost_after"`

	// ProbeTimeout bounds the accessory-info probe of a newly seen
	// address, in seconds.
	ProbeTimeout int `yaml:"probe_timeout"`
}

// BridgeConfig controls command handling and dispatch.
type BridgeConfig struct {
	// DeviceTimeout bounds each per-device apply call, in seconds.
	DeviceTimeout int `yaml:"device_timeout"`

	// RangePolicy says what to do with out-of-range numeric command
	// values: "clamp" (default) or "reject".
	RangePolicy string `yaml:"range_policy"`

	// HealthInterval is the period of health status publishing, in seconds.
	HealthInterval int `yaml:"health_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load resolves the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment variable overrides.
//
// Returns an error if the file cannot be read or parsed, if an environment
// variable carries an unusable value, or if the result fails validation.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with the documented defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Server:    "localhost",
			Port:      1883,
			BaseTopic: "ElgatoKeyLights",
			QoS:       1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Discovery: DiscoveryConfig{
			Interval:     45,
			QueryTimeout: 5,
			LostAfter:    3,
			ProbeTimeout: 5,
		},
		Bridge: BridgeConfig{
			DeviceTimeout:  5,
			RangePolicy:    PolicyClamp,
			HealthInterval: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies the documented environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("MQTT_SERVER"); v != "" {
		cfg.MQTT.Server = v
	}
	if v := os.Getenv("MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing MQTT_PORT: %w", err)
		}
		cfg.MQTT.Port = port
	}
	if v := os.Getenv("MQTT_USER"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("MQTT_BASE_TOPIC"); v != "" {
		cfg.MQTT.BaseTopic = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Logging.Level = "debug"
	}
	return nil
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	if c.MQTT.Server == "" {
		return fmt.Errorf("mqtt server is required")
	}
	if c.MQTT.Port < 1 || c.MQTT.Port > maxPort {
		return fmt.Errorf("mqtt port %d out of range", c.MQTT.Port)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos %d out of range (must be 0, 1, or 2)", c.MQTT.QoS)
	}
	if c.MQTT.BaseTopic == "" {
		return fmt.Errorf("mqtt base topic is required")
	}
	for _, r := range c.MQTT.BaseTopic {
		if r == '+' || r == '#' {
			return fmt.Errorf("mqtt base topic %q must not contain wildcards", c.MQTT.BaseTopic)
		}
	}
	if c.Discovery.Interval <= 0 {
		return fmt.Errorf("discovery interval must be positive")
	}
	if c.Discovery.QueryTimeout <= 0 {
		return fmt.Errorf("discovery query timeout must be positive")
	}
	if c.Discovery.LostAfter <= 0 {
		return fmt.Errorf("discovery lost_after must be positive")
	}
	if c.Discovery.ProbeTimeout <= 0 {
		return fmt.Errorf("discovery probe timeout must be positive")
	}
	if c.Bridge.DeviceTimeout <= 0 {
		return fmt.Errorf("bridge device timeout must be positive")
	}
	if c.Bridge.HealthInterval <= 0 {
		return fmt.Errorf("bridge health interval must be positive")
	}
	if c.Bridge.RangePolicy != PolicyClamp && c.Bridge.RangePolicy != PolicyReject {
		return fmt.Errorf("bridge range policy %q (must be %q or %q)", c.Bridge.RangePolicy, PolicyClamp, PolicyReject)
	}
	return nil
}

// GetDeviceTimeout returns the per-device call timeout as a duration.
func (c BridgeConfig) GetDeviceTimeout() time.Duration {
	return time.Duration(c.DeviceTimeout) * time.Second
}

// GetHealthInterval returns the health publishing period as a duration.
func (c BridgeConfig) GetHealthInterval() time.Duration {
	return time.Duration(c.HealthInterval) * time.Second
}

// GetInterval returns the sweep interval as a duration.
func (c DiscoveryConfig) GetInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// GetQueryTimeout returns the mDNS query timeout as a duration.
func (c DiscoveryConfig) GetQueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeout) * time.Second
}

// GetProbeTimeout returns the accessory probe timeout as a duration.
func (c DiscoveryConfig) GetProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeout) * time.Second
}
