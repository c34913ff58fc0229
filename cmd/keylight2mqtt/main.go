// keylight2mqtt - Elgato Key Light MQTT bridge
//
// This is the main entry point for the keylight2mqtt daemon. It discovers
// Elgato Key Lights on the local network via mDNS and exposes them over
// MQTT: commands arrive on <base>/set/... topics, device state is published
// retained on <base>/status/<serial>.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"keylight2mqtt/internal/bridge"
	"keylight2mqtt/internal/device"
	"keylight2mqtt/internal/discovery"
	"keylight2mqtt/internal/elgato"
	"keylight2mqtt/internal/infrastructure/config"
	"keylight2mqtt/internal/infrastructure/logging"
	"keylight2mqtt/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path. The file is optional: when it does
// not exist the daemon runs on defaults plus environment overrides.
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting keylight2mqtt",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if configPath != "" {
		log.Info("configuration loaded", "path", configPath)
	} else {
		log.Info("no configuration file, using defaults and environment")
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Initialise device registry
	registry := device.NewRegistry()
	registry.SetLogger(log)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Server, cfg.MQTT.Port),
		"client_id", mqttClient.ClientID(),
	)

	// Set up MQTT logging callbacks
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// HTTP client for the lights
	lights := elgato.New(cfg.Bridge.GetDeviceTimeout())
	lights.SetLogger(log)

	// Create and start the bridge (command handling, state and health publishing)
	b, err := bridge.New(bridge.Options{
		Registry:       registry,
		MQTT:           mqttClient,
		Controller:     lights,
		BaseTopic:      cfg.MQTT.BaseTopic,
		QoS:            byte(cfg.MQTT.QoS),
		RangePolicy:    cfg.Bridge.RangePolicy,
		DeviceTimeout:  cfg.Bridge.GetDeviceTimeout(),
		HealthInterval: cfg.Bridge.GetHealthInterval(),
		Version:        version,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		b.Stop()
	}()
	log.Info("bridge started", "base_topic", cfg.MQTT.BaseTopic)

	// Start mDNS discovery
	browser, err := discovery.New(discovery.Options{
		Prober:       lights,
		Interval:     cfg.Discovery.GetInterval(),
		QueryTimeout: cfg.Discovery.GetQueryTimeout(),
		ProbeTimeout: cfg.Discovery.GetProbeTimeout(),
		LostAfter:    cfg.Discovery.LostAfter,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("creating discovery browser: %w", err)
	}

	listener, err := discovery.NewListener(discovery.ListenerOptions{
		Registry:  registry,
		Events:    browser.Events(),
		Publisher: b,
		Forgetter: lights,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("creating discovery listener: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if runErr := browser.Run(ctx); runErr != nil && ctx.Err() == nil {
			log.Error("discovery browser stopped", "error", runErr)
		}
	}()
	go func() {
		defer wg.Done()
		if runErr := listener.Run(ctx); runErr != nil && ctx.Err() == nil {
			log.Error("discovery listener stopped", "error", runErr)
		}
	}()
	log.Info("discovery started", "interval", cfg.Discovery.GetInterval())

	// Verify the broker connection is still healthy
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("health check passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Discovery goroutines exit via context cancellation; wait for them
	// before the deferred bridge stop and MQTT close run.
	wg.Wait()

	log.Info("keylight2mqtt stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses KEYLIGHT2MQTT_CONFIG environment variable if set. Otherwise the
// default path is used when the file exists, and the empty string (defaults
// plus environment overrides) when it does not.
func getConfigPath() string {
	if path := os.Getenv("KEYLIGHT2MQTT_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}
