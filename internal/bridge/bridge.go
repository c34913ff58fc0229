package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"keylight2mqtt/internal/device"
	"keylight2mqtt/internal/infrastructure/mqtt"
)

// Logger is the logging interface used by the bridge.
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

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// PublishRetained publishes a retained message with the default QoS.
	PublishRetained(topic string, payload []byte) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Registry is the live device catalogue. Required.
	Registry *device.Registry

	// MQTT is the broker connection. Required.
	MQTT MQTTClient

	// Controller performs the device calls. Required.
	Controller LightController

	// BaseTopic is the MQTT topic prefix. Empty means the default.
	BaseTopic string

	// QoS for command subscriptions.
	QoS byte

	// RangePolicy is config.PolicyClamp or config.PolicyReject.
	RangePolicy string

	// DeviceTimeout bounds each device call. Zero means 5s.
	DeviceTimeout time.Duration

	// HealthInterval is the period between health reports. Zero means 30s.
	HealthInterval time.Duration

	// Version is the bridge software version, reported in health.
	Version string

	// Logger is an optional structured logger.
	Logger Logger
}

// Bridge subscribes to command topics and drives the lights.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	registry   *device.Registry
	mqtt       MQTTClient
	parser     *Parser
	dispatcher *Dispatcher
	health     *HealthReporter
	topics     mqtt.Topics
	qos        byte

	// Shutdown coordination. dispatchMu orders the done-check plus
	// wg.Add in handleMessage against Stop's close(done), so no
	// dispatch can be added once Stop has begun waiting.
	done       chan struct{}
	wg         sync.WaitGroup
	dispatchMu sync.Mutex
	stopOnce   sync.Once
	ctx        context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel  context.CancelFunc // Cancel function for ctx

	logger Logger
}

// New creates a bridge instance. Call Start() to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("bridge: registry is required")
	}
	if opts.MQTT == nil {
		return nil, fmt.Errorf("bridge: MQTT client is required")
	}
	if opts.Controller == nil {
		return nil, fmt.Errorf("bridge: controller is required")
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	dispatcher, err := NewDispatcher(DispatcherOptions{
		Registry:   opts.Registry,
		Controller: opts.Controller,
		Timeout:    opts.DeviceTimeout,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	topics := mqtt.Topics{Base: opts.BaseTopic}

	// Create bridge-level context for dispatch cancellation on shutdown
	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		registry:   opts.Registry,
		mqtt:       opts.MQTT,
		parser:     NewParser(opts.BaseTopic, opts.RangePolicy),
		dispatcher: dispatcher,
		topics:     topics,
		qos:        opts.QoS,
		done:       make(chan struct{}),
		ctx:        ctx,
		ctxCancel:  ctxCancel,
		logger:     opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		Topic:     topics.BridgeHealth(),
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTT,
		Devices:   opts.Registry,
	})
	b.health.SetLogger(opts.Logger)

	return b, nil
}

// Start begins bridge operation.
// This subscribes to both command patterns and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logger.Error("failed to publish starting status", "error", err)
	}

	for _, topic := range []string{b.topics.CommandBroadcast(), b.topics.CommandDevice()} {
		if err := b.mqtt.Subscribe(topic, b.qos, b.handleMessage); err != nil {
			return fmt.Errorf("subscribe to commands: %w", err)
		}
		b.logger.Info("subscribed to commands", "topic", topic)
	}

	b.health.Start(ctx)

	if err := b.health.PublishNow(); err != nil {
		b.logger.Error("failed to publish healthy status", "error", err)
	}

	b.logger.Info("bridge started", "devices", b.registry.Len())

	return nil
}

// Stop gracefully shuts down the bridge.
// In-flight dispatches are cancelled and waited for.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.dispatchMu.Lock()
		close(b.done)
		b.dispatchMu.Unlock()

		// Cancel bridge context to abort in-flight device calls
		b.ctxCancel()

		// Stop health reporting (publishes "stopping" status)
		b.health.Stop()

		// Wait for pending dispatches
		b.wg.Wait()

		b.logger.Info("bridge stopped")
	})
}

// handleMessage parses one command message and dispatches it.
// Parse failures are logged and dropped; they never stop the bridge.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	commandID := strings.SplitN(uuid.NewString(), "-", 2)[0]

	cmd, err := b.parser.Parse(topic, payload)
	if err != nil {
		b.logger.Warn("command rejected",
			"command_id", commandID,
			"topic", topic,
			"error", err,
		)
		return nil
	}

	b.logger.Info("received command",
		"command_id", commandID,
		"serial", cmd.Serial,
		"broadcast", cmd.Broadcast(),
		"state", cmd.State.String(),
	)

	b.dispatchMu.Lock()
	select {
	case <-b.done:
		b.dispatchMu.Unlock()
		// Shutting down, drop the command.
		return nil
	default:
	}
	b.wg.Add(1)
	b.dispatchMu.Unlock()

	go func() {
		defer b.wg.Done()
		b.dispatch(commandID, cmd)
	}()

	return nil
}

// dispatch runs one command to completion and reports every outcome.
func (b *Bridge) dispatch(commandID string, cmd Command) {
	outcomes := b.dispatcher.Dispatch(b.ctx, cmd)

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			b.logger.Error("device call failed",
				"command_id", commandID,
				"serial", outcome.Serial,
				"address", outcome.Address,
				"error", outcome.Err,
			)
			continue
		}

		b.logger.Info("device updated",
			"command_id", commandID,
			"serial", outcome.Serial,
			"state", outcome.State.String(),
		)

		if dev, err := b.registry.Get(outcome.Serial); err == nil {
			b.PublishDeviceState(dev)
		}
	}
}

// stateMessage is the retained per-device state payload.
// Topic: <base>/status/<serial>
type stateMessage struct {
	Serial      string    `json:"serial"`
	On          *bool     `json:"on,omitempty"`
	Temperature *int      `json:"temperature,omitempty"`
	Brightness  *int      `json:"brightness,omitempty"`
	Address     string    `json:"address"`
	Product     string    `json:"product,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// PublishDeviceState publishes a device's last-known state, retained,
// so subscribers joining later still see it. Also used by the
// discovery listener when a device registers.
func (b *Bridge) PublishDeviceState(dev device.Device) {
	msg := stateMessage{
		Serial:      dev.Serial,
		On:          dev.State.On,
		Temperature: dev.State.Temperature,
		Brightness:  dev.State.Brightness,
		Address:     dev.Address,
		Product:     dev.Product,
		Timestamp:   time.Now().UTC(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to marshal device state", "serial", dev.Serial, "error", err)
		return
	}

	if err := b.mqtt.PublishRetained(b.topics.DeviceState(dev.Serial), payload); err != nil {
		b.logger.Error("failed to publish device state", "serial", dev.Serial, "error", err)
	}
}
