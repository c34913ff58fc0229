package discovery

import (
	"context"
	"sync"

	"keylight2mqtt/internal/device"
)

// StatePublisher announces a device's last-known state to interested
// subscribers. Satisfied by bridge.Bridge.
type StatePublisher interface {
	PublishDeviceState(dev device.Device)
}

// Forgetter drops per-address resources for a lost device.
// Satisfied by elgato.Client.
type Forgetter interface {
	Forget(addr string)
}

// ListenerOptions configures a Listener.
type ListenerOptions struct {
	// Registry receives registrations and removals. Required.
	Registry *device.Registry

	// Events is the browser's event channel. Required.
	Events <-chan Event

	// Publisher, when set, is told about every registered device so
	// its state can be announced. Optional.
	Publisher StatePublisher

	// Forgetter, when set, is told about lost device addresses.
	// Optional.
	Forgetter Forgetter

	// Logger for event diagnostics. Nil means no logging.
	Logger Logger
}

// Listener applies discovery events to the device registry.
type Listener struct {
	registry  *device.Registry
	events    <-chan Event
	publisher StatePublisher
	forgetter Forgetter
	logger    Logger

	// wg tracks in-flight state publishes, which run off the event
	// goroutine so a slow broker cannot stall discovery.
	wg sync.WaitGroup
}

// NewListener creates a Listener. Returns ErrNoRegistry or ErrNoEvents
// when a required option is missing.
func NewListener(opts ListenerOptions) (*Listener, error) {
	if opts.Registry == nil {
		return nil, ErrNoRegistry
	}
	if opts.Events == nil {
		return nil, ErrNoEvents
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	return &Listener{
		registry:  opts.Registry,
		events:    opts.Events,
		publisher: opts.Publisher,
		forgetter: opts.Forgetter,
		logger:    opts.Logger,
	}, nil
}

// Run consumes events until ctx is cancelled or the event channel is
// closed. It returns nil on channel close and ctx.Err() on cancel.
// Pending state publishes are waited for before returning.
func (l *Listener) Run(ctx context.Context) error {
	defer l.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-l.events:
			if !ok {
				return nil
			}
			l.handle(ev)
		}
	}
}

// handle applies one event.
func (l *Listener) handle(ev Event) {
	switch ev.Kind {
	case EventFound:
		created, err := l.registry.Upsert(ev.Device)
		if err != nil {
			l.logger.Error("device registration failed",
				"serial", ev.Device.Serial,
				"error", err,
			)
			return
		}
		if created {
			l.logger.Info("device registered",
				"serial", ev.Device.Serial,
				"product", ev.Device.Product,
				"address", ev.Device.Address,
			)
		}
		if l.publisher != nil {
			// Publish the registry's view, which may carry state
			// merged from earlier observations. The publish can
			// block on the broker, so it runs off this goroutine.
			if dev, err := l.registry.Get(ev.Device.Serial); err == nil {
				l.wg.Add(1)
				go func() {
					defer l.wg.Done()
					l.publisher.PublishDeviceState(dev)
				}()
			}
		}

	case EventLost:
		if l.registry.Remove(ev.Serial) {
			l.logger.Info("device deregistered", "serial", ev.Serial)
		}
		if l.forgetter != nil && ev.Address != "" {
			l.forgetter.Forget(ev.Address)
		}

	default:
		l.logger.Warn("unknown discovery event", "kind", string(ev.Kind))
	}
}
