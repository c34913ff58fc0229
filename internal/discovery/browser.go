package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/mdns"

	"keylight2mqtt/internal/device"
)

// serviceName is the mDNS service Key Lights announce themselves on.
const serviceName = "_elg._tcp"

// defaultPort is the REST API port when an mDNS entry omits one.
const defaultPort = 9123

// Defaults for Browser options left unset.
const (
	defaultInterval     = 45 * time.Second
	defaultQueryTimeout = 5 * time.Second
	defaultProbeTimeout = 5 * time.Second
	defaultLostAfter    = 3
)

// EventKind discriminates discovery events.
type EventKind string

const (
	// EventFound reports a device that appeared or changed address.
	EventFound EventKind = "found"

	// EventLost reports a device that stopped answering sweeps.
	EventLost EventKind = "lost"
)

// Event is one discovery state change.
type Event struct {
	Kind EventKind

	// Device is populated for Found events.
	Device device.Device

	// Serial and Address identify the device for Lost events.
	Serial  string
	Address string
}

// Prober resolves a discovered address into a device identity.
// Satisfied by elgato.Client.
type Prober interface {
	Identify(ctx context.Context, addr string) (device.Device, error)
}

// Logger is the logging interface used by the browser and listener.
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

// queryFunc performs one mDNS sweep and returns device base URLs.
// Replaceable in tests.
type queryFunc func(ctx context.Context, timeout time.Duration) ([]string, error)

// Options configures a Browser.
type Options struct {
	// Prober resolves addresses to device identities. Required.
	Prober Prober

	// Interval between sweeps. Zero means 45s.
	Interval time.Duration

	// QueryTimeout bounds one mDNS query. Zero means 5s.
	QueryTimeout time.Duration

	// ProbeTimeout bounds one HTTP identity probe. Zero means 5s.
	ProbeTimeout time.Duration

	// LostAfter is how many consecutive missed sweeps mark a device
	// lost. Zero means 3.
	LostAfter int

	// Logger for sweep diagnostics. Nil means no logging.
	Logger Logger
}

// tracked is the browser's per-serial bookkeeping.
type tracked struct {
	address string
	missed  int
}

// Browser sweeps the network and reports device appearance and loss.
type Browser struct {
	prober       Prober
	interval     time.Duration
	queryTimeout time.Duration
	probeTimeout time.Duration
	lostAfter    int
	logger       Logger

	query  queryFunc
	events chan Event

	// known maps serial to tracking state. Only the Run goroutine
	// touches it.
	known map[string]*tracked
}

// New creates a Browser. Returns ErrNoProber if opts.Prober is nil.
func New(opts Options) (*Browser, error) {
	if opts.Prober == nil {
		return nil, ErrNoProber
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = defaultQueryTimeout
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = defaultProbeTimeout
	}
	if opts.LostAfter <= 0 {
		opts.LostAfter = defaultLostAfter
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	return &Browser{
		prober:       opts.Prober,
		interval:     opts.Interval,
		queryTimeout: opts.QueryTimeout,
		probeTimeout: opts.ProbeTimeout,
		lostAfter:    opts.LostAfter,
		logger:       opts.Logger,
		query:        mdnsQuery,
		events:       make(chan Event, 16),
		known:        make(map[string]*tracked),
	}, nil
}

// Events returns the channel discovery events are delivered on.
// The channel is closed when Run returns.
func (b *Browser) Events() <-chan Event {
	return b.events
}

// Run sweeps immediately, then on every interval tick, until ctx is
// cancelled. It always returns ctx.Err().
func (b *Browser) Run(ctx context.Context) error {
	defer close(b.events)

	b.sweep(ctx)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.sweep(ctx)
		}
	}
}

// sweep performs one query-and-probe pass and emits resulting events.
func (b *Browser) sweep(ctx context.Context) {
	addrs, err := b.query(ctx, b.queryTimeout)
	if err != nil {
		// A failed query says nothing about the devices, so it must
		// not advance the missed counters.
		b.logger.Warn("mDNS sweep failed", "error", err)
		return
	}

	b.logger.Debug("mDNS sweep complete", "addresses", len(addrs))

	seen := b.probeAll(ctx, addrs)
	if ctx.Err() != nil {
		return
	}

	for serial, t := range b.known {
		if seen[serial] {
			continue
		}
		t.missed++
		if t.missed < b.lostAfter {
			b.logger.Debug("device missed sweep", "serial", serial, "missed", t.missed)
			continue
		}
		delete(b.known, serial)
		b.logger.Info("device lost", "serial", serial, "address", t.address)
		b.emit(ctx, Event{Kind: EventLost, Serial: serial, Address: t.address})
	}
}

// probeAll probes every address concurrently and returns the set of
// serials that answered. Found events are emitted for new devices and
// address changes.
func (b *Browser) probeAll(ctx context.Context, addrs []string) map[string]bool {
	var wg sync.WaitGroup
	results := make(chan device.Device, len(addrs))

	for _, addr := range addrs {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, b.probeTimeout)
			defer cancel()

			dev, err := b.prober.Identify(probeCtx, addr)
			if err != nil {
				b.logger.Warn("device probe failed", "address", addr, "error", err)
				return
			}
			if dev.Serial == "" {
				b.logger.Warn("device reported empty serial", "address", addr)
				return
			}
			results <- dev
		}(addr)
	}

	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for dev := range results {
		seen[dev.Serial] = true

		t, ok := b.known[dev.Serial]
		if ok {
			t.missed = 0
			if t.address == dev.Address {
				continue
			}
			b.logger.Info("device moved",
				"serial", dev.Serial,
				"from", t.address,
				"to", dev.Address,
			)
			t.address = dev.Address
		} else {
			b.known[dev.Serial] = &tracked{address: dev.Address}
			b.logger.Info("device found",
				"serial", dev.Serial,
				"product", dev.Product,
				"address", dev.Address,
			)
		}
		b.emit(ctx, Event{Kind: EventFound, Device: dev})
	}
	return seen
}

// emit delivers an event unless the context is cancelled.
func (b *Browser) emit(ctx context.Context, ev Event) {
	select {
	case b.events <- ev:
	case <-ctx.Done():
	}
}

// mdnsQuery runs one multicast DNS query for the Key Light service and
// returns the base URLs of every responder.
func mdnsQuery(ctx context.Context, timeout time.Duration) ([]string, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	errc := make(chan error, 1)

	go func() {
		params := &mdns.QueryParam{
			Service:             serviceName,
			Domain:              "local",
			Timeout:             timeout,
			Entries:             entries,
			DisableIPv6:         true,
			WantUnicastResponse: true,
		}
		errc <- mdns.Query(params)
		close(entries)
	}()

	var addrs []string
	seen := make(map[string]bool)
	// Drain the channel fully even when cancelled, so the query
	// goroutine can finish and close it.
	for entry := range entries {
		if ctx.Err() != nil {
			continue
		}
		if entry.AddrV4 == nil {
			continue
		}
		port := entry.Port
		if port == 0 {
			port = defaultPort
		}
		addr := fmt.Sprintf("http://%s:%d", entry.AddrV4, port)
		if seen[addr] {
			continue
		}
		seen[addr] = true
		addrs = append(addrs, addr)
	}

	if err := <-errc; err != nil {
		return nil, fmt.Errorf("discovery: mdns query: %w", err)
	}
	return addrs, nil
}
