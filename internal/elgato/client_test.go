package elgato

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mdlayher/keylight"

	"keylight2mqtt/internal/device"
)

func TestStateFromLight(t *testing.T) {
	l := &keylight.Light{On: true, Brightness: 40, Temperature: 4500}

	s := stateFromLight(l)
	if s.On == nil || !*s.On {
		t.Error("stateFromLight() On not set")
	}
	if s.Brightness == nil || *s.Brightness != 40 {
		t.Errorf("stateFromLight() Brightness = %v, want 40", s.Brightness)
	}
	if s.Temperature == nil || *s.Temperature != 4500 {
		t.Errorf("stateFromLight() Temperature = %v, want 4500", s.Temperature)
	}
	if !s.Complete() {
		t.Error("stateFromLight() produced incomplete state")
	}
}

func TestLightFromState(t *testing.T) {
	s := device.State{
		On:          device.Bool(true),
		Temperature: device.Int(5000),
		Brightness:  device.Int(75),
	}

	l := lightFromState(s)
	if !l.On || l.Temperature != 5000 || l.Brightness != 75 {
		t.Errorf("lightFromState() = %+v", l)
	}
}

func TestOverlayStatePartial(t *testing.T) {
	l := &keylight.Light{On: true, Brightness: 40, Temperature: 4500}

	overlayState(l, device.State{Brightness: device.Int(90)})

	if !l.On {
		t.Error("overlayState() cleared On")
	}
	if l.Temperature != 4500 {
		t.Errorf("overlayState() Temperature = %d, want 4500", l.Temperature)
	}
	if l.Brightness != 90 {
		t.Errorf("overlayState() Brightness = %d, want 90", l.Brightness)
	}
}

func TestOverlayStateBrightnessFloor(t *testing.T) {
	l := &keylight.Light{}

	overlayState(l, device.State{Brightness: device.Int(0)})

	if l.Brightness != deviceMinBrightness {
		t.Errorf("overlayState() Brightness = %d, want %d", l.Brightness, deviceMinBrightness)
	}
}

func TestClientForEmptyAddress(t *testing.T) {
	c := New(time.Second)

	_, err := c.clientFor("")
	if !errors.Is(err, ErrEmptyAddress) {
		t.Errorf("clientFor(\"\") error = %v, want ErrEmptyAddress", err)
	}
}

func TestClientForCaches(t *testing.T) {
	c := New(time.Second)

	first, err := c.clientFor("http://127.0.0.1:9123")
	if err != nil {
		t.Fatalf("clientFor() error = %v", err)
	}
	second, err := c.clientFor("http://127.0.0.1:9123")
	if err != nil {
		t.Fatalf("clientFor() error = %v", err)
	}

	if first != second {
		t.Error("clientFor() created a second client for a cached address")
	}
}

func TestForget(t *testing.T) {
	c := New(time.Second)

	addr := "http://127.0.0.1:9123"
	first, err := c.clientFor(addr)
	if err != nil {
		t.Fatalf("clientFor() error = %v", err)
	}

	c.Forget(addr)

	second, err := c.clientFor(addr)
	if err != nil {
		t.Fatalf("clientFor() error = %v", err)
	}
	if first == second {
		t.Error("Forget() did not evict the cached client")
	}
}

func TestIdentifyUnreachable(t *testing.T) {
	// Server that is already closed: connection refused.
	srv := httptest.NewServer(nil)
	addr := srv.URL
	srv.Close()

	c := New(time.Second)
	_, err := c.Identify(context.Background(), addr)
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Identify() error = %v, want ErrUnreachable", err)
	}
}

func TestApplyUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	addr := srv.URL
	srv.Close()

	c := New(time.Second)
	_, err := c.Apply(context.Background(), addr, device.State{On: device.Bool(true)})
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Apply() error = %v, want ErrUnreachable", err)
	}
}

func TestApplyEmptyAddress(t *testing.T) {
	c := New(time.Second)

	_, err := c.Apply(context.Background(), "", device.State{On: device.Bool(true)})
	if !errors.Is(err, ErrEmptyAddress) {
		t.Errorf("Apply() error = %v, want ErrEmptyAddress", err)
	}
}
