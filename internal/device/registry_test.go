package device

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistryUpsertNew(t *testing.T) {
	r := NewRegistry()

	created, err := r.Upsert(Device{Serial: "SN123", Address: "10.0.0.5:9123"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if !created {
		t.Error("Upsert() created = false, want true for new device")
	}

	got, err := r.Get("SN123")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Address != "10.0.0.5:9123" {
		t.Errorf("Address = %q, want %q", got.Address, "10.0.0.5:9123")
	}
}

func TestRegistryUpsertIdempotent(t *testing.T) {
	r := NewRegistry()

	// Repeated found events for the same serial must leave exactly one entry.
	for i := 0; i < 3; i++ {
		if _, err := r.Upsert(Device{Serial: "SN123", Address: "10.0.0.5:9123"}); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	got, err := r.Get("SN123")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Address != "10.0.0.5:9123" {
		t.Errorf("Address = %q, want %q", got.Address, "10.0.0.5:9123")
	}
}

func TestRegistryUpsertAddressChange(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Upsert(Device{Serial: "SN123", Address: "10.0.0.5:9123"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, err := r.Upsert(Device{Serial: "SN123", Address: "10.0.0.9:9123"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := r.Get("SN123")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Address != "10.0.0.9:9123" {
		t.Errorf("Address = %q, want rediscovered address %q", got.Address, "10.0.0.9:9123")
	}
}

func TestRegistryUpsertPreservesCachedState(t *testing.T) {
	r := NewRegistry()

	seed := State{On: Bool(true), Temperature: Int(4000), Brightness: Int(50)}
	if _, err := r.Upsert(Device{Serial: "SN123", Address: "a:1", State: seed}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// Rediscovery without a state probe must not clear the cache.
	if _, err := r.Upsert(Device{Serial: "SN123", Address: "a:2"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := r.Get("SN123")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State.On == nil || !*got.State.On {
		t.Error("cached power state lost on rediscovery")
	}
	if got.State.Brightness == nil || *got.State.Brightness != 50 {
		t.Error("cached brightness lost on rediscovery")
	}
}

func TestRegistryUpsertEmptySerial(t *testing.T) {
	r := NewRegistry()

	_, err := r.Upsert(Device{Address: "10.0.0.5:9123"})
	if !errors.Is(err, ErrEmptySerial) {
		t.Errorf("Upsert() error = %v, want ErrEmptySerial", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Upsert(Device{Serial: "SN123", Address: "a:1"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if !r.Remove("SN123") {
		t.Error("Remove() = false, want true for registered serial")
	}

	if _, err := r.Get("SN123"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Remove() error = %v, want ErrNotFound", err)
	}
}

func TestRegistryRemoveUnknown(t *testing.T) {
	r := NewRegistry()

	// Lost events for unknown serials are a no-op, not an error.
	if r.Remove("NOPE") {
		t.Error("Remove() = true for unknown serial")
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("NOPE")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Upsert(Device{Serial: "SN123", Address: "a:1", State: State{Brightness: Int(50)}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := r.Get("SN123")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	*got.State.Brightness = 99

	again, err := r.Get("SN123")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *again.State.Brightness != 50 {
		t.Error("Get() returned a device aliasing registry internals")
	}
}

func TestRegistryAllSnapshot(t *testing.T) {
	r := NewRegistry()

	for _, serial := range []string{"A", "B", "C"} {
		if _, err := r.Upsert(Device{Serial: serial, Address: serial + ":9123"}); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	snap := r.All()
	if len(snap) != 3 {
		t.Fatalf("All() returned %d devices, want 3", len(snap))
	}

	// Mutations after the snapshot must not corrupt it.
	r.Remove("B")
	if len(snap) != 3 {
		t.Errorf("snapshot length changed to %d after Remove()", len(snap))
	}
}

func TestRegistrySetState(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Upsert(Device{Serial: "SN123", Address: "a:1", State: State{On: Bool(true), Temperature: Int(4000)}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := r.SetState("SN123", State{Brightness: Int(80)}); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	got, err := r.Get("SN123")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State.Brightness == nil || *got.State.Brightness != 80 {
		t.Error("SetState() did not record new brightness")
	}
	if got.State.On == nil || !*got.State.On {
		t.Error("SetState() cleared previously known power state")
	}
}

func TestRegistrySetStateUnknown(t *testing.T) {
	r := NewRegistry()

	err := r.SetState("NOPE", State{Brightness: Int(80)})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SetState() error = %v, want ErrNotFound", err)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	serials := []string{"A", "B", "C", "D"}

	// Discovery churn and dispatcher reads racing; run with -race.
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			serial := serials[i%len(serials)]
			_, _ = r.Upsert(Device{Serial: serial, Address: serial + ":9123"})
		}(i)
		go func(i int) {
			defer wg.Done()
			r.Remove(serials[(i+1)%len(serials)])
		}(i)
		go func() {
			defer wg.Done()
			for _, d := range r.All() {
				_, _ = r.Get(d.Serial)
			}
		}()
	}

	wg.Wait()
}
