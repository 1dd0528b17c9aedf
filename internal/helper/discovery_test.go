package helper

import (
	"context"
	"errors"
	"testing"
)

// fakeSource is a StateSource backed by a fixed slice.
type fakeSource struct {
	states []EntityState
	err    error
}

func (f *fakeSource) States(_ context.Context) ([]EntityState, error) {
	return f.states, f.err
}

func testStates() []EntityState {
	return []EntityState{
		{EntityID: "input_boolean.guest_mode", State: "off", Attributes: map[string]any{"friendly_name": "Guest Mode"}},
		{EntityID: "counter.daily_count", State: "4"},
		{EntityID: "light.kitchen", State: "on", Attributes: map[string]any{"supported_features": 44, "friendly_name": "Kitchen"}},
		{EntityID: "sensor.template_power", State: "120", Attributes: map[string]any{
			"friendly_name": "Template Power", "device_class": "power", "icon": "mdi:flash",
		}},
		{EntityID: "sensor.outdoor_temp", State: "18.5", Attributes: map[string]any{
			"friendly_name": "Outdoor Temperature", "unit_of_measurement": "°C", "state_class": "measurement",
		}},
		{EntityID: "automation.morning", State: "on"},
		{EntityID: "BAD ID", State: "x"},
	}
}

func TestDiscovery_Discover(t *testing.T) {
	d := NewDiscovery(&fakeSource{states: testStates()})

	helpers, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	want := []string{"counter.daily_count", "input_boolean.guest_mode", "sensor.template_power"}
	if len(helpers) != len(want) {
		t.Fatalf("Discover() returned %d helpers, want %d", len(helpers), len(want))
	}
	for i, id := range want {
		if helpers[i].EntityID != id {
			t.Errorf("helpers[%d].EntityID = %q, want %q (sorted order)", i, helpers[i].EntityID, id)
		}
	}

	guest := helpers[1]
	if guest.Domain != "input_boolean" || guest.ObjectID != "guest_mode" {
		t.Errorf("split = (%q, %q), want (input_boolean, guest_mode)", guest.Domain, guest.ObjectID)
	}
	if guest.FriendlyName != "Guest Mode" {
		t.Errorf("FriendlyName = %q, want %q", guest.FriendlyName, "Guest Mode")
	}
	if guest.State == nil || *guest.State != "off" {
		t.Errorf("State = %v, want off", guest.State)
	}
}

func TestDiscovery_DiscoverSourceFailure(t *testing.T) {
	d := NewDiscovery(&fakeSource{err: errors.New("connection refused")})

	_, err := d.Discover(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Discover() error = %v, want ErrSourceUnavailable", err)
	}
}

func TestDiscovery_SnapshotIsolation(t *testing.T) {
	src := &fakeSource{states: []EntityState{
		{EntityID: "input_text.scratch_pad", State: "hello", Attributes: map[string]any{"friendly_name": "Scratch"}},
	}}
	d := NewDiscovery(src)

	helpers, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	// Mutating the source's map must not affect the snapshot.
	src.states[0].Attributes["friendly_name"] = "changed"
	if helpers[0].Attributes["friendly_name"] != "Scratch" {
		t.Error("snapshot shares attribute map with source")
	}
}

func TestDiscovery_Lookup(t *testing.T) {
	d := NewDiscovery(&fakeSource{states: testStates()})
	ctx := context.Background()

	entity, err := d.Lookup(ctx, "counter.daily_count")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if entity.EntityID != "counter.daily_count" {
		t.Errorf("Lookup() entity = %q, want counter.daily_count", entity.EntityID)
	}

	if _, err := d.Lookup(ctx, "input_text.absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(absent) error = %v, want ErrNotFound", err)
	}

	// Non-helper entities are reported as not found, not exposed.
	if _, err := d.Lookup(ctx, "light.kitchen"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(non-helper) error = %v, want ErrNotFound", err)
	}

	if _, err := d.Lookup(ctx, "not an id"); !errors.Is(err, ErrInvalidEntityID) {
		t.Errorf("Lookup(malformed) error = %v, want ErrInvalidEntityID", err)
	}
}
