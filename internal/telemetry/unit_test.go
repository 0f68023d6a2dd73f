package telemetry

import (
	"testing"
	"time"
)

func TestObserveEvictsOldest(t *testing.T) {
	u := NewUnitBuffer("u1", 3)
	for i := 0; i < 5; i++ {
		u.Observe(float64(i), 0, 0, 0)
	}
	if u.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", u.Len())
	}
	// The two oldest samples are gone.
	if got := u.Activations()[0]; got != 2 {
		t.Errorf("expected oldest surviving activation 2, got %v", got)
	}
	if got := u.Activations()[2]; got != 4 {
		t.Errorf("expected newest activation 4, got %v", got)
	}
}

func TestAddTagDedup(t *testing.T) {
	u := NewUnitBuffer("u1", 10)
	u.AddTag("motor")
	u.AddTag("motor")
	u.AddTag("visual")
	if len(u.Tags()) != 2 {
		t.Errorf("expected 2 tags, got %v", u.Tags())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	u := NewUnitBuffer("u1", 5)
	u.Observe(0.5, -0.1, 0.2, 1.0)
	u.Observe(0.6, 0.1, 0.3, 1.1)
	u.AddTag("motor")
	u.AddEvent(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), "spike")

	restored := FromSnapshot(u.Snapshot())
	if restored.ID() != "u1" {
		t.Errorf("expected id u1, got %q", restored.ID())
	}
	if restored.Len() != 2 || restored.Cap() != 5 {
		t.Errorf("expected len 2 cap 5, got %d/%d", restored.Len(), restored.Cap())
	}
	if len(restored.Events()) != 1 || restored.Events()[0].Kind != "spike" {
		t.Errorf("events not restored: %v", restored.Events())
	}
	if len(restored.Tags()) != 1 || restored.Tags()[0] != "motor" {
		t.Errorf("tags not restored: %v", restored.Tags())
	}
}
