package consolidator

import (
	"testing"
	"time"

	"github.com/meshmind/engram/internal/model"
)

var t0 = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestConsolidator(t *testing.T) *Consolidator {
	t.Helper()
	return New("cluster-test", nil)
}

func feed(c *Consolidator, unitID string, samples int) {
	c.AddUnit(unitID, 100)
	for i := 0; i < samples; i++ {
		c.Observe(unitID, 0.5, -0.2, 0.1, 1.0)
	}
}

func TestFirstCapsuleIsFullyNovel(t *testing.T) {
	c := newTestConsolidator(t)
	feed(c, "u1", 10)

	capsule := c.Consolidate(t0)
	if capsule.Novelty != 1.0 {
		t.Errorf("expected novelty 1.0 for first capsule, got %v", capsule.Novelty)
	}
	if capsule.Origin != "cluster-test" {
		t.Errorf("expected origin cluster-test, got %q", capsule.Origin)
	}
	if capsule.ID == "" {
		t.Error("expected non-empty capsule id")
	}
	if len(capsule.ContextVector) != model.ContextDim {
		t.Errorf("expected %d-dim context vector, got %d", model.ContextDim, len(capsule.ContextVector))
	}
}

func TestConsolidateWithoutTelemetry(t *testing.T) {
	c := newTestConsolidator(t)

	capsule := c.Consolidate(t0)
	if capsule == nil {
		t.Fatal("expected a capsule even with no telemetry")
	}
	for i, v := range capsule.ContextVector {
		if v != 0 {
			t.Errorf("expected zero context slot %d, got %v", i, v)
		}
	}
	if capsule.Importance != 0 {
		t.Errorf("expected zero importance, got %v", capsule.Importance)
	}
	if capsule.Privacy != model.PrivacyPublic {
		t.Errorf("expected public privacy, got %q", capsule.Privacy)
	}
}

func TestRepeatedWindowsLoseNovelty(t *testing.T) {
	c := newTestConsolidator(t)
	feed(c, "u1", 10)
	first := c.Consolidate(t0)

	feed(c, "u1", 10)
	second := c.Consolidate(t0.Add(2 * time.Minute))

	if second.Novelty >= first.Novelty {
		t.Errorf("expected novelty to drop for a repeated window: first %v, second %v",
			first.Novelty, second.Novelty)
	}
}

func TestPrivacyFromUnitTags(t *testing.T) {
	c := newTestConsolidator(t)
	u := c.AddUnit("u1", 100)
	u.Observe(0.5, 0, 0, 1.0)
	u.AddTag("sleep-pattern")

	capsule := c.Consolidate(t0)
	if capsule.Privacy != model.PrivacyBehavioral {
		t.Errorf("expected behavioral privacy, got %q", capsule.Privacy)
	}
	if len(capsule.SemanticTags) != 1 || capsule.SemanticTags[0] != "sleep-pattern" {
		t.Errorf("unexpected tags: %v", capsule.SemanticTags)
	}
}

func TestShouldConsolidateTriggers(t *testing.T) {
	c := newTestConsolidator(t)
	c.last = t0

	if c.ShouldConsolidate(t0.Add(10 * time.Second)) {
		t.Error("expected no trigger inside the interval with empty buffers")
	}
	if !c.ShouldConsolidate(t0.Add(2 * time.Minute)) {
		t.Error("expected the periodic trigger after the interval")
	}

	// Backpressure: a unit at 75% of capacity triggers regardless of time.
	feed(c, "u1", 75)
	if !c.ShouldConsolidate(t0.Add(10 * time.Second)) {
		t.Error("expected the buffer trigger at 75% capacity")
	}
}

func TestMaybeConsolidate(t *testing.T) {
	c := newTestConsolidator(t)
	c.last = t0
	feed(c, "u1", 5)

	if capsule := c.MaybeConsolidate(t0.Add(time.Second)); capsule != nil {
		t.Error("expected nil when no trigger fired")
	}
	if capsule := c.MaybeConsolidate(t0.Add(2 * time.Minute)); capsule == nil {
		t.Error("expected a capsule after the interval")
	}
}

func TestRollingBufferBounded(t *testing.T) {
	c := newTestConsolidator(t)
	for i := 0; i < recentCapacity+20; i++ {
		feed(c, "u1", 1)
		c.Consolidate(t0.Add(time.Duration(i) * time.Minute))
	}
	if len(c.recent) != recentCapacity {
		t.Errorf("expected rolling buffer capped at %d, got %d", recentCapacity, len(c.recent))
	}
}

func TestObserveUnknownUnit(t *testing.T) {
	c := newTestConsolidator(t)
	c.Observe("ghost", 1, 1, 1, 1)
	if _, ok := c.Unit("ghost"); ok {
		t.Error("expected unknown unit to stay unregistered")
	}
}

func TestRecentSimilar(t *testing.T) {
	c := newTestConsolidator(t)
	feed(c, "u1", 10)
	first := c.Consolidate(t0)

	ids := c.RecentSimilar(first.ContextVector, 1)
	if len(ids) != 1 || ids[0] != first.ID {
		t.Errorf("expected the capsule itself as most similar, got %v", ids)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := newTestConsolidator(t)
	feed(c, "u1", 10)
	capsule := c.Consolidate(t0)

	restored := FromSnapshot(c.Snapshot(), nil)
	if restored.Origin() != c.Origin() {
		t.Errorf("origin mismatch: %q", restored.Origin())
	}
	if latest := restored.Latest(); latest == nil || latest.ID != capsule.ID {
		t.Errorf("latest capsule not restored")
	}
	if _, ok := restored.Unit("u1"); !ok {
		t.Error("unit buffer not restored")
	}
}
