package vectorstore

import (
	"testing"
	"time"
)

func TestSearchTagFilter(t *testing.T) {
	s := New(nil)
	s.IngestCapsule(testCapsule("cap_a", t0, []string{"motor", "gait"}), "")
	s.IngestCapsule(testCapsule("cap_b", t0, []string{"visual"}), "")

	results := s.Search(Query{Vector: []float64{1}, Tags: []string{"motor", "gait"}}, t0)
	if len(results) != 1 || results[0].CapsuleID != "cap_a" {
		t.Fatalf("expected only cap_a, got %v", results)
	}
	if results[0].ContextMatch != 1.0 {
		t.Errorf("expected full context match, got %v", results[0].ContextMatch)
	}
}

func TestSearchTagOverlapFloor(t *testing.T) {
	s := New(nil)
	s.IngestCapsule(testCapsule("cap_a", t0, []string{"motor"}), "")

	// One of four filter tags present: 0.25 overlap, below the floor.
	results := s.Search(Query{
		Vector: []float64{1},
		Tags:   []string{"motor", "gait", "visual", "sleep"},
	}, t0)
	if len(results) != 0 {
		t.Errorf("expected entry skipped below the overlap floor, got %v", results)
	}
}

func TestSearchQualityFloor(t *testing.T) {
	s := New(nil)
	s.IngestCapsule(testCapsule("cap_a", t0, []string{"motor"}), "")

	if results := s.Search(Query{Vector: []float64{1}, QualityFloor: 0.99}, t0); len(results) != 0 {
		t.Errorf("expected no results above quality floor 0.99, got %v", results)
	}
	if results := s.Search(Query{Vector: []float64{1}}, t0); len(results) != 1 {
		t.Errorf("expected 1 result without a floor, got %v", results)
	}
}

func TestSearchTimeRange(t *testing.T) {
	s := New(nil)
	s.IngestCapsule(testCapsule("cap_old", t0, nil), "")
	s.IngestCapsule(testCapsule("cap_new", t0.Add(48*time.Hour), nil), "")

	from := t0.Add(24 * time.Hour)
	results := s.Search(Query{Vector: []float64{1}, From: &from}, t0.Add(49*time.Hour))
	if len(results) != 1 || results[0].CapsuleID != "cap_new" {
		t.Errorf("expected only cap_new after the cutoff, got %v", results)
	}

	// The range is inclusive at both ends.
	edge := t0
	results = s.Search(Query{Vector: []float64{1}, From: &edge, To: &edge}, t0)
	if len(results) != 1 || results[0].CapsuleID != "cap_old" {
		t.Errorf("expected cap_old at the inclusive boundary, got %v", results)
	}
}

func TestSearchLimitAndTieBreak(t *testing.T) {
	s := New(nil)
	// Identical context vectors and timestamps make every relevance equal,
	// so ordering falls back to ascending capsule id.
	s.IngestCapsule(testCapsule("cap_c", t0, nil), "")
	s.IngestCapsule(testCapsule("cap_a", t0, nil), "")
	s.IngestCapsule(testCapsule("cap_b", t0, nil), "")

	results := s.Search(Query{Vector: make([]float64, EmbeddingDim), Limit: 2}, t0)
	if len(results) != 2 {
		t.Fatalf("expected limit 2, got %d", len(results))
	}
	if results[0].CapsuleID != "cap_a" || results[1].CapsuleID != "cap_b" {
		t.Errorf("expected deterministic id order, got %v", results)
	}
}

func TestSearchUpdatesReturnedAccessOnly(t *testing.T) {
	s := New(nil)
	s.IngestCapsule(testCapsule("cap_a", t0, nil), "")
	s.IngestCapsule(testCapsule("cap_b", t0, nil), "")

	results := s.Search(Query{Vector: []float64{1}, Limit: 1}, t0)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	for _, id := range []string{"cap_a", "cap_b"} {
		e, _ := s.Entry(id)
		want := uint32(0)
		if id == results[0].CapsuleID {
			want = 1
		}
		if e.Access.TotalAccesses != want {
			t.Errorf("%s: expected %d accesses, got %d", id, want, e.Access.TotalAccesses)
		}
	}
}

func TestSearchPrunesStaleAccesses(t *testing.T) {
	s := New(nil)
	s.IngestCapsule(testCapsule("cap_a", t0, nil), "")

	s.Search(Query{Vector: []float64{1}}, t0)
	s.Search(Query{Vector: []float64{1}}, t0.Add(48*time.Hour))

	e, _ := s.Entry("cap_a")
	if e.Access.TotalAccesses != 2 {
		t.Errorf("expected total 2, got %d", e.Access.TotalAccesses)
	}
	if len(e.Access.RecentAccesses) != 1 {
		t.Errorf("expected only the access inside the 24h window, got %d", len(e.Access.RecentAccesses))
	}
}

func TestSearchAlgorithms(t *testing.T) {
	s := New(nil)
	s.IngestCapsule(testCapsule("cap_a", t0, nil), "")

	for algo := range ValidAlgorithms {
		results := s.Search(Query{Vector: []float64{0.5, 0.5}, Algorithm: algo}, t0)
		if len(results) != 1 {
			t.Errorf("algorithm %q: expected 1 result, got %d", algo, len(results))
		}
	}
}
