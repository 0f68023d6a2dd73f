package model

import (
	"testing"
	"time"
)

func TestClassifyPrivacy(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want PrivacyLevel
	}{
		{"no tags", nil, PrivacyPublic},
		{"neutral tags", []string{"motor", "visual"}, PrivacyPublic},
		{"behavioral", []string{"sleep-pattern"}, PrivacyBehavioral},
		{"behavior substring", []string{"behavioral-drift"}, PrivacyBehavioral},
		{"personal", []string{"personal-notes"}, PrivacyPersonal},
		{"private", []string{"private"}, PrivacyPersonal},
		{"personal wins over behavioral", []string{"pattern", "personal"}, PrivacyPersonal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyPrivacy(tt.tags); got != tt.want {
				t.Errorf("ClassifyPrivacy(%v) = %q, want %q", tt.tags, got, tt.want)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := &Capsule{
		ID:            "cap_01",
		Timestamp:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Origin:        "cluster-a",
		Privacy:       PrivacyBehavioral,
		ContextVector: make([]float64, ContextDim),
		SemanticTags:  []string{"motor", "pattern"},
		Novelty:       0.8,
		Importance:    0.4,
		Payload:       []byte(`{"u":1}`),
	}
	got, err := DecodeCapsule(c.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != c.ID || got.Privacy != c.Privacy || got.Novelty != c.Novelty {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if string(got.Payload) != string(c.Payload) {
		t.Errorf("payload mismatch: %q", got.Payload)
	}
}

func TestDecodeCapsuleErrors(t *testing.T) {
	if _, err := DecodeCapsule([]byte("not json")); err == nil {
		t.Error("expected error for invalid json")
	}
	if _, err := DecodeCapsule([]byte(`{"timestamp":"2026-08-01T00:00:00Z"}`)); err == nil {
		t.Error("expected error for missing capsule_id")
	}
	if _, err := DecodeCapsule([]byte(`{"capsule_id":"c1","privacy_level":"secret"}`)); err == nil {
		t.Error("expected error for unknown privacy level")
	}
}

func TestDecodeCapsuleDefaultsPrivacy(t *testing.T) {
	c, err := DecodeCapsule([]byte(`{"capsule_id":"c1"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Privacy != PrivacyPublic {
		t.Errorf("expected public default, got %q", c.Privacy)
	}
}

func TestPrivacyOrdinal(t *testing.T) {
	if PrivacyPersonal.Ordinal() != 1.0 || PrivacyBehavioral.Ordinal() != 0.5 || PrivacyPublic.Ordinal() != 0.0 {
		t.Error("unexpected ordinal mapping")
	}
}
