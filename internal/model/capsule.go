// Package model defines the wire-stable capsule data types.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ContextDim is the fixed dimensionality of a capsule context vector.
const ContextDim = 16

// PrivacyLevel classifies how widely a capsule may be shared.
type PrivacyLevel string

const (
	// PrivacyPersonal capsules stay on the producing device.
	PrivacyPersonal PrivacyLevel = "personal"
	// PrivacyBehavioral capsules carry shareable behavioral patterns only.
	PrivacyBehavioral PrivacyLevel = "behavioral"
	// PrivacyPublic capsules may be shared openly.
	PrivacyPublic PrivacyLevel = "public"
)

// ValidPrivacyLevels are the allowed privacy levels.
var ValidPrivacyLevels = map[PrivacyLevel]bool{
	PrivacyPersonal:   true,
	PrivacyBehavioral: true,
	PrivacyPublic:     true,
}

// Ordinal maps a privacy level to a compact feature value.
func (p PrivacyLevel) Ordinal() float64 {
	switch p {
	case PrivacyPersonal:
		return 1.0
	case PrivacyBehavioral:
		return 0.5
	default:
		return 0.0
	}
}

// ClassifyPrivacy derives a privacy level from semantic tags.
// Personal wins over behavioral, behavioral over public.
func ClassifyPrivacy(tags []string) PrivacyLevel {
	for _, tag := range tags {
		if strings.Contains(tag, "personal") || strings.Contains(tag, "private") {
			return PrivacyPersonal
		}
	}
	for _, tag := range tags {
		if strings.Contains(tag, "behavior") || strings.Contains(tag, "pattern") {
			return PrivacyBehavioral
		}
	}
	return PrivacyPublic
}

// AdaptationSummary describes the telemetry window a capsule was distilled from.
type AdaptationSummary struct {
	ThresholdAdaptations  uint32             `json:"threshold_adaptations"`
	TimerAdaptations      uint32             `json:"timer_adaptations"`
	WeightChanges         float64            `json:"weight_changes"`
	ErrorMagnitude        float64            `json:"error_magnitude"`
	LearningRateChanges   float64            `json:"learning_rate_changes"`
	SpecializationMetrics map[string]float64 `json:"specialization_metrics,omitempty"`
}

// Capsule is a distilled, scored snapshot of a telemetry window. Capsules are
// immutable once created; only store eviction ever destroys one.
type Capsule struct {
	ID            string            `json:"capsule_id"`
	Timestamp     time.Time         `json:"timestamp"`
	Origin        string            `json:"origin"`
	Privacy       PrivacyLevel      `json:"privacy_level"`
	ContextVector []float64         `json:"context_vector"`
	SemanticTags  []string          `json:"semantic_tags"`
	Adaptation    AdaptationSummary `json:"adaptation_summary"`
	Novelty       float64           `json:"novelty_score"`
	Importance    float64           `json:"importance_score"`
	// Payload holds the compacted unit states. The compaction is a
	// placeholder: a plain JSON digest with no size or confidentiality
	// guarantee, kept for wire compatibility.
	Payload []byte `json:"compressed_data"`
}

// Encode serializes the capsule to its wire form.
func (c *Capsule) Encode() []byte {
	b, _ := json.Marshal(c)
	return b
}

// DecodeCapsule parses a capsule from its wire form. An empty privacy level
// defaults to public.
func DecodeCapsule(data []byte) (*Capsule, error) {
	var c Capsule
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode capsule: %w", err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("decode capsule: missing capsule_id")
	}
	if c.Privacy == "" {
		c.Privacy = PrivacyPublic
	}
	if !ValidPrivacyLevels[c.Privacy] {
		return nil, fmt.Errorf("decode capsule: unknown privacy level %q", c.Privacy)
	}
	return &c, nil
}
