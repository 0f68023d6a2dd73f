// Package telemetry collects bounded per-unit sample histories. The
// consolidator reads these buffers; it never mutates them.
package telemetry

import "time"

// Event records a discrete timer/adaptation event on a unit.
type Event struct {
	At   time.Time `json:"at"`
	Kind string    `json:"kind"`
}

// UnitBuffer holds the bounded history of one learning unit: parallel
// activation/error/eligibility/threshold samples, a timer-event log, and a
// set of free-text context tags. All histories evict FIFO past capacity.
type UnitBuffer struct {
	id          string
	maxSize     int
	activations []float64
	errs        []float64
	eligibility []float64
	thresholds  []float64
	events      []Event
	tags        []string
}

// NewUnitBuffer creates a buffer bounded to maxSize samples.
func NewUnitBuffer(id string, maxSize int) *UnitBuffer {
	if maxSize < 1 {
		maxSize = 1
	}
	return &UnitBuffer{id: id, maxSize: maxSize}
}

// ID returns the unit identifier.
func (u *UnitBuffer) ID() string { return u.id }

// Observe appends one sample row, evicting the oldest row at capacity.
func (u *UnitBuffer) Observe(activation, errSignal, eligibility, threshold float64) {
	u.activations = append(u.activations, activation)
	u.errs = append(u.errs, errSignal)
	u.eligibility = append(u.eligibility, eligibility)
	u.thresholds = append(u.thresholds, threshold)
	if len(u.activations) > u.maxSize {
		u.activations = u.activations[1:]
		u.errs = u.errs[1:]
		u.eligibility = u.eligibility[1:]
		u.thresholds = u.thresholds[1:]
	}
}

// AddEvent appends a timer event, bounded like the sample histories.
func (u *UnitBuffer) AddEvent(now time.Time, kind string) {
	u.events = append(u.events, Event{At: now, Kind: kind})
	if len(u.events) > u.maxSize {
		u.events = u.events[1:]
	}
}

// AddTag records a context tag once.
func (u *UnitBuffer) AddTag(tag string) {
	for _, t := range u.tags {
		if t == tag {
			return
		}
	}
	u.tags = append(u.tags, tag)
}

// Len returns the number of retained samples.
func (u *UnitBuffer) Len() int { return len(u.activations) }

// Cap returns the buffer capacity.
func (u *UnitBuffer) Cap() int { return u.maxSize }

// Activations returns the retained activation history.
func (u *UnitBuffer) Activations() []float64 { return u.activations }

// Errors returns the retained error history.
func (u *UnitBuffer) Errors() []float64 { return u.errs }

// Eligibility returns the retained eligibility history.
func (u *UnitBuffer) Eligibility() []float64 { return u.eligibility }

// Thresholds returns the retained threshold history.
func (u *UnitBuffer) Thresholds() []float64 { return u.thresholds }

// Events returns the retained timer events.
func (u *UnitBuffer) Events() []Event { return u.events }

// Tags returns the unit's context tags.
func (u *UnitBuffer) Tags() []string { return u.tags }

// UnitSnapshot is the serialized form of a UnitBuffer.
type UnitSnapshot struct {
	ID          string    `json:"id"`
	MaxSize     int       `json:"max_size"`
	Activations []float64 `json:"activations,omitempty"`
	Errors      []float64 `json:"errors,omitempty"`
	Eligibility []float64 `json:"eligibility,omitempty"`
	Thresholds  []float64 `json:"thresholds,omitempty"`
	Events      []Event   `json:"events,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// Snapshot captures the buffer for persistence.
func (u *UnitBuffer) Snapshot() UnitSnapshot {
	return UnitSnapshot{
		ID:          u.id,
		MaxSize:     u.maxSize,
		Activations: u.activations,
		Errors:      u.errs,
		Eligibility: u.eligibility,
		Thresholds:  u.thresholds,
		Events:      u.events,
		Tags:        u.tags,
	}
}

// FromSnapshot rebuilds a buffer from its serialized form.
func FromSnapshot(s UnitSnapshot) *UnitBuffer {
	u := NewUnitBuffer(s.ID, s.MaxSize)
	u.activations = s.Activations
	u.errs = s.Errors
	u.eligibility = s.Eligibility
	u.thresholds = s.Thresholds
	u.events = s.Events
	u.tags = s.Tags
	return u
}
