// Package consolidator distills per-unit telemetry windows into scored
// memory capsules.
package consolidator

import (
	"encoding/json"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/meshmind/engram/internal/model"
	"github.com/meshmind/engram/internal/telemetry"
	"github.com/meshmind/engram/internal/vecmath"
)

const (
	// DefaultInterval is the periodic consolidation trigger.
	DefaultInterval = 60 * time.Second

	// recentCapacity bounds the rolling buffer novelty is computed against.
	// Older context is forgotten so novelty does not decay to zero.
	recentCapacity = 100

	noveltyDivisor = 2.0
)

// Consolidator converts a window of unit telemetry into one capsule at a
// time. It owns its trigger timer; "now" is always supplied by the caller.
type Consolidator struct {
	origin   string
	interval time.Duration
	units    map[string]*telemetry.UnitBuffer
	recent   []*model.Capsule
	last     time.Time
	entropy  *rand.Rand
	logger   *zap.Logger
}

// New creates a consolidator for one producing cluster. A nil logger disables
// logging.
func New(origin string, logger *zap.Logger) *Consolidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consolidator{
		origin:   origin,
		interval: DefaultInterval,
		units:    make(map[string]*telemetry.UnitBuffer),
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger,
	}
}

// Origin returns the producing cluster identifier.
func (c *Consolidator) Origin() string { return c.origin }

// AddUnit registers a unit with a bounded sample buffer and returns it.
// Re-adding an existing unit returns the existing buffer.
func (c *Consolidator) AddUnit(id string, bufferSize int) *telemetry.UnitBuffer {
	if u, ok := c.units[id]; ok {
		return u
	}
	u := telemetry.NewUnitBuffer(id, bufferSize)
	c.units[id] = u
	return u
}

// Unit looks up a registered unit buffer.
func (c *Consolidator) Unit(id string) (*telemetry.UnitBuffer, bool) {
	u, ok := c.units[id]
	return u, ok
}

// Observe appends a sample to a unit's history. Unknown units are ignored.
func (c *Consolidator) Observe(unitID string, activation, errSignal, eligibility, threshold float64) {
	if u, ok := c.units[unitID]; ok {
		u.Observe(activation, errSignal, eligibility, threshold)
	}
}

// ShouldConsolidate reports whether a capsule is due: either the periodic
// interval has elapsed, or any unit buffer reached 75% of capacity. The
// second trigger is backpressure, keeping buffers bounded when the periodic
// trigger is delayed.
func (c *Consolidator) ShouldConsolidate(now time.Time) bool {
	if now.Sub(c.last) > c.interval {
		return true
	}
	for _, u := range c.units {
		if u.Len() >= u.Cap()*3/4 {
			return true
		}
	}
	return false
}

// MaybeConsolidate produces a capsule if one is due, nil otherwise.
func (c *Consolidator) MaybeConsolidate(now time.Time) *model.Capsule {
	if !c.ShouldConsolidate(now) {
		return nil
	}
	return c.Consolidate(now)
}

// Consolidate distills the current telemetry window into a capsule. It never
// fails: with no telemetry the capsule carries a zero context vector and zero
// scores. The new capsule joins the rolling buffer and the window timer
// resets.
func (c *Consolidator) Consolidate(now time.Time) *model.Capsule {
	summary := model.AdaptationSummary{SpecializationMetrics: make(map[string]float64)}
	context := make([]float64, model.ContextDim)
	var tags []string

	for id, u := range c.units {
		if u.Len() == 0 {
			continue
		}
		avgActivation := mean(u.Activations())
		avgError := mean(u.Errors())

		summary.ErrorMagnitude += math.Abs(avgError)
		summary.TimerAdaptations += uint32(len(u.Events()))
		summary.ThresholdAdaptations += thresholdShifts(u.Thresholds())
		summary.SpecializationMetrics[id] = avgActivation

		// Slots 0-2 carry the aggregate features; the rest of the
		// context vector is reserved.
		context[0] += avgActivation
		context[1] += avgError
		context[2] += sum(u.Eligibility())

		tags = append(tags, u.Tags()...)
	}

	vecmath.Normalize(context)
	tags = dedupSorted(tags)

	novelty := c.noveltyOf(context)
	importance := summary.ErrorMagnitude + 0.1*float64(len(tags))

	capsule := &model.Capsule{
		ID:            c.newID(now),
		Timestamp:     now,
		Origin:        c.origin,
		Privacy:       model.ClassifyPrivacy(tags),
		ContextVector: context,
		SemanticTags:  tags,
		Adaptation:    summary,
		Novelty:       novelty,
		Importance:    importance,
		Payload:       c.encodePayload(),
	}

	c.recent = append(c.recent, capsule)
	if len(c.recent) > recentCapacity {
		c.recent = c.recent[1:]
	}
	c.last = now

	c.logger.Info("consolidated telemetry window",
		zap.String("capsule_id", capsule.ID),
		zap.Float64("novelty", novelty),
		zap.Float64("importance", importance),
		zap.String("privacy", string(capsule.Privacy)))
	return capsule
}

// noveltyOf scores a context vector against the rolling buffer: 1.0 for the
// very first capsule, otherwise the minimum Euclidean distance to a retained
// capsule, scaled and capped at 1.0.
func (c *Consolidator) noveltyOf(context []float64) float64 {
	if len(c.recent) == 0 {
		return 1.0
	}
	min := math.MaxFloat64
	for _, prev := range c.recent {
		if d := vecmath.Euclidean(context, prev.ContextVector); d < min {
			min = d
		}
	}
	return math.Min(min/noveltyDivisor, 1.0)
}

// RecentSimilar returns the ids of the n rolling-buffer capsules most similar
// to the probe, by cosine similarity.
func (c *Consolidator) RecentSimilar(probe []float64, n int) []string {
	type scored struct {
		id  string
		sim float64
	}
	candidates := make([]scored, 0, len(c.recent))
	for _, capsule := range c.recent {
		candidates = append(candidates, scored{capsule.ID, vecmath.Cosine(probe, capsule.ContextVector)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sim != candidates[j].sim {
			return candidates[i].sim > candidates[j].sim
		}
		return candidates[i].id < candidates[j].id
	})
	if n > len(candidates) {
		n = len(candidates)
	}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = candidates[i].id
	}
	return ids
}

// Latest returns the most recently produced capsule, or nil.
func (c *Consolidator) Latest() *model.Capsule {
	if len(c.recent) == 0 {
		return nil
	}
	return c.recent[len(c.recent)-1]
}

func (c *Consolidator) newID(now time.Time) string {
	return "cap_" + ulid.MustNew(ulid.Timestamp(now), c.entropy).String()
}

type unitDigest struct {
	Samples        int      `json:"samples"`
	MeanActivation float64  `json:"mean_activation"`
	MeanError      float64  `json:"mean_error"`
	Tags           []string `json:"tags,omitempty"`
}

// encodePayload builds the capsule payload: a JSON digest of the unit states.
// This stands in for compressed, encrypted node state and guarantees neither.
func (c *Consolidator) encodePayload() []byte {
	digests := make(map[string]unitDigest, len(c.units))
	for id, u := range c.units {
		digests[id] = unitDigest{
			Samples:        u.Len(),
			MeanActivation: mean(u.Activations()),
			MeanError:      mean(u.Errors()),
			Tags:           u.Tags(),
		}
	}
	b, _ := json.Marshal(digests)
	return b
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return sum(vals) / float64(len(vals))
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

// thresholdShifts counts how often the threshold moved between consecutive
// samples.
func thresholdShifts(thresholds []float64) uint32 {
	var shifts uint32
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] != thresholds[i-1] {
			shifts++
		}
	}
	return shifts
}

func dedupSorted(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	sort.Strings(tags)
	out := tags[:1]
	for _, t := range tags[1:] {
		if t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return out
}
