// Package vectorstore provides the durable, queryable index over memory
// capsules: embedding construction, four retrieval indices, ranked
// similarity search, and staleness eviction.
package vectorstore

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meshmind/engram/internal/model"
	"github.com/meshmind/engram/internal/vecmath"
)

// EmbeddingDim is the fixed dimensionality of entry embeddings.
const EmbeddingDim = 128

// ErrMalformedCapsule marks wire input that failed to decode. Nothing is
// mutated when ingestion returns it.
var ErrMalformedCapsule = errors.New("malformed capsule")

// AccessPattern tracks how an entry has been retrieved.
type AccessPattern struct {
	TotalAccesses   uint32      `json:"total_accesses"`
	RecentAccesses  []time.Time `json:"recent_accesses,omitempty"`
	AccessContexts  []string    `json:"access_contexts,omitempty"`
	RelatedCapsules []string    `json:"related_capsules,omitempty"`
}

// Entry is the store's derived record for one retained capsule. It holds a
// back-reference to the capsule, never the capsule itself.
type Entry struct {
	CapsuleID        string        `json:"capsule_id"`
	Embedding        []float64     `json:"embedding_vector"`
	Metadata         []float64     `json:"metadata_vector"`
	Tags             []string      `json:"context_tags,omitempty"`
	Timestamp        time.Time     `json:"timestamp"`
	Quality          float64       `json:"quality_score"`
	Importance       float64       `json:"importance_score"`
	Access           AccessPattern `json:"access_pattern"`
	CompressionRatio float64       `json:"compression_ratio"`
	OriginalSize     int           `json:"original_size"`
}

type temporalRef struct {
	at time.Time
	id string
}

type qualityRef struct {
	score float64
	id    string
}

// Store indexes capsules for ranked semantic retrieval. An entry exists if
// and only if its capsule id is present in every index; every mutation keeps
// the entry map, the three derived indices, and the running totals in step
// under one lock.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	ledgerRefs map[string]string // capsule_id -> ledger transaction reference
	tagIndex   map[string][]string
	temporal   []temporalRef // ascending by timestamp
	quality    []qualityRef  // descending by quality

	totalPayloadBytes int
	avgDim            int
	lastEvict         time.Time

	jitter *rand.Rand
	logger *zap.Logger
}

// New creates an empty store. A nil logger disables logging.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		entries:    make(map[string]*Entry),
		ledgerRefs: make(map[string]string),
		tagIndex:   make(map[string][]string),
		jitter:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:     logger,
	}
}

// Ingest decodes a capsule from its wire form and indexes it. ledgerRef is
// the ledger transaction that recorded the upload; pass "" for unanchored
// capsules. Returns ErrMalformedCapsule without mutating anything if the
// payload does not decode.
func (s *Store) Ingest(data []byte, ledgerRef string) error {
	c, err := model.DecodeCapsule(data)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedCapsule, err)
	}
	s.IngestCapsule(c, ledgerRef)
	return nil
}

// IngestCapsule indexes an already-decoded capsule. Re-ingesting a capsule id
// replaces the previous entry.
func (s *Store) IngestCapsule(c *model.Capsule, ledgerRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[c.ID]; ok {
		s.removeLocked(c.ID)
	}

	entry := &Entry{
		CapsuleID:        c.ID,
		Embedding:        s.buildEmbedding(c),
		Metadata:         buildMetadata(c),
		Tags:             c.SemanticTags,
		Timestamp:        c.Timestamp,
		Quality:          qualityScore(c),
		Importance:       c.Importance,
		CompressionRatio: compressionRatio(c),
		OriginalSize:     len(c.Payload),
	}

	s.entries[c.ID] = entry
	if ledgerRef != "" {
		s.ledgerRefs[c.ID] = ledgerRef
	}
	for _, tag := range c.SemanticTags {
		s.tagIndex[tag] = append(s.tagIndex[tag], c.ID)
	}

	s.temporal = append(s.temporal, temporalRef{at: c.Timestamp, id: c.ID})
	sortTemporal(s.temporal)

	s.quality = append(s.quality, qualityRef{score: entry.Quality, id: c.ID})
	sortQuality(s.quality)

	s.totalPayloadBytes += len(c.Payload)
	s.recomputeAvgDim()

	s.logger.Debug("indexed capsule",
		zap.String("capsule_id", c.ID),
		zap.Float64("quality", entry.Quality),
		zap.Bool("anchored", ledgerRef != ""))
}

// removeLocked drops one capsule from the entry map and every index. Callers
// hold the lock.
func (s *Store) removeLocked(id string) {
	entry, ok := s.entries[id]
	if !ok {
		return
	}
	delete(s.entries, id)
	delete(s.ledgerRefs, id)
	for _, tag := range entry.Tags {
		kept := s.tagIndex[tag][:0]
		for _, tid := range s.tagIndex[tag] {
			if tid != id {
				kept = append(kept, tid)
			}
		}
		if len(kept) == 0 {
			delete(s.tagIndex, tag)
		} else {
			s.tagIndex[tag] = kept
		}
	}
	s.temporal = filterTemporal(s.temporal, id)
	s.quality = filterQuality(s.quality, id)
	s.totalPayloadBytes -= entry.OriginalSize
}

// sortTemporal keeps the temporal index ascending by timestamp, capsule id
// as the tie-break.
func sortTemporal(refs []temporalRef) {
	sort.Slice(refs, func(i, j int) bool {
		if !refs[i].at.Equal(refs[j].at) {
			return refs[i].at.Before(refs[j].at)
		}
		return refs[i].id < refs[j].id
	})
}

// sortQuality keeps the quality index descending by score, capsule id as the
// tie-break.
func sortQuality(refs []qualityRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].score != refs[j].score {
			return refs[i].score > refs[j].score
		}
		return refs[i].id < refs[j].id
	})
}

func filterTemporal(refs []temporalRef, id string) []temporalRef {
	kept := refs[:0]
	for _, r := range refs {
		if r.id != id {
			kept = append(kept, r)
		}
	}
	return kept
}

func filterQuality(refs []qualityRef, id string) []qualityRef {
	kept := refs[:0]
	for _, r := range refs {
		if r.id != id {
			kept = append(kept, r)
		}
	}
	return kept
}

func (s *Store) recomputeAvgDim() {
	if len(s.entries) == 0 {
		s.avgDim = 0
		return
	}
	total := 0
	for _, e := range s.entries {
		total += len(e.Embedding)
	}
	s.avgDim = total / len(s.entries)
}

// buildEmbedding derives the 128-dim entry embedding: slots 0-15 copy the
// context vector, 16-111 encode up to 8 tags (one hashed scalar plus up to 13
// byte-derived scalars each), 112-120 carry adaptation and temporal features,
// and the tail is filled with small jitter before unit normalization. The
// jitter is privacy padding, not a security control.
func (s *Store) buildEmbedding(c *model.Capsule) []float64 {
	emb := make([]float64, EmbeddingDim)
	copy(emb[:model.ContextDim], c.ContextVector)

	for i, tag := range c.SemanticTags {
		if i >= 8 {
			break
		}
		base := model.ContextDim + i*14
		emb[base] = float64(tagHash(tag)%1000) / 1000.0
		for j := 0; j < len(tag) && j < 13; j++ {
			if idx := base + j + 1; idx < EmbeddingDim {
				emb[idx] = float64(tag[j]) / 255.0
			}
		}
	}

	emb[112] = float64(c.Adaptation.ThresholdAdaptations) / 1000.0
	emb[113] = float64(c.Adaptation.TimerAdaptations) / 1000.0
	emb[114] = math.Abs(c.Adaptation.WeightChanges)
	emb[115] = c.Adaptation.ErrorMagnitude
	emb[116] = c.Adaptation.LearningRateChanges
	emb[117] = c.Novelty
	emb[118] = c.Importance

	// Cyclical time-of-day and day-of-week features.
	secs := c.Timestamp.Hour()*3600 + c.Timestamp.Minute()*60 + c.Timestamp.Second()
	emb[119] = float64(secs) / 86400.0
	emb[120] = float64(c.Timestamp.Weekday()) / 7.0

	for i := 121; i < EmbeddingDim; i++ {
		emb[i] = s.jitter.Float64() * 0.01
	}

	vecmath.Normalize(emb)
	return emb
}

func buildMetadata(c *model.Capsule) []float64 {
	return []float64{
		float64(len(c.Payload)) / 10000.0,
		float64(len(c.SemanticTags)) / 10.0,
		c.Privacy.Ordinal(),
		c.Novelty,
		c.Importance,
	}
}

// qualityScore combines novelty, importance, tag richness, and adaptation
// diversity, penalizing degenerate payload sizes. Always in [0,1].
func qualityScore(c *model.Capsule) float64 {
	q := 0.3*c.Novelty + 0.3*c.Importance
	if len(c.SemanticTags) > 3 {
		q += 0.1
	}
	diversity := 0
	if c.Adaptation.ThresholdAdaptations > 0 {
		diversity++
	}
	if c.Adaptation.TimerAdaptations > 0 {
		diversity++
	}
	if math.Abs(c.Adaptation.WeightChanges) > 0.1 {
		diversity++
	}
	q += 0.1 * float64(diversity)

	if size := len(c.Payload); size < 100 || size > 100000 {
		q *= 0.9
	}
	return math.Max(0, math.Min(1, q))
}

// compressionRatio estimates the payload's compression. Placeholder: the
// payload is not actually compressed, so a fixed 3:1 estimate is assumed.
func compressionRatio(c *model.Capsule) float64 {
	if len(c.Payload) == 0 {
		return 1.0
	}
	return float64(len(c.Payload)) / (float64(len(c.Payload)) * 3.0)
}

func tagHash(tag string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(tag))
	return h.Sum64()
}

// Entry returns a copy of the indexed entry for a capsule id.
func (s *Store) Entry(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of indexed entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
