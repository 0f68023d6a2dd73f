package vectorstore

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/meshmind/engram/internal/vecmath"
)

// Algorithm selects the similarity function for a search.
type Algorithm string

const (
	// AlgoCosine is plain cosine similarity (the default).
	AlgoCosine Algorithm = "cosine"
	// AlgoEuclidean is inverse Euclidean distance, 1/(1+d).
	AlgoEuclidean Algorithm = "euclidean"
	// AlgoDot is the raw dot product.
	AlgoDot Algorithm = "dot"
	// AlgoHybrid blends cosine and inverse Euclidean 0.7/0.3.
	AlgoHybrid Algorithm = "hybrid"
)

// ValidAlgorithms are the allowed similarity functions.
var ValidAlgorithms = map[Algorithm]bool{
	AlgoCosine:    true,
	AlgoEuclidean: true,
	AlgoDot:       true,
	AlgoHybrid:    true,
}

// DefaultLimit caps results when a query does not.
const DefaultLimit = 10

// minTagOverlap is the context-match floor below which a tag-filtered search
// skips an entry entirely.
const minTagOverlap = 0.3

// Query describes one similarity search.
type Query struct {
	Vector       []float64  `json:"query_vector"`
	Tags         []string   `json:"context_filter,omitempty"`
	From         *time.Time `json:"from,omitempty"`
	To           *time.Time `json:"to,omitempty"`
	QualityFloor float64    `json:"quality_threshold"`
	Limit        int        `json:"max_results"`
	Algorithm    Algorithm  `json:"algorithm,omitempty"`
}

// Result is one ranked search hit.
type Result struct {
	CapsuleID      string  `json:"capsule_id"`
	Similarity     float64 `json:"similarity_score"`
	Quality        float64 `json:"quality_score"`
	Relevance      float64 `json:"relevance_score"`
	ContextMatch   float64 `json:"context_match"`
	LedgerVerified bool    `json:"ledger_verified"`
}

// Search scans all entries, filters by tags, time range, and quality floor,
// ranks survivors by combined relevance, and truncates to the query limit.
// Access patterns of the returned entries are updated only after scoring
// completes, so scoring never observes its own side effects.
func (s *Store) Search(q Query, now time.Time) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var results []Result
	for id, e := range s.entries {
		cm := 1.0
		if len(q.Tags) > 0 {
			cm = contextMatch(q.Tags, e.Tags)
			if cm < minTagOverlap {
				continue
			}
		}
		if q.From != nil && e.Timestamp.Before(*q.From) {
			continue
		}
		if q.To != nil && e.Timestamp.After(*q.To) {
			continue
		}
		if e.Quality < q.QualityFloor {
			continue
		}

		sim := similarity(q.Algorithm, q.Vector, e.Embedding)
		recency := math.Exp(-now.Sub(e.Timestamp).Hours() / 168.0)
		relevance := 0.5*sim + 0.3*e.Quality + 0.1*cm + 0.1*recency
		_, verified := s.ledgerRefs[id]

		results = append(results, Result{
			CapsuleID:      id,
			Similarity:     sim,
			Quality:        e.Quality,
			Relevance:      relevance,
			ContextMatch:   cm,
			LedgerVerified: verified,
		})
	}

	// Descending relevance, capsule id as the deterministic tie-break.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return results[i].CapsuleID < results[j].CapsuleID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	for _, r := range results {
		e := s.entries[r.CapsuleID]
		e.Access.TotalAccesses++
		e.Access.RecentAccesses = append(e.Access.RecentAccesses, now)
		e.Access.RecentAccesses = pruneAccesses(e.Access.RecentAccesses, now)
	}

	s.logger.Debug("search completed", zap.Int("results", len(results)))
	return results
}

// contextMatch is the fraction of filter tags present on the entry.
func contextMatch(filter, entryTags []string) float64 {
	if len(filter) == 0 {
		return 1.0
	}
	matches := 0
	for _, want := range filter {
		for _, have := range entryTags {
			if want == have {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(filter))
}

func similarity(algo Algorithm, probe, embedding []float64) float64 {
	switch algo {
	case AlgoEuclidean:
		return 1.0 / (1.0 + vecmath.Euclidean(probe, embedding))
	case AlgoDot:
		return vecmath.Dot(probe, embedding)
	case AlgoHybrid:
		cos := vecmath.Cosine(probe, embedding)
		inv := 1.0 / (1.0 + vecmath.Euclidean(probe, embedding))
		return 0.7*cos + 0.3*inv
	default:
		return vecmath.Cosine(probe, embedding)
	}
}

// pruneAccesses keeps only access timestamps within the trailing 24 hours.
func pruneAccesses(accesses []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-24 * time.Hour)
	kept := accesses[:0]
	for _, at := range accesses {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	return kept
}
