package vectorstore

import "sort"

// Stats is a read-only snapshot of store-level aggregates.
type Stats struct {
	Entries             int     `json:"entries"`
	TotalMemorySize     int     `json:"total_memory_size"`
	AverageEmbeddingDim int     `json:"average_embedding_dim"`
	Clusters            int     `json:"clusters"`
	TemporalEntries     int     `json:"temporal_entries"`
	VerificationRate    float64 `json:"verification_rate"`
}

// Stats reports entry counts, payload totals, and the fraction of entries
// anchored by a ledger reference.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Entries:             len(s.entries),
		TotalMemorySize:     s.totalPayloadBytes,
		AverageEmbeddingDim: s.avgDim,
		Clusters:            len(s.tagIndex),
		TemporalEntries:     len(s.temporal),
		VerificationRate:    s.verificationRateLocked(),
	}
}

func (s *Store) verificationRateLocked() float64 {
	if len(s.entries) == 0 {
		return 0
	}
	verified := 0
	for id := range s.entries {
		if _, ok := s.ledgerRefs[id]; ok {
			verified++
		}
	}
	return float64(verified) / float64(len(s.entries))
}

// AccessCount pairs a capsule id with its total access count.
type AccessCount struct {
	CapsuleID string `json:"capsule_id"`
	Accesses  uint32 `json:"accesses"`
}

// Trends summarizes usage patterns across the store.
type Trends struct {
	TotalCapsules    int            `json:"total_capsules"`
	TotalMemorySize  int            `json:"total_memory_size"`
	AverageQuality   float64        `json:"average_quality"`
	MostAccessed     []AccessCount  `json:"most_accessed,omitempty"`
	ClusterSizes     map[string]int `json:"cluster_sizes,omitempty"`
	DailyCounts      map[string]int `json:"daily_counts,omitempty"`
	QualityHistogram []int          `json:"quality_histogram"`
	VerificationRate float64        `json:"verification_rate"`
}

// Trends reports the most-accessed capsules, per-tag cluster sizes, per-day
// ingestion counts, and a 10-bucket quality histogram.
func (s *Store) Trends() Trends {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Trends{
		TotalCapsules:    len(s.entries),
		TotalMemorySize:  s.totalPayloadBytes,
		ClusterSizes:     make(map[string]int, len(s.tagIndex)),
		DailyCounts:      make(map[string]int),
		QualityHistogram: make([]int, 10),
		VerificationRate: s.verificationRateLocked(),
	}

	var totalQuality float64
	accessed := make([]AccessCount, 0, len(s.entries))
	for id, e := range s.entries {
		totalQuality += e.Quality
		bin := int(e.Quality * 10)
		if bin > 9 {
			bin = 9
		}
		t.QualityHistogram[bin]++
		if e.Access.TotalAccesses > 0 {
			accessed = append(accessed, AccessCount{CapsuleID: id, Accesses: e.Access.TotalAccesses})
		}
	}
	if len(s.entries) > 0 {
		t.AverageQuality = totalQuality / float64(len(s.entries))
	}

	sort.Slice(accessed, func(i, j int) bool {
		if accessed[i].Accesses != accessed[j].Accesses {
			return accessed[i].Accesses > accessed[j].Accesses
		}
		return accessed[i].CapsuleID < accessed[j].CapsuleID
	})
	if len(accessed) > 5 {
		accessed = accessed[:5]
	}
	t.MostAccessed = accessed

	for tag, ids := range s.tagIndex {
		t.ClusterSizes[tag] = len(ids)
	}
	for _, ref := range s.temporal {
		t.DailyCounts[ref.at.Format("2006-01-02")]++
	}
	return t
}
