package vectorstore

import (
	"time"

	"go.uber.org/zap"
)

const (
	// retentionAge is how old an entry must be before it is eligible for
	// eviction.
	retentionAge = 30 * 24 * time.Hour

	// minRetainedAccesses keeps any entry with this many total accesses,
	// regardless of age.
	minRetainedAccesses = 3
)

// Evict removes every entry older than 30 days with fewer than 3 total
// accesses. Removal is atomic across the entry map and all indices; the tag
// index is rebuilt from scratch afterwards and the size total recomputed.
// Returns the number of entries removed. Calling it again with no new
// ingestions removes nothing.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-retentionAge)
	var doomed []string
	for id, e := range s.entries {
		if e.Timestamp.Before(cutoff) && e.Access.TotalAccesses < minRetainedAccesses {
			doomed = append(doomed, id)
		}
	}

	for _, id := range doomed {
		delete(s.entries, id)
		delete(s.ledgerRefs, id)
		s.temporal = filterTemporal(s.temporal, id)
		s.quality = filterQuality(s.quality, id)
	}

	// Rebuilding the tag index wholesale is simpler and safer than
	// incremental deletion.
	s.tagIndex = make(map[string][]string)
	total := 0
	for id, e := range s.entries {
		for _, tag := range e.Tags {
			s.tagIndex[tag] = append(s.tagIndex[tag], id)
		}
		total += e.OriginalSize
	}
	s.totalPayloadBytes = total
	s.recomputeAvgDim()
	s.lastEvict = now

	if len(doomed) > 0 {
		s.logger.Info("evicted stale entries",
			zap.Int("removed", len(doomed)),
			zap.Int("remaining", len(s.entries)))
	}
	return len(doomed)
}

// LastEvict returns when eviction last ran.
func (s *Store) LastEvict() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEvict
}
