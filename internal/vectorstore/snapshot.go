package vectorstore

import (
	"time"

	"go.uber.org/zap"
)

// Snapshot is the serialized store state. The derived indices are not
// persisted; restore rebuilds them from the entries.
type Snapshot struct {
	Entries   []*Entry          `json:"entries,omitempty"`
	Refs      map[string]string `json:"refs,omitempty"`
	LastEvict time.Time         `json:"last_evict"`
}

// Snapshot captures the store for persistence.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sn := &Snapshot{
		Refs:      make(map[string]string, len(s.ledgerRefs)),
		LastEvict: s.lastEvict,
	}
	for _, e := range s.entries {
		sn.Entries = append(sn.Entries, e)
	}
	for id, ref := range s.ledgerRefs {
		sn.Refs[id] = ref
	}
	return sn
}

// FromSnapshot rebuilds a store, reconstructing the tag, temporal, and
// quality indices and the running totals from the persisted entries.
func FromSnapshot(sn *Snapshot, logger *zap.Logger) *Store {
	s := New(logger)
	s.lastEvict = sn.LastEvict
	for _, e := range sn.Entries {
		s.entries[e.CapsuleID] = e
		for _, tag := range e.Tags {
			s.tagIndex[tag] = append(s.tagIndex[tag], e.CapsuleID)
		}
		s.temporal = append(s.temporal, temporalRef{at: e.Timestamp, id: e.CapsuleID})
		s.quality = append(s.quality, qualityRef{score: e.Quality, id: e.CapsuleID})
		s.totalPayloadBytes += e.OriginalSize
	}
	sortTemporal(s.temporal)
	sortQuality(s.quality)
	for id, ref := range sn.Refs {
		if _, ok := s.entries[id]; ok {
			s.ledgerRefs[id] = ref
		}
	}
	s.recomputeAvgDim()
	return s
}
