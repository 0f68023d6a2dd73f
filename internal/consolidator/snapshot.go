package consolidator

import (
	"time"

	"go.uber.org/zap"

	"github.com/meshmind/engram/internal/model"
	"github.com/meshmind/engram/internal/telemetry"
)

// Snapshot is the serialized consolidator state.
type Snapshot struct {
	Origin            string                   `json:"origin"`
	LastConsolidation time.Time                `json:"last_consolidation"`
	Recent            []*model.Capsule         `json:"recent,omitempty"`
	Units             []telemetry.UnitSnapshot `json:"units,omitempty"`
}

// Snapshot captures the consolidator for persistence.
func (c *Consolidator) Snapshot() *Snapshot {
	s := &Snapshot{
		Origin:            c.origin,
		LastConsolidation: c.last,
		Recent:            c.recent,
	}
	for _, u := range c.units {
		s.Units = append(s.Units, u.Snapshot())
	}
	return s
}

// FromSnapshot rebuilds a consolidator from its serialized state.
func FromSnapshot(s *Snapshot, logger *zap.Logger) *Consolidator {
	c := New(s.Origin, logger)
	c.last = s.LastConsolidation
	c.recent = s.Recent
	for _, us := range s.Units {
		c.units[us.ID] = telemetry.FromSnapshot(us)
	}
	return c
}
