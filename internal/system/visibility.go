package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/gridsim/engine/internal/core/ecs"
	coresys "github.com/gridsim/engine/internal/core/system"
	"github.com/gridsim/engine/internal/world"
)

// VisibilitySystem rebuilds the per-cell sight sets and refreshes who each
// agent can see, diffing against the previous scan.
// Phase 3 (PostUpdate), every interval ticks.
type VisibilitySystem struct {
	world    *world.State
	limit    int
	interval int
	ticks    int
	log      *zap.Logger
}

func NewVisibilitySystem(ws *world.State, limit, interval int, log *zap.Logger) *VisibilitySystem {
	if interval < 1 {
		interval = 1
	}
	return &VisibilitySystem{world: ws, limit: limit, interval: interval, log: log.Named("visibility")}
}

func (s *VisibilitySystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *VisibilitySystem) Update(_ time.Duration) {
	s.ticks++
	if s.ticks < s.interval {
		return
	}
	s.ticks = 0

	agents := s.world.AgentList()
	sight := s.world.Sight
	sight.Reset()
	for _, a := range agents {
		a.Comm.Pos = a.Sanity.Cell()
		a.Comm.Limit = s.limit
		sight.Mark(a.Comm.Pos, a.ID)
	}
	for _, a := range agents {
		s.updateAgent(a)
	}
}

func (s *VisibilitySystem) updateAgent(a *world.Agent) {
	visible := a.Comm.Visible(s.world.Map, s.world.Sight, a.ID)
	current := make(map[ecs.EntityID]struct{}, len(visible))
	for _, id := range visible {
		current[id] = struct{}{}
		if _, known := a.Known[id]; !known {
			s.log.Debug("agent in sight", zap.String("agent", a.Name), zap.Stringer("other", id))
		}
	}
	for id := range a.Known {
		if _, still := current[id]; !still {
			s.log.Debug("agent out of sight", zap.String("agent", a.Name), zap.Stringer("other", id))
		}
	}
	a.Known = current
}
