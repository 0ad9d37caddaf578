package system

import (
	"time"

	coresys "github.com/gridsim/engine/internal/core/system"
	"github.com/gridsim/engine/internal/world"
)

// CarrierSystem moves held items along with their holders.
// Phase 3 (PostUpdate).
type CarrierSystem struct {
	world *world.State
}

func NewCarrierSystem(ws *world.State) *CarrierSystem {
	return &CarrierSystem{world: ws}
}

func (s *CarrierSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *CarrierSystem) Update(_ time.Duration) {
	env := s.world.Env()
	s.world.AllAgents(func(a *world.Agent) {
		a.Sanity.UpdateCarried(env)
	})
}
