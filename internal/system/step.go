package system

import (
	"time"

	coresys "github.com/gridsim/engine/internal/core/system"
	"github.com/gridsim/engine/internal/world"
)

// StepSystem starts physical steps and transfers occupancy. It runs
// sequentially in a fresh random order each tick so no agent always wins a
// contested cell. Phase 2 (Step).
type StepSystem struct {
	world *world.State
}

func NewStepSystem(ws *world.State) *StepSystem {
	return &StepSystem{world: ws}
}

func (s *StepSystem) Phase() coresys.Phase { return coresys.PhaseStep }

func (s *StepSystem) Update(_ time.Duration) {
	env := s.world.Env()
	agents := s.world.AgentList()
	rng := s.world.Rand()
	rng.Shuffle(len(agents), func(i, j int) { agents[i], agents[j] = agents[j], agents[i] })
	for _, a := range agents {
		a.Sanity.Step(env)
	}
}
