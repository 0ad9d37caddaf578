package system

import (
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gridsim/engine/internal/core/event"
	coresys "github.com/gridsim/engine/internal/core/system"
	"github.com/gridsim/engine/internal/mind"
	"github.com/gridsim/engine/internal/world"
)

// ThinkSystem runs interpolation, the routine level and the goal level for
// every agent. Agents think in parallel; each one only locks itself and the
// shared registries it touches. Phase 1 (Think).
type ThinkSystem struct {
	world   *world.State
	workers int
}

// NewThinkSystem caps parallelism at workers, or GOMAXPROCS when workers
// is not positive.
func NewThinkSystem(ws *world.State, workers int) *ThinkSystem {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ThinkSystem{world: ws, workers: workers}
}

func (s *ThinkSystem) Phase() coresys.Phase { return coresys.PhaseThink }

func (s *ThinkSystem) Update(dt time.Duration) {
	env := s.world.Env()
	tick := s.world.Tick()
	secs := dt.Seconds()

	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, a := range s.world.AgentList() {
		a := a
		g.Go(func() error {
			a.Sanity.Advance(secs)
			a.Prev = a.Sanity.Think(env, a.Prev, a.Policy)
			if a.Prev == mind.Success || a.Prev == mind.Failure {
				event.Emit(s.world.Bus, event.GoalFinished{Agent: a.ID, Result: a.Prev, Tick: tick})
			}
			return nil
		})
	}
	_ = g.Wait()
}
