package system

import (
	"time"

	coresys "github.com/gridsim/engine/internal/core/system"
	"github.com/gridsim/engine/internal/world"
)

// ClockSystem advances the tick counter and simulated time, then delivers
// last tick's events. Phase 0 (Clock).
type ClockSystem struct {
	world *world.State
}

func NewClockSystem(ws *world.State) *ClockSystem {
	return &ClockSystem{world: ws}
}

func (s *ClockSystem) Phase() coresys.Phase { return coresys.PhaseClock }

func (s *ClockSystem) Update(dt time.Duration) {
	s.world.AdvanceTick()
	s.world.Clock.Tick(dt.Seconds())
	s.world.Bus.SwapBuffers()
	s.world.Bus.DispatchAll()
}
