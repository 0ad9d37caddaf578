package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseClock      Phase = iota // 0: advance simulated time, dispatch last tick's events
	PhaseThink                   // 1: routine + goal levels, interpolation (parallel)
	PhaseStep                    // 2: occupancy transfer (sequential, shuffled)
	PhasePostUpdate              // 3: carried items, visibility
	PhaseOutput                  // 4: observer snapshots
	PhasePersist                 // 5: periodic store writes
	PhaseCleanup                 // 6: destroy consumed items
)

var phaseNames = [...]string{"clock", "think", "step", "post_update", "output", "persist", "cleanup"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// System is the interface every simulation system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
