// Package routing tracks one agent's movement: the path it follows, the
// budget of steps it trusts before replanning, and the physical step.
package routing

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/gridsim/engine/internal/grid"
	"github.com/gridsim/engine/internal/pathfind"
)

var (
	ErrNotAdjacent = grid.ErrNotAdjacent
	ErrEmptyPath   = errors.New("empty path")
	ErrSameCell    = errors.New("route to own cell")
	ErrPathEnd     = errors.New("path does not end at the replaced step")
)

// Tuning holds the movement constants.
type Tuning struct {
	ReliableMin     int
	ReliableMax     int
	ReliableCapMin  int
	ArriveThreshold float64
}

func DefaultTuning() Tuning {
	return Tuning{ReliableMin: 4, ReliableMax: 80, ReliableCapMin: 20, ArriveThreshold: 0.01}
}

// Intention is the path being followed and where it leads.
type Intention struct {
	Target    grid.Ps
	HasTarget bool
	Steps     []grid.Ps
	Stuck     bool
}

// Snapshot is a read-only copy of the routing state for overlays.
type Snapshot struct {
	Target    grid.Ps   `json:"target"`
	HasTarget bool      `json:"has_target"`
	Steps     []grid.Ps `json:"steps"`
	Reliable  int       `json:"reliable"`
	Stuck     bool      `json:"stuck"`
}

// State is owned by a single agent and is not safe for concurrent use.
type State struct {
	Motion Motion

	path     Intention
	reliable int
	reached  bool
	tuning   Tuning
	rng      *rand.Rand
}

func NewState(pos grid.Ps, speed float64, tuning Tuning, rng *rand.Rand) *State {
	return &State{
		Motion: NewMotion(pos, speed, tuning.ArriveThreshold),
		tuning: tuning,
		rng:    rng,
	}
}

func (s *State) Cell() grid.Ps { return s.Motion.Pos }

func (s *State) Moving() bool { return s.Motion.Moving() }

func (s *State) Reached() bool { return s.reached }

func (s *State) Reliable() int { return s.reliable }

// SetReliable overrides the step budget.
func (s *State) SetReliable(n int) { s.reliable = n }

func (s *State) Target() (grid.Ps, bool) { return s.path.Target, s.path.HasTarget }

func (s *State) Steps() []grid.Ps {
	out := make([]grid.Ps, len(s.path.Steps))
	copy(out, s.path.Steps)
	return out
}

func (s *State) Stuck() bool   { return s.path.Stuck }
func (s *State) MarkStuck()    { s.path.Stuck = true }
func (s *State) ClearStuck()   { s.path.Stuck = false }
func (s *State) HasPath() bool { return s.path.HasTarget }

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Target:    s.path.Target,
		HasTarget: s.path.HasTarget,
		Steps:     s.Steps(),
		Reliable:  s.reliable,
		Stuck:     s.path.Stuck,
	}
}

// checkFrom verifies that steps form a contiguous walk starting next to from.
func checkFrom(from grid.Ps, steps []grid.Ps) error {
	if len(steps) == 0 {
		return nil
	}
	if from.Manhattan(steps[0]) != 1 {
		return fmt.Errorf("first step %v from %v: %w", steps[0], from, ErrNotAdjacent)
	}
	if idx := pathfind.Validate(steps); idx >= 0 {
		return fmt.Errorf("step %d %v after %v: %w", idx, steps[idx], steps[idx-1], ErrNotAdjacent)
	}
	return nil
}

// SetPath replaces the whole path. steps excludes the current cell.
func (s *State) SetPath(steps []grid.Ps, target grid.Ps) error {
	if err := checkFrom(s.Motion.Pos, steps); err != nil {
		return err
	}
	s.path = Intention{Target: target, HasTarget: true, Steps: append([]grid.Ps(nil), steps...)}
	s.reliable = s.reliableSteps(len(steps))
	s.reached = false
	return nil
}

// Peek returns the next queued step.
func (s *State) Peek() (grid.Ps, bool) {
	if !s.path.HasTarget || len(s.path.Steps) == 0 {
		return grid.Ps{}, false
	}
	return s.path.Steps[0], true
}

// PeekAhead returns the n-th queued step (1-based) and n, or the final step
// and the path length when the path is not longer than n.
func (s *State) PeekAhead(n int) (grid.Ps, int, bool) {
	steps := s.path.Steps
	if n < 1 || len(steps) == 0 {
		return grid.Ps{}, 0, false
	}
	if len(steps) > n {
		return steps[n-1], n, true
	}
	return steps[len(steps)-1], len(steps), true
}

// SplicePrefix replaces the first removeN steps with path. path must lead
// from the current cell to the last removed step.
func (s *State) SplicePrefix(path []grid.Ps, removeN int) error {
	if len(path) == 0 {
		return ErrEmptyPath
	}
	if removeN < 1 || removeN > len(s.path.Steps) {
		return fmt.Errorf("replace %d of %d steps: %w", removeN, len(s.path.Steps), ErrEmptyPath)
	}
	if end, want := path[len(path)-1], s.path.Steps[removeN-1]; end != want {
		return fmt.Errorf("ends at %v, want %v: %w", end, want, ErrPathEnd)
	}
	if err := checkFrom(s.Motion.Pos, path); err != nil {
		return fmt.Errorf("detour: %w", err)
	}
	rest := s.path.Steps[removeN:]
	spliced := make([]grid.Ps, 0, len(path)+len(rest))
	spliced = append(spliced, path...)
	spliced = append(spliced, rest...)
	if err := checkFrom(s.Motion.Pos, spliced); err != nil {
		return fmt.Errorf("spliced path: %w", err)
	}
	s.path.Steps = spliced
	s.reached = false
	s.reliable = s.reliableSteps(len(spliced))
	return nil
}

// StepNext pops the next step and starts moving into it. It returns false
// when nothing is queued.
func (s *State) StepNext() (grid.Direction, bool, error) {
	next, ok := s.Peek()
	if !ok {
		return 0, false, nil
	}
	s.path.Steps = s.path.Steps[1:]
	s.reached = false
	dir, err := grid.DirectionBetween(s.Motion.Pos, next)
	if err != nil {
		return 0, false, err
	}
	if err := s.Motion.Start(dir); err != nil {
		return 0, false, err
	}
	s.path.Stuck = false
	s.reliable--
	return dir, true, nil
}

// StopIfReached clears the path once the agent stands on its target.
func (s *State) StopIfReached() bool {
	if s.path.HasTarget && s.Motion.Pos != s.path.Target {
		return false
	}
	s.Stop()
	s.reached = true
	s.reliable = 0
	return true
}

func (s *State) Stop() {
	s.path = Intention{}
	s.reached = false
}

// NoReliableStepsLeft reports that local repair is no longer trusted.
func (s *State) NoReliableStepsLeft() bool {
	return len(s.path.Steps) < 3 || s.reliable <= 0
}

func (s *State) reliableSteps(n int) int {
	t := s.tuning
	if n < t.ReliableMin {
		return n
	}
	half := int(math.Floor(float64(n) / 2 * (1 + s.rng.Float64())))
	capHi := t.ReliableCapMin
	if t.ReliableMax > t.ReliableCapMin {
		capHi += s.rng.Intn(t.ReliableMax - t.ReliableCapMin)
	}
	r := min(half, capHi)
	return max(t.ReliableMin, min(r, t.ReliableMax))
}
