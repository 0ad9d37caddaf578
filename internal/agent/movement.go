package agent

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gridsim/engine/internal/grid"
	"github.com/gridsim/engine/internal/mind"
	"github.com/gridsim/engine/internal/pathfind"
	"github.com/gridsim/engine/internal/routing"
)

// processDestination interprets a move goal. Exact goals must end on the
// target, near goals within distance 1 of it.
func (s *Sanity) processDestination(env Env, target grid.Ps, exact bool) mind.Result {
	required := 1
	if exact {
		required = 0
	}
	cell := s.route.Cell()

	remembered, has := s.route.Target()
	if !has || target.Manhattan(remembered) > required {
		var (
			path    []grid.Ps
			reached = target
			err     error
		)
		if exact {
			path, err = pathfind.Find(env.Map, s.rng, cell, target, true)
		} else {
			path, reached, err = pathfind.FindNear(env.Map, s.rng, cell, target)
		}
		if err != nil {
			s.log.Debug("destination unreachable",
				zap.Stringer("from", cell), zap.Stringer("to", target), zap.Error(err))
			s.brains.Finish(false)
			s.route.Stop()
			return mind.Failure
		}
		if err := s.route.SetPath(path, reached); err != nil {
			return s.defect("set path", err, zap.Stringer("from", cell), zap.Stringer("to", target))
		}
	}

	if target.Manhattan(cell) <= required || s.route.Reached() {
		s.brains.Finish(true)
		return mind.Success
	}

	if s.nextStepValid(env.Map) {
		return mind.None
	}
	s.route.MarkStuck()

	var (
		repaired bool
		err      error
	)
	if s.route.NoReliableStepsLeft() {
		repaired, err = s.forceReplan(env.Map)
	} else {
		repaired, err = s.tryDetours(env.Map)
	}
	if err != nil {
		return s.defect("repair path", err, zap.Stringer("from", cell), zap.Stringer("to", target))
	}
	if !repaired {
		s.route.Stop()
		cycles := s.tuning.CooldownMin
		if span := s.tuning.CooldownMax - s.tuning.CooldownMin; span > 0 {
			cycles += s.rng.Intn(span)
		}
		s.brains.IntendWait(cycles, s.tuning.UnstuckPriority)
	}
	return mind.None
}

// nextStepValid is false when the repair budget ran out, which forces a
// replan even if the next cell is free.
func (s *Sanity) nextStepValid(m *grid.Map) bool {
	if s.route.NoReliableStepsLeft() {
		return false
	}
	next, ok := s.route.Peek()
	if !ok {
		return true
	}
	return m.IsPassable(next, true)
}

// forceReplan routes from scratch to the remembered target.
func (s *Sanity) forceReplan(m *grid.Map) (bool, error) {
	target, ok := s.route.Target()
	if !ok {
		return false, nil
	}
	cell := s.route.Cell()
	path, err := pathfind.Find(m, s.rng, cell, target, true)
	if err != nil {
		return false, nil
	}
	if len(path) == 0 {
		return false, fmt.Errorf("replan to %v: %w", target, routing.ErrEmptyPath)
	}
	if err := s.route.SetPath(path, target); err != nil {
		return false, err
	}
	return true, nil
}

// tryDetours replaces an ever longer prefix of the path with a fresh route,
// stopping at the first lookahead that can be reached.
func (s *Sanity) tryDetours(m *grid.Map) (bool, error) {
	cell := s.route.Cell()
	for _, ahead := range s.tuning.Detours {
		rejoin, idx, ok := s.route.PeekAhead(ahead)
		if !ok {
			return false, nil
		}
		if rejoin == cell {
			return false, fmt.Errorf("detour %d to %v: %w", ahead, rejoin, routing.ErrSameCell)
		}
		path, err := pathfind.Find(m, s.rng, cell, rejoin, true)
		if errors.Is(err, pathfind.ErrNoPath) {
			continue
		}
		if err != nil {
			return false, err
		}
		if len(path) == 0 {
			return false, fmt.Errorf("detour %d to %v: %w", ahead, rejoin, routing.ErrEmptyPath)
		}
		if err := s.route.SplicePrefix(path, idx); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Step runs the movement level: when not mid-step, it starts the next
// queued step and moves occupancy with it. A next cell taken since the
// think phase leaves the agent in place, marked stuck.
func (s *Sanity) Step(env Env) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.route.Moving() {
		return false
	}
	next, ok := s.route.Peek()
	if !ok {
		return false
	}
	if !env.Map.IsPassable(next, true) {
		s.route.MarkStuck()
		return false
	}
	prev := s.route.Cell()
	if _, _, err := s.route.StepNext(); err != nil {
		s.defect("step", err, zap.Stringer("from", prev), zap.Stringer("to", next))
		return false
	}
	env.Map.MoveOccupy(prev, s.route.Cell())
	s.route.StopIfReached()
	return true
}

// defect logs an invariant violation, stops movement and fails the
// current goal.
func (s *Sanity) defect(op string, err error, fields ...zap.Field) mind.Result {
	d := &Defect{Op: op, Err: err}
	s.defects++
	s.lastErr = d
	fields = append(fields, zap.Error(d), zap.Any("path", s.route.Steps()))
	s.log.Error("agent invariant violated", fields...)
	s.route.Stop()
	if _, ok := s.brains.Goals.Current(); ok {
		s.brains.Finish(false)
	}
	return mind.Failure
}
