package agent

import (
	"errors"

	"go.uber.org/zap"

	"github.com/gridsim/engine/internal/items"
	"github.com/gridsim/engine/internal/mind"
)

// Think runs the routine level with the previous tick's result, then the
// goal level unless the agent is mid-step. The returned result feeds the
// next tick's routine level.
func (s *Sanity) Think(env Env, prev mind.Result, r Routine) mind.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r != nil {
		r.Run(Controls{s: s}, env, prev)
	}
	if s.route.Moving() {
		return mind.None
	}
	return s.thinkGoal(env)
}

// Advance interpolates the step in progress and reports arrival.
func (s *Sanity) Advance(dt float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route.Motion.Advance(dt)
}

func (s *Sanity) thinkGoal(env Env) mind.Result {
	g, ok := s.brains.Goals.Current()
	if !ok {
		return mind.Undefined
	}
	cell := s.route.Cell()
	switch g.Kind {
	case mind.MoveNear:
		return s.processDestination(env, g.Target, false)
	case mind.MoveExact:
		return s.processDestination(env, g.Target, true)
	case mind.Wait:
		if s.brains.CountCycles() {
			s.brains.Finish(true)
			return mind.Success
		}
		return mind.None
	case mind.PickType, mind.PickAny:
		_, err := s.carrier.PickUp(env.Carriables, cell, g.ItemType)
		return s.finishWith(g, err)
	case mind.ConsumeType, mind.ConsumeAny:
		_, err := env.Carriables.ConsumeAt(cell, g.ItemType)
		return s.finishWith(g, err)
	case mind.DropType, mind.DropAny:
		_, err := s.carrier.Drop(env.Carriables, cell, g.ItemType)
		return s.finishWith(g, err)
	case mind.ConsumeCarriedType, mind.ConsumeCarriedAny:
		_, err := s.carrier.ConsumeCarried(env.Carriables, g.ItemType)
		return s.finishWith(g, err)
	case mind.UseMinutes:
		return s.useMinutes(env, g)
	}
	s.brains.Finish(false)
	return mind.Failure
}

func (s *Sanity) finishWith(g mind.Goal, err error) mind.Result {
	if err != nil {
		s.log.Debug("goal failed", zap.Stringer("goal", g), zap.Error(err))
		s.brains.Finish(false)
		return mind.Failure
	}
	s.brains.Finish(true)
	return mind.Success
}

// useMinutes claims the interactive object at the agent's cell on first
// entry, then releases it once the requested simulated minutes passed.
func (s *Sanity) useMinutes(env Env, g mind.Goal) mind.Result {
	cell := s.route.Cell()
	now := env.Clock.Now().Total()

	if obj, ok := env.Interactives.FindAt(cell); ok && obj.UsedBy == s.id {
		if now-s.brains.TimeRef() < int64(g.Minutes) {
			return mind.None
		}
		return s.finishWith(g, env.Interactives.Release(cell, s.id))
	}

	if _, err := env.Interactives.Claim(cell, s.id); err != nil {
		if errors.Is(err, items.ErrClaimed) {
			s.log.Warn("interactive already in use", zap.Stringer("cell", cell), zap.Error(err))
		}
		return s.finishWith(g, err)
	}
	s.brains.SaveTime(now)
	return mind.None
}
