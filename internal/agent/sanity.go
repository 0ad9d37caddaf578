// Package agent runs one agent's cognition: routine, goal interpretation
// and movement, in that order, once per tick.
package agent

import (
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/gridsim/engine/internal/clock"
	"github.com/gridsim/engine/internal/core/ecs"
	"github.com/gridsim/engine/internal/grid"
	"github.com/gridsim/engine/internal/items"
	"github.com/gridsim/engine/internal/mind"
	"github.com/gridsim/engine/internal/routing"
)

// Env is the shared world an agent reads and mutates. Every member guards
// itself.
type Env struct {
	Map          *grid.Map
	Carriables   *items.Carriables
	Interactives *items.Interactives
	Clock        *clock.Clock
}

// Tuning holds the path-repair constants.
type Tuning struct {
	Routing         routing.Tuning
	Detours         []int
	UnstuckPriority int
	CooldownMin     int
	CooldownMax     int
}

func DefaultTuning() Tuning {
	return Tuning{
		Routing:         routing.DefaultTuning(),
		Detours:         []int{6, 8, 16, 32},
		UnstuckPriority: 100,
		CooldownMin:     10,
		CooldownMax:     60,
	}
}

// Routine decides which goals to queue. It runs with the agent locked and
// must only touch the agent through Controls.
type Routine interface {
	Run(c Controls, env Env, prev mind.Result)
}

// Sanity is the per-agent state. All exported methods are safe for
// concurrent use; the agent's own think and step never run concurrently
// with each other.
type Sanity struct {
	mu sync.Mutex

	id      ecs.EntityID
	brains  *mind.Brains
	route   *routing.State
	carrier *items.Carrier
	rng     *rand.Rand
	tuning  Tuning
	log     *zap.Logger

	defects int
	lastErr error
}

func New(id ecs.EntityID, pos grid.Ps, speed float64, tuning Tuning, rng *rand.Rand, log *zap.Logger) *Sanity {
	return &Sanity{
		id:      id,
		brains:  mind.NewBrains(),
		route:   routing.NewState(pos, speed, tuning.Routing, rng),
		carrier: items.NewCarrier(id),
		rng:     rng,
		tuning:  tuning,
		log:     log.With(zap.Stringer("agent", id)),
	}
}

func (s *Sanity) ID() ecs.EntityID { return s.id }

func (s *Sanity) Cell() grid.Ps {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route.Cell()
}

// DrawPos is the interpolated position for rendering.
func (s *Sanity) DrawPos() grid.Vec2 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route.Motion.DrawPos()
}

func (s *Sanity) Moving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route.Moving()
}

func (s *Sanity) CarriedIDs() []ecs.EntityID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carrier.IDs()
}

func (s *Sanity) PathSnapshot() routing.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route.Snapshot()
}

// CurrentGoal returns the goal being worked on.
func (s *Sanity) CurrentGoal() (mind.Goal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brains.Goals.Current()
}

// GoalCount counts the current goal plus the backlog.
func (s *Sanity) GoalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brains.Goals.Len()
}

// Defects returns how many invariant violations this agent hit and the
// latest one.
func (s *Sanity) Defects() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defects, s.lastErr
}

// Do runs fn with the agent locked.
func (s *Sanity) Do(fn func(Controls)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(Controls{s: s})
}

func (s *Sanity) Intend(g mind.Goal) {
	s.Do(func(c Controls) { c.Intend(g) })
}

func (s *Sanity) IntendGoTo(target grid.Ps) {
	s.Do(func(c Controls) { c.IntendGoTo(target) })
}

func (s *Sanity) IntendGoNear(target grid.Ps) {
	s.Do(func(c Controls) { c.IntendGoNear(target) })
}

func (s *Sanity) ResetGoals() {
	s.Do(func(c Controls) { c.ResetGoals() })
}

// UpdateCarried moves held items along with the agent.
func (s *Sanity) UpdateCarried(env Env) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carrier.Any() {
		s.carrier.UpdatePositions(env.Carriables, s.route.Cell(), s.route.Motion.Offset)
	}
}

// SetReliable overrides the current path's repair budget.
func (s *Sanity) SetReliable(n int) {
	s.mu.Lock()
	s.route.SetReliable(n)
	s.mu.Unlock()
}

// Controls is the view of a locked agent handed to routines.
type Controls struct {
	s *Sanity
}

func (c Controls) ID() ecs.EntityID     { return c.s.id }
func (c Controls) Cell() grid.Ps        { return c.s.route.Cell() }
func (c Controls) Rand() *rand.Rand     { return c.s.rng }
func (c Controls) Memory() *mind.Memory { return c.s.brains.Mem }

// Idle reports that no goal is queued.
func (c Controls) Idle() bool { return c.s.brains.Goals.Len() == 0 }

func (c Controls) Current() (mind.Goal, bool) { return c.s.brains.Goals.Current() }

func (c Controls) MaxPriority() int { return c.s.brains.Goals.MaxPriority() }

func (c Controls) Carrying() bool { return c.s.carrier.Any() }

func (c Controls) CarriedIDs() []ecs.EntityID { return c.s.carrier.IDs() }

func (c Controls) Intend(g mind.Goal) { c.s.brains.Goals.Intend(g) }

func (c Controls) IntendGoTo(target grid.Ps) { c.Intend(mind.GoTo(0, target)) }

func (c Controls) IntendGoNear(target grid.Ps) { c.Intend(mind.GoNear(0, target)) }

func (c Controls) IntendWait(cycles, priority int) { c.s.brains.IntendWait(cycles, priority) }

// IntendTimed queues g and marks now as the routine's time reference.
func (c Controls) IntendTimed(priority int, g mind.Goal, now clock.Time) {
	g.Priority = priority
	c.s.brains.SaveTime(now.Total())
	c.Intend(g)
}

// SinceMark returns minutes elapsed since the last time reference.
func (c Controls) SinceMark(now clock.Time) int64 { return now.Elapsed(c.s.brains.TimeRef()) }

// ResetGoals drops every goal and any path being followed.
func (c Controls) ResetGoals() {
	c.s.brains.Goals.ClearAll()
	c.s.route.Stop()
}

func (c Controls) ResetLowerThan(priority int) { c.s.brains.Goals.ClearLowerThan(priority) }
