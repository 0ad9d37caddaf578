package world

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gridsim/engine/internal/agent"
	"github.com/gridsim/engine/internal/clock"
	"github.com/gridsim/engine/internal/comm"
	"github.com/gridsim/engine/internal/config"
	"github.com/gridsim/engine/internal/core/ecs"
	"github.com/gridsim/engine/internal/core/event"
	"github.com/gridsim/engine/internal/grid"
	"github.com/gridsim/engine/internal/items"
	"github.com/gridsim/engine/internal/mind"
	"github.com/gridsim/engine/internal/routine"
)

// Agent is one simulated creature. Everything except Sanity is owned by the
// game loop; Prev is written by the agent's think worker only.
type Agent struct {
	ID        ecs.EntityID
	Name      string
	Archetype string
	Policy    routine.Policy
	Sanity    *agent.Sanity
	Prev      mind.Result
	Comm      comm.Communicator
	Known     map[ecs.EntityID]struct{} // agents in sight as of the last scan
}

// Stats counts outcomes over the whole run. Safe for concurrent use.
type Stats struct {
	Successes atomic.Int64
	Failures  atomic.Int64
	Consumed  atomic.Int64
}

// State holds the shared world and the agent records.
// The agent table is accessed from the game loop goroutine only.
type State struct {
	Map          *grid.Map
	Carriables   *items.Carriables
	Interactives *items.Interactives
	Clock        *clock.Clock
	Sight        *comm.CellSets
	Cells        *CellTable
	Entities     *ecs.World
	Bus          *event.Bus
	Stats        *Stats

	RunID  string
	Seed   int64
	Tuning agent.Tuning

	agents *ecs.PtrComponentStore[Agent]
	byName map[string]*Agent
	rng    *rand.Rand
	tick   uint64
	log    *zap.Logger
}

// NewState wires the registries into the ecs world so destroyed items
// leave every store at once.
func NewState(m *grid.Map, start clock.Time, seed int64, tuning agent.Tuning, log *zap.Logger) *State {
	s := &State{
		Map:          m,
		Carriables:   items.NewCarriables(),
		Interactives: items.NewInteractives(),
		Clock:        clock.NewClock(start),
		Sight:        comm.NewCellSets(m.Width(), m.Height()),
		Cells:        NewCellTable(),
		Entities:     ecs.NewWorld(),
		Bus:          event.NewBus(),
		Stats:        &Stats{},
		RunID:        uuid.NewString(),
		Seed:         seed,
		Tuning:       tuning,
		agents:       ecs.NewPtrComponentStore[Agent](),
		byName:       make(map[string]*Agent),
		rng:          rand.New(rand.NewSource(seed)),
		log:          log.Named("world"),
	}
	reg := s.Entities.Registry()
	reg.Register(s.Carriables)
	reg.Register(s.Interactives)
	reg.Register(s.agents)

	event.Subscribe(s.Bus, func(e event.GoalFinished) {
		if e.Result == mind.Success {
			s.Stats.Successes.Add(1)
		} else {
			s.Stats.Failures.Add(1)
		}
	})
	event.Subscribe(s.Bus, func(event.ItemConsumed) { s.Stats.Consumed.Add(1) })
	return s
}

// TuningFrom maps the movement config onto agent tuning.
func TuningFrom(cfg config.MovementConfig) agent.Tuning {
	t := agent.DefaultTuning()
	t.Routing.ReliableMin = cfg.ReliableMin
	t.Routing.ReliableMax = cfg.ReliableMax
	t.Routing.ReliableCapMin = cfg.ReliableCapMin
	t.Routing.ArriveThreshold = cfg.ArriveThreshold
	t.Detours = append([]int(nil), cfg.Detours...)
	t.UnstuckPriority = cfg.UnstuckPriority
	t.CooldownMin = cfg.CooldownMin
	t.CooldownMax = cfg.CooldownMax
	return t
}

// Env is the view of the shared world handed to agents.
func (s *State) Env() agent.Env {
	return agent.Env{
		Map:          s.Map,
		Carriables:   s.Carriables,
		Interactives: s.Interactives,
		Clock:        s.Clock,
	}
}

// Rand is the game loop's own generator.
func (s *State) Rand() *rand.Rand { return s.rng }

// NewRand derives a reproducible generator for a named object.
func (s *State) NewRand(name string) *rand.Rand {
	h := xxhash.Sum64String(fmt.Sprintf("%d/%s", s.Seed, name))
	return rand.New(rand.NewSource(int64(h)))
}

func (s *State) Tick() uint64 { return s.tick }

// AdvanceTick bumps the tick counter. Called by the clock system.
func (s *State) AdvanceTick() uint64 {
	s.tick++
	return s.tick
}

// AddAgent registers an agent record.
func (s *State) AddAgent(a *Agent) {
	s.agents.Set(a.ID, a)
	s.byName[a.Name] = a
}

// RemoveAgent frees the agent's cell and drops the record.
func (s *State) RemoveAgent(id ecs.EntityID) *Agent {
	a, ok := s.agents.Get(id)
	if !ok {
		return nil
	}
	s.Map.Deoccupy(a.Sanity.Cell())
	delete(s.byName, a.Name)
	s.Entities.MarkForDestruction(id)
	return a
}

func (s *State) Agent(id ecs.EntityID) *Agent {
	a, _ := s.agents.Get(id)
	return a
}

func (s *State) AgentByName(name string) *Agent {
	return s.byName[name]
}

func (s *State) AgentCount() int { return s.agents.Len() }

// AllAgents visits agents in id order.
func (s *State) AllAgents(fn func(*Agent)) {
	s.agents.Sorted(func(_ ecs.EntityID, a *Agent) { fn(a) })
}

// AgentList returns the agents in id order.
func (s *State) AgentList() []*Agent {
	out := make([]*Agent, 0, s.agents.Len())
	s.AllAgents(func(a *Agent) { out = append(out, a) })
	return out
}
