package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/gridsim/engine/internal/core/system"
	"github.com/gridsim/engine/internal/grid"
	"github.com/gridsim/engine/internal/items"
	"github.com/gridsim/engine/internal/observe"
	"github.com/gridsim/engine/internal/world"
)

// Publisher receives world snapshots.
type Publisher interface {
	Publish(observe.Snapshot) error
}

// ObserverSystem builds a read-only snapshot every interval ticks and hands
// it to each publisher. Phase 4 (Output).
type ObserverSystem struct {
	world      *world.State
	publishers []Publisher
	interval   int
	ticks      int
	log        *zap.Logger
}

func NewObserverSystem(ws *world.State, interval int, log *zap.Logger, pubs ...Publisher) *ObserverSystem {
	if interval < 1 {
		interval = 1
	}
	return &ObserverSystem{world: ws, publishers: pubs, interval: interval, log: log.Named("observer")}
}

func (s *ObserverSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *ObserverSystem) Update(_ time.Duration) {
	s.ticks++
	if s.ticks < s.interval {
		return
	}
	s.ticks = 0

	snap := BuildSnapshot(s.world)
	for _, p := range s.publishers {
		if err := p.Publish(snap); err != nil {
			s.log.Warn("publish snapshot", zap.Error(err))
		}
	}
}

func cellPair(p grid.Ps) [2]uint32   { return [2]uint32{p.X, p.Y} }
func vecPair(v grid.Vec2) [2]float64 { return [2]float64{v.X, v.Y} }
func gridPs(x, y uint32) grid.Ps     { return grid.Ps{X: x, Y: y} }
func gridVec(x, y float64) grid.Vec2 { return grid.Vec2{X: x, Y: y} }

// BuildSnapshot captures agents, items and objects in id order.
func BuildSnapshot(ws *world.State) observe.Snapshot {
	now := ws.Clock.Now()
	st := ws.Stats
	snap := observe.Snapshot{
		RunID: ws.RunID,
		Tick:  ws.Tick(),
		Day:   now.Days,
		Time:  now.String(),
		Stats: observe.StatsView{
			Successes: st.Successes.Load(),
			Failures:  st.Failures.Load(),
			Consumed:  st.Consumed.Load(),
		},
	}

	ws.AllAgents(func(a *world.Agent) {
		path := a.Sanity.PathSnapshot()
		v := observe.AgentView{
			ID:        uint64(a.ID),
			Name:      a.Name,
			Archetype: a.Archetype,
			Routine:   a.Policy.Kind.String(),
			Cell:      cellPair(a.Sanity.Cell()),
			Draw:      vecPair(a.Sanity.DrawPos()),
			Stuck:     path.Stuck,
			Visible:   len(a.Known),
		}
		if path.HasTarget {
			t := cellPair(path.Target)
			v.Target = &t
		}
		for _, p := range path.Steps {
			v.Path = append(v.Path, cellPair(p))
		}
		if g, ok := a.Sanity.CurrentGoal(); ok {
			v.Goal = g.String()
		}
		for _, id := range a.Sanity.CarriedIDs() {
			v.Carried = append(v.Carried, uint64(id))
		}
		v.Defects, _ = a.Sanity.Defects()
		snap.Agents = append(snap.Agents, v)
	})

	ws.Carriables.Each(func(c items.Carriable) {
		snap.Items = append(snap.Items, observe.ItemView{
			ID: uint64(c.ID), Type: c.Type, Draw: vecPair(c.DrawPos()), Taken: !c.TakenBy.IsZero(),
		})
	})
	ws.Interactives.Each(func(o items.Interactive) {
		snap.Objects = append(snap.Objects, observe.ObjectView{
			ID: uint64(o.ID), Type: o.Type, Cell: cellPair(o.Pos), UsedBy: uint64(o.UsedBy),
		})
	})
	return snap
}
