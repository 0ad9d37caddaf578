// Package comm answers which agents can see each other.
package comm

import (
	"math"
	"sort"
	"sync"

	"github.com/gridsim/engine/internal/core/ecs"
	"github.com/gridsim/engine/internal/grid"
)

// DefaultVisionLimit is the Manhattan radius an agent can see.
const DefaultVisionLimit = 10

// CellSets records which agents stand on each cell. It is rebuilt once per
// tick and read concurrently afterwards.
type CellSets struct {
	mu     sync.RWMutex
	width  int32
	height int32
	cells  []map[ecs.EntityID]struct{}
}

func NewCellSets(width, height int32) *CellSets {
	return &CellSets{
		width:  width,
		height: height,
		cells:  make([]map[ecs.EntityID]struct{}, int(width)*int(height)),
	}
}

func (s *CellSets) index(p grid.Ps) (int, bool) {
	if int32(p.X) >= s.width || int32(p.Y) >= s.height {
		return 0, false
	}
	return int(p.Y)*int(s.width) + int(p.X), true
}

// Reset empties every cell.
func (s *CellSets) Reset() {
	s.mu.Lock()
	for i := range s.cells {
		s.cells[i] = nil
	}
	s.mu.Unlock()
}

func (s *CellSets) Mark(p grid.Ps, id ecs.EntityID) {
	idx, ok := s.index(p)
	if !ok {
		return
	}
	s.mu.Lock()
	if s.cells[idx] == nil {
		s.cells[idx] = make(map[ecs.EntityID]struct{}, 1)
	}
	s.cells[idx][id] = struct{}{}
	s.mu.Unlock()
}

// At returns the ids on p in ascending order.
func (s *CellSets) At(p grid.Ps) []ecs.EntityID {
	idx, ok := s.index(p)
	if !ok {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.cells[idx])
}

// Within returns every (cell, id) pair at Manhattan distance <= limit.
func (s *CellSets) Within(from grid.Ps, limit int) []Sighting {
	minX := max(int(from.X)-limit, 0)
	minY := max(int(from.Y)-limit, 0)
	maxX := min(int(from.X)+limit, int(s.width)-1)
	maxY := min(int(from.Y)+limit, int(s.height)-1)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Sighting
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := grid.Ps{X: uint32(x), Y: uint32(y)}
			if p.Manhattan(from) > limit {
				continue
			}
			for _, id := range sortedIDs(s.cells[y*int(s.width)+x]) {
				out = append(out, Sighting{Pos: p, ID: id})
			}
		}
	}
	return out
}

func sortedIDs(set map[ecs.EntityID]struct{}) []ecs.EntityID {
	if len(set) == 0 {
		return nil
	}
	out := make([]ecs.EntityID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Sighting is an agent seen on a cell.
type Sighting struct {
	Pos grid.Ps
	ID  ecs.EntityID
}

// LineOfSight casts a ray over the grid. Cells closer than 2 are always
// visible. The ray stops at impassable or out-of-bounds cells; occupancy
// does not block it.
func LineOfSight(m *grid.Map, from, to grid.Ps) bool {
	next := from
	if next.Manhattan(to) < 2 {
		return true
	}
	for {
		d := to.Sub(next)
		n := grid.Vec2{X: float64(d.X), Y: float64(d.Y)}.Normalized()
		step := grid.PsSigned{}
		if math.Abs(n.X) > 0.5 {
			step.X = int32(math.Copysign(1, n.X))
		}
		if math.Abs(n.Y) > 0.5 {
			step.Y = int32(math.Copysign(1, n.Y))
		}
		p, err := next.Add(step)
		if err != nil {
			return false
		}
		next = p
		if next.Manhattan(to) < 2 {
			return true
		}
		if !m.IsPassable(next, false) {
			return false
		}
	}
}

// Communicator is an agent's vision.
type Communicator struct {
	Pos   grid.Ps
	Limit int
}

func NewCommunicator(pos grid.Ps) Communicator {
	return Communicator{Pos: pos, Limit: DefaultVisionLimit}
}

// Visible lists other agents within the vision limit and in line of sight.
func (c Communicator) Visible(m *grid.Map, sets *CellSets, self ecs.EntityID) []ecs.EntityID {
	var out []ecs.EntityID
	for _, s := range sets.Within(c.Pos, c.Limit) {
		if s.ID == self {
			continue
		}
		if LineOfSight(m, c.Pos, s.Pos) {
			out = append(out, s.ID)
		}
	}
	return out
}
