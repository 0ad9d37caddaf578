package grid

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

// ErrOutOfBounds is returned for cells outside the map.
var ErrOutOfBounds = errors.New("cell out of bounds")

// Cell holds the static passability flag from map data and the dynamic
// occupancy flag set while an agent stands on it.
type Cell struct {
	Passable bool
	Occupied bool
}

// Free reports whether the cell can be entered.
func (c Cell) Free(avoidOccupied bool) bool {
	if avoidOccupied {
		return c.Passable && !c.Occupied
	}
	return c.Passable
}

// Map is the shared tile grid. The lock is held for a single lookup or
// mutation only; nothing calls out while holding it.
type Map struct {
	mu     sync.RWMutex
	name   string
	cells  []Cell // flat array [y * width + x]
	width  int32
	height int32
}

// NewMap creates a map from a passability mask laid out as [y*width+x].
func NewMap(name string, width, height int32, passable []bool) (*Map, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("map %s: invalid size %dx%d", name, width, height)
	}
	if len(passable) != int(width)*int(height) {
		return nil, fmt.Errorf("map %s: got %d cells, want %d", name, len(passable), width*height)
	}
	cells := make([]Cell, len(passable))
	for i, p := range passable {
		cells[i].Passable = p
	}
	return &Map{name: name, cells: cells, width: width, height: height}, nil
}

// NewOpenMap creates a fully passable map.
func NewOpenMap(width, height int32) *Map {
	passable := make([]bool, int(width)*int(height))
	for i := range passable {
		passable[i] = true
	}
	m, _ := NewMap("open", width, height, passable)
	return m
}

func (m *Map) Name() string  { return m.name }
func (m *Map) Width() int32  { return m.width }
func (m *Map) Height() int32 { return m.height }

// InBounds checks a signed coordinate against the map extent.
func (m *Map) InBounds(p PsSigned) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.width && p.Y < m.height
}

// Contains checks a cell index against the map extent.
func (m *Map) Contains(p Ps) bool {
	return p.X < uint32(m.width) && p.Y < uint32(m.height)
}

func (m *Map) index(p Ps) int {
	return int(p.Y)*int(m.width) + int(p.X)
}

// At returns a copy of the cell at p.
func (m *Map) At(p Ps) (Cell, error) {
	if !m.Contains(p) {
		return Cell{}, fmt.Errorf("%v: %w", p, ErrOutOfBounds)
	}
	m.mu.RLock()
	c := m.cells[m.index(p)]
	m.mu.RUnlock()
	return c, nil
}

// IsPassable reports whether p can be entered. Out-of-bounds cells are never
// passable.
func (m *Map) IsPassable(p Ps, avoidOccupied bool) bool {
	c, err := m.At(p)
	if err != nil {
		return false
	}
	return c.Free(avoidOccupied)
}

// IsPassableSigned is IsPassable for a signed coordinate.
func (m *Map) IsPassableSigned(p PsSigned, avoidOccupied bool) bool {
	if !m.InBounds(p) {
		return false
	}
	return m.IsPassable(Ps{X: uint32(p.X), Y: uint32(p.Y)}, avoidOccupied)
}

// IsOccupied reports the dynamic occupancy flag.
func (m *Map) IsOccupied(p Ps) bool {
	c, err := m.At(p)
	return err == nil && c.Occupied
}

// SetPassable changes the static passability flag (map edits, tests).
func (m *Map) SetPassable(p Ps, passable bool) {
	if !m.Contains(p) {
		return
	}
	m.mu.Lock()
	m.cells[m.index(p)].Passable = passable
	m.mu.Unlock()
}

// Occupy marks p as occupied.
func (m *Map) Occupy(p Ps) {
	m.setOccupied(p, true)
}

// Deoccupy clears the occupied flag at p.
func (m *Map) Deoccupy(p Ps) {
	m.setOccupied(p, false)
}

func (m *Map) setOccupied(p Ps, occupied bool) {
	if !m.Contains(p) {
		return
	}
	m.mu.Lock()
	m.cells[m.index(p)].Occupied = occupied
	m.mu.Unlock()
}

// MoveOccupy transfers occupancy from one cell to another under a single
// lock so concurrent readers never see both or neither occupied.
func (m *Map) MoveOccupy(from, to Ps) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Contains(from) {
		m.cells[m.index(from)].Occupied = false
	}
	if m.Contains(to) {
		m.cells[m.index(to)].Occupied = true
	}
}

// PassableCount returns the number of statically passable cells.
func (m *Map) PassableCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.cells {
		if c.Passable {
			n++
		}
	}
	return n
}

// randomAttempts bounds rejection sampling before falling back to a scan.
const randomAttempts = 64

// RandomPassable samples a passable cell. It gives up on rejection sampling
// after a fixed number of attempts and scans from a random start instead, so
// it terminates even on nearly full maps. ok is false if no cell qualifies.
func (m *Map) RandomPassable(rng *rand.Rand, avoidOccupied bool) (Ps, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.cells)
	for i := 0; i < randomAttempts; i++ {
		idx := rng.Intn(n)
		if m.cells[idx].Free(avoidOccupied) {
			return m.ps(idx), true
		}
	}
	start := rng.Intn(n)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if m.cells[idx].Free(avoidOccupied) {
			return m.ps(idx), true
		}
	}
	return Ps{}, false
}

func (m *Map) ps(idx int) Ps {
	return Ps{X: uint32(idx % int(m.width)), Y: uint32(idx / int(m.width))}
}

// Neighbors returns the in-bounds orthogonal neighbours of p that are free
// under the given occupancy rule.
func (m *Map) Neighbors(p Ps, avoidOccupied bool) []Ps {
	out := make([]Ps, 0, 4)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range Successors {
		np := p.Offset(d)
		if !m.InBounds(np) {
			continue
		}
		q := Ps{X: uint32(np.X), Y: uint32(np.Y)}
		if m.cells[m.index(q)].Free(avoidOccupied) {
			out = append(out, q)
		}
	}
	return out
}
