package world

import (
	"sort"
	"sync"

	"github.com/gridsim/engine/internal/grid"
)

// CellEntry is what an object leaves behind on a cell, keyed by class.
type CellEntry struct {
	Class    string
	Subclass string
	Offset   grid.Vec2
}

// PlacedEntry is a CellEntry with its cell.
type PlacedEntry struct {
	Pos grid.Ps
	CellEntry
}

// CellTable is a per-cell side table telling objects what is around them.
// One entry per class per cell; putting a class again replaces it.
type CellTable struct {
	mu    sync.RWMutex
	cells map[grid.Ps]map[string]CellEntry
}

func NewCellTable() *CellTable {
	return &CellTable{cells: make(map[grid.Ps]map[string]CellEntry)}
}

func (t *CellTable) Put(p grid.Ps, e CellEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cell := t.cells[p]
	if cell == nil {
		cell = make(map[string]CellEntry)
		t.cells[p] = cell
	}
	cell[e.Class] = e
}

func (t *CellTable) Get(p grid.Ps, class string) (CellEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.cells[p][class]
	return e, ok
}

// Remove deletes and returns the entry of class at p.
func (t *CellTable) Remove(p grid.Ps, class string) (CellEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cell := t.cells[p]
	e, ok := cell[class]
	if !ok {
		return CellEntry{}, false
	}
	delete(cell, class)
	if len(cell) == 0 {
		delete(t.cells, p)
	}
	return e, true
}

// Classes lists the classes present at p in name order.
func (t *CellTable) Classes(p grid.Ps) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.cells[p]))
	for class := range t.cells[p] {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}

// Len counts entries over all cells.
func (t *CellTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, cell := range t.cells {
		n += len(cell)
	}
	return n
}

// Snapshot copies every entry ordered by row, column and class.
func (t *CellTable) Snapshot() []PlacedEntry {
	t.mu.RLock()
	out := make([]PlacedEntry, 0, len(t.cells))
	for p, cell := range t.cells {
		for _, e := range cell {
			out = append(out, PlacedEntry{Pos: p, CellEntry: e})
		}
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pos.Y != b.Pos.Y {
			return a.Pos.Y < b.Pos.Y
		}
		if a.Pos.X != b.Pos.X {
			return a.Pos.X < b.Pos.X
		}
		return a.Class < b.Class
	})
	return out
}

// Restore replaces the table contents.
func (t *CellTable) Restore(entries []PlacedEntry) {
	t.mu.Lock()
	t.cells = make(map[grid.Ps]map[string]CellEntry)
	t.mu.Unlock()
	for _, e := range entries {
		t.Put(e.Pos, e.CellEntry)
	}
}
