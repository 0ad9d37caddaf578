// Package pathfind finds shortest orthogonal routes over a grid.Map.
//
// Neighbour order is shuffled with the caller's random source, so among
// equal-cost routes the one returned is not fixed unless the source is seeded.
package pathfind

import (
	"container/heap"
	"errors"
	"fmt"
	"math/rand"

	"github.com/gridsim/engine/internal/grid"
)

// ErrNoPath is returned when the target cannot be reached.
var ErrNoPath = errors.New("no path")

// Find runs A* from start to target with a Manhattan heuristic and uniform
// step cost. The returned path excludes start; the last element is target.
// A start equal to target yields an empty path.
func Find(m *grid.Map, rng *rand.Rand, start, target grid.Ps, avoidOccupied bool) ([]grid.Ps, error) {
	if !m.Contains(start) || !m.Contains(target) {
		return nil, fmt.Errorf("route %v -> %v: %w", start, target, grid.ErrOutOfBounds)
	}
	if start == target {
		return []grid.Ps{}, nil
	}

	w := int(m.Width())
	size := w * int(m.Height())
	idx := func(p grid.Ps) int { return int(p.Y)*w + int(p.X) }

	g := make([]int32, size)
	for i := range g {
		g[i] = -1
	}
	parent := make([]int32, size)
	closed := make([]bool, size)

	open := &openSet{}
	seq := 0
	g[idx(start)] = 0
	parent[idx(start)] = -1
	heap.Push(open, &node{p: start, f: start.Manhattan(target), seq: seq})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		ci := idx(cur.p)
		if closed[ci] {
			continue
		}
		closed[ci] = true
		if cur.p == target {
			return unwind(parent, ci, idx(start), w), nil
		}

		next := m.Neighbors(cur.p, avoidOccupied)
		rng.Shuffle(len(next), func(i, j int) { next[i], next[j] = next[j], next[i] })
		for _, n := range next {
			ni := idx(n)
			if closed[ni] {
				continue
			}
			cost := g[ci] + 1
			if g[ni] >= 0 && cost >= g[ni] {
				continue
			}
			g[ni] = cost
			parent[ni] = int32(ci)
			seq++
			heap.Push(open, &node{p: n, f: int(cost) + n.Manhattan(target), seq: seq})
		}
	}
	return nil, fmt.Errorf("route %v -> %v: %w", start, target, ErrNoPath)
}

func unwind(parent []int32, at, start, w int) []grid.Ps {
	var rev []grid.Ps
	for at != start {
		rev = append(rev, grid.Ps{X: uint32(at % w), Y: uint32(at / w)})
		at = int(parent[at])
	}
	path := make([]grid.Ps, len(rev))
	for i := range rev {
		path[i] = rev[len(rev)-1-i]
	}
	return path
}

// FindNear routes to target, or failing that to any free cell adjacent to
// it, choosing randomly among the reachable ones. reached is the last cell of
// the returned path. A start already within distance 1 yields an empty path.
func FindNear(m *grid.Map, rng *rand.Rand, start, target grid.Ps) (path []grid.Ps, reached grid.Ps, err error) {
	if start.Manhattan(target) <= 1 {
		return []grid.Ps{}, start, nil
	}
	path, err = Find(m, rng, start, target, true)
	if err == nil {
		return path, target, nil
	}
	if !errors.Is(err, ErrNoPath) {
		return nil, grid.Ps{}, err
	}

	var found [][]grid.Ps
	for _, around := range m.Neighbors(target, true) {
		if p, err := Find(m, rng, start, around, true); err == nil {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return nil, grid.Ps{}, fmt.Errorf("route near %v: %w", target, ErrNoPath)
	}
	path = found[rng.Intn(len(found))]
	if len(path) == 0 {
		return path, start, nil
	}
	return path, path[len(path)-1], nil
}

// Validate checks that consecutive cells are exactly one step apart. It
// returns the index of the first offending cell, or -1.
func Validate(path []grid.Ps) int {
	for i := 1; i < len(path); i++ {
		if path[i-1].Manhattan(path[i]) != 1 {
			return i
		}
	}
	return -1
}

type node struct {
	p   grid.Ps
	f   int
	seq int
}

// openSet is a min-heap on f, ties broken by insertion order.
type openSet []*node

func (s openSet) Len() int { return len(s) }
func (s openSet) Less(i, j int) bool {
	if s[i].f != s[j].f {
		return s[i].f < s[j].f
	}
	return s[i].seq < s[j].seq
}
func (s openSet) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s *openSet) Push(x any)   { *s = append(*s, x.(*node)) }
func (s *openSet) Pop() any {
	old := *s
	n := old[len(old)-1]
	*s = old[:len(old)-1]
	return n
}
