package pathfind

import (
	"math/rand"
	"testing"

	"github.com/gridsim/engine/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindStraightLine(t *testing.T) {
	m := grid.NewOpenMap(5, 1)
	path, err := Find(m, rand.New(rand.NewSource(1)), grid.Ps{X: 0, Y: 0}, grid.Ps{X: 3, Y: 0}, true)
	require.NoError(t, err)
	assert.Equal(t, []grid.Ps{{X: 1}, {X: 2}, {X: 3}}, path)
}

func TestFindSameCellIsEmpty(t *testing.T) {
	m := grid.NewOpenMap(3, 3)
	path, err := Find(m, rand.New(rand.NewSource(1)), grid.Ps{X: 1, Y: 1}, grid.Ps{X: 1, Y: 1}, true)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestFindAroundWall(t *testing.T) {
	// 5x5 with a vertical wall at x=2 except y=4.
	m := grid.NewOpenMap(5, 5)
	for y := uint32(0); y < 4; y++ {
		m.SetPassable(grid.Ps{X: 2, Y: y}, false)
	}
	start, target := grid.Ps{X: 0, Y: 0}, grid.Ps{X: 4, Y: 0}
	path, err := Find(m, rand.New(rand.NewSource(7)), start, target, true)
	require.NoError(t, err)
	assert.Equal(t, -1, Validate(append([]grid.Ps{start}, path...)))
	assert.Equal(t, target, path[len(path)-1])
	assert.Len(t, path, 12)
	for _, p := range path {
		assert.True(t, m.IsPassable(p, false))
	}
}

func TestFindUnreachable(t *testing.T) {
	m := grid.NewOpenMap(3, 3)
	m.SetPassable(grid.Ps{X: 1, Y: 0}, false)
	m.SetPassable(grid.Ps{X: 0, Y: 1}, false)
	_, err := Find(m, rand.New(rand.NewSource(1)), grid.Ps{}, grid.Ps{X: 2, Y: 2}, true)
	require.ErrorIs(t, err, ErrNoPath)
}

func TestFindOccupiedTarget(t *testing.T) {
	m := grid.NewOpenMap(4, 1)
	m.Occupy(grid.Ps{X: 3})
	rng := rand.New(rand.NewSource(3))
	_, err := Find(m, rng, grid.Ps{}, grid.Ps{X: 3}, true)
	require.ErrorIs(t, err, ErrNoPath)

	path, err := Find(m, rng, grid.Ps{}, grid.Ps{X: 3}, false)
	require.NoError(t, err)
	assert.Len(t, path, 3)
}

func TestFindNearFallsBackToNeighbour(t *testing.T) {
	m := grid.NewOpenMap(5, 5)
	target := grid.Ps{X: 4, Y: 4}
	m.Occupy(target)
	path, reached, err := FindNear(m, rand.New(rand.NewSource(5)), grid.Ps{}, target)
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.Equal(t, reached, path[len(path)-1])
	assert.Equal(t, 1, reached.Manhattan(target))
	assert.Equal(t, -1, Validate(append([]grid.Ps{{}}, path...)))
}

func TestFindNearAlreadyAdjacent(t *testing.T) {
	m := grid.NewOpenMap(3, 3)
	start := grid.Ps{X: 1, Y: 1}
	path, reached, err := FindNear(m, rand.New(rand.NewSource(1)), start, grid.Ps{X: 2, Y: 1})
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, start, reached)
}

func TestFindNearFails(t *testing.T) {
	m := grid.NewOpenMap(5, 1)
	m.SetPassable(grid.Ps{X: 2}, false)
	_, _, err := FindNear(m, rand.New(rand.NewSource(1)), grid.Ps{}, grid.Ps{X: 4})
	require.ErrorIs(t, err, ErrNoPath)
}

// Random maps: every returned path is contiguous, avoids walls and has the
// length of a breadth-first shortest route.
func TestFindPropertyRandomMaps(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		const w, h = 12, 9
		m := grid.NewOpenMap(w, h)
		for i := 0; i < 30; i++ {
			m.SetPassable(grid.Ps{X: uint32(rng.Intn(w)), Y: uint32(rng.Intn(h))}, false)
		}
		start, ok := m.RandomPassable(rng, false)
		require.True(t, ok)
		target, ok := m.RandomPassable(rng, false)
		require.True(t, ok)

		want := bfsLen(m, start, target)
		path, err := Find(m, rng, start, target, false)
		if want < 0 {
			require.ErrorIs(t, err, ErrNoPath)
			continue
		}
		require.NoError(t, err)
		assert.Len(t, path, want)
		if len(path) > 0 {
			assert.Equal(t, target, path[len(path)-1])
			assert.NotEqual(t, start, path[0])
			assert.Equal(t, 1, start.Manhattan(path[0]))
		}
		assert.Equal(t, -1, Validate(path))
	}
}

func TestValidate(t *testing.T) {
	assert.Equal(t, -1, Validate(nil))
	assert.Equal(t, -1, Validate([]grid.Ps{{X: 1}, {X: 2}, {X: 2, Y: 1}}))
	assert.Equal(t, 2, Validate([]grid.Ps{{X: 1}, {X: 2}, {X: 3, Y: 1}}))
}

func bfsLen(m *grid.Map, start, target grid.Ps) int {
	dist := map[grid.Ps]int{start: 0}
	queue := []grid.Ps{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return dist[cur]
		}
		for _, n := range m.Neighbors(cur, false) {
			if _, seen := dist[n]; !seen {
				dist[n] = dist[cur] + 1
				queue = append(queue, n)
			}
		}
	}
	return -1
}
