package routing

import (
	"math/rand"
	"testing"

	"github.com/gridsim/engine/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState(pos grid.Ps) *State {
	return NewState(pos, 4, DefaultTuning(), rand.New(rand.NewSource(1)))
}

func line(fromX, toX uint32) []grid.Ps {
	var out []grid.Ps
	for x := fromX; x <= toX; x++ {
		out = append(out, grid.Ps{X: x})
	}
	return out
}

func TestMotionStartAndArrive(t *testing.T) {
	m := NewMotion(grid.Ps{X: 2, Y: 2}, 4, 0.01)
	require.NoError(t, m.Start(grid.Up))
	assert.Equal(t, grid.Ps{X: 2, Y: 3}, m.Pos)
	assert.Equal(t, -1.0, m.Offset.Y)
	assert.InDelta(t, 2.0, m.DrawPos().Y, 1e-9)

	assert.False(t, m.Advance(0.1))
	assert.InDelta(t, -0.6, m.Offset.Y, 1e-9)
	assert.True(t, m.Moving())
	assert.True(t, m.Advance(0.2))
	assert.False(t, m.Moving())
	assert.Equal(t, grid.Vec2{}, m.Offset)
	assert.False(t, m.Advance(1))
}

func TestMotionStartRejectsNegative(t *testing.T) {
	m := NewMotion(grid.Ps{}, 1, 0.01)
	require.ErrorIs(t, m.Start(grid.Left), grid.ErrNegative)
	assert.False(t, m.Moving())
}

func TestWalkingPathArrivesClean(t *testing.T) {
	for n := 1; n <= 12; n++ {
		s := newState(grid.Ps{})
		path := line(1, uint32(n))
		require.NoError(t, s.SetPath(path, path[len(path)-1]))
		for i := 0; i < n; i++ {
			_, ok, err := s.StepNext()
			require.NoError(t, err)
			require.True(t, ok)
			for !s.Motion.Advance(0.1) {
			}
		}
		assert.True(t, s.StopIfReached())
		assert.Equal(t, grid.Ps{X: uint32(n)}, s.Cell())
		_, moving := s.Motion.Direction()
		assert.False(t, moving)
		assert.Equal(t, grid.Vec2{}, s.Motion.Offset)
		assert.True(t, s.Reached())
	}
}

func TestSetPathRejectsGaps(t *testing.T) {
	s := newState(grid.Ps{})
	require.ErrorIs(t, s.SetPath([]grid.Ps{{X: 2}}, grid.Ps{X: 2}), ErrNotAdjacent)
	require.ErrorIs(t, s.SetPath([]grid.Ps{{X: 1}, {X: 3}}, grid.Ps{X: 3}), ErrNotAdjacent)
	assert.False(t, s.HasPath())
}

func TestReliableStepsBounds(t *testing.T) {
	s := newState(grid.Ps{})
	assert.Equal(t, 3, s.reliableSteps(3))
	assert.Equal(t, 0, s.reliableSteps(0))
	for n := 4; n < 400; n++ {
		r := s.reliableSteps(n)
		assert.GreaterOrEqual(t, r, 4)
		assert.LessOrEqual(t, r, 80)
	}
}

func TestPeekAhead(t *testing.T) {
	s := newState(grid.Ps{})
	require.NoError(t, s.SetPath(line(1, 10), grid.Ps{X: 10}))
	p, idx, ok := s.PeekAhead(6)
	require.True(t, ok)
	assert.Equal(t, grid.Ps{X: 6}, p)
	assert.Equal(t, 6, idx)

	p, idx, ok = s.PeekAhead(32)
	require.True(t, ok)
	assert.Equal(t, grid.Ps{X: 10}, p)
	assert.Equal(t, 10, idx)
}

func TestSplicePrefix(t *testing.T) {
	s := newState(grid.Ps{Y: 1})
	// (0,1) -> (1,1) (2,1) (3,1) (4,1)
	var steps []grid.Ps
	for x := uint32(1); x <= 4; x++ {
		steps = append(steps, grid.Ps{X: x, Y: 1})
	}
	require.NoError(t, s.SetPath(steps, grid.Ps{X: 4, Y: 1}))

	detour := []grid.Ps{{X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 1}}
	require.NoError(t, s.SplicePrefix(detour, 2))
	assert.Equal(t, append(detour, grid.Ps{X: 3, Y: 1}, grid.Ps{X: 4, Y: 1}), s.Steps())

	require.ErrorIs(t, s.SplicePrefix(nil, 1), ErrEmptyPath)
	require.ErrorIs(t, s.SplicePrefix([]grid.Ps{{X: 1, Y: 1}}, 2), ErrPathEnd)
	require.ErrorIs(t, s.SplicePrefix([]grid.Ps{{X: 5, Y: 5}, {X: 0, Y: 2}}, 1), ErrNotAdjacent)
}

func TestNoReliableStepsLeft(t *testing.T) {
	s := newState(grid.Ps{})
	require.NoError(t, s.SetPath(line(1, 10), grid.Ps{X: 10}))
	assert.False(t, s.NoReliableStepsLeft())
	s.SetReliable(0)
	assert.True(t, s.NoReliableStepsLeft())

	require.NoError(t, s.SetPath(line(1, 2), grid.Ps{X: 2}))
	assert.True(t, s.NoReliableStepsLeft())
}

func TestStepNextDecrementsBudget(t *testing.T) {
	s := newState(grid.Ps{})
	require.NoError(t, s.SetPath(line(1, 10), grid.Ps{X: 10}))
	s.SetReliable(2)
	s.MarkStuck()
	dir, ok, err := s.StepNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, grid.Right, dir)
	assert.Equal(t, 1, s.Reliable())
	assert.False(t, s.Stuck())
	assert.Len(t, s.Steps(), 9)
}

func TestStepNextOnEmpty(t *testing.T) {
	s := newState(grid.Ps{})
	_, ok, err := s.StepNext()
	require.NoError(t, err)
	assert.False(t, ok)
}
