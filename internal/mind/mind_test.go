package mind

import (
	"math/rand"
	"testing"

	"github.com/gridsim/engine/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntendPreemptsOnlyOnStrictlyGreater(t *testing.T) {
	c := NewCortex()
	c.Intend(WaitCycles(1, 5))
	c.Intend(GoTo(1, grid.Ps{X: 2}))

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, Wait, cur.Kind, "equal priority must not preempt")

	c.Intend(GoTo(3, grid.Ps{X: 4}))
	cur, _ = c.Current()
	assert.Equal(t, MoveExact, cur.Kind)
	assert.Equal(t, 3, c.MaxPriority())
	assert.Equal(t, 3, c.Len())
}

func TestFinishCurrentOnEmpty(t *testing.T) {
	c := NewCortex()
	assert.False(t, c.FinishCurrent())
	assert.Equal(t, MinPriority, c.MaxPriority())
	_, ok := c.Current()
	assert.False(t, ok)
}

func TestFinishCurrentPromotesEarliestOfMaxPriority(t *testing.T) {
	c := NewCortex()
	c.Intend(WaitCycles(10, 1))
	c.Intend(Pick(5, "bone"))
	c.Intend(Pick(5, "bed"))
	c.Intend(Pick(2, "x"))

	require.True(t, c.FinishCurrent())
	cur, _ := c.Current()
	assert.Equal(t, "bone", cur.ItemType)
	require.True(t, c.FinishCurrent())
	cur, _ = c.Current()
	assert.Equal(t, "bed", cur.ItemType)
	require.True(t, c.FinishCurrent())
	cur, _ = c.Current()
	assert.Equal(t, "x", cur.ItemType)
	require.True(t, c.FinishCurrent())
	assert.Equal(t, 0, c.Len())
}

func TestCurrentOutranksBacklogProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 200; round++ {
		c := NewCortex()
		for i := 0; i < 30; i++ {
			switch rng.Intn(6) {
			case 0:
				c.FinishCurrent()
			case 1:
				c.ClearLowerThan(rng.Intn(21) - 10)
			default:
				c.Intend(WaitCycles(rng.Intn(21)-10, 1))
			}
			cur, ok := c.Current()
			backlog := c.Backlog()
			if !ok {
				require.Empty(t, backlog)
				continue
			}
			for j, g := range backlog {
				require.LessOrEqual(t, g.Priority, cur.Priority)
				if j > 0 {
					require.LessOrEqual(t, g.Priority, backlog[j-1].Priority)
				}
			}
		}
	}
}

func TestClearLowerThanPromotes(t *testing.T) {
	c := NewCortex()
	c.Intend(WaitCycles(-2, 1))
	c.Intend(WaitCycles(-5, 1))
	c.Intend(WaitCycles(4, 1))
	c.ClearLowerThan(5)
	assert.Equal(t, 0, c.Len())

	c.Intend(WaitCycles(1, 1))
	c.Intend(WaitCycles(7, 1))
	c.Intend(WaitCycles(3, 1))
	c.ClearAll()
	assert.Equal(t, MinPriority, c.MaxPriority())
}

func TestBrainsCountCycles(t *testing.T) {
	b := NewBrains()
	b.IntendWait(2, 0)
	assert.False(t, b.CountCycles())
	assert.False(t, b.CountCycles())
	assert.True(t, b.CountCycles())
	require.True(t, b.Finish(true))
	assert.False(t, b.Finish(true))
	assert.Equal(t, []Outcome{{Kind: Wait, Success: true}}, b.Mem.Recall(5))
}

func TestMemoryRing(t *testing.T) {
	m := NewMemory(3)
	for i := 0; i < 5; i++ {
		m.Remember(Outcome{Kind: GoalKind(i), Success: i%2 == 0})
	}
	got := m.Recall(10)
	require.Len(t, got, 3)
	assert.Equal(t, GoalKind(4), got[0].Kind)
	assert.Equal(t, GoalKind(2), got[2].Kind)
	assert.Equal(t, 1, m.Failures(3))
}

func TestGoalConstructors(t *testing.T) {
	assert.Equal(t, PickAny, Pick(0, "").Kind)
	assert.Equal(t, ConsumeCarriedType, ConsumeCarried(0, "bone").Kind)
	assert.True(t, GoNear(0, grid.Ps{}).Kind.IsMove())
	assert.Equal(t, "wait(3)@2", WaitCycles(2, 3).String())
}
