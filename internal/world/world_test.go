package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gridsim/engine/internal/agent"
	"github.com/gridsim/engine/internal/clock"
	"github.com/gridsim/engine/internal/config"
	"github.com/gridsim/engine/internal/core/event"
	"github.com/gridsim/engine/internal/grid"
	"github.com/gridsim/engine/internal/items"
	"github.com/gridsim/engine/internal/mind"
	"github.com/gridsim/engine/internal/routine"
)

func newTestState(w, h int32) *State {
	return NewState(grid.NewOpenMap(w, h), clock.New(8*60, 1), 7, agent.DefaultTuning(), zap.NewNop())
}

func TestCellTable(t *testing.T) {
	ct := NewCellTable()
	p := grid.Ps{X: 2, Y: 3}
	ct.Put(p, CellEntry{Class: "decor", Subclass: "rug"})
	ct.Put(p, CellEntry{Class: "sound", Subclass: "hum"})
	ct.Put(p, CellEntry{Class: "decor", Subclass: "plant", Offset: grid.Vec2{X: 0.5}})
	ct.Put(grid.Ps{X: 1}, CellEntry{Class: "decor", Subclass: "lamp"})

	assert.Equal(t, []string{"decor", "sound"}, ct.Classes(p))
	e, ok := ct.Get(p, "decor")
	require.True(t, ok)
	assert.Equal(t, "plant", e.Subclass)
	assert.Equal(t, 3, ct.Len())

	snap := ct.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, grid.Ps{X: 1}, snap[0].Pos)
	assert.Equal(t, "sound", snap[2].Class)

	_, ok = ct.Remove(p, "decor")
	assert.True(t, ok)
	_, ok = ct.Remove(p, "decor")
	assert.False(t, ok)
	assert.Empty(t, ct.Classes(grid.Ps{X: 9, Y: 9}))

	ct.Restore(snap[:1])
	assert.Equal(t, 1, ct.Len())
}

func TestSpawnAgentOccupiesCell(t *testing.T) {
	s := newTestState(5, 5)
	a, err := s.SpawnAgent("rex", ArchetypeDog, routine.Policy{Kind: routine.Dog}, grid.Ps{X: 1, Y: 1}, 2)
	require.NoError(t, err)
	assert.True(t, s.Map.IsOccupied(grid.Ps{X: 1, Y: 1}))
	assert.Equal(t, "rex", a.Policy.Name)
	assert.Same(t, a, s.AgentByName("rex"))
	assert.Same(t, a, s.Agent(a.ID))

	_, err = s.SpawnAgent("fido", ArchetypeDog, routine.Policy{Kind: routine.Dog}, grid.Ps{X: 1, Y: 1}, 2)
	assert.ErrorIs(t, err, ErrCellTaken)
	_, err = s.SpawnAgent("rex", ArchetypeDog, routine.Policy{Kind: routine.Dog}, grid.Ps{X: 2, Y: 2}, 2)
	assert.Error(t, err)

	removed := s.RemoveAgent(a.ID)
	require.NotNil(t, removed)
	assert.False(t, s.Map.IsOccupied(grid.Ps{X: 1, Y: 1}))
	assert.Nil(t, s.AgentByName("rex"))
	s.Entities.FlushDestroyQueue()
	assert.Equal(t, 0, s.AgentCount())
}

func TestWorkerGetsFurniture(t *testing.T) {
	s := newTestState(6, 6)
	bed, err := s.SpawnInteractive(items.TypeBed, grid.Ps{X: 0, Y: 0}, grid.PsSigned{X: 1})
	require.NoError(t, err)
	work, err := s.SpawnInteractive(items.TypeWorkstation, grid.Ps{X: 5, Y: 5}, grid.PsSigned{Y: -1})
	require.NoError(t, err)

	a, err := s.SpawnAgent("ann", ArchetypeWorker, routine.Policy{Kind: routine.OfficeWorker}, grid.Ps{X: 3, Y: 3}, 2)
	require.NoError(t, err)
	assert.Equal(t, bed, a.Policy.Bed)
	assert.Equal(t, work, a.Policy.Work)

	obj, _ := s.Interactives.Get(bed)
	assert.True(t, obj.Assigned)
	e, ok := s.Cells.Get(grid.Ps{X: 5, Y: 5}, ClassFurniture)
	require.True(t, ok)
	assert.Equal(t, items.TypeWorkstation, e.Subclass)

	b, err := s.SpawnAgent("bob", ArchetypeWorker, routine.Policy{Kind: routine.OfficeWorker}, grid.Ps{X: 2, Y: 2}, 2)
	require.NoError(t, err)
	assert.True(t, b.Policy.Bed.IsZero())
}

func TestSpawnInteractiveNeedsPassableInteractionCell(t *testing.T) {
	s := newTestState(3, 3)
	_, err := s.SpawnInteractive(items.TypeBed, grid.Ps{}, grid.PsSigned{X: -1})
	assert.ErrorIs(t, err, ErrCellTaken)
}

func TestPopulate(t *testing.T) {
	s := newTestState(12, 12)
	cfg := config.WorldConfig{Bones: 5, Trashcans: 1, Dogs: 2, Workers: 2, Wanderers: 3, Hunters: 1, Scripted: 1}
	mv := config.MovementConfig{MinSpeed: 1, MaxSpeed: 3}
	require.NoError(t, s.Populate(cfg, mv, nil))

	assert.Equal(t, 9, s.AgentCount())
	assert.Equal(t, 6, s.Carriables.Len())
	for _, a := range s.AgentList() {
		assert.True(t, s.Map.IsOccupied(a.Sanity.Cell()), a.Name)
		if a.Archetype == ArchetypeWorker {
			assert.False(t, a.Policy.Bed.IsZero(), a.Name)
			assert.False(t, a.Policy.Work.IsZero(), a.Name)
		}
	}
	assert.NotNil(t, s.AgentByName("scripted-1"))
}

func TestNewRandIsStablePerName(t *testing.T) {
	s := newTestState(3, 3)
	assert.Equal(t, s.NewRand("rex").Int63(), s.NewRand("rex").Int63())
	assert.NotEqual(t, s.NewRand("rex").Int63(), s.NewRand("fido").Int63())
}

func TestStatsFromEvents(t *testing.T) {
	s := newTestState(3, 3)
	event.Emit(s.Bus, event.GoalFinished{Agent: 1, Result: mind.Success})
	event.Emit(s.Bus, event.GoalFinished{Agent: 1, Result: mind.Failure})
	event.Emit(s.Bus, event.ItemConsumed{Item: 4, Type: items.TypeBone})
	s.Bus.SwapBuffers()
	s.Bus.DispatchAll()

	assert.Equal(t, int64(1), s.Stats.Successes.Load())
	assert.Equal(t, int64(1), s.Stats.Failures.Load())
	assert.Equal(t, int64(1), s.Stats.Consumed.Load())
}

func TestTuningFrom(t *testing.T) {
	tn := TuningFrom(config.MovementConfig{
		ReliableMin: 3, ReliableMax: 50, ReliableCapMin: 10, ArriveThreshold: 0.02,
		Detours: []int{5}, UnstuckPriority: 7, CooldownMin: 1, CooldownMax: 2,
	})
	assert.Equal(t, 3, tn.Routing.ReliableMin)
	assert.Equal(t, 50, tn.Routing.ReliableMax)
	assert.Equal(t, []int{5}, tn.Detours)
	assert.Equal(t, 7, tn.UnstuckPriority)
}
