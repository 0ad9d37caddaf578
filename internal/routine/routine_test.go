package routine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gridsim/engine/internal/agent"
	"github.com/gridsim/engine/internal/clock"
	"github.com/gridsim/engine/internal/core/ecs"
	"github.com/gridsim/engine/internal/grid"
	"github.com/gridsim/engine/internal/items"
	"github.com/gridsim/engine/internal/mind"
	"github.com/gridsim/engine/internal/scripting"
)

const dt = 0.1

func newEnv(w, h int32, startMinutes int) agent.Env {
	return agent.Env{
		Map:          grid.NewOpenMap(w, h),
		Carriables:   items.NewCarriables(),
		Interactives: items.NewInteractives(),
		Clock:        clock.NewClock(clock.New(startMinutes, 10)),
	}
}

func spawn(env agent.Env, id ecs.EntityID, pos grid.Ps) *agent.Sanity {
	env.Map.Occupy(pos)
	return agent.New(id, pos, 10, agent.DefaultTuning(), rand.New(rand.NewSource(int64(id))), zap.NewNop())
}

func addItem(env agent.Env, id ecs.EntityID, typ string, pos grid.Ps) {
	env.Carriables.Add(items.NewCarriable(id, typ, pos, rand.New(rand.NewSource(int64(id)))))
}

// run drives full ticks the way the systems order them and stops early
// once done reports true.
func run(env agent.Env, s *agent.Sanity, p Policy, ticks int, done func() bool) bool {
	prev := mind.Undefined
	for i := 0; i < ticks; i++ {
		env.Clock.Tick(dt)
		s.Advance(dt)
		prev = s.Think(env, prev, p)
		s.Step(env)
		s.UpdateCarried(env)
		if done != nil && done() {
			return true
		}
	}
	return false
}

func TestParseKind(t *testing.T) {
	for k := None; k <= Scripted; k++ {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("cat")
	assert.Error(t, err)
}

func TestRandomWalkQueuesMove(t *testing.T) {
	env := newEnv(8, 8, 0)
	s := spawn(env, 1, grid.Ps{X: 4, Y: 4})

	s.Think(env, mind.Undefined, Policy{Kind: RandomWalk})
	g, ok := s.CurrentGoal()
	require.True(t, ok)
	assert.Equal(t, mind.MoveExact, g.Kind)
	assert.NotEqual(t, grid.Ps{X: 4, Y: 4}, g.Target)
}

func TestRandomStepWaitsWhenBoxedIn(t *testing.T) {
	env := newEnv(3, 1, 0)
	env.Map.Occupy(grid.Ps{X: 0})
	env.Map.Occupy(grid.Ps{X: 2})
	s := spawn(env, 1, grid.Ps{X: 1})

	s.Think(env, mind.Failure, Policy{Kind: RandomStep})
	g, ok := s.CurrentGoal()
	require.True(t, ok)
	assert.Equal(t, mind.Wait, g.Kind)
}

func TestRandomStepMovesToFreeNeighbour(t *testing.T) {
	env := newEnv(3, 1, 0)
	env.Map.Occupy(grid.Ps{X: 0})
	s := spawn(env, 1, grid.Ps{X: 1})

	s.Think(env, mind.Failure, Policy{Kind: RandomStep})
	g, ok := s.CurrentGoal()
	require.True(t, ok)
	assert.Equal(t, mind.MoveExact, g.Kind)
	assert.Equal(t, grid.Ps{X: 2}, g.Target)
}

func TestGoToReachesTarget(t *testing.T) {
	env := newEnv(6, 3, 0)
	s := spawn(env, 1, grid.Ps{})
	target := grid.Ps{X: 5, Y: 2}

	ok := run(env, s, Policy{Kind: GoTo, Target: target}, 50, func() bool {
		return s.Cell() == target && !s.Moving()
	})
	require.True(t, ok)
	assert.Equal(t, 0, s.GoalCount())
}

func TestHunterPicksClosestBone(t *testing.T) {
	env := newEnv(8, 1, 0)
	addItem(env, 10, items.TypeBone, grid.Ps{X: 6})
	addItem(env, 11, items.TypeBone, grid.Ps{X: 3})
	s := spawn(env, 1, grid.Ps{})

	ok := run(env, s, Policy{Kind: Hunter, ItemType: items.TypeBone, Pick: true}, 40, func() bool {
		return len(s.CarriedIDs()) > 0
	})
	require.True(t, ok)
	assert.Equal(t, []ecs.EntityID{11}, s.CarriedIDs())
	bone, _ := env.Carriables.Get(11)
	assert.Equal(t, ecs.EntityID(1), bone.TakenBy)
}

func TestHunterConsumesInPlace(t *testing.T) {
	env := newEnv(5, 1, 0)
	addItem(env, 10, items.TypeBone, grid.Ps{X: 4})
	s := spawn(env, 1, grid.Ps{})

	ok := run(env, s, Policy{Kind: Hunter, ItemType: items.TypeBone}, 40, func() bool {
		bone, _ := env.Carriables.Get(10)
		return bone.Consumed
	})
	require.True(t, ok)
	assert.Empty(t, s.CarriedIDs())
}

func TestDogBinsBone(t *testing.T) {
	env := newEnv(8, 1, 0)
	addItem(env, 10, items.TypeBone, grid.Ps{X: 2})
	addItem(env, 20, items.TypeTrashcan, grid.Ps{X: 6})
	s := spawn(env, 1, grid.Ps{})

	ok := run(env, s, Policy{Kind: Dog}, 100, func() bool {
		bone, _ := env.Carriables.Get(10)
		return bone.Consumed
	})
	require.True(t, ok)
	assert.Empty(t, s.CarriedIDs())
	can, _ := env.Carriables.Get(20)
	assert.True(t, can.Available())
}

func TestDogWithoutTrashcanWaits(t *testing.T) {
	env := newEnv(4, 1, 0)
	addItem(env, 10, items.TypeBone, grid.Ps{})
	s := spawn(env, 1, grid.Ps{})
	s.Intend(mind.Pick(0, items.TypeBone))
	s.Think(env, mind.Undefined, nil)
	require.Equal(t, []ecs.EntityID{10}, s.CarriedIDs())

	s.Think(env, mind.Success, Policy{Kind: Dog})
	g, ok := s.CurrentGoal()
	require.True(t, ok)
	assert.Equal(t, mind.Wait, g.Kind)
}

func TestOfficeWorkerUsesWorkstationDuringDay(t *testing.T) {
	env := newEnv(6, 1, 10*60)
	env.Interactives.Add(items.Interactive{
		ID: 50, Type: items.TypeWorkstation, Pos: grid.Ps{X: 4}, InteractOffset: grid.PsSigned{X: -1},
	})
	s := spawn(env, 1, grid.Ps{})
	p := Policy{Kind: OfficeWorker, Work: 50}

	claimed := run(env, s, p, 20, func() bool {
		obj, _ := env.Interactives.Get(50)
		return obj.UsedBy == 1
	})
	require.True(t, claimed)
	assert.Equal(t, grid.Ps{X: 3}, s.Cell())

	used := run(env, s, p, 80, func() bool {
		var done bool
		s.Do(func(c agent.Controls) {
			for _, o := range c.Memory().Recall(4) {
				if o.Kind == mind.UseMinutes && o.Success {
					done = true
				}
			}
		})
		return done
	})
	assert.True(t, used)
}

func TestOfficeWorkerSleepsAtNight(t *testing.T) {
	env := newEnv(6, 1, 23*60)
	env.Interactives.Add(items.Interactive{ID: 60, Type: items.TypeBed, Pos: grid.Ps{X: 2}})
	s := spawn(env, 1, grid.Ps{X: 5})

	ok := run(env, s, Policy{Kind: OfficeWorker, Bed: 60}, 20, func() bool {
		obj, _ := env.Interactives.Get(60)
		return obj.UsedBy == 1
	})
	assert.True(t, ok)
}

func TestOfficeWorkerWandersInEvening(t *testing.T) {
	env := newEnv(6, 6, 19*60)
	s := spawn(env, 1, grid.Ps{})

	s.Think(env, mind.Undefined, Policy{Kind: OfficeWorker, Work: 50, Bed: 60})
	g, ok := s.CurrentGoal()
	require.True(t, ok)
	assert.Equal(t, mind.MoveExact, g.Kind)
}

type fakeScripter struct {
	cmds  []scripting.Command
	err   error
	calls int
	last  scripting.RoutineContext
}

func (f *fakeScripter) RunRoutine(ctx scripting.RoutineContext) ([]scripting.Command, error) {
	f.calls++
	f.last = ctx
	return f.cmds, f.err
}

func TestScriptedQueuesCommands(t *testing.T) {
	env := newEnv(6, 1, 8*60)
	addItem(env, 10, items.TypeBone, grid.Ps{X: 3})
	s := spawn(env, 1, grid.Ps{})
	f := &fakeScripter{cmds: []scripting.Command{
		{Type: "move", X: 3, Priority: 2},
		{Type: "pick", ItemType: items.TypeBone, Priority: 1},
		{Type: "bogus"},
		{Type: "move", X: -1},
	}}
	p := Policy{Kind: Scripted, Name: "rex", Scripter: f}

	s.Think(env, mind.Undefined, p)
	require.Equal(t, 1, f.calls)
	assert.Equal(t, "rex", f.last.Name)
	assert.True(t, f.last.Idle)
	assert.Equal(t, 8, f.last.Hour)
	require.Len(t, f.last.Items, 1)
	assert.Equal(t, scripting.ItemSighting{Type: items.TypeBone, X: 3, Y: 0, Dist: 3}, f.last.Items[0])

	assert.Equal(t, 2, s.GoalCount())
	g, _ := s.CurrentGoal()
	assert.Equal(t, mind.GoTo(2, grid.Ps{X: 3}), g)

	s.Think(env, mind.None, p)
	assert.Equal(t, 1, f.calls)
}

func TestScriptedFallsBackToWandering(t *testing.T) {
	env := newEnv(6, 6, 0)
	s := spawn(env, 1, grid.Ps{})
	f := &fakeScripter{err: errors.New("boom")}

	s.Think(env, mind.Undefined, Policy{Kind: Scripted, Scripter: f})
	g, ok := s.CurrentGoal()
	require.True(t, ok)
	assert.Equal(t, mind.MoveExact, g.Kind)
}

func TestCommandGoal(t *testing.T) {
	cases := []struct {
		cmd  scripting.Command
		want mind.Goal
	}{
		{scripting.Command{Type: "move_near", X: 2, Y: 5, Priority: 3}, mind.GoNear(3, grid.Ps{X: 2, Y: 5})},
		{scripting.Command{Type: "wait", Cycles: 7}, mind.WaitCycles(0, 7)},
		{scripting.Command{Type: "consume"}, mind.Consume(0, "")},
		{scripting.Command{Type: "drop", ItemType: items.TypeBone}, mind.Drop(0, items.TypeBone)},
		{scripting.Command{Type: "consume_carried", Priority: -1}, mind.ConsumeCarried(-1, "")},
		{scripting.Command{Type: "use", Minutes: 30}, mind.Use(0, 30)},
	}
	for _, tc := range cases {
		got, err := commandGoal(tc.cmd)
		require.NoError(t, err, tc.cmd.Type)
		assert.Equal(t, tc.want, got, tc.cmd.Type)
	}

	_, err := commandGoal(scripting.Command{Type: "move", Y: -3})
	assert.ErrorIs(t, err, grid.ErrNegative)
}
