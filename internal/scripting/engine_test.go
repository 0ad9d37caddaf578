package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const forager = `
function routine(ctx)
  if not ctx.idle then return {} end
  if ctx.carrying > 0 then
    return {{type = "drop", item = "bone", priority = 1}}
  end
  local best = ctx.items[1]
  if best ~= nil then
    return {
      {type = "move", x = best.x, y = best.y, priority = 2},
      {type = "pick", item = best.type, priority = 1},
    }
  end
  return {{type = "wait", cycles = ctx.hour}}
end

function broken(ctx)
  error("nope")
end
`

func TestRunRoutineCommands(t *testing.T) {
	e, err := NewEngineFromSource(forager, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	cmds, err := e.RunRoutine(RoutineContext{
		Idle:  true,
		Items: []ItemSighting{{Type: "bone", X: 4, Y: 2, Dist: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, []Command{
		{Type: "move", X: 4, Y: 2, Priority: 2},
		{Type: "pick", Priority: 1, ItemType: "bone"},
	}, cmds)

	cmds, err = e.RunRoutine(RoutineContext{Idle: true, Hour: 7})
	require.NoError(t, err)
	assert.Equal(t, []Command{{Type: "wait", Cycles: 7}}, cmds)

	cmds, err = e.RunRoutine(RoutineContext{Idle: false})
	require.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestRunRoutineErrors(t *testing.T) {
	e, err := NewEngineFromSource(forager, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	_, err = e.RunRoutine(RoutineContext{Function: "missing"})
	assert.ErrorIs(t, err, ErrNoFunction)

	_, err = e.RunRoutine(RoutineContext{Function: "broken"})
	assert.Error(t, err)

	assert.True(t, e.HasFunction("routine"))
	assert.False(t, e.HasFunction("missing"))
}

func TestNewEngineLoadsRoutineDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "routine"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "routine", "idle.lua"),
		[]byte(`function routine(ctx) return {{type = "wait", cycles = 3}} end`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "routine", "notes.txt"), []byte("ignored"), 0o644))

	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	cmds, err := e.RunRoutine(RoutineContext{})
	require.NoError(t, err)
	assert.Equal(t, []Command{{Type: "wait", Cycles: 3}}, cmds)
}

func TestNewEngineBadScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "core"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core", "bad.lua"), []byte("function ("), 0o644))

	_, err := NewEngine(dir, zap.NewNop())
	assert.Error(t, err)
}
