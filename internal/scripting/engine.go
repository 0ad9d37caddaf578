package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// DefaultRoutine is the Lua global called when a context names no function.
const DefaultRoutine = "routine"

// ErrNoFunction is returned when the requested Lua global is not a function.
var ErrNoFunction = errors.New("lua function not found")

// Engine wraps a single gopher-lua VM. LState is not goroutine-safe and
// agents think in parallel, so every call goes through mu.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)

	// Load core scripts first, then routines
	for _, sub := range []string{"core", "routine"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			e.vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// NewEngineFromSource builds an engine from inline Lua, for tools and tests.
func NewEngineFromSource(src string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.vm.DoString(src); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load source: %w", err)
	}
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, log: log}
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasFunction reports whether a global function with that name exists.
func (e *Engine) HasFunction(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// --- Routine Bridge ---

// ItemSighting is a carriable item offered to the script.
type ItemSighting struct {
	Type string
	X, Y int
	Dist int // Manhattan
}

// RoutineContext holds pre-packed agent state for a routine decision.
type RoutineContext struct {
	Agent    uint64
	Name     string
	Function string // Lua global to call; empty = DefaultRoutine
	X, Y     int
	Width    int
	Height   int
	Idle     bool
	Carrying int
	Prev     string // previous goal result

	Day, Hour, Minute int

	Items []ItemSighting
}

// Command is a single goal returned by a Lua routine.
type Command struct {
	Type     string // "move", "move_near", "wait", "pick", "consume", "drop", "consume_carried", "use", "reset"
	X, Y     int
	Priority int
	Cycles   int
	Minutes  int
	ItemType string
}

// RunRoutine calls the routine function with ctx and returns its commands.
func (e *Engine) RunRoutine(ctx RoutineContext) ([]Command, error) {
	name := ctx.Function
	if name == "" {
		name = DefaultRoutine
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNoFunction)
	}

	// Build context table
	t := e.vm.NewTable()
	t.RawSetString("agent", lua.LNumber(ctx.Agent))
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("width", lua.LNumber(ctx.Width))
	t.RawSetString("height", lua.LNumber(ctx.Height))
	t.RawSetString("idle", lua.LBool(ctx.Idle))
	t.RawSetString("carrying", lua.LNumber(ctx.Carrying))
	t.RawSetString("prev", lua.LString(ctx.Prev))
	t.RawSetString("day", lua.LNumber(ctx.Day))
	t.RawSetString("hour", lua.LNumber(ctx.Hour))
	t.RawSetString("minute", lua.LNumber(ctx.Minute))

	itemsTbl := e.vm.NewTable()
	for i, it := range ctx.Items {
		row := e.vm.NewTable()
		row.RawSetString("type", lua.LString(it.Type))
		row.RawSetString("x", lua.LNumber(it.X))
		row.RawSetString("y", lua.LNumber(it.Y))
		row.RawSetString("dist", lua.LNumber(it.Dist))
		itemsTbl.RawSetInt(i+1, row)
	}
	t.RawSetString("items", itemsTbl)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua routine error", zap.String("func", name), zap.Uint64("agent", ctx.Agent), zap.Error(err))
		return nil, fmt.Errorf("call %s: %w", name, err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil, nil
	}

	// Parse commands array
	var cmds []Command
	rt.ForEach(func(_, v lua.LValue) {
		if row, ok := v.(*lua.LTable); ok {
			cmds = append(cmds, Command{
				Type:     lStr(row, "type"),
				X:        lInt(row, "x"),
				Y:        lInt(row, "y"),
				Priority: lInt(row, "priority"),
				Cycles:   lInt(row, "cycles"),
				Minutes:  lInt(row, "minutes"),
				ItemType: lStr(row, "item"),
			})
		}
	})
	return cmds, nil
}

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
