// Package routine holds the high-level behaviour policies that feed goals
// into an agent's queue based on the previous tick's result.
package routine

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gridsim/engine/internal/agent"
	"github.com/gridsim/engine/internal/core/ecs"
	"github.com/gridsim/engine/internal/grid"
	"github.com/gridsim/engine/internal/items"
	"github.com/gridsim/engine/internal/mind"
	"github.com/gridsim/engine/internal/scripting"
)

type Kind uint8

const (
	None Kind = iota
	RandomWalk
	RandomStep
	GoTo
	Hunter
	Dog
	OfficeWorker
	Scripted
)

var kindNames = [...]string{
	None:         "none",
	RandomWalk:   "random_walk",
	RandomStep:   "random_step",
	GoTo:         "goto",
	Hunter:       "hunter",
	Dog:          "dog",
	OfficeWorker: "office_worker",
	Scripted:     "scripted",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind maps a config name to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return None, fmt.Errorf("unknown routine %q", s)
}

const (
	idleWaitCycles    = 10
	noTrashWaitCycles = 100

	workUseMinutes = 60
	bedUseMinutes  = 120

	scriptItemLimit = 8
	scriptItemRange = 10
)

// Scripter runs a Lua routine for one agent.
type Scripter interface {
	RunRoutine(ctx scripting.RoutineContext) ([]scripting.Command, error)
}

// Policy is an immutable routine configuration. Only the fields relevant
// to Kind are read.
type Policy struct {
	Kind     Kind
	Name     string
	Target   grid.Ps // GoTo
	ItemType string  // Hunter; empty hunts anything
	Pick     bool    // Hunter: pick up instead of consuming in place
	Bed      ecs.EntityID
	Work     ecs.EntityID
	Script   string // Lua function; empty uses the default
	Scripter Scripter
	Log      *zap.Logger
}

// Run is the routine interpreter.
func (p Policy) Run(c agent.Controls, env agent.Env, prev mind.Result) {
	switch p.Kind {
	case RandomWalk:
		randomWalk(c, env, prev)
	case RandomStep:
		if prev != mind.None {
			randomStep(c, env)
		}
	case GoTo:
		p.goTo(c, env, prev)
	case Hunter:
		hunt(c, env, prev, p.ItemType, p.Pick)
	case Dog:
		dog(c, env, prev)
	case OfficeWorker:
		p.officeWorker(c, env, prev)
	case Scripted:
		p.scripted(c, env, prev)
	}
}

func randomWalk(c agent.Controls, env agent.Env, prev mind.Result) {
	switch prev {
	case mind.Success, mind.Undefined:
		if !c.Idle() {
			return
		}
		if target, ok := env.Map.RandomPassable(c.Rand(), true); ok {
			c.IntendGoTo(target)
			return
		}
		c.IntendWait(idleWaitCycles, 0)
	case mind.Failure:
		randomStep(c, env)
	}
}

// randomStep shakes a stuck agent loose by moving one free neighbour cell.
func randomStep(c agent.Controls, env agent.Env) {
	if !c.Idle() {
		return
	}
	cell := c.Cell()
	for _, i := range c.Rand().Perm(len(grid.Successors)) {
		next, err := cell.Add(grid.Successors[i])
		if err != nil {
			continue
		}
		if env.Map.IsPassable(next, true) {
			c.IntendGoTo(next)
			return
		}
	}
	c.IntendWait(idleWaitCycles, 0)
}

func (p Policy) goTo(c agent.Controls, env agent.Env, prev mind.Result) {
	switch prev {
	case mind.Undefined:
		if c.Idle() && c.Cell() != p.Target {
			c.IntendGoTo(p.Target)
		}
	case mind.Failure:
		randomStep(c, env)
	}
}

// hunt walks to the closest available item of a type and picks or consumes
// it, wandering when there is none.
func hunt(c agent.Controls, env agent.Env, prev mind.Result, typ string, pick bool) {
	switch prev {
	case mind.Success, mind.Undefined:
		if !c.Idle() {
			return
		}
		item, ok := env.Carriables.ClosestAvailable(typ, c.Cell())
		if !ok {
			randomWalk(c, env, prev)
			return
		}
		c.Intend(mind.GoTo(2, item.Pos))
		if pick {
			c.Intend(mind.Pick(1, typ))
		} else {
			c.Intend(mind.Consume(1, typ))
		}
	case mind.Failure:
		randomWalk(c, env, prev)
	}
}

// dog fetches bones and disposes of them in the closest trashcan.
func dog(c agent.Controls, env agent.Env, prev mind.Result) {
	if prev == mind.None || !c.Idle() {
		return
	}
	if !c.Carrying() {
		hunt(c, env, prev, items.TypeBone, true)
		return
	}
	can, ok := env.Carriables.ClosestAvailable(items.TypeTrashcan, c.Cell())
	if !ok {
		c.IntendWait(noTrashWaitCycles, 0)
		return
	}
	c.IntendGoTo(can.Pos)
	c.Intend(mind.ConsumeCarried(-1, ""))
	if away, ok := env.Map.RandomPassable(c.Rand(), false); ok {
		c.Intend(mind.GoNear(-2, away))
	}
}

// officeWorker works during office hours and sleeps at night.
func (p Policy) officeWorker(c agent.Controls, env agent.Env, prev mind.Result) {
	if prev == mind.Failure {
		randomStep(c, env)
		return
	}
	if prev == mind.None || !c.Idle() {
		return
	}
	now := env.Clock.Now()
	var (
		object  ecs.EntityID
		minutes int
	)
	switch {
	case now.Between(9, 18):
		object, minutes = p.Work, workUseMinutes
	case now.Between(22, 7):
		object, minutes = p.Bed, bedUseMinutes
	default:
		randomWalk(c, env, prev)
		return
	}
	obj, ok := env.Interactives.Get(object)
	if !ok {
		randomWalk(c, env, prev)
		return
	}
	c.Intend(mind.GoTo(1, obj.InteractPos()))
	c.IntendTimed(0, mind.Use(0, minutes), now)
}

func (p Policy) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

// scripted asks the Lua routine for goals whenever the previous goal
// settled. Without a usable script the agent wanders.
func (p Policy) scripted(c agent.Controls, env agent.Env, prev mind.Result) {
	if prev == mind.None {
		return
	}
	if p.Scripter == nil {
		randomWalk(c, env, prev)
		return
	}
	cmds, err := p.Scripter.RunRoutine(p.scriptContext(c, env, prev))
	if err != nil {
		p.logger().Debug("script routine failed", zap.Stringer("agent", c.ID()), zap.Error(err))
		randomWalk(c, env, prev)
		return
	}
	for _, cmd := range cmds {
		if cmd.Type == "reset" {
			c.ResetGoals()
			continue
		}
		g, err := commandGoal(cmd)
		if err != nil {
			p.logger().Warn("bad script command", zap.Stringer("agent", c.ID()), zap.Error(err))
			continue
		}
		c.Intend(g)
	}
}

func (p Policy) scriptContext(c agent.Controls, env agent.Env, prev mind.Result) scripting.RoutineContext {
	cell := c.Cell()
	now := env.Clock.Now()
	ctx := scripting.RoutineContext{
		Agent:    uint64(c.ID()),
		Name:     p.Name,
		Function: p.Script,
		X:        int(cell.X),
		Y:        int(cell.Y),
		Width:    int(env.Map.Width()),
		Height:   int(env.Map.Height()),
		Idle:     c.Idle(),
		Carrying: len(c.CarriedIDs()),
		Prev:     prev.String(),
		Day:      now.Days,
		Hour:     now.Hours,
		Minute:   now.Minutes,
	}
	env.Carriables.Each(func(it items.Carriable) {
		if !it.Available() {
			return
		}
		if d := it.Pos.Manhattan(cell); d <= scriptItemRange {
			ctx.Items = append(ctx.Items, scripting.ItemSighting{
				Type: it.Type, X: int(it.Pos.X), Y: int(it.Pos.Y), Dist: d,
			})
		}
	})
	sort.SliceStable(ctx.Items, func(i, j int) bool { return ctx.Items[i].Dist < ctx.Items[j].Dist })
	if len(ctx.Items) > scriptItemLimit {
		ctx.Items = ctx.Items[:scriptItemLimit]
	}
	return ctx
}

// commandGoal turns one script command into a goal.
func commandGoal(cmd scripting.Command) (mind.Goal, error) {
	switch cmd.Type {
	case "move", "move_near":
		target, err := grid.PsSigned{X: int32(cmd.X), Y: int32(cmd.Y)}.Unsigned()
		if err != nil {
			return mind.Goal{}, fmt.Errorf("%s target: %w", cmd.Type, err)
		}
		if cmd.Type == "move" {
			return mind.GoTo(cmd.Priority, target), nil
		}
		return mind.GoNear(cmd.Priority, target), nil
	case "wait":
		return mind.WaitCycles(cmd.Priority, cmd.Cycles), nil
	case "pick":
		return mind.Pick(cmd.Priority, cmd.ItemType), nil
	case "consume":
		return mind.Consume(cmd.Priority, cmd.ItemType), nil
	case "drop":
		return mind.Drop(cmd.Priority, cmd.ItemType), nil
	case "consume_carried":
		return mind.ConsumeCarried(cmd.Priority, cmd.ItemType), nil
	case "use":
		return mind.Use(cmd.Priority, cmd.Minutes), nil
	}
	return mind.Goal{}, fmt.Errorf("unknown command %q", cmd.Type)
}
