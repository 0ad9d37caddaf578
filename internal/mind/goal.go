// Package mind holds an agent's goals: the prioritised Cortex queue, the
// wait-cycle counter and a short memory of how recent goals ended.
package mind

import (
	"fmt"

	"github.com/gridsim/engine/internal/grid"
)

// MinPriority is reported by an empty Cortex.
const MinPriority = -1000

// GoalKind selects the interpreter that runs a goal.
type GoalKind uint8

const (
	MoveNear GoalKind = iota // reach a cell within distance 1 of Target
	MoveExact
	Wait
	PickType
	PickAny
	ConsumeType
	ConsumeAny
	DropType
	DropAny
	ConsumeCarriedType
	ConsumeCarriedAny
	UseMinutes
)

var goalKindNames = [...]string{
	MoveNear:           "move_near",
	MoveExact:          "move_exact",
	Wait:               "wait",
	PickType:           "pick_type",
	PickAny:            "pick_any",
	ConsumeType:        "consume_type",
	ConsumeAny:         "consume_any",
	DropType:           "drop_type",
	DropAny:            "drop_any",
	ConsumeCarriedType: "consume_carried_type",
	ConsumeCarriedAny:  "consume_carried_any",
	UseMinutes:         "use_minutes",
}

func (k GoalKind) String() string {
	if int(k) < len(goalKindNames) {
		return goalKindNames[k]
	}
	return fmt.Sprintf("goal(%d)", k)
}

// IsMove reports whether the goal is interpreted by the movement logic.
func (k GoalKind) IsMove() bool { return k == MoveNear || k == MoveExact }

// Goal is one prioritised unit of intent. Only the fields relevant to Kind
// are meaningful.
type Goal struct {
	Priority int
	Kind     GoalKind
	Target   grid.Ps
	ItemType string
	Cycles   int
	Minutes  int
}

func (g Goal) String() string {
	switch g.Kind {
	case MoveNear, MoveExact:
		return fmt.Sprintf("%s%v@%d", g.Kind, g.Target, g.Priority)
	case Wait:
		return fmt.Sprintf("wait(%d)@%d", g.Cycles, g.Priority)
	case UseMinutes:
		return fmt.Sprintf("use(%dm)@%d", g.Minutes, g.Priority)
	case PickType, ConsumeType, DropType, ConsumeCarriedType:
		return fmt.Sprintf("%s(%s)@%d", g.Kind, g.ItemType, g.Priority)
	}
	return fmt.Sprintf("%s@%d", g.Kind, g.Priority)
}

func GoTo(priority int, target grid.Ps) Goal {
	return Goal{Priority: priority, Kind: MoveExact, Target: target}
}

func GoNear(priority int, target grid.Ps) Goal {
	return Goal{Priority: priority, Kind: MoveNear, Target: target}
}

func WaitCycles(priority, cycles int) Goal {
	return Goal{Priority: priority, Kind: Wait, Cycles: cycles}
}

// Pick picks an item at the agent's cell. An empty itemType matches any.
func Pick(priority int, itemType string) Goal {
	if itemType == "" {
		return Goal{Priority: priority, Kind: PickAny}
	}
	return Goal{Priority: priority, Kind: PickType, ItemType: itemType}
}

// Consume consumes an item lying at the agent's cell.
func Consume(priority int, itemType string) Goal {
	if itemType == "" {
		return Goal{Priority: priority, Kind: ConsumeAny}
	}
	return Goal{Priority: priority, Kind: ConsumeType, ItemType: itemType}
}

// Drop drops a carried item at the agent's cell.
func Drop(priority int, itemType string) Goal {
	if itemType == "" {
		return Goal{Priority: priority, Kind: DropAny}
	}
	return Goal{Priority: priority, Kind: DropType, ItemType: itemType}
}

// ConsumeCarried consumes an item from the agent's own holdings.
func ConsumeCarried(priority int, itemType string) Goal {
	if itemType == "" {
		return Goal{Priority: priority, Kind: ConsumeCarriedAny}
	}
	return Goal{Priority: priority, Kind: ConsumeCarriedType, ItemType: itemType}
}

func Use(priority, minutes int) Goal {
	return Goal{Priority: priority, Kind: UseMinutes, Minutes: minutes}
}

// Result is the completion signal a goal reports for one tick. The routine
// level reads it on the following tick.
type Result uint8

const (
	// Undefined means there was no goal to run.
	Undefined Result = iota
	// None means the goal is still in progress.
	None
	Success
	Failure
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case None:
		return "none"
	}
	return "undefined"
}
