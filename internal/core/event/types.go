package event

import (
	"github.com/gridsim/engine/internal/core/ecs"
	"github.com/gridsim/engine/internal/grid"
	"github.com/gridsim/engine/internal/mind"
)

// ItemConsumed is emitted once per consumed carriable, right before the
// item is queued for removal.
type ItemConsumed struct {
	Item ecs.EntityID
	Type string
	Pos  grid.Ps
}

// GoalFinished is emitted whenever an agent's goal level reports Success or
// Failure.
type GoalFinished struct {
	Agent  ecs.EntityID
	Result mind.Result
	Tick   uint64
}
