package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/gridsim/engine/internal/core/event"
	coresys "github.com/gridsim/engine/internal/core/system"
	"github.com/gridsim/engine/internal/items"
	"github.com/gridsim/engine/internal/world"
)

// ClassRemains marks cells where a carriable was consumed.
const ClassRemains = "remains"

// CleanupSystem queues consumed carriables for destruction, announces them
// and flushes the deferred entity destruction queue at tick end. With
// respawn enabled every consumed bone is replaced on a random cell when the
// event is delivered next tick. Phase 6 (Cleanup).
type CleanupSystem struct {
	world *world.State
	log   *zap.Logger
}

func NewCleanupSystem(ws *world.State, respawn bool, log *zap.Logger) *CleanupSystem {
	s := &CleanupSystem{world: ws, log: log.Named("cleanup")}
	if respawn {
		event.Subscribe(ws.Bus, s.respawn)
	}
	return s
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	for _, id := range s.world.Carriables.Consumed() {
		item, ok := s.world.Carriables.Get(id)
		if !ok {
			continue
		}
		s.world.Cells.Put(item.Pos, world.CellEntry{Class: ClassRemains, Subclass: item.Type, Offset: item.Offset})
		event.Emit(s.world.Bus, event.ItemConsumed{Item: id, Type: item.Type, Pos: item.Pos})
		s.world.Entities.MarkForDestruction(id)
	}
	s.world.Entities.FlushDestroyQueue()
}

func (s *CleanupSystem) respawn(e event.ItemConsumed) {
	if e.Type != items.TypeBone {
		return
	}
	id, err := s.world.SpawnItemRandom(items.TypeBone)
	if err != nil {
		s.log.Warn("respawn failed", zap.String("type", e.Type), zap.Error(err))
		return
	}
	s.log.Debug("item respawned", zap.Stringer("old", e.Item), zap.Stringer("new", id))
}
