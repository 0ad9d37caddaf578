package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/gridsim/engine/internal/core/system"
	"github.com/gridsim/engine/internal/persist"
	"github.com/gridsim/engine/internal/world"
)

// Store is the subset of persist.Store the simulation writes to.
type Store interface {
	SaveCells(ctx context.Context, rows []persist.CellRow) error
	SaveAgents(ctx context.Context, runID string, tick uint64, agents []persist.AgentRow) error
	SaveStats(ctx context.Context, runID string, st persist.StatsRow) error
}

// PersistenceSystem periodically saves the cell side table, agent
// positions and run statistics. Phase 5 (Persist).
type PersistenceSystem struct {
	world     *world.State
	store     Store
	log       *zap.Logger
	tickCount int
	interval  int // save every N ticks
}

func NewPersistenceSystem(ws *world.State, store Store, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &PersistenceSystem{
		world:    ws,
		store:    store,
		log:      log.Named("persist"),
		interval: intervalTicks,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	if err := s.SaveAll(); err != nil {
		s.log.Error("auto-save failed", zap.Error(err))
	}
}

// SaveAll writes everything immediately. Also called on shutdown.
func (s *PersistenceSystem) SaveAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.SaveCells(ctx, CellRows(s.world.Cells)); err != nil {
		return err
	}
	tick := s.world.Tick()
	if err := s.store.SaveAgents(ctx, s.world.RunID, tick, AgentRows(s.world)); err != nil {
		return err
	}
	st := s.world.Stats
	if err := s.store.SaveStats(ctx, s.world.RunID, persist.StatsRow{
		Tick:      tick,
		Successes: st.Successes.Load(),
		Failures:  st.Failures.Load(),
		Consumed:  st.Consumed.Load(),
	}); err != nil {
		return err
	}
	s.log.Debug("saved", zap.Uint64("tick", tick), zap.Int("agents", s.world.AgentCount()))
	return nil
}

// CellRows converts the side table for storage.
func CellRows(t *world.CellTable) []persist.CellRow {
	snap := t.Snapshot()
	rows := make([]persist.CellRow, 0, len(snap))
	for _, e := range snap {
		rows = append(rows, persist.CellRow{
			X: e.Pos.X, Y: e.Pos.Y,
			Class: e.Class, Subclass: e.Subclass,
			OffsetX: e.Offset.X, OffsetY: e.Offset.Y,
		})
	}
	return rows
}

// RestoreCells loads stored rows back into the side table.
func RestoreCells(t *world.CellTable, rows []persist.CellRow) {
	entries := make([]world.PlacedEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, world.PlacedEntry{
			Pos: gridPs(r.X, r.Y),
			CellEntry: world.CellEntry{
				Class: r.Class, Subclass: r.Subclass,
				Offset: gridVec(r.OffsetX, r.OffsetY),
			},
		})
	}
	t.Restore(entries)
}

// AgentRows converts agent records for storage.
func AgentRows(ws *world.State) []persist.AgentRow {
	rows := make([]persist.AgentRow, 0, ws.AgentCount())
	ws.AllAgents(func(a *world.Agent) {
		cell := a.Sanity.Cell()
		defects, _ := a.Sanity.Defects()
		rows = append(rows, persist.AgentRow{
			ID:        uint64(a.ID),
			Name:      a.Name,
			Archetype: a.Archetype,
			X:         cell.X,
			Y:         cell.Y,
			Carried:   len(a.Sanity.CarriedIDs()),
			Defects:   defects,
		})
	})
	return rows
}
