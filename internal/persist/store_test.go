package persist

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gridsim/engine/internal/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver: DialectSQLite,
		DSN:    filepath.Join(t.TempDir(), "gridsim.db"),
	}
	s, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestCellsReplaceAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCells(ctx, []CellRow{
		{X: 3, Y: 1, Class: "decor", Subclass: "plant", OffsetX: 0.25},
		{X: 1, Y: 1, Class: "decor", Subclass: "rug"},
		{X: 1, Y: 1, Class: "sound", Subclass: "hum", OffsetY: -0.5},
	}))
	got, err := s.LoadCells(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, CellRow{X: 1, Y: 1, Class: "decor", Subclass: "rug"}, got[0])
	assert.Equal(t, "sound", got[1].Class)
	assert.Equal(t, -0.5, got[1].OffsetY)
	assert.Equal(t, uint32(3), got[2].X)

	require.NoError(t, s.SaveCells(ctx, []CellRow{{X: 0, Y: 0, Class: "decor", Subclass: "lamp"}}))
	got, err = s.LoadCells(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAgentsSnapshotPerRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAgents(ctx, "run-a", 10, []AgentRow{
		{ID: 2, Name: "rex", Archetype: "dog", X: 4, Y: 5, Carried: 1},
		{ID: 1, Name: "ann", Archetype: "worker", X: 1, Y: 1},
	}))
	require.NoError(t, s.SaveAgents(ctx, "run-b", 3, []AgentRow{{ID: 9, Name: "bob", Archetype: "wanderer"}}))
	require.NoError(t, s.SaveAgents(ctx, "run-a", 20, []AgentRow{
		{ID: 1, Name: "ann", Archetype: "worker", X: 2, Y: 1, Defects: 1},
	}))

	got, tick, err := s.LoadAgents(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, uint64(20), tick)
	assert.Equal(t, []AgentRow{{ID: 1, Name: "ann", Archetype: "worker", X: 2, Y: 1, Defects: 1}}, got)

	got, _, err = s.LoadAgents(ctx, "run-b")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LatestStats(ctx, "run")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, s.SaveStats(ctx, "run", StatsRow{Tick: 5, Successes: 3}))
	require.NoError(t, s.SaveStats(ctx, "run", StatsRow{Tick: 9, Successes: 4, Failures: 2, Consumed: 1}))
	st, err := s.LatestStats(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, StatsRow{Tick: 9, Successes: 4, Failures: 2, Consumed: 1}, st)
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	lite := &Store{dialect: DialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql"}, zap.NewNop())
	assert.Error(t, err)
}
