package persist

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CellRow is one entry of the per-cell side table.
type CellRow struct {
	X, Y     uint32
	Class    string
	Subclass string
	OffsetX  float64
	OffsetY  float64
}

// AgentRow is an agent position snapshot.
type AgentRow struct {
	ID        uint64
	Name      string
	Archetype string
	X, Y      uint32
	Carried   int
	Defects   int
}

// StatsRow aggregates goal outcomes up to a tick.
type StatsRow struct {
	Tick      uint64
	Successes int64
	Failures  int64
	Consumed  int64
}

// Store persists simulation snapshots through database/sql. Postgres goes
// through the pgx pool, SQLite through modernc.
type Store struct {
	db      *sql.DB
	pg      *DB // nil unless postgres
	dialect string
	log     *zap.Logger
}

func (s *Store) Dialect() string { return s.dialect }

func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		s.log.Warn("close store", zap.Error(err))
	}
	if s.pg != nil {
		s.pg.Close()
	}
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveCells replaces the whole side table.
func (s *Store) SaveCells(ctx context.Context, rows []CellRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cells begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cell_entries`); err != nil {
		return fmt.Errorf("cells clear: %w", err)
	}
	insert := s.rebind(`INSERT INTO cell_entries (x, y, class, subclass, offset_x, offset_y)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, insert,
			int64(r.X), int64(r.Y), r.Class, r.Subclass, r.OffsetX, r.OffsetY,
		); err != nil {
			return fmt.Errorf("cells insert (%d, %d) %s: %w", r.X, r.Y, r.Class, err)
		}
	}
	return tx.Commit()
}

// LoadCells returns the side table ordered by row, column, class.
func (s *Store) LoadCells(ctx context.Context) ([]CellRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT x, y, class, subclass, offset_x, offset_y
		 FROM cell_entries ORDER BY y, x, class`)
	if err != nil {
		return nil, fmt.Errorf("cells query: %w", err)
	}
	defer rows.Close()

	var result []CellRow
	for rows.Next() {
		var (
			r    CellRow
			x, y int64
		)
		if err := rows.Scan(&x, &y, &r.Class, &r.Subclass, &r.OffsetX, &r.OffsetY); err != nil {
			return nil, fmt.Errorf("cells scan: %w", err)
		}
		r.X, r.Y = uint32(x), uint32(y)
		result = append(result, r)
	}
	return result, rows.Err()
}

// SaveAgents replaces the snapshot of one run.
func (s *Store) SaveAgents(ctx context.Context, runID string, tick uint64, agents []AgentRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("agents begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM agent_snapshots WHERE run_id = ?`), runID); err != nil {
		return fmt.Errorf("agents clear: %w", err)
	}
	now := time.Now().Unix()
	insert := s.rebind(`INSERT INTO agent_snapshots
		(run_id, agent_id, name, archetype, x, y, carried, defects, tick, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, a := range agents {
		if _, err := tx.ExecContext(ctx, insert,
			runID, int64(a.ID), a.Name, a.Archetype, int64(a.X), int64(a.Y),
			a.Carried, a.Defects, int64(tick), now,
		); err != nil {
			return fmt.Errorf("agents insert %d: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// LoadAgents returns the latest snapshot of a run ordered by agent id.
func (s *Store) LoadAgents(ctx context.Context, runID string) ([]AgentRow, uint64, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT agent_id, name, archetype, x, y, carried, defects, tick
		 FROM agent_snapshots WHERE run_id = ? ORDER BY agent_id`), runID)
	if err != nil {
		return nil, 0, fmt.Errorf("agents query: %w", err)
	}
	defer rows.Close()

	var (
		result []AgentRow
		tick   int64
	)
	for rows.Next() {
		var (
			a        AgentRow
			id, x, y int64
		)
		if err := rows.Scan(&id, &a.Name, &a.Archetype, &x, &y, &a.Carried, &a.Defects, &tick); err != nil {
			return nil, 0, fmt.Errorf("agents scan: %w", err)
		}
		a.ID, a.X, a.Y = uint64(id), uint32(x), uint32(y)
		result = append(result, a)
	}
	return result, uint64(tick), rows.Err()
}

// SaveStats appends one stats sample for a run.
func (s *Store) SaveStats(ctx context.Context, runID string, st StatsRow) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO goal_stats (run_id, tick, successes, failures, consumed) VALUES (?, ?, ?, ?, ?)`),
		runID, int64(st.Tick), st.Successes, st.Failures, st.Consumed,
	)
	if err != nil {
		return fmt.Errorf("stats insert: %w", err)
	}
	return nil
}

// LatestStats returns the most recent stats sample of a run.
func (s *Store) LatestStats(ctx context.Context, runID string) (StatsRow, error) {
	var (
		st   StatsRow
		tick int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT tick, successes, failures, consumed FROM goal_stats
		 WHERE run_id = ? ORDER BY tick DESC LIMIT 1`), runID,
	).Scan(&tick, &st.Successes, &st.Failures, &st.Consumed)
	if err != nil {
		return StatsRow{}, fmt.Errorf("stats query: %w", err)
	}
	st.Tick = uint64(tick)
	return st, nil
}
