package routing

import (
	"fmt"

	"github.com/gridsim/engine/internal/grid"
)

// Motion is the physical side of movement. Pos is the logical cell and
// changes the moment a step begins; Offset then shrinks from the entry
// edge toward zero for drawing.
type Motion struct {
	Pos    grid.Ps
	Offset grid.Vec2
	Speed  float64

	dir       grid.Direction
	moving    bool
	threshold float64
}

func NewMotion(pos grid.Ps, speed, threshold float64) Motion {
	return Motion{Pos: pos, Speed: speed, threshold: threshold}
}

// Direction returns the direction of the step in progress.
func (m *Motion) Direction() (grid.Direction, bool) { return m.dir, m.moving }

func (m *Motion) Moving() bool { return m.moving }

// Start begins a step: the cell changes immediately and the offset is set
// to the edge the agent enters from.
func (m *Motion) Start(dir grid.Direction) error {
	next, err := m.Pos.Add(dir.Delta())
	if err != nil {
		return fmt.Errorf("step %s from %v: %w", dir, m.Pos, err)
	}
	m.Pos = next
	switch dir {
	case grid.Up:
		m.Offset.Y = -1
	case grid.Down:
		m.Offset.Y = 1
	case grid.Left:
		m.Offset.X = 1
	case grid.Right:
		m.Offset.X = -1
	}
	m.dir = dir
	m.moving = true
	return nil
}

// Advance moves the offset toward zero by Speed*dt and reports arrival.
// Arrival clears the direction and zeroes the offset.
func (m *Motion) Advance(dt float64) bool {
	if !m.moving {
		return false
	}
	ds := m.Speed * dt
	var arrived bool
	switch m.dir {
	case grid.Up:
		m.Offset.Y += ds
		arrived = m.Offset.Y > -m.threshold
	case grid.Down:
		m.Offset.Y -= ds
		arrived = m.Offset.Y < m.threshold
	case grid.Left:
		m.Offset.X -= ds
		arrived = m.Offset.X < m.threshold
	case grid.Right:
		m.Offset.X += ds
		arrived = m.Offset.X > -m.threshold
	}
	if arrived {
		m.moving = false
		m.Offset = grid.Vec2{}
	}
	return arrived
}

// DrawPos is the cell plus the sub-cell offset.
func (m *Motion) DrawPos() grid.Vec2 {
	return m.Pos.Vec().Add(m.Offset)
}
