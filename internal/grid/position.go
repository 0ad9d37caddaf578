package grid

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNegative is returned when a signed coordinate cannot be represented
	// as a cell index.
	ErrNegative = errors.New("negative cell coordinate")
	// ErrNotAdjacent is returned when two cells do not share an edge.
	ErrNotAdjacent = errors.New("cells are not adjacent")
)

// Ps is a cell index on the grid. Always non-negative.
type Ps struct {
	X uint32
	Y uint32
}

// PsSigned is the signed variant used for delta arithmetic and bounds checks.
type PsSigned struct {
	X int32
	Y int32
}

func (p Ps) String() string { return fmt.Sprintf("(%d, %d)", p.X, p.Y) }

func (p PsSigned) String() string { return fmt.Sprintf("(%d, %d)", p.X, p.Y) }

// Signed widens p for delta arithmetic.
func (p Ps) Signed() PsSigned {
	return PsSigned{X: int32(p.X), Y: int32(p.Y)}
}

// Unsigned converts back to a cell index, rejecting negative components.
func (p PsSigned) Unsigned() (Ps, error) {
	if p.X < 0 || p.Y < 0 {
		return Ps{}, fmt.Errorf("%v: %w", p, ErrNegative)
	}
	return Ps{X: uint32(p.X), Y: uint32(p.Y)}, nil
}

// Offset returns p shifted by d without bounds checks; callers validate the
// result against the map.
func (p Ps) Offset(d PsSigned) PsSigned {
	return PsSigned{X: int32(p.X) + d.X, Y: int32(p.Y) + d.Y}
}

// Add shifts p by d, failing when the result leaves the non-negative quadrant.
func (p Ps) Add(d PsSigned) (Ps, error) {
	return p.Offset(d).Unsigned()
}

// Sub returns the signed delta p - o.
func (p Ps) Sub(o Ps) PsSigned {
	return PsSigned{X: int32(p.X) - int32(o.X), Y: int32(p.Y) - int32(o.Y)}
}

// Manhattan returns |dx| + |dy|.
func (p Ps) Manhattan(o Ps) int {
	return absInt(int(p.X)-int(o.X)) + absInt(int(p.Y)-int(o.Y))
}

// Manhattan returns |dx| + |dy|.
func (p PsSigned) Manhattan(o PsSigned) int {
	return absInt(int(p.X)-int(o.X)) + absInt(int(p.Y)-int(o.Y))
}

// Vec returns the cell as a continuous position.
func (p Ps) Vec() Vec2 {
	return Vec2{X: float64(p.X), Y: float64(p.Y)}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Vec2 is a continuous 2D value, used for sub-cell offsets and draw positions.
type Vec2 struct {
	X float64
	Y float64
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Normalized scales v so that its larger component has magnitude 1.
func (v Vec2) Normalized() Vec2 {
	n := math.Max(math.Abs(v.X), math.Abs(v.Y))
	if n == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / n, Y: v.Y / n}
}

// Direction is one of the four orthogonal movement directions.
// Up increases Y.
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

var directionNames = [4]string{"up", "down", "left", "right"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", d)
}

// Delta returns the unit cell delta for d.
func (d Direction) Delta() PsSigned {
	switch d {
	case Up:
		return PsSigned{Y: 1}
	case Down:
		return PsSigned{Y: -1}
	case Left:
		return PsSigned{X: -1}
	default:
		return PsSigned{X: 1}
	}
}

// DirectionBetween derives the step direction from one cell to an adjacent
// one. Any non-unit delta is an invariant violation reported as ErrNotAdjacent.
func DirectionBetween(from, to Ps) (Direction, error) {
	d := to.Sub(from)
	switch {
	case d.X == 0 && d.Y == 1:
		return Up, nil
	case d.X == 0 && d.Y == -1:
		return Down, nil
	case d.Y == 0 && d.X == 1:
		return Right, nil
	case d.Y == 0 && d.X == -1:
		return Left, nil
	}
	return 0, fmt.Errorf("from %v to %v (delta %v): %w", from, to, d, ErrNotAdjacent)
}

// Successors are the four orthogonal neighbour deltas.
var Successors = [4]PsSigned{{X: 1}, {Y: 1}, {X: -1}, {Y: -1}}
