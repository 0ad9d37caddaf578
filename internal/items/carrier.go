package items

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gridsim/engine/internal/core/ecs"
	"github.com/gridsim/engine/internal/grid"
)

// Carrier is the set of items one agent holds. It belongs to that agent and
// is not synchronised.
type Carrier struct {
	owner ecs.EntityID
	held  map[ecs.EntityID]struct{}
}

func NewCarrier(owner ecs.EntityID) *Carrier {
	return &Carrier{owner: owner, held: make(map[ecs.EntityID]struct{})}
}

func (c *Carrier) Has(id ecs.EntityID) bool {
	_, ok := c.held[id]
	return ok
}

func (c *Carrier) Any() bool { return len(c.held) > 0 }

// IDs returns held ids in ascending order.
func (c *Carrier) IDs() []ecs.EntityID {
	out := make([]ecs.EntityID, 0, len(c.held))
	for id := range c.held {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PickUp takes an available item of typ ("" for any) lying at pos.
func (c *Carrier) PickUp(reg *Carriables, pos grid.Ps, typ string) (Carriable, error) {
	item, err := reg.TakeAt(pos, typ, c.owner)
	if err != nil {
		return Carriable{}, err
	}
	c.held[item.ID] = struct{}{}
	return item, nil
}

// Drop puts one held item of typ down at pos.
func (c *Carrier) Drop(reg *Carriables, pos grid.Ps, typ string) (Carriable, error) {
	return c.release(reg, typ, "drop", func(item *Carriable) {
		item.TakenBy = 0
		item.Pos = pos
		item.Offset = item.Personal
	})
}

// ConsumeCarried consumes one held item of typ. The item stays consumed and
// unowned for good.
func (c *Carrier) ConsumeCarried(reg *Carriables, typ string) (Carriable, error) {
	return c.release(reg, typ, "consume carried", func(item *Carriable) {
		item.TakenBy = 0
		item.Consumed = true
	})
}

func (c *Carrier) release(reg *Carriables, typ, op string, apply func(*Carriable)) (Carriable, error) {
	var done Carriable
	for _, id := range c.IDs() {
		err := reg.ApplyTo(id, func(item *Carriable) error {
			if !item.matches(typ) || item.TakenBy != c.owner {
				return ErrUnavailable
			}
			apply(item)
			done = *item
			return nil
		})
		switch {
		case err == nil:
			delete(c.held, id)
			return done, nil
		case errors.Is(err, ErrNotFound):
			delete(c.held, id)
		}
	}
	return Carriable{}, fmt.Errorf("%s %q: %w", op, typ, ErrNotFound)
}

// UpdatePositions moves held items along with the holder. Ids no longer in
// the registry are forgotten.
func (c *Carrier) UpdatePositions(reg *Carriables, pos grid.Ps, offset grid.Vec2) {
	for id := range c.held {
		err := reg.ApplyTo(id, func(item *Carriable) error {
			item.Pos = pos
			item.Offset = offset.Add(item.Personal)
			return nil
		})
		if err != nil {
			delete(c.held, id)
		}
	}
}
