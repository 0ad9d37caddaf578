// Package items holds the shared registries of world objects agents can
// carry or use, and the per-agent Carrier set.
//
// Registries are arenas keyed by ecs.EntityID. Each has its own mutex held
// for a single lookup or mutation; callbacks never run under it.
package items

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/gridsim/engine/internal/core/ecs"
	"github.com/gridsim/engine/internal/grid"
)

const (
	TypeBone        = "bone"
	TypeTrashcan    = "trashcan"
	TypeBed         = "bed"
	TypeWorkstation = "workstation"
)

var (
	ErrNotFound    = errors.New("item not found")
	ErrUnavailable = errors.New("item unavailable")
	ErrClaimed     = errors.New("object claimed by another agent")
)

// Carriable is a world item that can be picked up, dropped and consumed.
type Carriable struct {
	ID       ecs.EntityID
	Type     string
	Pos      grid.Ps
	Offset   grid.Vec2
	Personal grid.Vec2
	TakenBy  ecs.EntityID
	Consumed bool
}

// NewCarriable places an item with a random personal offset so several
// carried items do not overlap.
func NewCarriable(id ecs.EntityID, typ string, pos grid.Ps, rng *rand.Rand) Carriable {
	off := grid.Vec2{X: rng.Float64()*0.4 - 0.2, Y: 0.01 + rng.Float64()*0.19}
	return Carriable{ID: id, Type: typ, Pos: pos, Offset: off, Personal: off}
}

func (c Carriable) Available() bool { return !c.Consumed && c.TakenBy.IsZero() }

func (c Carriable) DrawPos() grid.Vec2 { return c.Pos.Vec().Add(c.Offset) }

func (c Carriable) matches(typ string) bool { return typ == "" || c.Type == typ }

// Carriables is the shared carriable registry.
type Carriables struct {
	mu    sync.Mutex
	store *ecs.PtrComponentStore[Carriable]
}

func NewCarriables() *Carriables {
	return &Carriables{store: ecs.NewPtrComponentStore[Carriable]()}
}

func (r *Carriables) Add(c Carriable) {
	r.mu.Lock()
	r.store.Set(c.ID, &c)
	r.mu.Unlock()
}

func (r *Carriables) Get(id ecs.EntityID) (Carriable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.store.Get(id)
	if !ok {
		return Carriable{}, false
	}
	return *c, true
}

// Remove implements ecs.Removable.
func (r *Carriables) Remove(id ecs.EntityID) {
	r.mu.Lock()
	r.store.Remove(id)
	r.mu.Unlock()
}

func (r *Carriables) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Len()
}

// Take marks an available item as held by agent.
func (r *Carriables) Take(id, agent ecs.EntityID) error {
	return r.ApplyTo(id, func(c *Carriable) error {
		if !c.Available() {
			return fmt.Errorf("take %v: %w", id, ErrUnavailable)
		}
		c.TakenBy = agent
		return nil
	})
}

// Release clears the holder. Only the current holder may release.
func (r *Carriables) Release(id, agent ecs.EntityID) error {
	return r.ApplyTo(id, func(c *Carriable) error {
		if c.TakenBy != agent {
			return fmt.Errorf("release %v held by %v: %w", id, c.TakenBy, ErrUnavailable)
		}
		c.TakenBy = 0
		return nil
	})
}

// Consume is one-way. Consuming twice fails with ErrUnavailable.
func (r *Carriables) Consume(id ecs.EntityID) error {
	return r.ApplyTo(id, func(c *Carriable) error {
		if c.Consumed {
			return fmt.Errorf("consume %v: %w", id, ErrUnavailable)
		}
		c.Consumed = true
		c.TakenBy = 0
		return nil
	})
}

// ApplyTo runs fn on the stored item under the registry lock. fn must not
// call back into the registry.
func (r *Carriables) ApplyTo(id ecs.EntityID, fn func(*Carriable) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.store.Get(id)
	if !ok {
		return fmt.Errorf("%v: %w", id, ErrNotFound)
	}
	return fn(c)
}

// FindAt returns the lowest-id item at pos matching typ ("" for any).
func (r *Carriables) FindAt(pos grid.Ps, typ string, availableOnly bool) (Carriable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.findAt(pos, typ, availableOnly)
	if c == nil {
		return Carriable{}, false
	}
	return *c, true
}

func (r *Carriables) findAt(pos grid.Ps, typ string, availableOnly bool) *Carriable {
	var found *Carriable
	r.store.Each(func(id ecs.EntityID, c *Carriable) {
		if c.Pos != pos || !c.matches(typ) || (availableOnly && !c.Available()) {
			return
		}
		if found == nil || id < found.ID {
			found = c
		}
	})
	return found
}

// TakeAt finds an available item at pos and marks it held in one step.
func (r *Carriables) TakeAt(pos grid.Ps, typ string, agent ecs.EntityID) (Carriable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.findAt(pos, typ, true)
	if c == nil {
		return Carriable{}, fmt.Errorf("pick %q at %v: %w", typ, pos, ErrNotFound)
	}
	c.TakenBy = agent
	return *c, nil
}

// ConsumeAt consumes an available item lying at pos.
func (r *Carriables) ConsumeAt(pos grid.Ps, typ string) (Carriable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.findAt(pos, typ, true)
	if c == nil {
		return Carriable{}, fmt.Errorf("consume %q at %v: %w", typ, pos, ErrNotFound)
	}
	c.Consumed = true
	return *c, nil
}

// ClosestAvailable returns the available item of typ nearest to from by
// Manhattan distance, ties going to the lower id.
func (r *Carriables) ClosestAvailable(typ string, from grid.Ps) (Carriable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *Carriable
	bestDist := 0
	r.store.Each(func(id ecs.EntityID, c *Carriable) {
		if !c.matches(typ) || !c.Available() {
			return
		}
		d := from.Manhattan(c.Pos)
		if best == nil || d < bestDist || (d == bestDist && id < best.ID) {
			best, bestDist = c, d
		}
	})
	if best == nil {
		return Carriable{}, false
	}
	return *best, true
}

// Consumed lists consumed item ids in ascending order.
func (r *Carriables) Consumed() []ecs.EntityID {
	var out []ecs.EntityID
	r.Each(func(c Carriable) {
		if c.Consumed {
			out = append(out, c.ID)
		}
	})
	return out
}

// Each calls fn with a copy of every item in id order. The lock is released
// before fn runs.
func (r *Carriables) Each(fn func(Carriable)) {
	r.mu.Lock()
	snapshot := make([]Carriable, 0, r.store.Len())
	r.store.Sorted(func(_ ecs.EntityID, c *Carriable) {
		snapshot = append(snapshot, *c)
	})
	r.mu.Unlock()
	for _, c := range snapshot {
		fn(c)
	}
}
