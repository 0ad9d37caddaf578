package items

import (
	"fmt"
	"sync"

	"github.com/gridsim/engine/internal/core/ecs"
	"github.com/gridsim/engine/internal/grid"
)

// Interactive is a stationary object (bed, workstation) used by one agent
// at a time from its interaction cell.
type Interactive struct {
	ID             ecs.EntityID
	Type           string
	Pos            grid.Ps
	InteractOffset grid.PsSigned
	UsedBy         ecs.EntityID
	Assigned       bool
}

// InteractPos is the cell an agent stands on to use the object.
func (o Interactive) InteractPos() grid.Ps {
	p, err := o.Pos.Add(o.InteractOffset)
	if err != nil {
		return o.Pos
	}
	return p
}

func (o Interactive) Available() bool { return !o.Assigned && o.UsedBy.IsZero() }

type Interactives struct {
	mu    sync.Mutex
	store *ecs.PtrComponentStore[Interactive]
}

func NewInteractives() *Interactives {
	return &Interactives{store: ecs.NewPtrComponentStore[Interactive]()}
}

func (r *Interactives) Add(o Interactive) {
	r.mu.Lock()
	r.store.Set(o.ID, &o)
	r.mu.Unlock()
}

func (r *Interactives) Get(id ecs.EntityID) (Interactive, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.store.Get(id)
	if !ok {
		return Interactive{}, false
	}
	return *o, true
}

func (r *Interactives) Remove(id ecs.EntityID) {
	r.mu.Lock()
	r.store.Remove(id)
	r.mu.Unlock()
}

func (r *Interactives) findAt(at grid.Ps) *Interactive {
	var found *Interactive
	r.store.Each(func(id ecs.EntityID, o *Interactive) {
		if o.InteractPos() == at && (found == nil || id < found.ID) {
			found = o
		}
	})
	return found
}

// FindAt returns the object whose interaction cell is at.
func (r *Interactives) FindAt(at grid.Ps) (Interactive, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.findAt(at)
	if o == nil {
		return Interactive{}, false
	}
	return *o, true
}

// Claim starts using the object at the interaction cell. Claiming an object
// the agent already uses succeeds without change.
func (r *Interactives) Claim(at grid.Ps, agent ecs.EntityID) (Interactive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.findAt(at)
	if o == nil {
		return Interactive{}, fmt.Errorf("claim at %v: %w", at, ErrNotFound)
	}
	if !o.UsedBy.IsZero() && o.UsedBy != agent {
		return *o, fmt.Errorf("claim %v used by %v: %w", o.ID, o.UsedBy, ErrClaimed)
	}
	o.UsedBy = agent
	return *o, nil
}

// Release stops using the object at the interaction cell.
func (r *Interactives) Release(at grid.Ps, agent ecs.EntityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.findAt(at)
	if o == nil {
		return fmt.Errorf("release at %v: %w", at, ErrNotFound)
	}
	if o.UsedBy != agent {
		return fmt.Errorf("release %v used by %v: %w", o.ID, o.UsedBy, ErrClaimed)
	}
	o.UsedBy = 0
	return nil
}

// Assign reserves the object permanently for one owner.
func (r *Interactives) Assign(id ecs.EntityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.store.Get(id)
	if !ok {
		return fmt.Errorf("assign %v: %w", id, ErrNotFound)
	}
	if o.Assigned {
		return fmt.Errorf("assign %v: %w", id, ErrUnavailable)
	}
	o.Assigned = true
	return nil
}

// FindAvailable returns the lowest-id available object of typ.
func (r *Interactives) FindAvailable(typ string) (Interactive, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *Interactive
	r.store.Each(func(id ecs.EntityID, o *Interactive) {
		if o.Type == typ && o.Available() && (found == nil || id < found.ID) {
			found = o
		}
	})
	if found == nil {
		return Interactive{}, false
	}
	return *found, true
}

// AssignAvailable finds and assigns an object of typ in one step.
func (r *Interactives) AssignAvailable(typ string) (Interactive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *Interactive
	r.store.Each(func(id ecs.EntityID, o *Interactive) {
		if o.Type == typ && o.Available() && (found == nil || id < found.ID) {
			found = o
		}
	})
	if found == nil {
		return Interactive{}, fmt.Errorf("assign %q: %w", typ, ErrNotFound)
	}
	found.Assigned = true
	return *found, nil
}

func (r *Interactives) Each(fn func(Interactive)) {
	r.mu.Lock()
	snapshot := make([]Interactive, 0, r.store.Len())
	r.store.Sorted(func(_ ecs.EntityID, o *Interactive) {
		snapshot = append(snapshot, *o)
	})
	r.mu.Unlock()
	for _, o := range snapshot {
		fn(o)
	}
}
