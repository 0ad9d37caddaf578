package world

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gridsim/engine/internal/agent"
	"github.com/gridsim/engine/internal/comm"
	"github.com/gridsim/engine/internal/config"
	"github.com/gridsim/engine/internal/core/ecs"
	"github.com/gridsim/engine/internal/grid"
	"github.com/gridsim/engine/internal/items"
	"github.com/gridsim/engine/internal/routine"
)

// ClassFurniture marks cells holding a stationary object in the side table.
const ClassFurniture = "furniture"

var (
	ErrCellTaken = errors.New("cell not free")
	ErrNoRoom    = errors.New("no free cell left")
)

// Archetype names, as used in config and snapshots.
const (
	ArchetypeDog      = "dog"
	ArchetypeWorker   = "worker"
	ArchetypeWanderer = "wanderer"
	ArchetypeHunter   = "hunter"
	ArchetypeScripted = "scripted"
)

// SpawnItem places a carriable.
func (s *State) SpawnItem(typ string, pos grid.Ps) (ecs.EntityID, error) {
	if !s.Map.IsPassable(pos, false) {
		return 0, fmt.Errorf("spawn %s at %v: %w", typ, pos, ErrCellTaken)
	}
	id := s.Entities.CreateEntity()
	s.Carriables.Add(items.NewCarriable(id, typ, pos, s.rng))
	if typ == items.TypeTrashcan {
		s.Cells.Put(pos, CellEntry{Class: ClassFurniture, Subclass: typ})
	}
	return id, nil
}

// SpawnItemRandom places a carriable on a random passable cell.
func (s *State) SpawnItemRandom(typ string) (ecs.EntityID, error) {
	pos, ok := s.Map.RandomPassable(s.rng, false)
	if !ok {
		return 0, fmt.Errorf("spawn %s: %w", typ, ErrNoRoom)
	}
	return s.SpawnItem(typ, pos)
}

// SpawnInteractive places a stationary object. Its interaction cell must
// be passable.
func (s *State) SpawnInteractive(typ string, pos grid.Ps, offset grid.PsSigned) (ecs.EntityID, error) {
	at := pos.Offset(offset)
	if !s.Map.IsPassableSigned(at, false) {
		return 0, fmt.Errorf("spawn %s at %v: interaction cell %v: %w", typ, pos, at, ErrCellTaken)
	}
	id := s.Entities.CreateEntity()
	s.Interactives.Add(items.Interactive{ID: id, Type: typ, Pos: pos, InteractOffset: offset})
	s.Cells.Put(pos, CellEntry{
		Class:    ClassFurniture,
		Subclass: typ,
		Offset:   grid.Vec2{X: float64(offset.X), Y: float64(offset.Y)},
	})
	return id, nil
}

// SpawnInteractiveRandom places an object on a random passable cell, facing
// the first passable neighbour.
func (s *State) SpawnInteractiveRandom(typ string) (ecs.EntityID, error) {
	pos, ok := s.Map.RandomPassable(s.rng, false)
	if !ok {
		return 0, fmt.Errorf("spawn %s: %w", typ, ErrNoRoom)
	}
	offset := grid.PsSigned{}
	for _, i := range s.rng.Perm(len(grid.Successors)) {
		if s.Map.IsPassableSigned(pos.Offset(grid.Successors[i]), false) {
			offset = grid.Successors[i]
			break
		}
	}
	return s.SpawnInteractive(typ, pos, offset)
}

// SpawnAgent creates an agent on a free cell and runs the spawn-time
// initialisation of its routine. Office workers get a bed and a workstation
// assigned here.
func (s *State) SpawnAgent(name, archetype string, policy routine.Policy, pos grid.Ps, speed float64) (*Agent, error) {
	if _, taken := s.byName[name]; taken {
		return nil, fmt.Errorf("spawn agent %q: duplicate name", name)
	}
	if !s.Map.IsPassable(pos, true) {
		return nil, fmt.Errorf("spawn agent %q at %v: %w", name, pos, ErrCellTaken)
	}
	id := s.Entities.CreateEntity()
	s.Map.Occupy(pos)

	policy.Name = name
	if policy.Log == nil {
		policy.Log = s.log.Named("routine").With(zap.String("agent", name))
	}
	if policy.Kind == routine.OfficeWorker {
		s.assignFurniture(&policy, name)
	}

	a := &Agent{
		ID:        id,
		Name:      name,
		Archetype: archetype,
		Policy:    policy,
		Sanity:    agent.New(id, pos, speed, s.Tuning, s.NewRand(name), s.log.Named("agent").With(zap.String("name", name))),
		Comm:      comm.NewCommunicator(pos),
		Known:     make(map[ecs.EntityID]struct{}),
	}
	s.AddAgent(a)
	s.log.Debug("agent spawned",
		zap.String("name", name), zap.String("archetype", archetype),
		zap.Stringer("routine", policy.Kind), zap.Stringer("cell", pos), zap.Float64("speed", speed))
	return a, nil
}

// SpawnAgentRandom spawns on a random free cell.
func (s *State) SpawnAgentRandom(name, archetype string, policy routine.Policy, speed float64) (*Agent, error) {
	pos, ok := s.Map.RandomPassable(s.rng, true)
	if !ok {
		return nil, fmt.Errorf("spawn agent %q: %w", name, ErrNoRoom)
	}
	return s.SpawnAgent(name, archetype, policy, pos, speed)
}

func (s *State) assignFurniture(p *routine.Policy, name string) {
	if bed, err := s.Interactives.AssignAvailable(items.TypeBed); err == nil {
		p.Bed = bed.ID
	} else {
		s.log.Warn("worker has no bed", zap.String("agent", name), zap.Error(err))
	}
	if work, err := s.Interactives.AssignAvailable(items.TypeWorkstation); err == nil {
		p.Work = work.ID
	} else {
		s.log.Warn("worker has no workstation", zap.String("agent", name), zap.Error(err))
	}
}

// Populate fills the world from config: items first, then furniture, then
// agents, so spawn hooks can find what they need.
func (s *State) Populate(cfg config.WorldConfig, mv config.MovementConfig, scripter routine.Scripter) error {
	for i := 0; i < cfg.Trashcans; i++ {
		if _, err := s.SpawnItemRandom(items.TypeTrashcan); err != nil {
			return err
		}
	}
	for i := 0; i < cfg.Bones; i++ {
		if _, err := s.SpawnItemRandom(items.TypeBone); err != nil {
			return err
		}
	}
	for i := 0; i < cfg.Workers; i++ {
		if _, err := s.SpawnInteractiveRandom(items.TypeBed); err != nil {
			return err
		}
		if _, err := s.SpawnInteractiveRandom(items.TypeWorkstation); err != nil {
			return err
		}
	}

	groups := []struct {
		archetype string
		count     int
		policy    routine.Policy
	}{
		{ArchetypeDog, cfg.Dogs, routine.Policy{Kind: routine.Dog}},
		{ArchetypeWorker, cfg.Workers, routine.Policy{Kind: routine.OfficeWorker}},
		{ArchetypeWanderer, cfg.Wanderers, routine.Policy{Kind: routine.RandomWalk}},
		{ArchetypeHunter, cfg.Hunters, routine.Policy{Kind: routine.Hunter, ItemType: items.TypeBone}},
		{ArchetypeScripted, cfg.Scripted, routine.Policy{Kind: routine.Scripted, Scripter: scripter}},
	}
	for _, g := range groups {
		for i := 0; i < g.count; i++ {
			speed := mv.MinSpeed + s.rng.Float64()*(mv.MaxSpeed-mv.MinSpeed)
			name := fmt.Sprintf("%s-%d", g.archetype, i+1)
			if _, err := s.SpawnAgentRandom(name, g.archetype, g.policy, speed); err != nil {
				return err
			}
		}
	}
	s.log.Info("world populated",
		zap.Int("agents", s.AgentCount()),
		zap.Int("carriables", s.Carriables.Len()),
		zap.Int("cells", s.Cells.Len()))
	return nil
}
