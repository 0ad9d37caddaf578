package ecs

import "sync"

// World is the top-level ECS container. It owns the entity pool, the component
// registry, and a deferred destruction queue flushed by CleanupSystem each tick.
// Creation happens between phases; marking may happen from parallel thinkers.
type World struct {
	pool     *EntityPool
	registry *Registry

	mu           sync.Mutex
	destroyQueue []EntityID
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pool.Alive(id)
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.mu.Lock()
	w.destroyQueue = append(w.destroyQueue, id)
	w.mu.Unlock()
}

// FlushDestroyQueue destroys all queued entities and clears their components.
// Called by CleanupSystem at the end of each tick. It returns the ids that
// were still alive.
func (w *World) FlushDestroyQueue() []EntityID {
	w.mu.Lock()
	queue := w.destroyQueue
	w.destroyQueue = make([]EntityID, 0, cap(queue))
	w.mu.Unlock()

	destroyed := make([]EntityID, 0, len(queue))
	for _, id := range queue {
		if !w.Alive(id) {
			continue
		}
		w.registry.RemoveAll(id)
		w.mu.Lock()
		w.pool.Destroy(id)
		w.mu.Unlock()
		destroyed = append(destroyed, id)
	}
	return destroyed
}
