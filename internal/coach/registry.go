package coach

import "sync"

// Registry maps conversation ids to their live Coach instances. At
// most one in-flight request per conversation is assumed; the registry
// lock only guards the map itself, not the coaches.
type Registry struct {
	mu      sync.Mutex
	coaches map[string]*Coach
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{coaches: make(map[string]*Coach)}
}

// Get returns the coach for id, or nil if none exists.
func (r *Registry) Get(id string) *Coach {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.coaches[id]
}

// GetOrCreate returns the coach for id, creating one via mk when
// absent. An empty id always creates a fresh coach.
func (r *Registry) GetOrCreate(id string, mk func(id string) *Coach) *Coach {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if c, ok := r.coaches[id]; ok {
			return c
		}
	}
	c := mk(id)
	r.coaches[c.ID] = c
	return c
}

// Remove drops the coach for id, if present.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.coaches, id)
}
