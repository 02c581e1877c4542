package light

import "sync"

// Registry holds the set of known lights, keyed by device id.
//
// It is owned by the controller and is the sole authority for which
// records exist. Records are created during discovery reconciliation
// and live for the rest of the process; the registry never removes
// them.
//
// All methods are safe for concurrent use: the registry is mutated
// from the discovery poller, the event-stream receive loop, and
// direct command calls.
type Registry struct {
	mu     sync.RWMutex
	lights map[string]*Light
}

// NewRegistry creates an empty light registry.
func NewRegistry() *Registry {
	return &Registry{
		lights: make(map[string]*Light),
	}
}

// Add inserts a light. Returns ErrLightExists if the id is already present.
func (r *Registry) Add(l *Light) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lights[l.ID()]; exists {
		return ErrLightExists
	}
	r.lights[l.ID()] = l
	return nil
}

// Get returns the light with the given id, or ErrLightNotFound.
func (r *Registry) Get(id string) (*Light, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.lights[id]
	if !ok {
		return nil, ErrLightNotFound
	}
	return l, nil
}

// Contains reports whether a light with the given id is registered.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.lights[id]
	return ok
}

// List returns all registered lights. Order is unspecified.
func (r *Registry) List() []*Light {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lights := make([]*Light, 0, len(r.lights))
	for _, l := range r.lights {
		lights = append(lights, l)
	}
	return lights
}

// ListByKind returns all lights of the given kind.
func (r *Registry) ListByKind(kind Kind) []*Light {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var lights []*Light
	for _, l := range r.lights {
		if l.Kind() == kind {
			lights = append(lights, l)
		}
	}
	return lights
}

// ListByProtocol returns all lights with the given protocol tag.
func (r *Registry) ListByProtocol(protocol string) []*Light {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var lights []*Light
	for _, l := range r.lights {
		if l.Protocol() == protocol {
			lights = append(lights, l)
		}
	}
	return lights
}

// Len returns the number of registered lights.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lights)
}
