package surface

import (
	"sort"
	"sync"
)

// Registry holds the live surfaces by id.
type Registry struct {
	mu       sync.RWMutex
	surfaces map[string]*Surface
}

func NewRegistry(surfaces ...*Surface) *Registry {
	r := &Registry{surfaces: make(map[string]*Surface)}
	for _, s := range surfaces {
		r.Add(s)
	}
	return r
}

func (r *Registry) Add(s *Surface) {
	r.mu.Lock()
	r.surfaces[s.ID()] = s
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (*Surface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.surfaces[id]
	return s, ok
}

// All returns the surfaces sorted by id.
func (r *Registry) All() []*Surface {
	r.mu.RLock()
	out := make([]*Surface, 0, len(r.surfaces))
	for _, s := range r.surfaces {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *Registry) Reset() {
	for _, s := range r.All() {
		s.Reset()
	}
}

func (r *Registry) Close() {
	for _, s := range r.All() {
		s.Close()
	}
}
