package destination

import (
	"context"
	"sort"
	"sync"

	"outbound-router/internal/common/errors"
)

// Registry indexes destinations by name. It is the default recipient
// Resolver for recipient lists.
type Registry struct {
	mu    sync.RWMutex
	dests map[string]Destination
}

func NewRegistry() *Registry {
	return &Registry{dests: make(map[string]Destination)}
}

// Register adds d. Names are unique.
func (r *Registry) Register(d Destination) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.dests[d.Name()]; exists {
		return errors.ConfigErrorf("destination %q already registered", d.Name())
	}
	r.dests[d.Name()] = d
	return nil
}

// Get returns the destination registered under name
func (r *Registry) Get(name string) (Destination, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dests[name]
	return d, ok
}

// Resolve implements Resolver
func (r *Registry) Resolve(_ context.Context, recipient string) (Destination, error) {
	if d, ok := r.Get(recipient); ok {
		return d, nil
	}
	return nil, errors.NotFoundError("destination " + recipient)
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.dests))
	for name := range r.dests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered destinations ordered by name
func (r *Registry) All() []Destination {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]Destination, 0, len(names))
	for _, name := range names {
		if d, ok := r.dests[name]; ok {
			all = append(all, d)
		}
	}
	return all
}
