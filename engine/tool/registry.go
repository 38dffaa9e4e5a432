package tool

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the capabilities available to one executor. Registration
// order is preserved so capability listings are stable across runs.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]*Definition
	order []string
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Definition)}
}

// Register adds a capability. Names are unique; registering a duplicate
// fails rather than silently replacing the earlier definition.
func (r *Registry) Register(def *Definition) error {
	if def == nil {
		return fmt.Errorf("cannot register a nil tool definition")
	}
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[def.ID]; exists {
		return fmt.Errorf("tool %q is already registered", def.ID)
	}
	r.byID[def.ID] = def
	r.order = append(r.order, def.ID)
	return nil
}

// Get returns the definition registered under id.
func (r *Registry) Get(id string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byID[id]
	return def, ok
}

// Names returns the registered capability names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*Definition, 0, len(r.order))
	for _, id := range r.order {
		defs = append(defs, r.byID[id])
	}
	return defs
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// SortedNames returns the capability names in lexical order, for rendering
// deterministic capability listings independent of registration order.
func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}
