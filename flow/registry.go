package flow

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a unit template from the params of a node definition.
type Factory[S any] func(params map[string]any) (Unit[S], error)

// Registry maps component names to unit factories for Build.
type Registry[S any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[S]
}

// NewRegistry creates a new empty Registry.
func NewRegistry[S any]() *Registry[S] {
	return &Registry[S]{factories: make(map[string]Factory[S])}
}

// Register adds a component. Names must be unique.
func (r *Registry[S]) Register(name string, f Factory[S]) error {
	if name == "" || f == nil {
		return fmt.Errorf("flow: component name and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("flow: component %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry[S]) MustRegister(name string, f Factory[S]) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Get retrieves a factory by component name.
func (r *Registry[S]) Get(name string) (Factory[S], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// List returns sorted names of all registered components.
func (r *Registry[S]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
