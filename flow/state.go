package flow

import (
	"fmt"
	"maps"
	"sync"
)

// State is a thread-safe key-value run context. Flows built from definitions
// run on *State; hand-wired flows may use any state type.
type State struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewState creates a new empty State.
func NewState() *State {
	return &State{data: make(map[string]any)}
}

// NewStateFrom creates a State holding a copy of values.
func NewStateFrom(values map[string]any) *State {
	s := NewState()
	maps.Copy(s.data, values)
	return s
}

// Get retrieves a value by key. Returns false if the key does not exist.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores a value by key.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Delete removes key.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Merge stores every entry of values, replacing existing keys.
func (s *State) Merge(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.data, values)
}

// Snapshot returns a shallow copy of the stored values.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

// Port is a compile-time typed accessor for State.
// It prevents type mismatches between units at compile time.
type Port[T any] struct {
	Key string
}

// Read retrieves a typed value from state using a Port.
// Returns an error if the key is missing or the type doesn't match.
func Read[T any](state *State, port Port[T]) (T, error) {
	var zero T
	raw, ok := state.Get(port.Key)
	if !ok {
		return zero, fmt.Errorf("flow: state key %q not found", port.Key)
	}
	val, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("flow: state key %q: expected %T, got %T", port.Key, zero, raw)
	}
	return val, nil
}

// ReadOr returns the value for port, or def when it is missing or of
// another type.
func ReadOr[T any](state *State, port Port[T], def T) T {
	v, err := Read(state, port)
	if err != nil {
		return def
	}
	return v
}

// Write stores a typed value into state using a Port.
func Write[T any](state *State, port Port[T], value T) {
	state.Set(port.Key, value)
}
