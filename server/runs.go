package server

import (
	"sync"
	"time"

	"github.com/kbukum/flowkit/flow"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is a finished flow run as served by the API.
type Run struct {
	ID         string          `json:"id"`
	Flow       string          `json:"flow"`
	Status     RunStatus       `json:"status"`
	Tag        flow.Tag        `json:"tag,omitempty"`
	State      map[string]any  `json:"state"`
	Steps      []flow.StepView `json:"steps"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMs int64           `json:"duration_ms"`
}

// RunStore keeps finished runs.
type RunStore interface {
	Save(run Run)
	Get(id string) (Run, bool)
}

// MemoryStore is a RunStore that keeps the most recent runs in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     map[string]Run
	order    []string
	capacity int
}

// NewMemoryStore creates a store holding at most capacity runs. A capacity
// of zero or less keeps everything.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{runs: make(map[string]Run), capacity: capacity}
}

// Save stores run, evicting the oldest runs beyond capacity.
func (s *MemoryStore) Save(run Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; !exists {
		s.order = append(s.order, run.ID)
	}
	s.runs[run.ID] = run
	for s.capacity > 0 && len(s.order) > s.capacity {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
}

// Get returns the run stored under id.
func (s *MemoryStore) Get(id string) (Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

// Len returns the number of stored runs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
