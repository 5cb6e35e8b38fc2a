package server

import (
	"fmt"
	"slices"
	"sync"

	"github.com/kbukum/flowkit/flow"
)

// FlowSummary describes a catalog entry.
type FlowSummary struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Start       string          `json:"start"`
	Nodes       []flow.NodeInfo `json:"nodes"`
}

type entry struct {
	flow        *flow.Flow[*flow.State]
	description string
}

// Catalog is the set of flows the API can run, keyed by flow name.
type Catalog struct {
	mu    sync.RWMutex
	flows map[string]entry
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{flows: make(map[string]entry)}
}

// Add registers a built flow under its name.
func (c *Catalog) Add(f *flow.Flow[*flow.State], description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.flows[f.Name()]; exists {
		return fmt.Errorf("server: flow %q already in catalog", f.Name())
	}
	c.flows[f.Name()] = entry{flow: f, description: description}
	return nil
}

// AddDefinitions builds every definition with reg and adds the results.
// The first failure stops the load.
func (c *Catalog) AddDefinitions(defs []*flow.Definition, reg *flow.Registry[*flow.State], opts ...flow.Option) error {
	for _, def := range defs {
		f, err := flow.Build(def, reg, opts...)
		if err != nil {
			return err
		}
		if err := c.Add(f, def.Description); err != nil {
			return err
		}
	}
	return nil
}

// Replace swaps in the contents of next, dropping every current entry.
// Runs already in progress keep the flow they started with.
func (c *Catalog) Replace(next *Catalog) {
	next.mu.RLock()
	flows := make(map[string]entry, len(next.flows))
	for name, e := range next.flows {
		flows[name] = e
	}
	next.mu.RUnlock()

	c.mu.Lock()
	c.flows = flows
	c.mu.Unlock()
}

// Len reports the number of flows in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.flows)
}

// Get returns the flow registered under name.
func (c *Catalog) Get(name string) (*flow.Flow[*flow.State], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.flows[name]
	return e.flow, ok
}

// Summary describes the flow registered under name.
func (c *Catalog) Summary(name string) (FlowSummary, bool) {
	c.mu.RLock()
	e, ok := c.flows[name]
	c.mu.RUnlock()
	if !ok {
		return FlowSummary{}, false
	}
	return summarize(e), true
}

// List describes every flow, sorted by name.
func (c *Catalog) List() []FlowSummary {
	c.mu.RLock()
	out := make([]FlowSummary, 0, len(c.flows))
	for _, e := range c.flows {
		out = append(out, summarize(e))
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b FlowSummary) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

func summarize(e entry) FlowSummary {
	return FlowSummary{
		Name:        e.flow.Name(),
		Description: e.description,
		Start:       e.flow.Start().Name(),
		Nodes:       e.flow.Describe(),
	}
}
