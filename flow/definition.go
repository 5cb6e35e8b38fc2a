package flow

import (
	"fmt"
	"slices"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/resilience"
	"github.com/kbukum/flowkit/validation"
)

// Definition is the declarative form of a flow.
//
//	name: countdown
//	start: tick
//	max_steps: 50
//	nodes:
//	  - name: tick
//	    component: counter
//	    params: {key: n, limit: 3}
//	    next: {continue: tick}
type Definition struct {
	Name        string    `yaml:"name" json:"name" validate:"required"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Start       string    `yaml:"start" json:"start" validate:"required"`
	MaxSteps    int       `yaml:"max_steps,omitempty" json:"max_steps,omitempty" validate:"gte=0"`
	Nodes       []NodeDef `yaml:"nodes" json:"nodes" validate:"required,min=1,dive"`
}

// NodeDef declares one node: the component that builds its unit, the
// component params and the tag routing.
type NodeDef struct {
	Name      string                  `yaml:"name" json:"name" validate:"required"`
	Component string                  `yaml:"component" json:"component" validate:"required"`
	Params    map[string]any          `yaml:"params,omitempty" json:"params,omitempty"`
	Retry     *resilience.RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty"`
	Next      map[string]string       `yaml:"next,omitempty" json:"next,omitempty"`
}

// Validate checks field constraints and references between nodes. It does
// not check acyclicity or reachability; cycles are legal and an unreachable
// node is simply never run.
func (d *Definition) Validate() error {
	v := validation.New()
	v.Merge("", validation.Validate(d))

	defined := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.Name == "" {
			continue
		}
		if defined[n.Name] {
			v.AddError(fmt.Sprintf("nodes[%d].name", i), fmt.Sprintf("duplicate node %q", n.Name))
		}
		defined[n.Name] = true
	}

	if d.Start != "" {
		v.Custom(defined[d.Start], "start", fmt.Sprintf("undefined node %q", d.Start))
	}

	for i, n := range d.Nodes {
		for _, tag := range sortedKeys(n.Next) {
			to := n.Next[tag]
			v.Custom(defined[to], fmt.Sprintf("nodes[%d].next.%s", i, tag), fmt.Sprintf("undefined node %q", to))
		}
		if n.Retry != nil {
			v.Min(fmt.Sprintf("nodes[%d].retry.max_attempts", i), n.Retry.MaxAttempts, 1)
		}
	}

	appErr := v.Validate()
	if appErr == nil {
		return nil
	}
	return errors.InvalidDefinition(d.Name, appErr.Message).
		WithDetail("fields", appErr.Details["fields"])
}

// Build validates def and turns it into a flow over reg's components. Each
// component factory is called once with the node params to produce the node's
// template. opts are applied after the name and max_steps from def.
func Build[S any](def *Definition, reg *Registry[S], opts ...Option) (*Flow[S], error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	nodes := make(map[string]*Node[S], len(def.Nodes))
	for _, nd := range def.Nodes {
		factory, ok := reg.Get(nd.Component)
		if !ok {
			return nil, errors.UnknownComponent(nd.Name, nd.Component, reg.List())
		}
		u, err := factory(nd.Params)
		if err != nil {
			return nil, errors.InvalidDefinition(def.Name, fmt.Sprintf("node %q: %v", nd.Name, err)).
				WithCause(err).
				WithDetail("node", nd.Name)
		}
		if nd.Retry != nil {
			u = Retrying(u, *nd.Retry)
		}
		nodes[nd.Name] = NewNode(nd.Name, u)
	}

	for _, nd := range def.Nodes {
		from := nodes[nd.Name]
		for _, tag := range sortedKeys(nd.Next) {
			from.AddSuccessor(Tag(tag), nodes[nd.Next[tag]])
		}
	}

	base := []Option{WithName(def.Name)}
	if def.MaxSteps > 0 {
		base = append(base, WithMaxSteps(def.MaxSteps))
	}
	return New(nodes[def.Start], append(base, opts...)...), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
