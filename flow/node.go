package flow

import (
	"context"
	"maps"

	"github.com/kbukum/flowkit/logger"
)

// Node places a unit template in a graph and holds its transition table.
//
// Nodes are built once and then only read by runners. AddSuccessor must not
// be called while a Flow using the node is running.
type Node[S any] struct {
	name       string
	template   Unit[S]
	factory    func() Unit[S]
	successors map[Tag]*Node[S]
	log        *logger.Logger
}

// NewNode creates a node whose per-run instances are duplicated from u.
func NewNode[S any](name string, u Unit[S]) *Node[S] {
	if u == nil {
		panic("flow: nil unit for node " + name)
	}
	return &Node[S]{
		name:       name,
		template:   u,
		successors: make(map[Tag]*Node[S]),
	}
}

// NewNodeFunc creates a node that calls factory for a fresh unit before every
// execution. Use it when a unit carries run-scoped state that a shallow copy
// would share.
func NewNodeFunc[S any](name string, factory func() Unit[S]) *Node[S] {
	if factory == nil {
		panic("flow: nil factory for node " + name)
	}
	return &Node[S]{
		name:       name,
		factory:    factory,
		successors: make(map[Tag]*Node[S]),
	}
}

// Name returns the node name.
func (n *Node[S]) Name() string { return n.name }

// WithLogger sets the logger used for construction diagnostics and returns n.
func (n *Node[S]) WithLogger(l *logger.Logger) *Node[S] {
	n.log = l
	return n
}

// Successors returns a copy of the transition table. Use AddSuccessor to
// change it; Next always reads the current table.
func (n *Node[S]) Successors() map[Tag]*Node[S] {
	return maps.Clone(n.successors)
}

// AddSuccessor routes tag to next and returns next so graphs can be chained:
//
//	a.AddSuccessor("ok", b).AddSuccessor("ok", c)
//
// Registering a tag twice replaces the earlier target and logs a warning.
func (n *Node[S]) AddSuccessor(tag Tag, next *Node[S]) *Node[S] {
	if next == nil {
		panic("flow: nil successor for tag " + string(tag) + " on node " + n.name)
	}
	if prev, ok := n.successors[tag]; ok {
		n.diagnostics().Warn("overwriting successor", logger.Fields(
			logger.FieldNode, n.name,
			logger.FieldTag, string(tag),
			"previous", prev.name,
			"next", next.name,
		))
	}
	n.successors[tag] = next
	return next
}

// Then routes DefaultTag to next.
func (n *Node[S]) Then(next *Node[S]) *Node[S] {
	return n.AddSuccessor(DefaultTag, next)
}

// Next returns the node registered for tag, or nil when the run should stop.
func (n *Node[S]) Next(tag Tag) *Node[S] {
	return n.successors[tag]
}

// Run executes one fresh instance of the node's unit and returns its tag.
// It does not follow transitions.
func (n *Node[S]) Run(ctx context.Context, state S) (Tag, error) {
	return RunUnit(ctx, n.instance(), state)
}

// instance returns the unit to execute for one step.
func (n *Node[S]) instance() Unit[S] {
	if n.factory != nil {
		return n.factory()
	}
	return duplicate(n.template)
}

func (n *Node[S]) diagnostics() *logger.Logger {
	if n.log != nil {
		return n.log
	}
	return logger.WithComponent("flow")
}
