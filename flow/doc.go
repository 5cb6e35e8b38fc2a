// Package flow provides a small execution engine for multi-step agent
// behaviours built from units of work connected by tagged transitions.
//
// A Unit runs in three phases: Prepare reads what it needs from the run state,
// Execute does the work using only the prepared value, and Finalize writes
// results back and returns a Tag. A Node hosts a unit template inside a graph
// and owns its transition table (Tag -> *Node). A Flow starts at one node and
// keeps following the tag each unit returns until the current node has no
// successor for it; that tag is the result of the run.
//
//	fetch := flow.NewNode("fetch", &Fetch{})
//	decide := flow.NewNode("decide", &Decide{})
//	answer := flow.NewNode("answer", &Answer{})
//
//	fetch.Then(decide)
//	decide.AddSuccessor("search", fetch)
//	decide.AddSuccessor("answer", answer)
//
//	f := flow.New(fetch, flow.WithName("qa"))
//	tag, err := f.Run(ctx, state)
//
// Graphs are templates. Every execution gets a fresh unit instance (see
// NewNodeFunc, Cloner and the shallow-copy fallback), so one Flow can be run
// repeatedly and from many goroutines as long as the graph is not modified
// while runs are in flight.
//
// The runner never retries, times out or wraps a unit's error: a failing phase
// ends the run and its error is returned as is. Resilience lives in units or in
// the Retrying and Recovering decorators.
//
// Flows can also be declared in YAML and built against a Registry of
// components; see Definition, Build and FileLoader.
package flow
