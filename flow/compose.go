package flow

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// Subflow runs f as a single unit of an enclosing flow. The inner run's last
// tag becomes the tag of the enclosing node, and an inner failure is returned
// unchanged. The inner run id is "<outer run id>/<outer step>".
func Subflow[S any](f *Flow[S]) Unit[S] {
	return Funcs[S, S, Tag]{
		Prep: func(_ context.Context, state S) (S, error) {
			return state, nil
		},
		Exec: func(ctx context.Context, state S) (Tag, error) {
			return f.Run(ContextWithRunID(ctx, childRunID(ctx, "")), state)
		},
		Post: func(_ context.Context, _ S, _ S, tag Tag) (Tag, error) {
			return tag, nil
		},
	}
}

// BatchConfig describes a unit that processes a list of items.
type BatchConfig[S, I, O any] struct {
	// Items lists the items to process for this run.
	Items func(ctx context.Context, state S) ([]I, error)
	// Process handles one item.
	Process func(ctx context.Context, item I) (O, error)
	// Finalize receives the results in item order. Nil returns DefaultTag.
	Finalize func(ctx context.Context, state S, items []I, results []O) (Tag, error)
	// MaxParallel bounds concurrent Process calls. Values <= 1 process items
	// one at a time.
	MaxParallel int
}

// NewBatch creates a unit from cfg. When items run concurrently, the first
// failure cancels the context passed to the remaining calls and is returned.
func NewBatch[S, I, O any](cfg BatchConfig[S, I, O]) Unit[S] {
	return Funcs[S, []I, []O]{
		Prep: func(ctx context.Context, state S) ([]I, error) {
			if cfg.Items == nil {
				return nil, nil
			}
			return cfg.Items(ctx, state)
		},
		Exec: func(ctx context.Context, items []I) ([]O, error) {
			return processBatch(ctx, items, cfg.Process, cfg.MaxParallel)
		},
		Post: func(ctx context.Context, state S, items []I, results []O) (Tag, error) {
			if cfg.Finalize == nil {
				return DefaultTag, nil
			}
			return cfg.Finalize(ctx, state, items, results)
		},
	}
}

func processBatch[I, O any](ctx context.Context, items []I, process func(context.Context, I) (O, error), maxParallel int) ([]O, error) {
	results := make([]O, len(items))
	if maxParallel <= 1 {
		for i, item := range items {
			out, err := process(ctx, item)
			if err != nil {
				return nil, err
			}
			results[i] = out
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, item := range items {
		g.Go(func() error {
			out, err := process(gctx, item)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BatchFlowConfig describes a unit that runs a flow once per parameter set.
type BatchFlowConfig[S, P any] struct {
	// Flow is run once per parameter set, in order.
	Flow *Flow[S]
	// Params lists the parameter sets for this run.
	Params func(ctx context.Context, state S) ([]P, error)
	// Bind returns the state the inner run for p uses. Nil runs every
	// iteration on the enclosing state.
	Bind func(state S, p P) S
}

// NewBatchFlow creates a unit from cfg. Its tag is the last inner run's tag,
// or DefaultTag when there were no parameter sets. Inner run ids are
// "<outer run id>/<outer step>.<index>".
func NewBatchFlow[S, P any](cfg BatchFlowConfig[S, P]) Unit[S] {
	return Funcs[S, []S, Tag]{
		Prep: func(ctx context.Context, state S) ([]S, error) {
			if cfg.Params == nil {
				return nil, nil
			}
			params, err := cfg.Params(ctx, state)
			if err != nil {
				return nil, err
			}
			states := make([]S, len(params))
			for i, p := range params {
				if cfg.Bind == nil {
					states[i] = state
					continue
				}
				states[i] = cfg.Bind(state, p)
			}
			return states, nil
		},
		Exec: func(ctx context.Context, states []S) (Tag, error) {
			last := DefaultTag
			for i, st := range states {
				tag, err := cfg.Flow.Run(ContextWithRunID(ctx, childRunID(ctx, strconv.Itoa(i))), st)
				if err != nil {
					return "", err
				}
				last = tag
			}
			return last, nil
		},
		Post: func(_ context.Context, _ S, _ []S, tag Tag) (Tag, error) {
			return tag, nil
		},
	}
}
