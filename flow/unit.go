package flow

import (
	"context"
	"reflect"
)

// Tag is the outcome a unit reports from Finalize. It selects the next node.
type Tag string

// DefaultTag is the tag used by Then and returned by units that do not route.
const DefaultTag Tag = "default"

// Unit is a single step of work.
//
// The phases always run in order, once each, through RunUnit. Execute must
// only depend on the value returned by Prepare; Finalize is the place to write
// results into the run state. Errors from any phase are returned to the caller
// of Flow.Run unchanged.
type Unit[S any] interface {
	Prepare(ctx context.Context, state S) (any, error)
	Execute(ctx context.Context, prep any) (any, error)
	Finalize(ctx context.Context, state S, prep, exec any) (Tag, error)
}

// Cloner is implemented by units that produce their own per-run instances.
// Units holding references to mutable data (maps, slices, pointers) should
// implement it if that data is written during a run.
type Cloner[S any] interface {
	Clone() Unit[S]
}

// RunUnit runs the three phases of u in order and returns the tag produced by
// Finalize. A failing phase stops the sequence.
func RunUnit[S any](ctx context.Context, u Unit[S], state S) (Tag, error) {
	prep, err := u.Prepare(ctx, state)
	if err != nil {
		return "", err
	}
	exec, err := u.Execute(ctx, prep)
	if err != nil {
		return "", err
	}
	return u.Finalize(ctx, state, prep, exec)
}

// duplicate returns a per-run instance of u: Clone() for Cloners, a shallow
// copy for pointers to structs, and u itself otherwise (value types and
// funcs cannot be mutated through the interface).
func duplicate[S any](u Unit[S]) Unit[S] {
	if c, ok := u.(Cloner[S]); ok {
		return c.Clone()
	}
	v := reflect.ValueOf(u)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return u
	}
	cp := reflect.New(v.Elem().Type())
	cp.Elem().Set(v.Elem())
	return cp.Interface().(Unit[S])
}

// Funcs builds a unit from typed phase functions. A nil Prep yields the zero
// P, a nil Exec yields the zero E and a nil Post returns DefaultTag.
type Funcs[S, P, E any] struct {
	Prep func(ctx context.Context, state S) (P, error)
	Exec func(ctx context.Context, prep P) (E, error)
	Post func(ctx context.Context, state S, prep P, exec E) (Tag, error)
}

func (f Funcs[S, P, E]) Prepare(ctx context.Context, state S) (any, error) {
	if f.Prep == nil {
		var zero P
		return zero, nil
	}
	return f.Prep(ctx, state)
}

func (f Funcs[S, P, E]) Execute(ctx context.Context, prep any) (any, error) {
	if f.Exec == nil {
		var zero E
		return zero, nil
	}
	return f.Exec(ctx, as[P](prep))
}

func (f Funcs[S, P, E]) Finalize(ctx context.Context, state S, prep, exec any) (Tag, error) {
	if f.Post == nil {
		return DefaultTag, nil
	}
	return f.Post(ctx, state, as[P](prep), as[E](exec))
}

// as converts v to T, returning the zero T for nil or mismatched values.
func as[T any](v any) T {
	t, _ := v.(T)
	return t
}
