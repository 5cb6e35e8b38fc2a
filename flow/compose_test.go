package flow

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubflow_TagBecomesOuterTag(t *testing.T) {
	innerA := NewNode("inner-a", visit(2))
	innerA.AddSuccessor("next", innerA)
	inner := New(innerA, WithName("inner"))

	log := &callLog{}
	sub := NewNode("sub", Subflow(inner))
	after := NewNode[*State]("after", &scripted{name: "after", log: log, tag: "done"})
	sub.AddSuccessor("stop", after)

	s := NewState()
	tag, err := New(sub).Run(context.Background(), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag != "done" {
		t.Fatalf("expected 'done', got %q", tag)
	}
	if v, _ := s.Get("visits"); v != 2 {
		t.Fatalf("expected inner flow to run twice, got %v", v)
	}
	if log.count("after.finalize") != 1 {
		t.Fatal("expected outer flow to continue on the inner tag")
	}
}

func TestSubflow_ErrorPropagates(t *testing.T) {
	boom := errors.New("inner failed")
	inner := New(NewNode[*State]("x", &scripted{name: "x", log: &callLog{}, execErr: boom}))
	if _, err := New(NewNode("sub", Subflow(inner))).Run(context.Background(), NewState()); err != boom {
		t.Fatalf("expected inner error, got %v", err)
	}
}

func TestSubflow_SharedRecorderKeepsRunsApart(t *testing.T) {
	rec := NewRecorder()

	innerA := NewNode("inner-a", visit(2))
	innerA.AddSuccessor("next", innerA)
	inner := New(innerA, WithName("inner"), WithObserver(rec))

	sub := NewNode("sub", Subflow(inner))
	sub.AddSuccessor("stop", newTestNode("after", "done"))
	outer := New(sub, WithName("outer"), WithObserver(rec))

	ctx := ContextWithRunID(context.Background(), "r1")
	if _, err := outer.Run(ctx, NewState()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps := func(runID string) []string {
		var out []string
		for _, ev := range rec.Events(runID) {
			out = append(out, fmt.Sprintf("%d:%s", ev.Step, ev.Node))
		}
		return out
	}
	if got := steps("r1"); !reflect.DeepEqual(got, []string{"1:sub", "2:after"}) {
		t.Fatalf("unexpected outer steps %v", got)
	}
	if got := steps("r1/1"); !reflect.DeepEqual(got, []string{"1:inner-a", "2:inner-a"}) {
		t.Fatalf("unexpected inner steps %v", got)
	}
}

func squareBatch(maxParallel int, failOn int) Unit[*State] {
	return NewBatch(BatchConfig[*State, int, int]{
		Items: func(_ context.Context, s *State) ([]int, error) {
			v, _ := s.Get("items")
			return v.([]int), nil
		},
		Process: func(ctx context.Context, n int) (int, error) {
			if n == failOn {
				return 0, fmt.Errorf("item %d failed", n)
			}
			// Later items finish first when run in parallel.
			time.Sleep(time.Duration(10-n) * time.Millisecond)
			return n * n, ctx.Err()
		},
		Finalize: func(_ context.Context, s *State, _ []int, results []int) (Tag, error) {
			s.Set("squares", results)
			return "squared", nil
		},
		MaxParallel: maxParallel,
	})
}

func TestBatch_ResultsKeepItemOrder(t *testing.T) {
	for _, parallel := range []int{0, 1, 4} {
		t.Run(fmt.Sprintf("parallel=%d", parallel), func(t *testing.T) {
			s := NewStateFrom(map[string]any{"items": []int{1, 2, 3, 4, 5}})
			tag, err := RunUnit(context.Background(), squareBatch(parallel, -1), s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tag != "squared" {
				t.Fatalf("expected 'squared', got %q", tag)
			}
			got, _ := s.Get("squares")
			if !reflect.DeepEqual(got, []int{1, 4, 9, 16, 25}) {
				t.Fatalf("unexpected results %v", got)
			}
		})
	}
}

func TestBatch_FailureSkipsFinalize(t *testing.T) {
	for _, parallel := range []int{1, 3} {
		t.Run(fmt.Sprintf("parallel=%d", parallel), func(t *testing.T) {
			s := NewStateFrom(map[string]any{"items": []int{1, 2, 3}})
			_, err := RunUnit(context.Background(), squareBatch(parallel, 2), s)
			if err == nil || err.Error() != "item 2 failed" {
				t.Fatalf("expected item 2 failure, got %v", err)
			}
			if _, ok := s.Get("squares"); ok {
				t.Fatal("finalize ran after a failed item")
			}
		})
	}
}

func TestBatch_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	u := NewBatch(BatchConfig[*State, int, int]{
		Items: func(context.Context, *State) ([]int, error) { return make([]int, 12), nil },
		Process: func(context.Context, int) (int, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return 0, nil
		},
		MaxParallel: 3,
	})

	tag, err := RunUnit(context.Background(), u, NewState())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag != DefaultTag {
		t.Fatalf("expected DefaultTag without Finalize, got %q", tag)
	}
	if peak.Load() > 3 {
		t.Fatalf("expected at most 3 concurrent items, saw %d", peak.Load())
	}
}

func TestBatchFlow_RunsOncePerParams(t *testing.T) {
	var seen []string
	step := Funcs[*State, string, string]{
		Prep: func(_ context.Context, s *State) (string, error) {
			v, _ := s.Get("topic")
			return v.(string), nil
		},
		Post: func(_ context.Context, _ *State, topic string, _ string) (Tag, error) {
			seen = append(seen, topic)
			return Tag("done-" + topic), nil
		},
	}
	inner := New(NewNode[*State]("step", step))

	u := NewBatchFlow(BatchFlowConfig[*State, string]{
		Flow: inner,
		Params: func(context.Context, *State) ([]string, error) {
			return []string{"go", "rust", "zig"}, nil
		},
		Bind: func(s *State, topic string) *State {
			child := NewStateFrom(s.Snapshot())
			child.Set("topic", topic)
			return child
		},
	})

	tag, err := RunUnit(context.Background(), u, NewState())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag != "done-zig" {
		t.Fatalf("expected the last inner tag, got %q", tag)
	}
	if !reflect.DeepEqual(seen, []string{"go", "rust", "zig"}) {
		t.Fatalf("unexpected order %v", seen)
	}
}

func TestBatchFlow_RunIDsPerIteration(t *testing.T) {
	rec := NewRecorder()
	inner := New(newTestNode("x", "end"), WithObserver(rec))
	u := NewBatchFlow(BatchFlowConfig[*State, int]{
		Flow:   inner,
		Params: func(context.Context, *State) ([]int, error) { return []int{1, 2}, nil },
	})

	ctx := ContextWithRunID(context.Background(), "r1")
	if _, err := New(NewNode("batch", u)).Run(ctx, NewState()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range []string{"r1/1.0", "r1/1.1"} {
		if n := len(rec.Events(id)); n != 1 {
			t.Errorf("expected one step for %s, got %d", id, n)
		}
	}
	if n := len(rec.Events("r1")); n != 0 {
		t.Errorf("outer run has no observer, got %d events", n)
	}
}

func TestBatchFlow_NoParams(t *testing.T) {
	u := NewBatchFlow(BatchFlowConfig[*State, int]{Flow: New(newTestNode("x", "never"))})
	tag, err := RunUnit(context.Background(), u, NewState())
	if err != nil || tag != DefaultTag {
		t.Fatalf("expected DefaultTag and no error, got %q, %v", tag, err)
	}
}
