package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kbukum/flowkit/logger"
)

func newTestNode(name string, tag Tag) *Node[*State] {
	return NewNode[*State](name, valueUnit{tag: tag})
}

func captureLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.NewWithWriter(&logger.Config{Level: "debug", Format: logger.FormatJSON}, buf, "flow-test")
}

func TestNode_AddSuccessorReturnsNext(t *testing.T) {
	a, b, c := newTestNode("a", "x"), newTestNode("b", "x"), newTestNode("c", "x")

	got := a.AddSuccessor("next", b).AddSuccessor("next", c)
	if got != c {
		t.Fatalf("expected chain to return c, got %v", got.Name())
	}
	if a.Next("next") != b || b.Next("next") != c {
		t.Fatal("expected a->b->c wiring")
	}
}

func TestNode_NextUnmapped(t *testing.T) {
	a := newTestNode("a", "x")
	if a.Next("missing") != nil {
		t.Fatal("expected nil for unmapped tag")
	}
}

func TestNode_ThenUsesDefaultTag(t *testing.T) {
	a, b := newTestNode("a", "x"), newTestNode("b", "x")
	a.Then(b)
	if a.Next(DefaultTag) != b {
		t.Fatal("expected Then to route DefaultTag")
	}
}

func TestNode_DuplicateTagLastWriteWinsAndWarns(t *testing.T) {
	var buf bytes.Buffer
	a := newTestNode("a", "x").WithLogger(captureLogger(&buf))
	b, c := newTestNode("b", "x"), newTestNode("c", "x")

	a.AddSuccessor("go", b)
	if buf.Len() != 0 {
		t.Fatalf("expected no record for first registration, got %s", buf.String())
	}
	a.AddSuccessor("go", c)

	if a.Next("go") != c {
		t.Fatal("expected second registration to take effect")
	}

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["level"] != "warn" {
		t.Errorf("expected warn level, got %v", rec["level"])
	}
	if rec[logger.FieldNode] != "a" || rec[logger.FieldTag] != "go" {
		t.Errorf("expected node/tag fields, got %v", rec)
	}
	if rec["previous"] != "b" || rec["next"] != "c" {
		t.Errorf("expected previous/next fields, got %v", rec)
	}
	if !strings.Contains(buf.String(), "overwriting successor") {
		t.Errorf("unexpected message: %s", buf.String())
	}
}

func TestNode_SuccessorsIsCopy(t *testing.T) {
	a, b := newTestNode("a", "x"), newTestNode("b", "x")
	a.AddSuccessor("go", b)

	succ := a.Successors()
	if len(succ) != 1 || succ["go"] != b {
		t.Fatalf("unexpected successors %v", succ)
	}
	delete(succ, "go")
	if a.Next("go") != b {
		t.Fatal("mutating the returned map changed the node")
	}
}

func TestNode_NilArgumentsPanic(t *testing.T) {
	tests := map[string]func(){
		"nil unit":      func() { NewNode[*State]("a", nil) },
		"nil factory":   func() { NewNodeFunc[*State]("a", nil) },
		"nil successor": func() { newTestNode("a", "x").AddSuccessor("go", nil) },
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			fn()
		})
	}
}

func TestNodeFunc_FreshInstancePerRun(t *testing.T) {
	built := 0
	n := NewNodeFunc("count", func() Unit[*State] {
		built++
		return &counterUnit{}
	})

	s := NewState()
	for range 3 {
		if _, err := n.Run(context.Background(), s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hits, _ := s.Get("hits"); hits != 1 {
			t.Fatalf("expected a fresh unit each run, got hits=%v", hits)
		}
	}
	if built != 3 {
		t.Fatalf("expected factory called 3 times, got %d", built)
	}
}

func TestNode_RunDoesNotMutateTemplate(t *testing.T) {
	tmpl := &counterUnit{}
	n := NewNode[*State]("count", tmpl)

	s := NewState()
	for range 2 {
		if _, err := n.Run(context.Background(), s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if tmpl.hits != 0 {
		t.Fatalf("expected template untouched, got hits=%d", tmpl.hits)
	}
	if hits, _ := s.Get("hits"); hits != 1 {
		t.Fatalf("expected each run to start from the template, got %v", hits)
	}
}
