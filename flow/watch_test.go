package flow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kbukum/flowkit/logger"
)

func TestWatcher_ReloadsOnNewFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "countdown.yaml"), []byte(countdownYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	reloads := make(chan []*Definition, 8)
	w, err := NewWatcher(NewFileLoader(dir), func(defs []*Definition) { reloads <- defs }, 10*time.Millisecond, logger.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	body := []byte("name: extra\nstart: a\nnodes:\n  - name: a\n    component: tag\n")
	if err := os.WriteFile(filepath.Join(dir, "extra.yml"), body, 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case defs := <-reloads:
			if len(defs) == 2 {
				cancel()
				if err := <-done; err != nil {
					t.Fatalf("unexpected run error: %v", err)
				}
				return
			}
		case <-deadline:
			cancel()
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	reloads := make(chan []*Definition, 8)
	w, err := NewWatcher(NewFileLoader(dir), func(defs []*Definition) { reloads <- defs }, 10*time.Millisecond, logger.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case defs := <-reloads:
		t.Fatalf("unexpected reload with %d definitions", len(defs))
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher(NewFileLoader(filepath.Join(t.TempDir(), "absent")), func([]*Definition) {}, 0, nil)
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
