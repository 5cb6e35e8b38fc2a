package flow

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kbukum/flowkit/logger"
)

// DefaultWatchDebounce is how long a Watcher waits for writes to settle.
const DefaultWatchDebounce = 250 * time.Millisecond

// ReloadFunc receives the full set of definitions after a change.
type ReloadFunc func(defs []*Definition)

// Watcher reloads every definition of a FileLoader when a YAML file under
// one of its directories is created, written, renamed or removed. Bursts of
// events within the debounce window produce a single reload.
type Watcher struct {
	loader   *FileLoader
	onReload ReloadFunc
	debounce time.Duration
	log      *logger.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher starts watching the loader's directories, including existing
// subdirectories. Call Run to process events.
func NewWatcher(loader *FileLoader, onReload ReloadFunc, debounce time.Duration, log *logger.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		loader:   loader,
		onReload: onReload,
		debounce: debounce,
		log:      log.WithComponent("flow.watcher"),
		fsw:      fsw,
	}
	for _, dir := range loader.dirs {
		if err := w.addRecursive(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsw.Add(path)
	})
}

// Run processes file events until ctx is cancelled, then releases the
// underlying watcher. A reload that fails to parse is logged and the
// previous definitions stay in effect.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				// New subdirectories are watched as they appear.
				_ = w.addRecursive(ev.Name)
			}
			if !isYAML(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", logger.Fields("error", err.Error()))

		case <-timerC:
			timer, timerC = nil, nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	defs, err := w.loader.LoadAll()
	if err != nil {
		w.log.Warn("reload failed, keeping previous definitions", logger.Fields("error", err.Error()))
		return
	}
	w.log.Info("definitions reloaded", logger.Fields("count", len(defs)))
	w.onReload(defs)
}
