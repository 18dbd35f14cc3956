// Package watch re-runs an action whenever files under a directory tree change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/ditabuilder/internal/logfields"
)

// DefaultDebounce is the quiet period required after the last change before a rerun.
const DefaultDebounce = 300 * time.Millisecond

// Action is run once at start and after every debounced batch of changes.
// An error is logged and does not stop watching.
type Action func(ctx context.Context) error

// Options configures Run.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
	// Ignore reports paths whose changes must not trigger a rerun, in addition to
	// hidden and editor temp files.
	Ignore func(path string) bool
}

// Run watches root recursively and calls action until ctx is canceled. Changes that
// arrive while action runs coalesce into a single rerun.
func Run(ctx context.Context, root string, opts Options, action Action) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve watch root: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := addDirsRecursive(watcher, absRoot, opts.Logger); err != nil {
		return err
	}

	rerun, trigger, stop := newDebouncer(opts.Debounce)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		runAction(ctx, action, opts.Logger)
		for {
			select {
			case <-ctx.Done():
				return
			case <-rerun:
				opts.Logger.Info("Change detected; re-running", logfields.Path(absRoot))
				runAction(ctx, action, opts.Logger)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				<-done
				return nil
			}
			handleEvent(watcher, ev, opts, trigger)
		case werr, ok := <-watcher.Errors:
			if !ok {
				<-done
				return nil
			}
			opts.Logger.Warn("watcher error", logfields.Error(werr))
		}
	}
}

func runAction(ctx context.Context, action Action, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	if err := action(ctx); err != nil {
		logger.Warn("watch action failed", logfields.Error(err))
	}
}

// newDebouncer returns a channel that receives one value after the trigger has been
// quiet for d, the trigger itself and a stop function.
func newDebouncer(d time.Duration) (<-chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	req := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case req <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return req, trigger, stop
}

func handleEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, opts Options, trigger func()) {
	if shouldIgnore(ev.Name) || (opts.Ignore != nil && opts.Ignore(ev.Name)) {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(watcher, ev.Name, opts.Logger)
		}
	}
	if ev.Op == fsnotify.Chmod {
		return
	}
	opts.Logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func addDirsRecursive(w *fsnotify.Watcher, root string, logger *slog.Logger) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnore reports hidden files and editor temp or swap files.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	}
	return false
}
