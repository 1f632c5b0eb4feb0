// Package watch runs a debounced rebuild loop driven by filesystem events.
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

	"git.home.luguber.info/inful/packhooks/internal/logfields"
)

// DefaultDebounce is the quiet period after the last change before a rebuild fires.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc is invoked once per debounced burst of changes.
type RebuildFunc func(ctx context.Context) error

// Loop watches a set of paths and invokes a RebuildFunc after changes settle.
type Loop struct {
	Paths    []string
	Debounce time.Duration
	Logger   *slog.Logger
	// Ignore reports paths whose events never trigger a rebuild. Defaults to ShouldIgnore.
	Ignore func(path string) bool
}

// Run blocks until ctx is done. Rebuild errors are logged, never returned.
func (l *Loop) Run(ctx context.Context, rebuild RebuildFunc) error {
	log := l.Logger
	if log == nil {
		log = slog.Default()
	}
	ignore := l.Ignore
	if ignore == nil {
		ignore = ShouldIgnore
	}
	debounce := l.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, p := range l.Paths {
		if err := addRecursive(watcher, p, log); err != nil {
			return err
		}
	}

	rebuildReq, trigger, stop := newDebouncer(debounce)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuildReq:
				log.Info("Change detected; rebuilding")
				if err := rebuild(ctx); err != nil && ctx.Err() == nil {
					log.Warn("Rebuild failed", logfields.Error(err))
				}
			}
		}
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignore(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = addRecursive(watcher, ev.Name, log)
				}
			}
			log.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// newDebouncer returns a request channel, a trigger restarting the quiet
// period, and a stop function cancelling any pending timer.
func newDebouncer(d time.Duration) (<-chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case rebuildReq <- struct{}{}:
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
	return rebuildReq, trigger, stop
}

// addRecursive watches path; directories are walked and every subdirectory added.
func addRecursive(w *fsnotify.Watcher, path string, log *slog.Logger) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if !fi.IsDir() {
		return w.Add(path)
	}
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(p); err != nil {
				log.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
			}
		}
		return nil
	})
}

// ShouldIgnore returns true for hidden, editor swap and OS metadata files.
func ShouldIgnore(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}

	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	return base == "Thumbs.db"
}
