// Package watch reloads a project snapshot when its TypeScript sources
// change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/d-kimuson/ts-type-expand/internal/logging"
	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

// DefaultDebounce is the quiet period before a batch of changes reloads.
const DefaultDebounce = 150 * time.Millisecond

// Reloader rebuilds the snapshot of a project directory.
type Reloader interface {
	LoadDirectory(ctx context.Context, root string) error
}

// Options configure a Watcher. Zero values use defaults.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
	// Ignore lists directory base names that are not watched.
	Ignore []string
	// OnReload is called after every reload with the changed paths.
	OnReload func(paths []string, err error)
}

var defaultIgnore = []string{".git", "node_modules", "dist", "build", "coverage", ".tsexpand"}

// Watcher watches root recursively.
type Watcher struct {
	root     string
	reloader Reloader
	opts     Options
	fsw      *fsnotify.Watcher

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New creates a Watcher. Call Start to begin watching.
func New(root string, r Reloader, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Ignore == nil {
		opts.Ignore = defaultIgnore
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	return &Watcher{root: abs, reloader: r, opts: opts, fsw: fsw, done: make(chan struct{})}, nil
}

// Start registers every directory under root and processes events in the
// background until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return fmt.Errorf("watch: add %s: %w", w.root, err)
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
	return nil
}

// Close stops watching and waits for a running reload to finish.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) ignored(name string) bool {
	for _, ig := range w.opts.Ignore {
		if name == ig {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && (w.ignored(d.Name()) || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// relevant reports whether an event on path can change the snapshot.
func (w *Watcher) relevant(path string) bool {
	for dir := filepath.Dir(path); dir != w.root && len(dir) > len(w.root); dir = filepath.Dir(dir) {
		if w.ignored(filepath.Base(dir)) {
			return false
		}
	}
	_, ok := tsparse.LanguageForFile(path)
	return ok
}

func (w *Watcher) loop(ctx context.Context) {
	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if !w.ignored(info.Name()) {
						if err := w.addRecursive(ev.Name); err != nil {
							w.opts.Logger.Warn("watch new directory", "path", ev.Name, "err", err)
						}
					}
					continue
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) || !w.relevant(ev.Name) {
				continue
			}
			pending[ev.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				fire = timer.C
			} else {
				timer.Reset(w.opts.Debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.opts.Logger.Warn("watch error", "err", err)
		case <-fire:
			timer, fire = nil, nil
			w.reload(ctx, pending)
			pending = make(map[string]bool)
		}
	}
}

func (w *Watcher) reload(ctx context.Context, pending map[string]bool) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	w.opts.Logger.Info("reloading snapshot", "root", w.root, "changed", len(paths))
	err := w.reloader.LoadDirectory(ctx, w.root)
	if err != nil {
		w.opts.Logger.Error("reload failed", "root", w.root, "err", err)
	}
	if w.opts.OnReload != nil {
		w.opts.OnReload(paths, err)
	}
}
