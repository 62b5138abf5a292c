package watch

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// DefaultDebounce is the quiet period a group waits for before running.
const DefaultDebounce = 300 * time.Millisecond

// RunFunc runs a task by name.
type RunFunc func(ctx context.Context, task string) error

// Options configures a Watcher.
type Options struct {
	Root string
	// Ignore lists directories whose changes never trigger a group.
	Ignore   []string
	Groups   []Group
	Debounce time.Duration
	Run      RunFunc
	// OnSuccess is called after a group's task completed without error.
	OnSuccess func(Group)
	Recorder  metrics.Recorder
	Logger    *slog.Logger
}

// Watcher turns filesystem events into debounced task runs.
type Watcher struct {
	opts Options
	fsw  *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

// New creates a watcher and registers every directory under the root.
func New(opts Options) (*Watcher, error) {
	if opts.Run == nil {
		return nil, errors.ValidationError("watcher needs a run function").Build()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, errors.NewError(errors.CategoryWatch, "resolve watch root").WithCause(err).Build()
	}
	opts.Root = root
	ignore := make([]string, 0, len(opts.Ignore))
	for _, dir := range opts.Ignore {
		if abs, absErr := filepath.Abs(dir); absErr == nil {
			ignore = append(ignore, abs)
		}
	}
	opts.Ignore = ignore

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewError(errors.CategoryWatch, "create watcher").WithCause(err).Build()
	}
	w := &Watcher{opts: opts, fsw: fsw, timers: map[string]*time.Timer{}}
	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is done, then waits for in-flight task
// runs to return.
func (w *Watcher) Run(ctx context.Context) error {
	w.opts.Logger.Info("Watching for changes", logfields.Path(w.opts.Root))
	defer w.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()

	_ = w.fsw.Close()
	w.wg.Wait()
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if w.ignored(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.opts.Logger.Warn("Watch add failed", logfields.Path(ev.Name), logfields.Error(err))
			}
		}
	}

	rel, err := filepath.Rel(w.opts.Root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	for _, g := range w.opts.Groups {
		if g.Match(rel) {
			w.opts.Logger.Debug("Change detected", logfields.File(rel), slog.String("op", ev.Op.String()), slog.String("group", g.Name))
			w.schedule(ctx, g)
		}
	}
}

// schedule restarts the group's debounce timer.
func (w *Watcher) schedule(ctx context.Context, g Group) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.timers[g.Name]; ok {
		t.Stop()
	}
	w.timers[g.Name] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()

		defer w.wg.Done()
		w.fire(ctx, g)
	})
}

func (w *Watcher) fire(ctx context.Context, g Group) {
	w.opts.Recorder.IncWatchTrigger(g.Name)
	err := w.opts.Run(ctx, g.Task)
	switch {
	case err == nil:
		if w.opts.OnSuccess != nil {
			w.opts.OnSuccess(g)
		}
	case stderrors.Is(err, context.Canceled):
	default:
		// The registry already logged the failure with its classification.
		w.opts.Logger.Debug("Rebuild failed", slog.String("group", g.Name), logfields.Error(err))
	}
}

func (w *Watcher) ignored(p string) bool {
	if ignoredName(filepath.Base(p)) {
		return true
	}
	for _, dir := range w.opts.Ignore {
		if p == dir || strings.HasPrefix(p, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.opts.Root && w.ignored(p) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(p); addErr != nil {
			return errors.NewError(errors.CategoryWatch, "watch directory").
				WithContext("dir", p).
				WithCause(addErr).
				Build()
		}
		return nil
	})
}
