// Package tasks runs named build tasks with parallel and series composition.
//
// Every task run gets a build id, a task-scoped logger carried through the
// context and a duration and outcome recorded to the metrics recorder. A task
// never runs concurrently with itself: a request that arrives while the task
// is running waits for a single follow-up run shared with every other request
// that arrived in the meantime.
package tasks

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Func is the body of a task.
type Func func(ctx context.Context) error

type entry struct {
	name  string
	desc  string
	fn    Func
	guard guard
}

// Registry holds the named tasks of a project.
type Registry struct {
	mu       sync.RWMutex
	tasks    map[string]*entry
	recorder metrics.Recorder
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(reg *Registry) {
		if r != nil {
			reg.recorder = r
		}
	}
}

// WithLogger sets the base logger task loggers derive from.
func WithLogger(l *slog.Logger) Option {
	return func(reg *Registry) {
		if l != nil {
			reg.logger = l
		}
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tasks:    make(map[string]*entry),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces a task.
func (r *Registry) Register(name, desc string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[name] = &entry{name: name, desc: desc, fn: fn}
}

// Has reports whether a task is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[name]
	return ok
}

// Names returns the registered task names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for n := range r.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Describe returns the description of a task.
func (r *Registry) Describe(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.tasks[name]; ok {
		return e.desc
	}
	return ""
}

// Running reports whether the named task is currently running.
func (r *Registry) Running(name string) bool {
	r.mu.RLock()
	e, ok := r.tasks[name]
	r.mu.RUnlock()
	return ok && e.guard.busy()
}

// Run runs the named task to completion.
func (r *Registry) Run(ctx context.Context, name string) error {
	r.mu.RLock()
	e, ok := r.tasks[name]
	r.mu.RUnlock()
	if !ok {
		return errors.ValidationError("unknown task").WithTask(name).Build()
	}

	coalesced, err := e.guard.run(ctx, func(ctx context.Context) error {
		return r.execute(ctx, e)
	})
	if coalesced {
		r.recorder.IncTaskCoalesced(name)
	}
	return err
}

// Parallel returns a task body running every named task concurrently. Each
// member runs to completion; failures are joined.
func (r *Registry) Parallel(names ...string) Func {
	return func(ctx context.Context) error {
		var g errgroup.Group
		errs := make([]error, len(names))
		for i, name := range names {
			g.Go(func() error {
				errs[i] = r.Run(ctx, name)
				return nil
			})
		}
		_ = g.Wait()
		return stderrors.Join(errs...)
	}
}

// Series returns a task body running the named tasks in order, stopping at
// the first failure.
func (r *Registry) Series(names ...string) Func {
	return func(ctx context.Context) error {
		for _, name := range names {
			if err := r.Run(ctx, name); err != nil {
				return err
			}
		}
		return nil
	}
}

func (r *Registry) execute(ctx context.Context, e *entry) error {
	id, ok := BuildIDFromContext(ctx)
	if !ok {
		id = uuid.NewString()
		ctx = WithBuildID(ctx, id)
	}
	logger := r.logger.With(logfields.Task(e.name), logfields.BuildID(id))
	ctx = logfields.WithLogger(ctx, logger)

	start := time.Now()
	logger.Debug("Starting task")

	err := e.fn(ctx)

	elapsed := time.Since(start)
	r.recorder.ObserveTaskDuration(e.name, elapsed)
	r.recorder.IncTaskResult(e.name, metrics.ResultFor(err, ctx.Err() != nil))

	if err != nil {
		logger.Error("Task failed", logfields.DurationMS(ms(elapsed)), logfields.Error(err))
		if _, classified := errors.AsClassified(err); !classified {
			err = errors.NewError(errors.CategoryInternal, "task failed").WithTask(e.name).WithCause(err).Build()
		}
		return err
	}
	logger.Info("Finished task", logfields.DurationMS(ms(elapsed)))
	return nil
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

type buildIDKey struct{}

// WithBuildID returns a context whose task runs share the given build id.
func WithBuildID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, buildIDKey{}, id)
}

// BuildIDFromContext returns the build id carried by ctx.
func BuildIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(buildIDKey{}).(string)
	return id, ok && id != ""
}
