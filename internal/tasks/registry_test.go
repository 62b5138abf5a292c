package tasks

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

type fakeRecorder struct {
	metrics.NoopRecorder
	mu        sync.Mutex
	results   map[string][]metrics.ResultLabel
	coalesced map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{results: map[string][]metrics.ResultLabel{}, coalesced: map[string]int{}}
}

func (f *fakeRecorder) IncTaskResult(task string, result metrics.ResultLabel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[task] = append(f.results[task], result)
}

func (f *fakeRecorder) IncTaskCoalesced(task string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coalesced[task]++
}

func TestRun_UnknownTask(t *testing.T) {
	err := NewRegistry().Run(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestRun_RecordsOutcome(t *testing.T) {
	rec := newFakeRecorder()
	r := NewRegistry(WithRecorder(rec))
	r.Register("ok", "", func(context.Context) error { return nil })
	r.Register("bad", "", func(context.Context) error { return stderrors.New("boom") })

	require.NoError(t, r.Run(context.Background(), "ok"))
	err := r.Run(context.Background(), "bad")
	require.Error(t, err)

	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryInternal, ce.Category())
	task, _ := ce.Context().GetString(errors.ContextTask)
	assert.Equal(t, "bad", task)

	assert.Equal(t, []metrics.ResultLabel{metrics.ResultSuccess}, rec.results["ok"])
	assert.Equal(t, []metrics.ResultLabel{metrics.ResultFailed}, rec.results["bad"])
}

func TestRun_ClassifiedErrorsPassThrough(t *testing.T) {
	r := NewRegistry()
	want := errors.BundleError("bundle failed").Build()
	r.Register("js", "", func(context.Context) error { return want })

	err := r.Run(context.Background(), "js")
	assert.Same(t, want, err)
}

func TestParallel_RunsConcurrentlyAndJoinsFailures(t *testing.T) {
	r := NewRegistry()
	var started sync.WaitGroup
	started.Add(2)
	barrier := func(err error) Func {
		return func(ctx context.Context) error {
			started.Done()
			started.Wait()
			return err
		}
	}
	var ran atomic.Int32
	r.Register("a", "", barrier(errors.BundleError("a failed").Build()))
	r.Register("b", "", barrier(nil))
	r.Register("c", "", func(context.Context) error {
		ran.Add(1)
		return errors.FileSystemError("c failed").Build()
	})
	r.Register("all", "", r.Parallel("a", "b", "c"))

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background(), "all") }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "a failed")
		assert.Contains(t, err.Error(), "c failed")
		assert.Equal(t, int32(1), ran.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("parallel members did not run concurrently")
	}
}

func TestSeries_StopsAtFirstFailure(t *testing.T) {
	r := NewRegistry()
	var order []string
	step := func(name string, err error) Func {
		return func(context.Context) error {
			order = append(order, name)
			return err
		}
	}
	r.Register("one", "", step("one", nil))
	r.Register("two", "", step("two", errors.LintError("lint failed").Build()))
	r.Register("three", "", step("three", nil))
	r.Register("all", "", r.Series("one", "two", "three"))

	err := r.Run(context.Background(), "all")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryLint))
	assert.Equal(t, []string{"one", "two"}, order)
}

func TestRun_SharesBuildIDWithMembers(t *testing.T) {
	r := NewRegistry()
	var mu sync.Mutex
	ids := map[string]string{}
	record := func(name string) Func {
		return func(ctx context.Context) error {
			id, ok := BuildIDFromContext(ctx)
			assert.True(t, ok)
			mu.Lock()
			ids[name] = id
			mu.Unlock()
			return nil
		}
	}
	r.Register("css", "", record("css"))
	r.Register("pages", "", record("pages"))
	r.Register("default", "", r.Parallel("css", "pages"))

	require.NoError(t, r.Run(context.Background(), "default"))
	require.NotEmpty(t, ids["css"])
	assert.Equal(t, ids["css"], ids["pages"])

	require.NoError(t, r.Run(context.Background(), "css"))
	assert.NotEqual(t, ids["pages"], ids["css"], "separate invocations get separate ids")
}

func TestGuard_CoalescesOverlappingRuns(t *testing.T) {
	rec := newFakeRecorder()
	r := NewRegistry(WithRecorder(rec))

	release := make(chan struct{})
	var runs, concurrent, maxConcurrent atomic.Int32
	r.Register("pages", "", func(context.Context) error {
		n := concurrent.Add(1)
		if n > maxConcurrent.Load() {
			maxConcurrent.Store(n)
		}
		defer concurrent.Add(-1)
		if runs.Add(1) == 1 {
			<-release
		}
		return nil
	})

	ctx := context.Background()
	first := make(chan error, 1)
	go func() { first <- r.Run(ctx, "pages") }()
	require.Eventually(t, func() bool { return r.Running("pages") }, time.Second, time.Millisecond)

	const extra = 3
	results := make(chan error, extra)
	for range extra {
		go func() { results <- r.Run(ctx, "pages") }()
	}

	e := r.tasks["pages"]
	require.Eventually(t, func() bool {
		e.guard.mu.Lock()
		defer e.guard.mu.Unlock()
		return len(e.guard.waiters) == extra
	}, time.Second, time.Millisecond)

	close(release)
	require.NoError(t, <-first)
	for range extra {
		require.NoError(t, <-results)
	}

	assert.Equal(t, int32(2), runs.Load(), "overlapping requests fold into one follow-up run")
	assert.Equal(t, int32(1), maxConcurrent.Load())
	assert.Equal(t, extra, rec.coalesced["pages"])
	assert.False(t, r.Running("pages"))
}

func TestGuard_WaiterHonoursCancellation(t *testing.T) {
	r := NewRegistry()
	release := make(chan struct{})
	r.Register("slow", "", func(context.Context) error {
		<-release
		return nil
	})

	go func() { _ = r.Run(context.Background(), "slow") }()
	require.Eventually(t, func() bool { return r.Running("slow") }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Run(ctx, "slow")
	require.ErrorIs(t, err, context.Canceled)
	close(release)
}

func TestGuard_ReleasedAfterPanic(t *testing.T) {
	var g guard
	ctx := context.Background()

	assert.Panics(t, func() {
		_, _ = g.run(ctx, func(context.Context) error { panic("boom") })
	})
	assert.False(t, g.busy())

	coalesced, err := g.run(ctx, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.False(t, coalesced)
}

func TestGuard_PanicFailsWaiters(t *testing.T) {
	var g guard
	ctx := context.Background()
	release := make(chan struct{})

	panicked := make(chan any, 1)
	go func() {
		defer func() { panicked <- recover() }()
		_, _ = g.run(ctx, func(context.Context) error {
			<-release
			panic("boom")
		})
	}()
	require.Eventually(t, g.busy, time.Second, time.Millisecond)

	waited := make(chan error, 1)
	go func() {
		_, err := g.run(ctx, func(context.Context) error { return nil })
		waited <- err
	}()
	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return len(g.waiters) == 1
	}, time.Second, time.Millisecond)

	close(release)
	assert.Equal(t, "boom", <-panicked)
	err := <-waited
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryInternal))
	assert.False(t, g.busy())
}

func TestNamesAndDescribe(t *testing.T) {
	r := NewRegistry()
	r.Register("pages", "Render pages", func(context.Context) error { return nil })
	r.Register("css", "Build CSS", func(context.Context) error { return nil })

	assert.Equal(t, []string{"css", "pages"}, r.Names())
	assert.Equal(t, "Render pages", r.Describe("pages"))
	assert.True(t, r.Has("css"))
	assert.False(t, r.Has("serve"))
}
