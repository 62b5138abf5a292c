package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

func testConfig(root string) *config.Config {
	return &config.Config{
		Root:         root,
		DestDir:      "build",
		TemplatesDir: "templates",
		SiteDataFile: "config.json",
		Assets: config.AssetsConfig{
			CSSEntry:   "assets/css/main.css",
			ImagesDir:  "assets/images",
			ScriptsDir: "assets/javascript",
		},
	}
}

func TestDefaultGroups_Match(t *testing.T) {
	groups, err := DefaultGroups(testConfig("/site"))
	require.NoError(t, err)

	tests := []struct {
		rel  string
		want []string
	}{
		{"assets/css/main.css", []string{"css"}},
		{"assets/css/components/grid.css", []string{"css"}},
		{"assets/css/notes.txt", nil},
		{"assets/images/logo.png", []string{"images"}},
		{"assets/images/icons/star.svg", nil},
		{"assets/javascript/main.js", []string{"javascript"}},
		{"index.html", []string{"pages"}},
		{"demos/grids.md", []string{"pages"}},
		{"demos/nested/card.html", []string{"pages"}},
		{"templates/default.html", []string{"pages"}},
		{"config.json", []string{"pages"}},
		{"nested/page.html", nil},
		{"README.md", nil},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			var got []string
			for _, g := range groups {
				if g.Match(tt.rel) {
					got = append(got, g.Name)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewGroup_InvalidPattern(t *testing.T) {
	_, err := NewGroup("bad", "pages", "[")
	require.Error(t, err)
}

func TestIgnoredName(t *testing.T) {
	for _, name := range []string{".main.js.swp", "main.js~", "page.swp", "#page#", ".DS_Store", "x.tmp"} {
		assert.True(t, ignoredName(name), name)
	}
	for _, name := range []string{"main.js", "index.html", "grid.css"} {
		assert.False(t, ignoredName(name), name)
	}
}

type runs struct {
	mu    sync.Mutex
	tasks []string
}

func (r *runs) run(_ context.Context, task string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *runs) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tasks...)
}

func startWatcher(t *testing.T, root string, rec *runs, debounce time.Duration, onSuccess func(Group)) {
	t.Helper()
	cfg := testConfig(root)
	groups, err := DefaultGroups(cfg)
	require.NoError(t, err)

	w, err := New(Options{
		Root:      root,
		Ignore:    []string{cfg.DestPath()},
		Groups:    groups,
		Debounce:  debounce,
		Run:       rec.run,
		OnSuccess: onSuccess,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, w.Run(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o750))
	}
}

func TestWatcher_TriggersGroupTask(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "assets/css", "build")
	rec := &runs{}
	succeeded := make(chan string, 4)
	startWatcher(t, root, rec, 20*time.Millisecond, func(g Group) { succeeded <- g.Name })

	require.NoError(t, os.WriteFile(filepath.Join(root, "assets/css/main.css"), []byte("a{}"), 0o600))

	select {
	case name := <-succeeded:
		assert.Equal(t, "css", name)
	case <-time.After(5 * time.Second):
		t.Fatal("css group never ran")
	}
	assert.Equal(t, []string{"css"}, rec.snapshot())
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "demos")
	rec := &runs{}
	startWatcher(t, root, rec, 200*time.Millisecond, nil)

	for i := range 5 {
		name := filepath.Join(root, "demos", "page.html")
		require.NoError(t, os.WriteFile(name, []byte{byte('a' + i)}, 0o600))
	}

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, []string{"pages"}, rec.snapshot())
}

func TestWatcher_IgnoresDestAndNewDirsAreWatched(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "build", "assets")
	rec := &runs{}
	startWatcher(t, root, rec, 20*time.Millisecond, nil)

	require.NoError(t, os.WriteFile(filepath.Join(root, "build", "index.html"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden.html"), []byte("x"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	mkdirs(t, root, "assets/images")
	// Give the watcher time to register the new directory.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "assets/images/logo.png"), []byte("png"), 0o600))

	require.Eventually(t, func() bool {
		got := rec.snapshot()
		return len(got) == 1 && got[0] == "images"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestNew_RequiresRunFunc(t *testing.T) {
	_, err := New(Options{Root: t.TempDir()})
	require.Error(t, err)
}
