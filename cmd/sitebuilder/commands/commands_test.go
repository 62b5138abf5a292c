package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("sitebuilder"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return cli, kctx
}

func TestParse_PositionalTasks(t *testing.T) {
	cli, kctx := parse(t, "pages", "javascript:main")
	assert.Equal(t, "run <tasks>", kctx.Command())
	assert.Equal(t, []string{"pages", "javascript:main"}, cli.Run.Tasks)
}

func TestParse_NoArgsRunsDefault(t *testing.T) {
	cli, kctx := parse(t)
	assert.Equal(t, "run", kctx.Command())
	assert.Empty(t, cli.Run.Tasks)
	assert.Equal(t, "sitebuilder.yaml", cli.Config)
}

func TestParse_ServePort(t *testing.T) {
	for _, args := range [][]string{{"serve", "--port", "8080"}, {"serve", "-p", "8080"}} {
		cli, kctx := parse(t, args...)
		assert.Equal(t, "serve", kctx.Command())
		assert.Equal(t, 8080, cli.Serve.Port)
	}
}

func TestParse_GlobalFlags(t *testing.T) {
	dir := t.TempDir()
	cli, _ := parse(t, "-C", dir, "-c", "other.yaml", "-v", "clean")
	assert.Equal(t, dir, cli.Dir)
	assert.Equal(t, "other.yaml", cli.Config)
	assert.True(t, cli.Verbose)
	assert.Equal(t, []string{"clean"}, cli.Run.Tasks)
}

func TestRun_UnknownTask(t *testing.T) {
	cli := &CLI{Dir: t.TempDir(), Config: "sitebuilder.yaml"}
	err := (&RunCmd{Tasks: []string{"pages", "nope"}}).Run(cli)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestRun_PagesThenClean(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>{{ .site.baseUrl }}</p>"), 0o600))
	cli := &CLI{Dir: dir, Config: "sitebuilder.yaml"}

	require.NoError(t, (&RunCmd{Tasks: []string{"pages"}}).Run(cli))
	out, err := os.ReadFile(filepath.Join(dir, "build", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>/</p>", string(out))

	require.NoError(t, (&RunCmd{Tasks: []string{"clean"}}).Run(cli))
	assert.NoDirExists(t, filepath.Join(dir, "build"))
}
