package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"NODE_ENV", "SITEBUILDER_PORT", "SITEBUILDER_DEST_DIR", "SITEBUILDER_REPO_NAME", "SITEBUILDER_ASSETS_CSS_ENTRY"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	cfg, err := Load(root, DefaultConfigFile)
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, "build", cfg.DestDir)
	assert.Equal(t, "templates", cfg.TemplatesDir)
	assert.Equal(t, "config.json", cfg.SiteDataFile)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, DefaultRepoName, cfg.RepoName)
	assert.Equal(t, "assets/css/main.css", cfg.Assets.CSSEntry)
	assert.Equal(t, "assets/javascript/main.js", cfg.Assets.JSMain)
	assert.Equal(t, "assets/javascript/polyfills.js", cfg.Assets.JSPolyfills)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "/", cfg.PublicPath())
	assert.Equal(t, filepath.Join(root, "build"), cfg.DestPath())
}

func TestLoad_NodeEnvProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "production")

	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "/solved-by-flexbox/", cfg.PublicPath())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "sitebuilder.yaml"), []byte(
		"dest_dir: public\nport: 8080\nrepo_name: my-site\nassets:\n  css_entry: styles/site.css\n"), 0o600))
	t.Setenv("SITEBUILDER_PORT", "9000")

	cfg, err := Load(root, DefaultConfigFile)
	require.NoError(t, err)
	assert.Equal(t, "public", cfg.DestDir)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "my-site", cfg.RepoName)
	assert.Equal(t, "styles/site.css", cfg.Assets.CSSEntry)
}

func TestLoad_DotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("NODE_ENV=production\nSITEBUILDER_REPO_NAME=from-env-file\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env.local"), []byte("SITEBUILDER_REPO_NAME=from-local\n"), 0o600))
	t.Setenv("NODE_ENV", "development")
	t.Cleanup(func() { _ = os.Unsetenv("SITEBUILDER_REPO_NAME") })

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "from-local", cfg.RepoName)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "sitebuilder.yaml"), []byte("port: [\n"), 0o600))

	_, err := Load(root, DefaultConfigFile)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestValidate(t *testing.T) {
	root := t.TempDir()
	base := func() *Config {
		return &Config{Root: root, DestDir: "build", Env: EnvDevelopment, Port: 4000, LogLevel: "info", Lint: LintConfig{Format: "text"}}
	}
	require.NoError(t, base().Validate())

	cases := map[string]func(c *Config){
		"port zero":       func(c *Config) { c.Port = 0 },
		"port too high":   func(c *Config) { c.Port = 70000 },
		"empty env":       func(c *Config) { c.Env = "" },
		"dest is root":    func(c *Config) { c.DestDir = "." },
		"dest empty":      func(c *Config) { c.DestDir = "" },
		"dest above root": func(c *Config) { c.DestDir = ".." },
		"bad log level":   func(c *Config) { c.LogLevel = "loud" },
		"bad lint format": func(c *Config) { c.Lint.Format = "xml" },
	}
	for name, mutate := range cases {
		c := base()
		mutate(c)
		err := c.Validate()
		require.Error(t, err, name)
		assert.True(t, errors.HasCategory(err, errors.CategoryValidation), name)
	}
}

func TestValidate_NormalizesLintFormat(t *testing.T) {
	c := &Config{Root: t.TempDir(), DestDir: "build", Env: EnvDevelopment, Port: 4000, LogLevel: "INFO", Lint: LintConfig{Format: " JSON"}}
	require.NoError(t, c.Validate())
	assert.Equal(t, "json", c.Lint.Format)
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("Warning")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = ParseLogLevel("verbose")
	require.Error(t, err)
}

func TestRepoNameFromURL(t *testing.T) {
	tests := map[string]string{
		"https://github.com/philipwalton/solved-by-flexbox.git": "solved-by-flexbox",
		"https://github.com/philipwalton/solved-by-flexbox":     "solved-by-flexbox",
		"git@github.com:philipwalton/solved-by-flexbox.git":     "solved-by-flexbox",
		"ssh://git@example.com/team/site.git/":                  "site",
		"":                                                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, RepoNameFromURL(in), in)
	}
}

func TestDetectRepoName(t *testing.T) {
	root := t.TempDir()
	assert.Equal(t, DefaultRepoName, DetectRepoName(root))

	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	assert.Equal(t, DefaultRepoName, DetectRepoName(root))

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:someone/flex-demos.git"},
	})
	require.NoError(t, err)

	sub := filepath.Join(root, "demos")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	assert.Equal(t, "flex-demos", DetectRepoName(sub))
}

func TestLoadSiteData(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{Root: root, SiteDataFile: "config.json"}

	data, err := cfg.LoadSiteData()
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, os.WriteFile(filepath.Join(root, "config.json"), []byte(`{"title":"Solved by Flexbox","googleAnalyticsTrackingId":"UA-1"}`), 0o600))
	data, err = cfg.LoadSiteData()
	require.NoError(t, err)
	assert.Equal(t, "Solved by Flexbox", data["title"])
	assert.Equal(t, "UA-1", data["googleAnalyticsTrackingId"])

	require.NoError(t, os.WriteFile(filepath.Join(root, "config.json"), []byte(`{`), 0o600))
	_, err = cfg.LoadSiteData()
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}
