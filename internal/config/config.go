// Package config resolves the build settings of a site project.
//
// Settings come from defaults, an optional YAML file and the environment
// (NODE_ENV plus SITEBUILDER_* variables), with .env files loaded first.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

var (
	logLevels = foundation.NewNormalizer(map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	})
	lintFormats = foundation.NewNormalizer(map[string]string{
		"text": "text",
		"json": "json",
	})
)

// ParseLogLevel maps a level name such as "debug" or "WARN" to a slog level.
func ParseLogLevel(raw string) (slog.Level, error) {
	return logLevels.Normalize("log_level", raw)
}

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultRepoName is used when neither settings nor git name the repository.
const DefaultRepoName = "solved-by-flexbox"

// DefaultConfigFile is the optional build settings file in the project root.
const DefaultConfigFile = "sitebuilder.yaml"

// Config holds the resolved build settings.
type Config struct {
	// Root is the absolute project root every relative path is resolved against.
	Root string `mapstructure:"-"`

	DestDir      string `mapstructure:"dest_dir"`
	TemplatesDir string `mapstructure:"templates_dir"`
	SiteDataFile string `mapstructure:"site_data"`
	RepoName     string `mapstructure:"repo_name"`
	Env          string `mapstructure:"env"`
	Port         int    `mapstructure:"port"`
	LogLevel     string `mapstructure:"log_level"`

	Assets AssetsConfig `mapstructure:"assets"`
	Lint   LintConfig   `mapstructure:"lint"`
}

// AssetsConfig locates the asset sources, relative to the project root.
type AssetsConfig struct {
	CSSEntry    string `mapstructure:"css_entry"`
	ImagesDir   string `mapstructure:"images_dir"`
	ScriptsDir  string `mapstructure:"scripts_dir"`
	JSMain      string `mapstructure:"js_main"`
	JSPolyfills string `mapstructure:"js_polyfills"`
}

// LintConfig configures the lint task.
type LintConfig struct {
	ExtraPaths []string `mapstructure:"extra_paths"`
	Format     string   `mapstructure:"format"`
	Quiet      bool     `mapstructure:"quiet"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dest_dir", "build")
	v.SetDefault("templates_dir", "templates")
	v.SetDefault("site_data", "config.json")
	v.SetDefault("repo_name", "")
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("port", 4000)
	v.SetDefault("log_level", "info")
	v.SetDefault("assets.css_entry", "assets/css/main.css")
	v.SetDefault("assets.images_dir", "assets/images")
	v.SetDefault("assets.scripts_dir", "assets/javascript")
	v.SetDefault("assets.js_main", "assets/javascript/main.js")
	v.SetDefault("assets.js_polyfills", "assets/javascript/polyfills.js")
	v.SetDefault("lint.extra_paths", []string{})
	v.SetDefault("lint.format", "text")
	v.SetDefault("lint.quiet", false)
}

// Load resolves settings for the project at root. configFile is relative to
// root unless absolute; a missing file is not an error.
func Load(root, configFile string) (*Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.ConfigError("resolve project root").WithCause(err).Build()
	}

	if err := loadDotEnv(absRoot); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SITEBUILDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("env", "NODE_ENV"); err != nil {
		return nil, errors.ConfigError("bind NODE_ENV").WithCause(err).Build()
	}

	if configFile != "" {
		path := configFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(absRoot, path)
		}
		if _, statErr := os.Stat(path); statErr == nil {
			v.SetConfigFile(path)
			if readErr := v.ReadInConfig(); readErr != nil {
				return nil, errors.ConfigError("read build settings").
					WithContext(errors.ContextFile, path).
					WithCause(readErr).
					Build()
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.ConfigError("decode build settings").WithCause(err).Build()
	}
	cfg.Root = absRoot

	if cfg.RepoName == "" {
		cfg.RepoName = DetectRepoName(absRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings for values the tasks cannot work with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.ValidationError(fmt.Sprintf("port %d out of range", c.Port)).Build()
	}
	if c.Env == "" {
		return errors.ValidationError("env must not be empty").Build()
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	format, err := lintFormats.Normalize("lint.format", c.Lint.Format)
	if err != nil {
		return err
	}
	c.Lint.Format = format
	dest := filepath.Clean(c.Path(c.DestDir))
	if c.DestDir == "" || dest == filepath.Clean(c.Root) {
		return errors.ValidationError("dest_dir must be a subdirectory of the project").
			WithContext("dest_dir", c.DestDir).
			Build()
	}
	if rel, err := filepath.Rel(dest, c.Root); err == nil && !strings.HasPrefix(rel, "..") {
		return errors.ValidationError("dest_dir must not contain the project root").
			WithContext("dest_dir", c.DestDir).
			Build()
	}
	return nil
}

// IsProduction reports whether the production switches apply.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// PublicPath is the URL prefix of the published site: "/<repo>/" in
// production, "/" otherwise.
func (c *Config) PublicPath() string {
	if c.IsProduction() {
		return "/" + strings.Trim(c.RepoName, "/") + "/"
	}
	return "/"
}

// Path resolves rel against the project root.
func (c *Config) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Root, filepath.FromSlash(rel))
}

// DestPath returns the absolute output directory.
func (c *Config) DestPath() string {
	return c.Path(c.DestDir)
}
