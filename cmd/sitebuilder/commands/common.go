package commands

import (
	"log/slog"
	"os"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/tasks"
)

// CLI definition & global flags.
type CLI struct {
	Config  string `short:"c" help:"Build settings file, relative to the project root (optional)" default:"sitebuilder.yaml"`
	Dir     string `short:"C" help:"Project root directory" default:"." type:"existingdir"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Run tasks (default: the default task)"`
	Serve   ServeCmd   `cmd:"" help:"Build everything, then serve the site and rebuild on change"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if env := os.Getenv("SITEBUILDER_LOG_LEVEL"); env != "" {
		if parsed, err := config.ParseLogLevel(env); err == nil {
			level = parsed
		}
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// session is everything one command invocation works with.
type session struct {
	cfg      *config.Config
	promReg  *prom.Registry
	recorder *metrics.PrometheusRecorder
	tasks    *tasks.Registry
	service  *build.Service
}

func (c *CLI) openSession() (*session, error) {
	cfg, err := config.Load(c.Dir, c.Config)
	if err != nil {
		return nil, err
	}

	promReg := metrics.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(promReg)
	reg := tasks.NewRegistry(tasks.WithRecorder(recorder), tasks.WithLogger(slog.Default()))
	svc := build.NewService(cfg, build.WithRecorder(recorder), build.WithLintOutput(os.Stdout))
	svc.Register(reg)

	slog.Debug("Configuration loaded",
		logfields.Path(cfg.Root),
		logfields.Env(cfg.Env),
		slog.String("repo", cfg.RepoName),
		slog.String("public_path", cfg.PublicPath()))

	return &session{cfg: cfg, promReg: promReg, recorder: recorder, tasks: reg, service: svc}, nil
}

func (s *session) Close() {
	s.service.Close()
}
