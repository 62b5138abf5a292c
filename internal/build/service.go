package build

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/assets"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/lint"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/pages"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	"git.home.luguber.info/inful/sitebuilder/internal/tasks"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

// Task names.
const (
	TaskDefault             = "default"
	TaskPages               = "pages"
	TaskCSS                 = "css"
	TaskImages              = "images"
	TaskJavaScript          = "javascript"
	TaskJavaScriptMain      = "javascript:main"
	TaskJavaScriptPolyfills = "javascript:polyfills"
	TaskLint                = "lint"
	TaskClean               = "clean"
)

// Service runs the site tasks for one project configuration.
type Service struct {
	cfg       *config.Config
	recorder  metrics.Recorder
	lintOut   io.Writer
	useColor  bool
	main      *assets.Bundler
	polyfills *assets.Bundler
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLintOutput sets where lint reports are written.
func WithLintOutput(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.lintOut = w
			s.useColor = isTTY(w)
		}
	}
}

// NewService creates the task service. Bundlers are created here but their
// esbuild contexts only on the first javascript run.
func NewService(cfg *config.Config, opts ...Option) *Service {
	dest := cfg.DestPath()
	s := &Service{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		lintOut:  os.Stderr,
		useColor: isTTY(os.Stderr),
		main: assets.NewBundler(assets.MainBundleOptions(
			cfg.Root, cfg.Assets.JSMain, dest, cfg.Env, cfg.PublicPath(), cfg.IsProduction())),
		polyfills: assets.NewBundler(assets.PolyfillsBundleOptions(
			cfg.Root, cfg.Assets.JSPolyfills, dest, cfg.PublicPath())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the project configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Register adds every site task to reg.
func (s *Service) Register(reg *tasks.Registry) {
	reg.Register(TaskPages, "Render page sources to pretty-URL HTML", s.Pages)
	reg.Register(TaskCSS, "Transform and minify the stylesheet", s.CSS)
	reg.Register(TaskImages, "Copy images to the output directory", s.Images)
	reg.Register(TaskJavaScriptMain, "Bundle the application script", s.bundle(s.main))
	reg.Register(TaskJavaScriptPolyfills, "Bundle the polyfills script", s.bundle(s.polyfills))
	reg.Register(TaskJavaScript, "Bundle both scripts", reg.Parallel(TaskJavaScriptMain, TaskJavaScriptPolyfills))
	reg.Register(TaskLint, "Lint scripts and page sources", s.Lint)
	reg.Register(TaskClean, "Remove the output directory", s.Clean)
	reg.Register(TaskDefault, "Build everything", reg.Parallel(TaskCSS, TaskImages, TaskJavaScript, TaskPages))
}

// Close releases the bundler contexts.
func (s *Service) Close() {
	s.main.Dispose()
	s.polyfills.Dispose()
}

// Pages renders every page source. Site data and templates are read afresh
// on each run.
func (s *Service) Pages(ctx context.Context) error {
	data, err := s.cfg.LoadSiteData()
	if err != nil {
		return err
	}
	st := site.NewSite(data, site.Options{
		BaseURL:  s.cfg.PublicPath(),
		Env:      s.cfg.Env,
		RepoName: s.cfg.RepoName,
	})

	tpls, err := templates.Load(s.cfg.Path(s.cfg.TemplatesDir))
	if err != nil {
		return err
	}

	b := pages.NewBuilder(pages.Options{
		SourceDir: s.cfg.Root,
		DestDir:   s.cfg.DestPath(),
		Site:      st,
		Templates: tpls,
		Minify:    s.cfg.IsProduction(),
		Markdown:  markdown.DefaultOptions(),
	})
	res, err := b.Run(ctx)
	s.recorder.ObservePages(len(res.Written), len(res.Failed))
	return err
}

// CSS builds the stylesheet.
func (s *Service) CSS(ctx context.Context) error {
	_, err := assets.BuildCSS(ctx, assets.CSSOptions{
		Root:    s.cfg.Root,
		Entry:   s.cfg.Assets.CSSEntry,
		DestDir: s.cfg.DestPath(),
	})
	return err
}

// Images copies the image tree to <dest>/images.
func (s *Service) Images(ctx context.Context) error {
	n, err := assets.CopyImages(ctx, s.cfg.Path(s.cfg.Assets.ImagesDir), filepath.Join(s.cfg.DestPath(), "images"))
	if err != nil {
		return err
	}
	logfields.FromContext(ctx).Debug("Images copied", logfields.Count(n))
	return nil
}

func (s *Service) bundle(b *assets.Bundler) tasks.Func {
	return func(ctx context.Context) error {
		outputs, err := b.Build(ctx)
		if err != nil {
			return err
		}
		logfields.FromContext(ctx).Debug("Bundle written", logfields.Output(outputs[0]))
		return nil
	}
}

// Lint reports every issue, then fails if any is an error.
func (s *Service) Lint(ctx context.Context) error {
	l := lint.NewLinter(&lint.Config{
		Root:         s.cfg.Root,
		ScriptsDir:   s.cfg.Assets.ScriptsDir,
		TemplatesDir: s.cfg.TemplatesDir,
		ExtraPaths:   s.cfg.Lint.ExtraPaths,
		Quiet:        s.cfg.Lint.Quiet,
		Format:       s.cfg.Lint.Format,
	})
	res, err := l.Lint(ctx)
	if err != nil {
		return errors.LintError("lint run failed").WithCause(err).Build()
	}
	if err := lint.NewFormatter(s.cfg.Lint.Format, s.useColor).Format(s.lintOut, res); err != nil {
		return errors.FileSystemError("write lint report").WithCause(err).Build()
	}
	return res.Err()
}

// Clean removes the output directory.
func (s *Service) Clean(ctx context.Context) error {
	dest := s.cfg.DestPath()
	if err := os.RemoveAll(dest); err != nil {
		return errors.FileSystemError("remove output directory").WithContext("dir", dest).WithCause(err).Build()
	}
	logfields.FromContext(ctx).Info("Output directory removed", logfields.Path(dest))
	return nil
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
