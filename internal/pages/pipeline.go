package pages

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

// Options configures a pages build.
type Options struct {
	SourceDir string
	DestDir   string
	Site      *site.Site
	Templates *templates.Set
	// Minify enables HTML minification of the written pages.
	Minify   bool
	Markdown markdown.Options
}

// FileTransform modifies a single file in place. Returning an error drops the
// file from the build.
type FileTransform func(ctx context.Context, f *File) error

type namedTransform struct {
	name string
	fn   FileTransform
}

// Result summarizes a pages build.
type Result struct {
	Written []string
	Failed  []string
}

// Builder runs the pages pipeline.
type Builder struct {
	opts     Options
	markdown *markdown.Renderer
	minifier *htmlMinifier
}

// NewBuilder creates a builder. Site and Templates must be set.
func NewBuilder(opts Options) *Builder {
	b := &Builder{
		opts:     opts,
		markdown: markdown.NewRenderer(opts.Markdown),
	}
	if opts.Minify {
		b.minifier = newHTMLMinifier()
	}
	return b
}

// Run builds every page source under the source dir.
//
// Per-file failures are logged and the file is dropped; the remaining files
// are still written. The returned error then lists every failed file.
func (b *Builder) Run(ctx context.Context) (Result, error) {
	logger := logfields.FromContext(ctx)
	start := time.Now()

	paths, err := Discover(b.opts.SourceDir)
	if err != nil {
		return Result{}, errors.FileSystemError("discover page sources").WithCause(err).Build()
	}

	files := make([]*File, 0, len(paths))
	for _, rel := range paths {
		contents, readErr := os.ReadFile(filepath.Join(b.opts.SourceDir, filepath.FromSlash(rel)))
		if readErr != nil {
			return Result{}, errors.FileSystemError("read page source").WithFile(rel).WithCause(readErr).Build()
		}
		files = append(files, &File{Path: rel, Contents: contents})
	}

	bnd := &boundary{logger: logger}

	// Extraction is a barrier: every file is parsed before any is rendered
	// so the demo list is complete for every template.
	files = b.extract(ctx, files, bnd)

	transforms := []namedTransform{
		{"markdown", b.renderMarkdown},
		{"template", b.renderTemplate},
		{"rewrite", rewritePath},
		{"minify", b.minify},
		{"write", b.write},
	}

	var res Result
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if b.process(ctx, f, transforms, bnd) {
			res.Written = append(res.Written, f.Output)
		}
	}
	res.Failed = bnd.files()

	logger.Info("Pages built",
		logfields.Count(len(res.Written)),
		slog.Int("failed", len(res.Failed)),
		slog.Int("demos", len(b.opts.Site.Demos())),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))

	return res, bnd.err()
}

func (b *Builder) process(ctx context.Context, f *File, transforms []namedTransform, bnd *boundary) bool {
	for _, t := range transforms {
		if err := t.fn(ctx, f); err != nil {
			bnd.fail(f.Path, t.name, err)
			return false
		}
	}
	return true
}

// boundary collects per-file failures so one bad page never stops the build.
type boundary struct {
	logger *slog.Logger
	failed []string
	errs   []error
}

func (e *boundary) fail(file, stage string, err error) {
	e.logger.Error("Page failed",
		logfields.File(file),
		logfields.Stage(stage),
		logfields.Error(err))
	e.failed = append(e.failed, file)
	e.errs = append(e.errs, err)
}

func (e *boundary) files() []string {
	return e.failed
}

func (e *boundary) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	category := errors.CategoryRender
	if ce, ok := errors.AsClassified(e.errs[0]); ok {
		category = ce.Category()
	}
	return errors.NewError(category, fmt.Sprintf("%d page(s) failed", len(e.errs))).
		WithContext("files", e.failed).
		WithCause(stderrors.Join(e.errs...)).
		Build()
}
