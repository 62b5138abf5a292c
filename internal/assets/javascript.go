package assets

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Bundle names.
const (
	BundleMain      = "main"
	BundlePolyfills = "polyfills"
)

// BundleOptions configures one JavaScript bundle.
type BundleOptions struct {
	Name    string
	Root    string
	Entry   string
	DestDir string
	// PublicPath is the URL prefix of emitted asset references.
	PublicPath string
	// Define maps global identifiers to JSON encoded constants.
	Define map[string]string
	// Minify enables whitespace, syntax and identifier minification.
	Minify bool
	// Target is the language level the output is lowered to.
	Target api.Target
}

// MainBundleOptions returns the application bundle settings: environment
// constants are inlined, output is lowered to ES2015 and only minified in
// production.
func MainBundleOptions(root, entry, dest, env, publicPath string, production bool) BundleOptions {
	return BundleOptions{
		Name:       BundleMain,
		Root:       root,
		Entry:      entry,
		DestDir:    dest,
		PublicPath: publicPath,
		Define: map[string]string{
			"process.env.NODE_ENV":        jsString(env),
			"process.env.SBF_PUBLIC_PATH": jsString(publicPath),
		},
		Minify: production,
		Target: api.ES2015,
	}
}

// PolyfillsBundleOptions returns the polyfills bundle settings: always
// minified, never lowered.
func PolyfillsBundleOptions(root, entry, dest, publicPath string) BundleOptions {
	return BundleOptions{
		Name:       BundlePolyfills,
		Root:       root,
		Entry:      entry,
		DestDir:    dest,
		PublicPath: publicPath,
		Define: map[string]string{
			"process.env.NODE_ENV": jsString("production"),
		},
		Minify: true,
		Target: api.ESNext,
	}
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Bundler builds one JavaScript bundle. The esbuild context is created on the
// first Build and reused by every later call until Dispose.
type Bundler struct {
	opts BundleOptions

	mu      sync.Mutex
	ctx     api.BuildContext
	outfile string
	builds  int
}

// NewBundler returns a bundler. Nothing is created until the first Build.
func NewBundler(opts BundleOptions) *Bundler {
	return &Bundler{opts: opts}
}

// Name returns the bundle name.
func (b *Bundler) Name() string { return b.opts.Name }

// Builds returns how many builds this bundler has run.
func (b *Bundler) Builds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builds
}

// Build bundles the entry into <dest>/<entry base name> with a linked source
// map and returns the paths of both files.
func (b *Bundler) Build(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	logger := logfields.FromContext(ctx)
	if b.ctx == nil {
		bctx, err := b.create()
		if err != nil {
			return nil, err
		}
		b.ctx = bctx
		logger.Debug("Bundler created", logfields.File(b.opts.Entry))
	}

	result := b.ctx.Rebuild()
	b.builds++
	logWarnings(ctx, result.Warnings)
	if len(result.Errors) > 0 {
		return nil, bundleError("javascript bundle failed", b.opts.Entry, result.Errors)
	}

	return []string{b.outfile, b.outfile + ".map"}, nil
}

func (b *Bundler) create() (api.BuildContext, error) {
	root, err := filepath.Abs(b.opts.Root)
	if err != nil {
		return nil, errors.FileSystemError("resolve project root").WithCause(err).Build()
	}
	dest := b.opts.DestDir
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(root, dest)
	}

	b.outfile = filepath.Join(dest, filepath.Base(b.opts.Entry))

	bctx, cerr := api.Context(api.BuildOptions{
		AbsWorkingDir:     root,
		EntryPoints:       []string{b.opts.Entry},
		Outfile:           b.outfile,
		Bundle:            true,
		Write:             true,
		Platform:          api.PlatformBrowser,
		Format:            api.FormatIIFE,
		Target:            b.opts.Target,
		Sourcemap:         api.SourceMapLinked,
		PublicPath:        b.opts.PublicPath,
		Define:            b.opts.Define,
		MinifyWhitespace:  b.opts.Minify,
		MinifySyntax:      b.opts.Minify,
		MinifyIdentifiers: b.opts.Minify,
		LogLevel:          api.LogLevelSilent,
	})
	if cerr != nil {
		return nil, bundleError("create javascript bundler", b.opts.Entry, cerr.Errors)
	}
	return bctx, nil
}

// Dispose releases the esbuild context. A later Build creates a new one.
func (b *Bundler) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx != nil {
		b.ctx.Dispose()
		b.ctx = nil
	}
}
