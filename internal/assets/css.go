package assets

import (
	"context"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// cssEngines approximates "> 1%, last 2 versions, Safari > 5, ie > 9, Firefox ESR".
var cssEngines = []api.Engine{
	{Name: api.EngineChrome, Version: "49"},
	{Name: api.EngineEdge, Version: "14"},
	{Name: api.EngineFirefox, Version: "52"},
	{Name: api.EngineIE, Version: "10"},
	{Name: api.EngineIOS, Version: "6"},
	{Name: api.EngineSafari, Version: "6"},
}

// CSSOptions configures the css task.
type CSSOptions struct {
	Root    string
	Entry   string
	DestDir string
}

// keepURLs marks every url() reference external so it is emitted exactly as
// written instead of being resolved against the source tree.
var keepURLs = api.Plugin{
	Name: "keep-css-urls",
	Setup: func(build api.PluginBuild) {
		build.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
			if args.Kind != api.ResolveCSSURLToken {
				return api.OnResolveResult{}, nil
			}
			return api.OnResolveResult{Path: args.Path, External: true}, nil
		})
	},
}

// BuildCSS bundles the entry stylesheet into <dest>/<entry base name>.
// @import rules are inlined, url() references are left untouched and the
// output is always minified.
func BuildCSS(ctx context.Context, opts CSSOptions) (string, error) {
	src := filepath.Join(opts.Root, opts.Entry)
	if _, err := os.Stat(src); err != nil {
		return "", errors.FileSystemError("read stylesheet").WithFile(opts.Entry).WithCause(err).Build()
	}

	out := filepath.Join(opts.DestDir, filepath.Base(opts.Entry))
	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{src},
		AbsWorkingDir:     opts.Root,
		Outfile:           out,
		Bundle:            true,
		Write:             false,
		Loader:            map[string]api.Loader{".css": api.LoaderCSS},
		Engines:           cssEngines,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: true,
		Plugins:           []api.Plugin{keepURLs},
		LogLevel:          api.LogLevelSilent,
	})
	logWarnings(ctx, result.Warnings)
	if len(result.Errors) > 0 {
		return "", bundleError("css build failed", opts.Entry, result.Errors)
	}

	var code []byte
	for _, f := range result.OutputFiles {
		if filepath.Clean(f.Path) == filepath.Clean(out) {
			code = f.Contents
		}
	}
	if code == nil && len(result.OutputFiles) > 0 {
		code = result.OutputFiles[0].Contents
	}

	if err := os.MkdirAll(opts.DestDir, 0o750); err != nil {
		return "", errors.FileSystemError("create output dir").WithCause(err).Build()
	}
	if err := os.WriteFile(out, code, 0o644); err != nil { // #nosec G306 -- published site files
		return "", errors.FileSystemError("write stylesheet").WithFile(opts.Entry).WithCause(err).Build()
	}

	logfields.FromContext(ctx).Debug("Stylesheet written", logfields.File(opts.Entry), logfields.Output(out))
	return out, nil
}
