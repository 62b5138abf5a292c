// Package markdown renders page bodies written in Markdown to HTML.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Options controls the Markdown renderer.
type Options struct {
	// Typographer converts quotes, dashes and ellipses to typographic entities.
	Typographer bool
	// HardWraps renders soft line breaks as <br>.
	HardWraps bool
}

// DefaultOptions matches the page pipeline's rendering settings.
func DefaultOptions() Options {
	return Options{Typographer: true}
}

// Renderer converts Markdown to HTML. Raw HTML in the source passes through.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer builds a goldmark renderer with highlighted fenced code blocks.
func NewRenderer(opts Options) *Renderer {
	exts := []goldmark.Extender{extension.Table, extension.Strikethrough, extension.Linkify}
	if opts.Typographer {
		exts = append(exts, extension.Typographer)
	}

	htmlOpts := []renderer.Option{html.WithUnsafe()}
	if opts.HardWraps {
		htmlOpts = append(htmlOpts, html.WithHardWraps())
	}
	htmlOpts = append(htmlOpts, renderer.WithNodeRenderers(
		util.Prioritized(newCodeBlockRenderer(), 100),
	))

	return &Renderer{md: goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithRendererOptions(htmlOpts...),
	)}
}

// Render converts body to HTML. name identifies the source file in errors.
func (r *Renderer) Render(name string, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf); err != nil {
		return nil, errors.RenderError(name, "markdown render failed").WithCause(err).Build()
	}
	return buf.Bytes(), nil
}
