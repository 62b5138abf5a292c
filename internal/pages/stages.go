package pages

import (
	"context"
	stderrors "errors"
	"os"
	"path"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// Template context keys.
const (
	ctxSite = "site"
	ctxPage = "page"
)

// extract strips front matter, attaches page records and fills the site's
// demo list. It returns only after every file has been processed.
func (b *Builder) extract(ctx context.Context, files []*File, bnd *boundary) []*File {
	logger := logfields.FromContext(ctx)
	s := b.opts.Site

	out := make([]*File, 0, len(files))
	for _, f := range files {
		doc, err := frontmatter.Parse(f.Contents)
		switch {
		case stderrors.Is(err, frontmatter.ErrMissingClosingDelimiter):
			logger.Warn("Unterminated front matter, treating file as plain content", logfields.File(f.Path))
		case err != nil:
			bnd.fail(f.Path, "extract", errors.FrontMatterError(f.Path, "invalid front matter").WithCause(err).Build())
			continue
		}

		if doc.HasFrontMatter {
			slug := f.Slug()
			f.Page = site.NewPage(slug, site.Permalink(s.BaseURL, slug), doc.Fields)
			f.Contents = doc.Body
			if site.IsDemoPath(f.Path) {
				s.AddDemo(f.Page)
			}
		}
		out = append(out, f)
	}
	return out
}

func (b *Builder) renderMarkdown(_ context.Context, f *File) error {
	if f.Ext() != ".md" {
		return nil
	}
	html, err := b.markdown.Render(f.Path, f.Contents)
	if err != nil {
		return err
	}
	f.Contents = html
	return nil
}

// renderTemplate renders the body as a template, stores it as the page
// content, then renders the page's layout with the full context. Files
// without a page record only get the body pass with the site context.
func (b *Builder) renderTemplate(_ context.Context, f *File) error {
	tpls := b.opts.Templates

	if f.Page == nil {
		body, err := tpls.RenderString(f.Path, string(f.Contents), map[string]any{
			ctxSite: b.opts.Site.Data(),
		})
		if err != nil {
			return err
		}
		f.Contents = []byte(body)
		return nil
	}

	if f.Page.Template == "" {
		return errors.TemplateError(f.Path, "front matter does not declare a template").Build()
	}

	content, err := tpls.RenderString(f.Path, string(f.Contents), b.context(f.Page))
	if err != nil {
		return err
	}
	f.Page.Content = content

	out, err := tpls.Render(f.Page.Template, b.context(f.Page))
	if err != nil {
		return errors.TemplateError(f.Path, "render layout").
			WithContext(errors.ContextTemplate, f.Page.Template).
			WithCause(err).
			Build()
	}
	f.Contents = out
	return nil
}

func (b *Builder) context(p *site.Page) map[string]any {
	return map[string]any{
		ctxSite: b.opts.Site.Data(),
		ctxPage: p.Data(),
	}
}

func rewritePath(_ context.Context, f *File) error {
	f.Output = OutputPath(f.Path)
	return nil
}

func (b *Builder) minify(_ context.Context, f *File) error {
	if b.minifier == nil {
		return nil
	}
	out, err := b.minifier.HTML(f.Contents)
	if err != nil {
		return errors.RenderError(f.Path, "minify html").WithCause(err).Build()
	}
	f.Contents = out
	return nil
}

func (b *Builder) write(ctx context.Context, f *File) error {
	dest := filepath.Join(b.opts.DestDir, filepath.FromSlash(path.Clean(f.Output)))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return errors.FileSystemError("create output dir").WithFile(f.Path).WithCause(err).Build()
	}
	if err := os.WriteFile(dest, f.Contents, 0o644); err != nil { // #nosec G306 -- published site files
		return errors.FileSystemError("write page").WithFile(f.Path).WithCause(err).Build()
	}
	logfields.FromContext(ctx).Debug("Page written", logfields.File(f.Path), logfields.Output(f.Output))
	return nil
}
