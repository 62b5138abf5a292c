// Package site holds the shared rendering context of a pages build: global
// site data plus the demo pages accumulated during front-matter extraction.
package site

import (
	"maps"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Template context keys.
const (
	KeyBaseURL   = "baseUrl"
	KeyEnv       = "env"
	KeyRepo      = "repo"
	KeyDemos     = "demos"
	KeySlug      = "slug"
	KeyPermalink = "permalink"
	KeyTemplate  = "template"
	KeyTitle     = "title"
	KeyContent   = "content"
)

const demosSegment = "demos"

// Options carries the runtime overrides merged on top of the site data file.
type Options struct {
	BaseURL  string
	Env      string
	RepoName string
}

// Site is built once per pages run. Extraction appends demos; every later
// stage only reads it.
type Site struct {
	BaseURL  string
	Env      string
	RepoName string

	data   map[string]any
	demos  []*Page
	listed map[*Page]struct{}
}

// NewSite merges base site data with runtime overrides. Overrides win.
func NewSite(data map[string]any, opts Options) *Site {
	merged := make(map[string]any, len(data)+2)
	maps.Copy(merged, data)
	merged[KeyBaseURL] = opts.BaseURL
	merged[KeyEnv] = opts.Env

	return &Site{
		BaseURL:  opts.BaseURL,
		Env:      opts.Env,
		RepoName: opts.RepoName,
		data:     merged,
		listed:   make(map[*Page]struct{}),
	}
}

// AddDemo appends page to the demo list. A page is listed at most once.
func (s *Site) AddDemo(page *Page) {
	if page == nil {
		return
	}
	if _, ok := s.listed[page]; ok {
		return
	}
	s.listed[page] = struct{}{}
	s.demos = append(s.demos, page)
}

// Demos returns the accumulated demo pages in discovery order.
func (s *Site) Demos() []*Page {
	out := make([]*Page, len(s.demos))
	copy(out, s.demos)
	return out
}

// Data returns the template view of the site.
func (s *Site) Data() map[string]any {
	out := make(map[string]any, len(s.data)+2)
	maps.Copy(out, s.data)
	out[KeyRepo] = s.RepoName

	demos := make([]map[string]any, 0, len(s.demos))
	for _, d := range s.demos {
		demos = append(demos, d.Data())
	}
	out[KeyDemos] = demos
	return out
}

// Permalink returns the public URL of the page with the given slug.
func Permalink(baseURL, slug string) string {
	if slug == "index" {
		return baseURL
	}
	return baseURL + demosSegment + "/" + slug + "/"
}

// IsDemoPath reports whether a slash separated path has a demos segment.
func IsDemoPath(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if seg == demosSegment {
			return true
		}
	}
	return false
}

// Page is the record attached to a source file that carried front matter.
type Page struct {
	Slug      string
	Permalink string
	Template  string
	Fields    map[string]any
	Content   string
}

// NewPage builds a page record. slug and permalink take precedence over
// same-named front-matter attributes.
func NewPage(slug, permalink string, fields map[string]any) *Page {
	if fields == nil {
		fields = map[string]any{}
	}
	p := &Page{Slug: slug, Permalink: permalink, Fields: fields}
	if tpl, ok := fields[KeyTemplate].(string); ok {
		p.Template = tpl
	}
	return p
}

// Title returns the declared title, or one derived from the slug.
func (p *Page) Title() string {
	if t, ok := p.Fields[KeyTitle].(string); ok && t != "" {
		return t
	}
	return TitleFromSlug(p.Slug)
}

// Data returns the template view of the page.
func (p *Page) Data() map[string]any {
	out := make(map[string]any, len(p.Fields)+5)
	maps.Copy(out, p.Fields)
	out[KeySlug] = p.Slug
	out[KeyPermalink] = p.Permalink
	out[KeyTemplate] = p.Template
	out[KeyContent] = p.Content
	if _, ok := out[KeyTitle]; !ok {
		out[KeyTitle] = p.Title()
	}
	return out
}

// TitleFromSlug turns "holy-grail_layout" into "Holy Grail Layout".
func TitleFromSlug(slug string) string {
	words := strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	return cases.Title(language.English).String(strings.Join(strings.Fields(words), " "))
}
