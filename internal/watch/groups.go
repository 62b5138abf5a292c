package watch

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Group maps a set of source globs to the task that rebuilds them. Globs are
// slash separated and relative to the project root; "*" stays within one
// path segment, "**" crosses segments.
type Group struct {
	Name     string
	Task     string
	Patterns []string

	globs []glob.Glob
}

// NewGroup compiles the patterns of a group.
func NewGroup(name, task string, patterns ...string) (Group, error) {
	g := Group{Name: name, Task: task, Patterns: patterns}
	for _, p := range patterns {
		compiled, err := glob.Compile(p, '/')
		if err != nil {
			return Group{}, errors.ValidationError("invalid watch pattern").
				WithContext("group", name).
				WithContext("pattern", p).
				WithCause(err).
				Build()
		}
		g.globs = append(g.globs, compiled)
	}
	return g, nil
}

// Match reports whether the slash separated relative path belongs to the group.
func (g Group) Match(rel string) bool {
	for _, gl := range g.globs {
		if gl.Match(rel) {
			return true
		}
	}
	return false
}

// DefaultGroups returns the css, images, javascript and pages groups for cfg.
func DefaultGroups(cfg *config.Config) ([]Group, error) {
	dir := func(p string) string { return glob.QuoteMeta(relSlash(cfg.Root, p)) }

	specs := []struct {
		name, task string
		patterns   []string
	}{
		{"css", build.TaskCSS, []string{dir(path.Dir(filepath.ToSlash(cfg.Assets.CSSEntry))) + "/**.css"}},
		{"images", build.TaskImages, []string{dir(cfg.Assets.ImagesDir) + "/*"}},
		{"javascript", build.TaskJavaScript, []string{dir(cfg.Assets.ScriptsDir) + "/*"}},
		{"pages", build.TaskPages, []string{
			"*.html",
			"demos/**",
			dir(cfg.TemplatesDir) + "/**",
			dir(cfg.SiteDataFile),
		}},
	}

	groups := make([]Group, 0, len(specs))
	for _, s := range specs {
		g, err := NewGroup(s.name, s.task, s.patterns...)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// relSlash returns p relative to root in slash form. Relative inputs are
// taken as already relative to root.
func relSlash(root, p string) string {
	if filepath.IsAbs(p) {
		if rel, err := filepath.Rel(root, p); err == nil {
			p = rel
		}
	}
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "./")
}

// ignoredName reports editor swap, backup and hidden files.
func ignoredName(base string) bool {
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db", base == "4913":
		return true
	}
	return false
}
