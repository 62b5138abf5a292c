// Package templates loads the layout templates of a site and renders pages
// through them with text/template. Output is not auto-escaped.
package templates

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Set is a parsed templates directory.
type Set struct {
	dir   string
	root  *template.Template
	names []string
}

// Load parses every regular file under dir. Template names are the slash
// separated path relative to dir, e.g. "demo.html" or "partials/head.html".
// A missing directory yields an empty set.
func Load(dir string) (*Set, error) {
	root := template.New("").Funcs(Funcs())
	set := &Set{dir: dir, root: root}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return set, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := root.New(name).Parse(string(content)); err != nil {
			return errors.TemplateError(name, "parse template").
				WithContext(errors.ContextTemplate, name).
				WithCause(err).
				Build()
		}
		set.names = append(set.names, name)
		return nil
	})
	if err != nil {
		if _, ok := errors.AsClassified(err); ok {
			return nil, err
		}
		return nil, errors.FileSystemError("load templates").WithContext("dir", dir).WithCause(err).Build()
	}

	sort.Strings(set.names)
	return set, nil
}

// Dir returns the directory the set was loaded from.
func (s *Set) Dir() string { return s.dir }

// Names returns the loaded template names in lexical order.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Has reports whether a template with the given name was loaded.
func (s *Set) Has(name string) bool {
	return s.root.Lookup(name) != nil
}

// Render executes the named template with data.
func (s *Set) Render(name string, data map[string]any) ([]byte, error) {
	tpl := s.root.Lookup(name)
	if tpl == nil {
		return nil, errors.NewError(errors.CategoryNotFound, "template not found").
			WithContext(errors.ContextTemplate, name).
			Build()
	}

	out, err := execute(tpl, data)
	if err != nil {
		return nil, errors.TemplateError(name, "render template").
			WithContext(errors.ContextTemplate, name).
			WithCause(err).
			Build()
	}
	return out, nil
}

// RenderString parses body as a template and executes it with data. The body
// may reference any template of the set. name identifies the source file.
func (s *Set) RenderString(name, body string, data map[string]any) (string, error) {
	scope, err := s.root.Clone()
	if err != nil {
		return "", errors.InternalError("clone template set").WithCause(err).Build()
	}

	tpl, err := scope.New("body:" + name).Parse(body)
	if err != nil {
		return "", errors.TemplateError(name, "parse page body").WithCause(err).Build()
	}

	out, err := execute(tpl, data)
	if err != nil {
		return "", errors.TemplateError(name, "render page body").WithCause(err).Build()
	}
	return string(out), nil
}

// noValue is what text/template prints for a key missing from a map.
var noValue = []byte("<no value>")

// execute runs tpl and renders undeclared fields as empty. Page and site
// data are maps, so missingkey=zero would still print the sentinel.
func execute(tpl *template.Template, data map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return bytes.ReplaceAll(buf.Bytes(), noValue, nil), nil
}
