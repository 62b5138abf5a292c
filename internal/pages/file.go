// Package pages implements the pages task: page sources flow through
// front-matter extraction, Markdown rendering, template rendering, pretty-URL
// rewriting, optional minification and finally get written to the output dir.
package pages

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// DemosDir is the directory holding demo page sources.
const DemosDir = "demos"

// File is one page source moving through the pipeline.
type File struct {
	// Path is relative to the source root, slash separated.
	Path     string
	Contents []byte
	// Page is nil when the source had no front matter.
	Page *site.Page
	// Output is the destination path relative to the output dir, set by rewrite.
	Output string
}

// Ext returns the lower-cased extension of the source path.
func (f *File) Ext() string {
	return strings.ToLower(path.Ext(f.Path))
}

// Slug returns the base name of the source without its extension.
func (f *File) Slug() string {
	base := path.Base(f.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// OutputPath maps a source path to its pretty-URL destination. "index" and
// "404" stay in place with an .html extension; any other X becomes
// X/index.html inside the same directory. Applying it twice is a no-op.
func OutputPath(rel string) string {
	dir, base := path.Split(filepath.ToSlash(rel))
	name := strings.TrimSuffix(base, path.Ext(base))
	if name == "index" || name == "404" {
		return path.Join(dir, name+".html")
	}
	return path.Join(dir, name, "index.html")
}

// Discover lists the page sources under root: top-level *.html files and
// every file below demos/. Hidden files are skipped. Order is lexical.
func Discover(root string) ([]string, error) {
	var out []string

	top, err := filepath.Glob(filepath.Join(root, "*.html"))
	if err != nil {
		return nil, err
	}
	for _, p := range top {
		info, statErr := os.Stat(p)
		if statErr != nil || !info.Mode().IsRegular() || isHidden(filepath.Base(p)) {
			continue
		}
		out = append(out, filepath.Base(p))
	}

	demos := filepath.Join(root, DemosDir)
	if _, err := os.Stat(demos); err == nil {
		walkErr := filepath.WalkDir(demos, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if isHidden(d.Name()) && p != demos {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				return relErr
			}
			out = append(out, filepath.ToSlash(rel))
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}

	sort.Strings(out)
	return out, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
