package lint

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

// PageTemplateRule checks that every page source with front matter declares
// a template that exists in the templates directory.
type PageTemplateRule struct {
	TemplatesDir string
}

func (r *PageTemplateRule) Name() string { return "page-template" }

func (r *PageTemplateRule) AppliesTo(path string) bool { return IsPageFile(path) }

func (r *PageTemplateRule) Check(root, path string) ([]Issue, error) {
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	if err != nil {
		return nil, err
	}

	issue := func(sev Severity, msg, fix string) []Issue {
		return []Issue{{FilePath: path, Severity: sev, Rule: r.Name(), Message: msg, Fix: fix}}
	}

	doc, err := frontmatter.Parse(content)
	switch {
	case stderrors.Is(err, frontmatter.ErrMissingClosingDelimiter):
		return issue(SeverityWarning, "front matter is never closed; the file is treated as plain content",
			"add a closing --- line"), nil
	case err != nil:
		return issue(SeverityError, err.Error(), ""), nil
	case !doc.HasFrontMatter:
		return nil, nil
	}

	name, _ := doc.Fields["template"].(string)
	if name == "" {
		return issue(SeverityError, "front matter does not declare a template",
			"add a template: field naming a file in "+r.TemplatesDir), nil
	}

	tplPath := filepath.Join(root, filepath.FromSlash(r.TemplatesDir), filepath.FromSlash(name))
	if info, statErr := os.Stat(tplPath); statErr != nil || info.IsDir() {
		return issue(SeverityError, fmt.Sprintf("template %q not found", name), ""), nil
	}
	return nil, nil
}
