package lint

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/pages"
)

// Linter checks the JavaScript sources and page sources of a project.
type Linter struct {
	cfg     *Config
	scripts *ScriptParser
	rules   []Rule
}

// NewLinter creates a new linter with the given configuration.
func NewLinter(cfg *Config) *Linter {
	if cfg == nil {
		cfg = &Config{Root: ".", Format: "text"}
	}
	if cfg.ScriptsDir == "" {
		cfg.ScriptsDir = "assets/javascript"
	}
	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = "templates"
	}

	scripts := &ScriptParser{}
	return &Linter{
		cfg:     cfg,
		scripts: scripts,
		rules: []Rule{
			&JSSyntaxRule{Scripts: scripts},
			&JSDiagnosticsRule{Scripts: scripts},
			&PageTemplateRule{TemplatesDir: cfg.TemplatesDir},
		},
	}
}

// Rules returns the rule names in evaluation order.
func (l *Linter) Rules() []string {
	names := make([]string, 0, len(l.rules))
	for _, r := range l.rules {
		names = append(names, r.Name())
	}
	return names
}

// Lint checks every script under the scripts dir, every page source and the
// configured extra paths. Every file is checked before returning; the
// caller decides whether the result fails the task.
func (l *Linter) Lint(ctx context.Context) (*Result, error) {
	files, err := l.collect()
	if err != nil {
		return nil, err
	}
	return l.LintFiles(ctx, files)
}

// LintFiles lints a specific list of files relative to the root.
func (l *Linter) LintFiles(ctx context.Context, files []string) (*Result, error) {
	logger := logfields.FromContext(ctx)
	result := &Result{Issues: []Issue{}}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := os.Stat(filepath.Join(l.cfg.Root, filepath.FromSlash(file))); os.IsNotExist(err) {
			logger.Debug("Skipping missing file", logfields.File(file))
			continue
		}
		result.FilesTotal++
		if err := l.lintFile(file, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// lintFile applies all applicable rules to a single file.
func (l *Linter) lintFile(path string, result *Result) error {
	l.scripts.Forget()
	for _, rule := range l.rules {
		if !rule.AppliesTo(path) {
			continue
		}

		issues, err := rule.Check(l.cfg.Root, path)
		if err != nil {
			return err
		}

		for _, issue := range issues {
			if l.cfg.Quiet && issue.Severity != SeverityError {
				continue
			}
			result.Issues = append(result.Issues, issue)
		}
	}
	return nil
}

func (l *Linter) collect() ([]string, error) {
	seen := map[string]struct{}{}
	var files []string
	add := func(p string) {
		p = filepath.ToSlash(filepath.Clean(p))
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	scripts := filepath.Join(l.cfg.Root, filepath.FromSlash(l.cfg.ScriptsDir))
	if _, err := os.Stat(scripts); err == nil {
		err := filepath.WalkDir(scripts, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Name()[0] == '.' && path != scripts {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !IsScriptFile(path) {
				return nil
			}
			rel, err := filepath.Rel(l.cfg.Root, path)
			if err != nil {
				return err
			}
			add(rel)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sources, err := pages.Discover(l.cfg.Root)
	if err != nil {
		return nil, err
	}
	for _, p := range sources {
		add(p)
	}

	for _, p := range l.cfg.ExtraPaths {
		add(p)
	}

	sort.Strings(files)
	return files, nil
}
