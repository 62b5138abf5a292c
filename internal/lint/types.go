package lint

import (
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Severity indicates the importance level of a linting issue.
type Severity int

const (
	// SeverityInfo indicates informational messages.
	SeverityInfo Severity = iota
	// SeverityWarning indicates issues that should be fixed but don't fail the task.
	SeverityWarning
	// SeverityError indicates issues that fail the lint task.
	SeverityError
)

// String returns the human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Issue represents a single linting problem found in a file.
type Issue struct {
	FilePath string   // Path relative to the project root
	Severity Severity // Issue severity level
	Rule     string   // Rule identifier (e.g., "js-syntax")
	Message  string   // Brief description of the issue
	Line     int      // Line number (0 if file-level issue)
	Column   int
	Fix      string // Suggested fix
}

// Result contains all issues found during linting.
type Result struct {
	Issues     []Issue
	FilesTotal int // Total files scanned
}

// HasErrors returns true if any error-level issues exist.
func (r *Result) HasErrors() bool {
	return r.ErrorCount() > 0
}

// HasWarnings returns true if any warning-level issues exist.
func (r *Result) HasWarnings() bool {
	return r.WarningCount() > 0
}

// ErrorCount returns the number of error-level issues.
func (r *Result) ErrorCount() int {
	return r.count(SeverityError)
}

// WarningCount returns the number of warning-level issues.
func (r *Result) WarningCount() int {
	return r.count(SeverityWarning)
}

func (r *Result) count(sev Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			n++
		}
	}
	return n
}

// Err returns a lint error when any error-level issue exists. Call it only
// after the whole result has been reported.
func (r *Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return errors.LintError(fmt.Sprintf("%d lint error%s in %d file%s",
		r.ErrorCount(), pluralize(r.ErrorCount()), r.FilesTotal, pluralize(r.FilesTotal))).Build()
}

// Rule defines a linting rule that can be applied to files.
type Rule interface {
	// Name returns the unique identifier for this rule.
	Name() string

	// Check validates a file and returns any issues found. path is relative
	// to the project root.
	Check(root, path string) ([]Issue, error)

	// AppliesTo returns true if this rule should be checked for the given file.
	AppliesTo(path string) bool
}

// Config contains configuration for the linter.
type Config struct {
	// Root is the project root every path is resolved against.
	Root string

	// ScriptsDir is the directory of JavaScript sources, relative to Root.
	ScriptsDir string

	// TemplatesDir is the layout templates directory, relative to Root.
	TemplatesDir string

	// ExtraPaths are additional files linted alongside the defaults.
	ExtraPaths []string

	// Quiet suppresses warnings, only showing errors.
	Quiet bool

	// Format specifies output format (text, json).
	Format string
}

// IsScriptFile returns true if the file is a JavaScript source.
func IsScriptFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs":
		return true
	default:
		return false
	}
}

// IsPageFile returns true if the file is a page source.
func IsPageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".md":
		return true
	default:
		return false
	}
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
