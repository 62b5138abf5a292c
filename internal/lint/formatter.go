package lint

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Formatter formats linting results for output.
type Formatter interface {
	Format(w io.Writer, result *Result) error
}

type textStyles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	File    lipgloss.Style
	Dim     lipgloss.Style
	Success lipgloss.Style
}

func newTextStyles(useColor bool) textStyles {
	if !useColor {
		plain := lipgloss.NewStyle()
		return textStyles{plain, plain, plain, plain, plain, plain}
	}
	return textStyles{
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		File:    lipgloss.NewStyle().Bold(true).Underline(true),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
}

// TextFormatter formats results as human-readable text, grouped by file.
type TextFormatter struct {
	styles textStyles
}

// NewTextFormatter creates a text formatter.
func NewTextFormatter(useColor bool) *TextFormatter {
	return &TextFormatter{styles: newTextStyles(useColor)}
}

// Format outputs results in human-readable text format.
func (f *TextFormatter) Format(w io.Writer, result *Result) error {
	byFile := make(map[string][]Issue)
	for _, issue := range result.Issues {
		byFile[issue.FilePath] = append(byFile[issue.FilePath], issue)
	}
	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	var b strings.Builder
	for _, file := range files {
		b.WriteString(f.styles.File.Render(file))
		b.WriteString("\n")
		for _, issue := range byFile[file] {
			f.formatIssue(&b, issue)
		}
		b.WriteString("\n")
	}

	errs, warns := result.ErrorCount(), result.WarningCount()
	switch {
	case errs > 0:
		b.WriteString(f.styles.Error.Render(fmt.Sprintf("✖ %d problem%s (%d error%s, %d warning%s)",
			errs+warns, pluralize(errs+warns), errs, pluralize(errs), warns, pluralize(warns))))
	case warns > 0:
		b.WriteString(f.styles.Warning.Render(fmt.Sprintf("⚠ %d warning%s", warns, pluralize(warns))))
	default:
		b.WriteString(f.styles.Success.Render("✔ no problems"))
	}
	b.WriteString(f.styles.Dim.Render(fmt.Sprintf(" in %d file%s", result.FilesTotal, pluralize(result.FilesTotal))))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (f *TextFormatter) formatIssue(b *strings.Builder, issue Issue) {
	var sev string
	switch issue.Severity {
	case SeverityError:
		sev = f.styles.Error.Render("error")
	case SeverityWarning:
		sev = f.styles.Warning.Render("warning")
	default:
		sev = f.styles.Info.Render("info")
	}

	pos := ""
	if issue.Line > 0 {
		pos = fmt.Sprintf("%d:%d", issue.Line, issue.Column)
	}
	fmt.Fprintf(b, "  %-7s %s  %s  %s\n", pos, sev, issue.Message, f.styles.Dim.Render(issue.Rule))
	if issue.Fix != "" {
		fmt.Fprintf(b, "          %s\n", f.styles.Dim.Render("fix: "+issue.Fix))
	}
}

// JSONFormatter formats results as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// JSONOutput represents the JSON output structure.
type JSONOutput struct {
	FilesTotal   int         `json:"files_total"`
	ErrorCount   int         `json:"error_count"`
	WarningCount int         `json:"warning_count"`
	Issues       []JSONIssue `json:"issues"`
}

// JSONIssue represents a single issue in JSON format.
type JSONIssue struct {
	FilePath string `json:"file_path"`
	Severity string `json:"severity"`
	Rule     string `json:"rule"`
	Message  string `json:"message"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Fix      string `json:"fix,omitempty"`
}

// Format outputs results in JSON format.
func (f *JSONFormatter) Format(w io.Writer, result *Result) error {
	output := JSONOutput{
		FilesTotal:   result.FilesTotal,
		ErrorCount:   result.ErrorCount(),
		WarningCount: result.WarningCount(),
		Issues:       make([]JSONIssue, 0, len(result.Issues)),
	}
	for _, issue := range result.Issues {
		output.Issues = append(output.Issues, JSONIssue{
			FilePath: issue.FilePath,
			Severity: issue.Severity.String(),
			Rule:     issue.Rule,
			Message:  issue.Message,
			Line:     issue.Line,
			Column:   issue.Column,
			Fix:      issue.Fix,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// NewFormatter creates the appropriate formatter based on format string.
func NewFormatter(format string, useColor bool) Formatter {
	switch format {
	case "json":
		return NewJSONFormatter()
	default:
		return NewTextFormatter(useColor)
	}
}
