package lint

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
)

// JSSyntaxRule reports JavaScript parse errors.
type JSSyntaxRule struct {
	Scripts *ScriptParser
}

func (r *JSSyntaxRule) Name() string { return "js-syntax" }

func (r *JSSyntaxRule) AppliesTo(path string) bool { return IsScriptFile(path) }

func (r *JSSyntaxRule) Check(root, path string) ([]Issue, error) {
	result, err := r.Scripts.Parse(root, path)
	if err != nil {
		return nil, err
	}
	return messagesToIssues(path, r.Name(), SeverityError, result.Errors), nil
}

// JSDiagnosticsRule reports suspicious code the parser warns about, such as
// duplicate keys, comparisons with NaN or unreachable assignments.
type JSDiagnosticsRule struct {
	Scripts *ScriptParser
}

func (r *JSDiagnosticsRule) Name() string { return "js-diagnostics" }

func (r *JSDiagnosticsRule) AppliesTo(path string) bool { return IsScriptFile(path) }

func (r *JSDiagnosticsRule) Check(root, path string) ([]Issue, error) {
	result, err := r.Scripts.Parse(root, path)
	if err != nil {
		return nil, err
	}
	return messagesToIssues(path, r.Name(), SeverityWarning, result.Warnings), nil
}

// ScriptParser parses scripts for the JavaScript rules. It keeps the most
// recent result so the rules checking the same file share one parse. A nil
// parser parses every call.
type ScriptParser struct {
	mu     sync.Mutex
	key    string
	result api.TransformResult
	parses int
}

// Parse returns the esbuild result for path, reusing the last one when the
// same file is asked for again.
func (p *ScriptParser) Parse(root, path string) (api.TransformResult, error) {
	if p == nil {
		return parseScript(root, path)
	}
	key := filepath.Join(root, filepath.FromSlash(path))

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key == key {
		return p.result, nil
	}
	result, err := parseScript(root, path)
	if err != nil {
		return result, err
	}
	p.key, p.result = key, result
	p.parses++
	return result, nil
}

// Forget drops the kept result so the next Parse reads the file again.
func (p *ScriptParser) Forget() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.key, p.result = "", api.TransformResult{}
}

// Parses reports how many files were actually parsed.
func (p *ScriptParser) Parses() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parses
}

func parseScript(root, path string) (api.TransformResult, error) {
	src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	if err != nil {
		return api.TransformResult{}, err
	}
	return api.Transform(string(src), api.TransformOptions{
		Loader:     api.LoaderJS,
		Sourcefile: path,
		Format:     api.FormatESModule,
		LogLevel:   api.LogLevelSilent,
	}), nil
}

func messagesToIssues(path, rule string, sev Severity, msgs []api.Message) []Issue {
	issues := make([]Issue, 0, len(msgs))
	for _, m := range msgs {
		issue := Issue{
			FilePath: path,
			Severity: sev,
			Rule:     rule,
			Message:  m.Text,
		}
		if m.Location != nil {
			issue.Line = m.Location.Line
			issue.Column = m.Location.Column + 1
			issue.Fix = m.Location.Suggestion
		}
		issues = append(issues, issue)
	}
	return issues
}
