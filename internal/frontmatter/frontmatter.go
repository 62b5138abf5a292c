// Package frontmatter splits a `---` delimited YAML header from the body of a
// page source and decodes its attributes.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// ErrMissingClosingDelimiter indicates the document opened a header block but
// never closed it.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// Document is a page source with its header decoded.
type Document struct {
	Fields         map[string]any
	Body           []byte
	HasFrontMatter bool
}

// Split separates the raw YAML header (without delimiters) from the body.
//
// If content does not start with a delimiter line, had is false and body is
// the full input. LF and CRLF line endings are both accepted; a closing
// delimiter on the last line without a trailing newline counts as closed.
func Split(content []byte) (header []byte, body []byte, had bool, err error) {
	nl := newline(content)
	open := []byte(delimiter + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	rest := content[len(open):]
	if isDelimiterLine(rest, nl) {
		return []byte{}, trimDelimiterLine(rest, nl), true, nil
	}

	closeSeq := []byte(nl + delimiter)
	offset := 0
	for {
		idx := bytes.Index(rest[offset:], closeSeq)
		if idx < 0 {
			return nil, nil, false, ErrMissingClosingDelimiter
		}
		start := offset + idx + len(nl)
		if isDelimiterLine(rest[start:], nl) {
			return rest[:start], trimDelimiterLine(rest[start:], nl), true, nil
		}
		offset = start
	}
}

// ParseYAML decodes a raw header into a map. An empty header yields an empty map.
func ParseYAML(header []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(header)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(header, &fields); err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Parse splits and decodes content in one step.
//
// A header that is opened but never closed is not recognizable as front
// matter: the document is returned unmodified with HasFrontMatter false and
// ErrMissingClosingDelimiter so callers can log it.
func Parse(content []byte) (Document, error) {
	header, body, had, err := Split(content)
	if errors.Is(err, ErrMissingClosingDelimiter) {
		return Document{Body: content}, err
	}
	if err != nil {
		return Document{}, err
	}
	if !had {
		return Document{Body: body}, nil
	}

	fields, err := ParseYAML(header)
	if err != nil {
		return Document{}, err
	}
	return Document{Fields: fields, Body: body, HasFrontMatter: true}, nil
}

func isDelimiterLine(b []byte, nl string) bool {
	if !bytes.HasPrefix(b, []byte(delimiter)) {
		return false
	}
	tail := b[len(delimiter):]
	return len(tail) == 0 || bytes.HasPrefix(tail, []byte(nl))
}

func trimDelimiterLine(b []byte, nl string) []byte {
	b = b[len(delimiter):]
	return bytes.TrimPrefix(b, []byte(nl))
}

func newline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
