package markdown

import (
	"html"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighlight_KnownLanguage(t *testing.T) {
	out := Highlight("if (a < b && c) { return \"x\"; }", "javascript")

	assert.Contains(t, out, `class="`)
	assert.Contains(t, out, "&lt;")
	assert.NotContains(t, out, "&amp;lt;")
	assert.NotContains(t, out, "&amp;amp;")
}

func TestHighlight_PreEscapedInputIsNotDoubleEscaped(t *testing.T) {
	out := Highlight("a &lt; b", "css")
	assert.NotContains(t, out, "&amp;lt;")
	assert.Contains(t, out, "&lt;")
}

func TestHighlight_NoOrUnknownLanguageEscapesVerbatim(t *testing.T) {
	code := "<div class=\"a\">Tom & Jerry</div>\n"

	for _, lang := range []string{"", "definitely-not-a-language"} {
		out := Highlight(code, lang)
		assert.Equal(t, html.EscapeString(code), out, "lang=%q", lang)
		assert.Equal(t, code, html.UnescapeString(out))
	}
}

func TestRender_FencedCodeBlocks(t *testing.T) {
	r := NewRenderer(DefaultOptions())
	src := "# Title\n\n```html\n<div class=\"Grid\"></div>\n```\n\n```\nplain <b>\n```\n"

	out, err := r.Render("demos/grids.md", []byte(src))
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "<h1>Title</h1>")
	assert.Contains(t, s, `<pre><code class="hljs language-html">`)
	assert.NotContains(t, s, "&amp;lt;")
	assert.Contains(t, s, "<pre><code>plain &lt;b&gt;\n</code></pre>")
}

func TestRender_RawHTMLPassesThrough(t *testing.T) {
	r := NewRenderer(DefaultOptions())

	out, err := r.Render("x.md", []byte("<section class=\"Demo\">\n\nHello\n\n</section>\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `<section class="Demo">`)
}

func TestRender_Typographer(t *testing.T) {
	r := NewRenderer(DefaultOptions())

	out, err := r.Render("x.md", []byte("\"Flexbox\" -- solved...\n"))
	require.NoError(t, err)
	s := string(out)
	assert.True(t, strings.Contains(s, "&ldquo;") || strings.Contains(s, "“"), s)
	assert.True(t, strings.Contains(s, "&hellip;") || strings.Contains(s, "…"), s)

	plain := NewRenderer(Options{})
	out, err = plain.Render("x.md", []byte("\"Flexbox\"\n"))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "&ldquo;")
}
