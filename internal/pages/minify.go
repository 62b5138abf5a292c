package pages

import (
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

const mimeHTML = "text/html"

// htmlMinifier collapses whitespace, drops comments, default and empty
// attributes and quotes, shortens the doctype and minifies inline CSS and JS.
type htmlMinifier struct {
	m *minify.M
}

func newHTMLMinifier() *htmlMinifier {
	m := minify.New()
	m.Add(mimeHTML, &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
	})
	m.AddFunc("text/css", css.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	return &htmlMinifier{m: m}
}

func (h *htmlMinifier) HTML(b []byte) ([]byte, error) {
	return h.m.Bytes(mimeHTML, b)
}
