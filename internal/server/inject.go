package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// scriptTag is inserted into every served HTML page.
const scriptTag = `<script src="/livereload.js" async></script>`

// maxInjectSize bounds how much of a response is buffered for injection.
const maxInjectSize = 4 << 20

// InjectScript inserts tag before the last </body> of doc. Documents without
// a body end tag get the tag appended.
func InjectScript(doc []byte, tag string) []byte {
	offset := closingBodyOffset(doc)
	if offset < 0 {
		out := make([]byte, 0, len(doc)+len(tag))
		return append(append(out, doc...), tag...)
	}
	var out bytes.Buffer
	out.Grow(len(doc) + len(tag))
	out.Write(doc[:offset])
	out.WriteString(tag)
	out.Write(doc[offset:])
	return out.Bytes()
}

// closingBodyOffset returns the byte offset of the last </body> token, or -1.
// Tokenizing keeps "</body>" inside scripts, comments and attributes from
// matching.
func closingBodyOffset(doc []byte) int {
	z := html.NewTokenizer(bytes.NewReader(doc))
	pos, found := 0, -1
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or a read error; either way the scan is over.
			return found
		}
		raw := len(z.Raw())
		if tt == html.EndTagToken {
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Body {
				found = pos
			}
		}
		pos += raw
	}
}

// injectLiveReload buffers HTML responses and injects the live reload script.
func injectLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		iw := &injectWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(iw, r)
		iw.finish()
	})
}

type injectWriter struct {
	http.ResponseWriter
	status      int
	buf         []byte
	decided     bool
	passthrough bool
	headerSent  bool
}

func (w *injectWriter) WriteHeader(code int) {
	w.status = code
	if w.passthrough && !w.headerSent {
		w.ResponseWriter.WriteHeader(code)
		w.headerSent = true
	}
}

func (w *injectWriter) decide() {
	if w.decided {
		return
	}
	w.decided = true
	ct := w.Header().Get("Content-Type")
	w.passthrough = w.status != http.StatusOK || !strings.HasPrefix(ct, "text/html")
	if w.passthrough {
		w.ResponseWriter.WriteHeader(w.status)
		w.headerSent = true
	}
}

func (w *injectWriter) Write(p []byte) (int, error) {
	w.decide()
	if w.passthrough {
		return w.ResponseWriter.Write(p)
	}
	if len(w.buf)+len(p) > maxInjectSize {
		w.passthrough = true
		w.ResponseWriter.WriteHeader(w.status)
		w.headerSent = true
		if _, err := w.ResponseWriter.Write(w.buf); err != nil {
			return 0, err
		}
		w.buf = nil
		return w.ResponseWriter.Write(p)
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *injectWriter) finish() {
	if w.passthrough {
		return
	}
	if !w.decided {
		w.ResponseWriter.WriteHeader(w.status)
		return
	}
	body := InjectScript(w.buf, scriptTag)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.ResponseWriter.WriteHeader(w.status)
	_, _ = w.ResponseWriter.Write(body)
}
