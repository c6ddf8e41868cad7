package renderer

import (
	"bytes"
	"html"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/niklasfasching/go-org/org"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// NewHTMLWriterWithChroma returns an org HTML writer that highlights source
// blocks with chroma CSS classes.
func NewHTMLWriterWithChroma() *org.HTMLWriter {
	w := org.NewHTMLWriter()
	w.HighlightCodeBlock = func(source, lang string, inline bool, params map[string]string) string {
		var buf bytes.Buffer
		lexer := lexers.Get(lang)
		if lexer == nil {
			lexer = lexers.Fallback
		}
		iterator, err := lexer.Tokenise(nil, source)
		if err != nil {
			return source
		}
		formatter := chromahtml.New(chromahtml.WithClasses(true))
		if err := formatter.Format(&buf, styles.Get("friendly"), iterator); err != nil {
			return source
		}
		return buf.String()
	}
	return w
}

// Body renders an org-mode page body to an HTML fragment.
func Body(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}
	return org.New().Parse(strings.NewReader(source), "").Write(NewHTMLWriterWithChroma())
}

// Diff renders a character diff of two bodies as escaped HTML with
// <ins>/<del> markup.
func Diff(from, to string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(from, to, true))

	var buf bytes.Buffer
	for _, d := range diffs {
		text := html.EscapeString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			buf.WriteString("<ins>" + text + "</ins>")
		case diffmatchpatch.DiffDelete:
			buf.WriteString("<del>" + text + "</del>")
		case diffmatchpatch.DiffEqual:
			buf.WriteString("<span>" + text + "</span>")
		}
	}
	return buf.String()
}
