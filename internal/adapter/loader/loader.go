package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"ragquery/internal/port"
)

// ErrUnsupportedFormat is returned by Load for extensions without a reader.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Loader extracts a title and plain text from knowledge-base files. The
// format is chosen by extension.
type Loader struct {
	markdown goldmark.Markdown
}

func New() *Loader {
	return &Loader{markdown: goldmark.New()}
}

// Supports reports whether path has an extension with a dedicated reader.
func (l *Loader) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt", ".html", ".htm", ".pdf":
		return true
	}
	return false
}

func (l *Loader) Load(path string) (title, body string, err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !l.Supports(path) {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if ext == ".pdf" {
		body, err = loadPDF(path)
		return fileTitle(path), body, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}

	switch ext {
	case ".md", ".markdown":
		title, body = l.loadMarkdown(data)
	case ".html", ".htm":
		title, body, err = loadHTML(data)
		if err != nil {
			return "", "", fmt.Errorf("parse html %s: %w", path, err)
		}
	default:
		body = string(data)
	}

	if title == "" {
		title = fileTitle(path)
	}
	return title, body, nil
}

// loadMarkdown keeps the markdown source as the body and uses the first
// heading as the title.
func (l *Loader) loadMarkdown(src []byte) (string, string) {
	doc := l.markdown.Parser().Parse(text.NewReader(src))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			title = strings.TrimSpace(nodeText(h, src))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	return title, string(src)
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
			continue
		}
		b.WriteString(nodeText(c, src))
	}
	return b.String()
}

func loadHTML(data []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", "", err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find("script, style, nav, footer, aside, noscript").Remove()

	content := doc.Find("main, article").First()
	if content.Length() == 0 {
		content = doc.Find("body")
	}
	content.Find("h1, h2, h3, h4, h5, h6, p, li, pre, div, tr, br").AppendHtml("\n")

	return title, normalizeLines(content.Text()), nil
}

func loadPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", path, err)
	}
	return normalizeLines(buf.String()), nil
}

// normalizeLines trims every line and drops blank ones.
func normalizeLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func fileTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var _ port.DocumentLoader = (*Loader)(nil)
