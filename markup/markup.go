// Package markup parses HTML text into an x/net/html node tree and renders
// trees back to text.
//
// Input that looks like a full document (a doctype or an <html> root) is
// parsed with html.Parse. Anything else is parsed as a body fragment and
// attached to a bare document node, so no <html>/<head>/<body> wrapper is
// implied around fragments and they serialize back as written.
//
// The HTML parser recovers from malformed input. Strict mode runs a tokenizer
// pass first and fails on the issues it finds; otherwise issues are logged at
// debug level and dropped.
package markup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrTooLarge is returned when input exceeds Options.MaxFileSize.
var ErrTooLarge = errors.New("markup: input too large")

// Sanitize policies accepted by Options.Sanitize.
const (
	SanitizeNone   = ""
	SanitizeUGC    = "ugc"
	SanitizeStrict = "strict"
)

// Options controls parsing.
type Options struct {
	// Strict surfaces recoverable markup issues as a *ParseError.
	Strict bool

	// Sanitize filters the input through a bluemonday policy before parsing.
	Sanitize string

	// MaxFileSize bounds ParseFile input (default: 32 MB).
	MaxFileSize int64

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = 32 << 20
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Parse parses src and returns a document node.
func Parse(src string, opts Options) (*html.Node, error) {
	opts.defaults()

	src, err := sanitize(src, opts.Sanitize)
	if err != nil {
		return nil, err
	}

	issues := Lint(src)
	if len(issues) > 0 {
		if opts.Strict {
			return nil, issues[0]
		}
		for _, is := range issues {
			opts.Logger.Debug("markup: recovered parse issue", "line", is.Line, "issue", is.Msg)
		}
	}

	if IsDocument(src) {
		doc, err := html.Parse(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("parse document: %w", err)
		}
		return doc, nil
	}

	nodes, err := html.ParseFragment(strings.NewReader(src), bodyContext())
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	doc := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		doc.AppendChild(n)
	}
	return doc, nil
}

// ParseFile reads and parses an HTML file.
func ParseFile(path string, opts Options) (*html.Node, error) {
	opts.defaults()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > opts.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrTooLarge, path, info.Size(), opts.MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(string(data), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ParseReader reads at most opts.MaxFileSize bytes from r and parses them.
func ParseReader(r io.Reader, opts Options) (*html.Node, error) {
	opts.defaults()
	data, err := ReadAll(r, opts.MaxFileSize)
	if err != nil {
		return nil, err
	}
	return Parse(string(data), opts)
}

// ReadAll reads at most maxBytes from r. It returns ErrTooLarge when r holds
// more.
func ReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}

// IsDocument reports whether src starts (after whitespace and comments)
// with a doctype or an <html> tag.
func IsDocument(src string) bool {
	s := strings.TrimLeft(src, " \t\r\n\f\uFEFF")
	for strings.HasPrefix(s, "<!--") {
		end := strings.Index(s, "-->")
		if end < 0 {
			return false
		}
		s = strings.TrimLeft(s[end+3:], " \t\r\n\f")
	}
	if len(s) < 5 {
		return false
	}
	lower := strings.ToLower(s[:min(len(s), 9)])
	if strings.HasPrefix(lower, "<!doctype") {
		return true
	}
	if strings.HasPrefix(lower, "<html") {
		c := lower[5:]
		return c == "" || c[0] == '>' || c[0] == ' ' || c[0] == '\t' || c[0] == '\n' || c[0] == '\r' || c[0] == '/'
	}
	return false
}

func bodyContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// Render serialises n and its subtree. A document node renders all of its
// children.
func Render(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := RenderTo(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// RenderTo writes the serialisation of n to w.
func RenderTo(w io.Writer, n *html.Node) error {
	if n.Type != html.DocumentNode {
		return html.Render(w, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(w, c); err != nil {
			return err
		}
	}
	return nil
}

// Text returns the concatenated text content of n's subtree.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func sanitize(src, policy string) (string, error) {
	switch policy {
	case SanitizeNone:
		return src, nil
	case SanitizeUGC:
		return bluemonday.UGCPolicy().Sanitize(src), nil
	case SanitizeStrict:
		return bluemonday.StrictPolicy().Sanitize(src), nil
	default:
		return "", fmt.Errorf("unknown sanitize policy: %q", policy)
	}
}
