// CLAUDE:SUMMARY Stateless document operations (find, text, remove, attr, markdown) over markup strings, shared by MCP tools and the CLI.
package domtools

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/domq/dom"
)

// ErrNoSelector is returned when a request carries neither a CSS selector
// nor an XPath expression.
var ErrNoSelector = errors.New("domtools: css or xpath is required")

// Tools runs document operations on markup passed by value. Every call
// parses its own tree.
type Tools struct {
	cfg    dom.Config
	logger *slog.Logger
}

// New returns Tools parsing with cfg. A nil cfg uses defaults.
func New(cfg *dom.Config, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tools{logger: logger}
	if cfg != nil {
		t.cfg = *cfg
	}
	if t.cfg.Logger == nil {
		t.cfg.Logger = logger
	}
	return t
}

// Query selects nodes with a CSS selector or, when css is empty, an XPath
// expression.
type Query struct {
	HTML  string `json:"html"`
	CSS   string `json:"css,omitempty"`
	XPath string `json:"xpath,omitempty"`
}

func (t *Tools) load(src string) (*dom.Element, error) {
	cfg := t.cfg
	return dom.Parse(src, &cfg)
}

// Select parses q.HTML and runs the query against the document root.
func (t *Tools) Select(q Query) (*dom.Element, *dom.Collection, error) {
	root, err := t.load(q.HTML)
	if err != nil {
		return nil, nil, err
	}
	set, err := selectIn(root, q.CSS, q.XPath)
	if err != nil {
		return nil, nil, err
	}
	return root, set, nil
}

func selectIn(f dom.Facet, css, xpath string) (*dom.Collection, error) {
	switch {
	case css != "":
		return f.Find(css)
	case xpath != "":
		return f.FindXPath(xpath)
	default:
		return nil, ErrNoSelector
	}
}

// Output formats.
const (
	FormatHTML     = "html"
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// FindResult lists the matches rendered in the requested format.
type FindResult struct {
	Count   int      `json:"count"`
	Matches []string `json:"matches"`
}

// Find renders every match in format ("" means html).
func (t *Tools) Find(q Query, format string) (*FindResult, error) {
	_, set, err := t.Select(q)
	if err != nil {
		return nil, err
	}
	res := &FindResult{Count: set.Len(), Matches: make([]string, 0, set.Len())}
	for _, el := range set.All() {
		s, err := Render(el, format)
		if err != nil {
			return nil, err
		}
		res.Matches = append(res.Matches, s)
	}
	return res, nil
}

// Render formats one facet.
func Render(f dom.Facet, format string) (string, error) {
	switch format {
	case "", FormatHTML:
		return f.HTML(), nil
	case FormatText:
		return f.Text(), nil
	case FormatMarkdown:
		return f.Markdown()
	default:
		return "", fmt.Errorf("domtools: unknown format %q", format)
	}
}

// Text returns the joined text of the matches.
func (t *Tools) Text(q Query) (string, error) {
	_, set, err := t.Select(q)
	if err != nil {
		return "", err
	}
	return set.Text(), nil
}

// RemoveResult is the document after removal.
type RemoveResult struct {
	Removed int    `json:"removed"`
	HTML    string `json:"html"`
}

// Remove detaches every match and returns the remaining document.
func (t *Tools) Remove(q Query) (*RemoveResult, error) {
	root, set, err := t.Select(q)
	if err != nil {
		return nil, err
	}
	if err := set.Remove(); err != nil {
		return nil, err
	}
	t.logger.Debug("domtools: removed", "count", set.Len())
	return &RemoveResult{Removed: set.Len(), HTML: root.HTML()}, nil
}

// AttrResult carries the value read from the first match, or the document
// after a write.
type AttrResult struct {
	Value string `json:"value,omitempty"`
	HTML  string `json:"html,omitempty"`
}

// Attr reads name from the first match. With a non-nil value it sets name
// on every match instead and returns the document.
func (t *Tools) Attr(q Query, name string, value *string) (*AttrResult, error) {
	root, set, err := t.Select(q)
	if err != nil {
		return nil, err
	}
	if value == nil {
		v, err := set.Attr(name)
		if err != nil {
			return nil, err
		}
		return &AttrResult{Value: v}, nil
	}
	if err := set.SetAttr(name, *value); err != nil {
		return nil, err
	}
	return &AttrResult{HTML: root.HTML()}, nil
}

// Markdown converts the matches, or the whole document when q has no
// selector.
func (t *Tools) Markdown(q Query) (string, error) {
	if q.CSS == "" && q.XPath == "" {
		root, err := t.load(q.HTML)
		if err != nil {
			return "", err
		}
		return root.Markdown()
	}
	_, set, err := t.Select(q)
	if err != nil {
		return "", err
	}
	return set.Markdown()
}
