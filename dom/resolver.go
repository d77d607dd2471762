package dom

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/hazyhaar/domq/cssxpath"
)

// Resolver turns selectors into the ordered set of matching nodes.
//
// A navigator over the context node's tree is built on every call, so queries
// always see the current tree. Only the CSS translations and the compiled
// expressions are cached; neither depends on the tree. The caches are
// guarded so one Resolver may serve several trees at once, but each tree
// must still be used from one goroutine at a time.
type Resolver struct {
	translator Translator
	logger     *slog.Logger

	mu       sync.Mutex
	xpathFor map[string]string
	compiled map[string]*xpath.Expr
}

// NewResolver returns a Resolver using tr for CSS translation. A nil tr
// selects the cssxpath translator with the HTML extension enabled.
func NewResolver(tr Translator, logger *slog.Logger) *Resolver {
	if tr == nil {
		tr = cssxpath.New(cssxpath.Options{HTML: true})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		translator: tr,
		logger:     logger,
		xpathFor:   make(map[string]string),
		compiled:   make(map[string]*xpath.Expr),
	}
}

// Translate converts a CSS selector to XPath, caching the result.
func (r *Resolver) Translate(selector string) (string, error) {
	r.mu.Lock()
	expr, ok := r.xpathFor[selector]
	r.mu.Unlock()
	if ok {
		return expr, nil
	}

	expr, err := r.translator.Translate(selector)
	if err != nil {
		return "", fmt.Errorf("translate %q: %w", selector, err)
	}
	r.logger.Debug("dom: selector translated", "css", selector, "xpath", expr)

	r.mu.Lock()
	r.xpathFor[selector] = expr
	r.mu.Unlock()
	return expr, nil
}

func (r *Resolver) compile(expr string) (*xpath.Expr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.compiled[expr]; ok {
		return c, nil
	}
	c, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile xpath %q: %w", expr, err)
	}
	r.compiled[expr] = c
	return c, nil
}

// Resolve returns the nodes under (and including) node that match the CSS
// selector, in document order.
func (r *Resolver) Resolve(node Node, selector string) ([]Node, error) {
	if err := queryable(node); err != nil {
		return nil, err
	}
	expr, err := r.Translate(selector)
	if err != nil {
		return nil, err
	}
	return r.ResolveXPath(node, expr)
}

// ResolveXPath evaluates expr with node as the context node. The navigator
// is rooted at the top of node's tree, so absolute paths ("/x", "//x") see
// the whole document while relative ones start at node. Attribute results
// are skipped. Duplicates are dropped by node identity and the result is
// returned in document order.
func (r *Resolver) ResolveXPath(node Node, expr string) ([]Node, error) {
	if err := queryable(node); err != nil {
		return nil, err
	}
	compiled, err := r.compile(expr)
	if err != nil {
		return nil, err
	}

	top := topOf(node.n)
	seen := make(map[*html.Node]bool)
	var found []*html.Node
	iter := compiled.Select(navigatorAt(top, node.n))
	for iter.MoveNext() {
		nav, ok := iter.Current().(*htmlquery.NodeNavigator)
		if !ok || nav.NodeType() == xpath.AttributeNode {
			continue
		}
		h := nav.Current()
		if h == nil || seen[h] {
			continue
		}
		seen[h] = true
		found = append(found, h)
	}
	sortDocumentOrder(top, found)

	out := make([]Node, len(found))
	for i, h := range found {
		out[i] = node.wrap(h)
	}
	r.logger.Debug("dom: query matched", "xpath", expr, "matches", len(out))
	return out, nil
}

func topOf(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// navigatorAt returns a navigator rooted at top and positioned on target,
// which must be top or one of its descendants.
func navigatorAt(top, target *html.Node) *htmlquery.NodeNavigator {
	nav := htmlquery.CreateXPathNavigator(top)
	var chain []*html.Node
	for n := target; n != top; n = n.Parent {
		chain = append(chain, n)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		nav.MoveToChild()
		for nav.Current() != chain[i] {
			if !nav.MoveToNext() {
				break
			}
		}
	}
	return nav
}

// sortDocumentOrder orders nodes by their preorder position under top.
// Unions and sibling axes can yield matches out of order.
func sortDocumentOrder(top *html.Node, nodes []*html.Node) {
	if len(nodes) < 2 {
		return
	}
	// top itself keeps -1 and sorts first.
	pos := make(map[*html.Node]int, len(nodes))
	for _, n := range nodes {
		pos[n] = -1
	}
	i := 0
	for n := range top.Descendants() {
		if _, ok := pos[n]; ok {
			pos[n] = i
		}
		i++
	}
	slices.SortStableFunc(nodes, func(a, b *html.Node) int {
		return pos[a] - pos[b]
	})
}

func queryable(node Node) error {
	switch node.Kind() {
	case KindDocument, KindElement:
		return nil
	default:
		return unsupportedError("document does not support xpath")
	}
}
