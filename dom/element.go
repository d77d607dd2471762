package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/domq/cssxpath"
	"github.com/hazyhaar/domq/markup"
)

// Element is the single-node facet. A root Element wraps the document node
// of its Tree and is the only facet that can load markup or create nodes.
type Element struct {
	node Node
	res  *Resolver
	cfg  *Config
}

// New returns an unloaded root. A nil cfg uses defaults.
func New(cfg *Config) *Element {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c.defaults()
	tr := c.Translator
	if tr == nil {
		tr = cssxpath.New(cssxpath.Options{HTML: !c.PlainCSS})
	}
	tree := newTree(c.Journal, c.Logger)
	return &Element{
		node: tree.Root(),
		res:  NewResolver(tr, c.Logger),
		cfg:  &c,
	}
}

// Parse is New followed by LoadString.
func Parse(src string, cfg *Config) (*Element, error) {
	root := New(cfg)
	if err := root.LoadString(src); err != nil {
		return nil, err
	}
	return root, nil
}

func (e *Element) derive(n Node) *Element {
	return &Element{node: n, res: e.res, cfg: e.cfg}
}

func (e *Element) isRoot() bool {
	return e.node.Kind() == KindDocument
}

func (e *Element) parseOptions() markup.Options {
	return markup.Options{
		Strict:      e.cfg.Strict,
		Sanitize:    e.cfg.Sanitize,
		MaxFileSize: e.cfg.MaxFileSize,
		Logger:      e.cfg.Logger,
	}
}

// LoadString parses src into the root's tree, replacing its content.
func (e *Element) LoadString(src string) error {
	if !e.isRoot() {
		return usageError("LoadString")
	}
	if src == "" {
		return ErrEmptyInput
	}
	doc, err := markup.Parse(src, e.parseOptions())
	if err != nil {
		return fmt.Errorf("dom: load: %w", err)
	}
	e.node.tree.reset(doc)
	e.cfg.Logger.Debug("dom: document loaded", "document", e.node.tree.id, "bytes", len(src), "full", markup.IsDocument(src))
	return nil
}

// LoadFile parses the file at path into the root's tree, replacing its
// content.
func (e *Element) LoadFile(path string) error {
	if !e.isRoot() {
		return usageError("LoadFile")
	}
	doc, err := markup.ParseFile(path, e.parseOptions())
	if err != nil {
		return fmt.Errorf("dom: load: %w", err)
	}
	e.node.tree.reset(doc)
	e.cfg.Logger.Debug("dom: document loaded", "document", e.node.tree.id, "path", path)
	return nil
}

// LoadReader parses everything read from r into the root's tree, up to
// Config.MaxFileSize bytes.
func (e *Element) LoadReader(r io.Reader) error {
	if !e.isRoot() {
		return usageError("LoadReader")
	}
	data, err := markup.ReadAll(r, e.cfg.MaxFileSize)
	if err != nil {
		return fmt.Errorf("dom: load: %w", err)
	}
	return e.LoadString(string(data))
}

// Find returns the nodes matching the CSS selector, in document order. The
// selector is evaluated with a descendant-or-self prefix, so e itself
// matches when it satisfies the selector.
func (e *Element) Find(selector string) (*Collection, error) {
	nodes, err := e.res.Resolve(e.node, selector)
	if err != nil {
		return nil, err
	}
	return e.collect(nodes), nil
}

// FindXPath evaluates expr with e as the context node.
func (e *Element) FindXPath(expr string) (*Collection, error) {
	nodes, err := e.res.ResolveXPath(e.node, expr)
	if err != nil {
		return nil, err
	}
	return e.collect(nodes), nil
}

func (e *Element) collect(nodes []Node) *Collection {
	c := &Collection{res: e.res, elements: make([]*Element, 0, len(nodes))}
	for _, n := range nodes {
		c.elements = append(c.elements, e.derive(n))
	}
	return c
}

// Text returns the text content of the subtree.
func (e *Element) Text() string {
	return markup.Text(e.node.n)
}

// HTML serialises the subtree, or the whole document for a root. Text
// nodes render escaped.
func (e *Element) HTML() string {
	return markup.Render(e.node.n)
}

func (e *Element) String() string { return e.HTML() }

// PrecedingSiblings returns the siblings before e, nearest last.
func (e *Element) PrecedingSiblings() *Collection {
	before, _ := e.siblings()
	return before
}

// NextSiblings returns the siblings after e.
func (e *Element) NextSiblings() *Collection {
	_, after := e.siblings()
	return after
}

func (e *Element) siblings() (before, after *Collection) {
	before = &Collection{res: e.res}
	after = &Collection{res: e.res}
	parent := e.node.Parent()
	if parent.IsZero() {
		return before, after
	}
	self := false
	for _, c := range parent.Children() {
		switch {
		case c.Same(e.node):
			self = true
		case self:
			after.elements = append(after.elements, e.derive(c))
		default:
			before.elements = append(before.elements, e.derive(c))
		}
	}
	return before, after
}

func nodeOf(el *Element) (Node, error) {
	if el == nil || el.node.IsZero() {
		return Node{}, ErrNotElement
	}
	return el.node, nil
}

// Wrap puts el in e's place and moves e inside it as el's last child.
// Without a parent the replacement is skipped and e is still appended to el.
func (e *Element) Wrap(el *Element) error {
	wrapper, err := nodeOf(el)
	if err != nil {
		return err
	}
	if parent := e.node.Parent(); !parent.IsZero() {
		if err := parent.ReplaceChild(wrapper, e.node); err != nil {
			return err
		}
		rehome(el, e.node.tree)
		wrapper = el.node
	}
	if err := wrapper.AppendChild(e.node); err != nil {
		return err
	}
	rehome(e, wrapper.tree)
	return nil
}

// rehome points el at tree once its node has moved there, so later
// mutations through el are journaled by the tree that holds it. Other
// handles into the moved subtree keep their old tree.
func rehome(el *Element, tree *Tree) {
	if tree != nil {
		el.node.tree = tree
	}
}

// Before inserts el as the sibling immediately before e.
func (e *Element) Before(el *Element) error {
	n, err := nodeOf(el)
	if err != nil {
		return err
	}
	parent := e.node.Parent()
	if parent.IsZero() {
		return structureError("impossible to put elements before the root")
	}
	if err := parent.InsertBefore(n, e.node); err != nil {
		return err
	}
	rehome(el, parent.tree)
	return nil
}

// After inserts el as the sibling immediately after e.
func (e *Element) After(el *Element) error {
	n, err := nodeOf(el)
	if err != nil {
		return err
	}
	parent := e.node.Parent()
	if parent.IsZero() {
		return structureError("impossible to put elements after the root")
	}
	if err := parent.InsertAfter(n, e.node); err != nil {
		return err
	}
	rehome(el, parent.tree)
	return nil
}

// Append adds el as e's last child.
func (e *Element) Append(el *Element) error {
	n, err := nodeOf(el)
	if err != nil {
		return err
	}
	if err := e.node.AppendChild(n); err != nil {
		return err
	}
	rehome(el, e.node.tree)
	return nil
}

// Prepend inserts f at the front of e's children. A Collection's members
// end up as a contiguous prefix in their original order.
func (e *Element) Prepend(f Facet) error {
	switch v := f.(type) {
	case *Element:
		n, err := nodeOf(v)
		if err != nil {
			return err
		}
		if err := e.node.InsertBefore(n, e.node.FirstChild()); err != nil {
			return err
		}
		rehome(v, e.node.tree)
		return nil
	case *Collection:
		if v == nil {
			return ErrNotElement
		}
		member := make(map[*html.Node]bool, len(v.elements))
		for _, m := range v.elements {
			member[m.node.n] = true
		}
		// Members already at the front must not serve as the anchor.
		var anchor Node
		for c := e.node.FirstChild(); !c.IsZero(); c = c.NextSibling() {
			if !member[c.n] {
				anchor = c
				break
			}
		}
		for i, m := range v.elements {
			if err := e.node.InsertBefore(m.node, anchor); err != nil {
				return fmt.Errorf("dom: member %d: %w", i, err)
			}
			rehome(m, e.node.tree)
		}
		return nil
	default:
		return ErrNotElement
	}
}

// Empty removes every child of e. Tag and attributes are kept.
func (e *Element) Empty() error {
	for _, c := range e.node.Children() {
		if err := e.node.RemoveChild(c); err != nil {
			return err
		}
	}
	return nil
}

// Remove detaches e from its parent. It is a no-op on a detached node.
func (e *Element) Remove() error {
	parent := e.node.Parent()
	if parent.IsZero() {
		return nil
	}
	return parent.RemoveChild(e.node)
}

// Replace puts el in e's place, leaving e detached. It is a no-op on a
// detached node.
func (e *Element) Replace(el *Element) error {
	n, err := nodeOf(el)
	if err != nil {
		return err
	}
	parent := e.node.Parent()
	if parent.IsZero() {
		return nil
	}
	if err := parent.ReplaceChild(n, e.node); err != nil {
		return err
	}
	rehome(el, parent.tree)
	return nil
}

// Parent returns e's parent. At the top of a tree it returns a facet whose
// IsZero reports true.
func (e *Element) Parent() *Element {
	return e.derive(e.node.Parent())
}

// Children returns the element children of e.
func (e *Element) Children() *Collection {
	c := &Collection{res: e.res}
	for _, n := range e.node.Children() {
		if n.Kind() == KindElement {
			c.elements = append(c.elements, e.derive(n))
		}
	}
	return c
}

func (e *Element) requireElement() error {
	if e.node.Kind() != KindElement {
		return unsupportedError("this element does not support attributes")
	}
	return nil
}

// Attr returns the value of the attribute, or "" when it is not set.
// Attribute names are matched in lower case.
func (e *Element) Attr(name string) (string, error) {
	if err := e.requireElement(); err != nil {
		return "", err
	}
	v, _ := e.node.attr(normalizeName(name))
	return v, nil
}

// HasAttr reports whether the attribute is set. It is false on
// non-elements.
func (e *Element) HasAttr(name string) bool {
	if e.node.Kind() != KindElement {
		return false
	}
	_, ok := e.node.attr(normalizeName(name))
	return ok
}

func (e *Element) SetAttr(name, value string) error {
	if err := e.requireElement(); err != nil {
		return err
	}
	name = normalizeName(name)
	if name == "" {
		return fmt.Errorf("%w: empty attribute name", ErrUsage)
	}
	e.node.setAttr(name, value)
	return nil
}

func (e *Element) RemoveAttr(name string) error {
	if err := e.requireElement(); err != nil {
		return err
	}
	e.node.removeAttr(normalizeName(name))
	return nil
}

// SetText replaces the children of e with a single text node. On a text
// node it rewrites the text.
func (e *Element) SetText(s string) error {
	return e.node.setText(s)
}

// Create builds a detached element owned by the root's tree, with an
// optional text child.
func (e *Element) Create(tag string, text ...string) (*Element, error) {
	if !e.isRoot() {
		return nil, usageError("Create")
	}
	tag = normalizeName(tag)
	if tag == "" || strings.ContainsAny(tag, " \t\n<>/=\"'") {
		return nil, fmt.Errorf("%w: invalid tag name %q", ErrUsage, tag)
	}
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	if t := strings.Join(text, ""); t != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: t})
	}
	return e.derive(e.node.tree.Wrap(n)), nil
}

// Clone returns a detached deep copy of e owned by the same tree.
func (e *Element) Clone() *Element {
	if e.node.IsZero() {
		return e.derive(Node{})
	}
	return e.derive(e.node.wrap(clone(e.node.n)))
}

// Is reports whether e and other wrap the same node.
func (e *Element) Is(other *Element) bool {
	return other != nil && e.node.Same(other.node)
}

// IsZero reports whether e wraps no node (the parent of a top node).
func (e *Element) IsZero() bool { return e.node.IsZero() }

// Node returns the wrapped handle.
func (e *Element) Node() Node { return e.node }

// Tree returns the tree e belongs to.
func (e *Element) Tree() *Tree { return e.node.tree }

// Resolver returns the resolver shared by every facet derived from the
// same root.
func (e *Element) Resolver() *Resolver { return e.res }
