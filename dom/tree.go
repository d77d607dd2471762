package dom

import (
	"log/slog"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/domq/idgen"
	"github.com/hazyhaar/domq/markup"
	"github.com/hazyhaar/domq/mutation"
)

// Kind classifies the node a handle points at.
type Kind int

const (
	KindNone Kind = iota // zero handle
	KindDocument
	KindElement
	KindText
	KindOther // comment, doctype, raw
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindOther:
		return "other"
	default:
		return "none"
	}
}

// Tree owns one parsed document. Every Node handle derived from it records
// structural changes here: a generation counter and, when enabled, the
// mutation journal.
type Tree struct {
	id     string
	doc    *html.Node
	gen    uint64
	logger *slog.Logger

	journal     bool
	records     []mutation.Record
	seq         uint64
	snapshotRef string
}

func newTree(journal bool, logger *slog.Logger) *Tree {
	return &Tree{
		id:      idgen.New(),
		doc:     &html.Node{Type: html.DocumentNode},
		journal: journal,
		logger:  logger,
	}
}

// ID returns the tree's document id (a UUIDv7, see idgen.Document).
func (t *Tree) ID() string { return t.id }

// Generation increases on every structural mutation.
func (t *Tree) Generation() uint64 { return t.gen }

// Root returns a handle to the document node.
func (t *Tree) Root() Node { return Node{n: t.doc, tree: t} }

// reset moves the children of a freshly parsed document under the tree's
// own document node, so handles to the root stay valid across reloads.
func (t *Tree) reset(parsed *html.Node) {
	for c := t.doc.FirstChild; c != nil; {
		next := c.NextSibling
		t.doc.RemoveChild(c)
		c = next
	}
	for c := parsed.FirstChild; c != nil; {
		next := c.NextSibling
		parsed.RemoveChild(c)
		t.doc.AppendChild(c)
		c = next
	}
	t.gen++
	if t.journal {
		t.records = t.records[:0]
		t.records = append(t.records, mutation.Record{Op: mutation.OpDocReset, XPath: "/"})
	}
}

func (t *Tree) touch() {
	if t != nil {
		t.gen++
	}
}

func (t *Tree) record(r mutation.Record) {
	if t == nil || !t.journal {
		return
	}
	t.records = append(t.records, r)
}

// Flush returns every record collected since the previous flush and clears
// the buffer. It returns nil when the journal is disabled.
func (t *Tree) Flush() *mutation.Batch {
	if !t.journal {
		return nil
	}
	t.seq++
	b := &mutation.Batch{
		ID:          idgen.Batch(),
		DocumentID:  t.id,
		Seq:         t.seq,
		Records:     t.records,
		Timestamp:   time.Now().UnixMilli(),
		SnapshotRef: t.snapshotRef,
	}
	t.records = nil
	t.logger.Debug("dom: journal flushed", "document", t.id, "seq", b.Seq, "records", len(b.Records))
	return b
}

// Snapshot serialises the whole document. Later batches reference it.
func (t *Tree) Snapshot() *mutation.Snapshot {
	data := []byte(markup.Render(t.doc))
	s := &mutation.Snapshot{
		ID:         idgen.Snapshot(),
		DocumentID: t.id,
		HTML:       data,
		HTMLHash:   mutation.HashHTML(data),
		Timestamp:  time.Now().UnixMilli(),
	}
	t.snapshotRef = s.ID
	return s
}

// Node is a handle to one node of a Tree. The zero Node points at nothing.
// Two handles are the same node when Same reports true; handles compare by
// identity, never by content.
type Node struct {
	n    *html.Node
	tree *Tree
}

// Wrap returns a handle to n owned by t.
func (t *Tree) Wrap(n *html.Node) Node {
	if n == nil {
		return Node{}
	}
	return Node{n: n, tree: t}
}

// IsZero reports whether the handle points at nothing.
func (n Node) IsZero() bool { return n.n == nil }

// HTMLNode returns the underlying node.
func (n Node) HTMLNode() *html.Node { return n.n }

// Tree returns the tree the handle was derived from.
func (n Node) Tree() *Tree { return n.tree }

// Same reports whether both handles point at the same node.
func (n Node) Same(other Node) bool { return n.n != nil && n.n == other.n }

func (n Node) Kind() Kind {
	if n.n == nil {
		return KindNone
	}
	switch n.n.Type {
	case html.DocumentNode:
		return KindDocument
	case html.ElementNode:
		return KindElement
	case html.TextNode:
		return KindText
	default:
		return KindOther
	}
}

// Tag returns the element name, or "" for non-elements.
func (n Node) Tag() string {
	if n.Kind() != KindElement {
		return ""
	}
	return n.n.Data
}

// Attr is one attribute in document order.
type Attr struct {
	Name  string
	Value string
}

// Attrs returns the element's attributes in document order.
func (n Node) Attrs() []Attr {
	if n.Kind() != KindElement {
		return nil
	}
	out := make([]Attr, 0, len(n.n.Attr))
	for _, a := range n.n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		out = append(out, Attr{Name: name, Value: a.Val})
	}
	return out
}

func (n Node) wrap(h *html.Node) Node {
	if h == nil {
		return Node{}
	}
	return Node{n: h, tree: n.tree}
}

func (n Node) Parent() Node {
	if n.n == nil {
		return Node{}
	}
	return n.wrap(n.n.Parent)
}

func (n Node) FirstChild() Node {
	if n.n == nil {
		return Node{}
	}
	return n.wrap(n.n.FirstChild)
}

func (n Node) NextSibling() Node {
	if n.n == nil {
		return Node{}
	}
	return n.wrap(n.n.NextSibling)
}

func (n Node) PrevSibling() Node {
	if n.n == nil {
		return Node{}
	}
	return n.wrap(n.n.PrevSibling)
}

// Children returns a snapshot of the child sequence.
func (n Node) Children() []Node {
	if n.n == nil {
		return nil
	}
	var out []Node
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, n.wrap(c))
	}
	return out
}

// ChildCount returns the number of direct children.
func (n Node) ChildCount() int {
	count := 0
	if n.n == nil {
		return 0
	}
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

// contains reports whether other is n or one of its descendants.
func (n Node) contains(other *html.Node) bool {
	for p := other; p != nil; p = p.Parent {
		if p == n.n {
			return true
		}
	}
	return false
}

// canAdopt checks that child may become a child of n.
func (n Node) canAdopt(child Node) error {
	if n.n == nil || child.n == nil {
		return structureError("cannot insert a missing node")
	}
	switch n.n.Type {
	case html.DocumentNode, html.ElementNode:
	default:
		return structureError("%s nodes cannot have children", n.Kind())
	}
	if child.n.Type == html.DocumentNode {
		return structureError("cannot insert a document node")
	}
	if child.contains(n.n) {
		return structureError("cannot insert a node into itself or its descendants")
	}
	return nil
}

// detach unlinks n from its current parent. x/net/html panics when a node
// that still has a parent or siblings is inserted, so every primitive
// detaches first.
func (n Node) detach() {
	p := n.n.Parent
	if p == nil {
		return
	}
	n.tree.record(mutation.Record{Op: mutation.OpRemove, XPath: LocatorOf(n), NodeType: nodeType(n.n), Tag: n.Tag()})
	p.RemoveChild(n.n)
}

func (n Node) inserted(child Node) {
	n.tree.touch()
	if n.tree != nil && n.tree.journal {
		n.tree.record(mutation.Record{
			Op:       mutation.OpInsert,
			XPath:    LocatorOf(child),
			NodeType: nodeType(child.n),
			Tag:      child.Tag(),
			HTML:     markup.Render(child.n),
		})
	}
}

// AppendChild adds child as the last child of n, moving it from its current
// position if it is attached elsewhere.
func (n Node) AppendChild(child Node) error {
	if err := n.canAdopt(child); err != nil {
		return err
	}
	child.detach()
	n.n.AppendChild(child.n)
	n.inserted(child)
	return nil
}

// InsertBefore inserts newChild immediately before ref, which must be a
// child of n. A zero ref appends.
func (n Node) InsertBefore(newChild, ref Node) error {
	if ref.IsZero() {
		return n.AppendChild(newChild)
	}
	if ref.n.Parent != n.n {
		return structureError("reference node is not a child")
	}
	if newChild.Same(ref) {
		return nil
	}
	if err := n.canAdopt(newChild); err != nil {
		return err
	}
	newChild.detach()
	n.n.InsertBefore(newChild.n, ref.n)
	n.inserted(newChild)
	return nil
}

// InsertAfter inserts newChild immediately after ref, which must be a child
// of n.
func (n Node) InsertAfter(newChild, ref Node) error {
	if ref.IsZero() || ref.n.Parent != n.n {
		return structureError("reference node is not a child")
	}
	if newChild.Same(ref) {
		return nil
	}
	if err := n.canAdopt(newChild); err != nil {
		return err
	}
	newChild.detach()
	if next := ref.n.NextSibling; next != nil {
		n.n.InsertBefore(newChild.n, next)
	} else {
		n.n.AppendChild(newChild.n)
	}
	n.inserted(newChild)
	return nil
}

// RemoveChild detaches child, which must be a child of n.
func (n Node) RemoveChild(child Node) error {
	if n.n == nil || child.n == nil || child.n.Parent != n.n {
		return structureError("node is not a child")
	}
	child.detach()
	n.tree.touch()
	return nil
}

// ReplaceChild puts newChild in oldChild's position and detaches oldChild.
func (n Node) ReplaceChild(newChild, oldChild Node) error {
	if n.n == nil || oldChild.n == nil || oldChild.n.Parent != n.n {
		return structureError("replaced node is not a child")
	}
	if newChild.Same(oldChild) {
		return nil
	}
	if err := n.canAdopt(newChild); err != nil {
		return err
	}
	newChild.detach()
	n.n.InsertBefore(newChild.n, oldChild.n)
	n.inserted(newChild)
	oldChild.detach()
	n.tree.touch()
	return nil
}

// attr returns the value of the attribute name and whether it is set.
func (n Node) attr(name string) (string, bool) {
	for _, a := range n.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (n Node) setAttr(name, value string) {
	old, had := n.attr(name)
	if had {
		for i := range n.n.Attr {
			if n.n.Attr[i].Namespace == "" && n.n.Attr[i].Key == name {
				n.n.Attr[i].Val = value
				break
			}
		}
	} else {
		n.n.Attr = append(n.n.Attr, html.Attribute{Key: name, Val: value})
	}
	n.tree.record(mutation.Record{Op: mutation.OpAttr, XPath: LocatorOf(n), NodeType: 1, Tag: n.Tag(), Name: name, Value: value, OldValue: old})
}

func (n Node) removeAttr(name string) bool {
	for i, a := range n.n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.n.Attr = append(n.n.Attr[:i], n.n.Attr[i+1:]...)
			n.tree.record(mutation.Record{Op: mutation.OpAttrDel, XPath: LocatorOf(n), NodeType: 1, Tag: n.Tag(), Name: name, OldValue: a.Val})
			return true
		}
	}
	return false
}

// setText replaces the content of n with a single text node, or rewrites
// the data of a text node.
func (n Node) setText(s string) error {
	switch n.Kind() {
	case KindText:
		old := n.n.Data
		n.n.Data = s
		n.tree.record(mutation.Record{Op: mutation.OpText, XPath: LocatorOf(n), NodeType: 3, Value: s, OldValue: old})
		return nil
	case KindElement, KindDocument:
	default:
		return unsupportedError("this node does not support text content")
	}
	old := markup.Text(n.n)
	for c := n.n.FirstChild; c != nil; {
		next := c.NextSibling
		n.n.RemoveChild(c)
		c = next
	}
	if s != "" {
		n.n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
	n.tree.touch()
	n.tree.record(mutation.Record{Op: mutation.OpText, XPath: LocatorOf(n), NodeType: nodeType(n.n), Tag: n.Tag(), Value: s, OldValue: old})
	return nil
}

// clone deep-copies the subtree rooted at h. The copy is detached.
func clone(h *html.Node) *html.Node {
	c := &html.Node{
		Type:      h.Type,
		DataAtom:  h.DataAtom,
		Data:      h.Data,
		Namespace: h.Namespace,
	}
	if len(h.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(h.Attr))
		copy(c.Attr, h.Attr)
	}
	for ch := h.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(clone(ch))
	}
	return c
}

func nodeType(h *html.Node) int {
	switch h.Type {
	case html.ElementNode:
		return 1
	case html.TextNode:
		return 3
	case html.CommentNode:
		return 8
	case html.DocumentNode:
		return 9
	case html.DoctypeNode:
		return 10
	default:
		return 0
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
