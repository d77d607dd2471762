// CLAUDE:SUMMARY Element-set facet: broadcast mutations, aggregating queries, dense index API over *Element members.
package dom

import (
	"fmt"
	"iter"
	"strings"

	"golang.org/x/net/html"
)

// Collection is the element-set facet: an ordered list of *Element members
// sharing one Resolver. Member order is insertion order and construction
// does not deduplicate.
type Collection struct {
	elements []*Element
	res      *Resolver
}

// NewCollection builds a set from elems. Nil entries are dropped. A nil res
// falls back to the resolver of the first member, then to a default one.
func NewCollection(elems []*Element, res *Resolver) *Collection {
	c := &Collection{res: res}
	for _, el := range elems {
		if el != nil {
			c.elements = append(c.elements, el)
		}
	}
	if c.res == nil {
		if len(c.elements) > 0 {
			c.res = c.elements[0].res
		} else {
			c.res = NewResolver(nil, nil)
		}
	}
	return c
}

func (c *Collection) empty() *Collection {
	return &Collection{res: c.res}
}

// Len returns the number of members.
func (c *Collection) Len() int { return len(c.elements) }

// Has reports whether i is a valid index.
func (c *Collection) Has(i int) bool { return i >= 0 && i < len(c.elements) }

// At returns member i, or nil when i is out of range.
func (c *Collection) At(i int) *Element {
	if !c.Has(i) {
		return nil
	}
	return c.elements[i]
}

// Set stores el at index i. Set(Len(), el) appends. Only the collection
// changes; the tree is left alone.
func (c *Collection) Set(i int, el *Element) error {
	if el == nil || el.node.IsZero() {
		return ErrNotElement
	}
	switch {
	case c.Has(i):
		c.elements[i] = el
	case i == len(c.elements):
		c.elements = append(c.elements, el)
	default:
		return fmt.Errorf("%w: index %d out of range [0,%d]", ErrUsage, i, len(c.elements))
	}
	return nil
}

// Unset detaches member i from its tree and drops it from the collection.
// Later members move down one index.
func (c *Collection) Unset(i int) error {
	if !c.Has(i) {
		return nil
	}
	if err := c.elements[i].Remove(); err != nil {
		return err
	}
	c.elements = append(c.elements[:i], c.elements[i+1:]...)
	return nil
}

// All iterates the members in index order.
func (c *Collection) All() iter.Seq2[int, *Element] {
	return func(yield func(int, *Element) bool) {
		for i, el := range c.elements {
			if !yield(i, el) {
				return
			}
		}
	}
}

// Elements returns a copy of the member list.
func (c *Collection) Elements() []*Element {
	out := make([]*Element, len(c.elements))
	copy(out, c.elements)
	return out
}

// First returns the first member, or nil for an empty set.
func (c *Collection) First() *Element {
	if len(c.elements) == 0 {
		return nil
	}
	return c.elements[0]
}

// Map returns the set of fn's results. Nil results are skipped. The first
// error stops the walk.
func (c *Collection) Map(fn func(int, *Element) (*Element, error)) (*Collection, error) {
	out := c.empty()
	for i, el := range c.elements {
		m, err := fn(i, el)
		if err != nil {
			return nil, fmt.Errorf("dom: member %d: %w", i, err)
		}
		if m != nil {
			out.elements = append(out.elements, m)
		}
	}
	return out, nil
}

// Each calls fn for every member. The first error stops the walk.
func (c *Collection) Each(fn func(int, *Element) error) error {
	for i, el := range c.elements {
		if err := fn(i, el); err != nil {
			return fmt.Errorf("dom: member %d: %w", i, err)
		}
	}
	return nil
}

// Merge returns a new set holding other's members followed by c's members.
// No deduplication.
func (c *Collection) Merge(other *Collection) *Collection {
	out := c.empty()
	if other != nil {
		out.elements = make([]*Element, 0, len(other.elements)+len(c.elements))
		out.elements = append(out.elements, other.elements...)
	}
	out.elements = append(out.elements, c.elements...)
	return out
}

// Text joins the members' text with a single space.
func (c *Collection) Text() string {
	parts := make([]string, len(c.elements))
	for i, el := range c.elements {
		parts[i] = el.Text()
	}
	return strings.Join(parts, " ")
}

// HTML concatenates the members' markup.
func (c *Collection) HTML() string {
	var sb strings.Builder
	for _, el := range c.elements {
		sb.WriteString(el.HTML())
	}
	return sb.String()
}

func (c *Collection) String() string { return c.HTML() }

// Find runs Find on every member and concatenates the results in member
// order. A node matched through several members is kept once, at its
// first position.
func (c *Collection) Find(selector string) (*Collection, error) {
	return c.fold(func(el *Element) (*Collection, error) { return el.Find(selector) }, true)
}

// FindXPath is Find with an XPath expression.
func (c *Collection) FindXPath(expr string) (*Collection, error) {
	return c.fold(func(el *Element) (*Collection, error) { return el.FindXPath(expr) }, true)
}

// PrecedingSiblings concatenates the members' preceding siblings.
func (c *Collection) PrecedingSiblings() *Collection {
	out, _ := c.fold(func(el *Element) (*Collection, error) { return el.PrecedingSiblings(), nil }, false)
	return out
}

// NextSiblings concatenates the members' next siblings.
func (c *Collection) NextSiblings() *Collection {
	out, _ := c.fold(func(el *Element) (*Collection, error) { return el.NextSiblings(), nil }, false)
	return out
}

// fold merges per-member results left to right. Each step is
// part.Merge(acc), which keeps the accumulated members first.
func (c *Collection) fold(fn func(*Element) (*Collection, error), dedup bool) (*Collection, error) {
	acc := c.empty()
	for i, el := range c.elements {
		part, err := fn(el)
		if err != nil {
			return nil, fmt.Errorf("dom: member %d: %w", i, err)
		}
		acc = part.Merge(acc)
	}
	if dedup {
		acc.elements = uniqueByNode(acc.elements)
	}
	return acc, nil
}

func uniqueByNode(elems []*Element) []*Element {
	seen := make(map[*html.Node]bool, len(elems))
	out := elems[:0]
	for _, el := range elems {
		if seen[el.node.n] {
			continue
		}
		seen[el.node.n] = true
		out = append(out, el)
	}
	return out
}

func (c *Collection) broadcast(fn func(*Element) error) error {
	for i, el := range c.elements {
		if err := fn(el); err != nil {
			return fmt.Errorf("dom: member %d: %w", i, err)
		}
	}
	return nil
}

// Wrap wraps every member with el. el is moved on each step, so it ends up
// around the last member only.
func (c *Collection) Wrap(el *Element) error {
	return c.broadcast(func(m *Element) error { return m.Wrap(el) })
}

func (c *Collection) Before(el *Element) error {
	return c.broadcast(func(m *Element) error { return m.Before(el) })
}

func (c *Collection) After(el *Element) error {
	return c.broadcast(func(m *Element) error { return m.After(el) })
}

func (c *Collection) Append(el *Element) error {
	return c.broadcast(func(m *Element) error { return m.Append(el) })
}

// Prepend prepends f to every member. Given a Collection, every one of its
// members is prepended to every member of c.
func (c *Collection) Prepend(f Facet) error {
	other, ok := f.(*Collection)
	if !ok {
		return c.broadcast(func(m *Element) error { return m.Prepend(f) })
	}
	if other == nil {
		return ErrNotElement
	}
	for _, o := range other.Elements() {
		if err := c.broadcast(func(m *Element) error { return m.Prepend(o) }); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection) Empty() error {
	return c.broadcast((*Element).Empty)
}

func (c *Collection) Remove() error {
	return c.broadcast((*Element).Remove)
}

// Attr reads the attribute from the first member. It returns "" for an
// empty set.
func (c *Collection) Attr(name string) (string, error) {
	first := c.First()
	if first == nil {
		return "", nil
	}
	return first.Attr(name)
}

// SetAttr sets the attribute on every member.
func (c *Collection) SetAttr(name, value string) error {
	return c.broadcast(func(m *Element) error { return m.SetAttr(name, value) })
}

func (c *Collection) RemoveAttr(name string) error {
	return c.broadcast(func(m *Element) error { return m.RemoveAttr(name) })
}

func (c *Collection) SetText(s string) error {
	return c.broadcast(func(m *Element) error { return m.SetText(s) })
}
