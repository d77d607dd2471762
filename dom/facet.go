package dom

// Facet is the operation set shared by *Element and *Collection. A
// Collection replays each operation on its members and aggregates the
// results; mutations broadcast fail-fast, returning the first member error
// wrapped with the member index and leaving earlier members mutated.
type Facet interface {
	Find(selector string) (*Collection, error)
	FindXPath(expr string) (*Collection, error)

	Text() string
	HTML() string
	Markdown() (string, error)
	String() string

	PrecedingSiblings() *Collection
	NextSiblings() *Collection

	Wrap(el *Element) error
	Before(el *Element) error
	After(el *Element) error
	Append(el *Element) error
	Prepend(f Facet) error
	Empty() error
	Remove() error

	Attr(name string) (string, error)
	SetAttr(name, value string) error
	RemoveAttr(name string) error
	SetText(s string) error
}

var (
	_ Facet = (*Element)(nil)
	_ Facet = (*Collection)(nil)
)
