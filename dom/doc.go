// Package dom is a fluent query-and-mutation layer over parsed HTML.
//
// A root *Element owns a Tree. Find and FindXPath return a *Collection;
// both facets share the same operation names (the Facet interface), the
// Collection replaying each one on its members:
//
//	root, err := dom.Parse(src, nil)
//	imgs, err := root.Find(":not(figure) > img")
//	fig, _ := root.Create("figure")
//	err = imgs.Wrap(fig)
//	out := root.HTML()
//
// CSS selectors are translated to XPath (package cssxpath) and evaluated
// with antchfx/xpath over a navigator built fresh for every query. Handles
// compare by node identity. Mutations move nodes: inserting a node that is
// already attached detaches it first. An Element moved into another tree
// follows it, and its later mutations are journaled there; other handles
// into the moved subtree keep their old tree and should be re-queried.
//
// A Tree is not safe for concurrent use.
package dom
