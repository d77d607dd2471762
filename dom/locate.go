package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// LocatorOf returns a positional XPath for n, evaluated from its topmost
// ancestor: "/div/p[2]", "/div/text()". An index is added only when siblings
// share the step name. The document node is "/". A detached subtree is
// located from its own root, whose step carries no index.
func LocatorOf(n Node) string {
	if n.IsZero() {
		return ""
	}
	if n.n.Type == html.DocumentNode {
		return "/"
	}
	var steps []string
	for h := n.n; h != nil && h.Type != html.DocumentNode; h = h.Parent {
		if h.Type == html.DoctypeNode {
			continue
		}
		steps = append(steps, locatorStep(h))
	}
	var sb strings.Builder
	for i := len(steps) - 1; i >= 0; i-- {
		sb.WriteByte('/')
		sb.WriteString(steps[i])
	}
	return sb.String()
}

func locatorStep(h *html.Node) string {
	name := stepName(h)
	if h.Parent == nil {
		return name
	}
	idx, total := 0, 0
	for c := h.Parent.FirstChild; c != nil; c = c.NextSibling {
		if stepName(c) != name {
			continue
		}
		total++
		if c == h {
			idx = total
		}
	}
	if total > 1 {
		return fmt.Sprintf("%s[%d]", name, idx)
	}
	return name
}

func stepName(h *html.Node) string {
	switch h.Type {
	case html.ElementNode:
		return strings.ToLower(h.Data)
	case html.TextNode:
		return "text()"
	case html.CommentNode:
		return "comment()"
	default:
		return "node()"
	}
}
