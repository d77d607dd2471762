package dom

import (
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var mdConverter = sync.OnceValue(func() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
})

// Markdown converts the serialised subtree to Markdown. The converter
// works on a re-parsed copy; its pre-render passes never touch the tree.
func (e *Element) Markdown() (string, error) {
	src := e.HTML()
	if src == "" {
		return "", nil
	}
	md, err := mdConverter().ConvertString(src)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}

// Markdown converts every member and joins the results with a blank line.
func (c *Collection) Markdown() (string, error) {
	parts := make([]string, 0, len(c.elements))
	for _, el := range c.elements {
		md, err := el.Markdown()
		if err != nil {
			return "", err
		}
		if md != "" {
			parts = append(parts, md)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
