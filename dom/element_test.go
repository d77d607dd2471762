package dom

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/domq/markup"
)

const family = `<div class="parent"><div class="firstchild"></div><div class="lastchild"></div></div>`

const family3 = `<div class="parent"><div class="firstchild"></div><div class="middlechild"></div><div class="lastchild"></div></div>`

const captions = `<html>
    <body>
        <div class="caption">
            <img> CAPTION 1
        </div>
        <div class="caption">
            <img> CAPTION 2
        </div>
    </body>
</html>
`

const emFigures = `<html>
    <body>
        <em><figure></figure></em>
        <em><figure></figure></em>
    </body>
</html>
`

func load(t *testing.T, src string) *Element {
	t.Helper()
	root, err := Parse(src, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return root
}

func find(t *testing.T, f Facet, sel string) *Collection {
	t.Helper()
	c, err := f.Find(sel)
	if err != nil {
		t.Fatalf("Find(%q): %v", sel, err)
	}
	return c
}

func first(t *testing.T, f Facet, sel string) *Element {
	t.Helper()
	el := find(t, f, sel).First()
	if el == nil {
		t.Fatalf("Find(%q): no match", sel)
	}
	return el
}

func TestLoadString_Empty(t *testing.T) {
	err := New(nil).LoadString("")
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("got %v, want ErrEmptyInput", err)
	}
	if !strings.Contains(err.Error(), "empty string supplied as input") {
		t.Errorf("message: got %q", err.Error())
	}
}

func TestLoadString_OnlyOnRoot(t *testing.T) {
	root := New(nil)
	a, err := root.Create("a")
	if err != nil {
		t.Fatal(err)
	}
	err = a.LoadString("ASD")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("got %v, want ErrUsage", err)
	}
	if !strings.Contains(err.Error(), "you can only LoadString on a root instance") {
		t.Errorf("message: got %q", err.Error())
	}
	if err := a.LoadFile("x.html"); !errors.Is(err, ErrUsage) {
		t.Errorf("LoadFile on non-root: got %v, want ErrUsage", err)
	}
}

func TestLoadString_ReplacesTree(t *testing.T) {
	root := load(t, family)
	if err := root.LoadString("<p>second</p>"); err != nil {
		t.Fatal(err)
	}
	if got := root.HTML(); got != "<p>second</p>" {
		t.Errorf("HTML: got %q", got)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.html")
	if err := os.WriteFile(path, []byte(captions), 0o644); err != nil {
		t.Fatal(err)
	}
	root := New(nil)
	if err := root.LoadFile(path); err != nil {
		t.Fatal(err)
	}
	if n := find(t, root, ".caption").Len(); n != 2 {
		t.Errorf("captions: got %d, want 2", n)
	}

	small := New(&Config{MaxFileSize: 10})
	if err := small.LoadFile(path); err == nil {
		t.Error("expected size limit error")
	}
}

func TestLoadReader(t *testing.T) {
	root := New(nil)
	if err := root.LoadReader(strings.NewReader(family)); err != nil {
		t.Fatal(err)
	}
	if got := root.HTML(); got != family {
		t.Errorf("HTML: got %q", got)
	}
	if err := New(nil).LoadReader(strings.NewReader("")); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("empty reader: got %v, want ErrEmptyInput", err)
	}
	small := New(&Config{MaxFileSize: 10})
	if err := small.LoadReader(strings.NewReader(family)); !errors.Is(err, markup.ErrTooLarge) {
		t.Errorf("over the limit: got %v, want markup.ErrTooLarge", err)
	}
	if err := first(t, root, ".parent").LoadReader(strings.NewReader(family)); !errors.Is(err, ErrUsage) {
		t.Errorf("non-root: got %v, want ErrUsage", err)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, src := range []string{family, family3, `<ul><li>a</li><li>b &amp; c</li></ul>`, `<p>x<br>y</p><!-- note -->`} {
		once := load(t, src).HTML()
		twice := load(t, once).HTML()
		if once != twice {
			t.Errorf("round trip of %q:\n first  %q\n second %q", src, once, twice)
		}
	}
}

func TestFind_Basic(t *testing.T) {
	root := load(t, captions)
	c := find(t, root, ".caption")
	if c.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", c.Len())
	}
	if !strings.Contains(c.HTML(), `<div class="caption">`) {
		t.Errorf("HTML: got %q", c.HTML())
	}
}

func TestFind_LinkPseudo(t *testing.T) {
	root := load(t, `<div><a href="#">LINK</a></div>`)
	if got := find(t, root, "*:link").HTML(); got != `<a href="#">LINK</a>` {
		t.Errorf("got %q", got)
	}
}

func TestFind_LinkPseudoPlainCSS(t *testing.T) {
	root, err := Parse(`<div><a href="#">LINK</a></div>`, &Config{PlainCSS: true})
	if err != nil {
		t.Fatal(err)
	}
	_, err = root.Find("*:link")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `Pseudo-class "link" not supported.`) {
		t.Errorf("message: got %q", err.Error())
	}
}

func TestFind_IncludesSelf(t *testing.T) {
	root := load(t, family)
	parent := first(t, root, ".parent")
	if got := find(t, parent, ".parent").Len(); got != 1 {
		t.Errorf("self match: got %d, want 1", got)
	}
	if got := find(t, parent, "div").Len(); got != 3 {
		t.Errorf("div under parent: got %d, want 3", got)
	}
}

func TestFindXPath_NotQueryable(t *testing.T) {
	root := load(t, `<p>hello</p>`)
	text := mustXPath(t, root, "//text()").First()
	_, err := text.FindXPath("*")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("got %v, want ErrUnsupported", err)
	}
	if !strings.Contains(err.Error(), "document does not support xpath") {
		t.Errorf("message: got %q", err.Error())
	}
}

func TestFindXPath_Invalid(t *testing.T) {
	if _, err := load(t, family).FindXPath("//div[@"); err == nil {
		t.Error("expected compile error")
	}
}

func mustXPath(t *testing.T, f Facet, expr string) *Collection {
	t.Helper()
	c, err := f.FindXPath(expr)
	if err != nil {
		t.Fatalf("FindXPath(%q): %v", expr, err)
	}
	return c
}

func TestText(t *testing.T) {
	root := load(t, `<div>a<b>b</b>c</div>`)
	if got := first(t, root, "div").Text(); got != "abc" {
		t.Errorf("Text: got %q, want %q", got, "abc")
	}
}

func TestHTML_TextNodeEscaped(t *testing.T) {
	root := load(t, `<p>a &lt; b</p>`)
	text := mustXPath(t, root, "//text()").First()
	if got := text.HTML(); got != "a &lt; b" {
		t.Errorf("HTML: got %q", got)
	}
}

func TestSiblings(t *testing.T) {
	root := load(t, family3)
	middle := first(t, root, ".middlechild")
	if got := middle.PrecedingSiblings().HTML(); got != `<div class="firstchild"></div>` {
		t.Errorf("PrecedingSiblings: got %q", got)
	}
	if got := middle.NextSiblings().HTML(); got != `<div class="lastchild"></div>` {
		t.Errorf("NextSiblings: got %q", got)
	}

	detached, _ := root.Create("p")
	if detached.PrecedingSiblings().Len() != 0 || detached.NextSiblings().Len() != 0 {
		t.Error("detached node should have no siblings")
	}
}

func TestBefore(t *testing.T) {
	root := load(t, family)
	firstChild := find(t, root, ".firstchild")
	if firstChild.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", firstChild.Len())
	}
	if err := firstChild.First().Before(first(t, root, ".lastchild")); err != nil {
		t.Fatal(err)
	}
	want := `<div class="parent"><div class="lastchild"></div><div class="firstchild"></div></div>`
	if got := root.HTML(); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestBefore_TopLevel(t *testing.T) {
	root := load(t, family)
	if err := find(t, root, ".parent").Before(first(t, root, ".firstchild")); err != nil {
		t.Fatal(err)
	}
	want := `<div class="firstchild"></div><div class="parent"><div class="lastchild"></div></div>`
	if got := root.HTML(); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestBeforeAfter_Root(t *testing.T) {
	root := load(t, family)
	el := first(t, root, ".firstchild")
	if err := root.Before(el); !errors.Is(err, ErrStructure) {
		t.Errorf("Before root: got %v, want ErrStructure", err)
	} else if !strings.Contains(err.Error(), "impossible to put elements before the root") {
		t.Errorf("Before root message: got %q", err.Error())
	}
	if err := root.After(el); !errors.Is(err, ErrStructure) {
		t.Errorf("After root: got %v, want ErrStructure", err)
	}
}

func TestAfter_EmWrappedFigures(t *testing.T) {
	root := load(t, emFigures)
	figures := find(t, root, "em > figure")
	if figures.Len() != 2 {
		t.Fatalf("figures: got %d, want 2", figures.Len())
	}
	_, err := figures.Map(func(_ int, figure *Element) (*Element, error) {
		return nil, figure.Parent().After(figure)
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := root.HTML(); strings.Count(got, "<em></em><figure></figure>") != 2 {
		t.Errorf("got %s", got)
	}
}

func TestWrap(t *testing.T) {
	root := load(t, `<div class="parent"><div class="a"></div><div class="b"></div></div>`)
	if err := find(t, root, ".a").Wrap(first(t, root, ".b")); err != nil {
		t.Fatal(err)
	}
	want := `<div class="parent"><div class="b"><div class="a"></div></div></div>`
	if got := root.HTML(); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestWrap_WithoutParent(t *testing.T) {
	root := New(nil)
	span, _ := root.Create("span", "x")
	div, _ := root.Create("div")
	if err := span.Wrap(div); err != nil {
		t.Fatal(err)
	}
	if got := div.HTML(); got != "<div><span>x</span></div>" {
		t.Errorf("wrapper: got %q", got)
	}
	if !span.Parent().Is(div) {
		t.Error("span should be appended to the wrapper")
	}
}

func TestWrap_Captions(t *testing.T) {
	root := load(t, captions)
	_, err := find(t, root, ".caption").Map(func(_ int, caption *Element) (*Element, error) {
		images, err := caption.Find(":not(figure) > img")
		if err != nil {
			return nil, err
		}
		return nil, images.Each(func(_ int, image *Element) error {
			figure, _ := root.Create("figure")
			figcaption, _ := root.Create("figcaption")

			next := image.NextSiblings()
			text := strings.TrimSpace(next.Text())
			if err := next.Remove(); err != nil {
				return err
			}
			h1, _ := root.Create("h1", text)

			if err := image.Wrap(figure); err != nil {
				return err
			}
			if err := figure.Append(figcaption); err != nil {
				return err
			}
			return figcaption.Append(h1)
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	out := root.HTML()
	for _, want := range []string{
		"<figure><img/><figcaption><h1>CAPTION 1</h1></figcaption></figure>",
		"<figcaption><h1>CAPTION 2</h1></figcaption>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in\n%s", want, out)
		}
	}
}

func TestAppend_Moves(t *testing.T) {
	root := load(t, family)
	if err := first(t, root, ".firstchild").Append(first(t, root, ".lastchild")); err != nil {
		t.Fatal(err)
	}
	want := `<div class="parent"><div class="firstchild"><div class="lastchild"></div></div></div>`
	if got := root.HTML(); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestAppend_Cycle(t *testing.T) {
	root := load(t, family)
	parent := first(t, root, ".parent")
	child := first(t, root, ".firstchild")
	if err := child.Append(parent); !errors.Is(err, ErrStructure) {
		t.Errorf("append ancestor: got %v, want ErrStructure", err)
	}
	if err := parent.Append(parent); !errors.Is(err, ErrStructure) {
		t.Errorf("append self: got %v, want ErrStructure", err)
	}
	if got := root.HTML(); got != family {
		t.Errorf("tree changed after failed append: %s", got)
	}
}

func TestAppend_ToTextNode(t *testing.T) {
	root := load(t, `<p>hi</p>`)
	text := mustXPath(t, root, "//text()").First()
	b, _ := root.Create("b")
	if err := text.Append(b); !errors.Is(err, ErrStructure) {
		t.Errorf("got %v, want ErrStructure", err)
	}
}

func TestPrepend_Collection(t *testing.T) {
	root := load(t, family)
	if err := find(t, root, ".parent").Prepend(find(t, root, ".lastchild")); err != nil {
		t.Fatal(err)
	}
	want := `<div class="parent"><div class="lastchild"></div><div class="firstchild"></div></div>`
	if got := root.HTML(); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestPrepend_OnRoot(t *testing.T) {
	root := load(t, family)
	if err := root.Prepend(find(t, root, ".lastchild")); err != nil {
		t.Fatal(err)
	}
	want := `<div class="lastchild"></div><div class="parent"><div class="firstchild"></div></div>`
	if got := root.HTML(); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestPrepend_KeepsOrder(t *testing.T) {
	root := load(t, `<ul><li>x</li></ul><p>1</p><p>2</p><p>3</p>`)
	ul := first(t, root, "ul")
	if err := ul.Prepend(find(t, root, "p")); err != nil {
		t.Fatal(err)
	}
	want := `<ul><p>1</p><p>2</p><p>3</p><li>x</li></ul>`
	if got := root.HTML(); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestPrepend_Element(t *testing.T) {
	root := load(t, `<ul><li>b</li></ul>`)
	li, _ := root.Create("li", "a")
	if err := first(t, root, "ul").Prepend(li); err != nil {
		t.Fatal(err)
	}
	if got := root.HTML(); got != `<ul><li>a</li><li>b</li></ul>` {
		t.Errorf("got %s", got)
	}
}

func TestEmpty(t *testing.T) {
	root := load(t, family)
	parent := first(t, root, ".parent")
	if err := parent.Empty(); err != nil {
		t.Fatal(err)
	}
	if n := parent.Node().ChildCount(); n != 0 {
		t.Errorf("ChildCount: got %d, want 0", n)
	}
	if parent.Node().Tag() != "div" {
		t.Errorf("Tag: got %q", parent.Node().Tag())
	}
	if cls, _ := parent.Attr("class"); cls != "parent" {
		t.Errorf("class: got %q", cls)
	}
	if got := root.HTML(); got != `<div class="parent"></div>` {
		t.Errorf("got %s", got)
	}
}

func TestRemove(t *testing.T) {
	root := load(t, family)
	parent := first(t, root, ".parent")
	child := first(t, root, ".firstchild")
	before := parent.Node().ChildCount()

	if err := child.Remove(); err != nil {
		t.Fatal(err)
	}
	if got := parent.Node().ChildCount(); got != before-1 {
		t.Errorf("ChildCount: got %d, want %d", got, before-1)
	}
	for i := 0; i < 2; i++ {
		if err := child.Remove(); err != nil {
			t.Errorf("second Remove: %v", err)
		}
	}
	if got := parent.Node().ChildCount(); got != before-1 {
		t.Errorf("ChildCount after repeat: got %d, want %d", got, before-1)
	}
	if got := root.HTML(); got != `<div class="parent"><div class="lastchild"></div></div>` {
		t.Errorf("got %s", got)
	}
}

func TestReplace(t *testing.T) {
	root := load(t, family)
	a := first(t, root, ".firstchild")
	b := first(t, root, ".lastchild")
	if err := a.Replace(b); err != nil {
		t.Fatal(err)
	}
	if got := root.HTML(); got != `<div class="parent"><div class="lastchild"></div></div>` {
		t.Errorf("got %s", got)
	}
	if !a.Parent().IsZero() {
		t.Error("replaced node should have no parent")
	}
	if !b.Parent().Is(first(t, root, ".parent")) {
		t.Error("replacement should sit in the old parent")
	}

	// Detached: no-op.
	c, _ := root.Create("p")
	if err := a.Replace(c); err != nil {
		t.Errorf("Replace on detached: %v", err)
	}
	if !c.Parent().IsZero() {
		t.Error("replacement of a detached node should stay detached")
	}
}

func TestParent(t *testing.T) {
	root := load(t, family)
	child := first(t, root, ".firstchild")
	if !child.Parent().Is(first(t, root, ".parent")) {
		t.Error("Parent mismatch")
	}
	top := first(t, root, ".parent")
	if !top.Parent().Is(root) {
		t.Error("top-level element parent should be the root")
	}
	if p := root.Parent(); p == nil || !p.IsZero() {
		t.Error("root parent should be a zero facet")
	}
}

func TestAttr(t *testing.T) {
	root := load(t, family)
	parent := first(t, root, ".parent")
	if v, err := parent.Attr("class"); err != nil || v != "parent" {
		t.Errorf("Attr(class): got %q, %v", v, err)
	}
	if v, err := parent.Attr("missing"); err != nil || v != "" {
		t.Errorf("Attr(missing): got %q, %v", v, err)
	}
	if err := parent.SetAttr("foo", "bar"); err != nil {
		t.Fatal(err)
	}
	want := `<div class="parent" foo="bar"><div class="firstchild"></div><div class="lastchild"></div></div>`
	if got := root.HTML(); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
	if !parent.HasAttr("FOO") {
		t.Error("HasAttr should match case-insensitively")
	}
	if err := parent.RemoveAttr("foo"); err != nil {
		t.Fatal(err)
	}
	if got := root.HTML(); got != family {
		t.Errorf("after RemoveAttr: %s", got)
	}
}

func TestAttr_NotElement(t *testing.T) {
	root := load(t, family)
	_, err := root.Attr("a")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("got %v, want ErrUnsupported", err)
	}
	if !strings.Contains(err.Error(), "this element does not support attributes") {
		t.Errorf("message: got %q", err.Error())
	}
	if err := root.SetAttr("a", "b"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("SetAttr: got %v, want ErrUnsupported", err)
	}
}

func TestCreate(t *testing.T) {
	root := load(t, family)
	h1, err := root.Create("H1", "Title")
	if err != nil {
		t.Fatal(err)
	}
	if got := h1.HTML(); got != "<h1>Title</h1>" {
		t.Errorf("HTML: got %q", got)
	}
	if !h1.Parent().IsZero() {
		t.Error("created node should be detached")
	}
	if h1.Tree() != root.Tree() {
		t.Error("created node should belong to the root's tree")
	}
	if got := root.HTML(); got != family {
		t.Errorf("Create changed the document: %s", got)
	}

	_, err = first(t, root, ".parent").Create("a")
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "you can only Create on a root instance") {
		t.Errorf("Create on non-root: got %v", err)
	}
	if _, err := root.Create(""); !errors.Is(err, ErrUsage) {
		t.Errorf("Create(\"\"): got %v, want ErrUsage", err)
	}
}

func TestSetText(t *testing.T) {
	root := load(t, `<p>a<b>b</b></p>`)
	p := first(t, root, "p")
	if err := p.SetText("x < y"); err != nil {
		t.Fatal(err)
	}
	if got := root.HTML(); got != "<p>x &lt; y</p>" {
		t.Errorf("got %s", got)
	}
	text := mustXPath(t, p, "text()").First()
	if err := text.SetText("z"); err != nil {
		t.Fatal(err)
	}
	if got := p.Text(); got != "z" {
		t.Errorf("Text: got %q", got)
	}
}

func TestChildren(t *testing.T) {
	root := load(t, `<ul>text<li>a</li><!-- c --><li>b</li></ul>`)
	kids := first(t, root, "ul").Children()
	if kids.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", kids.Len())
	}
	if got := kids.Text(); got != "a b" {
		t.Errorf("Text: got %q", got)
	}
}

func TestClone(t *testing.T) {
	root := load(t, family)
	parent := first(t, root, ".parent")
	cp := parent.Clone()
	if cp.HTML() != parent.HTML() {
		t.Errorf("clone HTML: got %q", cp.HTML())
	}
	if cp.Is(parent) || !cp.Parent().IsZero() {
		t.Error("clone should be a distinct detached node")
	}
	if err := cp.SetAttr("id", "copy"); err != nil {
		t.Fatal(err)
	}
	if parent.HasAttr("id") {
		t.Error("editing the clone changed the original")
	}
}

func TestIs(t *testing.T) {
	root := load(t, family)
	a := first(t, root, ".firstchild")
	b := first(t, root, ".firstchild")
	if a == b {
		t.Fatal("expected distinct facets")
	}
	if !a.Is(b) {
		t.Error("facets over the same node should be Is-equal")
	}
	if a.Is(first(t, root, ".lastchild")) || a.Is(nil) {
		t.Error("Is matched a different node")
	}
}

func TestNilArguments(t *testing.T) {
	root := load(t, family)
	el := first(t, root, ".firstchild")
	for name, err := range map[string]error{
		"Wrap":    el.Wrap(nil),
		"Before":  el.Before(nil),
		"After":   el.After(nil),
		"Append":  el.Append(nil),
		"Replace": el.Replace(nil),
		"Prepend": el.Prepend(nil),
	} {
		if !errors.Is(err, ErrNotElement) {
			t.Errorf("%s(nil): got %v, want ErrNotElement", name, err)
		}
	}
}

func TestMarkdown(t *testing.T) {
	root := load(t, `<div><h1>Title</h1><p>Some <strong>bold</strong> text.</p></div>`)
	md, err := first(t, root, "div").Markdown()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "# Title") || !strings.Contains(md, "**bold**") {
		t.Errorf("Markdown: got %q", md)
	}
	if got := root.HTML(); !strings.Contains(got, "<h1>Title</h1>") {
		t.Errorf("Markdown changed the document: %s", got)
	}
}

func TestStrictLoad(t *testing.T) {
	root := New(&Config{Strict: true})
	if err := root.LoadString("<div><span>open</div>"); err == nil {
		t.Error("expected strict parse error")
	}
	lenient := New(nil)
	if err := lenient.LoadString("<div><span>open</div>"); err != nil {
		t.Errorf("lenient: %v", err)
	}
}

func TestSanitizedLoad(t *testing.T) {
	root, err := Parse(`<p onclick="x()">hi<script>bad()</script></p>`, &Config{Sanitize: "ugc"})
	if err != nil {
		t.Fatal(err)
	}
	if got := root.HTML(); got != "<p>hi</p>" {
		t.Errorf("got %q", got)
	}
}
