// Package cssxpath translates CSS selectors into XPath 1.0 expressions.
//
// The translation follows the classic CSS-to-XPath mapping: every selector
// of a group is rendered relative to the context node with a
// "descendant-or-self::" prefix and the group members are joined with "|".
//
//	t := cssxpath.New(cssxpath.Options{HTML: true})
//	xp, err := t.Translate(".parent > a:link")
//
// Tokenizing is delegated to the gorilla/css scanner. HTML mode lowercases
// element and attribute names and enables the HTML-specific pseudo-classes
// (:link, :checked, :disabled, :enabled, :selected, :hover, ...).
// Selectors using a feature the translator does not know fail with an *Error
// whose Kind is ErrUnsupported.
package cssxpath

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPrefix anchors translated selectors on the context node.
const DefaultPrefix = "descendant-or-self::"

// Options controls translation.
type Options struct {
	// HTML enables HTML semantics: case-insensitive names and the HTML
	// pseudo-class extension.
	HTML bool

	// Prefix replaces DefaultPrefix when non-empty.
	Prefix string
}

// Translator converts CSS selectors to XPath. It holds no mutable state and
// is safe for concurrent use.
type Translator struct {
	opts Options
}

// New creates a Translator.
func New(opts Options) *Translator {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	return &Translator{opts: opts}
}

// HTML reports whether HTML pseudo-classes are honored.
func (t *Translator) HTML() bool { return t.opts.HTML }

// Translate converts a CSS selector group into an XPath expression.
func (t *Translator) Translate(sel string) (string, error) {
	if strings.TrimSpace(sel) == "" {
		return "", &Error{Kind: ErrSyntax, Selector: sel, Msg: "empty selector"}
	}
	p, err := newParser(sel)
	if err != nil {
		return "", err
	}
	group, err := p.parseGroup()
	if err != nil {
		return "", err
	}
	paths := make([]string, 0, len(group))
	for _, s := range group {
		x, err := t.selector(sel, s)
		if err != nil {
			return "", err
		}
		paths = append(paths, t.opts.Prefix+x.String())
	}
	return strings.Join(paths, " | "), nil
}

// expr is an XPath location step under construction.
type expr struct {
	path    string
	element string
	cond    string
}

func (x *expr) String() string {
	s := x.path + x.element
	if x.cond != "" {
		s += "[" + x.cond + "]"
	}
	return s
}

func (x *expr) addCond(c string) {
	switch {
	case c == "":
	case x.cond == "":
		x.cond = c
	default:
		x.cond = "(" + x.cond + ") and (" + c + ")"
	}
}

// addNameTest moves the element name into the predicate so positional
// conditions apply to all element siblings.
func (x *expr) addNameTest() {
	if x.element != "*" {
		x.addCond("name() = " + literal(x.element))
		x.element = "*"
	}
}

func (x *expr) join(combiner string, other *expr) {
	x.path = x.String() + combiner + other.path
	x.element = other.element
	x.cond = other.cond
}

func (t *Translator) selector(src string, s *selector) (*expr, error) {
	x, err := t.compound(src, s.parts[0])
	if err != nil {
		return nil, err
	}
	for i, comb := range s.combinators {
		right, err := t.compound(src, s.parts[i+1])
		if err != nil {
			return nil, err
		}
		switch comb {
		case ' ':
			x.join("/descendant::", right)
		case '>':
			x.join("/", right)
		case '+':
			// The position test needs its own predicate: inside a compound
			// condition position() counts the filtered set.
			right.addNameTest()
			right.element = "*[1]"
			x.join("/following-sibling::", right)
		case '~':
			x.join("/following-sibling::", right)
		}
	}
	return x, nil
}

func (t *Translator) compound(src string, c *compound) (*expr, error) {
	x := &expr{element: t.name(c.element)}
	for _, f := range c.filters {
		if err := t.filter(src, x, f); err != nil {
			return nil, err
		}
	}
	return x, nil
}

func (t *Translator) name(n string) string {
	if t.opts.HTML {
		return strings.ToLower(n)
	}
	return n
}

func (t *Translator) filter(src string, x *expr, f filter) error {
	switch f.kind {
	case filterID:
		x.addCond("@id = " + literal(f.value))
	case filterClass:
		x.addCond("@class and contains(concat(' ', normalize-space(@class), ' '), " + literal(" "+f.value+" ") + ")")
	case filterAttr:
		x.addCond(attrCond(t.name(f.name), f.op, f.value))
	case filterNot:
		inner, err := t.compound(src, f.not)
		if err != nil {
			return err
		}
		inner.addNameTest()
		if inner.cond == "" {
			x.addCond("0")
		} else {
			x.addCond("not(" + inner.cond + ")")
		}
	case filterPseudo:
		return t.pseudo(src, x, f.name)
	case filterFunc:
		return t.function(src, x, f.name, f.value)
	}
	return nil
}

func attrCond(name, op, value string) string {
	attr := "@" + name
	switch op {
	case "exists":
		return attr
	case "=":
		return attr + " = " + literal(value)
	case "!=":
		return "not(" + attr + ") or " + attr + " != " + literal(value)
	case "~=":
		if strings.TrimSpace(value) == "" || strings.ContainsAny(value, " \t\n") {
			return "0"
		}
		return attr + " and contains(concat(' ', normalize-space(" + attr + "), ' '), " + literal(" "+value+" ") + ")"
	case "|=":
		return attr + " and (" + attr + " = " + literal(value) + " or starts-with(" + attr + ", " + literal(value+"-") + "))"
	case "^=":
		if value == "" {
			return "0"
		}
		return attr + " and starts-with(" + attr + ", " + literal(value) + ")"
	case "$=":
		if value == "" {
			return "0"
		}
		return fmt.Sprintf("%s and substring(%s, string-length(%s)-%d) = %s", attr, attr, attr, len(value)-1, literal(value))
	case "*=":
		if value == "" {
			return "0"
		}
		return attr + " and contains(" + attr + ", " + literal(value) + ")"
	}
	return "0"
}

func (t *Translator) pseudo(src string, x *expr, name string) error {
	switch name {
	case "first-child":
		x.addCond("count(preceding-sibling::*) = 0")
	case "last-child":
		x.addCond("count(following-sibling::*) = 0")
	case "only-child":
		x.addCond("count(preceding-sibling::*) = 0 and count(following-sibling::*) = 0")
	case "first-of-type", "last-of-type", "only-of-type":
		if x.element == "*" {
			return &Error{Kind: ErrUnsupported, Selector: src, Pseudo: name, Msg: fmt.Sprintf("\"*:%s\" is not implemented.", name)}
		}
		switch name {
		case "first-of-type":
			x.addCond("count(preceding-sibling::" + x.element + ") = 0")
		case "last-of-type":
			x.addCond("count(following-sibling::" + x.element + ") = 0")
		default:
			x.addCond("count(preceding-sibling::" + x.element + ") = 0 and count(following-sibling::" + x.element + ") = 0")
		}
	case "empty":
		x.addCond("not(*) and not(string-length())")
	case "root":
		x.addCond("not(parent::*)")
	default:
		if !t.opts.HTML {
			return unsupportedPseudo(src, name)
		}
		return htmlPseudo(src, x, name)
	}
	return nil
}

func htmlPseudo(src string, x *expr, name string) error {
	switch name {
	case "link", "any-link":
		x.addCond("@href and (name(.) = 'a' or name(.) = 'link' or name(.) = 'area')")
	case "checked":
		x.addCond("(@checked and (name(.) = 'input' or name(.) = 'command') and (@type = 'checkbox' or @type = 'radio')) or (@selected and name(.) = 'option')")
	case "selected":
		x.addCond("@selected and name(.) = 'option'")
	case "disabled":
		x.addCond("@disabled and (" + nameIn(formControls) + ")")
	case "enabled":
		x.addCond("not(@disabled) and ((name(.) = 'a' and @href) or " + nameIn(formControls) + ")")
	case "hover", "visited", "active", "focus", "target", "invalid":
		x.addCond("0")
	default:
		return unsupportedPseudo(src, name)
	}
	return nil
}

var formControls = []string{"button", "input", "select", "textarea", "option", "optgroup", "fieldset"}

func nameIn(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = "name(.) = " + literal(n)
	}
	return strings.Join(parts, " or ")
}

func (t *Translator) function(src string, x *expr, name, arg string) error {
	switch name {
	case "nth-child", "nth-last-child", "nth-of-type", "nth-last-of-type":
		a, b, err := parseNth(strings.ToLower(arg))
		if err != nil {
			return &Error{Kind: ErrSyntax, Selector: src, Pseudo: name, Msg: err.Error()}
		}
		axis := "preceding-sibling::"
		if strings.HasPrefix(name, "nth-last") {
			axis = "following-sibling::"
		}
		test := "*"
		if strings.HasSuffix(name, "of-type") {
			if x.element == "*" {
				return &Error{Kind: ErrUnsupported, Selector: src, Pseudo: name, Msg: fmt.Sprintf("\"*:%s()\" is not implemented.", name)}
			}
			test = x.element
		}
		x.addCond(nthCond("count("+axis+test+")", a, b))
	case "contains":
		x.addCond("contains(string(.), " + literal(arg) + ")")
	case "lang":
		if !t.opts.HTML {
			return unsupportedFunction(src, name)
		}
		x.addCond("ancestor-or-self::*[@lang][1][starts-with(concat(@lang, '-'), " + literal(strings.ToLower(arg)+"-") + ")]")
	default:
		return unsupportedFunction(src, name)
	}
	return nil
}

// nthCond renders "position matches an+b" where count is the number of
// siblings before (or after) the element, i.e. position-1.
func nthCond(count string, a, b int) string {
	k := b - 1
	switch {
	case a == 0:
		if k < 0 {
			return "0"
		}
		return fmt.Sprintf("%s = %d", count, k)
	case a > 0:
		var conds []string
		if k > 0 {
			conds = append(conds, fmt.Sprintf("%s >= %d", count, k))
		}
		if a != 1 {
			conds = append(conds, fmt.Sprintf("(%s) mod %d = 0", offset(count, -k), a))
		}
		if len(conds) == 0 {
			return ""
		}
		return strings.Join(conds, " and ")
	default:
		if k < 0 {
			return "0"
		}
		conds := []string{fmt.Sprintf("%s <= %d", count, k)}
		if a != -1 {
			conds = append(conds, fmt.Sprintf("(%d - %s) mod %d = 0", k, count, -a))
		}
		return strings.Join(conds, " and ")
	}
}

func offset(expr string, d int) string {
	switch {
	case d > 0:
		return fmt.Sprintf("%s + %d", expr, d)
	case d < 0:
		return fmt.Sprintf("%s - %d", expr, -d)
	}
	return expr
}

// parseNth parses the an+b micro-syntax ("odd", "even", "3", "2n+1", "-n+3").
func parseNth(s string) (a, b int, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return 0, 0, fmt.Errorf("empty nth expression")
	case "odd":
		return 2, 1, nil
	case "even":
		return 2, 0, nil
	}
	n := strings.IndexByte(s, 'n')
	if n < 0 {
		b, err = strconv.Atoi(strings.TrimPrefix(s, "+"))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid nth expression %q", s)
		}
		return 0, b, nil
	}
	switch coef := s[:n]; coef {
	case "", "+":
		a = 1
	case "-":
		a = -1
	default:
		a, err = strconv.Atoi(strings.TrimPrefix(coef, "+"))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid nth expression %q", s)
		}
	}
	rest := s[n+1:]
	if rest == "" {
		return a, 0, nil
	}
	b, err = strconv.Atoi(strings.TrimPrefix(rest, "+"))
	if err != nil || (rest[0] != '+' && rest[0] != '-') {
		return 0, 0, fmt.Errorf("invalid nth expression %q", s)
	}
	return a, b, nil
}

// literal quotes s as an XPath string literal.
func literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}
