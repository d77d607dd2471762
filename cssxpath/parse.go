package cssxpath

import (
	"fmt"
	"strings"

	"github.com/gorilla/css/scanner"
)

type filterKind int

const (
	filterID filterKind = iota
	filterClass
	filterAttr
	filterPseudo
	filterFunc
	filterNot
)

// filter is one simple selector attached to a compound: #id, .class,
// [attr op value], :pseudo, :func(args) or :not(compound).
type filter struct {
	kind  filterKind
	name  string
	op    string
	value string
	not   *compound
}

// compound is a type selector followed by its filters ("div.a[href]:first-child").
type compound struct {
	element string
	filters []filter
}

// selector is a chain of compounds; combinators[i] joins parts[i] and parts[i+1].
type selector struct {
	parts       []*compound
	combinators []byte
}

type parser struct {
	src  string
	toks []*scanner.Token
	pos  int
}

func newParser(src string) (*parser, error) {
	p := &parser{src: src}
	sc := scanner.New(src)
	for {
		t := sc.Next()
		switch t.Type {
		case scanner.TokenEOF:
			p.toks = append(p.toks, t)
			return p, nil
		case scanner.TokenError:
			return nil, p.errorf(t, "invalid token %q", t.Value)
		case scanner.TokenComment:
			continue
		}
		p.toks = append(p.toks, t)
	}
}

func (p *parser) peek() *scanner.Token {
	return p.toks[p.pos]
}

func (p *parser) next() *scanner.Token {
	t := p.toks[p.pos]
	if t.Type != scanner.TokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) skipSpace() bool {
	seen := false
	for p.peek().Type == scanner.TokenS {
		p.next()
		seen = true
	}
	return seen
}

func isChar(t *scanner.Token, c string) bool {
	return t.Type == scanner.TokenChar && t.Value == c
}

func (p *parser) errorf(t *scanner.Token, format string, args ...any) *Error {
	e := &Error{Kind: ErrSyntax, Selector: p.src, Msg: fmt.Sprintf(format, args...)}
	if t != nil {
		e.Column = t.Column
	}
	return e
}

func (p *parser) parseGroup() ([]*selector, error) {
	var group []*selector
	for {
		p.skipSpace()
		sel, err := p.parseSelector()
		if err != nil {
			return nil, err
		}
		group = append(group, sel)
		p.skipSpace()
		t := p.next()
		switch {
		case isChar(t, ","):
			continue
		case t.Type == scanner.TokenEOF:
			return group, nil
		default:
			return nil, p.errorf(t, "unexpected %q", t.Value)
		}
	}
}

func (p *parser) parseSelector() (*selector, error) {
	first, err := p.parseCompound()
	if err != nil {
		return nil, err
	}
	sel := &selector{parts: []*compound{first}}
	for {
		spaced := p.skipSpace()
		t := p.peek()
		var comb byte
		switch {
		case isChar(t, ">"), isChar(t, "+"), isChar(t, "~"):
			comb = t.Value[0]
			p.next()
			p.skipSpace()
		case t.Type == scanner.TokenEOF, isChar(t, ","):
			return sel, nil
		case spaced:
			comb = ' '
		default:
			return nil, p.errorf(t, "unexpected %q", t.Value)
		}
		c, err := p.parseCompound()
		if err != nil {
			return nil, err
		}
		sel.parts = append(sel.parts, c)
		sel.combinators = append(sel.combinators, comb)
	}
}

func (p *parser) parseCompound() (*compound, error) {
	c := &compound{}
	start := p.peek()
	switch {
	case start.Type == scanner.TokenIdent:
		c.element = start.Value
		p.next()
	case isChar(start, "*"):
		c.element = "*"
		p.next()
	}
	if isChar(p.peek(), "|") {
		return nil, &Error{Kind: ErrUnsupported, Selector: p.src, Column: p.peek().Column, Msg: "Namespaces are not supported."}
	}
	for {
		t := p.peek()
		switch {
		case t.Type == scanner.TokenHash:
			p.next()
			c.filters = append(c.filters, filter{kind: filterID, value: t.Value[1:]})
		case isChar(t, "."):
			p.next()
			id := p.next()
			if id.Type != scanner.TokenIdent {
				return nil, p.errorf(id, "expected class name, got %q", id.Value)
			}
			c.filters = append(c.filters, filter{kind: filterClass, value: id.Value})
		case isChar(t, "["):
			p.next()
			f, err := p.parseAttr()
			if err != nil {
				return nil, err
			}
			c.filters = append(c.filters, f)
		case isChar(t, ":"):
			p.next()
			f, err := p.parsePseudo()
			if err != nil {
				return nil, err
			}
			c.filters = append(c.filters, f)
		default:
			if c.element == "" && len(c.filters) == 0 {
				if t.Type == scanner.TokenEOF {
					return nil, p.errorf(t, "expected selector, got end of input")
				}
				return nil, p.errorf(t, "expected selector, got %q", t.Value)
			}
			if c.element == "" {
				c.element = "*"
			}
			return c, nil
		}
	}
}

func (p *parser) parseAttr() (filter, error) {
	p.skipSpace()
	name := p.next()
	if name.Type != scanner.TokenIdent {
		return filter{}, p.errorf(name, "expected attribute name, got %q", name.Value)
	}
	f := filter{kind: filterAttr, name: name.Value, op: "exists"}
	p.skipSpace()
	t := p.next()
	if isChar(t, "]") {
		return f, nil
	}
	op, err := p.attrOperator(t)
	if err != nil {
		return filter{}, err
	}
	f.op = op
	p.skipSpace()
	v := p.next()
	switch v.Type {
	case scanner.TokenIdent, scanner.TokenNumber, scanner.TokenDimension:
		f.value = v.Value
	case scanner.TokenString:
		f.value = unquote(v.Value)
	default:
		return filter{}, p.errorf(v, "expected attribute value, got %q", v.Value)
	}
	p.skipSpace()
	if end := p.next(); !isChar(end, "]") {
		return filter{}, p.errorf(end, "expected \"]\", got %q", end.Value)
	}
	return f, nil
}

// attrOperator accepts both the scanner's dedicated match tokens and a
// bare character followed by "=".
func (p *parser) attrOperator(t *scanner.Token) (string, error) {
	switch t.Type {
	case scanner.TokenIncludes:
		return "~=", nil
	case scanner.TokenDashMatch:
		return "|=", nil
	case scanner.TokenPrefixMatch:
		return "^=", nil
	case scanner.TokenSuffixMatch:
		return "$=", nil
	case scanner.TokenSubstringMatch:
		return "*=", nil
	case scanner.TokenChar:
		if t.Value == "=" {
			return "=", nil
		}
		if strings.Contains("~|^$*!", t.Value) && isChar(p.peek(), "=") {
			p.next()
			return t.Value + "=", nil
		}
	}
	return "", p.errorf(t, "unexpected %q in attribute selector", t.Value)
}

func (p *parser) parsePseudo() (filter, error) {
	t := p.next()
	switch t.Type {
	case scanner.TokenChar:
		if t.Value == ":" {
			return filter{}, &Error{Kind: ErrUnsupported, Selector: p.src, Column: t.Column, Msg: "Pseudo-elements are not supported."}
		}
	case scanner.TokenIdent:
		return filter{kind: filterPseudo, name: strings.ToLower(t.Value)}, nil
	case scanner.TokenFunction:
		name := strings.ToLower(strings.TrimSuffix(t.Value, "("))
		if name == "not" {
			p.skipSpace()
			inner, err := p.parseCompound()
			if err != nil {
				return filter{}, err
			}
			p.skipSpace()
			if end := p.next(); !isChar(end, ")") {
				return filter{}, p.errorf(end, "expected \")\" after :not argument, got %q", end.Value)
			}
			return filter{kind: filterNot, name: name, not: inner}, nil
		}
		arg, err := p.functionArg()
		if err != nil {
			return filter{}, err
		}
		return filter{kind: filterFunc, name: name, value: arg}, nil
	}
	return filter{}, p.errorf(t, "expected pseudo-class name, got %q", t.Value)
}

// functionArg collects the raw argument of a functional pseudo-class up to
// the closing parenthesis. A single string token is unquoted. Case is kept;
// functions with case-insensitive arguments fold it themselves.
func (p *parser) functionArg() (string, error) {
	var parts []string
	for {
		t := p.next()
		switch {
		case t.Type == scanner.TokenEOF:
			return "", p.errorf(t, "unterminated function argument")
		case isChar(t, ")"):
			return strings.Join(parts, ""), nil
		case t.Type == scanner.TokenS:
			continue
		case t.Type == scanner.TokenString:
			parts = append(parts, unquote(t.Value))
		default:
			parts = append(parts, t.Value)
		}
	}
}

// unquote strips the quotes of a CSS string token and resolves simple
// backslash escapes.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			if s[i] == '\n' {
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
