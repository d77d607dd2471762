package markup

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ErrMalformed classifies every *ParseError.
var ErrMalformed = errors.New("malformed markup")

// ParseError reports a markup issue the HTML parser would silently repair.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrMalformed }

// Elements that never take an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true, "param": true, "keygen": true,
}

// Elements whose end tag may be omitted.
var optionalEnd = map[string]bool{
	"html": true, "head": true, "body": true, "p": true, "li": true,
	"dt": true, "dd": true, "option": true, "optgroup": true, "tr": true,
	"td": true, "th": true, "thead": true, "tbody": true, "tfoot": true,
	"colgroup": true, "rt": true, "rp": true, "caption": true,
}

// Lint tokenizes src and reports unbalanced tags: end tags with no open
// element and elements left unclosed at the end of input. Void elements and
// elements whose end tag is optional are exempt.
func Lint(src string) []*ParseError {
	z := html.NewTokenizer(strings.NewReader(src))
	type open struct {
		name string
		line int
	}
	var (
		stack  []open
		issues []*ParseError
		line   = 1
	)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				issues = append(issues, &ParseError{Line: line, Msg: z.Err().Error()})
			}
			break
		}
		raw := z.Raw()
		at := line
		line += strings.Count(string(raw), "\n")

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if !voidElements[tag] {
				stack = append(stack, open{tag, at})
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if voidElements[tag] {
				continue
			}
			idx := -1
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].name == tag {
					idx = i
					break
				}
			}
			if idx < 0 {
				issues = append(issues, &ParseError{Line: at, Msg: fmt.Sprintf("unexpected end tag </%s>", tag)})
				continue
			}
			for _, o := range stack[idx+1:] {
				if !optionalEnd[o.name] {
					issues = append(issues, &ParseError{Line: o.line, Msg: fmt.Sprintf("element <%s> closed implicitly by </%s>", o.name, tag)})
				}
			}
			stack = stack[:idx]
		}
	}
	for _, o := range stack {
		if !optionalEnd[o.name] {
			issues = append(issues, &ParseError{Line: o.line, Msg: fmt.Sprintf("element <%s> is never closed", o.name)})
		}
	}
	return issues
}
