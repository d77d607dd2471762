package cssxpath

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax classifies selectors that cannot be parsed.
	ErrSyntax = errors.New("css selector syntax error")

	// ErrUnsupported classifies selector features the translator does not
	// implement or that are disabled by Options (pseudo-classes, functions,
	// pseudo-elements, namespaces).
	ErrUnsupported = errors.New("css selector feature not supported")
)

// Error is returned by Translate. Kind is ErrSyntax or ErrUnsupported.
type Error struct {
	Kind     error
	Selector string
	Column   int    // 1-based column of the offending token, 0 when unknown
	Pseudo   string // offending pseudo-class or function name, if any
	Msg      string
}

func (e *Error) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("%s (selector %q, column %d)", e.Msg, e.Selector, e.Column)
	}
	return fmt.Sprintf("%s (selector %q)", e.Msg, e.Selector)
}

// Is lets errors.Is match the error kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func unsupportedPseudo(sel, name string) *Error {
	return &Error{
		Kind:     ErrUnsupported,
		Selector: sel,
		Pseudo:   name,
		Msg:      fmt.Sprintf("Pseudo-class %q not supported.", name),
	}
}

func unsupportedFunction(sel, name string) *Error {
	return &Error{
		Kind:     ErrUnsupported,
		Selector: sel,
		Pseudo:   name,
		Msg:      fmt.Sprintf("Function %q not supported.", name),
	}
}
