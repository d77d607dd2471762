package dom

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Translator, parser and I/O failures are wrapped as
// they come (*cssxpath.Error, *markup.ParseError, markup.ErrTooLarge).
var (
	// ErrUsage is returned when a root-only operation (load, create) is
	// called on a facet that does not wrap the document root.
	ErrUsage = errors.New("dom: usage error")

	// ErrEmptyInput is returned when loading an empty string.
	ErrEmptyInput = errors.New("dom: empty string supplied as input")

	// ErrStructure is returned when a mutation would break the tree shape:
	// inserting before or after the root, adopting an ancestor, or giving
	// children to a text node.
	ErrStructure = errors.New("dom: structural error")

	// ErrUnsupported is returned when the wrapped node lacks a capability:
	// attributes on non-elements, queries on detached or non-queryable nodes.
	ErrUnsupported = errors.New("dom: unsupported capability")

	// ErrNotElement is the collection write guard.
	ErrNotElement = errors.New("dom: you can only insert element handles")
)

func usageError(op string) error {
	return fmt.Errorf("%w: you can only %s on a root instance", ErrUsage, op)
}

func structureError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStructure, fmt.Sprintf(format, args...))
}

func unsupportedError(what string) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, what)
}
