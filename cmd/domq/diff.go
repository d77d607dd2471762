package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	insertColor = color.New(color.FgGreen)
	deleteColor = color.New(color.FgRed, color.CrossedOut)
)

// writeDiff prints after against before: deletions in red, insertions in
// green, unchanged text as is.
func writeDiff(w io.Writer, before, after string) {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			insertColor.Fprint(w, d.Text)
		case diffmatchpatch.DiffDelete:
			deleteColor.Fprint(w, d.Text)
		default:
			fmt.Fprint(w, d.Text)
		}
	}
	fmt.Fprintln(w)
}
