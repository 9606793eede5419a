package template

import (
	"github.com/teranos/cgen/accum"
	"github.com/teranos/cgen/errors"
)

// Lookup walks from n up the parent chain and returns the first node that
// provides capability C. The walk starts at n itself.
func Lookup[C any](n accum.Node) (C, bool) {
	var zero C
	steps := 0
	for cur := n; cur != nil; cur = cur.Parent() {
		if c, ok := cur.(C); ok {
			return c, true
		}
		// SetParent forbids cycles; the bound only guards hand-built nodes.
		if steps++; steps > 1<<10 {
			break
		}
	}
	return zero, false
}

// MustLookup is Lookup for capabilities whose absence is a wiring bug.
func MustLookup[C any](n accum.Node, what string) C {
	c, ok := Lookup[C](n)
	if !ok {
		name := "<nil>"
		if n != nil {
			name = n.Name()
		}
		panic(errors.AssertionFailedf("no %s above %s", what, name))
	}
	return c
}
