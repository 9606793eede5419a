// Package accum holds the ordered fragment containers every generated
// document is built from.
//
// An Accumulator is a named, ordered list of contributed items. Items are
// plain strings or other nodes; rendering maps each item through an output
// transform and joins the results. Rendering never mutates, so rendering
// twice without an intervening Add yields identical text. Insertion order is
// output order, which keeps generated files stable between runs.
package accum

import (
	"fmt"

	"github.com/teranos/cgen/errors"
)

// Node is anything that can sit in a template tree.
type Node interface {
	Name() string
	Parent() Node
	Render() string
}

// Freezer is implemented by tree roots that stop accepting contributions
// once committed.
type Freezer interface {
	Frozen() bool
}

// Inspector is implemented by nodes with a hierarchy-aware debug view.
type Inspector interface {
	InspectDepth(depth int) string
}

// base carries identity shared by every node kind.
type base struct {
	name   string
	kind   string
	parent Node
	self   Node
}

func (b *base) Name() string { return b.name }

func (b *base) Parent() Node { return b.parent }

// Kind is the label used by Inspect.
func (b *base) Kind() string { return b.kind }

// Self returns the outermost value embedding this node.
func (b *base) Self() Node { return b.self }

// Bind records the outermost value embedding this node. Types that embed an
// accumulator call Bind right after construction so parent walks and
// capability lookups see the embedding type rather than the inner one.
func (b *base) Bind(outer Node) { b.self = outer }

// SetParent moves the node under p. It refuses to create a cycle.
func (b *base) SetParent(p Node) error {
	for n := p; n != nil; n = n.Parent() {
		if n == b.self {
			return errors.Markf(errors.ErrCycle, "%s cannot be placed under its own descendant %s", b.name, p.Name())
		}
	}
	b.parent = p
	return nil
}

// mutable panics when the tree this node belongs to has been frozen.
func (b *base) mutable() {
	seen := 0
	for n := b.self; n != nil; n = n.Parent() {
		if f, ok := n.(Freezer); ok && f.Frozen() {
			panic(errors.WithAssertionFailure(errors.Wrapf(errors.ErrFrozen, "add to %s after commit", b.name)))
		}
		if seen++; seen > maxDepth {
			panic(errors.AssertionFailedf("parent chain of %s does not terminate", b.name))
		}
	}
}

// maxDepth bounds parent walks; real trees are a handful of levels deep.
const maxDepth = 1 << 10

// RenderItem renders one contributed item.
func RenderItem(item any) string {
	switch v := item.(type) {
	case nil:
		return ""
	case string:
		return v
	case Node:
		return v.Render()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
