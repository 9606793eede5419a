// Package template composes accumulators into trees of named sections.
//
// A Template is itself an accumulator that also owns named children created
// lazily from declared factories. Code that needs a shared service (a symbol
// table, an include list, a registration table) finds it by walking up the
// parent chain with Lookup rather than holding a direct reference, so
// contributions made deep in a function body land in the right file or
// library without the caller knowing where that is.
package template

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/teranos/cgen/accum"
	"github.com/teranos/cgen/errors"
)

// Factory builds a named child under parent.
type Factory func(parent accum.Node) accum.Node

// Template is an accumulator with named, lazily created children.
type Template struct {
	*accum.Accumulator
	factories map[string]Factory
	order     []string
	children  *orderedmap.OrderedMap[string, accum.Node]
}

// New creates a template under parent.
func New(name string, parent accum.Node, opts ...accum.Option) *Template {
	opts = append([]accum.Option{accum.WithKind("Template")}, opts...)
	t := &Template{
		Accumulator: accum.New(name, parent, opts...),
		factories:   make(map[string]Factory),
		children:    orderedmap.New[string, accum.Node](),
	}
	t.Bind(t)
	return t
}

// Declare registers a factory for the named child. Declaring a name twice
// replaces the factory as long as the child has not been created yet.
func (t *Template) Declare(name string, f Factory) {
	if _, ok := t.factories[name]; !ok {
		t.order = append(t.order, name)
	}
	t.factories[name] = f
}

// Declared reports the child names in declaration order.
func (t *Template) Declared() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Child returns the named child, creating it on first access. Asking for an
// undeclared child is a programming error.
func (t *Template) Child(name string) accum.Node {
	if c, ok := t.children.Get(name); ok {
		return c
	}
	f, ok := t.factories[name]
	if !ok {
		panic(errors.AssertionFailedf("template %s has no child %q", t.Name(), name))
	}
	c := f(t.Self())
	t.children.Set(name, c)
	return c
}

// Existing returns the named child only if it has been created. Rendering
// goes through Existing so it never creates children.
func (t *Template) Existing(name string) (accum.Node, bool) {
	return t.children.Get(name)
}

// Children returns created children in creation order.
func (t *Template) Children() []accum.Node {
	out := make([]accum.Node, 0, t.children.Len())
	for p := t.children.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// Adder is a node that takes contributions.
type Adder interface {
	Add(items ...any)
}

// AddTo contributes items to the named child.
func (t *Template) AddTo(name string, items ...any) {
	c, ok := t.Child(name).(Adder)
	if !ok {
		panic(errors.AssertionFailedf("child %q of %s does not accept items", name, t.Name()))
	}
	c.Add(items...)
}

// RenderChild renders the named child if it exists.
func (t *Template) RenderChild(name string) string {
	if c, ok := t.Existing(name); ok {
		return c.Render()
	}
	return ""
}

// Reparent moves the template under p, refusing cycles.
func (t *Template) Reparent(p accum.Node) error {
	return t.SetParent(p)
}

// InspectDepth implements accum.Inspector, listing children after items.
func (t *Template) InspectDepth(depth int) string {
	var sb strings.Builder
	sb.WriteString(t.Accumulator.InspectDepth(depth))
	for p := t.children.Oldest(); p != nil; p = p.Next() {
		sb.WriteString("\n")
		if in, ok := p.Value.(accum.Inspector); ok {
			sb.WriteString(in.InspectDepth(depth + 1))
			continue
		}
		sb.WriteString(strings.Repeat("  ", depth+1))
		sb.WriteString(p.Key)
	}
	return sb.String()
}

// Inspect returns an indentation-nested debug view of items and children.
func (t *Template) Inspect() string { return t.InspectDepth(0) }
