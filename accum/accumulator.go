package accum

import (
	"fmt"
	"reflect"
	"strings"
)

// AcceptFunc decides whether item joins existing.
type AcceptFunc func(existing []any, item any) bool

// OutputFunc renders a single item.
type OutputFunc func(item any) string

// Accumulator is an ordered sequence of contributed items.
type Accumulator struct {
	base
	items  []any
	accept AcceptFunc
	output OutputFunc
	sep    string
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithAccept sets the acceptance filter.
func WithAccept(f AcceptFunc) Option {
	return func(a *Accumulator) { a.accept = f }
}

// WithOutput sets the per-item output transform.
func WithOutput(f OutputFunc) Option {
	return func(a *Accumulator) { a.output = f }
}

// WithSeparator sets the join separator.
func WithSeparator(sep string) Option {
	return func(a *Accumulator) { a.sep = sep }
}

// WithKind sets the label shown by Inspect.
func WithKind(kind string) Option {
	return func(a *Accumulator) { a.kind = kind }
}

// New creates an accumulator under parent. parent may be nil for roots.
func New(name string, parent Node, opts ...Option) *Accumulator {
	a := &Accumulator{
		base:   base{name: name, kind: "Accumulator", parent: parent},
		accept: Always,
		output: RenderItem,
		sep:    "\n",
	}
	a.self = a
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Always accepts every item.
func Always(existing []any, item any) bool { return true }

// Unique gives set semantics: an item equal to one already present is dropped.
func Unique(existing []any, item any) bool {
	for _, e := range existing {
		if same(e, item) {
			return false
		}
	}
	return true
}

func same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// Add appends items that pass the acceptance filter. nil items are ignored.
func (a *Accumulator) Add(items ...any) {
	a.mutable()
	for _, item := range items {
		if item == nil {
			continue
		}
		if a.accept(a.items, item) {
			a.items = append(a.items, item)
		}
	}
}

// Items returns a copy of the contributed items.
func (a *Accumulator) Items() []any {
	out := make([]any, len(a.items))
	copy(out, a.items)
	return out
}

// Len reports the number of contributed items.
func (a *Accumulator) Len() int { return len(a.items) }

// Parts renders each item, dropping empty results.
func (a *Accumulator) Parts() []string {
	parts := make([]string, 0, len(a.items))
	for _, item := range a.items {
		if s := a.output(item); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// Render joins the rendered items.
func (a *Accumulator) Render() string {
	return strings.Join(a.Parts(), a.sep)
}

// String implements fmt.Stringer.
func (a *Accumulator) String() string { return a.Render() }

// Inspect returns an indentation-nested debug view.
func (a *Accumulator) Inspect() string { return a.InspectDepth(0) }

// InspectDepth implements Inspector.
func (a *Accumulator) InspectDepth(depth int) string {
	var sb strings.Builder
	writeHeader(&sb, depth, a.kind, a.name, len(a.items))
	for _, item := range a.items {
		writeItem(&sb, depth+1, item)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeHeader(sb *strings.Builder, depth int, kind, name string, n int) {
	fmt.Fprintf(sb, "%s%s %q (%d items)\n", strings.Repeat("  ", depth), kind, name, n)
}

func writeItem(sb *strings.Builder, depth int, item any) {
	if in, ok := item.(Inspector); ok {
		sb.WriteString(in.InspectDepth(depth))
		sb.WriteString("\n")
		return
	}
	if n, ok := item.(Node); ok {
		fmt.Fprintf(sb, "%s%T %q\n", strings.Repeat("  ", depth), n, n.Name())
		return
	}
	fmt.Fprintf(sb, "%s%q\n", strings.Repeat("  ", depth), RenderItem(item))
}
