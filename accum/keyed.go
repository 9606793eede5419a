package accum

import (
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Pair is one keyed contribution.
type Pair struct {
	Key   string
	Value any
}

// Keyed is an accumulator of (key, value) pairs. Re-adding a key replaces
// its value at its original position, so independent code can declare the
// same thing twice without duplicating output.
type Keyed struct {
	base
	entries *orderedmap.OrderedMap[string, any]
	output  OutputFunc
	sep     string
}

// KeyedOption configures a Keyed accumulator.
type KeyedOption func(*Keyed)

// WithKeyedOutput sets the per-value output transform.
func WithKeyedOutput(f OutputFunc) KeyedOption {
	return func(k *Keyed) { k.output = f }
}

// WithKeyedSeparator sets the join separator.
func WithKeyedSeparator(sep string) KeyedOption {
	return func(k *Keyed) { k.sep = sep }
}

// WithKeyedKind sets the label shown by Inspect.
func WithKeyedKind(kind string) KeyedOption {
	return func(k *Keyed) { k.kind = kind }
}

// NewKeyed creates a keyed accumulator under parent.
func NewKeyed(name string, parent Node, opts ...KeyedOption) *Keyed {
	k := &Keyed{
		base:    base{name: name, kind: "Keyed", parent: parent},
		entries: orderedmap.New[string, any](),
		output:  RenderItem,
		sep:     "\n",
	}
	k.self = k
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Set upserts one pair.
func (k *Keyed) Set(key string, value any) {
	k.mutable()
	k.entries.Set(key, value)
}

// AddPairs upserts pairs in the given order.
func (k *Keyed) AddPairs(pairs ...Pair) {
	k.mutable()
	for _, p := range pairs {
		k.entries.Set(p.Key, p.Value)
	}
}

// AddMap upserts an unordered mapping. Keys are inserted in sorted order so
// output does not depend on map iteration.
func (k *Keyed) AddMap(m map[string]any) {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]Pair, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, Pair{Key: key, Value: m[key]})
	}
	k.AddPairs(pairs...)
}

// Lookup returns the value stored under key.
func (k *Keyed) Lookup(key string) (any, bool) {
	return k.entries.Get(key)
}

// Has reports whether key is present.
func (k *Keyed) Has(key string) bool {
	_, ok := k.entries.Get(key)
	return ok
}

// Len reports the number of keys.
func (k *Keyed) Len() int { return k.entries.Len() }

// Pairs returns the pairs in first-seen key order.
func (k *Keyed) Pairs() []Pair {
	out := make([]Pair, 0, k.entries.Len())
	for p := k.entries.Oldest(); p != nil; p = p.Next() {
		out = append(out, Pair{Key: p.Key, Value: p.Value})
	}
	return out
}

// Keys returns keys in first-seen order.
func (k *Keyed) Keys() []string {
	out := make([]string, 0, k.entries.Len())
	for p := k.entries.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Parts renders each value, dropping empty results.
func (k *Keyed) Parts() []string {
	parts := make([]string, 0, k.entries.Len())
	for p := k.entries.Oldest(); p != nil; p = p.Next() {
		if s := k.output(p.Value); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// Render joins the rendered values in key order.
func (k *Keyed) Render() string {
	return strings.Join(k.Parts(), k.sep)
}

// String implements fmt.Stringer.
func (k *Keyed) String() string { return k.Render() }

// Inspect returns an indentation-nested debug view.
func (k *Keyed) Inspect() string { return k.InspectDepth(0) }

// InspectDepth implements Inspector.
func (k *Keyed) InspectDepth(depth int) string {
	var sb strings.Builder
	writeHeader(&sb, depth, k.kind, k.name, k.entries.Len())
	for p := k.entries.Oldest(); p != nil; p = p.Next() {
		sb.WriteString(strings.Repeat("  ", depth+1))
		sb.WriteString(p.Key)
		sb.WriteString(" =>\n")
		writeItem(&sb, depth+2, p.Value)
	}
	return strings.TrimRight(sb.String(), "\n")
}
