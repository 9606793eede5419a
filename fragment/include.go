package fragment

import (
	"strings"

	"github.com/teranos/cgen/accum"
)

// HeaderRef is a generated file that can be included by name.
type HeaderRef interface {
	HeaderName() string
}

// Includes is a duplicate-free list of #include lines.
type Includes struct {
	*accum.Accumulator
}

// NewIncludes creates an include list under parent.
func NewIncludes(name string, parent accum.Node) *Includes {
	i := &Includes{Accumulator: accum.New(name, parent,
		accum.WithKind("Includes"),
		accum.WithAccept(accum.Unique),
		accum.WithOutput(func(item any) string { return "#include " + accum.RenderItem(item) }),
	)}
	i.Bind(i)
	return i
}

// Include adds headers. Bracketed or quoted names are kept as written, bare
// names become system includes and file references become local includes.
func (i *Includes) Include(items ...any) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, IncludeName(item))
	}
	i.Add(out...)
}

// IncludeName returns the bracketed form of an include item.
func IncludeName(item any) string {
	switch v := item.(type) {
	case HeaderRef:
		return `"` + v.HeaderName() + `"`
	case string:
		v = strings.TrimSpace(v)
		switch {
		case strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">"):
			return v
		case strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) && len(v) > 1:
			return v
		default:
			return "<" + v + ">"
		}
	default:
		return "<" + accum.RenderItem(v) + ">"
	}
}
