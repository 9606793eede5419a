package shadow

import (
	"strings"

	"github.com/teranos/cgen/errors"
)

// Plugin recognizes one family of declarations.
type Plugin interface {
	Kind() string
	Match(decl any) bool
	New(spec Spec) (Attribute, error)
}

// DefaultLongWidth is the width in bits assumed for C long.
const DefaultLongWidth = 64

// Registry is the ordered list of attribute plugins. Populate it before
// declaring attributes; it is read-only afterwards.
type Registry struct {
	plugins   []Plugin
	longWidth int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLongWidth sets the width of C long, 32 or 64.
func WithLongWidth(bits int) RegistryOption {
	return func(r *Registry) { r.longWidth = bits }
}

// NewRegistry creates a registry holding the built-in plugins.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{longWidth: DefaultLongWidth}
	for _, opt := range opts {
		opt(r)
	}
	r.Register(valuePlugin{}, linkedPlugin{}, scalarPlugin{}, cstringPlugin{}, arrayPlugin{})
	return r
}

// Register appends plugins.
func (r *Registry) Register(p ...Plugin) { r.plugins = append(r.plugins, p...) }

// Plugins returns the registered plugins in order.
func (r *Registry) Plugins() []Plugin { return append([]Plugin(nil), r.plugins...) }

// LongWidth returns the configured width of C long.
func (r *Registry) LongWidth() int { return r.longWidth }

// Resolve builds the attribute for spec. Exactly one plugin must match.
func (r *Registry) Resolve(spec Spec) (Attribute, error) {
	var matched []Plugin
	for _, p := range r.plugins {
		if p.Match(spec.Decl) {
			matched = append(matched, p)
		}
	}
	switch len(matched) {
	case 0:
		return nil, errors.Markf(errors.ErrUnrecognizedDeclaration,
			"unrecognized declaration %q for attribute %s", DeclText(spec.Decl), spec.Name)
	case 1:
		if spec.LongWidth == 0 {
			spec.LongWidth = r.longWidth
		}
		return matched[0].New(spec)
	}
	kinds := make([]string, len(matched))
	for i, p := range matched {
		kinds[i] = p.Kind()
	}
	return nil, errors.Markf(errors.ErrAmbiguousDeclaration,
		"declaration %q for attribute %s matches %s", DeclText(spec.Decl), spec.Name, strings.Join(kinds, ", "))
}
