package cfunc

import (
	"strings"

	"github.com/teranos/cgen/accum"
	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/fragment"
	"github.com/teranos/cgen/template"
)

// Struct is a C struct typedef whose member list may begin with a snapshot
// of an ancestor's members, so a pointer to the derived struct can be used
// where the ancestor's is expected.
type Struct struct {
	*template.Template
	members   *fragment.Declarations
	inherited []accum.Pair
	closed    bool
}

// NewStruct creates a struct type named name under parent.
func NewStruct(name string, parent accum.Node) *Struct {
	s := &Struct{Template: template.New(name, parent, accum.WithKind("Struct"))}
	s.Bind(s)
	s.members = fragment.NewDeclarations("members", s)
	return s
}

// Member adds a member keyed by key. Redeclaring a key with identical text
// is accepted; anything else conflicts.
func (s *Struct) Member(key, decl string) error {
	if s.closed {
		return errors.Markf(errors.ErrCommitted, "struct %s is closed", s.Name())
	}
	decl = fragment.Dedent(decl)
	for _, p := range s.inherited {
		if p.Key == key {
			if p.Value == decl {
				return nil
			}
			return errors.Markf(errors.ErrNameConflict, "member %s of %s conflicts with inherited %q", key, s.Name(), p.Value)
		}
	}
	if prev, ok := s.members.Lookup(key); ok && prev != decl {
		return errors.Markf(errors.ErrNameConflict, "member %s of %s already declared as %q", key, s.Name(), prev)
	}
	s.members.Declare(key, decl)
	return nil
}

// Inherit splices a snapshot of from's members ahead of s's own. from must
// already be closed so its layout can no longer change.
func (s *Struct) Inherit(from *Struct) error {
	if !from.closed {
		return errors.Markf(errors.ErrNotClosed, "%s inherits from %s before it is closed", s.Name(), from.Name())
	}
	if s.closed {
		return errors.Markf(errors.ErrCommitted, "struct %s is closed", s.Name())
	}
	fields := from.Fields()
	for _, p := range fields {
		if prev, ok := s.members.Lookup(p.Key); ok && prev != p.Value {
			return errors.Markf(errors.ErrNameConflict, "inherited member %s of %s conflicts with %q", p.Key, s.Name(), prev)
		}
	}
	s.inherited = fields
	return nil
}

// Close freezes the layout.
func (s *Struct) Close() { s.closed = true }

// Closed reports whether the layout is frozen.
func (s *Struct) Closed() bool { return s.closed }

// Fields returns inherited then own members.
func (s *Struct) Fields() []accum.Pair {
	out := append([]accum.Pair(nil), s.inherited...)
	for _, p := range s.members.Pairs() {
		if !hasKey(s.inherited, p.Key) {
			out = append(out, p)
		}
	}
	return out
}

func hasKey(pairs []accum.Pair, key string) bool {
	for _, p := range pairs {
		if p.Key == key {
			return true
		}
	}
	return false
}

// Render emits the typedef.
func (s *Struct) Render() string {
	var lines []string
	for _, p := range s.Fields() {
		lines = append(lines, fragment.Terminate(accum.RenderItem(p.Value)))
	}
	var sb strings.Builder
	sb.WriteString("typedef struct ")
	sb.WriteString(s.Name())
	sb.WriteString(" {\n")
	if len(lines) > 0 {
		sb.WriteString(fragment.Indent(strings.Join(lines, "\n"), fragment.IndentWidth))
		sb.WriteString("\n")
	}
	sb.WriteString("} ")
	sb.WriteString(s.Name())
	sb.WriteString(";")
	return sb.String()
}

// String implements fmt.Stringer.
func (s *Struct) String() string { return s.Render() }
