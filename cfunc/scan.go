package cfunc

import (
	"strconv"

	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/host"
)

// Default is the value an omitted optional argument takes. C is the C
// expression used by generated code; Value computes the same value for the
// in-process twin and may be nil, meaning nil.
type Default struct {
	C     string
	Value func(bound Args) host.Value
}

// ScanSpec describes how an argc/argv call is bound to named arguments.
type ScanSpec struct {
	Required []string
	Optional []string
	Rest     string
	Block    string
	// Types maps an argument name to the host class it must be a kind of.
	Types map[string]string
	// Defaults maps an optional argument name to its default.
	Defaults map[string]Default
}

// Args holds bound arguments by name.
type Args map[string]host.Value

// Values flattens bound arguments in declaration order.
func (a Args) Values(spec ScanSpec) []host.Value {
	names := spec.Names()
	out := make([]host.Value, 0, len(names))
	for _, n := range names {
		out = append(out, a[n])
	}
	return out
}

// Positional returns the required then optional names.
func (s ScanSpec) Positional() []string {
	out := make([]string, 0, len(s.Required)+len(s.Optional))
	out = append(out, s.Required...)
	return append(out, s.Optional...)
}

// Names returns every bound name in scan order.
func (s ScanSpec) Names() []string {
	out := s.Positional()
	if s.Rest != "" {
		out = append(out, s.Rest)
	}
	if s.Block != "" {
		out = append(out, s.Block)
	}
	return out
}

// Format renders the scan descriptor: the required count, the optional
// count when there are optionals, then '*' for a rest argument and '&' for
// a block.
func (s ScanSpec) Format() string {
	f := strconv.Itoa(len(s.Required))
	if len(s.Optional) > 0 {
		f += strconv.Itoa(len(s.Optional))
	}
	if s.Rest != "" {
		f += "*"
	}
	if s.Block != "" {
		f += "&"
	}
	return f
}

// Validate checks names and references.
func (s ScanSpec) Validate() error {
	if len(s.Required) > 9 || len(s.Optional) > 9 {
		return errors.Markf(errors.ErrArgumentCount, "scan descriptor allows at most 9 required and 9 optional arguments")
	}
	seen := make(map[string]bool)
	for _, n := range s.Names() {
		if !IsIdentifier(n) {
			return errors.Markf(errors.ErrInvalidName, "argument name %q is not a C identifier", n)
		}
		if seen[n] {
			return errors.Markf(errors.ErrNameConflict, "argument %s bound twice", n)
		}
		seen[n] = true
	}
	positional := make(map[string]bool)
	for _, n := range s.Positional() {
		positional[n] = true
	}
	for n := range s.Types {
		if !positional[n] {
			return errors.Markf(errors.ErrInvalidName, "type assertion for unknown argument %s", n)
		}
	}
	optional := make(map[string]bool)
	for _, n := range s.Optional {
		optional[n] = true
	}
	for n := range s.Defaults {
		if !optional[n] {
			return errors.Markf(errors.ErrInvalidName, "default for non-optional argument %s", n)
		}
	}
	return nil
}

// Bind is the in-process twin of the generated scan code: it checks the
// argument count, binds names, asserts types, then fills defaults for
// omitted optionals left to right.
func (s ScanSpec) Bind(rt *host.Runtime, method string, args []host.Value) (Args, error) {
	n := len(args)
	req, opt := len(s.Required), len(s.Optional)
	if n < req || (s.Rest == "" && n > req+opt) {
		want := strconv.Itoa(req)
		switch {
		case s.Rest != "":
			want += "+"
		case opt > 0:
			want += ".." + strconv.Itoa(req+opt)
		}
		return nil, errors.Markf(errors.ErrArgumentCount, "%s: wrong number of arguments (%d for %s)", method, n, want)
	}

	bound := make(Args, len(s.Names()))
	for i, name := range s.Positional() {
		if i < n {
			bound[name] = host.Normalize(args[i])
		} else {
			bound[name] = nil
		}
	}
	if s.Rest != "" {
		rest := host.NewArray()
		for i := req + opt; i < n; i++ {
			rest.Push(host.Normalize(args[i]))
		}
		bound[s.Rest] = rest
	}
	if s.Block != "" {
		bound[s.Block] = nil
	}

	for _, name := range s.Positional() {
		typeName, ok := s.Types[name]
		if !ok {
			continue
		}
		v := bound[name]
		if v == nil {
			continue
		}
		cls, ok := rt.Class(typeName)
		if !ok {
			return nil, errors.Markf(errors.ErrTypeMismatch, "%s: argument %s declared unknown class %s", method, name, typeName)
		}
		if !rt.KindOf(v, cls) {
			return nil, errors.Markf(errors.ErrTypeMismatch, "%s: argument %s declared %s but passed %s.",
				method, name, typeName, rt.ClassOf(v).Name())
		}
	}

	for i, name := range s.Optional {
		if req+i < n {
			continue
		}
		if d, ok := s.Defaults[name]; ok && d.Value != nil {
			bound[name] = host.Normalize(d.Value(bound))
		}
	}
	return bound, nil
}
