package cfunc

import (
	"fmt"
	"strings"

	"github.com/teranos/cgen/accum"
	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/fragment"
	"github.com/teranos/cgen/host"
	"github.com/teranos/cgen/template"
)

// Kind selects how a host function is registered.
type Kind int

const (
	Method Kind = iota
	SingletonMethod
	ModuleFunction
	GlobalFunction
)

func (k Kind) String() string {
	switch k {
	case Method:
		return "method"
	case SingletonMethod:
		return "singleton_method"
	case ModuleFunction:
		return "module_function"
	case GlobalFunction:
		return "global_function"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) defineCall() string { return "rb_define_" + k.String() }

// Binding is the argument convention of a host function.
type Binding int

const (
	// Fixed passes self and a fixed list of named arguments.
	Fixed Binding = iota
	// Aggregate passes argc, argv and self.
	Aggregate
	// Scanned is Aggregate with generated argument parsing.
	Scanned
)

// HostFunction is a C function callable from the host runtime.
type HostFunction struct {
	*Function
	kind     Kind
	hostName string
	owner    string
	ownerVar string
	binding  Binding
	params   []string
	scan     *ScanSpec

	// Impl is the in-process twin installed by a host loader.
	Impl host.Func
}

// CName computes the generated C name of a host function.
func CName(kind Kind, owner, hostName string) string {
	if kind == GlobalFunction {
		return Mangle(hostName) + "_global_function"
	}
	return Mangle(hostName) + "_" + ClassVar(owner) + "_" + kind.String()
}

// DefineHostFunction returns the host function named hostName on owner,
// creating and registering it on first use. Defining the same function
// twice yields the first definition.
func DefineHostFunction(parent accum.Node, kind Kind, owner, hostName string) *HostFunction {
	cname := CName(kind, owner, hostName)
	reg, hasReg := template.Lookup[Registrar](parent)
	if hasReg {
		if existing, ok := reg.Registered(cname); ok {
			return existing
		}
	}

	fn := &HostFunction{
		Function: NewFunction(cname, parent, WithReturnType("VALUE")),
		kind:     kind,
		hostName: hostName,
		owner:    owner,
	}
	fn.Bind(fn)
	if kind != GlobalFunction {
		fn.ownerVar = ClassVar(owner)
		if ct, ok := template.Lookup[ClassTable](parent); ok {
			fn.ownerVar = ct.DeclareClass(owner)
		}
	}
	fn.args = []string{"VALUE self"}
	if hasReg {
		reg.Register(fn)
	}
	return fn
}

// Kind returns the registration kind.
func (h *HostFunction) Kind() Kind { return h.kind }

// HostName returns the name the host runtime sees.
func (h *HostFunction) HostName() string { return h.hostName }

// Owner returns the host class name, empty for globals.
func (h *HostFunction) Owner() string { return h.owner }

// Binding returns the argument convention.
func (h *HostFunction) Binding() Binding { return h.binding }

// ScanSpec returns the scan specification of a Scanned function.
func (h *HostFunction) ScanSpec() (ScanSpec, bool) {
	if h.scan == nil {
		return ScanSpec{}, false
	}
	return *h.scan, true
}

// Params switches to the Fixed convention with the given argument names.
func (h *HostFunction) Params(names ...string) error {
	for _, n := range names {
		if !IsIdentifier(n) {
			return errors.Markf(errors.ErrInvalidName, "argument name %q is not a C identifier", n)
		}
	}
	h.binding = Fixed
	h.params = append([]string(nil), names...)
	h.args = []string{"VALUE self"}
	for _, n := range names {
		h.args = append(h.args, "VALUE "+n)
	}
	return nil
}

// Aggregate switches to the argc/argv convention.
func (h *HostFunction) Aggregate() {
	h.binding = Aggregate
	h.params = nil
	h.args = []string{"int argc", "VALUE *argv", "VALUE self"}
}

// Arity is the registered arity: the argument count for Fixed, -1 otherwise.
func (h *HostFunction) Arity() int {
	if h.binding == Fixed {
		return len(h.params)
	}
	return -1
}

// Registration renders the statement that binds the function at load time.
func (h *HostFunction) Registration() string {
	if h.kind == GlobalFunction {
		return fmt.Sprintf("%s(%s, %s, %d);", h.kind.defineCall(), CString(h.hostName), h.Name(), h.Arity())
	}
	return fmt.Sprintf("%s(%s, %s, %s, %d);", h.kind.defineCall(), h.ownerVar, CString(h.hostName), h.Name(), h.Arity())
}

// Scan switches to the Scanned convention and emits the parsing code:
// local declarations, the scan call, type assertions, then defaults.
func (h *HostFunction) Scan(spec ScanSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	h.Aggregate()
	h.binding = Scanned
	h.scan = &spec

	for _, n := range spec.Names() {
		h.DeclareVar(n, "VALUE "+n)
	}

	refs := make([]string, 0, len(spec.Names()))
	for _, n := range spec.Names() {
		refs = append(refs, "&"+n)
	}
	call := fmt.Sprintf("rb_scan_args(argc, argv, %s, %s)", CString(spec.Format()), strings.Join(refs, ", "))
	scan := h.Child(SectionScan).(*fragment.Statements)
	scan.Add(call)

	for _, n := range spec.Positional() {
		if t, ok := spec.Types[n]; ok {
			scan.Add(h.typeCheck(n, t))
		}
	}
	for i, n := range spec.Optional {
		if d, ok := spec.Defaults[n]; ok && d.C != "" {
			scan.Add(fmt.Sprintf("if (argc <= %d) %s = %s", len(spec.Required)+i, n, d.C))
		}
	}
	return nil
}

func (h *HostFunction) typeCheck(arg, typeName string) string {
	classVar, errVar := ClassVar(typeName), ClassVar("TypeError")
	if ct, ok := template.Lookup[ClassTable](h); ok {
		classVar = ct.DeclareClass(typeName)
		errVar = ct.DeclareClass("TypeError")
	}
	idClass, idToS := SymbolVar("class"), SymbolVar("to_s")
	if st, ok := template.Lookup[SymbolTable](h); ok {
		idClass = st.DeclareSymbol("class")
		idToS = st.DeclareSymbol("to_s")
	}
	msg := CString(FormatLiteral(h.hostName) + ": argument " + arg + " declared " + typeName + " but passed %s.")
	return fmt.Sprintf(`if (!NIL_P(%[1]s) &&
    rb_obj_is_kind_of(%[1]s, %[2]s) != Qtrue)
  rb_raise(%[3]s,
           %[4]s,
           STR2CSTR(rb_funcall(
             rb_funcall(%[1]s, %[5]s, 0),
             %[6]s, 0)));`, arg, classVar, errVar, msg, idClass, idToS)
}

// Call runs the in-process twin with host calling conventions. For Scanned
// functions the arguments are bound and checked first and Impl receives the
// bound values in declaration order, with the rest collected into an array.
func (h *HostFunction) Call(rt *host.Runtime, self host.Value, args []host.Value) (host.Value, error) {
	if h.Impl == nil {
		return nil, errors.Markf(errors.ErrNoMethod, "%s has no in-process implementation", h.hostName)
	}
	switch h.binding {
	case Fixed:
		if len(args) != len(h.params) {
			return nil, errors.Markf(errors.ErrArgumentCount, "%s: wrong number of arguments (%d for %d)", h.hostName, len(args), len(h.params))
		}
	case Scanned:
		bound, err := h.scan.Bind(rt, h.hostName, args)
		if err != nil {
			return nil, err
		}
		args = bound.Values(*h.scan)
	}
	return h.Impl(rt, self, args)
}
