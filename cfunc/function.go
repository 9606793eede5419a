// Package cfunc builds C function and struct definitions, including the
// entry points a host runtime calls into.
package cfunc

import (
	"strings"

	"github.com/teranos/cgen/accum"
	"github.com/teranos/cgen/fragment"
	"github.com/teranos/cgen/template"
)

// Scope is the linkage of a generated function.
type Scope int

const (
	Extern Scope = iota
	Static
)

// Section names, in rendering order.
const (
	SectionDeclare = "declare"
	SectionInit    = "init"
	SectionScan    = "scan"
	SectionSetup   = "setup"
	SectionBody    = "body"
	SectionReturn  = "return"
)

var sectionOrder = []string{SectionDeclare, SectionInit, SectionScan, SectionSetup, SectionBody, SectionReturn}

// Function is a C function definition with declare, init, setup and body
// sections and a single return slot.
type Function struct {
	*template.Template
	scope      Scope
	returnType string
	args       []string
}

// FuncOption configures a Function.
type FuncOption func(*Function)

// WithScope sets linkage.
func WithScope(s Scope) FuncOption { return func(f *Function) { f.scope = s } }

// WithReturnType sets the C return type.
func WithReturnType(t string) FuncOption { return func(f *Function) { f.returnType = t } }

// WithArgs sets the C parameter list.
func WithArgs(args ...string) FuncOption {
	return func(f *Function) { f.args = append([]string(nil), args...) }
}

// NewFunction creates a function named name under parent.
func NewFunction(name string, parent accum.Node, opts ...FuncOption) *Function {
	f := &Function{
		Template:   template.New(name, parent, accum.WithKind("Function")),
		returnType: "void",
	}
	f.Bind(f)
	f.declareSections()
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Function) declareSections() {
	f.Declare(SectionDeclare, func(p accum.Node) accum.Node { return fragment.NewDeclarations(SectionDeclare, p) })
	f.Declare(SectionInit, func(p accum.Node) accum.Node { return fragment.NewInitOnce(SectionInit, p) })
	f.Declare(SectionScan, func(p accum.Node) accum.Node { return fragment.NewStatements(SectionScan, p) })
	f.Declare(SectionSetup, func(p accum.Node) accum.Node { return fragment.NewDeclarations(SectionSetup, p) })
	f.Declare(SectionBody, func(p accum.Node) accum.Node { return fragment.NewStatements(SectionBody, p) })
	f.Declare(SectionReturn, func(p accum.Node) accum.Node {
		return accum.NewKeyed(SectionReturn, p, accum.WithKeyedOutput(func(item any) string {
			return "return " + accum.RenderItem(item) + ";"
		}))
	})
}

// Scope returns the linkage.
func (f *Function) Scope() Scope { return f.scope }

// ReturnType returns the C return type.
func (f *Function) ReturnType() string { return f.returnType }

// Args returns the C parameter list.
func (f *Function) Args() []string { return append([]string(nil), f.args...) }

// DeclareVar adds a local declaration keyed by variable name.
func (f *Function) DeclareVar(key, decl string) {
	f.Child(SectionDeclare).(*fragment.Declarations).Declare(key, decl)
}

// Init adds statements run only on the first call.
func (f *Function) Init(stmts ...any) {
	f.Child(SectionInit).(*fragment.InitOnce).Add(stmts...)
}

// Setup adds a keyed statement run before the body on every call.
func (f *Function) Setup(key, stmt string) {
	f.Child(SectionSetup).(*fragment.Declarations).Declare(key, stmt)
}

// Body adds body statements.
func (f *Function) Body(stmts ...any) {
	f.BodyBlock().Add(stmts...)
}

// BodyBlock exposes the body for nested blocks.
func (f *Function) BodyBlock() *fragment.Statements {
	return f.Child(SectionBody).(*fragment.Statements)
}

// Returns sets the single return expression, replacing any earlier one.
func (f *Function) Returns(expr string) {
	f.Child(SectionReturn).(*accum.Keyed).Set(SectionReturn, expr)
}

// Signature renders the declarator without a terminator.
func (f *Function) Signature() string {
	var sb strings.Builder
	if f.scope == Static {
		sb.WriteString("static ")
	}
	sb.WriteString(f.returnType)
	sb.WriteString(" ")
	sb.WriteString(f.Name())
	sb.WriteString("(")
	if len(f.args) == 0 {
		sb.WriteString("void")
	} else {
		sb.WriteString(strings.Join(f.args, ", "))
	}
	sb.WriteString(")")
	return sb.String()
}

// Prototype renders the forward declaration.
func (f *Function) Prototype() string { return f.Signature() + ";" }

func (f *Function) sections() []string {
	var out []string
	for _, name := range sectionOrder {
		if s := f.RenderChild(name); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Empty reports whether every section is empty.
func (f *Function) Empty() bool { return len(f.sections()) == 0 }

// Render emits the full definition.
func (f *Function) Render() string {
	sections := f.sections()
	if len(sections) == 0 {
		return f.Signature() + "\n{\n}"
	}
	body := strings.Join(sections, "\n\n")
	return f.Signature() + "\n{\n" + fragment.Indent(body, fragment.IndentWidth) + "\n}"
}

// String implements fmt.Stringer.
func (f *Function) String() string { return f.Render() }
