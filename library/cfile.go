package library

import (
	"strings"

	"github.com/teranos/cgen/accum"
	"github.com/teranos/cgen/cfunc"
	"github.com/teranos/cgen/fragment"
	"github.com/teranos/cgen/template"
)

// Definition is a function a file defines.
type Definition interface {
	accum.Node
	Prototype() string
	Scope() cfunc.Scope
	Empty() bool
}

// File sections. Header sections come first.
const (
	secPreamble  = "preamble"
	secIncludes  = "includes"
	secTypes     = "types"
	secExterns   = "externs"
	secStatics   = "statics"
	secGlobals   = "globals"
	secFunctions = "functions"
)

// CFile is a generated header/source pair.
type CFile struct {
	*template.Template
	lib  *Library
	main bool
}

func newCFile(name string, lib *Library, main bool) *CFile {
	f := &CFile{Template: template.New(name, lib, accum.WithKind("CFile")), lib: lib, main: main}
	f.Bind(f)
	f.Declare(secPreamble, func(p accum.Node) accum.Node { return fragment.NewComment(secPreamble, p) })
	f.Declare(secIncludes, func(p accum.Node) accum.Node { return fragment.NewIncludes(secIncludes, p) })
	f.Declare(secTypes, func(p accum.Node) accum.Node {
		return accum.NewKeyed(secTypes, p, accum.WithKeyedSeparator("\n\n"))
	})
	f.Declare(secExterns, func(p accum.Node) accum.Node { return fragment.NewDeclarations(secExterns, p) })
	f.Declare(secStatics, func(p accum.Node) accum.Node { return fragment.NewDeclarations(secStatics, p) })
	f.Declare(secGlobals, func(p accum.Node) accum.Node { return fragment.NewDeclarations(secGlobals, p) })
	f.Declare(secFunctions, func(p accum.Node) accum.Node {
		return accum.NewKeyed(secFunctions, p, accum.WithKeyedSeparator("\n\n"))
	})
	return f
}

// HeaderName implements fragment.HeaderRef.
func (f *CFile) HeaderName() string { return f.Name() + ".h" }

// SourceName is the source file name.
func (f *CFile) SourceName() string { return f.Name() + ".c" }

// Library returns the owning library.
func (f *CFile) Library() *Library { return f.lib }

// IsMain reports whether f is the primary file.
func (f *CFile) IsMain() bool { return f.main }

// Include adds #include lines to the file's header.
func (f *CFile) Include(items ...any) {
	f.Child(secIncludes).(*fragment.Includes).Include(items...)
}

// Comment adds preamble comment text to both the header and the source.
func (f *CFile) Comment(text ...any) {
	f.Child(secPreamble).(*fragment.Comment).Add(text...)
}

// DeclareType adds a type definition to the header, keyed by type name.
func (f *CFile) DeclareType(key string, t any) {
	f.Child(secTypes).(*accum.Keyed).Set(key, t)
}

// DeclareExtern adds a header declaration.
func (f *CFile) DeclareExtern(key, decl string) {
	f.Child(secExterns).(*fragment.Declarations).Declare(key, decl)
}

// DeclareStatic adds a file-scope static declaration to the source.
func (f *CFile) DeclareStatic(key, decl string) {
	f.Child(secStatics).(*fragment.Declarations).Declare(key, decl)
}

// DefineGlobal adds a global variable definition to the source.
func (f *CFile) DefineGlobal(key, decl string) {
	f.Child(secGlobals).(*fragment.Declarations).Declare(key, decl)
}

// Function returns the function named name in f, creating it on first use.
func (f *CFile) Function(name string, opts ...cfunc.FuncOption) *cfunc.Function {
	fns := f.Child(secFunctions).(*accum.Keyed)
	if v, ok := fns.Lookup(name); ok {
		switch fn := v.(type) {
		case *cfunc.Function:
			return fn
		case *cfunc.HostFunction:
			return fn.Function
		}
	}
	fn := cfunc.NewFunction(name, f, opts...)
	fns.Set(name, fn)
	return fn
}

// AddFunction places a definition in f.
func (f *CFile) AddFunction(d Definition) {
	f.Child(secFunctions).(*accum.Keyed).Set(d.Name(), d)
}

// DefineMethod returns the host function hostName of owner, defining it in
// f when it is new to the library.
func (f *CFile) DefineMethod(kind cfunc.Kind, owner, hostName string) *cfunc.HostFunction {
	fn := cfunc.DefineHostFunction(f, kind, owner, hostName)
	if fn.Parent() == accum.Node(f) {
		f.AddFunction(fn)
	}
	return fn
}

// Definitions returns the functions defined in f in definition order.
func (f *CFile) Definitions() []Definition {
	c, ok := f.Existing(secFunctions)
	if !ok {
		return nil
	}
	var out []Definition
	for _, p := range c.(*accum.Keyed).Pairs() {
		if d, ok := p.Value.(Definition); ok {
			out = append(out, d)
		}
	}
	return out
}

func (f *CFile) prototypes(scope cfunc.Scope) string {
	var lines []string
	for _, d := range f.Definitions() {
		if d.Scope() == scope {
			lines = append(lines, d.Prototype())
		}
	}
	return strings.Join(lines, "\n")
}

func (f *CFile) guard() string {
	return "CGEN_" + strings.ToUpper(f.lib.Name()+"_"+f.Name()) + "_H"
}

// RenderHeader emits the header text.
func (f *CFile) RenderHeader() string {
	includes := f.RenderChild(secIncludes)
	if f.main {
		var subs []string
		for _, sub := range f.lib.files[1:] {
			subs = append(subs, "#include "+fragment.IncludeName(sub))
		}
		includes = joinNonEmpty("\n", includes, strings.Join(subs, "\n"))
	}
	body := joinNonEmpty("\n\n",
		f.RenderChild(secPreamble),
		"#ifndef "+f.guard()+"\n#define "+f.guard(),
		includes,
		f.RenderChild(secTypes),
		f.RenderChild(secExterns),
		f.prototypes(cfunc.Extern),
		"#endif",
	)
	return body + "\n"
}

// RenderSource emits the source text.
func (f *CFile) RenderSource() string {
	body := joinNonEmpty("\n\n",
		f.RenderChild(secPreamble),
		"#include "+fragment.IncludeName(f.lib.main),
		joinNonEmpty("\n", f.RenderChild(secStatics), f.prototypes(cfunc.Static)),
		f.RenderChild(secGlobals),
		f.RenderChild(secFunctions),
	)
	return body + "\n"
}

// Render emits header and source, separated by a form feed, for debugging.
func (f *CFile) Render() string {
	return f.RenderHeader() + "\f\n" + f.RenderSource()
}

// Empty reports whether f defines nothing worth building.
func (f *CFile) Empty() bool {
	if f.RenderChild(secTypes) != "" || f.RenderChild(secGlobals) != "" || f.RenderChild(secStatics) != "" {
		return false
	}
	for _, d := range f.Definitions() {
		if !d.Empty() {
			return false
		}
	}
	return true
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
