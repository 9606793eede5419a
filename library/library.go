// Package library assembles generated C files into a buildable extension
// library and commits it: hooks run, files are written only where their
// content changed, the toolchain builds the result and a loader binds it
// into the host runtime.
package library

import (
	"context"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/teranos/cgen/accum"
	"github.com/teranos/cgen/cfunc"
	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/logger"
	"github.com/teranos/cgen/template"
	"github.com/teranos/cgen/toolchain"
)

// MainFile is the name of the primary file pair.
const MainFile = "libmain"

// Hook runs before or after commit.
type Hook func(ctx context.Context, lib *Library) error

// Library is the root of a template tree.
type Library struct {
	*template.Template

	baseDir string
	dir     string
	placed  bool

	main  *CFile
	files []*CFile
	init  *cfunc.Function
	regs  *accum.Keyed

	symbols map[string]string
	classes map[string]string

	before, after []Hook

	prepared  bool
	committed bool
	loaded    bool

	toolchain   toolchain.Toolchain
	loader      Loader
	cflags      []string
	ldflags     []string
	includeDirs []string
	showTimes   bool

	log *zap.SugaredLogger
}

// Option configures a Library.
type Option func(*Library)

// WithBaseDir sets the directory under which the library directory is
// created when no explicit directory is set.
func WithBaseDir(dir string) Option { return func(l *Library) { l.baseDir = dir } }

// WithToolchain sets the build toolchain. Without one, commit writes files
// and skips the build.
func WithToolchain(tc toolchain.Toolchain) Option { return func(l *Library) { l.toolchain = tc } }

// WithLoader sets the loader run after a successful build.
func WithLoader(ld Loader) Option { return func(l *Library) { l.loader = ld } }

// WithFlags sets compiler and linker flags.
func WithFlags(cflags, ldflags []string) Option {
	return func(l *Library) {
		l.cflags = append([]string(nil), cflags...)
		l.ldflags = append([]string(nil), ldflags...)
	}
}

// WithIncludeDirs adds compiler include directories.
func WithIncludeDirs(dirs ...string) Option {
	return func(l *Library) { l.includeDirs = append(l.includeDirs, dirs...) }
}

// WithStepTimes logs each build step's duration at info level instead of
// debug.
func WithStepTimes(show bool) Option { return func(l *Library) { l.showTimes = show } }

// New creates a library named name.
func New(name string, opts ...Option) (*Library, error) {
	if !cfunc.IsIdentifier(name) {
		return nil, errors.Markf(errors.ErrInvalidName, "library name %q is not a C identifier", name)
	}
	l := &Library{
		Template: template.New(name, nil, accum.WithKind("Library")),
		baseDir:  ".",
		symbols:  make(map[string]string),
		classes:  make(map[string]string),
		log:      logger.ChildLogger(logger.ComponentLogger("library"), logger.FieldLibrary, name),
	}
	l.Bind(l)
	for _, opt := range opts {
		opt(l)
	}

	l.main = newCFile(MainFile, l, true)
	l.files = []*CFile{l.main}
	l.main.Include("ruby.h")

	l.init = l.main.Function("Init_" + name)
	l.regs = accum.NewKeyed("registrations", l.init, accum.WithKeyedOutput(func(item any) string {
		return item.(*cfunc.HostFunction).Registration()
	}))
	l.init.Body(l.regs)
	return l, nil
}

// Frozen implements accum.Freezer.
func (l *Library) Frozen() bool { return l.prepared }

// Main returns the primary file.
func (l *Library) Main() *CFile { return l.main }

// InitFunction returns the library initialization function.
func (l *Library) InitFunction() *cfunc.Function { return l.init }

// Files returns every file, primary first.
func (l *Library) Files() []*CFile { return append([]*CFile(nil), l.files...) }

// File finds a file by name.
func (l *Library) File(name string) (*CFile, bool) {
	for _, f := range l.files {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// AddFile adds a header/source pair.
func (l *Library) AddFile(name string) (*CFile, error) {
	if l.prepared {
		return nil, errors.Markf(errors.ErrCommitted, "add file %s to committed library %s", name, l.Name())
	}
	if !cfunc.IsIdentifier(name) {
		return nil, errors.Markf(errors.ErrInvalidName, "file name %q is not a C identifier", name)
	}
	if _, ok := l.File(name); ok {
		return nil, errors.Markf(errors.ErrNameConflict, "file %s already exists in %s", name, l.Name())
	}
	f := newCFile(name, l, false)
	l.files = append(l.files, f)
	return f, nil
}

// SetDir places the library in dir. Placement can be set only once.
func (l *Library) SetDir(dir string) error {
	if l.placed {
		return errors.Markf(errors.ErrAlreadyPlaced, "library %s already placed in %s", l.Name(), l.dir)
	}
	l.dir = dir
	l.placed = true
	return nil
}

// Dir returns the output directory.
func (l *Library) Dir() string {
	if l.placed {
		return l.dir
	}
	return filepath.Join(l.baseDir, l.Name())
}

// Include adds #include lines to the primary header.
func (l *Library) Include(items ...any) { l.main.Include(items...) }

// DeclareSymbol implements cfunc.SymbolTable. The symbol is declared in
// the primary header, defined in the primary source and interned by the
// init function.
func (l *Library) DeclareSymbol(name string) string {
	if v, ok := l.symbols[name]; ok {
		return v
	}
	v := cfunc.SymbolVar(name)
	l.symbols[name] = v
	l.main.DeclareExtern(v, "extern ID "+v)
	l.main.DefineGlobal(v, "ID "+v)
	l.init.Setup("symbol:"+v, v+" = rb_intern("+cfunc.CString(name)+")")
	return v
}

// DeclareClass implements cfunc.ClassTable.
func (l *Library) DeclareClass(name string) string {
	if v, ok := l.classes[name]; ok {
		return v
	}
	v := cfunc.ClassVar(name)
	l.classes[name] = v
	l.main.DeclareExtern(v, "extern VALUE "+v)
	l.main.DefineGlobal(v, "VALUE "+v)
	l.init.Setup("class:"+v, v+" = rb_eval_string("+cfunc.CString(name)+")")
	return v
}

// Symbols returns declared symbol names, sorted.
func (l *Library) Symbols() []string { return sortedKeys(l.symbols) }

// Classes returns declared class names, sorted.
func (l *Library) Classes() []string { return sortedKeys(l.classes) }

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Registered implements cfunc.Registrar.
func (l *Library) Registered(cname string) (*cfunc.HostFunction, bool) {
	v, ok := l.regs.Lookup(cname)
	if !ok {
		return nil, false
	}
	return v.(*cfunc.HostFunction), true
}

// Register implements cfunc.Registrar.
func (l *Library) Register(fn *cfunc.HostFunction) {
	l.regs.Set(fn.Name(), fn)
}

// HostFunctions returns registered host functions in registration order.
func (l *Library) HostFunctions() []*cfunc.HostFunction {
	var out []*cfunc.HostFunction
	for _, p := range l.regs.Pairs() {
		out = append(out, p.Value.(*cfunc.HostFunction))
	}
	return out
}

// DefineMethod defines a host function in the primary file.
func (l *Library) DefineMethod(kind cfunc.Kind, owner, hostName string) *cfunc.HostFunction {
	return l.main.DefineMethod(kind, owner, hostName)
}

// BeforeCommit schedules h to run before files are written. Hooks run in
// the order they were added.
func (l *Library) BeforeCommit(h Hook) { l.before = append(l.before, h) }

// AfterCommit schedules h to run after the library is built and loaded.
func (l *Library) AfterCommit(h Hook) { l.after = append(l.after, h) }

// Committed reports whether Commit has been called.
func (l *Library) Committed() bool { return l.committed }

// Loaded reports whether a loader bound the library.
func (l *Library) Loaded() bool { return l.loaded }

// Empty reports whether no file has content worth building.
func (l *Library) Empty() bool {
	for _, f := range l.files {
		if !f.Empty() {
			return false
		}
	}
	return true
}
