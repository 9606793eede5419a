package cfunc

// Capabilities that generated functions look up through their parent
// chain. A library provides all of them; tests may provide a subset.

// SymbolTable interns host symbols and returns the C variable of each.
type SymbolTable interface {
	DeclareSymbol(name string) string
}

// ClassTable makes a host class reachable from C and returns its variable.
type ClassTable interface {
	DeclareClass(name string) string
}

// Registrar keeps the run-once registration table of host functions.
type Registrar interface {
	Registered(cname string) (*HostFunction, bool)
	Register(fn *HostFunction)
}

// IncludeSink accepts #include items.
type IncludeSink interface {
	Include(items ...any)
}
