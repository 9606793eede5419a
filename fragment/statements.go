package fragment

import (
	"github.com/teranos/cgen/accum"
)

// Statements is an ordered list of C statements. Plain string items are
// dedented and terminated on output; nested nodes render themselves.
type Statements struct {
	*accum.Accumulator
}

// NewStatements creates a statement list under parent.
func NewStatements(name string, parent accum.Node) *Statements {
	s := &Statements{Accumulator: accum.New(name, parent,
		accum.WithKind("Statements"),
		accum.WithOutput(statement),
	)}
	s.Bind(s)
	return s
}

// Add appends statements. Multi-line strings are dedented first.
func (s *Statements) Add(items ...any) {
	s.Accumulator.Add(normalize(items)...)
}

func normalize(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		if str, ok := item.(string); ok {
			item = Dedent(str)
		}
		out[i] = item
	}
	return out
}

func statement(item any) string {
	s := accum.RenderItem(item)
	if _, ok := item.(accum.Node); ok {
		return s
	}
	return Terminate(s)
}

// Block is a braced statement list.
type Block struct {
	*Statements
}

// NewBlock creates a block under parent.
func NewBlock(name string, parent accum.Node) *Block {
	b := &Block{Statements: NewStatements(name, parent)}
	b.Bind(b)
	return b
}

// Block opens a nested block inside b and returns it.
func (b *Block) Block(name string) *Block {
	nb := NewBlock(name, b)
	b.Add(nb)
	return nb
}

// Render wraps the statements in braces with one level of indentation.
func (b *Block) Render() string {
	inner := b.Statements.Render()
	if inner == "" {
		return "{\n}"
	}
	return "{\n" + Indent(inner, IndentWidth) + "\n}"
}

// String implements fmt.Stringer.
func (b *Block) String() string { return b.Render() }

// Declarations is a keyed list of C declarations; redeclaring a key replaces
// the earlier declaration in place.
type Declarations struct {
	*accum.Keyed
}

// NewDeclarations creates a declaration list under parent.
func NewDeclarations(name string, parent accum.Node) *Declarations {
	d := &Declarations{Keyed: accum.NewKeyed(name, parent,
		accum.WithKeyedKind("Declarations"),
		accum.WithKeyedOutput(statement),
	)}
	d.Bind(d)
	return d
}

// Declare upserts one declaration.
func (d *Declarations) Declare(key string, decl any) {
	if s, ok := decl.(string); ok {
		decl = Dedent(s)
	}
	d.Set(key, decl)
}

// DeclareMap upserts declarations in sorted key order.
func (d *Declarations) DeclareMap(m map[string]string) {
	vals := make(map[string]any, len(m))
	for k, v := range m {
		vals[k] = Dedent(v)
	}
	d.AddMap(vals)
}
