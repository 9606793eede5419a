// Package shadow generates native per-instance storage for host classes.
//
// A shadow class gets a C struct holding its declared attributes, with the
// struct of its nearest shadow ancestor spliced in front so instances of a
// subclass can be handled by ancestor code. For every class the package
// generates allocation, construction, collector marking, release,
// serialization and accessor functions, and binds in-process twins of them
// into the host runtime once the library is committed.
//
// Attribute kinds are plugins: each recognizes a family of declarations and
// contributes the C fragments and runtime behavior for that family.
package shadow

import (
	"fmt"
	"strings"

	"github.com/teranos/cgen/host"
)

// Access is the exposure of an attribute to the host.
type Access int

const (
	Reader Access = 1 << iota
	Writer
	Accessor = Reader | Writer
)

func (a Access) String() string {
	switch a {
	case Reader:
		return "reader"
	case Writer:
		return "writer"
	case Accessor:
		return "accessor"
	}
	return fmt.Sprintf("Access(%d)", int(a))
}

// CanRead reports whether a reader is generated.
func (a Access) CanRead() bool { return a&Reader != 0 }

// CanWrite reports whether a writer is generated.
func (a Access) CanWrite() bool { return a&Writer != 0 }

// ParseAccess parses reader, writer or accessor.
func ParseAccess(s string) (Access, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reader":
		return Reader, true
	case "writer":
		return Writer, true
	case "accessor", "":
		return Accessor, true
	}
	return 0, false
}

// Ref declares a reference to another shadow class, stored as a direct
// pointer to its record.
type Ref struct {
	Class *host.Class
}

// Member is one C struct member.
type Member struct {
	Key  string
	Decl string
}

// Attribute is a declared shadow attribute.
//
// The code methods return C statements written against a fixed set of
// names: shadow points at the instance's struct, result receives reader
// output, arg holds writer input, and tmp and from_array are available
// while loading.
type Attribute interface {
	Name() string
	Kind() string
	VarName() string
	Owner() *Class
	Access() Access
	Persistent() bool
	Declaration() string
	Offset() int

	Members() []Member
	Requires() []string
	TypeCheck() string
	InitCode() string
	ReaderCode() string
	WriterCode() string
	MarkCode() string
	FreeCode() string
	DumpCode() string
	LoadCode() string

	Init(rec *Record)
	Get(rec *Record) host.Value
	Set(rt *host.Runtime, rec *Record, v host.Value) error
	Mark(rec *Record, visit func(host.Value))
	Free(rec *Record)
	Dump(rec *Record) host.Value
	Load(rt *host.Runtime, rec *Record, v host.Value) error

	setOffset(int)
}

// Spec is what a plugin builds an attribute from.
type Spec struct {
	Owner      *Class
	Name       string
	Decl       any
	Access     Access
	Persistent bool
	Runtime    *host.Runtime
	LongWidth  int
}

// DeclText renders a declaration for messages and identity checks.
func DeclText(decl any) string {
	switch d := decl.(type) {
	case string:
		return strings.Join(strings.Fields(d), " ")
	case *host.Class:
		return d.Name()
	case Ref:
		if d.Class == nil {
			return "[nil]"
		}
		return "[" + d.Class.Name() + "]"
	}
	return fmt.Sprintf("%T(%v)", decl, decl)
}

// Base carries the bookkeeping every attribute shares. Plugins embed it
// and override the code and behavior methods they need.
type Base struct {
	kind       string
	name       string
	varName    string
	owner      *Class
	access     Access
	persistent bool
	decl       string
	offset     int
}

// NewBase fills the shared fields from spec.
func NewBase(spec Spec, kind, varName string) Base {
	return Base{
		kind:       kind,
		name:       spec.Name,
		varName:    varName,
		owner:      spec.Owner,
		access:     spec.Access,
		persistent: spec.Persistent,
		decl:       fmt.Sprintf("%s %s %s persistent=%t", spec.Access, spec.Name, DeclText(spec.Decl), spec.Persistent),
		offset:     -1,
	}
}

func (b *Base) Name() string        { return b.name }
func (b *Base) Kind() string        { return b.kind }
func (b *Base) VarName() string     { return b.varName }
func (b *Base) Owner() *Class       { return b.owner }
func (b *Base) Access() Access      { return b.access }
func (b *Base) Persistent() bool    { return b.persistent }
func (b *Base) Declaration() string { return b.decl }
func (b *Base) Offset() int         { return b.offset }
func (b *Base) setOffset(i int)     { b.offset = i }

// Field is the C lvalue of the primary member.
func (b *Base) Field() string { return "shadow->" + b.varName }

func (b *Base) Requires() []string                        { return nil }
func (b *Base) TypeCheck() string                         { return "" }
func (b *Base) MarkCode() string                          { return "" }
func (b *Base) FreeCode() string                          { return "" }
func (b *Base) Mark(rec *Record, visit func(host.Value)) {}
func (b *Base) Free(rec *Record)                          {}

// slot reads the attribute's storage.
func (b *Base) slot(rec *Record) any { return rec.slots[b.offset] }

// store writes the attribute's storage.
func (b *Base) store(rec *Record, v any) { rec.slots[b.offset] = v }

// Record is the in-process shadow struct of one instance.
type Record struct {
	Class    *Class
	Self     *host.Object
	slots    []any
	released bool
}

func newRecord(c *Class, self *host.Object) *Record {
	return &Record{Class: c, Self: self, slots: make([]any, len(c.layout))}
}

// Released reports whether the record was freed.
func (r *Record) Released() bool { return r.released }
