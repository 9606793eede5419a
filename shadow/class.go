package shadow

import (
	"github.com/teranos/cgen/cfunc"
	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/host"
	"github.com/teranos/cgen/library"
	"github.com/teranos/cgen/logger"
)

// reservedVars are struct members every shadow struct carries.
var reservedVars = map[string]bool{"self": true}

// Class is the shadow of one host class.
type Class struct {
	tree   *Tree
	host   *host.Class
	attrs  []Attribute
	file   *library.CFile
	placed bool

	// set when the class is closed at commit
	closed bool
	st     *cfunc.Struct
	layout []Attribute
	markFn string
	freeFn string
}

// Name is the host class name.
func (c *Class) Name() string { return c.host.Name() }

// Host returns the shadowed host class.
func (c *Class) Host() *host.Class { return c.host }

// Tree returns the owning tree.
func (c *Class) Tree() *Tree { return c.tree }

// StructName is the C typedef of the class's record.
func (c *Class) StructName() string { return cfunc.StructName(c.Name()) }

// ClassVar is the C variable holding the host class.
func (c *Class) ClassVar() string { return cfunc.ClassVar(c.Name()) }

// Parent returns the nearest shadowed ancestor, or nil for a root.
func (c *Class) Parent() *Class {
	for h := c.host.Super(); h != nil; h = h.Super() {
		if p, ok := c.tree.classes[h]; ok {
			return p
		}
	}
	return nil
}

// Root returns the topmost shadowed ancestor.
func (c *Class) Root() *Class {
	r := c
	for p := c.Parent(); p != nil; p = p.Parent() {
		r = p
	}
	return r
}

// Ancestors returns shadowed ancestors root first, excluding c.
func (c *Class) Ancestors() []*Class {
	var out []*Class
	for p := c.Parent(); p != nil; p = p.Parent() {
		out = append([]*Class{p}, out...)
	}
	return out
}

// Place puts the class's generated code in file. Placement can be set
// only once.
func (c *Class) Place(file *library.CFile) error {
	if c.placed {
		return errors.Markf(errors.ErrAlreadyPlaced, "class %s already placed in %s", c.Name(), c.file.Name())
	}
	if file.Library() != c.tree.lib {
		return errors.Markf(errors.ErrNameConflict, "file %s belongs to library %s, not %s",
			file.Name(), file.Library().Name(), c.tree.lib.Name())
	}
	c.file = file
	c.placed = true
	return nil
}

// File is where the class's code goes: its own placement, else its
// parent's file, else the primary file.
func (c *Class) File() *library.CFile {
	if c.placed {
		return c.file
	}
	if p := c.Parent(); p != nil {
		return p.File()
	}
	return c.tree.lib.Main()
}

// Own returns attributes declared on c itself, in declaration order.
func (c *Class) Own() []Attribute { return append([]Attribute(nil), c.attrs...) }

// Attributes returns every attribute of c, ancestors' first.
func (c *Class) Attributes() []Attribute {
	var out []Attribute
	for _, a := range c.Ancestors() {
		out = append(out, a.attrs...)
	}
	return append(out, c.attrs...)
}

// AttributeNames returns the names of Attributes.
func (c *Class) AttributeNames() []string {
	attrs := c.Attributes()
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name()
	}
	return names
}

// Attribute finds an attribute of c or its ancestors.
func (c *Class) Attribute(name string) (Attribute, bool) {
	for _, a := range c.Attributes() {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// AttrOption adjusts an attribute declaration.
type AttrOption func(*Spec)

// NonPersistent excludes the attribute from serialization; it is
// re-initialized on load instead.
func NonPersistent() AttrOption { return func(s *Spec) { s.Persistent = false } }

// AttrReader declares an attribute with a reader only.
func (c *Class) AttrReader(name string, decl any, opts ...AttrOption) (Attribute, error) {
	return c.Attr(name, decl, Reader, opts...)
}

// AttrWriter declares an attribute with a writer only.
func (c *Class) AttrWriter(name string, decl any, opts ...AttrOption) (Attribute, error) {
	return c.Attr(name, decl, Writer, opts...)
}

// AttrAccessor declares an attribute with a reader and a writer.
func (c *Class) AttrAccessor(name string, decl any, opts ...AttrOption) (Attribute, error) {
	return c.Attr(name, decl, Accessor, opts...)
}

// Attr declares an attribute. Redeclaring an attribute of c with the same
// declaration returns the existing one; every other reuse of the name
// conflicts.
func (c *Class) Attr(name string, decl any, access Access, opts ...AttrOption) (Attribute, error) {
	if c.tree.frozen() {
		return nil, errors.Markf(errors.ErrCommitted, "declare %s on %s after commit", name, c.Name())
	}
	if !cfunc.IsIdentifier(name) {
		return nil, errors.Markf(errors.ErrInvalidName, "attribute name %q is not an identifier", name)
	}
	spec := Spec{
		Owner:      c,
		Name:       name,
		Decl:       decl,
		Access:     access,
		Persistent: true,
		Runtime:    c.tree.rt,
	}
	for _, opt := range opts {
		opt(&spec)
	}
	a, err := c.tree.registry.Resolve(spec)
	if err != nil {
		return nil, err
	}
	if logger.ShouldLogTrace(logger.Verbosity) {
		c.tree.log.Debugw("resolved declaration",
			logger.FieldAttribute, name,
			logger.FieldKind, a.Kind(),
			"decl", a.Declaration())
	}

	related := c.related()
	for _, other := range related {
		if other.Name() != name {
			continue
		}
		if other.Owner() == c && other.Declaration() == a.Declaration() {
			return other, nil
		}
		return nil, errors.Markf(errors.ErrNameConflict, "attribute %s of %s conflicts with %q declared on %s",
			name, c.Name(), other.Declaration(), other.Owner().Name())
	}
	if err := c.checkMembers(a, related); err != nil {
		return nil, err
	}
	if err := c.checkMethods(a); err != nil {
		return nil, err
	}

	c.attrs = append(c.attrs, a)
	c.tree.log.Debugw("declared attribute",
		logger.FieldClass, c.Name(),
		logger.FieldAttribute, name,
		logger.FieldKind, a.Kind())
	return a, nil
}

// related returns the attributes of c's ancestors, c and its descendants,
// which share struct layouts with c.
func (c *Class) related() []Attribute {
	out := c.Attributes()
	for _, d := range c.tree.order {
		if d != c && d.host.IsA(c.host) {
			out = append(out, d.attrs...)
		}
	}
	return out
}

func (c *Class) checkMembers(a Attribute, related []Attribute) error {
	for _, m := range a.Members() {
		if reservedVars[m.Key] {
			return errors.Markf(errors.ErrNameConflict, "attribute %s of %s uses reserved member %s", a.Name(), c.Name(), m.Key)
		}
		for _, other := range related {
			for _, om := range other.Members() {
				if om.Key == m.Key {
					return errors.Markf(errors.ErrNameConflict, "member %s of attribute %s collides with attribute %s of %s",
						m.Key, a.Name(), other.Name(), other.Owner().Name())
				}
			}
		}
	}
	return nil
}

func (c *Class) checkMethods(a Attribute) error {
	if a.Access().CanRead() && c.host.RespondTo(a.Name()) {
		return errors.Markf(errors.ErrNameConflict, "reader %s collides with existing method of %s", a.Name(), c.Name())
	}
	if a.Access().CanWrite() && c.host.RespondTo(a.Name()+"=") {
		return errors.Markf(errors.ErrNameConflict, "writer %s= collides with existing method of %s", a.Name(), c.Name())
	}
	return nil
}

// close builds the struct and fixes offsets. The parent must be closed.
func (c *Class) close() error {
	st := cfunc.NewStruct(c.StructName(), c.File())
	p := c.Parent()
	if p == nil {
		if err := st.Member("self", "VALUE self"); err != nil {
			return err
		}
	} else {
		if !p.closed {
			return errors.Markf(errors.ErrNotClosed, "%s closed before its parent %s", c.Name(), p.Name())
		}
		if err := st.Inherit(p.st); err != nil {
			return err
		}
		c.layout = append(c.layout, p.layout...)
	}
	for _, a := range c.attrs {
		for _, m := range a.Members() {
			if err := st.Member(m.Key, m.Decl); err != nil {
				return err
			}
		}
		a.setOffset(len(c.layout))
		c.layout = append(c.layout, a)
	}
	st.Close()
	c.st = st
	c.closed = true
	return nil
}

// Struct returns the closed struct, or nil before commit.
func (c *Class) Struct() *cfunc.Struct { return c.st }

// RecordOf returns the shadow record attached to a host instance.
func RecordOf(v host.Value) (*Record, error) {
	obj, ok := v.(*host.Object)
	if !ok {
		return nil, errors.Markf(errors.ErrTypeMismatch, "%T is not a shadowed instance", v)
	}
	rec, ok := obj.Data.(*Record)
	if !ok {
		return nil, errors.Markf(errors.ErrTypeMismatch, "%s instance has no shadow record", obj.Class().Name())
	}
	return rec, nil
}
