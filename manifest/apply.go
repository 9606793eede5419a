package manifest

import (
	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/host"
	"github.com/teranos/cgen/library"
	"github.com/teranos/cgen/shadow"
)

// Build creates the library and shadow tree m describes, defining any
// missing host classes in rt.
func (m *Manifest) Build(rt *host.Runtime, opts ...library.Option) (*library.Library, *shadow.Tree, error) {
	lib, err := library.New(m.Name, opts...)
	if err != nil {
		return nil, nil, err
	}
	if m.Dir != "" {
		if err := lib.SetDir(m.Dir); err != nil {
			return nil, nil, err
		}
	}

	var treeOpts []shadow.TreeOption
	if m.LongWidth != 0 {
		treeOpts = append(treeOpts, shadow.WithRegistry(shadow.NewRegistry(shadow.WithLongWidth(m.LongWidth))))
	}
	if !m.IsSerializable() {
		treeOpts = append(treeOpts, shadow.WithoutSerialization())
	}
	tree := shadow.NewTree(lib, rt, treeOpts...)
	if err := m.Apply(lib, tree); err != nil {
		return nil, nil, err
	}
	return lib, tree, nil
}

// Apply declares m's files, includes, classes and attributes into lib and
// tree. Classes are shadowed before any attribute so linked references may
// point forward.
func (m *Manifest) Apply(lib *library.Library, tree *shadow.Tree) error {
	rt := tree.Runtime()
	for _, f := range m.Files {
		if _, err := lib.AddFile(f); err != nil {
			return err
		}
	}
	for _, inc := range m.Includes {
		lib.Include(inc)
	}

	hosts, err := m.defineHostClasses(rt)
	if err != nil {
		return err
	}
	classes := make(map[string]*shadow.Class, len(m.Classes))
	for _, c := range m.Classes {
		sc, err := tree.Class(hosts[c.Name])
		if err != nil {
			return err
		}
		if c.File != "" {
			f, _ := lib.File(c.File)
			if err := sc.Place(f); err != nil {
				return err
			}
		}
		classes[c.Name] = sc
	}

	for _, c := range m.Classes {
		sc := classes[c.Name]
		for _, a := range c.Attrs {
			decl, err := a.declaration(rt)
			if err != nil {
				return errors.Wrapf(err, "class %s", c.Name)
			}
			access, _ := shadow.ParseAccess(a.Access)
			var opts []shadow.AttrOption
			if a.Persistent != nil && !*a.Persistent {
				opts = append(opts, shadow.NonPersistent())
			}
			if _, err := sc.Attr(a.Name, decl, access, opts...); err != nil {
				return err
			}
		}
	}
	return nil
}

// defineHostClasses resolves every class, defining it under its superclass
// when rt does not know it yet. Superclasses may appear later in the file.
func (m *Manifest) defineHostClasses(rt *host.Runtime) (map[string]*host.Class, error) {
	out := make(map[string]*host.Class, len(m.Classes))
	pending := append([]Class(nil), m.Classes...)
	for len(pending) > 0 {
		var next []Class
		for _, c := range pending {
			super := rt.Object
			if c.Super != "" {
				s, ok := rt.Class(c.Super)
				if !ok {
					next = append(next, c)
					continue
				}
				super = s
			}
			hc, err := rt.DefineClass(c.Name, super)
			if err != nil {
				return nil, err
			}
			out[c.Name] = hc
		}
		if len(next) == len(pending) {
			return nil, errors.Markf(errors.ErrUnrecognizedDeclaration,
				"class %s has unknown superclass %s", next[0].Name, next[0].Super)
		}
		pending = next
	}
	return out, nil
}

func (a Attr) declaration(rt *host.Runtime) (any, error) {
	switch {
	case a.Decl != "":
		return a.Decl, nil
	case a.Type != "":
		cls, ok := rt.Class(a.Type)
		if !ok {
			return nil, errors.Markf(errors.ErrUnrecognizedDeclaration, "attribute %s has unknown type %s", a.Name, a.Type)
		}
		return cls, nil
	}
	cls, ok := rt.Class(a.Linked)
	if !ok {
		return nil, errors.Markf(errors.ErrUnrecognizedDeclaration, "attribute %s links unknown class %s", a.Name, a.Linked)
	}
	return shadow.Ref{Class: cls}, nil
}
