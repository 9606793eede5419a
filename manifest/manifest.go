// Package manifest describes a library and its shadow classes in TOML so
// tools can generate, build and check it without Go code.
//
//	name = "shapes"
//	files = ["geometry"]
//
//	[[class]]
//	name = "Point"
//	file = "geometry"
//
//	  [[class.attr]]
//	  name = "x"
//	  decl = "double x"
//
//	  [[class.attr]]
//	  name = "next"
//	  linked = "Point"
//	  access = "reader"
package manifest

import (
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/teranos/cgen/cfunc"
	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/shadow"
)

// Manifest is the top-level document.
type Manifest struct {
	Name         string   `toml:"name"`
	Dir          string   `toml:"dir"`
	LongWidth    int      `toml:"long_width"`
	Serializable *bool    `toml:"serializable"`
	Files        []string `toml:"files"`
	Includes     []string `toml:"includes"`
	Classes      []Class  `toml:"class"`

	// Path is the file the manifest was read from, if any.
	Path string `toml:"-"`
}

// Class declares one shadow class. Super names its host superclass; an
// empty Super means Object.
type Class struct {
	Name  string `toml:"name"`
	Super string `toml:"super"`
	File  string `toml:"file"`
	Attrs []Attr `toml:"attr"`
}

// Attr declares one attribute. Exactly one of Decl, Type and Linked is set.
type Attr struct {
	Name       string `toml:"name"`
	Decl       string `toml:"decl"`
	Type       string `toml:"type"`
	Linked     string `toml:"linked"`
	Access     string `toml:"access"`
	Persistent *bool  `toml:"persistent"`
}

// IsSerializable reports whether dump and load methods are wanted.
func (m *Manifest) IsSerializable() bool { return m.Serializable == nil || *m.Serializable }

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	var m Manifest
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %s", path)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, errors.Wrapf(err, "manifest %s", path)
	}
	m.Path = path
	if err := m.Validate(); err != nil {
		return nil, errors.Wrapf(err, "manifest %s", path)
	}
	return &m, nil
}

// Parse decodes and validates a manifest held in memory.
func Parse(data string) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(data, &m)
	if err != nil {
		return nil, errors.Wrap(err, "parse manifest")
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	sort.Strings(names)
	return errors.WithHint(
		errors.Markf(errors.ErrInvalidName, "unknown keys: %s", strings.Join(names, ", ")),
		"attributes take one of decl, type or linked")
}

// Validate checks names and attribute shapes.
func (m *Manifest) Validate() error {
	if !cfunc.IsIdentifier(m.Name) {
		return errors.Markf(errors.ErrInvalidName, "library name %q is not a C identifier", m.Name)
	}
	switch m.LongWidth {
	case 0, 32, 64:
	default:
		return errors.Newf("long_width must be 32 or 64, got %d", m.LongWidth)
	}
	files := map[string]bool{"": true}
	for _, f := range m.Files {
		if !cfunc.IsIdentifier(f) {
			return errors.Markf(errors.ErrInvalidName, "file name %q is not a C identifier", f)
		}
		files[f] = true
	}
	seen := make(map[string]bool)
	for _, c := range m.Classes {
		if c.Name == "" {
			return errors.Markf(errors.ErrInvalidName, "class without a name")
		}
		if seen[c.Name] {
			return errors.Markf(errors.ErrNameConflict, "class %s declared twice", c.Name)
		}
		seen[c.Name] = true
		if !files[c.File] {
			return errors.Markf(errors.ErrInvalidName, "class %s placed in undeclared file %s", c.Name, c.File)
		}
		for _, a := range c.Attrs {
			if err := a.validate(c.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a Attr) validate(class string) error {
	set := 0
	for _, s := range []string{a.Decl, a.Type, a.Linked} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return errors.Markf(errors.ErrUnrecognizedDeclaration,
			"attribute %s of %s needs exactly one of decl, type or linked", a.Name, class)
	}
	if _, ok := shadow.ParseAccess(a.Access); !ok {
		return errors.Markf(errors.ErrInvalidName, "attribute %s of %s has unknown access %q", a.Name, class, a.Access)
	}
	return nil
}
