package shadow

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/host"
)

// Tags used in the markup form of host values.
const (
	ObjectTagPrefix = "!cgen/object:"
	SymbolTag       = "!cgen/symbol"
	ClassTag        = "!cgen/class"
)

// shadowOf returns the nearest shadowed class of hc.
func (t *Tree) shadowOf(hc *host.Class) (*Class, bool) {
	for h := hc; h != nil; h = h.Super() {
		if c, ok := t.classes[h]; ok {
			return c, true
		}
	}
	return nil, false
}

// EncodeYAML renders v as YAML. Instances become mappings tagged with
// their class holding persistent attributes in dump order, then instance
// variables prefixed with @. Shared instances become anchors and aliases.
func (t *Tree) EncodeYAML(v host.Value) ([]byte, error) {
	n, err := t.MarshalYAML(v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(n)
}

// MarshalYAML builds the YAML node for v.
func (t *Tree) MarshalYAML(v host.Value) (*yaml.Node, error) {
	e := &yamlEncoder{tree: t, seen: make(map[*host.Object]*yaml.Node)}
	return e.value(host.Normalize(v))
}

type yamlEncoder struct {
	tree    *Tree
	seen    map[*host.Object]*yaml.Node
	anchors int
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (e *yamlEncoder) value(v host.Value) (*yaml.Node, error) {
	switch x := v.(type) {
	case nil:
		return scalar("!!null", "~"), nil
	case int64:
		return scalar("!!int", strconv.FormatInt(x, 10)), nil
	case float64:
		return scalar("!!float", formatFloat(x)), nil
	case bool:
		return scalar("!!bool", strconv.FormatBool(x)), nil
	case string:
		return scalar("!!str", x), nil
	case host.Symbol:
		return scalar(SymbolTag, string(x)), nil
	case *host.Class:
		return scalar(ClassTag, x.Name()), nil
	case *host.Array:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range x.Items {
			n, err := e.value(host.Normalize(item))
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	case *host.Object:
		return e.object(x)
	}
	return nil, errors.Markf(errors.ErrSerialization, "cannot encode %T as YAML", v)
}

func (e *yamlEncoder) object(obj *host.Object) (*yaml.Node, error) {
	if n, ok := e.seen[obj]; ok {
		if n.Anchor == "" {
			e.anchors++
			n.Anchor = fmt.Sprintf("o%d", e.anchors)
		}
		return &yaml.Node{Kind: yaml.AliasNode, Alias: n, Value: n.Anchor}, nil
	}
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: ObjectTagPrefix + obj.Class().Name()}
	e.seen[obj] = m

	add := func(key string, v host.Value) error {
		n, err := e.value(host.Normalize(v))
		if err != nil {
			return errors.Wrapf(err, "%s of %s", key, obj.Class().Name())
		}
		m.Content = append(m.Content, scalar("!!str", key), n)
		return nil
	}
	if rec, ok := obj.Data.(*Record); ok {
		for _, a := range persistent(rec.Class.layout) {
			if err := add(a.Name(), a.Dump(rec)); err != nil {
				return nil, err
			}
		}
	}
	for _, name := range obj.Ivars() {
		if err := add("@"+name, obj.Ivar(name)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// DecodeYAML parses data produced by EncodeYAML. Instances are allocated
// through their class, so attributes absent from the document keep their
// initial values; present attributes go through the typed writers' checks.
func (t *Tree) DecodeYAML(data []byte) (host.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapMark(err, errors.ErrSerialization, "parse YAML")
	}
	return t.UnmarshalYAML(&doc)
}

// UnmarshalYAML converts a YAML node back into a host value.
func (t *Tree) UnmarshalYAML(n *yaml.Node) (host.Value, error) {
	d := &yamlDecoder{tree: t, objects: make(map[*yaml.Node]*host.Object)}
	return d.value(n)
}

type yamlDecoder struct {
	tree    *Tree
	objects map[*yaml.Node]*host.Object
}

func (d *yamlDecoder) value(n *yaml.Node) (host.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.value(n.Content[0])
	case yaml.AliasNode:
		if obj, ok := d.objects[n.Alias]; ok {
			return obj, nil
		}
		return d.value(n.Alias)
	case yaml.SequenceNode:
		arr := host.NewArray()
		for _, c := range n.Content {
			v, err := d.value(c)
			if err != nil {
				return nil, err
			}
			arr.Push(v)
		}
		return arr, nil
	case yaml.MappingNode:
		return d.object(n)
	}
	return d.scalar(n)
}

func (d *yamlDecoder) scalar(n *yaml.Node) (host.Value, error) {
	switch tag := n.ShortTag(); tag {
	case "!!null":
		return nil, nil
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, errors.WrapMark(err, errors.ErrSerialization, "line "+strconv.Itoa(n.Line))
		}
		return i, nil
	case "!!float":
		switch strings.ToLower(n.Value) {
		case ".inf", "+.inf":
			return math.Inf(1), nil
		case "-.inf":
			return math.Inf(-1), nil
		case ".nan":
			return math.NaN(), nil
		}
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, errors.WrapMark(err, errors.ErrSerialization, "line "+strconv.Itoa(n.Line))
		}
		return f, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, errors.WrapMark(err, errors.ErrSerialization, "line "+strconv.Itoa(n.Line))
		}
		return b, nil
	case "!!str":
		return n.Value, nil
	case SymbolTag:
		return host.Symbol(n.Value), nil
	case ClassTag:
		cls, ok := d.tree.rt.Class(n.Value)
		if !ok {
			return nil, errors.Markf(errors.ErrSerialization, "unknown class %s at line %d", n.Value, n.Line)
		}
		return cls, nil
	default:
		return nil, errors.Markf(errors.ErrSerialization, "unsupported tag %s at line %d", tag, n.Line)
	}
}

func (d *yamlDecoder) object(n *yaml.Node) (host.Value, error) {
	name, ok := strings.CutPrefix(n.Tag, ObjectTagPrefix)
	if !ok {
		return nil, errors.Markf(errors.ErrSerialization, "mapping at line %d is not a tagged object", n.Line)
	}
	rt := d.tree.rt
	cls, ok := rt.Class(name)
	if !ok {
		return nil, errors.Markf(errors.ErrSerialization, "unknown class %s at line %d", name, n.Line)
	}
	obj, err := rt.Allocate(cls)
	if err != nil {
		return nil, err
	}
	d.objects[n] = obj

	var (
		sc  *Class
		rec *Record
	)
	if c, ok := d.tree.shadowOf(cls); ok {
		sc = c
		if rec, err = RecordOf(obj); err != nil {
			return nil, err
		}
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		v, err := d.value(n.Content[i+1])
		if err != nil {
			return nil, err
		}
		if ivar, ok := strings.CutPrefix(key, "@"); ok {
			obj.SetIvar(ivar, v)
			continue
		}
		if sc == nil {
			return nil, errors.Markf(errors.ErrSerialization, "%s has no attribute %s", name, key)
		}
		a, ok := sc.Attribute(key)
		if !ok || !a.Persistent() {
			return nil, errors.Markf(errors.ErrSerialization, "%s has no persistent attribute %s", name, key)
		}
		if err := a.Set(rt, rec, v); err != nil {
			return nil, err
		}
	}
	return obj, nil
}
