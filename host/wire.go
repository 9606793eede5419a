package host

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/teranos/cgen/errors"
)

// Method names an instance class answers to take part in serialization.
const (
	DumpMethod = "_dump_data"
	LoadMethod = "_load_data"
)

const (
	kindNil uint8 = iota
	kindInt
	kindFloat
	kindBool
	kindString
	kindSymbol
	kindArray
	kindRef
)

type wireValue struct {
	K uint8       `cbor:"k"`
	I int64       `cbor:"i,omitempty"`
	F float64     `cbor:"f,omitempty"`
	B bool        `cbor:"b,omitempty"`
	S string      `cbor:"s,omitempty"`
	A []wireValue `cbor:"a,omitempty"`
}

type wireIvar struct {
	Name  string    `cbor:"n"`
	Value wireValue `cbor:"v"`
}

type wireObject struct {
	Class   string      `cbor:"c"`
	HasData bool        `cbor:"d,omitempty"`
	Data    []wireValue `cbor:"x,omitempty"`
	Ivars   []wireIvar  `cbor:"iv,omitempty"`
}

type wireDoc struct {
	Version int          `cbor:"ver"`
	Root    wireValue    `cbor:"root"`
	Objects []wireObject `cbor:"objs,omitempty"`
}

const wireVersion = 1

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Dump serializes v. Objects whose class answers _dump_data contribute the
// array that method returns; shared and cyclic references are preserved.
func (rt *Runtime) Dump(v Value) ([]byte, error) {
	d := &dumper{rt: rt, index: make(map[*Object]int)}
	root, err := d.value(Normalize(v))
	if err != nil {
		return nil, err
	}
	doc := wireDoc{Version: wireVersion, Root: root, Objects: d.objects}
	data, err := encMode.Marshal(doc)
	if err != nil {
		return nil, errors.WrapMark(err, errors.ErrSerialization, "encode")
	}
	return data, nil
}

type dumper struct {
	rt      *Runtime
	index   map[*Object]int
	objects []wireObject
}

func (d *dumper) value(v Value) (wireValue, error) {
	switch x := v.(type) {
	case nil:
		return wireValue{K: kindNil}, nil
	case int64:
		return wireValue{K: kindInt, I: x}, nil
	case float64:
		return wireValue{K: kindFloat, F: x}, nil
	case bool:
		return wireValue{K: kindBool, B: x}, nil
	case string:
		return wireValue{K: kindString, S: x}, nil
	case Symbol:
		return wireValue{K: kindSymbol, S: string(x)}, nil
	case *Array:
		items, err := d.values(x.Items)
		if err != nil {
			return wireValue{}, err
		}
		return wireValue{K: kindArray, A: items}, nil
	case *Object:
		return d.object(x)
	}
	return wireValue{}, errors.Markf(errors.ErrSerialization, "cannot dump %T", v)
}

func (d *dumper) values(vs []Value) ([]wireValue, error) {
	out := make([]wireValue, 0, len(vs))
	for _, v := range vs {
		w, err := d.value(Normalize(v))
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func (d *dumper) object(o *Object) (wireValue, error) {
	if i, ok := d.index[o]; ok {
		return wireValue{K: kindRef, I: int64(i)}, nil
	}
	i := len(d.objects)
	d.index[o] = i
	d.objects = append(d.objects, wireObject{Class: o.class.name})

	w := wireObject{Class: o.class.name}
	if o.class.RespondTo(DumpMethod) {
		res, err := d.rt.Call(o, DumpMethod)
		if err != nil {
			return wireValue{}, err
		}
		arr, ok := res.(*Array)
		if !ok {
			return wireValue{}, errors.Markf(errors.ErrSerialization, "%s#%s returned %s", o.class.name, DumpMethod, Inspect(res))
		}
		data, err := d.values(arr.Items)
		if err != nil {
			return wireValue{}, err
		}
		w.HasData = true
		w.Data = data
	}
	for p := o.ivars.Oldest(); p != nil; p = p.Next() {
		val, err := d.value(p.Value)
		if err != nil {
			return wireValue{}, err
		}
		w.Ivars = append(w.Ivars, wireIvar{Name: p.Key, Value: val})
	}
	d.objects[i] = w
	return wireValue{K: kindRef, I: int64(i)}, nil
}

// Load reverses Dump. Every object is allocated first so references between
// them resolve, then each object's _load_data consumes its data array. Data
// left unconsumed is a mismatch between the dump and load code.
func (rt *Runtime) Load(data []byte) (Value, error) {
	var doc wireDoc
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapMark(err, errors.ErrSerialization, "decode")
	}
	if doc.Version != wireVersion {
		return nil, errors.Markf(errors.ErrSerialization, "unsupported wire version %d", doc.Version)
	}

	l := &loader{rt: rt, objects: make([]*Object, len(doc.Objects))}
	for i, wo := range doc.Objects {
		cls, ok := rt.Class(wo.Class)
		if !ok {
			return nil, errors.Markf(errors.ErrSerialization, "unknown class %s", wo.Class)
		}
		obj, err := rt.Allocate(cls)
		if err != nil {
			return nil, err
		}
		l.objects[i] = obj
	}
	for i, wo := range doc.Objects {
		obj := l.objects[i]
		if wo.HasData {
			items, err := l.values(wo.Data)
			if err != nil {
				return nil, err
			}
			arr := NewArray(items...)
			if _, err := rt.Call(obj, LoadMethod, arr); err != nil {
				return nil, err
			}
			if arr.Len() != 0 {
				return nil, errors.Markf(errors.ErrSerialization, "%s#%s left %d values unread", wo.Class, LoadMethod, arr.Len())
			}
		}
		for _, iv := range wo.Ivars {
			val, err := l.value(iv.Value)
			if err != nil {
				return nil, err
			}
			obj.SetIvar(iv.Name, val)
		}
	}
	return l.value(doc.Root)
}

type loader struct {
	rt      *Runtime
	objects []*Object
}

func (l *loader) value(w wireValue) (Value, error) {
	switch w.K {
	case kindNil:
		return nil, nil
	case kindInt:
		return w.I, nil
	case kindFloat:
		return w.F, nil
	case kindBool:
		return w.B, nil
	case kindString:
		return w.S, nil
	case kindSymbol:
		return Symbol(w.S), nil
	case kindArray:
		items, err := l.values(w.A)
		if err != nil {
			return nil, err
		}
		return &Array{Items: items}, nil
	case kindRef:
		if w.I < 0 || int(w.I) >= len(l.objects) {
			return nil, errors.Markf(errors.ErrSerialization, "dangling object reference %d", w.I)
		}
		return l.objects[w.I], nil
	}
	return nil, errors.Markf(errors.ErrSerialization, "unknown value kind %d", w.K)
}

func (l *loader) values(ws []wireValue) ([]Value, error) {
	out := make([]Value, 0, len(ws))
	for _, w := range ws {
		v, err := l.value(w)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
