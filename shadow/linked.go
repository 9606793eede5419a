package shadow

import (
	"fmt"

	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/fragment"
	"github.com/teranos/cgen/host"
)

// linkedPlugin handles references to other shadow instances, stored as a
// pointer straight to the target's struct.
type linkedPlugin struct{}

func (linkedPlugin) Kind() string { return "shadow" }

func (linkedPlugin) Match(decl any) bool {
	_, ok := decl.(Ref)
	return ok
}

func (linkedPlugin) New(spec Spec) (Attribute, error) {
	ref := spec.Decl.(Ref)
	if ref.Class == nil {
		return nil, errors.Markf(errors.ErrUnrecognizedDeclaration, "attribute %s references no class", spec.Name)
	}
	target, ok := spec.Owner.tree.classes[ref.Class]
	if !ok {
		return nil, errors.Markf(errors.ErrUnrecognizedDeclaration,
			"attribute %s references %s, which is not a shadow class of this library", spec.Name, ref.Class.Name())
	}
	return &linkedAttr{Base: NewBase(spec, "shadow", spec.Name), target: target}, nil
}

type linkedAttr struct {
	Base
	target *Class
}

func (a *linkedAttr) Members() []Member {
	return []Member{{Key: a.varName, Decl: "struct " + a.target.StructName() + " *" + a.varName}}
}

func (a *linkedAttr) TypeCheck() string { return a.target.Name() }

func (a *linkedAttr) InitCode() string { return a.Field() + " = 0" }

func (a *linkedAttr) selfOrNil() string {
	return a.Field() + " ? " + a.Field() + "->self : Qnil"
}

func (a *linkedAttr) ReaderCode() string { return "result = " + a.selfOrNil() }

func (a *linkedAttr) assignFrom(src string) string {
	return fragment.Dedent(fmt.Sprintf(`
		if (NIL_P(%[1]s))
		    %[2]s = 0;
		else
		    Data_Get_Struct(%[1]s, %[3]s, %[2]s);`, src, a.Field(), a.target.StructName()))
}

func (a *linkedAttr) WriterCode() string { return a.assignFrom("arg") }

func (a *linkedAttr) MarkCode() string {
	return "if (" + a.Field() + ") rb_gc_mark(" + a.Field() + "->self)"
}

func (a *linkedAttr) DumpCode() string { return "rb_ary_push(result, " + a.selfOrNil() + ")" }

func (a *linkedAttr) LoadCode() string {
	return "tmp = rb_ary_shift(from_array);\n" + a.assignFrom("tmp")
}

func (a *linkedAttr) Init(rec *Record) { a.store(rec, nil) }

func (a *linkedAttr) targetRecord(rec *Record) *Record {
	t, _ := a.slot(rec).(*Record)
	return t
}

func (a *linkedAttr) Get(rec *Record) host.Value {
	if t := a.targetRecord(rec); t != nil {
		return t.Self
	}
	return nil
}

func (a *linkedAttr) Set(rt *host.Runtime, rec *Record, v host.Value) error {
	if v == nil {
		a.store(rec, nil)
		return nil
	}
	obj, ok := v.(*host.Object)
	if !ok || !obj.Class().IsA(a.target.host) {
		return errors.Markf(errors.ErrTypeMismatch, "%s: declared %s but passed %s", a.name, a.target.Name(), rt.ClassOf(v).Name())
	}
	t, ok := obj.Data.(*Record)
	if !ok {
		return errors.Markf(errors.ErrTypeMismatch, "%s: %s instance has no shadow record", a.name, obj.Class().Name())
	}
	a.store(rec, t)
	return nil
}

func (a *linkedAttr) Mark(rec *Record, visit func(host.Value)) {
	if t := a.targetRecord(rec); t != nil {
		visit(t.Self)
	}
}

func (a *linkedAttr) Dump(rec *Record) host.Value { return a.Get(rec) }

func (a *linkedAttr) Load(rt *host.Runtime, rec *Record, v host.Value) error {
	return a.Set(rt, rec, v)
}
