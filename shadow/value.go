package shadow

import (
	"regexp"

	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/host"
)

var valueDeclRe = regexp.MustCompile(`^\s*(?:VALUE|Object)\s+([A-Za-z_]\w*)\s*$`)

// valuePlugin handles references to arbitrary host values, optionally
// constrained to a class.
type valuePlugin struct{}

func (valuePlugin) Kind() string { return "value" }

func (valuePlugin) Match(decl any) bool {
	switch d := decl.(type) {
	case *host.Class:
		return d != nil
	case string:
		return valueDeclRe.MatchString(d)
	}
	return false
}

func (valuePlugin) New(spec Spec) (Attribute, error) {
	a := &valueAttr{}
	switch d := spec.Decl.(type) {
	case *host.Class:
		a.Base = NewBase(spec, "value", spec.Name)
		if spec.Runtime == nil || d != spec.Runtime.Object {
			a.class = d
		}
	case string:
		a.Base = NewBase(spec, "value", valueDeclRe.FindStringSubmatch(d)[1])
	}
	return a, nil
}

type valueAttr struct {
	Base
	class *host.Class
}

func (a *valueAttr) Members() []Member {
	return []Member{{Key: a.varName, Decl: "VALUE " + a.varName}}
}

func (a *valueAttr) TypeCheck() string {
	if a.class == nil {
		return ""
	}
	return a.class.Name()
}

func (a *valueAttr) InitCode() string   { return a.Field() + " = Qnil" }
func (a *valueAttr) ReaderCode() string { return "result = " + a.Field() }
func (a *valueAttr) WriterCode() string { return a.Field() + " = arg" }
func (a *valueAttr) MarkCode() string   { return "rb_gc_mark(" + a.Field() + ")" }
func (a *valueAttr) DumpCode() string   { return "rb_ary_push(result, " + a.Field() + ")" }
func (a *valueAttr) LoadCode() string   { return a.Field() + " = rb_ary_shift(from_array)" }

func (a *valueAttr) Init(rec *Record)           { a.store(rec, nil) }
func (a *valueAttr) Get(rec *Record) host.Value { return a.slot(rec) }
func (a *valueAttr) Dump(rec *Record) host.Value {
	return a.slot(rec)
}

func (a *valueAttr) Set(rt *host.Runtime, rec *Record, v host.Value) error {
	v = host.Normalize(v)
	if v != nil && a.class != nil && !rt.KindOf(v, a.class) {
		return errors.Markf(errors.ErrTypeMismatch, "%s: declared %s but passed %s", a.name, a.class.Name(), rt.ClassOf(v).Name())
	}
	a.store(rec, v)
	return nil
}

func (a *valueAttr) Load(rt *host.Runtime, rec *Record, v host.Value) error {
	a.store(rec, host.Normalize(v))
	return nil
}

func (a *valueAttr) Mark(rec *Record, visit func(host.Value)) {
	if v := a.slot(rec); v != nil {
		visit(v)
	}
}
