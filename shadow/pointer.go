package shadow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/fragment"
	"github.com/teranos/cgen/host"
)

var pointerDeclRe = regexp.MustCompile(`^((?:unsigned |signed )?(?:char|short|int|long long|long|double|float|bool)) ?\* ?([A-Za-z_]\w*)$`)

func parsePointer(decl any) (typ, name string, ok bool) {
	s, isString := decl.(string)
	if !isString {
		return "", "", false
	}
	m := pointerDeclRe.FindStringSubmatch(DeclText(s))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// cstringPlugin handles NUL-terminated strings owned by the record.
type cstringPlugin struct{}

func (cstringPlugin) Kind() string { return "cstring" }

func (cstringPlugin) Match(decl any) bool {
	typ, _, ok := parsePointer(decl)
	return ok && typ == "char"
}

func (cstringPlugin) New(spec Spec) (Attribute, error) {
	_, varName, _ := parsePointer(spec.Decl)
	return &cstringAttr{Base: NewBase(spec, "cstring", varName)}, nil
}

type cstringAttr struct {
	Base
}

func (a *cstringAttr) Members() []Member {
	return []Member{{Key: a.varName, Decl: "char *" + a.varName}}
}

func (a *cstringAttr) Requires() []string { return []string{"<stdlib.h>", "<string.h>"} }
func (a *cstringAttr) TypeCheck() string  { return "String" }
func (a *cstringAttr) InitCode() string   { return a.Field() + " = 0" }

func (a *cstringAttr) toHost() string {
	return a.Field() + " ? rb_str_new2(" + a.Field() + ") : Qnil"
}

func (a *cstringAttr) assignFrom(src string) string {
	return fmt.Sprintf(`free(%[2]s);
if (NIL_P(%[1]s))
    %[2]s = 0;
else {
    char *s = StringValueCStr(%[1]s);
    %[2]s = malloc(strlen(s) + 1);
    strcpy(%[2]s, s);
}`, src, a.Field())
}

func (a *cstringAttr) ReaderCode() string { return "result = " + a.toHost() }
func (a *cstringAttr) WriterCode() string { return a.assignFrom("arg") }
func (a *cstringAttr) FreeCode() string   { return "free(" + a.Field() + ")" }
func (a *cstringAttr) DumpCode() string   { return "rb_ary_push(result, " + a.toHost() + ")" }
func (a *cstringAttr) LoadCode() string {
	return "tmp = rb_ary_shift(from_array);\n" + a.assignFrom("tmp")
}

func (a *cstringAttr) Init(rec *Record)           { a.store(rec, nil) }
func (a *cstringAttr) Get(rec *Record) host.Value { return a.slot(rec) }
func (a *cstringAttr) Free(rec *Record)           { a.store(rec, nil) }
func (a *cstringAttr) Dump(rec *Record) host.Value {
	return a.slot(rec)
}

func (a *cstringAttr) Set(rt *host.Runtime, rec *Record, v host.Value) error {
	switch s := v.(type) {
	case nil:
		a.store(rec, nil)
		return nil
	case string:
		if strings.IndexByte(s, 0) >= 0 {
			return errors.Markf(errors.ErrTypeMismatch, "%s=: string contains null byte", a.name)
		}
		a.store(rec, s)
		return nil
	}
	return errors.Markf(errors.ErrTypeMismatch, "%s=: argument arg declared String but passed %s.", a.name, rt.ClassOf(v).Name())
}

func (a *cstringAttr) Load(rt *host.Runtime, rec *Record, v host.Value) error {
	return a.Set(rt, rec, v)
}

// arrayPlugin handles heap arrays of scalars with a length member.
type arrayPlugin struct{}

func (arrayPlugin) Kind() string { return "array" }

func (arrayPlugin) Match(decl any) bool {
	typ, _, ok := parsePointer(decl)
	return ok && typ != "char"
}

func (arrayPlugin) New(spec Spec) (Attribute, error) {
	typ, varName, _ := parsePointer(spec.Decl)
	if spec.LongWidth != 32 && spec.LongWidth != 64 {
		return nil, errors.Markf(errors.ErrUnrecognizedDeclaration, "long width %d is not 32 or 64", spec.LongWidth)
	}
	return &arrayAttr{Base: NewBase(spec, "array", varName), elem: scalarTypes(spec.LongWidth)[typ]}, nil
}

type arrayAttr struct {
	Base
	elem scalarType
}

func (a *arrayAttr) lenField() string { return a.Field() + "_len" }

func (a *arrayAttr) Members() []Member {
	return []Member{
		{Key: a.varName, Decl: a.elem.memberType() + " *" + a.varName},
		{Key: a.varName + "_len", Decl: "long " + a.varName + "_len"},
	}
}

func (a *arrayAttr) Requires() []string {
	req := []string{"<stdlib.h>"}
	if h := a.elem.header(); h != "" {
		req = append(req, h)
	}
	return req
}

func (a *arrayAttr) TypeCheck() string { return "Array" }

func (a *arrayAttr) InitCode() string {
	return a.Field() + " = 0;\n" + a.lenField() + " = 0"
}

func (a *arrayAttr) toHost(dst string) string {
	return fmt.Sprintf(`if (!%[2]s)
    %[1]s = Qnil;
else {
    long i;
    %[1]s = rb_ary_new2(%[3]s);
    for (i = 0; i < %[3]s; i++)
        rb_ary_push(%[1]s, %[4]s);
}`, dst, a.Field(), a.lenField(), a.elem.toHostExpr(a.Field()+"[i]"))
}

func (a *arrayAttr) assignFrom(src string) string {
	conv := fragment.Indent(fragment.Terminate(a.elem.fromHost("rb_ary_entry("+src+", i)", a.Field()+"[i]", a.name+"=")), 8)
	return fmt.Sprintf(`free(%[2]s);
%[2]s = 0;
%[3]s = 0;
if (!NIL_P(%[1]s)) {
    long i, n = RARRAY_LEN(%[1]s);
    %[2]s = malloc(n * sizeof(*%[2]s) + 1);
    %[3]s = n;
    for (i = 0; i < n; i++)
%[4]s
}`, src, a.Field(), a.lenField(), conv)
}

func (a *arrayAttr) ReaderCode() string { return a.toHost("result") }
func (a *arrayAttr) WriterCode() string { return a.assignFrom("arg") }
func (a *arrayAttr) FreeCode() string   { return "free(" + a.Field() + ")" }

func (a *arrayAttr) DumpCode() string {
	return "{\n    VALUE list;\n" + fragment.Indent(a.toHost("list"), 4) + "\n    rb_ary_push(result, list);\n}"
}

func (a *arrayAttr) LoadCode() string {
	return "tmp = rb_ary_shift(from_array);\n" + a.assignFrom("tmp")
}

func (a *arrayAttr) Init(rec *Record) { a.store(rec, nil) }
func (a *arrayAttr) Free(rec *Record) { a.store(rec, nil) }

func (a *arrayAttr) Get(rec *Record) host.Value {
	items, ok := a.slot(rec).([]host.Value)
	if !ok {
		return nil
	}
	return host.NewArray(items...)
}

func (a *arrayAttr) Set(rt *host.Runtime, rec *Record, v host.Value) error {
	if v == nil {
		a.store(rec, nil)
		return nil
	}
	arr, ok := v.(*host.Array)
	if !ok {
		return errors.Markf(errors.ErrTypeMismatch, "%s=: argument arg declared Array but passed %s.", a.name, rt.ClassOf(v).Name())
	}
	items := make([]host.Value, len(arr.Items))
	for i, item := range arr.Items {
		if item == nil && a.elem.family != "bool" {
			return errors.Markf(errors.ErrTypeMismatch, "%s=: element %d is nil", a.name, i)
		}
		n, err := a.elem.convert(rt, a.name+"=", item)
		if err != nil {
			return err
		}
		items[i] = n
	}
	a.store(rec, items)
	return nil
}

func (a *arrayAttr) Dump(rec *Record) host.Value { return a.Get(rec) }

func (a *arrayAttr) Load(rt *host.Runtime, rec *Record, v host.Value) error {
	return a.Set(rt, rec, v)
}
