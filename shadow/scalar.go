package shadow

import (
	"fmt"
	"math"
	"regexp"

	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/host"
)

// scalarType describes one native numeric C type.
type scalarType struct {
	name     string
	family   string // "int", "float" or "bool"
	bits     int
	unsigned bool
	cMin     string
	cMax     string
	toHost   string
	member   string
}

var scalarDeclRe = regexp.MustCompile(`^((?:unsigned |signed )?(?:char|short|int|long long|long|double|float|bool)) ([A-Za-z_]\w*)$`)

func scalarTypes(longWidth int) map[string]scalarType {
	types := map[string]scalarType{
		"double": {name: "double", family: "float", bits: 64, toHost: "rb_float_new"},
		"float":  {name: "float", family: "float", bits: 32, cMax: "FLT_MAX", toHost: "rb_float_new"},
		"bool":   {name: "bool", family: "bool", member: "int"},
	}
	ints := []struct {
		name, min, max, smax, toHost, utoHost string
		bits                                  int
	}{
		{"char", "SCHAR_MIN", "SCHAR_MAX", "UCHAR_MAX", "INT2NUM", "UINT2NUM", 8},
		{"short", "SHRT_MIN", "SHRT_MAX", "USHRT_MAX", "INT2NUM", "UINT2NUM", 16},
		{"int", "INT_MIN", "INT_MAX", "UINT_MAX", "INT2NUM", "UINT2NUM", 32},
		{"long", "LONG_MIN", "LONG_MAX", "ULONG_MAX", "LONG2NUM", "ULONG2NUM", longWidth},
		{"long long", "LLONG_MIN", "LLONG_MAX", "ULLONG_MAX", "LL2NUM", "ULL2NUM", 64},
	}
	for _, t := range ints {
		signed := scalarType{name: t.name, family: "int", bits: t.bits, cMin: t.min, cMax: t.max, toHost: t.toHost}
		types[t.name] = signed
		s := signed
		s.name = "signed " + t.name
		s.member = s.name
		types[s.name] = s
		types["unsigned "+t.name] = scalarType{
			name: "unsigned " + t.name, family: "int", bits: t.bits, unsigned: true,
			cMax: t.smax, toHost: t.utoHost,
		}
	}
	return types
}

// memberType is the C type of the struct member.
func (t scalarType) memberType() string {
	if t.member != "" {
		return t.member
	}
	return t.name
}

// bounds returns the representable range for integer types, capped to
// what a host integer can hold.
func (t scalarType) bounds() (lo, hi int64) {
	switch {
	case t.unsigned && t.bits >= 64:
		return 0, math.MaxInt64
	case t.unsigned:
		return 0, int64(1)<<t.bits - 1
	case t.bits >= 64:
		return math.MinInt64, math.MaxInt64
	}
	return -(int64(1) << (t.bits - 1)), int64(1)<<(t.bits-1) - 1
}

// fromHost is the C conversion of a host value stored into lvalue.
func (t scalarType) fromHost(src, lvalue, method string) string {
	switch t.family {
	case "bool":
		return lvalue + " = RTEST(" + src + ")"
	case "float":
		if t.cMax == "" {
			return lvalue + " = NUM2DBL(" + src + ")"
		}
		return fmt.Sprintf(`{
    double v = NUM2DBL(%[1]s);
    if (v < -%[3]s || v > %[3]s)
        rb_raise(rb_eRangeError, "%[4]s: %%g out of range for %[5]s", v);
    %[2]s = (%[5]s)v;
}`, src, lvalue, t.cMax, method, t.name)
	}
	if t.unsigned {
		return fmt.Sprintf(`{
    unsigned LONG_LONG v = NUM2ULL(%[1]s);
    if (v > %[3]s)
        rb_raise(rb_eRangeError, "%[4]s: %%llu out of range for %[5]s", v);
    %[2]s = (%[5]s)v;
}`, src, lvalue, t.cMax, method, t.name)
	}
	return fmt.Sprintf(`{
    LONG_LONG v = NUM2LL(%[1]s);
    if (v < %[3]s || v > %[4]s)
        rb_raise(rb_eRangeError, "%[5]s: %%lld out of range for %[6]s", v);
    %[2]s = (%[6]s)v;
}`, src, lvalue, t.cMin, t.cMax, method, t.memberType())
}

// toHostExpr is the C expression converting the stored value.
func (t scalarType) toHostExpr(src string) string {
	if t.family == "bool" {
		return src + " ? Qtrue : Qfalse"
	}
	return t.toHost + "(" + src + ")"
}

func (t scalarType) header() string {
	switch {
	case t.family == "int":
		return "<limits.h>"
	case t.cMax != "":
		return "<float.h>"
	}
	return ""
}

func (t scalarType) zero() host.Value {
	switch t.family {
	case "float":
		return float64(0)
	case "bool":
		return false
	}
	return int64(0)
}

// convert is the in-process twin of fromHost.
func (t scalarType) convert(rt *host.Runtime, name string, v host.Value) (host.Value, error) {
	v = host.Normalize(v)
	if t.family == "bool" {
		return host.Truthy(v), nil
	}
	switch n := v.(type) {
	case int64:
		if t.family == "float" {
			return t.convert(rt, name, float64(n))
		}
		lo, hi := t.bounds()
		if n < lo || n > hi {
			return nil, errors.Markf(errors.ErrRange, "%s: %d out of range for %s", name, n, t.name)
		}
		return n, nil
	case float64:
		if t.family == "int" {
			// NUM2LL truncates toward zero
			if math.IsNaN(n) || n < math.MinInt64 || n >= math.MaxInt64 {
				return nil, errors.Markf(errors.ErrRange, "%s: %g out of range for %s", name, n, t.name)
			}
			return t.convert(rt, name, int64(math.Trunc(n)))
		}
		if t.bits == 32 && (n < -math.MaxFloat32 || n > math.MaxFloat32) {
			return nil, errors.Markf(errors.ErrRange, "%s: %g out of range for %s", name, n, t.name)
		}
		if t.bits == 32 {
			n = float64(float32(n))
		}
		return n, nil
	}
	return nil, errors.Markf(errors.ErrTypeMismatch, "%s: %s expected but passed %s", name, t.name, rt.ClassOf(v).Name())
}

func parseScalar(decl any) (typ, name string, ok bool) {
	s, isString := decl.(string)
	if !isString {
		return "", "", false
	}
	m := scalarDeclRe.FindStringSubmatch(DeclText(s))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// scalarPlugin handles native numeric members.
type scalarPlugin struct{}

func (scalarPlugin) Kind() string { return "scalar" }

func (scalarPlugin) Match(decl any) bool {
	_, _, ok := parseScalar(decl)
	return ok
}

func (scalarPlugin) New(spec Spec) (Attribute, error) {
	typ, varName, _ := parseScalar(spec.Decl)
	if spec.LongWidth != 32 && spec.LongWidth != 64 {
		return nil, errors.Markf(errors.ErrUnrecognizedDeclaration, "long width %d is not 32 or 64", spec.LongWidth)
	}
	return &scalarAttr{Base: NewBase(spec, "scalar", varName), typ: scalarTypes(spec.LongWidth)[typ]}, nil
}

type scalarAttr struct {
	Base
	typ scalarType
}

func (a *scalarAttr) Members() []Member {
	return []Member{{Key: a.varName, Decl: a.typ.memberType() + " " + a.varName}}
}

func (a *scalarAttr) Requires() []string {
	if h := a.typ.header(); h != "" {
		return []string{h}
	}
	return nil
}

func (a *scalarAttr) InitCode() string   { return a.Field() + " = 0" }
func (a *scalarAttr) ReaderCode() string { return "result = " + a.typ.toHostExpr(a.Field()) }
func (a *scalarAttr) WriterCode() string { return a.typ.fromHost("arg", a.Field(), a.name+"=") }
func (a *scalarAttr) DumpCode() string {
	return "rb_ary_push(result, " + a.typ.toHostExpr(a.Field()) + ")"
}
func (a *scalarAttr) LoadCode() string {
	return a.typ.fromHost("rb_ary_shift(from_array)", a.Field(), a.name+"=")
}

func (a *scalarAttr) Init(rec *Record) { a.store(rec, a.typ.zero()) }

func (a *scalarAttr) Get(rec *Record) host.Value {
	if v := a.slot(rec); v != nil {
		return v
	}
	return a.typ.zero()
}

func (a *scalarAttr) Set(rt *host.Runtime, rec *Record, v host.Value) error {
	if v == nil && a.typ.family != "bool" {
		return errors.Markf(errors.ErrTypeMismatch, "%s=: %s expected but passed NilClass", a.name, a.typ.name)
	}
	n, err := a.typ.convert(rt, a.name+"=", v)
	if err != nil {
		return err
	}
	a.store(rec, n)
	return nil
}

func (a *scalarAttr) Dump(rec *Record) host.Value { return a.Get(rec) }

func (a *scalarAttr) Load(rt *host.Runtime, rec *Record, v host.Value) error {
	return a.Set(rt, rec, v)
}

