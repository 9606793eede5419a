package cfunc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cgen/accum"
	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/host"
	"github.com/teranos/cgen/template"
)

// unit stands in for a library: it provides every capability.
type unit struct {
	*template.Template
	classes []string
	symbols []string
	reg     map[string]*HostFunction
	order   []string
}

func newUnit() *unit {
	u := &unit{Template: template.New("unit", nil), reg: make(map[string]*HostFunction)}
	u.Bind(u)
	return u
}

func (u *unit) DeclareClass(name string) string {
	u.classes = append(u.classes, name)
	return ClassVar(name)
}

func (u *unit) DeclareSymbol(name string) string {
	u.symbols = append(u.symbols, name)
	return SymbolVar(name)
}

func (u *unit) Registered(cname string) (*HostFunction, bool) {
	fn, ok := u.reg[cname]
	return fn, ok
}

func (u *unit) Register(fn *HostFunction) {
	u.reg[fn.Name()] = fn
	u.order = append(u.order, fn.Name())
}

func TestMangle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"x", "x"},
		{"x=", "x_equals"},
		{"empty?", "empty_query"},
		{"save!", "save_bang"},
		{"to_s", "to__s"},
		{"_dump_data", "__dump__data"},
		{"[]", "_brack_ket"},
		{"<=>", "_lt_equals_gt"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mangle(tt.in))
		})
	}
	assert.Equal(t, "module_Bug", ClassVar("Bug"))
	assert.Equal(t, "module_Foo_Bar", ClassVar("Foo::Bar"))
	assert.Equal(t, "module_Foo__Bar", ClassVar("Foo_Bar"))
	assert.Equal(t, "ID_to__s", SymbolVar("to_s"))
	assert.Equal(t, "Bug_Shadow", StructName("Bug"))
}

func TestFunctionRender(t *testing.T) {
	f := NewFunction("mark_Bug_Shadow", nil, WithScope(Static), WithArgs("Bug_Shadow *shadow"))
	assert.True(t, f.Empty())
	assert.Equal(t, "static void mark_Bug_Shadow(Bug_Shadow *shadow)\n{\n}", f.Render())

	f.Body("rb_gc_mark(shadow->self)")
	f.DeclareVar("i", "int i")
	want := "static void mark_Bug_Shadow(Bug_Shadow *shadow)\n" +
		"{\n" +
		"    int i;\n" +
		"\n" +
		"    rb_gc_mark(shadow->self);\n" +
		"}"
	assert.Equal(t, want, f.Render())
	assert.Equal(t, "static void mark_Bug_Shadow(Bug_Shadow *shadow);", f.Prototype())
	assert.False(t, f.Empty())
}

func TestFunctionSectionsAndReturn(t *testing.T) {
	f := NewFunction("f", nil, WithReturnType("int"))
	f.Returns("0")
	f.Returns("x")
	f.Body("x = compute()")
	f.Setup("x", "x = 1")
	f.Init("prepare()")
	f.DeclareVar("x", "int x")

	want := "int f(void)\n" +
		"{\n" +
		"    int x;\n" +
		"\n" +
		"    {\n" +
		"        static int initialized = 0;\n" +
		"        if (!initialized) {\n" +
		"            initialized = 1;\n" +
		"            prepare();\n" +
		"        }\n" +
		"    }\n" +
		"\n" +
		"    x = 1;\n" +
		"\n" +
		"    x = compute();\n" +
		"\n" +
		"    return x;\n" +
		"}"
	assert.Equal(t, want, f.Render())
	assert.Equal(t, f.Render(), f.Render())
}

func TestHostFunctionRegistration(t *testing.T) {
	u := newUnit()
	fn := DefineHostFunction(u, Method, "Bug", "x")
	assert.Equal(t, "x_module_Bug_method", fn.Name())
	assert.Equal(t, "VALUE x_module_Bug_method(VALUE self);", fn.Prototype())
	assert.Equal(t, `rb_define_method(module_Bug, "x", x_module_Bug_method, 0);`, fn.Registration())

	again := DefineHostFunction(u, Method, "Bug", "x")
	assert.Same(t, fn, again, "duplicate definitions merge by C name")
	assert.Equal(t, []string{"x_module_Bug_method"}, u.order)

	single := DefineHostFunction(u, SingletonMethod, "Bug", "new")
	single.Aggregate()
	assert.Equal(t, "new_module_Bug_singleton_method", single.Name())
	assert.Equal(t, `rb_define_singleton_method(module_Bug, "new", new_module_Bug_singleton_method, -1);`, single.Registration())

	global := DefineHostFunction(u, GlobalFunction, "", "hello")
	require.NoError(t, global.Params("who"))
	assert.Equal(t, "VALUE hello_global_function(VALUE self, VALUE who);", global.Prototype())
	assert.Equal(t, `rb_define_global_function("hello", hello_global_function, 1);`, global.Registration())

	mod := DefineHostFunction(u, ModuleFunction, "Util", "go!")
	assert.Equal(t, "go_bang_module_Util_module_function", mod.Name())
	assert.Contains(t, mod.Registration(), "rb_define_module_function(module_Util")
}

func TestScanFormat(t *testing.T) {
	tests := []struct {
		name string
		spec ScanSpec
		want string
	}{
		{"one required", ScanSpec{Required: []string{"arg"}}, "1"},
		{"required and optional", ScanSpec{Required: []string{"a"}, Optional: []string{"b", "c"}}, "12"},
		{"rest", ScanSpec{Required: []string{"a"}, Rest: "rest"}, "1*"},
		{"everything", ScanSpec{Required: []string{"a", "b"}, Optional: []string{"c"}, Rest: "r", Block: "blk"}, "21*&"},
		{"none", ScanSpec{}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.Format())
		})
	}
}

func TestScanEmitsCode(t *testing.T) {
	u := newUnit()
	fn := DefineHostFunction(u, Method, "Bug", "x=")
	err := fn.Scan(ScanSpec{
		Required: []string{"arg"},
		Optional: []string{"opt"},
		Types:    map[string]string{"arg": "String"},
		Defaults: map[string]Default{"opt": {C: "INT2FIX(3)"}},
	})
	require.NoError(t, err)
	fn.Returns("arg")

	assert.Equal(t, -1, fn.Arity())
	assert.Equal(t, "VALUE x_equals_module_Bug_method(int argc, VALUE *argv, VALUE self)", fn.Signature())
	out := fn.Render()
	assert.Contains(t, out, "    VALUE arg;\n    VALUE opt;\n")
	assert.Contains(t, out, `rb_scan_args(argc, argv, "11", &arg, &opt);`)
	assert.Contains(t, out, "rb_obj_is_kind_of(arg, module_String) != Qtrue)")
	assert.Contains(t, out, `"x=: argument arg declared String but passed %s."`)
	assert.Contains(t, out, "if (argc <= 1) opt = INT2FIX(3);")
	assert.Less(t, indexOf(out, "rb_raise"), indexOf(out, "if (argc <= 1)"), "type checks precede defaults")
	assert.Contains(t, u.classes, "TypeError")
	assert.Equal(t, []string{"class", "to_s"}, u.symbols)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestScanValidate(t *testing.T) {
	assert.True(t, errors.Is(ScanSpec{Required: []string{"a b"}}.Validate(), errors.ErrInvalidName))
	assert.True(t, errors.Is(ScanSpec{Required: []string{"a"}, Optional: []string{"a"}}.Validate(), errors.ErrNameConflict))
	assert.True(t, errors.Is(ScanSpec{Types: map[string]string{"z": "String"}}.Validate(), errors.ErrInvalidName))
	assert.True(t, errors.Is(ScanSpec{Required: []string{"a"}, Defaults: map[string]Default{"a": {}}}.Validate(), errors.ErrInvalidName))
}

func TestScanBind(t *testing.T) {
	rt := host.NewRuntime()
	spec := ScanSpec{
		Required: []string{"a"},
		Optional: []string{"b", "c"},
		Rest:     "rest",
		Types:    map[string]string{"a": "String"},
		Defaults: map[string]Default{
			"b": {C: "INT2FIX(1)", Value: func(Args) host.Value { return 1 }},
			"c": {C: "b", Value: func(bound Args) host.Value { return bound["b"] }},
		},
	}

	bound, err := spec.Bind(rt, "m", []host.Value{"s"})
	require.NoError(t, err)
	assert.Equal(t, Args{"a": "s", "b": int64(1), "c": int64(1), "rest": host.NewArray()}, bound)

	bound, err = spec.Bind(rt, "m", []host.Value{"s", 5, 6, 7, 8})
	require.NoError(t, err)
	assert.Equal(t, int64(5), bound["b"])
	assert.Equal(t, []host.Value{int64(7), int64(8)}, bound["rest"].(*host.Array).Items)
	assert.Equal(t, []host.Value{"s", int64(5), int64(6), bound["rest"]}, bound.Values(spec))

	bound, err = spec.Bind(rt, "m", []host.Value{nil})
	require.NoError(t, err, "nil passes any type assertion")
	assert.Nil(t, bound["a"])

	_, err = spec.Bind(rt, "m", []host.Value{3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTypeMismatch))
	assert.Contains(t, err.Error(), "declared String but passed Integer")

	_, err = spec.Bind(rt, "m", nil)
	assert.True(t, errors.Is(err, errors.ErrArgumentCount))

	fixed := ScanSpec{Required: []string{"arg"}}
	_, err = fixed.Bind(rt, "x=", []host.Value{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong number of arguments (2 for 1)")
}

func TestHostFunctionCall(t *testing.T) {
	rt := host.NewRuntime()
	u := newUnit()
	fn := DefineHostFunction(u, Method, "Bug", "pair")
	require.NoError(t, fn.Params("a", "b"))
	fn.Impl = func(rt *host.Runtime, self host.Value, args []host.Value) (host.Value, error) {
		return host.NewArray(args...), nil
	}

	v, err := fn.Call(rt, nil, []host.Value{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, v.(*host.Array).Len())

	_, err = fn.Call(rt, nil, []host.Value{1})
	assert.True(t, errors.Is(err, errors.ErrArgumentCount))

	bare := DefineHostFunction(u, Method, "Bug", "bare")
	_, err = bare.Call(rt, nil, nil)
	assert.True(t, errors.Is(err, errors.ErrNoMethod))
}

func TestStructInherit(t *testing.T) {
	base := NewStruct("Base_Shadow", nil)
	require.NoError(t, base.Member("self", "VALUE self"))
	require.NoError(t, base.Member("x", "int x"))

	sub := NewStruct("Sub_Shadow", nil)
	err := sub.Inherit(base)
	assert.True(t, errors.Is(err, errors.ErrNotClosed))

	base.Close()
	require.NoError(t, sub.Inherit(base))
	require.NoError(t, sub.Member("z", "int z"))
	require.NoError(t, sub.Member("x", "int x"), "identical redeclaration is tolerated")
	assert.True(t, errors.Is(sub.Member("x", "long x"), errors.ErrNameConflict))

	want := "typedef struct Sub_Shadow {\n" +
		"    VALUE self;\n" +
		"    int x;\n" +
		"    int z;\n" +
		"} Sub_Shadow;"
	assert.Equal(t, want, sub.Render())

	assert.True(t, errors.Is(base.Member("y", "int y"), errors.ErrCommitted))
	assert.Equal(t, []accum.Pair{{Key: "self", Value: "VALUE self"}, {Key: "x", Value: "int x"}}, base.Fields())
}
