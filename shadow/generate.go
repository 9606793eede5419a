package shadow

import (
	"fmt"
	"strings"

	"github.com/teranos/cgen/cfunc"
	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/host"
	"github.com/teranos/cgen/library"
)

// generate emits the struct and the functions of a closed class.
func (c *Class) generate() error {
	file := c.File()
	for _, a := range c.attrs {
		for _, r := range a.Requires() {
			file.Include(r)
		}
	}
	file.DeclareType(c.StructName(), c.st)
	c.tree.lib.DeclareClass(c.Name())

	c.genMark(file)
	c.genFree(file)
	c.genAlloc(file)
	c.genNew(file)
	if c.tree.serializable {
		c.genDump(file)
		c.genLoad(file)
	}
	for _, a := range c.attrs {
		if a.Access().CanRead() {
			c.genReader(file, a)
		}
		if a.Access().CanWrite() {
			if err := c.genWriter(file, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func codes(attrs []Attribute, code func(Attribute) string) []string {
	var out []string
	for _, a := range attrs {
		if s := code(a); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func markCode(a Attribute) string { return a.MarkCode() }
func freeCode(a Attribute) string { return a.FreeCode() }
func initCode(a Attribute) string { return a.InitCode() }

func (c *Class) shadowArg() string { return c.StructName() + " *shadow" }

// genMark emits mark_<struct>, or reuses the parent's when c adds
// nothing to mark.
func (c *Class) genMark(file *library.CFile) {
	p := c.Parent()
	if p != nil && len(codes(c.attrs, markCode)) == 0 {
		c.markFn = p.markFn
		return
	}
	c.markFn = "mark_" + c.StructName()
	fn := file.Function(c.markFn, cfunc.WithArgs(c.shadowArg()))
	fn.Body("rb_gc_mark(shadow->self)")
	for _, s := range codes(c.layout, markCode) {
		fn.Body(s)
	}
}

// genFree emits free_<struct>. Member release runs before the shell is
// freed.
func (c *Class) genFree(file *library.CFile) {
	p := c.Parent()
	if p != nil && len(codes(c.attrs, freeCode)) == 0 {
		c.freeFn = p.freeFn
		return
	}
	c.freeFn = "free_" + c.StructName()
	fn := file.Function(c.freeFn, cfunc.WithArgs(c.shadowArg()))
	for _, s := range codes(c.layout, freeCode) {
		fn.Body(s)
	}
	fn.Body("free(shadow)")
}

func (c *Class) makeStruct(klass string) string {
	return fmt.Sprintf(`object = Data_Make_Struct(%s,
           %s,
           %s,
           %s,
           shadow)`, klass, c.StructName(), c.markFn, c.freeFn)
}

// genAlloc emits the allocator used by allocate and by deserialization.
func (c *Class) genAlloc(file *library.CFile) {
	cv := c.ClassVar()
	name := "alloc_func_" + cv
	fn := file.Function(name, cfunc.WithReturnType("VALUE"), cfunc.WithArgs("VALUE klass"))
	fn.DeclareVar("object", "VALUE object")
	fn.DeclareVar("shadow", c.shadowArg())
	fn.Body(c.makeStruct("klass"), "shadow->self = object")
	for _, s := range codes(c.layout, initCode) {
		fn.Body(s)
	}
	fn.Returns("object")
	c.tree.lib.InitFunction().Body(fmt.Sprintf("rb_define_alloc_func(%s, %s)", cv, name))
}

// genNew emits the singleton new: allocate, initialize attributes, then
// call initialize with the given arguments.
func (c *Class) genNew(file *library.CFile) {
	fn := file.DefineMethod(cfunc.SingletonMethod, c.Name(), "new")
	fn.Aggregate()
	fn.DeclareVar("object", "VALUE object")
	fn.DeclareVar("shadow", c.shadowArg())
	fn.Body(c.makeStruct("self"), "shadow->self = object")
	for _, s := range codes(c.layout, initCode) {
		fn.Body(s)
	}
	fn.Body("rb_obj_call_init(object, argc, argv)")
	fn.Returns("object")
	fn.Impl = func(rt *host.Runtime, self host.Value, args []host.Value) (host.Value, error) {
		cls, ok := self.(*host.Class)
		if !ok {
			return nil, errors.Markf(errors.ErrTypeMismatch, "new called on %T", self)
		}
		obj, err := rt.Allocate(cls)
		if err != nil {
			return nil, err
		}
		if err := rt.Initialize(obj, args); err != nil {
			return nil, err
		}
		return obj, nil
	}
}

func (c *Class) getStruct(fn *cfunc.HostFunction) {
	fn.DeclareVar("shadow", c.shadowArg())
	fn.Setup("shadow", fmt.Sprintf("Data_Get_Struct(self, %s, shadow)", c.StructName()))
}

func persistent(attrs []Attribute) []Attribute {
	var out []Attribute
	for _, a := range attrs {
		if a.Persistent() {
			out = append(out, a)
		}
	}
	return out
}

// genDump emits _dump_data unless c adds no persistent attribute, in
// which case the inherited method already dumps the same values.
func (c *Class) genDump(file *library.CFile) {
	if c.Parent() != nil && len(persistent(c.attrs)) == 0 {
		return
	}
	fn := file.DefineMethod(cfunc.Method, c.Name(), host.DumpMethod)
	fn.Params()
	fn.DeclareVar("result", "VALUE result")
	c.getStruct(fn)
	fn.Body("result = rb_ary_new()")
	attrs := persistent(c.layout)
	for _, a := range attrs {
		fn.Body(a.DumpCode())
	}
	fn.Returns("result")
	fn.Impl = func(rt *host.Runtime, self host.Value, args []host.Value) (host.Value, error) {
		rec, err := RecordOf(self)
		if err != nil {
			return nil, err
		}
		out := host.NewArray()
		for _, a := range attrs {
			out.Push(a.Dump(rec))
		}
		return out, nil
	}
}

// genLoad emits _load_data. Persistent attributes consume one value each
// in dump order; the others are reset to their initial value.
func (c *Class) genLoad(file *library.CFile) {
	if c.Parent() != nil && len(c.attrs) == 0 {
		return
	}
	fn := file.DefineMethod(cfunc.Method, c.Name(), host.LoadMethod)
	_ = fn.Params("from_array")
	c.getStruct(fn)
	for _, a := range c.layout {
		code := a.InitCode()
		if a.Persistent() {
			code = a.LoadCode()
		}
		if strings.Contains(code, "tmp") {
			fn.DeclareVar("tmp", "VALUE tmp")
		}
		if code != "" {
			fn.Body(code)
		}
	}
	fn.Returns("from_array")
	layout := c.layout
	fn.Impl = func(rt *host.Runtime, self host.Value, args []host.Value) (host.Value, error) {
		rec, err := RecordOf(self)
		if err != nil {
			return nil, err
		}
		from, ok := args[0].(*host.Array)
		if !ok {
			return nil, errors.Markf(errors.ErrSerialization, "%s: expected an array, got %s", host.LoadMethod, rt.ClassOf(args[0]).Name())
		}
		for _, a := range layout {
			if !a.Persistent() {
				a.Init(rec)
				continue
			}
			if from.Len() == 0 {
				return nil, errors.Markf(errors.ErrSerialization, "%s: stream ended before %s", host.LoadMethod, a.Name())
			}
			if err := a.Load(rt, rec, from.Shift()); err != nil {
				return nil, errors.WrapMark(err, errors.ErrSerialization, "load "+a.Name())
			}
		}
		return from, nil
	}
}

func (c *Class) genReader(file *library.CFile, a Attribute) {
	fn := file.DefineMethod(cfunc.Method, c.Name(), a.Name())
	fn.Params()
	fn.DeclareVar("result", "VALUE result")
	c.getStruct(fn)
	fn.Body(a.ReaderCode())
	fn.Returns("result")
	fn.Impl = func(rt *host.Runtime, self host.Value, args []host.Value) (host.Value, error) {
		rec, err := RecordOf(self)
		if err != nil {
			return nil, err
		}
		return a.Get(rec), nil
	}
}

func (c *Class) genWriter(file *library.CFile, a Attribute) error {
	fn := file.DefineMethod(cfunc.Method, c.Name(), a.Name()+"=")
	spec := cfunc.ScanSpec{Required: []string{"arg"}}
	if t := a.TypeCheck(); t != "" {
		spec.Types = map[string]string{"arg": t}
	}
	if err := fn.Scan(spec); err != nil {
		return err
	}
	c.getStruct(fn)
	fn.Body(a.WriterCode())
	fn.Returns("arg")
	fn.Impl = func(rt *host.Runtime, self host.Value, args []host.Value) (host.Value, error) {
		rec, err := RecordOf(self)
		if err != nil {
			return nil, err
		}
		if err := a.Set(rt, rec, args[0]); err != nil {
			return nil, err
		}
		return args[0], nil
	}
	return nil
}
