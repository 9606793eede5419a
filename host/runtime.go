package host

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/teranos/cgen/errors"
)

// Runtime owns the class table.
type Runtime struct {
	classes map[string]*Class
	globals map[string]Func
	methods *lru.Cache[methodKey, Func]

	Object, Integer, Float, String, Symbol, Array *Class
	NilClass, TrueClass, FalseClass, ClassClass  *Class
}

// NewRuntime creates a runtime populated with the builtin classes.
func NewRuntime() *Runtime {
	cache, err := lru.New[methodKey, Func](methodCacheSize)
	if err != nil {
		panic(err)
	}
	rt := &Runtime{
		classes: make(map[string]*Class),
		globals: make(map[string]Func),
		methods: cache,
	}
	rt.Object = rt.builtin("Object", nil)
	rt.Integer = rt.builtin("Integer", rt.Object)
	rt.Float = rt.builtin("Float", rt.Object)
	rt.String = rt.builtin("String", rt.Object)
	rt.Symbol = rt.builtin("Symbol", rt.Object)
	rt.Array = rt.builtin("Array", rt.Object)
	rt.NilClass = rt.builtin("NilClass", rt.Object)
	rt.TrueClass = rt.builtin("TrueClass", rt.Object)
	rt.FalseClass = rt.builtin("FalseClass", rt.Object)
	rt.ClassClass = rt.builtin("Class", rt.Object)
	rt.classes["TypeError"] = rt.builtin("TypeError", rt.Object)
	return rt
}

// methodKey identifies a cached dispatch. Singleton lookups use a separate
// namespace from instance lookups.
type methodKey struct {
	cls       *Class
	name      string
	singleton bool
}

const methodCacheSize = 4096

// lookup resolves name through cls's ancestry, caching hits. Any method
// definition anywhere invalidates the cache.
func (rt *Runtime) lookup(cls *Class, name string, singleton bool) (Func, bool) {
	key := methodKey{cls: cls, name: name, singleton: singleton}
	if f, ok := rt.methods.Get(key); ok {
		return f, true
	}
	var f Func
	var ok bool
	if singleton {
		f, ok = cls.singletonMethod(name)
	} else {
		f, ok = cls.method(name)
	}
	if ok {
		rt.methods.Add(key, f)
	}
	return f, ok
}

func (rt *Runtime) invalidate() { rt.methods.Purge() }

func (rt *Runtime) builtin(name string, super *Class) *Class {
	c := rt.newClass(name, super)
	c.builtin = true
	rt.classes[name] = c
	return c
}

func (rt *Runtime) newClass(name string, super *Class) *Class {
	return &Class{
		rt:        rt,
		name:      name,
		super:     super,
		methods:   make(map[string]Func),
		singleton: make(map[string]Func),
	}
}

// DefineClass creates a class, or returns the existing one when name is
// already defined with the same superclass. A nil super means Object.
func (rt *Runtime) DefineClass(name string, super *Class) (*Class, error) {
	if super == nil {
		super = rt.Object
	}
	if c, ok := rt.classes[name]; ok {
		if c.super != super {
			return nil, errors.Markf(errors.ErrNameConflict, "class %s already defined with superclass %s", name, c.super.Name())
		}
		return c, nil
	}
	c := rt.newClass(name, super)
	rt.classes[name] = c
	return c, nil
}

// Class looks up a class by name.
func (rt *Runtime) Class(name string) (*Class, bool) {
	c, ok := rt.classes[name]
	return c, ok
}

// Classes returns all class names, sorted.
func (rt *Runtime) Classes() []string {
	out := make([]string, 0, len(rt.classes))
	for n := range rt.classes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// DefineGlobal installs a global function.
func (rt *Runtime) DefineGlobal(name string, f Func) { rt.globals[name] = f }

// CallGlobal invokes a global function.
func (rt *Runtime) CallGlobal(name string, args ...Value) (Value, error) {
	f, ok := rt.globals[name]
	if !ok {
		return nil, errors.Markf(errors.ErrNoMethod, "undefined global function %s", name)
	}
	return f(rt, nil, normalizeAll(args))
}

// ClassOf returns the class of v.
func (rt *Runtime) ClassOf(v Value) *Class {
	switch x := Normalize(v).(type) {
	case nil:
		return rt.NilClass
	case bool:
		if x {
			return rt.TrueClass
		}
		return rt.FalseClass
	case int64:
		return rt.Integer
	case float64:
		return rt.Float
	case string:
		return rt.String
	case Symbol:
		return rt.Symbol
	case *Array:
		return rt.Array
	case *Object:
		return x.class
	case *Class:
		return rt.ClassClass
	}
	return rt.Object
}

// KindOf reports whether v is an instance of c or a subclass.
func (rt *Runtime) KindOf(v Value, c *Class) bool {
	return rt.ClassOf(v).IsA(c)
}

// Call dispatches name on recv. Classes answer singleton methods and the
// builtin new and allocate.
func (rt *Runtime) Call(recv Value, name string, args ...Value) (Value, error) {
	args = normalizeAll(args)
	if cls, ok := recv.(*Class); ok {
		if f, ok := rt.lookup(cls, name, true); ok {
			return f(rt, cls, args)
		}
		switch name {
		case "new":
			return rt.defaultNew(cls, args)
		case "allocate":
			return rt.Allocate(cls)
		case "name":
			return cls.name, nil
		}
		return nil, errors.Markf(errors.ErrNoMethod, "undefined method %s for class %s", name, cls.name)
	}
	cls := rt.ClassOf(recv)
	if f, ok := rt.lookup(cls, name, false); ok {
		return f(rt, recv, args)
	}
	if name == "class" {
		return cls, nil
	}
	return nil, errors.Markf(errors.ErrNoMethod, "undefined method %s for %s", name, Inspect(recv))
}

// New constructs an instance through the class's new.
func (rt *Runtime) New(cls *Class, args ...Value) (*Object, error) {
	v, err := rt.Call(cls, "new", args...)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, errors.Markf(errors.ErrTypeMismatch, "%s.new returned %s", cls.name, Inspect(v))
	}
	return obj, nil
}

func (rt *Runtime) defaultNew(cls *Class, args []Value) (Value, error) {
	obj, err := rt.Allocate(cls)
	if err != nil {
		return nil, err
	}
	if err := rt.Initialize(obj, args); err != nil {
		return nil, err
	}
	return obj, nil
}

// Initialize runs the initialize method if obj's class has one.
func (rt *Runtime) Initialize(obj *Object, args []Value) error {
	if f, ok := rt.lookup(obj.class, "initialize", false); ok {
		_, err := f(rt, obj, args)
		return err
	}
	return nil
}

// Allocate creates a bare instance through the nearest allocator.
func (rt *Runtime) Allocate(cls *Class) (*Object, error) {
	if cls.builtin && cls != rt.Object {
		return nil, errors.Markf(errors.ErrNoMethod, "allocator undefined for %s", cls.name)
	}
	var obj *Object
	if alloc := cls.allocator(); alloc != nil {
		o, err := alloc(rt, cls)
		if err != nil {
			return nil, err
		}
		obj = o
	} else {
		obj = rt.NewObject(cls)
	}
	cls.live++
	return obj, nil
}

// NewObject creates the bare object shell. Allocators call it.
func (rt *Runtime) NewObject(cls *Class) *Object {
	return &Object{class: cls, ivars: orderedmap.New[string, Value]()}
}

// Free releases obj: the class release hook runs, then the shell is gone.
func (rt *Runtime) Free(obj *Object) {
	if obj.freed {
		return
	}
	if f := obj.class.freer(); f != nil {
		f(obj)
	}
	obj.freed = true
	obj.class.live--
}

// Mark reports the values obj keeps alive: its instance variables, then
// whatever the class mark hook visits.
func (rt *Runtime) Mark(obj *Object, visit func(Value)) {
	for p := obj.ivars.Oldest(); p != nil; p = p.Next() {
		visit(p.Value)
	}
	if m := obj.class.marker(); m != nil {
		m(obj, visit)
	}
}

// Reachable returns every object reachable from root, root first, in
// discovery order.
func (rt *Runtime) Reachable(root Value) []*Object {
	var out []*Object
	seen := make(map[*Object]bool)
	var walk func(v Value)
	walk = func(v Value) {
		switch x := v.(type) {
		case *Object:
			if seen[x] {
				return
			}
			seen[x] = true
			out = append(out, x)
			rt.Mark(x, walk)
		case *Array:
			for _, e := range x.Items {
				walk(e)
			}
		}
	}
	walk(root)
	return out
}

func normalizeAll(args []Value) []Value {
	out := make([]Value, len(args))
	for i, a := range args {
		out[i] = Normalize(a)
	}
	return out
}
