package host

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Func is a host method implementation.
type Func func(rt *Runtime, self Value, args []Value) (Value, error)

// AllocFunc creates a bare instance of cls.
type AllocFunc func(rt *Runtime, cls *Class) (*Object, error)

// MarkFunc reports the values obj keeps alive.
type MarkFunc func(obj *Object, visit func(Value))

// FreeFunc releases what obj holds.
type FreeFunc func(obj *Object)

// Class is a host class.
type Class struct {
	rt        *Runtime
	name      string
	super     *Class
	builtin   bool
	methods   map[string]Func
	singleton map[string]Func
	alloc     AllocFunc
	mark      MarkFunc
	free      FreeFunc
	live      int
	owner     any
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Super returns the superclass, nil for the root.
func (c *Class) Super() *Class { return c.super }

// Builtin reports whether the runtime created c.
func (c *Class) Builtin() bool { return c.builtin }

// IsA reports whether c is other or inherits from it.
func (c *Class) IsA(other *Class) bool {
	for k := c; k != nil; k = k.super {
		if k == other {
			return true
		}
	}
	return false
}

// Ancestors returns c and its superclasses, nearest first.
func (c *Class) Ancestors() []*Class {
	var out []*Class
	for k := c; k != nil; k = k.super {
		out = append(out, k)
	}
	return out
}

// DefineMethod installs an instance method.
func (c *Class) DefineMethod(name string, f Func) {
	c.methods[name] = f
	c.rt.invalidate()
}

// DefineSingletonMethod installs a class-level method.
func (c *Class) DefineSingletonMethod(name string, f Func) {
	c.singleton[name] = f
	c.rt.invalidate()
}

// SetAllocator installs the allocation hook for c and subclasses without
// their own.
func (c *Class) SetAllocator(f AllocFunc) { c.alloc = f }

// SetMark installs the collector mark hook.
func (c *Class) SetMark(f MarkFunc) { c.mark = f }

// SetFree installs the release hook.
func (c *Class) SetFree(f FreeFunc) { c.free = f }

// SetOwner records which generator claims c. Generators use it to refuse
// classes claimed by another.
func (c *Class) SetOwner(v any) { c.owner = v }

// Owner returns the claiming generator, nil when unclaimed.
func (c *Class) Owner() any { return c.owner }

// LiveInstances reports how many instances of exactly c are alive.
func (c *Class) LiveInstances() int { return c.live }

// RespondTo reports whether instances of c answer name.
func (c *Class) RespondTo(name string) bool {
	_, ok := c.method(name)
	return ok
}

// DefinesOwn reports whether c itself, not an ancestor, defines name.
func (c *Class) DefinesOwn(name string) bool {
	_, ok := c.methods[name]
	return ok
}

func (c *Class) method(name string) (Func, bool) {
	for k := c; k != nil; k = k.super {
		if f, ok := k.methods[name]; ok {
			return f, true
		}
	}
	return nil, false
}

func (c *Class) singletonMethod(name string) (Func, bool) {
	for k := c; k != nil; k = k.super {
		if f, ok := k.singleton[name]; ok {
			return f, true
		}
	}
	return nil, false
}

func (c *Class) allocator() AllocFunc {
	for k := c; k != nil; k = k.super {
		if k.alloc != nil {
			return k.alloc
		}
	}
	return nil
}

func (c *Class) marker() MarkFunc {
	for k := c; k != nil; k = k.super {
		if k.mark != nil {
			return k.mark
		}
	}
	return nil
}

func (c *Class) freer() FreeFunc {
	for k := c; k != nil; k = k.super {
		if k.free != nil {
			return k.free
		}
	}
	return nil
}

// Object is a host instance. Data holds an attached native record.
type Object struct {
	class *Class
	ivars *orderedmap.OrderedMap[string, Value]
	Data  any
	freed bool
}

// Class returns the object's class.
func (o *Object) Class() *Class { return o.class }

// Ivar reads an instance variable.
func (o *Object) Ivar(name string) Value {
	v, _ := o.ivars.Get(name)
	return v
}

// SetIvar writes an instance variable.
func (o *Object) SetIvar(name string, v Value) { o.ivars.Set(name, Normalize(v)) }

// Ivars returns instance variable names in assignment order.
func (o *Object) Ivars() []string {
	out := make([]string, 0, o.ivars.Len())
	for p := o.ivars.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Freed reports whether the object has been released.
func (o *Object) Freed() bool { return o.freed }
