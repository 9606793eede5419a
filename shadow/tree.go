package shadow

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/host"
	"github.com/teranos/cgen/library"
	"github.com/teranos/cgen/logger"
)

// Tree holds the shadow classes of one library.
type Tree struct {
	lib          *library.Library
	rt           *host.Runtime
	registry     *Registry
	serializable bool
	classes      map[*host.Class]*Class
	order        []*Class
	committed    bool
	log          *zap.SugaredLogger
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithRegistry sets the attribute plugin registry.
func WithRegistry(r *Registry) TreeOption { return func(t *Tree) { t.registry = r } }

// WithoutSerialization skips the dump and load methods.
func WithoutSerialization() TreeOption { return func(t *Tree) { t.serializable = false } }

// NewTree creates the shadow tree of lib, binding into rt. Code generation
// runs as a before-commit hook of lib and binding as an after-commit hook.
func NewTree(lib *library.Library, rt *host.Runtime, opts ...TreeOption) *Tree {
	t := &Tree{
		lib:          lib,
		rt:           rt,
		serializable: true,
		classes:      make(map[*host.Class]*Class),
		log:          logger.ChildLogger(logger.ComponentLogger("shadow"), logger.FieldLibrary, lib.Name()),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.registry == nil {
		t.registry = NewRegistry()
	}
	lib.BeforeCommit(t.generate)
	lib.AfterCommit(t.bind)
	return t
}

// Library returns the owning library.
func (t *Tree) Library() *library.Library { return t.lib }

// Runtime returns the host runtime.
func (t *Tree) Runtime() *host.Runtime { return t.rt }

// Registry returns the plugin registry.
func (t *Tree) Registry() *Registry { return t.registry }

// Serializable reports whether dump and load methods are generated.
func (t *Tree) Serializable() bool { return t.serializable }

func (t *Tree) frozen() bool { return t.committed || t.lib.Frozen() }

// Class returns the shadow of hc, creating it on first use. Until the
// library commits, instances of hc cannot be allocated.
func (t *Tree) Class(hc *host.Class) (*Class, error) {
	if c, ok := t.classes[hc]; ok {
		return c, nil
	}
	if t.frozen() {
		return nil, errors.Markf(errors.ErrCommitted, "shadow %s after %s committed", hc.Name(), t.lib.Name())
	}
	if hc.Builtin() {
		return nil, errors.Markf(errors.ErrInvalidName, "builtin class %s cannot be shadowed", hc.Name())
	}
	for _, a := range hc.Ancestors() {
		if owner, ok := a.Owner().(*Tree); ok && owner != t {
			return nil, errors.Markf(errors.ErrNameConflict, "%s is shadowed by library %s, not %s",
				a.Name(), owner.lib.Name(), t.lib.Name())
		}
	}

	hc.SetOwner(t)
	hc.SetAllocator(func(rt *host.Runtime, cls *host.Class) (*host.Object, error) {
		return nil, errors.Markf(errors.ErrNotCommitted, "%s: library %s is not committed", cls.Name(), t.lib.Name())
	})
	c := &Class{tree: t, host: hc}
	t.classes[hc] = c
	t.order = append(t.order, c)
	t.log.Debugw("shadowed class", logger.FieldClass, hc.Name())
	return c, nil
}

// Lookup finds the shadow of hc.
func (t *Tree) Lookup(hc *host.Class) (*Class, bool) {
	c, ok := t.classes[hc]
	return c, ok
}

// Classes returns the classes in commit order: every class after its
// shadowed ancestors, ties broken by name.
func (t *Tree) Classes() []*Class {
	children := make(map[*Class][]*Class)
	pending := make(map[*Class]int)
	var ready []*Class
	for _, c := range t.order {
		if p := c.Parent(); p != nil {
			children[p] = append(children[p], c)
			pending[c] = 1
		} else {
			ready = append(ready, c)
		}
	}

	out := make([]*Class, 0, len(t.order))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].Name() < ready[j].Name() })
		c := ready[0]
		ready = ready[1:]
		out = append(out, c)
		for _, d := range children[c] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	return out
}

// generate closes every class and emits its code.
func (t *Tree) generate(ctx context.Context, lib *library.Library) error {
	classes := t.Classes()
	for _, c := range classes {
		// Only classes sharing c's struct count: c up to its shadowed root.
		stop := c.Root().host.Super()
		for h := c.host; h != stop; h = h.Super() {
			if n := h.LiveInstances(); n > 0 {
				return errors.Markf(errors.ErrLiveInstances, "cannot commit %s: %s has %d live instances", c.Name(), h.Name(), n)
			}
		}
	}
	t.committed = true

	for _, c := range classes {
		if err := c.close(); err != nil {
			return errors.Wrapf(err, "close %s", c.Name())
		}
	}
	for _, c := range classes {
		if err := c.generate(); err != nil {
			return errors.Wrapf(err, "generate %s", c.Name())
		}
	}
	t.log.Infow("generated shadow classes", logger.FieldCount, len(classes))
	return nil
}

// bind installs allocation, marking and release into the host runtime
// once the library is loaded.
func (t *Tree) bind(ctx context.Context, lib *library.Library) error {
	if !lib.Loaded() {
		t.log.Infow("library not loaded; shadow classes stay unallocatable")
		return nil
	}
	for _, c := range t.Classes() {
		c.bind()
	}
	return nil
}

func (c *Class) bind() {
	c.host.SetAllocator(func(rt *host.Runtime, cls *host.Class) (*host.Object, error) {
		obj := rt.NewObject(cls)
		rec := newRecord(c, obj)
		for _, a := range c.layout {
			a.Init(rec)
		}
		obj.Data = rec
		return obj, nil
	})
	c.host.SetMark(func(obj *host.Object, visit func(host.Value)) {
		rec, ok := obj.Data.(*Record)
		if !ok {
			return
		}
		for _, a := range rec.Class.layout {
			a.Mark(rec, visit)
		}
	})
	c.host.SetFree(func(obj *host.Object) {
		rec, ok := obj.Data.(*Record)
		if !ok || rec.released {
			return
		}
		for _, a := range rec.Class.layout {
			a.Free(rec)
		}
		rec.released = true
	})
}
