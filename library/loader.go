package library

import (
	"context"

	"github.com/teranos/cgen/cfunc"
	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/host"
	"github.com/teranos/cgen/logger"
)

// Loader binds a built library into a host runtime.
type Loader interface {
	Load(ctx context.Context, lib *Library, artifact string) error
}

// HostLoader binds the in-process twins of a library's host functions into
// a host.Runtime. The artifact is not opened.
type HostLoader struct {
	Runtime *host.Runtime
}

// NewHostLoader creates a loader for rt.
func NewHostLoader(rt *host.Runtime) *HostLoader { return &HostLoader{Runtime: rt} }

// Load implements Loader.
func (h *HostLoader) Load(ctx context.Context, lib *Library, artifact string) error {
	log := logger.ComponentLogger("loader")
	bound := 0
	for _, fn := range lib.HostFunctions() {
		if fn.Impl == nil {
			log.Debugw("no in-process implementation", logger.FieldFunction, fn.Name())
			continue
		}
		if err := h.bind(fn); err != nil {
			return err
		}
		bound++
	}
	log.Infow("bound library", logger.FieldLibrary, lib.Name(), logger.FieldCount, bound)
	return nil
}

func (h *HostLoader) bind(fn *cfunc.HostFunction) error {
	if fn.Kind() == cfunc.GlobalFunction {
		h.Runtime.DefineGlobal(fn.HostName(), fn.Call)
		return nil
	}
	cls, ok := h.Runtime.Class(fn.Owner())
	if !ok {
		return errors.Markf(errors.ErrNoMethod, "class %s of %s is not defined in the runtime", fn.Owner(), fn.Name())
	}
	switch fn.Kind() {
	case cfunc.Method:
		cls.DefineMethod(fn.HostName(), fn.Call)
	case cfunc.SingletonMethod:
		cls.DefineSingletonMethod(fn.HostName(), fn.Call)
	case cfunc.ModuleFunction:
		cls.DefineMethod(fn.HostName(), fn.Call)
		cls.DefineSingletonMethod(fn.HostName(), fn.Call)
	}
	return nil
}
