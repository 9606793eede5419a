package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cgen/cfunc"
	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/host"
	"github.com/teranos/cgen/toolchain"
)

func newLib(t *testing.T, opts ...Option) *Library {
	t.Helper()
	opts = append([]Option{WithBaseDir(t.TempDir())}, opts...)
	lib, err := New("shapes", opts...)
	require.NoError(t, err)
	return lib
}

func defineHello(t *testing.T, lib *Library) *cfunc.HostFunction {
	t.Helper()
	fn := lib.DefineMethod(cfunc.GlobalFunction, "", "hello")
	require.NoError(t, fn.Params("who"))
	fn.Returns("who")
	fn.Impl = func(rt *host.Runtime, self host.Value, args []host.Value) (host.Value, error) {
		return "hello " + args[0].(string), nil
	}
	return fn
}

func TestNewRejectsBadName(t *testing.T) {
	_, err := New("not a name")
	assert.True(t, errors.Is(err, errors.ErrInvalidName))
}

func TestRender(t *testing.T) {
	lib := newLib(t)
	defineHello(t, lib)

	files := lib.RenderFiles()
	assert.Equal(t, []string{"libmain.c", "libmain.h"}, lib.FileNames())

	wantHeader := "#ifndef CGEN_SHAPES_LIBMAIN_H\n" +
		"#define CGEN_SHAPES_LIBMAIN_H\n" +
		"\n" +
		"#include <ruby.h>\n" +
		"\n" +
		"void Init_shapes(void);\n" +
		"VALUE hello_global_function(VALUE self, VALUE who);\n" +
		"\n" +
		"#endif\n"
	assert.Equal(t, wantHeader, files["libmain.h"])

	wantSource := "#include \"libmain.h\"\n" +
		"\n" +
		"void Init_shapes(void)\n" +
		"{\n" +
		"    rb_define_global_function(\"hello\", hello_global_function, 1);\n" +
		"}\n" +
		"\n" +
		"VALUE hello_global_function(VALUE self, VALUE who)\n" +
		"{\n" +
		"    return who;\n" +
		"}\n"
	assert.Equal(t, wantSource, files["libmain.c"])
	assert.Equal(t, files, lib.RenderFiles(), "rendering is pure")
}

func TestSymbolsAndClasses(t *testing.T) {
	lib := newLib(t)
	assert.Equal(t, "ID_to__s", lib.DeclareSymbol("to_s"))
	assert.Equal(t, "ID_to__s", lib.DeclareSymbol("to_s"))
	assert.Equal(t, "module_Point", lib.DeclareClass("Point"))

	files := lib.RenderFiles()
	assert.Contains(t, files["libmain.h"], "extern ID ID_to__s;\nextern VALUE module_Point;")
	assert.Contains(t, files["libmain.c"], "ID ID_to__s;\nVALUE module_Point;")
	assert.Contains(t, files["libmain.c"], "    ID_to__s = rb_intern(\"to_s\");\n    module_Point = rb_eval_string(\"Point\");")
	assert.Equal(t, []string{"to_s"}, lib.Symbols())
	assert.Equal(t, []string{"Point"}, lib.Classes())
}

func TestAddFile(t *testing.T) {
	lib := newLib(t)
	geo, err := lib.AddFile("geometry")
	require.NoError(t, err)

	_, err = lib.AddFile("geometry")
	assert.True(t, errors.Is(err, errors.ErrNameConflict))
	_, err = lib.AddFile(MainFile)
	assert.True(t, errors.Is(err, errors.ErrNameConflict))
	_, err = lib.AddFile("bad-name")
	assert.True(t, errors.Is(err, errors.ErrInvalidName))

	area := geo.DefineMethod(cfunc.Method, "Shape", "area")
	area.Returns("INT2FIX(0)")
	geo.Include("math.h")

	files := lib.RenderFiles()
	assert.Contains(t, files["libmain.h"], "#include <ruby.h>\n#include \"geometry.h\"")
	assert.Contains(t, files["geometry.h"], "#include <math.h>")
	assert.Contains(t, files["geometry.h"], "VALUE area_module_Shape_method(VALUE self);")
	assert.Contains(t, files["geometry.c"], "#include \"libmain.h\"")
	assert.Contains(t, files["geometry.c"], "VALUE area_module_Shape_method(VALUE self)\n{\n    return INT2FIX(0);\n}")
	assert.Contains(t, files["libmain.c"], `rb_define_method(module_Shape, "area", area_module_Shape_method, 0);`)
	assert.Contains(t, files["libmain.h"], "extern VALUE module_Shape;")

	again := lib.DefineMethod(cfunc.Method, "Shape", "area")
	assert.Same(t, area, again)
	assert.NotContains(t, lib.RenderFiles()["libmain.c"], "area_module_Shape_method(VALUE self)\n{", "defined once, in its own file")
}

func TestSetDirOnce(t *testing.T) {
	lib := newLib(t)
	require.NoError(t, lib.SetDir(t.TempDir()))
	assert.True(t, errors.Is(lib.SetDir("elsewhere"), errors.ErrAlreadyPlaced))
}

func TestCommitBuildsAndLoads(t *testing.T) {
	rec := &toolchain.Recorder{Deps: "libmain.o: libmain.c libmain.h\n"}
	rt := host.NewRuntime()
	var order []string
	lib := newLib(t, WithToolchain(rec), WithLoader(NewHostLoader(rt)), WithFlags([]string{"-O2"}, []string{"-shared"}))
	lib.BeforeCommit(func(ctx context.Context, l *Library) error {
		order = append(order, "before")
		defineHello(t, l)
		return nil
	})
	lib.AfterCommit(func(ctx context.Context, l *Library) error {
		order = append(order, "after")
		assert.True(t, l.Loaded())
		return nil
	})

	require.NoError(t, lib.Commit(context.Background()))
	assert.Equal(t, []string{"before", "after"}, order)
	assert.Equal(t, []toolchain.Step{toolchain.StepDepend, toolchain.StepConfigure, toolchain.StepCompile, toolchain.StepLink}, rec.Ran())

	dir := lib.Dir()
	for _, name := range []string{"libmain.c", "libmain.h", DependFile, toolchain.BuildFileName, BuildLogFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	deps, err := os.ReadFile(filepath.Join(dir, DependFile))
	require.NoError(t, err)
	assert.Equal(t, rec.Deps, string(deps))
	assert.Equal(t, []string{"-O2"}, rec.Specs[0].CFlags)

	v, err := rt.CallGlobal("hello", "world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", v)

	err = lib.Commit(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCommitted))

	_, err = lib.AddFile("late")
	assert.True(t, errors.Is(err, errors.ErrCommitted))
	assert.Panics(t, func() { lib.Main().Include("late.h") }, "the tree is frozen after commit")
}

func TestFailedBeforeHookAllowsRetry(t *testing.T) {
	lib := newLib(t)
	fail := true
	lib.BeforeCommit(func(ctx context.Context, l *Library) error {
		if fail {
			return errors.Markf(errors.ErrLiveInstances, "not yet")
		}
		return nil
	})

	err := lib.Commit(context.Background())
	assert.True(t, errors.Is(err, errors.ErrLiveInstances))
	assert.False(t, lib.Committed())
	assert.False(t, lib.Frozen())

	fail = false
	require.NoError(t, lib.Commit(context.Background()))
	assert.True(t, lib.Committed())
}

func TestCommitEmptySkipsBuild(t *testing.T) {
	rec := &toolchain.Recorder{}
	lib := newLib(t, WithToolchain(rec))
	assert.True(t, lib.Empty())
	require.NoError(t, lib.Commit(context.Background()))
	assert.Empty(t, rec.Ran())
	assert.FileExists(t, filepath.Join(lib.Dir(), "libmain.h"))
}

func TestCommitBuildFailure(t *testing.T) {
	rec := &toolchain.Recorder{FailAt: toolchain.StepCompile}
	lib := newLib(t, WithToolchain(rec))
	defineHello(t, lib)

	err := lib.Commit(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBuildFailed))
	assert.True(t, errors.IsCommitError(err))

	log, readErr := os.ReadFile(filepath.Join(lib.Dir(), BuildLogFile))
	require.NoError(t, readErr)
	assert.Contains(t, string(log), "recorded failure")
	assert.Contains(t, string(log), "$ depend")
}

func TestCommitDirIsFile(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "shapes")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	lib, err := New("shapes", WithBaseDir(base))
	require.NoError(t, err)
	err = lib.Commit(context.Background())
	assert.True(t, errors.Is(err, errors.ErrFilesystem))
}

func TestWriteFilesOnlyWhenChanged(t *testing.T) {
	dir := t.TempDir()

	first := newLib(t)
	defineHello(t, first)
	written, err := first.WriteFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"libmain.c", "libmain.h"}, written)

	old := time.Now().Add(-time.Hour)
	for _, name := range written {
		require.NoError(t, os.Chtimes(filepath.Join(dir, name), old, old))
	}

	second := newLib(t)
	defineHello(t, second)
	written, err = second.WriteFiles(dir)
	require.NoError(t, err)
	assert.Empty(t, written, "identical output rewrites nothing")

	st, err := os.Stat(filepath.Join(dir, "libmain.c"))
	require.NoError(t, err)
	assert.True(t, st.ModTime().Equal(old))
}

func TestCheck(t *testing.T) {
	lib := newLib(t)
	defineHello(t, lib)
	dir := t.TempDir()

	stale, err := lib.Check(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"libmain.c", "libmain.h"}, stale)

	_, err = lib.WriteFiles(dir)
	require.NoError(t, err)
	stale, err = lib.Check(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, stale)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "libmain.c"), []byte("edited"), 0o644))
	stale, err = lib.Check(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"libmain.c"}, stale)
}

func TestHookFailureStopsCommit(t *testing.T) {
	lib := newLib(t)
	lib.BeforeCommit(func(ctx context.Context, l *Library) error {
		return errors.Markf(errors.ErrLiveInstances, "Point has live instances")
	})
	err := lib.Commit(context.Background())
	assert.True(t, errors.Is(err, errors.ErrLiveInstances))
	_, statErr := os.Stat(lib.Dir())
	assert.True(t, os.IsNotExist(statErr), "nothing is written when a hook fails")
}

func TestHostLoaderMissingClass(t *testing.T) {
	rt := host.NewRuntime()
	lib := newLib(t, WithToolchain(&toolchain.Recorder{}), WithLoader(NewHostLoader(rt)))
	fn := lib.DefineMethod(cfunc.Method, "Missing", "m")
	fn.Returns("Qnil")
	fn.Impl = func(rt *host.Runtime, self host.Value, args []host.Value) (host.Value, error) { return nil, nil }

	err := lib.Commit(context.Background())
	assert.True(t, errors.Is(err, errors.ErrNoMethod))
}
