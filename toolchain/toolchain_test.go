package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cgen/errors"
)

// fakeCC is a shell script standing in for a compiler driver. It answers
// -dumpversion and -MM and creates whatever -o names.
const fakeCC = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -dumpversion) echo "12.2.0"; exit 0 ;;
    -MM) echo "libmain.o: libmain.c libmain.h"; exit 0 ;;
    -o) shift; out="$1" ;;
    *fail*) echo "error: $1" >&2; exit 1 ;;
  esac
  shift
done
[ -n "$out" ] && : > "$out"
exit 0
`

func writeFakeCC(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a shell script")
	}
	path := filepath.Join(t.TempDir(), "fakecc")
	require.NoError(t, os.WriteFile(path, []byte(fakeCC), 0o755))
	return path
}

func newSpec(t *testing.T) *Spec {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "libmain.c"), []byte("int x;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "libmain.h"), []byte("extern int x;\n"), 0o644))
	return &Spec{
		Library: "shapes",
		Dir:     dir,
		Sources: []string{"libmain.c"},
		Headers: []string{"libmain.h"},
		CFlags:  []string{"-O2"},
		LDFlags: []string{"-shared"},
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		version, constraint string
		ok                  bool
	}{
		{"12.2.0", ">= 9", true},
		{"8.3.0", ">= 9", false},
		{"12", "^12.0", true},
		{"not-a-version", ">= 1", false},
	}
	for _, tt := range tests {
		t.Run(tt.version+" "+tt.constraint, func(t *testing.T) {
			err := CheckVersion(tt.version, tt.constraint)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSplitFlags(t *testing.T) {
	words, err := SplitFlags(`-O2 -DNAME="a b" -Wall`)
	require.NoError(t, err)
	assert.Equal(t, []string{"-O2", "-DNAME=a b", "-Wall"}, words)

	words, err = SplitFlags("   ")
	require.NoError(t, err)
	assert.Nil(t, words)

	_, err = SplitFlags(`"unterminated`)
	assert.Error(t, err)
}

func TestWriteIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.c")

	changed, err := WriteIfChanged(path, []byte("a"))
	require.NoError(t, err)
	assert.True(t, changed)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	changed, err = WriteIfChanged(path, []byte("a"))
	require.NoError(t, err)
	assert.False(t, changed)
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, st.ModTime().Equal(old), "unchanged file keeps its timestamp")

	changed, err = WriteIfChanged(path, []byte("b"))
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestBuildFile(t *testing.T) {
	spec := newSpec(t)
	changed, err := WriteBuildFile(spec)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = WriteBuildFile(spec)
	require.NoError(t, err)
	assert.False(t, changed)

	bf, err := ReadBuildFile(spec.Dir)
	require.NoError(t, err)
	assert.Equal(t, "libshapes.so", bf.Artifact)
	assert.Equal(t, []string{"libmain.c"}, bf.Sources)
	assert.Equal(t, []string{}, bf.IncludeDirs)
}

func TestRecorderFailure(t *testing.T) {
	r := &Recorder{FailAt: StepCompile}
	spec := newSpec(t)
	ctx := context.Background()

	_, err := r.Depend(ctx, spec)
	require.NoError(t, err)
	_, err = r.Compile(ctx, spec)
	require.Error(t, err)

	assert.True(t, errors.Is(err, errors.ErrBuildFailed))
	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, StepCompile, be.Step)
	assert.Contains(t, be.Transcript, "recorded failure")
	assert.Equal(t, []Step{StepDepend, StepCompile}, r.Ran())
}

func TestCCBuild(t *testing.T) {
	cc := NewCC(writeFakeCC(t), ">= 9")
	spec := newSpec(t)
	ctx := context.Background()

	res, err := cc.Depend(ctx, spec)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "libmain.o: libmain.c libmain.h")

	res, err = cc.Configure(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, "12.2.0", res.Output)

	res, err = cc.Compile(ctx, spec)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.FileExists(t, filepath.Join(spec.Dir, "libmain.o"))

	res, err = cc.Link(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(spec.Dir, "libshapes.so"), res.Output)
	assert.Contains(t, res.Transcript, "-shared")

	// make every product strictly newer than its inputs
	past := time.Now().Add(-time.Hour)
	for _, f := range []string{"libmain.c", "libmain.h"} {
		require.NoError(t, os.Chtimes(filepath.Join(spec.Dir, f), past, past))
	}
	soon := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(spec.Dir, "libmain.o"), soon, soon))

	res, err = cc.Compile(ctx, spec)
	require.NoError(t, err)
	assert.False(t, res.Changed, "up-to-date objects are not rebuilt")

	res, err = cc.Link(ctx, spec)
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestCCFailureCarriesTranscript(t *testing.T) {
	cc := NewCC(writeFakeCC(t), "")
	spec := newSpec(t)
	spec.CFlags = []string{"-fail-here"}

	_, err := cc.Compile(context.Background(), spec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBuildFailed))

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, StepCompile, be.Step)
	assert.Contains(t, be.Transcript, "error: -fail-here")
	assert.Contains(t, errors.FlattenDetails(err), "error: -fail-here")
}

func TestCCVersionConstraint(t *testing.T) {
	cc := NewCC(writeFakeCC(t), ">= 13")
	_, err := cc.Configure(context.Background(), newSpec(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBuildFailed))
}
