package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/kballard/go-shellquote"
	"github.com/xyproto/env/v2"
	"go.uber.org/zap"

	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/logger"
)

// DefaultCompiler is the compiler used when none is configured: $CC or cc.
func DefaultCompiler() string { return env.Str("CC", "cc") }

// CC builds with a Unix C compiler driver.
type CC struct {
	// Compiler is the driver command, possibly with leading arguments.
	Compiler string
	// Version, when set, is a semver constraint the compiler must satisfy.
	Version string

	log *zap.SugaredLogger
}

// NewCC creates a toolchain around compiler.
func NewCC(compiler, version string) *CC {
	if compiler == "" {
		compiler = DefaultCompiler()
	}
	return &CC{
		Compiler: compiler,
		Version:  version,
		log:      logger.ComponentLogger("toolchain"),
	}
}

// SplitFlags splits a shell-quoted flag string.
func SplitFlags(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	words, err := shellquote.Split(s)
	if err != nil {
		return nil, errors.Wrapf(err, "split flags %q", s)
	}
	return words, nil
}

func (c *CC) command() ([]string, error) {
	words, err := SplitFlags(c.Compiler)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, errors.New("no compiler configured")
	}
	return words, nil
}

// run executes the compiler in dir and returns the combined transcript.
func (c *CC) run(ctx context.Context, dir string, args ...string) (string, string, error) {
	base, err := c.command()
	if err != nil {
		return "", "", err
	}
	argv := append(base, args...)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	start := time.Now()
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()

	line := "$ " + shellquote.Join(argv...)
	transcript := line + "\n" + stdout.String() + stderr.String()
	c.log.Debugw("ran compiler",
		logger.FieldCommand, line,
		logger.FieldDir, dir,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return stdout.String(), transcript, err
}

func (c *CC) includeArgs(spec *Spec) []string {
	var out []string
	for _, d := range spec.IncludeDirs {
		out = append(out, "-I", d)
	}
	return out
}

// Depend asks the compiler for make-style dependency rules.
func (c *CC) Depend(ctx context.Context, spec *Spec) (Result, error) {
	args := append([]string{"-MM"}, spec.CFlags...)
	args = append(args, c.includeArgs(spec)...)
	args = append(args, spec.Sources...)
	out, transcript, err := c.run(ctx, spec.Dir, args...)
	if err != nil {
		return Result{Transcript: transcript}, Failed(StepDepend, transcript, err)
	}
	return Result{Output: out, Transcript: transcript}, nil
}

// Configure checks the compiler version against the constraint.
func (c *CC) Configure(ctx context.Context, spec *Spec) (Result, error) {
	out, transcript, err := c.run(ctx, spec.Dir, "-dumpversion")
	if err != nil {
		return Result{Transcript: transcript}, Failed(StepConfigure, transcript, err)
	}
	if c.Version == "" {
		return Result{Output: strings.TrimSpace(out), Transcript: transcript}, nil
	}
	if err := CheckVersion(strings.TrimSpace(out), c.Version); err != nil {
		return Result{Transcript: transcript}, Failed(StepConfigure, transcript, err)
	}
	return Result{Output: strings.TrimSpace(out), Transcript: transcript}, nil
}

// CheckVersion reports whether version satisfies constraint.
func CheckVersion(version, constraint string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(err, "parse compiler version %q", version)
	}
	con, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(err, "parse version constraint %q", constraint)
	}
	if !con.Check(v) {
		return errors.Newf("compiler version %s does not satisfy %s", v, constraint)
	}
	return nil
}

// Compile compiles each source whose object is older than the source or
// any header in the build directory.
func (c *CC) Compile(ctx context.Context, spec *Spec) (Result, error) {
	var transcripts []string
	changed := false
	newestHeader := newest(spec.Dir, spec.Headers)
	for _, src := range spec.Sources {
		obj := strings.TrimSuffix(src, filepath.Ext(src)) + ".o"
		if upToDate(filepath.Join(spec.Dir, obj), newestHeader, filepath.Join(spec.Dir, src)) {
			continue
		}
		args := append([]string{"-c"}, spec.CFlags...)
		args = append(args, c.includeArgs(spec)...)
		args = append(args, "-o", obj, src)
		_, transcript, err := c.run(ctx, spec.Dir, args...)
		transcripts = append(transcripts, transcript)
		if err != nil {
			all := strings.Join(transcripts, "")
			return Result{Transcript: all}, Failed(StepCompile, all, err)
		}
		changed = true
	}
	return Result{Transcript: strings.Join(transcripts, ""), Changed: changed}, nil
}

// Link links the objects into the shared library unless it is newer than
// every object.
func (c *CC) Link(ctx context.Context, spec *Spec) (Result, error) {
	artifact := spec.Artifact()
	var objs []string
	for _, src := range spec.Sources {
		objs = append(objs, strings.TrimSuffix(src, filepath.Ext(src))+".o")
	}
	path := filepath.Join(spec.Dir, artifact)

	objPaths := make([]string, len(objs))
	for i, o := range objs {
		objPaths[i] = filepath.Join(spec.Dir, o)
	}
	if upToDate(path, time.Time{}, objPaths...) {
		return Result{Output: path}, nil
	}

	args := append([]string{}, spec.LDFlags...)
	args = append(args, "-o", artifact)
	args = append(args, objs...)
	_, transcript, err := c.run(ctx, spec.Dir, args...)
	if err != nil {
		return Result{Transcript: transcript}, Failed(StepLink, transcript, err)
	}
	return Result{Output: path, Transcript: transcript, Changed: true}, nil
}

func newest(dir string, files []string) time.Time {
	var t time.Time
	for _, f := range files {
		if st, err := os.Stat(filepath.Join(dir, f)); err == nil && st.ModTime().After(t) {
			t = st.ModTime()
		}
	}
	return t
}

// upToDate reports whether target exists and is newer than floor and every
// input.
func upToDate(target string, floor time.Time, inputs ...string) bool {
	st, err := os.Stat(target)
	if err != nil {
		return false
	}
	if !st.ModTime().After(floor) {
		return false
	}
	for _, in := range inputs {
		ist, err := os.Stat(in)
		if err != nil || !st.ModTime().After(ist.ModTime()) {
			return false
		}
	}
	return true
}

// String describes the toolchain for logs.
func (c *CC) String() string { return fmt.Sprintf("cc(%s)", c.Compiler) }
