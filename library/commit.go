package library

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/logger"
	"github.com/teranos/cgen/toolchain"
)

// Generated bookkeeping files in the library directory.
const (
	DependFile   = "depend"
	BuildLogFile = "build.log"
)

// Prepare runs the before-commit hooks and freezes the tree. It runs at
// most once; Commit calls it, and so do Render-only callers that want the
// hook-generated code without building.
func (l *Library) Prepare(ctx context.Context) error {
	if l.prepared {
		return nil
	}
	for i, h := range l.before {
		if err := h(ctx, l); err != nil {
			return errors.Wrapf(err, "before-commit hook %d of %s", i, l.Name())
		}
	}
	l.prepared = true
	return nil
}

// RenderFiles returns every generated file keyed by file name.
func (l *Library) RenderFiles() map[string]string {
	out := make(map[string]string, 2*len(l.files))
	for _, f := range l.files {
		out[f.HeaderName()] = f.RenderHeader()
		out[f.SourceName()] = f.RenderSource()
	}
	return out
}

// FileNames returns the generated file names, sorted.
func (l *Library) FileNames() []string {
	var out []string
	for _, f := range l.files {
		out = append(out, f.HeaderName(), f.SourceName())
	}
	sort.Strings(out)
	return out
}

// Commit prepares, writes, builds and loads the library, then runs the
// after-commit hooks. A library commits at most once; a before-commit hook
// failure leaves it uncommitted so the caller may fix the cause and retry.
func (l *Library) Commit(ctx context.Context) error {
	if l.committed {
		return errors.Markf(errors.ErrCommitted, "library %s already committed", l.Name())
	}
	start := time.Now()

	if err := l.Prepare(ctx); err != nil {
		return err
	}
	l.committed = true

	dir := l.Dir()
	written, err := l.WriteFiles(dir)
	if err != nil {
		return err
	}
	l.log.Infow("wrote library",
		logger.FieldDir, dir,
		logger.FieldChanged, written,
		logger.FieldCount, len(l.files)*2)

	if l.Empty() {
		l.log.Infow("library is empty; skipping build and load")
	} else {
		artifact, err := l.build(ctx, dir)
		if err != nil {
			return err
		}
		if l.loader != nil {
			if err := l.loader.Load(ctx, l, artifact); err != nil {
				return errors.Wrapf(err, "load %s", l.Name())
			}
			l.loaded = true
		}
	}

	for i, h := range l.after {
		if err := h(ctx, l); err != nil {
			return errors.Wrapf(err, "after-commit hook %d of %s", i, l.Name())
		}
	}
	l.log.Debugw("commit finished", logger.FieldDurationMS, time.Since(start).Milliseconds())
	return nil
}

// WriteFiles writes the rendered files into dir, touching only files whose
// content changed. It returns the names written.
func (l *Library) WriteFiles(dir string) ([]string, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	files := l.RenderFiles()
	var written []string
	for _, name := range l.FileNames() {
		changed, err := toolchain.WriteIfChanged(filepath.Join(dir, name), []byte(files[name]))
		if err != nil {
			return written, err
		}
		if changed {
			written = append(written, name)
			l.log.Debugw("file changed", logger.FieldFile, name)
		}
	}
	return written, nil
}

func ensureDir(dir string) error {
	st, err := os.Stat(dir)
	switch {
	case err == nil && !st.IsDir():
		return errors.Markf(errors.ErrFilesystem, "%s exists and is not a directory", dir)
	case err == nil:
		return nil
	case !os.IsNotExist(err):
		return errors.WrapMark(err, errors.ErrFilesystem, "stat "+dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapMark(err, errors.ErrFilesystem, "create "+dir)
	}
	return nil
}

// Spec describes the build of l in dir.
func (l *Library) Spec(dir string) *toolchain.Spec {
	spec := &toolchain.Spec{
		Library:     l.Name(),
		Dir:         dir,
		CFlags:      l.cflags,
		LDFlags:     l.ldflags,
		IncludeDirs: l.includeDirs,
	}
	for _, f := range l.files {
		spec.Sources = append(spec.Sources, f.SourceName())
		spec.Headers = append(spec.Headers, f.HeaderName())
	}
	return spec
}

func (l *Library) build(ctx context.Context, dir string) (string, error) {
	if l.toolchain == nil {
		l.log.Infow("no toolchain configured; skipping build")
		return "", nil
	}
	spec := l.Spec(dir)

	var transcript strings.Builder
	defer func() {
		if transcript.Len() > 0 {
			if err := appendLog(filepath.Join(dir, BuildLogFile), transcript.String()); err != nil {
				l.log.Warnw("cannot write build log", logger.FieldError, err)
			}
		}
	}()

	step := func(name toolchain.Step, run func(context.Context, *toolchain.Spec) (toolchain.Result, error)) (toolchain.Result, error) {
		start := time.Now()
		res, err := run(ctx, spec)
		transcript.WriteString(res.Transcript)
		var be *toolchain.BuildError
		if err != nil && res.Transcript == "" && errors.As(err, &be) {
			transcript.WriteString(be.Transcript)
		}
		if err != nil {
			l.log.Errorw("build step failed", logger.FieldStep, string(name), logger.FieldError, err)
			return res, err
		}
		logStep := l.log.Debugw
		if l.showTimes {
			logStep = l.log.Infow
		}
		logStep("build step", logger.FieldStep, string(name), logger.FieldDurationMS, time.Since(start).Milliseconds())
		return res, nil
	}

	deps, err := step(toolchain.StepDepend, l.toolchain.Depend)
	if err != nil {
		return "", err
	}
	if _, err := toolchain.WriteIfChanged(filepath.Join(dir, DependFile), []byte(deps.Output)); err != nil {
		return "", err
	}
	if _, err := toolchain.WriteBuildFile(spec); err != nil {
		return "", err
	}
	if _, err := step(toolchain.StepConfigure, l.toolchain.Configure); err != nil {
		return "", err
	}
	if _, err := step(toolchain.StepCompile, l.toolchain.Compile); err != nil {
		return "", err
	}
	linked, err := step(toolchain.StepLink, l.toolchain.Link)
	if err != nil {
		return "", err
	}
	return linked.Output, nil
}

func appendLog(path, text string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Check compares the rendered files against dir and returns the names that
// are missing or differ, sorted.
func (l *Library) Check(ctx context.Context, dir string) ([]string, error) {
	if err := l.Prepare(ctx); err != nil {
		return nil, err
	}
	files := l.RenderFiles()
	var stale []string
	for _, name := range l.FileNames() {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				stale = append(stale, name)
				continue
			}
			return nil, errors.WrapMark(err, errors.ErrFilesystem, "read "+name)
		}
		if string(data) != files[name] {
			stale = append(stale, name)
		}
	}
	return stale, nil
}
