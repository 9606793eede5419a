package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/teranos/cgen/config"
	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/host"
	"github.com/teranos/cgen/library"
	"github.com/teranos/cgen/manifest"
	"github.com/teranos/cgen/shadow"
	"github.com/teranos/cgen/toolchain"
)

// errStale marks a check that found out-of-date files.
var errStale = errors.New("generated files are out of date")

var current *config.Config

// LoadConfig loads settings from path, or from the usual search locations
// when path is empty, and makes them current for every command.
func LoadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	current = cfg
	return cfg, nil
}

// SetConfig replaces the current settings.
func SetConfig(cfg *config.Config) { current = cfg }

func currentConfig() (*config.Config, error) {
	if current != nil {
		return current, nil
	}
	return LoadConfig("")
}

// ExitCode maps a command error to a process exit status: 1 when a check
// found stale files, 2 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errStale):
		return 1
	default:
		return 2
	}
}

// Report writes err with its hints and, for build failures, the transcript
// of the failed step.
func Report(w io.Writer, err error) {
	fmt.Fprintln(w, err)
	if hint := errors.FlattenHints(err); hint != "" {
		fmt.Fprintf(w, "hint: %s\n", hint)
	}
	var be *toolchain.BuildError
	if errors.As(err, &be) && be.Transcript != "" {
		fmt.Fprintln(w, be.Transcript)
	}
}

// project is a manifest turned into a live library.
type project struct {
	manifest *manifest.Manifest
	rt       *host.Runtime
	lib      *library.Library
	tree     *shadow.Tree
}

// openProject loads the manifest at path and builds its library. A relative
// library dir in the manifest is taken relative to the manifest file. With
// withToolchain set the library gets the configured compiler and a loader
// that binds into a fresh host runtime.
func openProject(path string, withToolchain bool) (*project, error) {
	cfg, err := currentConfig()
	if err != nil {
		return nil, err
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	if m.LongWidth == 0 {
		m.LongWidth = cfg.Codegen.LongWidth
	}
	if m.Dir != "" && !filepath.IsAbs(m.Dir) {
		m.Dir = filepath.Join(filepath.Dir(path), m.Dir)
	}

	rt := host.NewRuntime()
	opts := []library.Option{library.WithBaseDir(cfg.Build.Dir)}
	if withToolchain {
		tcOpts, err := toolchainOptions(cfg, rt)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tcOpts...)
	}
	lib, tree, err := m.Build(rt, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest %s", path)
	}
	return &project{manifest: m, rt: rt, lib: lib, tree: tree}, nil
}

func toolchainOptions(cfg *config.Config, rt *host.Runtime) ([]library.Option, error) {
	cflags, err := toolchain.SplitFlags(cfg.Build.CFlags)
	if err != nil {
		return nil, errors.Wrap(err, "build.cflags")
	}
	ldflags, err := toolchain.SplitFlags(cfg.Build.LDFlags)
	if err != nil {
		return nil, errors.Wrap(err, "build.ldflags")
	}
	cc := cfg.Build.CC
	if cc == "" {
		cc = toolchain.DefaultCompiler()
	}
	return []library.Option{
		library.WithToolchain(toolchain.NewCC(cc, cfg.Build.CCVersion)),
		library.WithFlags(cflags, ldflags),
		library.WithIncludeDirs(cfg.Build.IncludeDirs...),
		library.WithLoader(library.NewHostLoader(rt)),
		library.WithStepTimes(cfg.Build.ShowTimes),
	}, nil
}
